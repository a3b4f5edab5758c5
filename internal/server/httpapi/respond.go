package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/errdefs"
	"github.com/jatinpathania/University-assignment-approval-system/internal/service"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeErrorJSON(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeError maps domain errors onto HTTP statuses. Validation failures
// carry their field map so the client can annotate the offending inputs;
// everything unexpected collapses to a generic 500 without leaking
// internals.
func writeError(w http.ResponseWriter, err error) {
	var ve *errdefs.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, errdefs.ErrInvalidOTP):
		writeErrorJSON(w, http.StatusBadRequest, "invalid verification code")
	case errors.Is(err, errdefs.ErrOTPExpired):
		writeErrorJSON(w, http.StatusBadRequest, "verification code expired, request a new one")
	case errors.Is(err, errdefs.ErrNoPendingChallenge):
		writeErrorJSON(w, http.StatusBadRequest, "no pending verification")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeErrorJSON(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, errdefs.ErrPermissionDenied):
		writeErrorJSON(w, http.StatusForbidden, "permission denied")
	case errors.Is(err, errdefs.ErrNotFound):
		writeErrorJSON(w, http.StatusNotFound, "not found")
	case errors.Is(err, errdefs.ErrConflict):
		writeErrorJSON(w, http.StatusConflict, "record was changed by another request, reload and retry")
	case errors.Is(err, errdefs.ErrUpstream):
		writeErrorJSON(w, http.StatusBadGateway, "upstream service unavailable")
	default:
		writeErrorJSON(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

type historyEntryResponse struct {
	Action    string    `json:"action"`
	By        string    `json:"by"`
	Remark    string    `json:"remark,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	FileURL   *string   `json:"file_url,omitempty"`
}

type assignmentResponse struct {
	ID               string                 `json:"id"`
	Title            string                 `json:"title"`
	Description      *string                `json:"description,omitempty"`
	Category         string                 `json:"category"`
	CourseCode       *string                `json:"course_code,omitempty"`
	Status           string                 `json:"status"`
	StudentID        string                 `json:"student_id"`
	DepartmentID     string                 `json:"department_id"`
	ReviewerID       *string                `json:"reviewer_id,omitempty"`
	FileURL          *string                `json:"file_url,omitempty"`
	OriginalFileName *string                `json:"original_file_name,omitempty"`
	SubmissionDate   *time.Time             `json:"submission_date,omitempty"`
	History          []historyEntryResponse `json:"history"`
	CreatedAt        time.Time              `json:"created_at"`
	EditedAt         time.Time              `json:"edited_at"`
}

func toAssignmentResponse(a *domain.Assignment) assignmentResponse {
	resp := assignmentResponse{
		ID:               a.ID.String(),
		Title:            a.Title,
		Description:      a.Description,
		Category:         string(a.Category),
		CourseCode:       a.CourseCode,
		Status:           string(a.Status),
		StudentID:        a.StudentID.String(),
		DepartmentID:     a.DepartmentID.String(),
		FileURL:          a.FileURL,
		OriginalFileName: a.OriginalFileName,
		SubmissionDate:   a.SubmissionDate,
		History:          make([]historyEntryResponse, 0, len(a.History)),
		CreatedAt:        a.CreatedAt,
		EditedAt:         a.EditedAt,
	}
	if a.ReviewerID != nil {
		id := a.ReviewerID.String()
		resp.ReviewerID = &id
	}
	for _, e := range a.History {
		resp.History = append(resp.History, historyEntryResponse{
			Action:    string(e.Action),
			By:        e.By,
			Remark:    e.Remark,
			Timestamp: e.Timestamp,
			FileURL:   e.FileURL,
		})
	}
	return resp
}

type userResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        *string `json:"phone,omitempty"`
	Role         string  `json:"role"`
	DepartmentID *string `json:"department_id,omitempty"`
}

func toUserResponse(u *domain.User) userResponse {
	resp := userResponse{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Phone: u.Phone,
		Role:  string(u.Role),
	}
	if u.DepartmentID != nil {
		id := u.DepartmentID.String()
		resp.DepartmentID = &id
	}
	return resp
}
