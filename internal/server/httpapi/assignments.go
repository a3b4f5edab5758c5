package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/errdefs"
	"github.com/jatinpathania/University-assignment-approval-system/internal/service"
)

const maxUploadMemory = 10 << 20 // 10 MB

type AssignmentHandler struct {
	reviews *service.ReviewService
}

func NewAssignmentHandler(reviews *service.ReviewService) *AssignmentHandler {
	return &AssignmentHandler{reviews: reviews}
}

func (h *AssignmentHandler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Post("/", h.createDraft)
		r.Post("/bulk", h.createDrafts)
		r.Get("/{id}", h.get)
		r.Post("/{id}/submit", h.submit)
		r.Post("/{id}/forward", h.forward)
		r.Post("/{id}/reject", h.reject)
		r.Post("/{id}/approve", h.requestApproval)
		r.Post("/{id}/approve/confirm", h.confirmApproval)
		r.Post("/approve/resend", h.resendApprovalCode)
		r.Post("/{id}/resubmit", h.resubmit)
	})
}

func (h *AssignmentHandler) createDraft(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "expected multipart form data")
		return
	}

	input := service.CreateDraftInput{
		Title:    r.FormValue("title"),
		Category: domain.ToCategory(r.FormValue("category")),
	}
	if v := r.FormValue("description"); v != "" {
		input.Description = &v
	}
	if v := r.FormValue("course_code"); v != "" {
		input.CourseCode = &v
	}

	file, err := readUpload(r, "file")
	if err != nil {
		writeError(w, err)
		return
	}
	input.File = file

	assignment, err := h.reviews.CreateDraft(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentResponse(assignment))
}

// createDrafts handles a multi-file upload, one draft per file under
// the "files" field.
func (h *AssignmentHandler) createDrafts(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "expected multipart form data")
		return
	}

	input := service.CreateDraftsInput{
		Title:    r.FormValue("title"),
		Category: domain.ToCategory(r.FormValue("category")),
	}
	if v := r.FormValue("description"); v != "" {
		input.Description = &v
	}

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			file, err := header.Open()
			if err != nil {
				writeError(w, errdefs.NewValidationError("files", "could not read uploaded file"))
				return
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				writeError(w, errdefs.NewValidationError("files", "could not read uploaded file"))
				return
			}
			input.Files = append(input.Files, service.FileUpload{Data: data, Filename: header.Filename})
		}
	}

	assignments, err := h.reviews.CreateDrafts(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]assignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, toAssignmentResponse(a))
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *AssignmentHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	assignment, err := h.reviews.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentResponse(assignment))
}

func (h *AssignmentHandler) submit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		ReviewerID string `json:"reviewer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reviewerID, err := uuid.Parse(req.ReviewerID)
	if err != nil {
		writeError(w, errdefs.NewValidationError("reviewer_id", "must be a valid id"))
		return
	}

	assignment, err := h.reviews.Submit(r.Context(), id, reviewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentResponse(assignment))
}

func (h *AssignmentHandler) forward(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		ReviewerID string `json:"reviewer_id"`
		Note       string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reviewerID, err := uuid.Parse(req.ReviewerID)
	if err != nil {
		writeError(w, errdefs.NewValidationError("reviewer_id", "must be a valid id"))
		return
	}

	assignment, err := h.reviews.Forward(r.Context(), id, reviewerID, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentResponse(assignment))
}

func (h *AssignmentHandler) reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Remark string `json:"remark"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assignment, err := h.reviews.Reject(r.Context(), id, req.Remark)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentResponse(assignment))
}

// requestApproval accepts multipart form data so the reviewer can attach
// a signature image alongside the remark. The response is 202: nothing
// has changed yet, a code is on its way.
func (h *AssignmentHandler) requestApproval(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "expected multipart form data")
		return
	}

	signature, err := optionalUpload(r, "signature")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.reviews.RequestApproval(r.Context(), id, r.FormValue("remark"), signature); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "verification code sent"})
}

func (h *AssignmentHandler) confirmApproval(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assignment, err := h.reviews.ConfirmApproval(r.Context(), id, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentResponse(assignment))
}

func (h *AssignmentHandler) resendApprovalCode(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.ResendApprovalCode(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "verification code resent"})
}

func (h *AssignmentHandler) resubmit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "expected multipart form data")
		return
	}

	var input service.ResubmitInput
	if v := r.FormValue("reviewer_id"); v != "" {
		reviewerID, err := uuid.Parse(v)
		if err != nil {
			writeError(w, errdefs.NewValidationError("reviewer_id", "must be a valid id"))
			return
		}
		input.ReviewerID = &reviewerID
	}
	if v := r.FormValue("description"); v != "" {
		input.Description = &v
	}

	file, err := optionalUpload(r, "file")
	if err != nil {
		writeError(w, err)
		return
	}
	input.File = file

	assignment, err := h.reviews.Resubmit(r.Context(), id, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentResponse(assignment))
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errdefs.ErrNotFound
	}
	return id, nil
}

func readUpload(r *http.Request, field string) (*service.FileUpload, error) {
	upload, err := optionalUpload(r, field)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, errdefs.NewValidationError(field, "a document upload is required")
	}
	return upload, nil
}

func optionalUpload(r *http.Request, field string) (*service.FileUpload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, errdefs.NewValidationError(field, "could not read uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errdefs.NewValidationError(field, "could not read uploaded file")
	}
	return &service.FileUpload{Data: data, Filename: header.Filename}, nil
}
