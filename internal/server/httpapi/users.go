package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/errdefs"
	"github.com/jatinpathania/University-assignment-approval-system/internal/service"
)

var validate = validator.New()

// decodeAndValidate parses a JSON body and runs struct tag validation,
// translating failures into the field-keyed validation shape the rest of
// the API uses.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errdefs.NewValidationError("body", "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			ve := &errdefs.ValidationError{}
			for _, fe := range fieldErrs {
				ve.Add(fe.Field(), "failed "+fe.Tag()+" validation")
			}
			return ve
		}
		return errdefs.NewValidationError("body", "invalid request body")
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type createUserRequest struct {
	Name         string  `json:"name" validate:"required"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	Phone        *string `json:"phone,omitempty"`
	Role         string  `json:"role" validate:"required"`
	DepartmentID *string `json:"department_id,omitempty"`
}

type updateProfileRequest struct {
	Name  string  `json:"name" validate:"required"`
	Email string  `json:"email" validate:"required,email"`
	Phone *string `json:"phone,omitempty"`
}

type UserHandler struct {
	users *service.UserService
	auth  *service.AuthService
}

func NewUserHandler(users *service.UserService, auth *service.AuthService) *UserHandler {
	return &UserHandler{users: users, auth: auth}
}

func (h *UserHandler) RegisterRoutes(r chi.Router, authmw func(http.Handler) http.Handler) {
	r.Post("/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(authmw)

		r.Post("/", h.create)
		r.Delete("/{id}", h.delete)
		r.Get("/me", h.me)
		r.Put("/me/profile", h.requestProfileUpdate)
		r.Post("/me/profile/confirm", h.confirmProfileUpdate)
		r.Post("/me/profile/resend", h.resendProfileUpdateCode)
	})
}

func (h *UserHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  toUserResponse(user),
	})
}

func (h *UserHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	input := service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     domain.Role(req.Role),
	}
	if req.DepartmentID != nil {
		deptID, err := uuid.Parse(*req.DepartmentID)
		if err != nil {
			writeError(w, errdefs.NewValidationError("department_id", "must be a valid id"))
			return
		}
		input.DepartmentID = &deptID
	}

	user, err := h.users.CreateUser(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *UserHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetMe(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *UserHandler) requestProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	err := h.users.RequestProfileUpdate(r.Context(), service.UpdateProfileInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "verification code sent"})
}

func (h *UserHandler) confirmProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.ConfirmProfileUpdate(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *UserHandler) resendProfileUpdateCode(w http.ResponseWriter, r *http.Request) {
	if err := h.users.ResendProfileUpdateCode(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "verification code resent"})
}
