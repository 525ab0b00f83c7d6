package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"schedule-service/internal/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  *Service
	tokens   *TokenManager
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service *Service, tokens *TokenManager, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register/teacher", h.RegisterTeacher)
		r.Post("/register/student", h.RegisterStudent)
		r.Post("/login/teacher", h.LoginTeacher)
		r.Post("/login/student", h.LoginStudent)
		r.Post("/logout", h.Logout)
	})
}

// RegisterTeacher creates an instructor account guarded by the shared
// registration secret.
func (h *Handler) RegisterTeacher(w http.ResponseWriter, r *http.Request) {
	var req RegisterTeacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.logger.Warn("validation failed", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.service.RegisterTeacher(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "teacher registered", "email", req.Email)
	httputil.RespondWithJSON(w, http.StatusCreated, RegisterResponse{ID: id})
}

// RegisterStudent creates a student account.
func (h *Handler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req RegisterStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.logger.Warn("validation failed", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.service.RegisterStudent(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "student registered", "email", req.Email)
	httputil.RespondWithJSON(w, http.StatusCreated, RegisterResponse{ID: id})
}

// LoginTeacher authenticates a teacher and sets the auth cookie.
func (h *Handler) LoginTeacher(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	teacher, err := h.service.AuthenticateTeacher(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.issueCookie(w, r, teacher.ID, teacher.Name, teacher.Email, RoleTeacher, LoginResponse{
		ID:      teacher.ID,
		Name:    teacher.Name,
		Surname: teacher.Surname,
		Email:   teacher.Email,
		Role:    RoleTeacher,
	})
}

// LoginStudent authenticates a student and sets the auth cookie.
func (h *Handler) LoginStudent(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	student, err := h.service.AuthenticateStudent(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.issueCookie(w, r, student.ID, student.Name, student.Email, RoleStudent, LoginResponse{
		ID:      student.ID,
		Name:    student.Name,
		Surname: student.Surname,
		Email:   student.Email,
		Role:    RoleStudent,
	})
}

// Logout clears the auth cookie. Tokens are short-lived, nothing is stored
// server side.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearAuthCookie(w)
	h.logger.InfoContext(r.Context(), "logged out")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) issueCookie(w http.ResponseWriter, r *http.Request, id int64, name, email, role string, resp LoginResponse) {
	token, err := h.tokens.Generate(id, name, email, role)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "token generation failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	SetAuthCookie(w, token, int(h.tokens.TTL().Seconds()))
	h.logger.InfoContext(r.Context(), "logged in", "email", email, "role", role)
	httputil.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrEmailTaken):
		httputil.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrBadSecretAnswer):
		httputil.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrInvalidCredentials):
		// One body for both so the API does not reveal which emails exist.
		httputil.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
	default:
		h.logger.ErrorContext(r.Context(), "account operation failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
