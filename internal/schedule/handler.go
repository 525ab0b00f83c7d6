package schedule

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"schedule-service/internal/account"
	"schedule-service/internal/httputil"
	"schedule-service/internal/policy"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  *Service
	accounts *account.Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service *Service, accounts *account.Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		accounts: accounts,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes mounts the class endpoints. The caller is expected to have
// run the auth middleware already; role checks happen per group here.
func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/classes", func(r chi.Router) {
		r.Get("/", h.ListAll)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(account.RequireRole(account.RoleTeacher))
			r.Post("/", h.Create)
			r.Get("/mine", h.ListMine)
			r.Patch("/{id}", h.Update)
			r.Delete("/{id}", h.Cancel)
		})

		r.Group(func(r chi.Router) {
			r.Use(account.RequireRole(account.RoleStudent))
			r.Get("/schedule", h.ListSchedule)
		})
	})
}

// Create assigns a new class owned by the authenticated teacher.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := account.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.logger.Warn("validation failed", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.InfoContext(r.Context(), "creating class",
		"course", req.Course, "teacher_id", identity.ID)
	class, err := h.service.Create(r.Context(), identity.ID, identity.Name, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, class)
}

// Update applies a partial update to a class the caller owns.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := account.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid class id")
		return
	}

	var req UpdateClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.logger.Warn("validation failed", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.InfoContext(r.Context(), "updating class", "class_id", id, "teacher_id", identity.ID)
	class, err := h.service.Update(r.Context(), identity.ID, id, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, class)
}

// Cancel deletes a class the caller owns.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, ok := account.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid class id")
		return
	}

	h.logger.InfoContext(r.Context(), "cancelling class", "class_id", id, "teacher_id", identity.ID)
	if err := h.service.Cancel(r.Context(), identity.ID, id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Get returns one class. Students only see classes addressed to their own
// batch and department; a class outside their audience reads as not found.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid class id")
		return
	}

	class, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	identity, _ := account.IdentityFromContext(r.Context())
	if identity.Role == account.RoleStudent {
		student, err := h.accounts.GetStudent(r.Context(), identity.ID)
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}
		if !policy.AudienceMatch(student.Batch, student.Department, class.Batch, class.Department) {
			httputil.RespondWithError(w, http.StatusNotFound, ErrClassNotFound.Error())
			return
		}
	}

	httputil.RespondWithJSON(w, http.StatusOK, class)
}

// ListAll returns every class in creation order.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	classes, err := h.service.ListAll(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, classes)
}

// ListMine returns the classes created by the authenticated teacher.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := account.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	classes, err := h.service.ListByOwner(r.Context(), identity.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, classes)
}

// ListSchedule returns the authenticated student's timetable, resolved from
// the batch and department stored on their account.
func (h *Handler) ListSchedule(w http.ResponseWriter, r *http.Request) {
	identity, ok := account.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	student, err := h.accounts.GetStudent(r.Context(), identity.ID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	classes, err := h.service.ListForAudience(r.Context(), student.Batch, student.Department)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, classes)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrClassNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		httputil.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, account.ErrAccountNotFound):
		// A valid token for an account that no longer resolves.
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
	default:
		h.logger.ErrorContext(r.Context(), "class operation failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
