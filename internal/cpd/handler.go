package cpd

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridianhealth/meridian-hub/internal/platform/httpx"
	"github.com/meridianhealth/meridian-hub/internal/rbac"
	"github.com/meridianhealth/meridian-hub/internal/shared"
)

// Handler wires CPD tracker endpoints. Users log and view their own
// activities; the edit permission only gates writing.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw, validator: validator.New()}
}

// MountRoutes registers CPD routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermCPDView))
		r.Get("/activities", h.listActivities)
		r.Get("/summary", h.summary)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermCPDEdit))
		r.Post("/activities", h.logActivity)
		r.Delete("/activities/{activityID}", h.deleteActivity)
	})
}

type logActivityRequest struct {
	ActivityDate string  `json:"activity_date" validate:"omitempty,datetime=2006-01-02"`
	Category     string  `json:"category" validate:"required"`
	Hours        float64 `json:"hours" validate:"required,gt=0"`
	Notes        string  `json:"notes"`
}

func (h *Handler) logActivity(w http.ResponseWriter, r *http.Request) {
	var req logActivityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	activity := Activity{
		UserID:   h.actorID(r),
		Category: req.Category,
		Hours:    req.Hours,
		Notes:    req.Notes,
	}
	if req.ActivityDate != "" {
		activity.ActivityDate, _ = time.Parse("2006-01-02", req.ActivityDate)
	}
	created, err := h.service.Log(r.Context(), activity)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	activities, err := h.service.ListYear(r.Context(), h.actorID(r), year)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"activities": activities})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	summary, err := h.service.Summary(r.Context(), h.actorID(r), year)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "activityID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid activity id")
		return
	}
	if err := h.service.Remove(r.Context(), id, h.actorID(r)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) actorID(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "activity not found")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("cpd request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
