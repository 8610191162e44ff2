package mlo

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

// Handler wires MLO CRM endpoints: targets, audit history, visits, attainment.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	attainment *AttainmentReader
	rbac       rbac.Middleware
	validator  *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, attainment *AttainmentReader, mw rbac.Middleware) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		attainment: attainment,
		rbac:       mw,
		validator:  validator.New(),
	}
}

// MountRoutes registers MLO routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermMLOTargetsView))
		r.Get("/targets", h.listTargets)
		r.Get("/targets/{targetID}", h.getTarget)
		r.Get("/targets/audit", h.auditHistory)
		r.Get("/attainment/{userID}", h.attainmentSummary)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermMLOTargetsEdit))
		r.Post("/targets", h.createTarget)
		r.Patch("/targets/{targetID}", h.updateTarget)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermMLOView))
		r.Get("/visits", h.listVisits)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermMLOEdit))
		r.Post("/visits", h.createVisit)
	})
}

type createTargetRequest struct {
	UserID          int64   `json:"user_id" validate:"required,gt=0"`
	LocationID      int64   `json:"location_id" validate:"required,gt=0"`
	ModalityTypeID  int64   `json:"modality_type_id" validate:"required,gt=0"`
	TargetPeriod    string  `json:"target_period" validate:"required"`
	PeriodStart     string  `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd       string  `json:"period_end" validate:"required,datetime=2006-01-02"`
	TargetScans     int     `json:"target_scans" validate:"gte=0"`
	TargetReferrals int     `json:"target_referrals" validate:"gte=0"`
	TargetRevenue   float64 `json:"target_revenue" validate:"gte=0"`
}

func (h *Handler) createTarget(w http.ResponseWriter, r *http.Request) {
	var req createTargetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, _ := time.Parse("2006-01-02", req.PeriodStart)
	end, _ := time.Parse("2006-01-02", req.PeriodEnd)
	target := ModalityTarget{
		UserID:          req.UserID,
		LocationID:      req.LocationID,
		ModalityTypeID:  req.ModalityTypeID,
		TargetPeriod:    req.TargetPeriod,
		PeriodStart:     start,
		PeriodEnd:       end,
		TargetScans:     req.TargetScans,
		TargetReferrals: req.TargetReferrals,
		TargetRevenue:   req.TargetRevenue,
	}
	created, err := h.service.CreateTarget(r.Context(), target, h.actorID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.attainment.Invalidate(r.Context(), created.UserID)
	httpx.JSON(w, http.StatusCreated, created)
}

type updateTargetRequest struct {
	EffectiveDate   *string  `json:"effective_date" validate:"omitempty,datetime=2006-01-02"`
	TargetScans     *int     `json:"target_scans" validate:"omitempty,gte=0"`
	TargetReferrals *int     `json:"target_referrals" validate:"omitempty,gte=0"`
	TargetRevenue   *float64 `json:"target_revenue" validate:"omitempty,gte=0"`
}

func (h *Handler) updateTarget(w http.ResponseWriter, r *http.Request) {
	targetID, err := strconv.ParseInt(chi.URLParam(r, "targetID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid target id")
		return
	}
	var req updateTargetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var effective *time.Time
	if req.EffectiveDate != nil {
		parsed, _ := time.Parse("2006-01-02", *req.EffectiveDate)
		effective = &parsed
	}
	changes := TargetChanges{
		TargetScans:     req.TargetScans,
		TargetReferrals: req.TargetReferrals,
		TargetRevenue:   req.TargetRevenue,
	}
	updated, err := h.service.UpdateTarget(r.Context(), targetID, effective, changes, h.actorID(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.attainment.Invalidate(r.Context(), updated.UserID)
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) getTarget(w http.ResponseWriter, r *http.Request) {
	targetID, err := strconv.ParseInt(chi.URLParam(r, "targetID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid target id")
		return
	}
	target, err := h.service.GetTarget(r.Context(), targetID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, target)
}

func (h *Handler) listTargets(w http.ResponseWriter, r *http.Request) {
	var filter TargetFilter
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user_id")
			return
		}
		filter.UserID = &id
	}
	if raw := r.URL.Query().Get("location_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid location_id")
			return
		}
		filter.LocationID = &id
	}
	filter.CurrentOnly = r.URL.Query().Get("current") == "true"
	targets, err := h.service.ListTargets(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"targets": targets})
}

func (h *Handler) auditHistory(w http.ResponseWriter, r *http.Request) {
	var targetID, userID *int64
	if raw := r.URL.Query().Get("target_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid target_id")
			return
		}
		targetID = &id
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user_id")
			return
		}
		userID = &id
	}
	records, err := h.service.AuditHistory(r.Context(), targetID, userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) attainmentSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	summaries, err := h.attainment.Summary(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"attainment": summaries})
}

type createVisitRequest struct {
	ReferrerName string `json:"referrer_name" validate:"required"`
	Practice     string `json:"practice"`
	VisitDate    string `json:"visit_date" validate:"omitempty,datetime=2006-01-02"`
	Notes        string `json:"notes"`
}

func (h *Handler) createVisit(w http.ResponseWriter, r *http.Request) {
	var req createVisitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	visit := Visit{
		MLOUserID:    h.actorID(r),
		ReferrerName: req.ReferrerName,
		Practice:     req.Practice,
		Notes:        req.Notes,
	}
	if req.VisitDate != "" {
		visit.VisitDate, _ = time.Parse("2006-01-02", req.VisitDate)
	}
	created, err := h.service.RecordVisit(r.Context(), visit)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) listVisits(w http.ResponseWriter, r *http.Request) {
	userID := h.actorID(r)
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			userID = id
		}
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	visits, total, err := h.service.ListVisits(r.Context(), userID, limit, offset)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"visits": visits, "total": total})
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("mlo request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
