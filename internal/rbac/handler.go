package rbac

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridianhealth/meridian-hub/internal/platform/httpx"
)

// PermissionsHandler exposes the permission catalog, the effective
// permissions report, and the override editor endpoints.
type PermissionsHandler struct {
	logger    *slog.Logger
	service   *Service
	rbac      Middleware
	validator *validator.Validate
}

// NewPermissionsHandler builds a PermissionsHandler.
func NewPermissionsHandler(logger *slog.Logger, service *Service, mw Middleware) *PermissionsHandler {
	return &PermissionsHandler{
		logger:    logger,
		service:   service,
		rbac:      mw,
		validator: validator.New(),
	}
}

// MountRoutes registers admin permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(PermAdminPermissionsView, PermAdminUsersView))
		r.Get("/catalog", h.listCatalog)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(PermAdminUsersView))
		r.Get("/users/{userID}/effective", h.effectivePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(PermAdminUsersEdit))
		r.Put("/users/{userID}/overrides/{permissionID}", h.setOverride)
		r.Post("/users/{userID}/overrides", h.applyOverrides)
	})
}

func (h *PermissionsHandler) listCatalog(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.Catalog(r.Context())
	if err != nil {
		h.logger.Error("list catalog", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *PermissionsHandler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	effective, err := h.service.ResolveEffectivePermissions(r.Context(), userID)
	if err != nil {
		h.logger.Error("resolve effective permissions", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"permissions": effective,
	})
}

type setOverrideRequest struct {
	// nil clears the override so the user falls back to role rules.
	Effect *string `json:"effect" validate:"omitempty,oneof=allow deny"`
}

func (h *PermissionsHandler) setOverride(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	permissionID, err := pathID(r, "permissionID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid permission id")
		return
	}
	var req setOverrideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var effect *Effect
	if req.Effect != nil {
		parsed, err := ParseEffect(*req.Effect)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		effect = &parsed
	}
	if err := h.service.SetUserOverride(r.Context(), userID, permissionID, effect); err != nil {
		h.logger.Error("set override", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type overrideChangeRequest struct {
	PermissionID int64  `json:"permission_id" validate:"required,gt=0"`
	State        string `json:"state" validate:"required,oneof=none allow deny"`
}

type applyOverridesRequest struct {
	Changes []overrideChangeRequest `json:"changes" validate:"required,min=1,dive"`
}

func (h *PermissionsHandler) applyOverrides(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	var req applyOverridesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	changes := make([]OverrideChange, 0, len(req.Changes))
	for _, c := range req.Changes {
		state, err := ParseOverrideState(c.State)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		changes = append(changes, OverrideChange{PermissionID: c.PermissionID, State: state})
	}
	if err := h.service.ApplyOverrides(r.Context(), userID, changes); err != nil {
		h.logger.Error("apply overrides", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	effective, err := h.service.ResolveEffectivePermissions(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"permissions": effective,
	})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
