package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"blastcharge/internal/audit"
	"blastcharge/internal/auth"
	drillhole "blastcharge/internal/drillhole/domain"
)

// Rescaler reconciles a stored charge column after a geometry edit.
// A hole without a column is not an error here.
type Rescaler interface {
	Rescale(ctx context.Context, entityName, holeID string) (bool, error)
}

// HoleHandler handles blast hole APIs. Saving a hole triggers a
// rescale of its charge column when one exists.
type HoleHandler struct {
	repo          drillhole.Repository
	rescaler      Rescaler
	entityChecker auth.EntityTenantChecker
	auditLogger   audit.Logger
	notFound      func(error) bool
}

// NewHoleHandler constructs a handler. notFound classifies the
// rescaler's column-missing error so it can be swallowed.
func NewHoleHandler(repo drillhole.Repository, rescaler Rescaler, notFound func(error) bool, entityChecker auth.EntityTenantChecker, auditLogger audit.Logger) (*HoleHandler, error) {
	if repo == nil {
		return nil, errors.New("hole handler: nil repository")
	}
	return &HoleHandler{repo: repo, rescaler: rescaler, notFound: notFound, entityChecker: entityChecker, auditLogger: auditLogger}, nil
}

type holeRequest struct {
	HoleID         string  `json:"hole_id"`
	EntityName     string  `json:"entity_name"`
	HoleDiameterMm float64 `json:"hole_diameter_mm"`
	HoleLength     float64 `json:"hole_length"`
	BenchHeight    float64 `json:"bench_height"`
	SubdrillLength float64 `json:"subdrill_length"`
	Burden         float64 `json:"burden"`
	Spacing        float64 `json:"spacing"`

	ShortHoleOverride          *bool    `json:"short_hole_override,omitempty"`
	ShortHoleThresholdOverride *float64 `json:"short_hole_threshold_override,omitempty"`
}

type holeResponse struct {
	holeRequest
	Rescaled bool `json:"rescaled,omitempty"`
}

// ServeHTTP handles hole routes under /api/v1/holes.
func (h *HoleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/holes" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
			return
		case http.MethodPost:
			h.handleSave(w, r)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if strings.HasPrefix(path, "/api/v1/holes/") && r.Method == http.MethodGet {
		rest := strings.TrimPrefix(path, "/api/v1/holes/")
		parts := strings.Split(rest, "/")
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			h.handleGet(w, r, parts[0], parts[1])
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *HoleHandler) handleList(w http.ResponseWriter, r *http.Request) {
	entityName := r.URL.Query().Get("entity_name")
	if entityName == "" {
		http.Error(w, "entity_name is required", http.StatusBadRequest)
		return
	}
	if err := h.ensureEntityTenant(r, entityName); err != nil {
		respondTenantError(w, err)
		return
	}
	holes, err := h.repo.List(r.Context(), entityName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]holeRequest, 0, len(holes))
	for _, hole := range holes {
		views = append(views, toHoleView(hole))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}

func (h *HoleHandler) handleGet(w http.ResponseWriter, r *http.Request, entityName, holeID string) {
	if err := h.ensureEntityTenant(r, entityName); err != nil {
		respondTenantError(w, err)
		return
	}
	hole, err := h.repo.Get(r.Context(), entityName, holeID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if hole == nil {
		http.Error(w, "hole not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toHoleView(*hole))
}

func (h *HoleHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	var req holeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.ensureEntityTenant(r, req.EntityName); err != nil {
		respondTenantError(w, err)
		return
	}
	hole := drillhole.BlastHole{
		HoleID:                     req.HoleID,
		EntityName:                 req.EntityName,
		HoleDiameterMm:             req.HoleDiameterMm,
		HoleLength:                 req.HoleLength,
		BenchHeight:                req.BenchHeight,
		SubdrillLength:             req.SubdrillLength,
		Burden:                     req.Burden,
		Spacing:                    req.Spacing,
		ShortHoleOverride:          req.ShortHoleOverride,
		ShortHoleThresholdOverride: req.ShortHoleThresholdOverride,
	}
	if err := h.repo.Save(r.Context(), &hole); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rescaled := false
	if h.rescaler != nil {
		changed, err := h.rescaler.Rescale(r.Context(), hole.EntityName, hole.HoleID)
		if err != nil && (h.notFound == nil || !h.notFound(err)) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		rescaled = changed
	}

	response := holeResponse{holeRequest: toHoleView(hole), Rescaled: rescaled}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
	h.logAudit(r, hole.EntityName, hole.HoleID, map[string]any{
		"hole_length":      hole.HoleLength,
		"hole_diameter_mm": hole.HoleDiameterMm,
		"rescaled":         rescaled,
	})
}

func toHoleView(hole drillhole.BlastHole) holeRequest {
	return holeRequest{
		HoleID:                     hole.HoleID,
		EntityName:                 hole.EntityName,
		HoleDiameterMm:             hole.HoleDiameterMm,
		HoleLength:                 hole.HoleLength,
		BenchHeight:                hole.BenchHeight,
		SubdrillLength:             hole.SubdrillLength,
		Burden:                     hole.Burden,
		Spacing:                    hole.Spacing,
		ShortHoleOverride:          hole.ShortHoleOverride,
		ShortHoleThresholdOverride: hole.ShortHoleThresholdOverride,
	}
}

func (h *HoleHandler) ensureEntityTenant(r *http.Request, entityName string) error {
	tenantID := auth.TenantIDFromContext(r.Context())
	if h.entityChecker == nil || tenantID == "" || entityName == "" {
		return nil
	}
	return h.entityChecker.EnsureEntityTenant(r.Context(), tenantID, entityName)
}

func (h *HoleHandler) logAudit(r *http.Request, entityName, holeID string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       "hole.save",
		ResourceType: "hole",
		ResourceID:   holeID,
		EntityName:   entityName,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func respondTenantError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, auth.ErrTenantMismatch) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if errors.Is(err, auth.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, "tenant check failed", http.StatusInternalServerError)
}
