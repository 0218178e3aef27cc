package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"blastcharge/internal/audit"
	"blastcharge/internal/auth"
	chargingapp "blastcharge/internal/charging/application"
	charging "blastcharge/internal/charging/domain"
	"blastcharge/internal/observability/metrics"
)

// ChargingHandler handles charge column APIs.
type ChargingHandler struct {
	service       *chargingapp.ChargingService
	library       *chargingapp.TemplateLibrary
	entityChecker auth.EntityTenantChecker
	auditLogger   audit.Logger
}

// NewChargingHandler constructs a handler.
func NewChargingHandler(service *chargingapp.ChargingService, library *chargingapp.TemplateLibrary, entityChecker auth.EntityTenantChecker, auditLogger audit.Logger) (*ChargingHandler, error) {
	if service == nil {
		return nil, errors.New("charging handler: nil service")
	}
	if library == nil {
		return nil, errors.New("charging handler: nil template library")
	}
	return &ChargingHandler{service: service, library: library, entityChecker: entityChecker, auditLogger: auditLogger}, nil
}

// ServeHTTP handles charging routes under /api/v1/chargings and the
// template listing under /api/v1/templates.
func (h *ChargingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/templates" && r.Method == http.MethodGet {
		h.handleTemplates(w, r)
		return
	}
	if path == "/api/v1/chargings/apply" && r.Method == http.MethodPost {
		h.handleApply(w, r)
		return
	}
	if path == "/api/v1/chargings" && r.Method == http.MethodGet {
		h.handleList(w, r)
		return
	}
	if strings.HasPrefix(path, "/api/v1/chargings/") {
		rest := strings.TrimPrefix(path, "/api/v1/chargings/")
		h.handleByHole(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *ChargingHandler) handleTemplates(w http.ResponseWriter, r *http.Request) {
	_ = r
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"templates": h.library.Names()})
}

func (h *ChargingHandler) handleApply(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityName string `json:"entity_name"`
		HoleID     string `json:"hole_id"`
		Template   string `json:"template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.EntityName == "" || req.HoleID == "" || req.Template == "" {
		http.Error(w, "entity_name, hole_id and template are required", http.StatusBadRequest)
		return
	}
	if err := h.ensureEntityTenant(r, req.EntityName); err != nil {
		respondTenantError(w, err)
		return
	}
	template, ok := h.library.Get(req.Template)
	if !ok {
		http.Error(w, "unknown template", http.StatusNotFound)
		return
	}
	column, result, err := h.service.Apply(r.Context(), req.EntityName, req.HoleID, template)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Charging   columnView                `json:"charging"`
		Validation charging.ValidationResult `json:"validation"`
	}{Charging: toColumnView(column), Validation: result})
	h.logAudit(r, req.EntityName, req.HoleID, "charging.apply", map[string]any{
		"template": req.Template,
		"decks":    len(column.Decks),
		"primers":  len(column.Primers),
	})
}

func (h *ChargingHandler) handleList(w http.ResponseWriter, r *http.Request) {
	entityName := r.URL.Query().Get("entity_name")
	if entityName == "" {
		http.Error(w, "entity_name is required", http.StatusBadRequest)
		return
	}
	if err := h.ensureEntityTenant(r, entityName); err != nil {
		respondTenantError(w, err)
		return
	}
	columns, err := h.service.List(r.Context(), entityName)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	views := make([]columnView, 0, len(columns))
	for _, column := range columns {
		views = append(views, toColumnView(column))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}

func (h *ChargingHandler) handleByHole(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	entityName, holeID := parts[0], parts[1]
	if err := h.ensureEntityTenant(r, entityName); err != nil {
		respondTenantError(w, err)
		return
	}
	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, entityName, holeID)
			return
		case http.MethodDelete:
			h.handleClear(w, r, entityName, holeID)
			return
		}
	}
	if len(parts) == 3 {
		switch parts[2] {
		case "rescale":
			if r.Method == http.MethodPost {
				h.handleRescale(w, r, entityName, holeID)
				return
			}
		case "powder-factor":
			if r.Method == http.MethodGet {
				h.handlePowderFactor(w, r, entityName, holeID)
				return
			}
		case "export.pdf":
			if r.Method == http.MethodGet {
				h.handleExportPDF(w, r, entityName, holeID)
				return
			}
		case "export.xlsx":
			if r.Method == http.MethodGet {
				h.handleExportXLSX(w, r, entityName, holeID)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *ChargingHandler) handleGet(w http.ResponseWriter, r *http.Request, entityName, holeID string) {
	column, err := h.service.Get(r.Context(), entityName, holeID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toColumnView(column))
}

func (h *ChargingHandler) handleClear(w http.ResponseWriter, r *http.Request, entityName, holeID string) {
	if err := h.service.Clear(r.Context(), entityName, holeID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, entityName, holeID, "charging.clear", nil)
}

func (h *ChargingHandler) handleRescale(w http.ResponseWriter, r *http.Request, entityName, holeID string) {
	changed, err := h.service.Rescale(r.Context(), entityName, holeID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"changed": changed})
	h.logAudit(r, entityName, holeID, "charging.rescale", map[string]any{"changed": changed})
}

func (h *ChargingHandler) handlePowderFactor(w http.ResponseWriter, r *http.Request, entityName, holeID string) {
	report, err := h.service.PowderFactor(r.Context(), entityName, holeID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		EntityName      string  `json:"entity_name"`
		HoleID          string  `json:"hole_id"`
		ExplosiveMassKg float64 `json:"explosive_mass_kg"`
		Burden          float64 `json:"burden"`
		Spacing         float64 `json:"spacing"`
		PowderFactor    float64 `json:"powder_factor"`
	}{report.EntityName, report.HoleID, report.ExplosiveMassKg, report.Burden, report.Spacing, report.PowderFactor})
}

func (h *ChargingHandler) handleExportPDF(w http.ResponseWriter, r *http.Request, entityName, holeID string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("pdf", result, time.Since(start))
	}()

	column, err := h.service.Get(r.Context(), entityName, holeID)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := BuildChargeSheetPDF(column)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export pdf error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, entityName, holeID, "charging.export", map[string]any{"format": "pdf"})
}

func (h *ChargingHandler) handleExportXLSX(w http.ResponseWriter, r *http.Request, entityName, holeID string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport("xlsx", result, time.Since(start))
	}()

	column, err := h.service.Get(r.Context(), entityName, holeID)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := BuildChargeSheetXLSX(column)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, entityName, holeID, "charging.export", map[string]any{"format": "xlsx"})
}

func (h *ChargingHandler) ensureEntityTenant(r *http.Request, entityName string) error {
	tenantID := auth.TenantIDFromContext(r.Context())
	if h.entityChecker == nil || tenantID == "" || entityName == "" {
		return nil
	}
	return h.entityChecker.EnsureEntityTenant(r.Context(), tenantID, entityName)
}

func (h *ChargingHandler) logAudit(r *http.Request, entityName, holeID, action string, meta map[string]any) {
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
		Action:       action,
		ResourceType: "charging",
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

func respondServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, charging.ErrNotFound) || errors.Is(err, chargingapp.ErrHoleNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}
