package apihttp

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	chargingapp "blastcharge/internal/charging/application"
	drillhole "blastcharge/internal/drillhole/domain"
)

const timeLayout = time.RFC3339

// StatsHandler serves per-entity charge statistics: hole counts,
// explosive mass totals and powder factors across a blast.
type StatsHandler struct {
	service *chargingapp.ChargingService
	holes   drillhole.Repository
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(service *chargingapp.ChargingService, holes drillhole.Repository) *StatsHandler {
	return &StatsHandler{service: service, holes: holes}
}

type holeStatRow struct {
	EntityName      string    `json:"entity_name"`
	HoleID          string    `json:"hole_id"`
	HoleLength      float64   `json:"hole_length"`
	HoleDiameterMm  float64   `json:"hole_diameter_mm"`
	DeckCount       int       `json:"deck_count"`
	PrimerCount     int       `json:"primer_count"`
	ExplosiveMassKg float64   `json:"explosive_mass_kg"`
	PowderFactor    float64   `json:"powder_factor"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type entityStats struct {
	EntityName      string        `json:"entity_name"`
	HoleCount       int           `json:"hole_count"`
	ChargedCount    int           `json:"charged_count"`
	ExplosiveMassKg float64       `json:"explosive_mass_kg"`
	Holes           []holeStatRow `json:"holes"`
}

// ServeHTTP handles GET /api/v1/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.service == nil || h.holes == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	entityName := r.URL.Query().Get("entity_name")
	if entityName == "" {
		http.Error(w, "entity_name is required", http.StatusBadRequest)
		return
	}

	stats, err := h.buildStats(r, entityName)
	if err != nil {
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func (h *StatsHandler) buildStats(r *http.Request, entityName string) (entityStats, error) {
	holes, err := h.holes.List(r.Context(), entityName)
	if err != nil {
		return entityStats{}, err
	}
	columns, err := h.service.List(r.Context(), entityName)
	if err != nil {
		return entityStats{}, err
	}
	byHole := make(map[string]int, len(columns))
	for i, column := range columns {
		byHole[column.HoleID] = i
	}

	stats := entityStats{EntityName: entityName, HoleCount: len(holes), Holes: []holeStatRow{}}
	for _, hole := range holes {
		row := holeStatRow{
			EntityName:     entityName,
			HoleID:         hole.HoleID,
			HoleLength:     hole.HoleLength,
			HoleDiameterMm: hole.HoleDiameterMm,
			UpdatedAt:      hole.UpdatedAt,
		}
		if i, ok := byHole[hole.HoleID]; ok {
			column := columns[i]
			row.DeckCount = len(column.Decks)
			row.PrimerCount = len(column.Primers)
			row.ExplosiveMassKg = column.TotalExplosiveMass()
			row.PowderFactor = column.PowderFactor(hole.Burden, hole.Spacing)
			row.UpdatedAt = column.UpdatedAt
			stats.ChargedCount++
			stats.ExplosiveMassKg += row.ExplosiveMassKg
		}
		stats.Holes = append(stats.Holes, row)
	}
	return stats, nil
}

// ExportChargingsCSVHandler serves per-hole charge statistics as CSV.
type ExportChargingsCSVHandler struct {
	service *chargingapp.ChargingService
	holes   drillhole.Repository
}

// NewExportChargingsCSVHandler constructs a ExportChargingsCSVHandler.
func NewExportChargingsCSVHandler(service *chargingapp.ChargingService, holes drillhole.Repository) *ExportChargingsCSVHandler {
	return &ExportChargingsCSVHandler{service: service, holes: holes}
}

// ServeHTTP handles GET /api/v1/exports/chargings.csv.
func (h *ExportChargingsCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.service == nil || h.holes == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	entityName := r.URL.Query().Get("entity_name")
	if entityName == "" {
		http.Error(w, "entity_name is required", http.StatusBadRequest)
		return
	}

	stats, err := (&StatsHandler{service: h.service, holes: h.holes}).buildStats(r, entityName)
	if err != nil {
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"entity_name",
		"hole_id",
		"hole_length",
		"hole_diameter_mm",
		"deck_count",
		"primer_count",
		"explosive_mass_kg",
		"powder_factor",
		"updated_at",
	})
	for _, row := range stats.Holes {
		_ = writer.Write([]string{
			row.EntityName,
			row.HoleID,
			formatFloat(row.HoleLength),
			formatFloat(row.HoleDiameterMm),
			formatInt(row.DeckCount),
			formatInt(row.PrimerCount),
			formatFloat(row.ExplosiveMassKg),
			formatFloat(row.PowderFactor),
			formatTime(row.UpdatedAt),
		})
	}
	writer.Flush()
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(timeLayout)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatInt(value int) string {
	return strconv.Itoa(value)
}
