package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	catalog "blastcharge/internal/catalog/domain"
)

// ProductHandler handles product catalog APIs.
type ProductHandler struct {
	repo catalog.Repository
}

// NewProductHandler constructs a handler.
func NewProductHandler(repo catalog.Repository) (*ProductHandler, error) {
	if repo == nil {
		return nil, errors.New("product handler: nil repository")
	}
	return &ProductHandler{repo: repo}, nil
}

type productView struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Density       float64 `json:"density"`
	ColorHex      string  `json:"color_hex,omitempty"`
	DiameterMm    float64 `json:"diameter_mm,omitempty"`
	LengthMm      float64 `json:"length_mm,omitempty"`
	MassGrams     float64 `json:"mass_grams,omitempty"`
	VodMs         float64 `json:"vod_ms,omitempty"`
	InitiatorType string  `json:"initiator_type,omitempty"`
}

// ServeHTTP handles GET and POST /api/v1/products.
func (h *ProductHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v1/products" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleSave(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *ProductHandler) handleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]productView, 0, len(products))
	for _, product := range products {
		views = append(views, toProductView(product))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}

func (h *ProductHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	var req productView
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	product := catalog.Product{
		ID:            req.ID,
		Name:          req.Name,
		Category:      req.Category,
		Density:       req.Density,
		ColorHex:      req.ColorHex,
		DiameterMm:    req.DiameterMm,
		LengthMm:      req.LengthMm,
		MassGrams:     req.MassGrams,
		VodMs:         req.VodMs,
		InitiatorType: req.InitiatorType,
	}
	if err := h.repo.Save(r.Context(), &product); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toProductView(product))
}

func toProductView(product catalog.Product) productView {
	return productView{
		ID:            product.ID,
		Name:          product.Name,
		Category:      product.Category,
		Density:       product.Density,
		ColorHex:      product.ColorHex,
		DiameterMm:    product.DiameterMm,
		LengthMm:      product.LengthMm,
		MassGrams:     product.MassGrams,
		VodMs:         product.VodMs,
		InitiatorType: product.InitiatorType,
	}
}
