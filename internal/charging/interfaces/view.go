package interfaces

import (
	"time"

	charging "blastcharge/internal/charging/domain"
)

// columnView is the API shape of a charge column. It carries the
// stored state plus derived per-deck lengths and masses so clients
// never recompute cylinder math.
type columnView struct {
	EntityName      string       `json:"entity_name"`
	HoleID          string       `json:"hole_id"`
	HoleDiameterMm  float64      `json:"hole_diameter_mm"`
	HoleLength      float64      `json:"hole_length"`
	ExplosiveMassKg float64      `json:"explosive_mass_kg"`
	Decks           []deckView   `json:"decks"`
	Primers         []primerView `json:"primers,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type deckView struct {
	DeckID          string        `json:"deck_id"`
	Type            string        `json:"type"`
	TopDepth        float64       `json:"top_depth"`
	BaseDepth       float64       `json:"base_depth"`
	Length          float64       `json:"length"`
	Product         string        `json:"product"`
	DensityGcc      float64       `json:"density_gcc"`
	Scaling         string        `json:"scaling"`
	ExplosiveMassKg float64       `json:"explosive_mass_kg"`
	OverlapPattern  string        `json:"overlap_pattern,omitempty"`
	Contains        []contentView `json:"contains,omitempty"`
}

type contentView struct {
	ContentID        string  `json:"content_id"`
	Type             string  `json:"type"`
	Category         string  `json:"category"`
	LengthFromCollar float64 `json:"length_from_collar"`
	Length           float64 `json:"length"`
	MassKg           float64 `json:"mass_kg"`
	TotalDelayMs     float64 `json:"total_delay_ms"`
}

type primerView struct {
	PrimerID         string  `json:"primer_id"`
	LengthFromCollar float64 `json:"length_from_collar"`
	Detonator        string  `json:"detonator"`
	Booster          string  `json:"booster,omitempty"`
	BoosterMassGrams float64 `json:"booster_mass_grams,omitempty"`
	DelayMs          float64 `json:"delay_ms"`
	AssignedDeckID   string  `json:"assigned_deck_id,omitempty"`
}

func toColumnView(column *charging.HoleCharging) columnView {
	view := columnView{
		EntityName:      column.EntityName,
		HoleID:          column.HoleID,
		HoleDiameterMm:  column.HoleDiameterMm,
		HoleLength:      column.HoleLength,
		ExplosiveMassKg: column.TotalExplosiveMass(),
		Decks:           make([]deckView, 0, len(column.Decks)),
		CreatedAt:       column.CreatedAt,
		UpdatedAt:       column.UpdatedAt,
	}
	for _, deck := range column.Decks {
		dv := deckView{
			DeckID:          deck.DeckID,
			Type:            string(deck.Type),
			TopDepth:        deck.TopDepth,
			BaseDepth:       deck.BaseDepth,
			Length:          deck.Length(),
			Product:         deck.Product.Name,
			DensityGcc:      deck.Product.Density,
			Scaling:         string(deck.Scaling),
			ExplosiveMassKg: deck.ExplosiveMass(column.HoleDiameterMm),
			OverlapPattern:  deck.OverlapPattern,
		}
		for _, content := range deck.Contains {
			dv.Contains = append(dv.Contains, contentView{
				ContentID:        content.ContentID,
				Type:             string(content.Type),
				Category:         string(content.Category()),
				LengthFromCollar: content.LengthFromCollar,
				Length:           content.Length,
				MassKg:           content.Mass(),
				TotalDelayMs:     content.TotalDelayMs(),
			})
		}
		view.Decks = append(view.Decks, dv)
	}
	for _, primer := range column.Primers {
		view.Primers = append(view.Primers, primerView{
			PrimerID:         primer.PrimerID,
			LengthFromCollar: primer.LengthFromCollar,
			Detonator:        primer.Detonator.ProductRef,
			Booster:          primer.Booster.ProductRef,
			BoosterMassGrams: primer.Booster.MassGrams,
			DelayMs:          primer.Detonator.DelayMs,
			AssignedDeckID:   primer.AssignedDeckID,
		})
	}
	return view
}
