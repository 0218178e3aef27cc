package charging

import (
	"math"

	"github.com/google/uuid"

	catalog "blastcharge/internal/catalog/domain"
)

// DeckType classifies an axial segment of the charge column.
type DeckType string

const (
	DeckInert     DeckType = "INERT"
	DeckCoupled   DeckType = "COUPLED"
	DeckDecoupled DeckType = "DECOUPLED"
	DeckSpacer    DeckType = "SPACER"
)

// IsCharge reports whether the deck type carries explosive product
// coupled to or decoupled from the hole wall.
func (t DeckType) IsCharge() bool {
	return t == DeckCoupled || t == DeckDecoupled
}

// ScalingMode governs how a deck repositions when hole geometry
// changes. Exactly one applies per deck; Proportional is the default.
type ScalingMode string

const (
	ScaleFixedLength  ScalingMode = "FIXED_LENGTH"
	ScaleFixedMass    ScalingMode = "FIXED_MASS"
	ScaleVariable     ScalingMode = "VARIABLE"
	ScaleProportional ScalingMode = "PROPORTIONAL"
)

// ProductSnapshot is the immutable product state captured when a deck
// is built. Catalog edits after the fact do not retroactively change
// charged holes.
type ProductSnapshot struct {
	Name       string
	Density    float64 // g/cc
	ColorHex   string
	DiameterMm float64
	LengthMm   float64
	MassGrams  float64
}

// Snapshot captures a catalog product into an immutable deck snapshot.
func Snapshot(p catalog.Product) ProductSnapshot {
	return ProductSnapshot{
		Name:       p.Name,
		Density:    p.Density,
		ColorHex:   p.ColorHex,
		DiameterMm: p.DiameterMm,
		LengthMm:   p.LengthMm,
		MassGrams:  p.MassGrams,
	}
}

// Deck is one contiguous axial segment of a hole's charge column.
// Depths are metres from the collar and carry the hole's sign
// convention (negative for upholes).
type Deck struct {
	DeckID    string
	HoleID    string
	Type      DeckType
	TopDepth  float64
	BaseDepth float64
	Product   ProductSnapshot
	Scaling   ScalingMode

	TopDepthFormula  string
	BaseDepthFormula string

	// OverlapPattern describes cartridge stacking, DECOUPLED decks only.
	OverlapPattern string

	Contains []DecoupledContent
}

// NewDeckID generates a deck identity.
func NewDeckID() string { return "deck-" + uuid.NewString() }

// Length returns the deck's axial length in metres.
func (d Deck) Length() float64 {
	return math.Abs(d.BaseDepth - d.TopDepth)
}

// Mass returns the deck mass in kg as a full cylinder of product at
// the given hole diameter (mm). It always uses the passed diameter,
// never a cached one, so fixed-mass recomputation and reporting stay
// consistent after a diameter change.
func (d Deck) Mass(holeDiameterMm float64) float64 {
	radius := holeDiameterMm / 2000
	return math.Pi * radius * radius * d.Length() * d.Product.Density * 1000
}

// ContainsDepth reports whether a collar depth lies inside the deck.
func (d Deck) ContainsDepth(depth float64) bool {
	lo := math.Min(d.TopDepth, d.BaseDepth)
	hi := math.Max(d.TopDepth, d.BaseDepth)
	return depth >= lo && depth <= hi
}

// EmbeddedPhysicalMass sums the mass (kg) of embedded Physical content.
func (d Deck) EmbeddedPhysicalMass() float64 {
	var total float64
	for _, content := range d.Contains {
		if content.Category() == CategoryPhysical {
			total += content.Mass()
		}
	}
	return total
}

// ExplosiveMass returns the deck's contribution to total explosive
// mass (kg) at the given hole diameter. COUPLED decks contribute the
// full deck mass; DECOUPLED decks contribute embedded physical mass,
// falling back to full deck mass when nothing is embedded; INERT and
// SPACER decks contribute only embedded physical content (packages
// sitting in an air or water deck).
func (d Deck) ExplosiveMass(holeDiameterMm float64) float64 {
	switch d.Type {
	case DeckCoupled:
		return d.Mass(holeDiameterMm)
	case DeckDecoupled:
		if mass := d.EmbeddedPhysicalMass(); mass > 0 {
			return mass
		}
		return d.Mass(holeDiameterMm)
	default:
		return d.EmbeddedPhysicalMass()
	}
}

// clone returns a deep copy of the deck.
func (d Deck) clone() Deck {
	copy := d
	if d.Contains != nil {
		copy.Contains = make([]DecoupledContent, len(d.Contains))
		for i, content := range d.Contains {
			copy.Contains[i] = content
		}
	}
	return copy
}
