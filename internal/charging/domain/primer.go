package charging

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Detonator describes the initiating device of a primer.
type Detonator struct {
	ProductRef    string
	InitiatorType string
	DeliveryVodMs float64
	DelayMs       float64
}

// Booster describes the optional booster charge of a primer.
type Booster struct {
	ProductRef string
	MassGrams  float64
}

// Primer is one initiation point: a detonator plus optional booster
// placed at a depth from the collar, assigned to the deck containing it.
type Primer struct {
	PrimerID         string
	HoleID           string
	LengthFromCollar float64
	DepthFormula     string
	Detonator        Detonator
	Booster          Booster
	AssignedDeckID   string
}

// NewPrimerID generates a primer identity.
func NewPrimerID() string { return "primer-" + uuid.NewString() }

// PrimerCollarClearance is the minimum distance (m) a primer keeps
// from the collar end of the hole.
const PrimerCollarClearance = 0.1

// Validate checks placement against the hole and the deck list,
// assigning the containing deck. An unassigned primer is a warning,
// not an error: templates may place a primer in a deliberate gap.
func (p *Primer) Validate(decks []Deck, holeLength float64) ValidationResult {
	var result ValidationResult
	if p == nil {
		result.AddError("primer: nil")
		return result
	}
	depth := math.Abs(p.LengthFromCollar)
	limit := math.Abs(holeLength) - PrimerCollarClearance
	if depth < 0 || depth > limit {
		result.AddWarning(fmt.Sprintf("primer %s: depth %.3f outside [0, %.3f]", p.PrimerID, depth, limit))
	}

	p.AssignedDeckID = ""
	for _, deck := range decks {
		if deck.ContainsDepth(p.LengthFromCollar) {
			p.AssignedDeckID = deck.DeckID
			break
		}
	}
	if p.AssignedDeckID == "" {
		result.AddWarning(fmt.Sprintf("primer %s: depth %.3f not inside any deck", p.PrimerID, p.LengthFromCollar))
	}
	return result
}
