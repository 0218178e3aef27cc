package application

import (
	"errors"
	"fmt"

	charging "blastcharge/internal/charging/domain"
)

// LengthMode selects how a template deck entry's length resolves.
type LengthMode string

const (
	ModeFixed   LengthMode = "fixed"
	ModeFill    LengthMode = "fill"
	ModeFormula LengthMode = "formula"
	ModeMass    LengthMode = "mass"
	ModeProduct LengthMode = "product"
)

// DeckEntry is one line of a parsed charge template. Idx is the
// author's 1-based label (gaps allowed); it is never used as a formula
// context key — resolved array positions are.
type DeckEntry struct {
	Idx  int               `yaml:"idx"`
	Type charging.DeckType `yaml:"type"`
	Mode LengthMode        `yaml:"mode"`

	Length        float64 `yaml:"length"`         // fixed mode, metres
	LengthFormula string  `yaml:"length_formula"` // formula mode
	TopFormula    string  `yaml:"top_formula"`    // formula mode
	BaseFormula   string  `yaml:"base_formula"`   // formula mode
	DefaultLength float64 `yaml:"default_length"` // fallback when a formula fails
	MassKg        float64 `yaml:"mass_kg"`        // mass mode

	ProductRef     string               `yaml:"product"`
	Scaling        charging.ScalingMode `yaml:"scaling"`
	OverlapPattern string               `yaml:"overlap_pattern"`
}

// PrimerEntry is one primer line of a template.
type PrimerEntry struct {
	Idx          int     `yaml:"idx"`
	Depth        float64 `yaml:"depth"`
	DepthFormula string  `yaml:"depth_formula"`
	DetonatorRef string  `yaml:"detonator"`
	BoosterRef   string  `yaml:"booster"`
	DelayMs      float64 `yaml:"delay_ms"`
}

// ShortHoleTier reduces or replaces the charge below a hole-length
// threshold. A tier matches when MinLength <= |holeLength| < MaxLength
// (MaxLength <= 0 means unbounded). ChargeRatio 0 with no fixed mass
// means no charge at all.
type ShortHoleTier struct {
	MinLength   float64 `yaml:"min_length"`
	MaxLength   float64 `yaml:"max_length"`
	ChargeRatio float64 `yaml:"charge_ratio"`
	FixedMassKg float64 `yaml:"fixed_mass_kg"`
}

// Matches reports whether the tier covers the given unsigned length.
func (t ShortHoleTier) Matches(axisLength float64) bool {
	if axisLength < t.MinLength {
		return false
	}
	return t.MaxLength <= 0 || axisLength < t.MaxLength
}

// DefaultShortHoleThreshold is the hole length (m) below which
// short-hole tiers apply unless the template or hole overrides it.
const DefaultShortHoleThreshold = 4.0

// Template is the parsed, ordered form of a charge configuration: the
// engine's actual input. Entry order is the declared dependency order.
type Template struct {
	Name                     string          `yaml:"name"`
	Decks                    []DeckEntry     `yaml:"decks"`
	Primers                  []PrimerEntry   `yaml:"primers"`
	ShortHoleLogicEnabled    bool            `yaml:"short_hole_logic"`
	ShortHoleLengthThreshold float64         `yaml:"short_hole_threshold"`
	Tiers                    []ShortHoleTier `yaml:"tiers"`
}

// Validate checks template invariants: at least one deck entry, unique
// idx labels, at most one fill entry.
func (t Template) Validate() error {
	if len(t.Decks) == 0 {
		return errors.New("template: no deck entries")
	}
	seen := make(map[int]struct{}, len(t.Decks))
	fillCount := 0
	for _, entry := range t.Decks {
		if entry.Idx != 0 {
			if _, dup := seen[entry.Idx]; dup {
				return fmt.Errorf("template: duplicate deck idx %d", entry.Idx)
			}
			seen[entry.Idx] = struct{}{}
		}
		switch entry.Mode {
		case ModeFixed, ModeFill, ModeFormula, ModeMass, ModeProduct:
		default:
			return fmt.Errorf("template: unknown length mode %q", entry.Mode)
		}
		if entry.Mode == ModeFill {
			fillCount++
		}
	}
	if fillCount > 1 {
		return errors.New("template: more than one fill entry")
	}
	return nil
}

// FillIndex returns the position of the fill entry, -1 when absent.
func (t Template) FillIndex() int {
	for i, entry := range t.Decks {
		if entry.Mode == ModeFill {
			return i
		}
	}
	return -1
}
