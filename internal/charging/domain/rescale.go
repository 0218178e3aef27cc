package charging

import (
	"fmt"
	"math"
	"time"

	drillhole "blastcharge/internal/drillhole/domain"
	"blastcharge/internal/formula"
	"blastcharge/internal/observability/metrics"
)

const (
	// LengthChangeTolerance is the hole-length delta (m) below which
	// geometry is considered unchanged.
	LengthChangeTolerance = 0.01
	// DiameterChangeTolerance is the diameter delta (mm) below which
	// geometry is considered unchanged.
	DiameterChangeTolerance = 0.1
)

// DimensionMismatch reports which cached dimensions diverge from the
// hole's current geometry.
type DimensionMismatch struct {
	LengthChanged   bool
	DiameterChanged bool
}

// Any reports whether any dimension changed.
func (m DimensionMismatch) Any() bool { return m.LengthChanged || m.DiameterChanged }

// CheckDimensionMismatch compares the hole's current geometry against
// the geometry this column was last resolved for.
func (c *HoleCharging) CheckDimensionMismatch(hole *drillhole.BlastHole) DimensionMismatch {
	if c == nil || hole == nil {
		return DimensionMismatch{}
	}
	return DimensionMismatch{
		LengthChanged:   math.Abs(hole.HoleLength-c.HoleLength) > LengthChangeTolerance,
		DiameterChanged: math.Abs(hole.HoleDiameterMm-c.HoleDiameterMm) > DiameterChangeTolerance,
	}
}

// UpdateDimensions rescales the column in place after a geometry edit
// and reports whether anything changed. Calling it again with the same
// geometry is a no-op.
//
// Decks are walked collar to toe; that order is the declared
// dependency order, so a deck formula may only reference the resolved
// position of a strictly earlier deck. The walk folds each resolved
// deck into a growing formula context under its 1-based array
// position (deckTop_N / deckBase_N / deckLength_N); primers are then
// re-resolved against a separate context carrying charge-deck
// positions plus the chargeBase/chargeTop/chargeLength/stemLength
// aggregates.
func (c *HoleCharging) UpdateDimensions(hole *drillhole.BlastHole, eval *formula.Evaluator) bool {
	if c == nil || hole == nil || eval == nil {
		return false
	}
	mismatch := c.CheckDimensionMismatch(hole)
	if !mismatch.Any() {
		return false
	}

	oldLength := c.HoleLength
	oldDiameter := c.HoleDiameterMm
	newLength := hole.HoleLength
	newDiameter := hole.HoleDiameterMm

	oldSign := 1.0
	if oldLength < 0 {
		oldSign = -1
	}
	newSign := 1.0
	if newLength < 0 {
		newSign = -1
	}
	newAxisLength := math.Abs(newLength)

	ratio := 1.0
	if mismatch.LengthChanged && oldLength != 0 {
		ratio = newLength / oldLength
	}

	ctx := formula.Vars{
		"holeLength":     newLength,
		"holeDiameter":   newDiameter,
		"benchHeight":    hole.BenchHeight,
		"subdrillLength": hole.SubdrillLength,
	}

	for i := range c.Decks {
		deck := &c.Decks[i]
		oldTopAxis := deck.TopDepth * oldSign
		oldDeckLength := deck.Length()

		switch deck.Scaling {
		case ScaleFixedLength:
			// Anchored: geometry changes never move it.
		case ScaleVariable:
			// On evaluator failure the previous depth stands.
			if deck.TopDepthFormula != "" {
				if value, ok := eval.Evaluate(formula.FlattenIndexRefs(deck.TopDepthFormula), ctx); ok {
					deck.TopDepth = value
				} else {
					metrics.IncFormulaFailure("rescale")
				}
			}
			if deck.BaseDepthFormula != "" {
				if value, ok := eval.Evaluate(formula.FlattenIndexRefs(deck.BaseDepthFormula), ctx); ok {
					deck.BaseDepth = value
				} else {
					metrics.IncFormulaFailure("rescale")
				}
			}
		case ScaleFixedMass:
			// Preserve the mass held at the old diameter; the length
			// absorbs the diameter change.
			massKg := deck.Mass(oldDiameter)
			radius := newDiameter / 2000
			kgPerMetre := deck.Product.Density * 1000 * math.Pi * radius * radius
			if kgPerMetre > 0 {
				deck.BaseDepth = deck.TopDepth + newSign*(massKg/kgPerMetre)
			}
		default: // Proportional
			deck.TopDepth *= ratio
			deck.BaseDepth *= ratio
		}

		topAxis := clamp(deck.TopDepth*newSign, 0, newAxisLength)
		baseAxis := clamp(deck.BaseDepth*newSign, 0, newAxisLength)
		if baseAxis < topAxis {
			baseAxis = topAxis
		}
		deck.TopDepth = topAxis * newSign
		deck.BaseDepth = baseAxis * newSign

		// Embedded content keeps its offset relative to the deck top,
		// scaled by the deck's own length change.
		newDeckLength := deck.Length()
		scale := 1.0
		if oldDeckLength > intervalEpsilon {
			scale = newDeckLength / oldDeckLength
		}
		for j := range deck.Contains {
			content := &deck.Contains[j]
			offset := content.LengthFromCollar*oldSign - oldTopAxis
			content.LengthFromCollar = (topAxis + offset*scale) * newSign
		}

		position := i + 1
		ctx[fmt.Sprintf("deckTop_%d", position)] = deck.TopDepth
		ctx[fmt.Sprintf("deckBase_%d", position)] = deck.BaseDepth
		ctx[fmt.Sprintf("deckLength_%d", position)] = newDeckLength
	}

	primerCtx := c.BuildPrimerContext(hole)
	primerLimit := math.Max(0, newAxisLength-PrimerCollarClearance)
	for i := range c.Primers {
		primer := &c.Primers[i]
		if primer.DepthFormula != "" {
			if value, ok := eval.Evaluate(formula.FlattenIndexRefs(primer.DepthFormula), primerCtx); ok {
				primer.LengthFromCollar = value
			} else {
				// The previous depth stands.
				metrics.IncFormulaFailure("rescale")
			}
		} else {
			primer.LengthFromCollar *= ratio
		}
		primer.LengthFromCollar = clamp(primer.LengthFromCollar*newSign, 0, primerLimit) * newSign
	}

	c.HoleLength = newLength
	c.HoleDiameterMm = newDiameter
	c.SortDecks()
	c.AssignPrimers()
	c.UpdatedAt = time.Now().UTC()
	return true
}

// BuildPrimerContext indexes resolved COUPLED/DECOUPLED decks by their
// 1-based position in the deck array and adds the charge aggregates.
// The positions match the deck-walk context so a formula means the
// same deck on both paths.
func (c *HoleCharging) BuildPrimerContext(hole *drillhole.BlastHole) formula.Vars {
	ctx := formula.Vars{
		"holeLength":   c.HoleLength,
		"holeDiameter": c.HoleDiameterMm,
	}
	if hole != nil {
		ctx["holeLength"] = hole.HoleLength
		ctx["holeDiameter"] = hole.HoleDiameterMm
		ctx["benchHeight"] = hole.BenchHeight
		ctx["subdrillLength"] = hole.SubdrillLength
	}

	sign := c.sign()
	if hole != nil && hole.HoleLength < 0 {
		sign = -1
	} else if hole != nil {
		sign = 1
	}

	haveCharge := false
	var chargeTopAxis, chargeBaseAxis float64
	for i := range c.Decks {
		deck := c.Decks[i]
		if !deck.Type.IsCharge() {
			continue
		}
		position := i + 1
		ctx[fmt.Sprintf("deckTop_%d", position)] = deck.TopDepth
		ctx[fmt.Sprintf("deckBase_%d", position)] = deck.BaseDepth
		ctx[fmt.Sprintf("deckLength_%d", position)] = deck.Length()

		lo := deck.TopDepth * sign
		hi := deck.BaseDepth * sign
		if hi < lo {
			lo, hi = hi, lo
		}
		if !haveCharge {
			chargeTopAxis, chargeBaseAxis = lo, hi
			haveCharge = true
			continue
		}
		chargeTopAxis = math.Min(chargeTopAxis, lo)
		chargeBaseAxis = math.Max(chargeBaseAxis, hi)
	}
	if haveCharge {
		ctx["chargeTop"] = chargeTopAxis * sign
		ctx["chargeBase"] = chargeBaseAxis * sign
		ctx["chargeLength"] = chargeBaseAxis - chargeTopAxis
		ctx["stemLength"] = chargeTopAxis
	}
	return ctx
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
