package application

import (
	"context"
	"errors"
	"fmt"
	"math"

	catalog "blastcharge/internal/catalog/domain"
	charging "blastcharge/internal/charging/domain"
	drillhole "blastcharge/internal/drillhole/domain"
	"blastcharge/internal/formula"
	"blastcharge/internal/observability/metrics"
)

const (
	// minFillLength is the floor (m) a fill deck never shrinks below.
	minFillLength = 0.1
	// fallback lengths when a resolution input is unusable.
	fallbackMassDeckLength   = 1.0
	fallbackSpacerDeckLength = 0.4
	// degenerateLength: holes at or below this are not charged.
	degenerateLength = 0.01
)

// TemplateEngine resolves a charge template into a concrete
// HoleCharging (full build) and drives in-place rescaling when hole
// geometry changes.
type TemplateEngine struct {
	catalog *catalog.Catalog
	eval    *formula.Evaluator
}

// NewTemplateEngine constructs an engine.
func NewTemplateEngine(productCatalog *catalog.Catalog, eval *formula.Evaluator) (*TemplateEngine, error) {
	if productCatalog == nil {
		return nil, errors.New("template engine: nil catalog")
	}
	if eval == nil {
		return nil, errors.New("template engine: nil evaluator")
	}
	return &TemplateEngine{catalog: productCatalog, eval: eval}, nil
}

// Apply builds a brand-new charge column for the hole, discarding any
// prior one. Resolution is three ordered passes: lengths, layout,
// primers. Entry order is the dependency order — a formula may only
// reference the resolved position of a strictly earlier entry.
func (e *TemplateEngine) Apply(ctx context.Context, hole *drillhole.BlastHole, template Template) (*charging.HoleCharging, error) {
	if e == nil {
		return nil, errors.New("template engine: nil")
	}
	if hole == nil {
		return nil, errors.New("template engine: nil hole")
	}
	if err := template.Validate(); err != nil {
		return nil, err
	}

	column := charging.NewHoleCharging(hole.EntityName, hole.HoleID, hole.HoleDiameterMm, hole.HoleLength)
	axisLength := math.Abs(hole.HoleLength)
	sign := 1.0
	if hole.HoleLength < 0 {
		sign = -1
	}

	air := charging.Snapshot(e.catalog.Resolve(ctx, "Air"))
	if axisLength <= degenerateLength {
		column.InitializeDefaultDeck(air)
		return column, nil
	}

	tier := e.resolveTier(hole, template, axisLength)
	if tier != nil && tier.ChargeRatio == 0 && tier.FixedMassKg == 0 {
		// Short hole not worth charging at all.
		column.InitializeDefaultDeck(air)
		return column, nil
	}

	lengths, fillIndex := e.resolveLengths(ctx, hole, template, sign)

	// Cap the charge for short holes by reallocating the fill deck.
	capped := false
	if fillIndex >= 0 && tier != nil && template.Decks[fillIndex].Type.IsCharge() {
		capacity := axisLength * tier.ChargeRatio
		if tier.FixedMassKg > 0 {
			fillProduct := e.catalog.Resolve(ctx, template.Decks[fillIndex].ProductRef)
			if perMetre := kgPerMetre(fillProduct.Density, hole.HoleDiameterMm); perMetre > 0 {
				capacity = tier.FixedMassKg / perMetre
			}
		}
		if capacity > 0 {
			var otherCharge float64
			for i, entry := range template.Decks {
				if i != fillIndex && entry.Type.IsCharge() {
					otherCharge += lengths[i]
				}
			}
			lengths[fillIndex] = math.Max(minFillLength, capacity-otherCharge)
			capped = true
		}
	}
	if fillIndex >= 0 && !capped {
		var totalFixed float64
		for i := range lengths {
			if i != fillIndex {
				totalFixed += lengths[i]
			}
		}
		lengths[fillIndex] = math.Max(minFillLength, axisLength-totalFixed)
	}

	// Pass 2: lay decks out with a running cursor from the collar,
	// truncating at the toe and skipping empty entries.
	cursor := 0.0
	for i, entry := range template.Decks {
		length := lengths[i]
		if length <= 0 || cursor >= axisLength {
			continue
		}
		if cursor+length > axisLength {
			length = axisLength - cursor
		}
		if length <= 0 {
			continue
		}
		product := charging.Snapshot(e.catalog.Resolve(ctx, entry.ProductRef))
		scaling := entry.Scaling
		if entry.Mode == ModeFormula {
			scaling = charging.ScaleVariable
		}
		if scaling == "" {
			scaling = charging.ScaleProportional
		}
		column.Decks = append(column.Decks, charging.Deck{
			DeckID:           charging.NewDeckID(),
			HoleID:           hole.HoleID,
			Type:             entry.Type,
			TopDepth:         cursor * sign,
			BaseDepth:        (cursor + length) * sign,
			Product:          product,
			Scaling:          scaling,
			TopDepthFormula:  entry.TopFormula,
			BaseDepthFormula: entry.BaseFormula,
			OverlapPattern:   entry.OverlapPattern,
		})
		cursor += length
	}
	if len(column.Decks) == 0 {
		column.InitializeDefaultDeck(air)
		return column, nil
	}
	column.SortDecks()

	// Pass 3: primers against the resolved column.
	primerCtx := column.BuildPrimerContext(hole)
	for _, entry := range template.Primers {
		depth := entry.Depth
		if entry.DepthFormula != "" {
			if value, ok := e.eval.Evaluate(formula.FlattenIndexRefs(entry.DepthFormula), primerCtx); ok {
				depth = value
			} else {
				metrics.IncFormulaFailure("primer")
				depth = hole.HoleLength * 0.9
			}
		}
		depth = clampPrimerDepth(depth, axisLength, sign)

		detonatorProduct := e.catalog.Resolve(ctx, entry.DetonatorRef)
		boosterProduct := e.catalog.Resolve(ctx, entry.BoosterRef)
		column.AddPrimer(charging.Primer{
			PrimerID:         charging.NewPrimerID(),
			HoleID:           hole.HoleID,
			LengthFromCollar: depth,
			DepthFormula:     entry.DepthFormula,
			Detonator: charging.Detonator{
				ProductRef:    entry.DetonatorRef,
				InitiatorType: detonatorProduct.InitiatorType,
				DeliveryVodMs: detonatorProduct.VodMs,
				DelayMs:       entry.DelayMs,
			},
			Booster: charging.Booster{
				ProductRef: entry.BoosterRef,
				MassGrams:  boosterProduct.MassGrams,
			},
		})
	}
	column.AssignPrimers()
	return column, nil
}

// Rescale drives the column's in-place dimension update and reports
// whether anything changed.
func (e *TemplateEngine) Rescale(column *charging.HoleCharging, hole *drillhole.BlastHole) bool {
	if e == nil || column == nil || hole == nil {
		return false
	}
	return column.UpdateDimensions(hole, e.eval)
}

// resolveLengths is pass 1: one length per entry by mode, fill
// deferred. Positions of entries before the fill are published into
// the running context so later formulas can look backward.
func (e *TemplateEngine) resolveLengths(ctx context.Context, hole *drillhole.BlastHole, template Template, sign float64) ([]float64, int) {
	vars := formula.Vars{
		"holeLength":     hole.HoleLength,
		"holeDiameter":   hole.HoleDiameterMm,
		"benchHeight":    hole.BenchHeight,
		"subdrillLength": hole.SubdrillLength,
	}
	lengths := make([]float64, len(template.Decks))
	fillIndex := template.FillIndex()
	cursor := 0.0
	publishPositions := true

	for i, entry := range template.Decks {
		if i == fillIndex {
			publishPositions = false
			continue
		}
		var length float64
		switch entry.Mode {
		case ModeFixed:
			length = entry.Length
		case ModeFormula:
			length = e.resolveFormulaLength(entry, vars)
		case ModeMass:
			product := e.catalog.Resolve(ctx, entry.ProductRef)
			if perMetre := kgPerMetre(product.Density, hole.HoleDiameterMm); perMetre > 0 {
				length = entry.MassKg / perMetre
			} else {
				length = fallbackMassDeckLength
			}
		case ModeProduct:
			product := e.catalog.Resolve(ctx, entry.ProductRef)
			if product.LengthMm > 0 {
				length = product.LengthMm / 1000
			} else {
				length = fallbackSpacerDeckLength
			}
		}
		if length < 0 {
			length = 0
		}
		lengths[i] = length
		if publishPositions {
			position := i + 1
			vars[fmt.Sprintf("deckTop_%d", position)] = cursor * sign
			vars[fmt.Sprintf("deckBase_%d", position)] = (cursor + length) * sign
			vars[fmt.Sprintf("deckLength_%d", position)] = length
			cursor += length
		}
	}
	return lengths, fillIndex
}

func (e *TemplateEngine) resolveFormulaLength(entry DeckEntry, vars formula.Vars) float64 {
	if entry.LengthFormula != "" {
		if value, ok := e.eval.Evaluate(formula.FlattenIndexRefs(entry.LengthFormula), vars); ok {
			return value
		}
		metrics.IncFormulaFailure("build")
		return entry.DefaultLength
	}
	if entry.TopFormula != "" && entry.BaseFormula != "" {
		top, okTop := e.eval.Evaluate(formula.FlattenIndexRefs(entry.TopFormula), vars)
		base, okBase := e.eval.Evaluate(formula.FlattenIndexRefs(entry.BaseFormula), vars)
		if okTop && okBase {
			return math.Abs(base - top)
		}
		metrics.IncFormulaFailure("build")
	}
	return entry.DefaultLength
}

// resolveTier finds the applicable short-hole tier, honoring per-hole
// overrides. Returns nil when short-hole logic does not apply.
func (e *TemplateEngine) resolveTier(hole *drillhole.BlastHole, template Template, axisLength float64) *ShortHoleTier {
	enabled := template.ShortHoleLogicEnabled
	if hole.ShortHoleOverride != nil {
		enabled = *hole.ShortHoleOverride
	}
	if !enabled {
		return nil
	}
	threshold := template.ShortHoleLengthThreshold
	if threshold <= 0 {
		threshold = DefaultShortHoleThreshold
	}
	if hole.ShortHoleThresholdOverride != nil {
		threshold = *hole.ShortHoleThresholdOverride
	}
	if axisLength >= threshold {
		return nil
	}
	for i := range template.Tiers {
		if template.Tiers[i].Matches(axisLength) {
			tier := template.Tiers[i]
			return &tier
		}
	}
	return nil
}

func kgPerMetre(density, diameterMm float64) float64 {
	if density <= 0 || diameterMm <= 0 {
		return 0
	}
	radius := diameterMm / 2000
	return density * 1000 * math.Pi * radius * radius
}

func clampPrimerDepth(depth, axisLength, sign float64) float64 {
	axis := depth * sign
	lo := charging.PrimerCollarClearance
	hi := axisLength - charging.PrimerCollarClearance
	if hi < lo {
		lo, hi = 0, axisLength
	}
	if axis < lo {
		axis = lo
	}
	if axis > hi {
		axis = hi
	}
	return axis * sign
}
