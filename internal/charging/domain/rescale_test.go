package charging

import (
	"testing"

	drillhole "blastcharge/internal/drillhole/domain"
	"blastcharge/internal/formula"
)

func testHole(length, diameter float64) *drillhole.BlastHole {
	return &drillhole.BlastHole{
		HoleID:         "H001",
		EntityName:     "bench-1",
		HoleDiameterMm: diameter,
		HoleLength:     length,
	}
}

func TestUpdateDimensionsNoChangeIsNoop(t *testing.T) {
	eval := formula.NewEvaluator(nil)
	column := newTestColumn(10, 200)
	column.FillInterval(0, 4, DeckInert, stemming)
	column.FillInterval(4, 10, DeckCoupled, anfo)

	if column.UpdateDimensions(testHole(10, 200), eval) {
		t.Fatalf("unchanged geometry should be a no-op")
	}
	// Below tolerance counts as unchanged too.
	if column.UpdateDimensions(testHole(10.005, 200.05), eval) {
		t.Fatalf("sub-tolerance drift should be a no-op")
	}
}

func TestUpdateDimensionsProportional(t *testing.T) {
	eval := formula.NewEvaluator(nil)
	column := newTestColumn(10, 200)
	column.FillInterval(0, 4, DeckInert, stemming)
	column.FillInterval(4, 10, DeckCoupled, anfo)

	if !column.UpdateDimensions(testHole(12, 200), eval) {
		t.Fatalf("length change should rescale")
	}
	if !approx(column.Decks[0].BaseDepth, 4.8, 1e-9) {
		t.Fatalf("stemming base: expected 4.8, got %v", column.Decks[0].BaseDepth)
	}
	if !approx(column.Decks[1].TopDepth, 4.8, 1e-9) || !approx(column.Decks[1].BaseDepth, 12, 1e-9) {
		t.Fatalf("charge span: expected [4.8,12], got [%v,%v]", column.Decks[1].TopDepth, column.Decks[1].BaseDepth)
	}
	if column.HoleLength != 12 {
		t.Fatalf("cached length not updated: %v", column.HoleLength)
	}

	// Rescaling twice against the same hole changes nothing further.
	if column.UpdateDimensions(testHole(12, 200), eval) {
		t.Fatalf("second rescale should be a no-op")
	}
}

func TestUpdateDimensionsFixedLengthAnchored(t *testing.T) {
	eval := formula.NewEvaluator(nil)
	column := newTestColumn(10, 200)
	column.FillInterval(0, 4, DeckInert, stemming)
	column.Decks[0].Scaling = ScaleFixedLength
	column.FillInterval(4, 10, DeckCoupled, anfo)

	if !column.UpdateDimensions(testHole(14, 200), eval) {
		t.Fatalf("expected rescale")
	}
	if !approx(column.Decks[0].TopDepth, 0, 1e-9) || !approx(column.Decks[0].BaseDepth, 4, 1e-9) {
		t.Fatalf("fixed-length deck moved: [%v,%v]", column.Decks[0].TopDepth, column.Decks[0].BaseDepth)
	}
}

func TestUpdateDimensionsFixedMassAbsorbsDiameterChange(t *testing.T) {
	eval := formula.NewEvaluator(nil)
	column := newTestColumn(10, 200)
	deck := column.FillInterval(4, 8, DeckCoupled, anfo)
	column.DeckByID(deck.DeckID).Scaling = ScaleFixedMass

	oldMass := column.DeckByID(deck.DeckID).Mass(200)
	if !column.UpdateDimensions(testHole(10, 250), eval) {
		t.Fatalf("diameter change should rescale")
	}
	rescaled := column.Decks[0]
	// Same product mass at the new diameter: length shrinks by (200/250)^2.
	if !approx(rescaled.Length(), 4*0.64, 1e-9) {
		t.Fatalf("expected length %.4f, got %.4f", 4*0.64, rescaled.Length())
	}
	if !approx(rescaled.Mass(250), oldMass, 1e-6) {
		t.Fatalf("mass drifted: was %.4f, now %.4f", oldMass, rescaled.Mass(250))
	}
	if !approx(rescaled.TopDepth, 4, 1e-9) {
		t.Fatalf("fixed-mass deck should keep its top, got %v", rescaled.TopDepth)
	}
}

func TestUpdateDimensionsVariableFormulas(t *testing.T) {
	eval := formula.NewEvaluator(nil)
	column := newTestColumn(10, 200)
	deck := column.FillInterval(6, 10, DeckCoupled, anfo)
	target := column.DeckByID(deck.DeckID)
	target.Scaling = ScaleVariable
	target.TopDepthFormula = "fx: holeLength - 4"
	target.BaseDepthFormula = "fx: holeLength"

	if !column.UpdateDimensions(testHole(14, 200), eval) {
		t.Fatalf("expected rescale")
	}
	got := column.Decks[len(column.Decks)-1]
	if !approx(got.TopDepth, 10, 1e-9) || !approx(got.BaseDepth, 14, 1e-9) {
		t.Fatalf("variable deck: expected [10,14], got [%v,%v]", got.TopDepth, got.BaseDepth)
	}
}

func TestUpdateDimensionsVariableFailureKeepsPrevious(t *testing.T) {
	eval := formula.NewEvaluator(nil)
	column := newTestColumn(10, 200)
	deck := column.FillInterval(4, 8, DeckCoupled, anfo)
	target := column.DeckByID(deck.DeckID)
	target.Scaling = ScaleVariable
	target.TopDepthFormula = "fx: unknownVar + 1"
	target.BaseDepthFormula = "fx: holeLength - 2"

	if !column.UpdateDimensions(testHole(12, 200), eval) {
		t.Fatalf("expected rescale")
	}
	got := column.Decks[0]
	if !approx(got.TopDepth, 4, 1e-9) {
		t.Fatalf("failed formula should keep the previous top, got %v", got.TopDepth)
	}
	if !approx(got.BaseDepth, 10, 1e-9) {
		t.Fatalf("base formula: expected 10, got %v", got.BaseDepth)
	}
}

func TestUpdateDimensionsClampsToHole(t *testing.T) {
	eval := formula.NewEvaluator(nil)
	column := newTestColumn(10, 200)
	deck := column.FillInterval(6, 10, DeckCoupled, anfo)
	column.DeckByID(deck.DeckID).Scaling = ScaleFixedLength

	// Shrinking the hole to 8 m truncates the anchored deck at the toe.
	if !column.UpdateDimensions(testHole(8, 200), eval) {
		t.Fatalf("expected rescale")
	}
	got := column.Decks[0]
	if !approx(got.TopDepth, 6, 1e-9) || !approx(got.BaseDepth, 8, 1e-9) {
		t.Fatalf("expected clamp to [6,8], got [%v,%v]", got.TopDepth, got.BaseDepth)
	}
}

func TestUpdateDimensionsContentKeepsRelativeOffset(t *testing.T) {
	eval := formula.NewEvaluator(nil)
	column := newTestColumn(10, 200)
	deck := column.FillInterval(4, 8, DeckDecoupled, anfo)
	if err := column.EmbedContent(deck.DeckID, DecoupledContent{Type: ContentPackage, LengthFromCollar: 5, Length: 0.5}); err != nil {
		t.Fatalf("embed: %v", err)
	}

	if !column.UpdateDimensions(testHole(12, 200), eval) {
		t.Fatalf("expected rescale")
	}
	got := column.Decks[0]
	if !approx(got.TopDepth, 4.8, 1e-9) || !approx(got.BaseDepth, 9.6, 1e-9) {
		t.Fatalf("deck span: expected [4.8,9.6], got [%v,%v]", got.TopDepth, got.BaseDepth)
	}
	// Offset 1 m from deck top scales with the deck: 1 * 1.2 = 1.2.
	if !approx(got.Contains[0].LengthFromCollar, 6.0, 1e-9) {
		t.Fatalf("content depth: expected 6.0, got %v", got.Contains[0].LengthFromCollar)
	}
}

func TestUpdateDimensionsPrimers(t *testing.T) {
	eval := formula.NewEvaluator(nil)
	column := newTestColumn(10, 200)
	column.FillInterval(0, 4, DeckInert, stemming)
	column.FillInterval(4, 10, DeckCoupled, anfo)
	column.AddPrimer(Primer{LengthFromCollar: 9})
	column.AddPrimer(Primer{LengthFromCollar: 5, DepthFormula: "fx: chargeBase - 0.5"})

	if !column.UpdateDimensions(testHole(12, 200), eval) {
		t.Fatalf("expected rescale")
	}
	if !approx(column.Primers[0].LengthFromCollar, 10.8, 1e-9) {
		t.Fatalf("proportional primer: expected 10.8, got %v", column.Primers[0].LengthFromCollar)
	}
	if !approx(column.Primers[1].LengthFromCollar, 11.5, 1e-9) {
		t.Fatalf("formula primer: expected 11.5, got %v", column.Primers[1].LengthFromCollar)
	}
}

func TestUpdateDimensionsUphole(t *testing.T) {
	eval := formula.NewEvaluator(nil)
	column := newTestColumn(-10, 200)
	column.FillInterval(0, -4, DeckInert, stemming)
	column.FillInterval(-4, -10, DeckCoupled, anfo)

	if !column.UpdateDimensions(testHole(-12, 200), eval) {
		t.Fatalf("expected rescale")
	}
	if !approx(column.Decks[0].BaseDepth, -4.8, 1e-9) {
		t.Fatalf("uphole stemming base: expected -4.8, got %v", column.Decks[0].BaseDepth)
	}
	if !approx(column.Decks[1].BaseDepth, -12, 1e-9) {
		t.Fatalf("uphole charge base: expected -12, got %v", column.Decks[1].BaseDepth)
	}
}

func TestBuildPrimerContextAggregates(t *testing.T) {
	column := newTestColumn(10, 200)
	column.FillInterval(0, 4, DeckInert, stemming)
	column.FillInterval(4, 7, DeckCoupled, anfo)
	column.FillInterval(7, 8, DeckInert, stemming)
	column.FillInterval(8, 10, DeckCoupled, anfo)

	ctx := column.BuildPrimerContext(testHole(10, 200))
	if got := ctx["chargeTop"]; !approx(got, 4, 1e-9) {
		t.Fatalf("chargeTop: expected 4, got %v", got)
	}
	if got := ctx["chargeBase"]; !approx(got, 10, 1e-9) {
		t.Fatalf("chargeBase: expected 10, got %v", got)
	}
	if got := ctx["chargeLength"]; !approx(got, 6, 1e-9) {
		t.Fatalf("chargeLength: expected 6, got %v", got)
	}
	if got := ctx["stemLength"]; !approx(got, 4, 1e-9) {
		t.Fatalf("stemLength: expected 4, got %v", got)
	}
	// Charge decks are keyed by their array position, inerts are not.
	if _, ok := ctx["deckTop_2"]; !ok {
		t.Fatalf("expected deckTop_2 for the first charge deck")
	}
	if _, ok := ctx["deckTop_1"]; ok {
		t.Fatalf("inert decks should not be keyed")
	}
}
