package application

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	charging "blastcharge/internal/charging/domain"
	"blastcharge/internal/observability/metrics"
)

// formulaFailureCount reads the failure counter for a stage off the
// default gatherer; an absent series reads as zero.
func formulaFailureCount(t *testing.T, stage string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "blastcharge_formula_failures_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "stage" && label.GetValue() == stage {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestApplyCountsFormulaFallbacks(t *testing.T) {
	metrics.Init(nil, nil)
	engine := newTestEngine(t)

	buildBefore := formulaFailureCount(t, "build")
	template := Template{
		Name: "bad-formula",
		Decks: []DeckEntry{
			{Idx: 1, Type: charging.DeckCoupled, Mode: ModeFormula, LengthFormula: "fx: noSuchVar * 2", DefaultLength: 5, ProductRef: "ANFO"},
		},
	}
	if _, err := engine.Apply(context.Background(), engineHole(12, 200), template); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := formulaFailureCount(t, "build"); got != buildBefore+1 {
		t.Fatalf("build fallbacks: expected %v, got %v", buildBefore+1, got)
	}

	primerBefore := formulaFailureCount(t, "primer")
	withPrimer := stemAndFill()
	withPrimer.Primers = []PrimerEntry{{Idx: 1, DepthFormula: "fx: noSuchVar", DetonatorRef: "MS Detonator", BoosterRef: "Booster 400g"}}
	if _, err := engine.Apply(context.Background(), engineHole(12, 200), withPrimer); err != nil {
		t.Fatalf("apply with primer: %v", err)
	}
	if got := formulaFailureCount(t, "primer"); got != primerBefore+1 {
		t.Fatalf("primer fallbacks: expected %v, got %v", primerBefore+1, got)
	}
}
