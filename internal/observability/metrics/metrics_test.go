package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncFormulaFailure(t *testing.T) {
	// Before Init the counters are nil and increments are dropped.
	IncFormulaFailure("build")

	Init(nil, nil)

	before := testutil.ToFloat64(formulaFailures.WithLabelValues("build"))
	IncFormulaFailure("build")
	if got := testutil.ToFloat64(formulaFailures.WithLabelValues("build")); got != before+1 {
		t.Fatalf("build stage: expected %v, got %v", before+1, got)
	}

	// An empty stage is bucketed under "unknown".
	unknownBefore := testutil.ToFloat64(formulaFailures.WithLabelValues("unknown"))
	IncFormulaFailure("")
	if got := testutil.ToFloat64(formulaFailures.WithLabelValues("unknown")); got != unknownBefore+1 {
		t.Fatalf("unknown stage: expected %v, got %v", unknownBefore+1, got)
	}
}
