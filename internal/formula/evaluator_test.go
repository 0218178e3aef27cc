package formula

import (
	"math"
	"testing"
)

type stubCatalog map[string]float64

func (c stubCatalog) ProductDensity(name string) (float64, bool) {
	density, ok := c[name]
	return density, ok
}

func evalOK(t *testing.T, e *Evaluator, expr string, vars Vars) float64 {
	t.Helper()
	value, ok := e.Evaluate(expr, vars)
	if !ok {
		t.Fatalf("expected %q to evaluate, got failure", expr)
	}
	return value
}

func evalFail(t *testing.T, e *Evaluator, expr string, vars Vars) {
	t.Helper()
	if value, ok := e.Evaluate(expr, vars); ok {
		t.Fatalf("expected %q to fail, got %v", expr, value)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluateLiteral(t *testing.T) {
	e := NewEvaluator(nil)
	if got := evalOK(t, e, "3.5", nil); got != 3.5 {
		t.Fatalf("literal: got %v", got)
	}
	evalFail(t, e, "stemming", nil)
	evalFail(t, e, "", nil)
}

func TestEvaluateArithmetic(t *testing.T) {
	e := NewEvaluator(nil)
	vars := Vars{"holeLength": 10, "holeDiameter": 115}
	cases := map[string]float64{
		"fx: holeLength * 0.9":          9,
		"fx: holeLength - 3":            7,
		"fx: (holeLength + 2) / 4":      3,
		"fx: -holeLength + 12":          2,
		"fx: 2 * pi":                    2 * math.Pi,
		"fx: min(holeLength, 4)":        4,
		"fx: max(holeLength, 4, 12)":    12,
		"fx: abs(3 - holeLength)":       7,
		"fx: sqrt(holeLength * 10 - 36)": 8,
		"fx: round(holeLength / 3)":     3,
	}
	for expr, want := range cases {
		if got := evalOK(t, e, expr, vars); !almostEqual(got, want) {
			t.Fatalf("%q: got %v want %v", expr, got, want)
		}
	}
}

func TestEvaluateComparisonAndLogic(t *testing.T) {
	e := NewEvaluator(nil)
	vars := Vars{"a": 3, "b": 5}
	cases := map[string]float64{
		"fx: a < b":            1,
		"fx: a >= b":           0,
		"fx: a == 3 && b == 5": 1,
		"fx: a == 4 || b == 5": 1,
		"fx: !(a < b)":         0,
	}
	for expr, want := range cases {
		if got := evalOK(t, e, expr, vars); got != want {
			t.Fatalf("%q: got %v want %v", expr, got, want)
		}
	}
}

func TestEvaluateTernaryChaining(t *testing.T) {
	e := NewEvaluator(nil)
	// Tiered logic: short holes get a reduced charge.
	expr := "fx: holeLength < 4 ? 0 : holeLength < 8 ? holeLength * 0.5 : holeLength * 0.7"
	if got := evalOK(t, e, expr, Vars{"holeLength": 3}); got != 0 {
		t.Fatalf("tier 1: got %v", got)
	}
	if got := evalOK(t, e, expr, Vars{"holeLength": 6}); got != 3 {
		t.Fatalf("tier 2: got %v", got)
	}
	if got := evalOK(t, e, expr, Vars{"holeLength": 10}); !almostEqual(got, 7) {
		t.Fatalf("tier 3: got %v", got)
	}
}

func TestEvaluateErrorsReturnFalse(t *testing.T) {
	e := NewEvaluator(nil)
	vars := Vars{"a": 1}
	for _, expr := range []string{
		"fx: a / 0",
		"fx: missing + 1",
		"fx: a +",
		"fx: foo(1)",
		"fx: (a",
		"fx: 'text'",
	} {
		evalFail(t, e, expr, vars)
	}
}

func TestMassLength(t *testing.T) {
	e := NewEvaluator(stubCatalog{"ANFO": 0.85})
	vars := Vars{"holeDiameter": 115}

	want := 50 / (0.85 * 1000 * math.Pi * 0.0575 * 0.0575)
	if got := evalOK(t, e, "fx: massLength(50, 0.85)", vars); !almostEqual(got, want) {
		t.Fatalf("literal density: got %v want %v", got, want)
	}
	if got := evalOK(t, e, "fx: massLength(50, 'ANFO')", vars); !almostEqual(got, want) {
		t.Fatalf("string product: got %v want %v", got, want)
	}
	if got := evalOK(t, e, "fx: massLength(50, ANFO)", vars); !almostEqual(got, want) {
		t.Fatalf("bare product: got %v want %v", got, want)
	}

	evalFail(t, e, "fx: massLength(50, 'Unknown')", vars)
	evalFail(t, e, "fx: massLength(50, 0)", vars)
	evalFail(t, e, "fx: massLength(50, 0.85)", Vars{})
}

func TestMassLengthDecreasesWithDiameter(t *testing.T) {
	e := NewEvaluator(nil)
	prev := math.Inf(1)
	for _, diameter := range []float64{76, 89, 102, 115, 165, 251} {
		got := evalOK(t, e, "fx: massLength(50, 0.85)", Vars{"holeDiameter": diameter})
		if got >= prev {
			t.Fatalf("massLength not decreasing at diameter %v: %v >= %v", diameter, got, prev)
		}
		prev = got
	}
}

func TestFlattenIndexRefs(t *testing.T) {
	got := FlattenIndexRefs("deckBase[1] + deckLength[ 2 ] - holeLength")
	want := "deckBase_1 + deckLength_2 - holeLength"
	if got != want {
		t.Fatalf("flatten: got %q want %q", got, want)
	}
}

func TestIsFormula(t *testing.T) {
	if !IsFormula("  fx: 1 + 1") {
		t.Fatal("expected fx: prefix to be recognized")
	}
	if IsFormula("3.5") {
		t.Fatal("literal flagged as formula")
	}
}

func TestASTCacheReuse(t *testing.T) {
	e := NewEvaluator(nil)
	expr := "fx: a * 2"
	if got := evalOK(t, e, expr, Vars{"a": 2}); got != 4 {
		t.Fatalf("first eval: got %v", got)
	}
	e.mu.RLock()
	_, cached := e.cache["a * 2"]
	e.mu.RUnlock()
	if !cached {
		t.Fatal("expected compiled AST in cache")
	}
	// Same AST, different context.
	if got := evalOK(t, e, expr, Vars{"a": 5}); got != 10 {
		t.Fatalf("second eval: got %v", got)
	}
}
