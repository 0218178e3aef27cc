// Package formula implements the small fx: expression language used by
// charge templates. Expressions are parsed once into an AST, cached per
// evaluator, and evaluated against a flat numeric variable context. The
// evaluator never panics and never mutates its inputs: any parse or
// runtime failure (unknown identifier, division by zero, non-finite
// result) yields ok=false and the caller applies its own fallback.
package formula

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Marker flags a template value as a formula instead of a literal.
const Marker = "fx:"

// Vars is the flat variable context formulas evaluate against.
type Vars map[string]float64

// DensityResolver looks up a product density (g/cc) by exact name, used
// by massLength when its second argument is a product reference.
type DensityResolver interface {
	ProductDensity(name string) (float64, bool)
}

var errStringValue = errors.New("formula: string outside massLength")

type evalEnv struct {
	vars      Vars
	densities DensityResolver
}

// Evaluator parses and evaluates fx: expressions with an AST cache so a
// template entry's formula is tokenized once, not on every rescale.
type Evaluator struct {
	mu        sync.RWMutex
	cache     map[string]compiled
	densities DensityResolver
}

type compiled struct {
	root node
	err  error
}

// NewEvaluator constructs an evaluator. The density resolver may be nil;
// massLength with a product-name argument then fails (ok=false).
func NewEvaluator(densities DensityResolver) *Evaluator {
	return &Evaluator{cache: make(map[string]compiled), densities: densities}
}

// IsFormula reports whether the value carries the fx: marker.
func IsFormula(expr string) bool {
	return strings.HasPrefix(strings.TrimSpace(expr), Marker)
}

var indexRefPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\[\s*(\d+)\s*\]`)

// FlattenIndexRefs rewrites indexed references like deckBase[2] into the
// flat context key deckBase_2. The evaluator itself has no notion of
// arrays; callers flatten before evaluating.
func FlattenIndexRefs(expr string) string {
	return indexRefPattern.ReplaceAllString(expr, "${1}_${2}")
}

// Evaluate resolves expr against vars. Values without the fx: marker are
// parsed as numeric literals. ok is false on any parse or runtime error.
func (e *Evaluator) Evaluate(expr string, vars Vars) (float64, bool) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return 0, false
	}
	if !strings.HasPrefix(trimmed, Marker) {
		value, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return value, true
	}
	body := strings.TrimSpace(strings.TrimPrefix(trimmed, Marker))
	prog := e.compile(body)
	if prog.err != nil {
		return 0, false
	}
	value, err := prog.root.eval(evalEnv{vars: vars, densities: e.densities})
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

func (e *Evaluator) compile(body string) compiled {
	e.mu.RLock()
	prog, ok := e.cache[body]
	e.mu.RUnlock()
	if ok {
		return prog
	}
	root, err := parse(body)
	prog = compiled{root: root, err: err}
	e.mu.Lock()
	e.cache[body] = prog
	e.mu.Unlock()
	return prog
}

func (n *numberNode) eval(evalEnv) (float64, error) { return n.value, nil }

func (n *identNode) eval(env evalEnv) (float64, error) {
	value, ok := env.vars[n.name]
	if !ok {
		return 0, fmt.Errorf("formula: unknown identifier %q", n.name)
	}
	return value, nil
}

func (n *stringNode) eval(evalEnv) (float64, error) { return 0, errStringValue }

func (n *unaryNode) eval(env evalEnv) (float64, error) {
	value, err := n.operand.eval(env)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "-":
		return -value, nil
	case "!":
		return boolToFloat(value == 0), nil
	}
	return 0, fmt.Errorf("formula: bad unary operator %q", n.op)
}

func (n *binaryNode) eval(env evalEnv) (float64, error) {
	// Logical operators short-circuit.
	if n.op == "&&" || n.op == "||" {
		left, err := n.left.eval(env)
		if err != nil {
			return 0, err
		}
		if n.op == "&&" && left == 0 {
			return 0, nil
		}
		if n.op == "||" && left != 0 {
			return 1, nil
		}
		right, err := n.right.eval(env)
		if err != nil {
			return 0, err
		}
		return boolToFloat(right != 0), nil
	}

	left, err := n.left.eval(env)
	if err != nil {
		return 0, err
	}
	right, err := n.right.eval(env)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return left + right, nil
	case "-":
		return left - right, nil
	case "*":
		return left * right, nil
	case "/":
		if right == 0 {
			return 0, errors.New("formula: division by zero")
		}
		return left / right, nil
	case "<":
		return boolToFloat(left < right), nil
	case ">":
		return boolToFloat(left > right), nil
	case "<=":
		return boolToFloat(left <= right), nil
	case ">=":
		return boolToFloat(left >= right), nil
	case "==":
		return boolToFloat(left == right), nil
	case "!=":
		return boolToFloat(left != right), nil
	}
	return 0, fmt.Errorf("formula: bad operator %q", n.op)
}

func (n *ternaryNode) eval(env evalEnv) (float64, error) {
	cond, err := n.cond.eval(env)
	if err != nil {
		return 0, err
	}
	if cond != 0 {
		return n.whenTrue.eval(env)
	}
	return n.whenFalse.eval(env)
}

func (n *callNode) eval(env evalEnv) (float64, error) {
	if n.name == "massLength" {
		return evalMassLength(n.args, env)
	}
	args := make([]float64, len(n.args))
	for i, arg := range n.args {
		value, err := arg.eval(env)
		if err != nil {
			return 0, err
		}
		args[i] = value
	}
	switch n.name {
	case "min":
		if len(args) == 0 {
			return 0, errors.New("formula: min needs arguments")
		}
		result := args[0]
		for _, v := range args[1:] {
			result = math.Min(result, v)
		}
		return result, nil
	case "max":
		if len(args) == 0 {
			return 0, errors.New("formula: max needs arguments")
		}
		result := args[0]
		for _, v := range args[1:] {
			result = math.Max(result, v)
		}
		return result, nil
	case "abs":
		if len(args) != 1 {
			return 0, errors.New("formula: abs takes one argument")
		}
		return math.Abs(args[0]), nil
	case "sqrt":
		if len(args) != 1 {
			return 0, errors.New("formula: sqrt takes one argument")
		}
		if args[0] < 0 {
			return 0, errors.New("formula: sqrt of negative")
		}
		return math.Sqrt(args[0]), nil
	case "round":
		if len(args) != 1 {
			return 0, errors.New("formula: round takes one argument")
		}
		return math.Round(args[0]), nil
	}
	return 0, fmt.Errorf("formula: unknown function %q", n.name)
}

// evalMassLength computes the column length (m) a given explosive mass
// occupies in the hole: kg / (density·1000·pi·(holeDiameter/2000)^2).
// The density argument is a literal, a context variable, or a product
// name resolved through the catalog.
func evalMassLength(args []node, env evalEnv) (float64, error) {
	if len(args) != 2 {
		return 0, errors.New("formula: massLength takes two arguments")
	}
	kg, err := args[0].eval(env)
	if err != nil {
		return 0, err
	}
	density, err := resolveDensityArg(args[1], env)
	if err != nil {
		return 0, err
	}
	diameter, ok := env.vars["holeDiameter"]
	if !ok {
		return 0, errors.New("formula: massLength requires holeDiameter")
	}
	if density <= 0 || diameter <= 0 {
		return 0, errors.New("formula: massLength non-positive density or diameter")
	}
	radius := diameter / 2000
	return kg / (density * 1000 * math.Pi * radius * radius), nil
}

func resolveDensityArg(arg node, env evalEnv) (float64, error) {
	switch typed := arg.(type) {
	case *stringNode:
		return lookupDensity(typed.value, env)
	case *identNode:
		if value, ok := env.vars[typed.name]; ok {
			return value, nil
		}
		// Bare identifier not in context: treat as a product name.
		return lookupDensity(typed.name, env)
	default:
		return arg.eval(env)
	}
}

func lookupDensity(name string, env evalEnv) (float64, error) {
	if env.densities == nil {
		return 0, fmt.Errorf("formula: no catalog to resolve %q", name)
	}
	density, ok := env.densities.ProductDensity(name)
	if !ok {
		return 0, fmt.Errorf("formula: unknown product %q", name)
	}
	return density, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
