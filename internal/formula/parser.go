package formula

import (
	"errors"
	"fmt"
	"math"
)

// The grammar is a closed sandbox: identifiers resolve only against the
// caller's variable context, and the only callable functions are the
// whitelist below plus massLength.
var functionWhitelist = map[string]struct{}{
	"min":        {},
	"max":        {},
	"abs":        {},
	"sqrt":       {},
	"round":      {},
	"massLength": {},
}

type node interface {
	eval(env evalEnv) (float64, error)
}

type numberNode struct{ value float64 }

type identNode struct{ name string }

type stringNode struct{ value string }

type unaryNode struct {
	op      string
	operand node
}

type binaryNode struct {
	op    string
	left  node
	right node
}

type ternaryNode struct {
	cond      node
	whenTrue  node
	whenFalse node
}

type callNode struct {
	name string
	args []node
}

type parser struct {
	tokens []token
	pos    int
}

func parse(input string) (node, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokenEOF {
		return nil, fmt.Errorf("formula: unexpected token %q at %d", p.peek().text, p.peek().pos)
	}
	return root, nil
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) acceptOperator(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokenOperator {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

// parseTernary handles cond ? a : b, right-associative so tiered
// expressions chain naturally: c1 ? a : c2 ? b : c.
func (p *parser) parseTernary() (node, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if _, ok := p.acceptOperator("?"); !ok {
		return cond, nil
	}
	whenTrue, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.acceptOperator(":"); !ok {
		return nil, errors.New("formula: expected ':' in conditional")
	}
	whenFalse, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ternaryNode{cond: cond, whenTrue: whenTrue, whenFalse: whenFalse}, nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOperator("||"); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "||", left: left, right: right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOperator("&&"); !ok {
			return left, nil
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "&&", left: left, right: right}
	}
}

func (p *parser) parseEquality() (node, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOperator("==", "!=")
		if !ok {
			return left, nil
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseRelational() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOperator("<=", ">=", "<", ">")
		if !ok {
			return left, nil
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOperator("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOperator("*", "/")
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if op, ok := p.acceptOperator("-", "!"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: op, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.peek()
	switch t.kind {
	case tokenNumber:
		p.next()
		return &numberNode{value: t.num}, nil
	case tokenString:
		p.next()
		return &stringNode{value: t.text}, nil
	case tokenLParen:
		p.next()
		inner, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokenRParen {
			return nil, errors.New("formula: expected ')'")
		}
		p.next()
		return inner, nil
	case tokenIdent:
		p.next()
		if t.text == "pi" || t.text == "PI" {
			return &numberNode{value: math.Pi}, nil
		}
		if p.peek().kind != tokenLParen {
			return &identNode{name: t.text}, nil
		}
		if _, ok := functionWhitelist[t.text]; !ok {
			return nil, fmt.Errorf("formula: unknown function %q", t.text)
		}
		p.next()
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &callNode{name: t.text, args: args}, nil
	default:
		return nil, fmt.Errorf("formula: unexpected token %q at %d", t.text, t.pos)
	}
}

func (p *parser) parseArgs() ([]node, error) {
	var args []node
	if p.peek().kind == tokenRParen {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		switch p.peek().kind {
		case tokenComma:
			p.next()
		case tokenRParen:
			p.next()
			return args, nil
		default:
			return nil, errors.New("formula: expected ',' or ')' in arguments")
		}
	}
}
