package formula

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenIdent
	tokenString
	tokenOperator
	tokenLParen
	tokenRParen
	tokenComma
	tokenEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// twoCharOps are scanned before single-char operators.
var twoCharOps = []string{"<=", ">=", "==", "!=", "&&", "||"}

func lex(input string) ([]token, error) {
	tokens := make([]token, 0, len(input)/2+1)
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			// exponent suffix, e.g. 1.5e-3
			if i < len(runes) && (runes[i] == 'e' || runes[i] == 'E') {
				j := i + 1
				if j < len(runes) && (runes[j] == '+' || runes[j] == '-') {
					j++
				}
				if j < len(runes) && unicode.IsDigit(runes[j]) {
					i = j
					for i < len(runes) && unicode.IsDigit(runes[i]) {
						i++
					}
				}
			}
			text := string(runes[start:i])
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("formula: bad number %q at %d", text, start)
			}
			tokens = append(tokens, token{kind: tokenNumber, text: text, num: value, pos: start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: string(runes[start:i]), pos: start})
		case r == '\'' || r == '"':
			quote := r
			start := i
			i++
			var sb strings.Builder
			for i < len(runes) && runes[i] != quote {
				sb.WriteRune(runes[i])
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("formula: unterminated string at %d", start)
			}
			i++
			tokens = append(tokens, token{kind: tokenString, text: sb.String(), pos: start})
		case r == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")", pos: i})
			i++
		case r == ',':
			tokens = append(tokens, token{kind: tokenComma, text: ",", pos: i})
			i++
		default:
			matched := false
			if i+1 < len(runes) {
				pair := string(runes[i : i+2])
				for _, op := range twoCharOps {
					if pair == op {
						tokens = append(tokens, token{kind: tokenOperator, text: op, pos: i})
						i += 2
						matched = true
						break
					}
				}
			}
			if matched {
				continue
			}
			switch r {
			case '+', '-', '*', '/', '<', '>', '!', '?', ':':
				tokens = append(tokens, token{kind: tokenOperator, text: string(r), pos: i})
				i++
			default:
				return nil, fmt.Errorf("formula: unexpected character %q at %d", string(r), i)
			}
		}
	}
	tokens = append(tokens, token{kind: tokenEOF, pos: len(runes)})
	return tokens, nil
}
