package features

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numberPattern accepts a plain decimal with either '.' or ',' as the decimal
// point and an optional exponent. Hex floats, Inf and NaN are rejected.
var numberPattern = regexp.MustCompile(`^[+-]?(\d+([.,]\d*)?|[.,]\d+)([eE][+-]?\d+)?$`)

// ParseError reports malformed or incomplete feature input.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return e.Reason
}

// split applies the shared normalization and returns the non-empty tokens.
// A ';' anywhere in the input makes ';' the delimiter, in which case ',' is a
// decimal point inside a token. Otherwise ',' separates tokens.
func split(s string) []string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}

	parts := strings.Split(s, sep)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		tokens = append(tokens, strings.ReplaceAll(p, ",", "."))
	}
	return tokens
}

// Normalize rewrites free-form input into the canonical comma separated form
// with '.' decimals. The chat relay calls it before forwarding so that both
// entry points accept the same shapes. Invalid tokens are passed through.
func Normalize(s string) string {
	return strings.Join(split(s), ",")
}

// Parse converts a delimited string of exactly eight numbers into a Vector.
func Parse(s string) (Vector, error) {
	tokens := split(s)
	if len(tokens) == 0 {
		return Vector{}, &ParseError{Reason: "input is empty"}
	}
	if len(tokens) != Count {
		return Vector{}, &ParseError{
			Reason: fmt.Sprintf("Input must contain exactly %d numerical values (got %d)", Count, len(tokens)),
		}
	}

	var v Vector
	for i, tok := range tokens {
		f, err := parseToken(tok)
		if err != nil {
			return Vector{}, &ParseError{
				Reason: fmt.Sprintf("value %d (%s) %q is not a valid number", i+1, names[i], tok),
			}
		}
		v[i] = f
	}
	return v, nil
}

func parseToken(tok string) (float64, error) {
	if !numberPattern.MatchString(tok) {
		return 0, strconv.ErrSyntax
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", "."), 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, strconv.ErrRange
	}
	return f, nil
}
