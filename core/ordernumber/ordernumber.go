package ordernumber

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxLength is the longest accepted order number after trimming.
const MaxLength = 20

// Parse failure reasons.
const (
	ReasonEmpty     = "empty"
	ReasonTooLong   = "too_long"
	ReasonMalformed = "malformed"
)

// Without a separator the digits are consumed greedily, so "54222a" yields base
// "54222" and suffix "a", while "542221" stays a plain base.
var pattern = regexp.MustCompile(`^([0-9]{1,20})(?:[- ]?([A-Za-z0-9]{1,4}))?$`)

// ParsedOrderNumber is the structured form of a raw order number.
type ParsedOrderNumber struct {
	// Base is the leading run of digits.
	Base string `json:"base"`
	// Suffix is the sub-order marker, empty when absent.
	Suffix string `json:"suffix,omitempty"`
	// Full is the trimmed input.
	Full string `json:"full"`
}

// HasSuffix reports whether the number names a sub-order.
func (p ParsedOrderNumber) HasSuffix() bool {
	return p.Suffix != ""
}

// Canonical returns the normalized comparison key: the base alone, or the base
// and the lower-cased suffix joined by a hyphen.
func (p ParsedOrderNumber) Canonical() string {
	if p.Suffix == "" {
		return p.Base
	}
	return p.Base + "-" + strings.ToLower(p.Suffix)
}

// ParseError describes why a raw order number was rejected.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid order number %q: %s", e.Input, e.Reason)
}

// Parse splits a raw order number into base and suffix.
func Parse(raw string) (ParsedOrderNumber, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ParsedOrderNumber{}, &ParseError{Input: raw, Reason: ReasonEmpty}
	}
	if len(trimmed) > MaxLength {
		return ParsedOrderNumber{}, &ParseError{Input: raw, Reason: ReasonTooLong}
	}

	m := pattern.FindStringSubmatch(trimmed)
	if m == nil {
		return ParsedOrderNumber{}, &ParseError{Input: raw, Reason: ReasonMalformed}
	}

	return ParsedOrderNumber{
		Base:   m[1],
		Suffix: m[2],
		Full:   trimmed,
	}, nil
}

// CanonicalOf parses raw and returns its canonical key, or "" when it does not parse.
func CanonicalOf(raw string) string {
	p, err := Parse(raw)
	if err != nil {
		return ""
	}
	return p.Canonical()
}
