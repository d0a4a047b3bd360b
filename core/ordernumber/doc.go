// Package ordernumber parses raw production order numbers.
//
// Order numbers arrive as free text: typed by hand into supplier forms, printed on
// rack labels, or scanned from delivery notes. This package turns such a string into
// a structured ParsedOrderNumber made of a numeric base and an optional short suffix
// that denotes a sub-order sharing the same base job.
//
// # Grammar
//
// After trimming surrounding whitespace the input must consist of:
//   - a base: 1 to 20 digits
//   - an optional suffix: 1 to 4 letters or digits, separated from the base by a
//     hyphen, a single space, or nothing at all
//
// The trimmed input may not exceed 20 characters.
//
// # Usage
//
//	p, err := ordernumber.Parse("54222-a")
//	if err != nil {
//	    var perr *ordernumber.ParseError
//	    errors.As(err, &perr) // perr.Reason == ordernumber.ReasonMalformed ...
//	}
//	p.Base      // "54222"
//	p.Suffix    // "a"
//	p.Canonical // "54222-a"
package ordernumber
