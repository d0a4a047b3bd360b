// Package utils provides small helpers shared across the glass-tracker packages:
// ordered string sets for collecting affected order numbers, list encoding for
// candidate columns, and boolean parsing for query parameters.
package utils
