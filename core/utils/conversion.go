package utils

import "strings"

// ToBool reports whether s is a truthy query or env value ("1", "true", "yes", "on").
func ToBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// ParseBoolPtr parses an optional tri-state flag. Empty input yields nil.
func ParseBoolPtr(s string) *bool {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	b := ToBool(s)
	return &b
}
