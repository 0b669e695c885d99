package transform

import "strings"

// Null returns nil for blank s and a pointer to the trimmed value otherwise.
// Locale keys use *string so NULL and "" stay distinct all the way to SQL.
func Null(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// IsBoolish reports whether s is a boolean literal: t, f, true or false in
// any case.
func IsBoolish(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "f", "true", "false":
		return true
	}
	return false
}

// Deref returns *p, or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
