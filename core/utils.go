package core

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// dateLayouts are the accepted date inputs, most specific first.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate parses a "2006-01-02" or RFC3339 date into UTC.
func ParseDate(s string) (time.Time, error) {
	s = CleanString(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("invalid date %q", s)
}

// ContainsString reports whether s is in list.
func ContainsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
