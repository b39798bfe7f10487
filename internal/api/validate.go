package api

import (
	"strings"
	"time"

	"github.com/nhle/buildfast/internal/apperr"
)

// validator collects issues in the {code, path, message} shape web
// clients already parse.
type validator struct {
	issues []apperr.Issue
}

func (v *validator) add(field, code, message string) {
	v.issues = append(v.issues, apperr.Issue{Code: code, Path: []any{field}, Message: message})
}

// requiredString checks that value is present and not blank.
func (v *validator) requiredString(field string, value *string, message string) string {
	if value == nil {
		v.add(field, "invalid_type", "Required")
		return ""
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		v.add(field, "too_small", message)
	}
	return trimmed
}

// requiredID checks that a numeric id is present.
func (v *validator) requiredID(field string, value *int64) int64 {
	if value == nil {
		v.add(field, "invalid_type", "Required")
		return 0
	}
	if *value <= 0 {
		v.add(field, "too_small", "Invalid "+field)
		return 0
	}
	return *value
}

// optionalTime parses an RFC 3339 timestamp when present.
func (v *validator) optionalTime(field string, value *string) (time.Time, bool) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*value))
	if err != nil {
		v.add(field, "invalid_string", "Invalid datetime")
		return time.Time{}, false
	}
	return t.UTC(), true
}

func (v *validator) err() error {
	if len(v.issues) == 0 {
		return nil
	}
	return apperr.Validation(v.issues...)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
