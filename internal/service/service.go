package service

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
)

const calendarCachePattern = "calendar:*"

func defaultValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return validator.New()
	}
	return v
}

// lookupError maps sql.ErrNoRows to a 404 and anything else to a 500.
func lookupError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, internal)
}

func invalid(message string) error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}

func validationFailed(err error, message string) error {
	return appErrors.Validation(err, message)
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func utcNow() time.Time {
	return time.Now().UTC()
}
