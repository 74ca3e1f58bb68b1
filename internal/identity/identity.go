// Package identity generates, validates and remembers the secret UUID that
// is a user's only credential.
package identity

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var pattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Generate returns a random version 4 UUID.
func Generate() string {
	return uuid.NewString()
}

// Validate reports whether candidate has the 8-4-4-4-12 hex layout. Case is
// ignored and surrounding whitespace is not tolerated.
func Validate(candidate string) bool {
	return pattern.MatchString(candidate)
}

// Normalize trims and lower-cases candidate so that the same secret typed in
// different case maps to one record.
func Normalize(candidate string) string {
	return strings.ToLower(strings.TrimSpace(candidate))
}
