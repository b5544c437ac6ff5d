package util

import (
	"regexp"
	"strings"
)

var sessionCodeRegex = regexp.MustCompile(`^[0-9A-Z-]{4,32}$`)

// NormalizeSessionCode trims and upper-cases a session code.
func NormalizeSessionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidSessionCode reports whether an already-normalized code is acceptable.
func IsValidSessionCode(code string) bool {
	if code == "" {
		return false
	}
	return sessionCodeRegex.MatchString(code)
}
