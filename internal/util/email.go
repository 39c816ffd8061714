package util

import (
	"net/mail"
	"strings"
)

// NormalizeEmail lowercases and trims user input. It returns "" when the
// result is not a bare address.
func NormalizeEmail(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return ""
	}
	return s
}
