package util

import (
	"errors"
	"strings"
	"unicode"
)

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

const maxErrorMessageLen = 500

// SanitizeErrorMessage strips control characters from a failure message and
// bounds its length so arbitrary provider output never bloats stored records.
func SanitizeErrorMessage(msg string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' {
			return ' '
		}
		return r
	}, msg)
	s = strings.TrimSpace(s)
	if len(s) > maxErrorMessageLen {
		s = s[:maxErrorMessageLen]
	}
	return s
}
