package util

import (
	"errors"
	"strings"
)

// ErrInvalidFileName rejects names that are empty or contain traversal.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName strips path separators and control characters from an
// uploaded file name and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, name)
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidFileName
	}
	return s, nil
}
