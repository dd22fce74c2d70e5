package util

import (
	"path/filepath"
	"strings"
	"unicode"
)

// SanitizeString trims whitespace and removes control characters from s.
func SanitizeString(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeEnvValue strips matching surrounding quotes and whitespace, as
// left behind by hand-edited .env files.
func SanitizeEnvValue(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}

// FileStem returns the base name of an uploaded file without its extension,
// restricted to characters that are safe in storage keys. Anything else
// becomes '_'. fallback is returned when nothing usable is left.
func FileStem(name, fallback string) string {
	// Browsers on Windows may send the full client path.
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	stem := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			return r
		case unicode.IsSpace(r):
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return '_'
		}
	}, SanitizeString(name))
	stem = strings.Trim(stem, "._")
	if stem == "" {
		return fallback
	}
	return stem
}
