package manip

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

func CountRunes(input string, r rune) (result int) {
	for _, c := range input {
		if c == r {
			result++
		}
	}
	return
}

func Truncate(s string, i int) string {
	if len(s) < i {
		return s
	}
	if utf8.ValidString(s[:i]) {
		return s[:i]
	}
	return s[:i+1]
}

var lineBreakRe = regexp.MustCompile(`\r?\n`)

func MakeOneLine(s, repl string) (result string) {
	return lineBreakRe.ReplaceAllString(s, repl)
}

// MaskValue hides the middle of a sensitive value, keeping the first and
// last four characters. Short values are masked entirely.
func MaskValue(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
