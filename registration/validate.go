package registration

import (
	"regexp"
	"strings"
	"unicode"
)

// emailPattern requires local@domain.tld with no whitespace and exactly one "@".
// The negated class covers ASCII whitespace, \v, every Unicode space or
// separator (\p{Z}) and the byte order mark, so NBSP and friends are rejected
// like ordinary spaces.
var emailPattern = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)

// IsValidEmail reports whether email has the shape local@domain.tld.
// This is a format check only; deliverability is never verified.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// isSpace matches the same whitespace set as emailPattern: \s, \v, \p{Z}
// and the byte order mark. U+0085 is not in it.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\uFEFF':
		return true
	}
	return unicode.Is(unicode.Z, r)
}

// IsBlank reports whether s is empty after trimming leading and trailing whitespace.
func IsBlank(s string) bool {
	return strings.TrimFunc(s, isSpace) == ""
}
