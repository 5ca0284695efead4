package pipeline

import (
	"strings"
	"unicode/utf8"
)

const canonicalNDCLength = 11

// NormalizeNDC strips hyphens from raw and returns the result only when it is
// an 11 character code. Anything else is returned exactly as extracted.
func NormalizeNDC(raw string) string {
	stripped := strings.ReplaceAll(raw, "-", "")
	if utf8.RuneCountInString(stripped) == canonicalNDCLength {
		return stripped
	}
	return raw
}
