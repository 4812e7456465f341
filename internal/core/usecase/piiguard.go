package usecase

import "strings"

// redactionMarkers are the literal placeholders an upstream redaction stage
// leaves behind. Any of them appearing in a synthesized answer blocks the
// whole response.
var redactionMarkers = []string{
	"[SSN]",
	"[CREDIT_CARD]",
	"[EMAIL]",
	"[PHONE]",
	"[REDACTED]",
}

// guardPII reports the first redaction marker found in the text, if any.
// Matching is exact and case-sensitive: the markers are machine-written.
func guardPII(text string) (string, bool) {
	for _, marker := range redactionMarkers {
		if strings.Contains(text, marker) {
			return marker, true
		}
	}
	return "", false
}
