package ghostscript

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultPasswordMarkers are the stderr phrases Ghostscript emits for
// encrypted documents it cannot open.
var DefaultPasswordMarkers = []string{
	"This file requires a password for access",
	"requires a password",
}

// Classifier reports whether tool stderr indicates a password-protected input.
type Classifier func(stderr string) bool

// MarkerClassifier matches any of markers against stderr, ignoring case.
// Matching uses Unicode case folding so translated messages compare correctly.
func MarkerClassifier(markers []string) Classifier {
	folder := cases.Fold()
	folded := make([]string, 0, len(markers))
	for _, marker := range markers {
		marker = strings.TrimSpace(marker)
		if marker == "" {
			continue
		}
		folded = append(folded, folder.String(marker))
	}
	return func(stderr string) bool {
		if stderr == "" || len(folded) == 0 {
			return false
		}
		// cases.Caser is stateful; fold with a fresh one per call.
		haystack := cases.Fold().String(stderr)
		for _, marker := range folded {
			if strings.Contains(haystack, marker) {
				return true
			}
		}
		return false
	}
}
