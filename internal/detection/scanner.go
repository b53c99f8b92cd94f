package detection

import (
	"strings"

	"github.com/khanhnv2901/walletscan/internal/domain/scan"
)

// Scanner matches script bodies against a PatternSet.
type Scanner struct {
	patterns *PatternSet
}

// NewScanner returns a scanner for patterns, falling back to the defaults when nil.
func NewScanner(patterns *PatternSet) *Scanner {
	if patterns == nil {
		patterns = DefaultPatternSet()
	}
	return &Scanner{patterns: patterns}
}

// Patterns returns the active patterns.
func (s *Scanner) Patterns() []string {
	return s.patterns.Patterns()
}

// Scan emits one match and one reason per (script, pattern) pair, however many
// times the pattern occurs in that script. Inline scripts are reported before
// external ones; each group keeps the order of refs. References without a body
// are skipped.
func (s *Scanner) Scan(refs []scan.ScriptReference) ([]scan.PatternMatch, []string) {
	matches := make([]scan.PatternMatch, 0)
	reasons := make([]string, 0)

	for _, kind := range []scan.ScriptKind{scan.ScriptInline, scan.ScriptExternal} {
		for _, ref := range refs {
			if ref.Kind != kind || !ref.Fetched {
				continue
			}
			for _, pattern := range s.patterns.Find(strings.ToLower(ref.Body)) {
				m := scan.NewPatternMatch(ref, pattern)
				matches = append(matches, m)
				reasons = append(reasons, m.Reason())
			}
		}
	}

	return matches, reasons
}
