package detection

import (
	"strings"

	scanerrors "github.com/khanhnv2901/walletscan/internal/shared/errors"
)

// DefaultPatterns are substrings commonly found in wallet-draining scripts.
// Several of them (approve, sign) are ordinary identifiers too and will match
// legitimate wallet integrations.
var DefaultPatterns = []string{
	"uint256.max",
	"eth_requestaccounts",
	"approve",
	"transferfrom",
	"window.ethereum",
	"privatekey",
	"seedphrase",
	"sign",
	"eth_sendtransaction",
}

// PatternSet is an ordered list of lower-cased, de-duplicated patterns.
type PatternSet struct {
	patterns []string
}

// NewPatternSet normalizes patterns. Blank entries and duplicates (after
// lower-casing) are dropped; order of first appearance is kept.
func NewPatternSet(patterns []string) (*PatternSet, error) {
	seen := make(map[string]struct{}, len(patterns))
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	if len(normalized) == 0 {
		return nil, scanerrors.ErrEmptyPatternSet
	}
	return &PatternSet{patterns: normalized}, nil
}

// DefaultPatternSet returns the built-in patterns.
func DefaultPatternSet() *PatternSet {
	set, _ := NewPatternSet(DefaultPatterns)
	return set
}

// Patterns returns a copy of the normalized patterns.
func (s *PatternSet) Patterns() []string {
	return append([]string(nil), s.patterns...)
}

// Len returns the number of patterns.
func (s *PatternSet) Len() int {
	return len(s.patterns)
}

// Find returns the patterns contained in body, in set order. body must
// already be lower-cased.
func (s *PatternSet) Find(body string) []string {
	var found []string
	for _, p := range s.patterns {
		if strings.Contains(body, p) {
			found = append(found, p)
		}
	}
	return found
}
