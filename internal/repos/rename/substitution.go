package rename

import (
	"regexp"
	"strings"

	"github.com/temirov/gitrename/internal/repos/shared"
)

const caseInsensitiveFlagConstant = "(?i)"

// Substitution is a replacement pair compiled once for a fixed case rule.
// It serves both name transformation and content substitution so the two always agree.
type Substitution struct {
	pair          shared.ReplacementPair
	caseSensitive bool
	expression    *regexp.Regexp
}

// NewSubstitution compiles the pair. Case-insensitive matching treats the old value literally.
func NewSubstitution(pair shared.ReplacementPair, caseSensitive bool) Substitution {
	substitution := Substitution{pair: pair, caseSensitive: caseSensitive}
	if !caseSensitive {
		substitution.expression = regexp.MustCompile(caseInsensitiveFlagConstant + regexp.QuoteMeta(pair.Old))
	}
	return substitution
}

// Pair returns the underlying replacement pair.
func (substitution Substitution) Pair() shared.ReplacementPair {
	return substitution.pair
}

// CaseSensitive reports the case rule the substitution was compiled for.
func (substitution Substitution) CaseSensitive() bool {
	return substitution.caseSensitive
}

// Contains reports whether text holds at least one occurrence of the old value.
func (substitution Substitution) Contains(text string) bool {
	if substitution.caseSensitive {
		return strings.Contains(text, substitution.pair.Old)
	}
	return substitution.expression.MatchString(text)
}

// Apply replaces every occurrence of the old value. The new value is inserted verbatim.
func (substitution Substitution) Apply(text string) string {
	if substitution.caseSensitive {
		return strings.ReplaceAll(text, substitution.pair.Old, substitution.pair.New)
	}
	return substitution.expression.ReplaceAllLiteralString(text, substitution.pair.New)
}

// Transform computes a new entry name. The boolean is false when the name would not change.
func (substitution Substitution) Transform(name string) (string, bool) {
	transformed := substitution.Apply(name)
	return transformed, transformed != name
}
