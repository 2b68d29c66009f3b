package texdoc

import (
	"regexp"
	"strings"
)

var (
	reDollarPair = regexp.MustCompile(`\$([^$]+)\$`)
	reFracBare   = regexp.MustCompile(`\\frac\s+([A-Za-z0-9])\s*([A-Za-z0-9])`)
	reFracHalf   = regexp.MustCompile(`\\frac\{([^{}]*)\}\s*([A-Za-z0-9])`)
	reFracLead   = regexp.MustCompile(`\\frac\s*([A-Za-z0-9])\s*\{`)
	reSqrtBare   = regexp.MustCompile(`\\sqrt\s+([A-Za-z0-9])`)
	reVecBare    = regexp.MustCompile(`\\vec\s+([A-Za-z0-9])`)
)

// SanitizeMath normalizes model-written math to the delimiters and macro
// shapes the preamble can compile. Applied before escaping, and again as part
// of compile repair.
func SanitizeMath(s string) string {
	// $x$ pairs become \( x \); a leftover solitary $ is dropped
	s = reDollarPair.ReplaceAllString(s, `\($1\)`)
	s = strings.ReplaceAll(s, "$", "")

	s = repairFractions(s)
	return repairRadicals(s)
}

// repairFractions braces fraction arguments the model left bare or half-braced.
func repairFractions(s string) string {
	s = reFracBare.ReplaceAllString(s, `\frac{$1}{$2}`)
	s = reFracHalf.ReplaceAllString(s, `\frac{$1}{$2}`)
	return reFracLead.ReplaceAllString(s, `\frac{$1}{`)
}

// repairRadicals braces bare \sqrt and \vec arguments.
func repairRadicals(s string) string {
	s = reSqrtBare.ReplaceAllString(s, `\sqrt{$1}`)
	return reVecBare.ReplaceAllString(s, `\vec{$1}`)
}

// BalanceBraces appends missing closers and drops orphan closers so every
// group in the source is terminated.
func BalanceBraces(s string) string {
	depth := 0
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		escaped := i > 0 && s[i-1] == '\\'
		switch {
		case c == '{' && !escaped:
			depth++
		case c == '}' && !escaped:
			if depth == 0 {
				continue // orphan closer
			}
			depth--
		}
		b.WriteByte(c)
	}
	for depth > 0 {
		b.WriteByte('}')
		depth--
	}
	return b.String()
}
