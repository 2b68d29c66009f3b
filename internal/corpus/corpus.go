// Package corpus turns a batch of uploaded files into an ordered, deduplicated
// set of text units the rest of the pipeline works from.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/extract"
)

// Unit is one usable source file after extraction.
type Unit struct {
	Index       int // position in the upload order, stable across dedupe
	FileName    string
	Format      constants.FileFormat
	Text        string
	Fingerprint string
	MathDense   bool
	Pages       int
	Paragraphs  int
}

// Warning records a file that was skipped without failing the job.
type Warning struct {
	File   string
	Kind   extract.ErrorKind
	Detail string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s (%s)", w.File, w.Kind, w.Detail)
}

// Corpus is the extraction stage output.
type Corpus struct {
	Units      []Unit
	TotalChars int
	Warnings   []Warning
	Duplicates int // files dropped because an earlier unit had identical content
}

// MathDenseCount reports how many units carry heavy mathematical notation.
func (c *Corpus) MathDenseCount() int {
	n := 0
	for _, u := range c.Units {
		if u.MathDense {
			n++
		}
	}
	return n
}

// Fingerprint hashes content identity. Unicode normalization and whitespace
// collapsing first, so a re-exported copy of the same document still matches.
func Fingerprint(text string) string {
	normalized := norm.NFC.String(text)
	collapsed := strings.Join(strings.Fields(normalized), " ")
	sum := sha256.Sum256([]byte(strings.ToLower(collapsed)))
	return hex.EncodeToString(sum[:])
}

// mathSymbols are the characters whose density marks a text as math-heavy.
const mathSymbols = "=+^*/<>∫∑∂√π≈≠≤≥±"

var mathMarkers = []string{`\frac`, `\sqrt`, `\int`, `\sum`, "d/dx", "dy/dx"}

// IsMathDense reports whether the text leans on formulas rather than prose.
// Only the first 20k characters are sampled.
func IsMathDense(text string) bool {
	if len(text) == 0 {
		return false
	}
	sample := text
	if len(sample) > 20_000 {
		sample = sample[:20_000]
	}
	hits := 0
	for _, r := range sample {
		if strings.ContainsRune(mathSymbols, r) {
			hits++
		}
	}
	for _, m := range mathMarkers {
		hits += strings.Count(sample, m) * 5
	}
	return float64(hits)/float64(len(sample)) > 0.004
}
