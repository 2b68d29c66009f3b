package texdoc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/common"
)

func TestSanitizeMath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "dollar pair to inline math",
			in:   `Compute $E = mc^2$ for the electron.`,
			want: `Compute \(E = mc^2\) for the electron.`,
		},
		{
			name: "solitary dollar dropped",
			in:   `The cost is 5$ per unit.`,
			want: `The cost is 5 per unit.`,
		},
		{
			name: "bare frac args braced",
			in:   `\( \frac 12 \)`,
			want: `\( \frac{1}{2} \)`,
		},
		{
			name: "half-braced frac completed",
			in:   `\( \frac{dy}x \)`,
			want: `\( \frac{dy}{x} \)`,
		},
		{
			name: "leading frac arg braced",
			in:   `\( \frac a{b+c} \)`,
			want: `\( \frac{a}{b+c} \)`,
		},
		{
			name: "bare sqrt braced",
			in:   `\( \sqrt x \)`,
			want: `\( \sqrt{x} \)`,
		},
		{
			name: "bare vec braced",
			in:   `\( \vec v \)`,
			want: `\( \vec{v} \)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeMath(tt.in))
		})
	}
}

func TestBalanceBraces(t *testing.T) {
	assert.Equal(t, `\frac{a}{b}`, BalanceBraces(`\frac{a}{b}`))
	assert.Equal(t, `\frac{a}{b}`, BalanceBraces(`\frac{a}{b`))
	assert.Equal(t, `ab`, BalanceBraces(`ab}`))
	assert.Equal(t, `\{a\}`, BalanceBraces(`\{a\}`), "escaped braces do not count")
}

func TestEscapeText(t *testing.T) {
	assert.Equal(t, `50\% of the marks`, EscapeText(`50% of the marks`))
	assert.Equal(t, `A \& B`, EscapeText(`A & B`))
	got := EscapeText(`Given \( x_1 = 5\% \) find x_2`)
	assert.Contains(t, got, `\( x_1 = 5\% \)`, "math span is untouched")
	assert.Contains(t, got, `x\_2`, "prose is escaped")
}

func TestEscapeTextClosesUnterminatedMath(t *testing.T) {
	got := EscapeText(`Evaluate \( 2+2`)
	assert.True(t, strings.HasSuffix(got, `\)`))
}

func TestRenderQuestions(t *testing.T) {
	entries := []Entry{
		{Position: 1, Type: constants.QuestionShort, Prompt: "State Hooke's law."},
		{Position: 2, Type: constants.QuestionMCQ, Prompt: "Pick the SI unit of force.",
			Options: []string{"newton", "joule", "watt"}, CorrectIndex: 0},
	}
	src := RenderQuestions("Physics 101", entries)

	assert.Contains(t, src, `\documentclass[12pt]{article}`)
	assert.Contains(t, src, `\paperheader{Physics 101}`)
	assert.Contains(t, src, "State Hooke's law.")
	assert.Contains(t, src, `label=(\Alph*)`)
	assert.Contains(t, src, "newton")
	assert.NotContains(t, src, "Correct option", "the question paper must not leak answers")
	assert.Contains(t, src, `\end{document}`)
}

func TestRenderMarkScheme(t *testing.T) {
	entries := []Entry{
		{Position: 1, Type: constants.QuestionMCQ, Prompt: "Pick one.",
			Options: []string{"a", "b", "c"}, CorrectIndex: 2, Solution: "c is right."},
		{Position: 2, Type: constants.QuestionMath, Solution: `Apply \( F = ma \).`,
			MarkingPoints: []string{"states the law", "substitutes values"}},
	}
	src := RenderMarkScheme("Physics 101", entries)

	assert.Contains(t, src, `\paperheader{Physics 101 Mark Scheme}`)
	assert.Contains(t, src, `\textbf{Correct option: (C)}`)
	assert.Contains(t, src, `\( F = ma \)`)
	assert.Contains(t, src, "states the law")
}

func TestRepairTableSelection(t *testing.T) {
	tests := []struct {
		name       string
		diagnostic string
		wantRule   string
	}{
		{"frac with sqrt", `! Missing { inserted. l.12 \frac{\sqrt 2}{3}`, "fix_frac_sqrt"},
		{"bare frac", `! Missing { inserted. l.9 \frac 1 2`, "fix_fractions"},
		{"illegal unit after frac", `! Illegal unit of measure (pt inserted).`, "fix_fractions"},
		{"bare sqrt", `! Paragraph ended before \sqrt was complete.`, "fix_radicals"},
		{"alignment tab", `! Misplaced alignment tab character &.`, "escape_reserved"},
		{"missing dollar", `! Missing $ inserted.`, "escape_reserved"},
		{"undefined macro", `! Undefined control sequence. \badmacro`, "fix_macros"},
		{"missing brace", `! Missing } inserted.`, "balance_braces"},
		{"runaway", `Runaway argument?`, "balance_braces"},
		{"unknown", `something novel`, "emergency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rule := Repair(tt.diagnostic, "source")
			assert.Equal(t, tt.wantRule, rule)
		})
	}
}

func TestRepairFractionRewrite(t *testing.T) {
	src := `Evaluate \frac 1 2 of the total & compare.`
	out, rule := Repair(`! Missing { inserted. l.9 \frac 1 2`, src)
	assert.Equal(t, "fix_fractions", rule)
	assert.Contains(t, out, `\frac{1}{2}`)
	assert.Contains(t, out, "& compare", "only the matched defect class is rewritten")
}

func TestRepairMacros(t *testing.T) {
	in := `keep \frac{1}{2} and \sqrt{x}, drop \fancybox{y}`
	out := repairMacros(in)
	assert.Contains(t, out, `\frac{1}{2}`)
	assert.Contains(t, out, `\sqrt{x}`)
	assert.NotContains(t, out, `\fancybox`)
	assert.Contains(t, out, `fancybox{y}`)
}

// scriptRunner fails a set number of times per document, then succeeds and
// drops the expected PDF into the outdir.
type scriptRunner struct {
	mu       sync.Mutex
	failures map[string]int // baseName -> remaining failures
	stderr   string
	calls    map[string]int
	sources  map[string][]string // baseName -> source of each attempt
}

func newScriptRunner(stderr string) *scriptRunner {
	return &scriptRunner{
		failures: map[string]int{},
		stderr:   stderr,
		calls:    map[string]int{},
		sources:  map[string][]string{},
	}
}

func (r *scriptRunner) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	texPath := args[0]
	base := strings.TrimSuffix(filepath.Base(texPath), ".tex")
	r.calls[base]++
	src, _ := os.ReadFile(texPath)
	r.sources[base] = append(r.sources[base], string(src))

	if r.failures[base] > 0 {
		r.failures[base]--
		return nil, []byte(r.stderr), errors.New("exit status 1")
	}
	dir := args[2] // after --outdir
	pdf := filepath.Join(dir, base+".pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.7"), 0o644); err != nil {
		return nil, nil, err
	}
	return []byte("ok"), nil, nil
}

func newTestStage(r Runner, attempts int) *Stage {
	c := NewCompiler(CompilerConfig{}, nil).WithRunner(r)
	return NewStage(StageConfig{Attempts: attempts}, c, nil)
}

func entriesOne() []Entry {
	return []Entry{{Position: 1, Type: constants.QuestionShort,
		Prompt: "State the first law.", Solution: "Objects keep their velocity."}}
}

func TestCompilePairSucceeds(t *testing.T) {
	r := newScriptRunner("")
	st := newTestStage(r, 3)

	pair, err := st.CompilePair(context.Background(), "Paper", entriesOne(), t.TempDir())
	require.NoError(t, err)
	assert.FileExists(t, pair.QuestionsPDF)
	assert.FileExists(t, pair.AnswersPDF)
	assert.Equal(t, 1, r.calls["questions"])
	assert.Equal(t, 1, r.calls["answers"])
}

func TestCompileRepairsBetweenAttempts(t *testing.T) {
	r := newScriptRunner(`! Undefined control sequence. \nonsense`)
	r.failures["questions"] = 1
	st := newTestStage(r, 3)

	entries := []Entry{{Position: 1, Type: constants.QuestionShort,
		Prompt: `Evaluate \nonsense{x} for x=2.`, Solution: "4"}}
	pair, err := st.CompilePair(context.Background(), "Paper", entries, t.TempDir())
	require.NoError(t, err)
	assert.FileExists(t, pair.QuestionsPDF)
	assert.Equal(t, 2, r.calls["questions"])
	require.Len(t, r.sources["questions"], 2)
	assert.NotEqual(t, r.sources["questions"][0], r.sources["questions"][1],
		"second attempt compiles repaired source")
}

func TestCompileExhaustsAttempts(t *testing.T) {
	r := newScriptRunner(`! Missing } inserted.`)
	r.failures["answers"] = 99
	st := newTestStage(r, 3)

	_, err := st.CompilePair(context.Background(), "Paper", entriesOne(), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCompileExhausted)
	assert.Equal(t, 3, r.calls["answers"])
}

func TestDiagnosticTail(t *testing.T) {
	out := "chatter\nmore chatter\n! Missing } inserted.\ntrailing"
	assert.Equal(t, "! Missing } inserted.", DiagnosticTail(out, 5))
}
