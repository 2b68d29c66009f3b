// Package summarize condenses the corpus into a digest that fits the question
// model's input budget, or passes the corpus through untouched when it already
// fits.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/common"
	"github.com/paperforge/paperforge/internal/corpus"
	"github.com/paperforge/paperforge/internal/llm"
)

// Config for the summarizer.
type Config struct {
	BaseTokens int     // per-unit summary budget before difficulty scaling
	MinTokens  int
	MaxTokens  int
	InputCap   int     // token cap on the digest handed to question generation
	OutScale   float64 // global multiplier on per-unit budgets, default 1.0
	Workers    int
}

// Digest is what question generation actually sees.
type Digest struct {
	Text          string
	Summarized    bool        // false when the corpus fit the cap as-is
	Bullets       int         // 0 on the pass-through path
	PerUnitTokens map[int]int // unit index -> granted summary budget
}

type Summarizer struct {
	cfg Config
	gen llm.Generator
	log *slog.Logger
}

func NewSummarizer(cfg Config, gen llm.Generator, logger *slog.Logger) *Summarizer {
	if cfg.BaseTokens <= 0 {
		cfg.BaseTokens = 350
	}
	if cfg.MinTokens <= 0 {
		cfg.MinTokens = 200
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if cfg.InputCap <= 0 {
		cfg.InputCap = 12_000
	}
	if cfg.OutScale <= 0 {
		cfg.OutScale = 1.0
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{cfg: cfg, gen: gen, log: logger}
}

// Digest builds the question input. Small corpora skip the model entirely;
// larger ones get one summary call per unit, fanned out over a bounded group.
// cancelled is polled before each dispatch; calls already in flight run to
// completion and their output is discarded.
func (s *Summarizer) Digest(ctx context.Context, c *corpus.Corpus, d constants.Difficulty, wantMath bool, cancelled func() bool) (*Digest, error) {
	start := time.Now()

	capChars := llm.TokenBudgetChars(s.cfg.InputCap)
	if c.TotalChars <= capChars {
		text := passthrough(c)
		s.log.Info("summarize.passthrough",
			"total_tokens", llm.EstimateTokens(text),
			"cap_tokens", s.cfg.InputCap,
		)
		return &Digest{Text: text, Summarized: false}, nil
	}

	budgets := s.budgets(c, d, wantMath)
	s.log.Info("summarize.start",
		"units", len(c.Units),
		"difficulty", d,
		"want_math", wantMath,
		"workers", s.cfg.Workers,
	)

	summaries := make([]string, len(c.Units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, u := range c.Units {
		if cancelled != nil && cancelled() {
			return nil, common.ErrCancelled
		}
		g.Go(func() error {
			out, err := s.gen.Summarize(gctx, llm.SummaryRequest{
				Text:         u.Text,
				TargetTokens: budgets[u.Index],
				MathDense:    u.MathDense,
			})
			if err != nil {
				return fmt.Errorf("summarize %s: %w", u.FileName, err)
			}
			summaries[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if cancelled != nil && cancelled() {
		return nil, common.ErrCancelled
	}

	tagged := make([][]string, len(c.Units))
	total := 0
	for i, u := range c.Units {
		tagged[i] = tagBullets(summaries[i], u.Index+1)
		total += len(tagged[i])
	}

	text := interleave(tagged, capChars)
	dg := &Digest{Text: text, Summarized: true, Bullets: total, PerUnitTokens: budgets}
	s.log.Info("summarize.ok",
		"bullets", total,
		"digest_tokens", llm.EstimateTokens(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return dg, nil
}

// budgets grants each unit a token budget scaled by difficulty, with
// math-dense units weighted up when the paper will contain math questions.
func (s *Summarizer) budgets(c *corpus.Corpus, d constants.Difficulty, wantMath bool) map[int]int {
	p := ProfileFor(d)
	out := make(map[int]int, len(c.Units))
	for _, u := range c.Units {
		weight := 1.0
		if wantMath && u.MathDense {
			weight = 1.5
		}
		t := int(math.Round(float64(s.cfg.BaseTokens) * s.cfg.OutScale * p.TokenScale * weight))
		if t < s.cfg.MinTokens {
			t = s.cfg.MinTokens
		}
		if t > s.cfg.MaxTokens {
			t = s.cfg.MaxTokens
		}
		out[u.Index] = t
	}
	return out
}

// passthrough emits the corpus verbatim with per-file section tags so the
// question model can still cite sources.
func passthrough(c *corpus.Corpus) string {
	var b strings.Builder
	for _, u := range c.Units {
		fmt.Fprintf(&b, "[F%d: %s]\n%s\n\n", u.Index+1, u.FileName, strings.TrimSpace(u.Text))
	}
	return strings.TrimRight(b.String(), "\n")
}

// tagBullets normalizes a summary into "- [Fn] fact" lines.
func tagBullets(summary string, n int) []string {
	var out []string
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, fmt.Sprintf("- [F%d] %s", n, line))
	}
	return out
}

// interleave merges bullet lists round-robin from offset zero so every source
// file keeps representation near the top of the digest, then cuts at the cap
// on a whole-line boundary.
func interleave(tagged [][]string, capChars int) string {
	var b strings.Builder
	for round := 0; ; round++ {
		wrote := false
		for _, bullets := range tagged {
			if round >= len(bullets) {
				continue
			}
			line := bullets[round]
			if b.Len()+len(line)+1 > capChars {
				return strings.TrimRight(b.String(), "\n")
			}
			b.WriteString(line)
			b.WriteByte('\n')
			wrote = true
		}
		if !wrote {
			return strings.TrimRight(b.String(), "\n")
		}
	}
}
