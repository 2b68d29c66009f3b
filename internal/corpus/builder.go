package corpus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/paperforge/paperforge/internal/common"
	"github.com/paperforge/paperforge/internal/extract"
)

// Config for the builder.
type Config struct {
	Workers      int // parallel extractions, default 4
	TotalCharCap int // cap across all units after dedupe, 0 = no cap
}

// Builder fans extraction out over a bounded worker group, then dedupes and
// caps the results in upload order.
type Builder struct {
	cfg       Config
	extractor extract.TextExtractor
	logger    *slog.Logger
}

func NewBuilder(cfg Config, extractor extract.TextExtractor, logger *slog.Logger) *Builder {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{cfg: cfg, extractor: extractor, logger: logger}
}

// Build extracts every file concurrently. Per-file failures become warnings,
// not job failures; the job only fails when nothing usable remains. wantMath
// reports whether the paper will contain computational questions; only then
// does math-dense material get priority when the corpus is capped.
func (b *Builder) Build(ctx context.Context, files []extract.SourceFile, wantMath bool) (*Corpus, error) {
	start := time.Now()
	b.logger.Info("corpus.build.start", "files", len(files), "workers", b.cfg.Workers)

	type slot struct {
		unit Unit
		warn *Warning
	}
	slots := make([]slot, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i, f := range files {
		g.Go(func() error {
			text, meta, err := b.extractor.Extract(gctx, f)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				w := classify(f.Name, err)
				b.logger.Warn("corpus.file.skipped", "file", f.Name, "kind", w.Kind, "error", err)
				slots[i] = slot{warn: &w}
				return nil
			}
			slots[i] = slot{unit: Unit{
				Index:       i,
				FileName:    f.Name,
				Format:      meta.Format,
				Text:        text,
				Fingerprint: Fingerprint(text),
				MathDense:   IsMathDense(text),
				Pages:       meta.Pages,
				Paragraphs:  meta.Paragraphs,
			}}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := &Corpus{}
	seen := make(map[string]string) // fingerprint -> first file name
	for _, s := range slots {
		if s.warn != nil {
			c.Warnings = append(c.Warnings, *s.warn)
			continue
		}
		u := s.unit
		if first, dup := seen[u.Fingerprint]; dup {
			c.Duplicates++
			b.logger.Info("corpus.file.duplicate", "file", u.FileName, "same_as", first)
			continue
		}
		seen[u.Fingerprint] = u.FileName
		c.Units = append(c.Units, u)
		c.TotalChars += len(u.Text)
	}

	if len(c.Units) == 0 {
		return c, common.WrapError(common.ErrNoUsableContent, "no file yielded usable text")
	}

	b.capTotal(c, wantMath)

	b.logger.Info("corpus.build.ok",
		"units", len(c.Units),
		"total_chars", c.TotalChars,
		"duplicates", c.Duplicates,
		"warnings", len(c.Warnings),
		"math_dense", c.MathDenseCount(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return c, nil
}

// capTotal shrinks the corpus to the configured character budget. When the
// paper will contain math questions, non-math units give ground first;
// math-dense material loses precision fastest when truncated, so it is cut
// only if prose alone cannot cover the excess. Otherwise every unit is fair
// game from the start.
func (b *Builder) capTotal(c *Corpus, protectMath bool) {
	if b.cfg.TotalCharCap <= 0 || c.TotalChars <= b.cfg.TotalCharCap {
		return
	}
	excess := c.TotalChars - b.cfg.TotalCharCap

	if protectMath {
		excess = trimPass(c, excess, func(u Unit) bool { return !u.MathDense })
		if excess > 0 {
			excess = trimPass(c, excess, func(u Unit) bool { return u.MathDense })
		}
	} else {
		_ = trimPass(c, excess, func(Unit) bool { return true })
	}

	c.TotalChars = 0
	for _, u := range c.Units {
		c.TotalChars += len(u.Text)
	}
	b.logger.Info("corpus.capped", "cap", b.cfg.TotalCharCap, "total_chars", c.TotalChars)
}

// trimPass removes up to excess characters from units accepted by match,
// largest unit first, never below a floor that keeps the unit meaningful.
// Cuts land on rune boundaries.
func trimPass(c *Corpus, excess int, match func(Unit) bool) int {
	const floor = 2_000
	for excess > 0 {
		biggest := -1
		for i, u := range c.Units {
			if !match(u) || len(u.Text) <= floor {
				continue
			}
			if biggest < 0 || len(u.Text) > len(c.Units[biggest].Text) {
				biggest = i
			}
		}
		if biggest < 0 {
			return excess
		}
		u := &c.Units[biggest]
		cut := len(u.Text) - floor
		if cut > excess {
			cut = excess
		}
		end := len(u.Text) - cut
		for end > 0 && !utf8.RuneStart(u.Text[end]) {
			end--
		}
		excess -= len(u.Text) - end
		u.Text = u.Text[:end]
	}
	return 0
}

func classify(name string, err error) Warning {
	var xe *extract.Error
	if errors.As(err, &xe) {
		return Warning{File: name, Kind: xe.Kind, Detail: detail(xe)}
	}
	return Warning{File: name, Kind: extract.KindCorrupt, Detail: err.Error()}
}

func detail(xe *extract.Error) string {
	if xe.Err != nil {
		return xe.Err.Error()
	}
	return string(xe.Kind)
}
