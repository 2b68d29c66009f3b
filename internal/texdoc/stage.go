package texdoc

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paperforge/paperforge/internal/common"
	"github.com/paperforge/paperforge/internal/execx"
)

// StageConfig bounds the repair loop.
type StageConfig struct {
	Attempts int // compile attempts per document, default 3
}

// Stage compiles the two documents of a paper, repairing between attempts.
type Stage struct {
	cfg      StageConfig
	compiler *Compiler
	log      *slog.Logger
}

func NewStage(cfg StageConfig, compiler *Compiler, logger *slog.Logger) *Stage {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{cfg: cfg, compiler: compiler, log: logger}
}

// Pair holds the compiled artifact paths.
type Pair struct {
	QuestionsPDF string
	AnswersPDF   string
}

// CompilePair renders both documents and compiles them in parallel. Either
// document exhausting its attempts fails the stage.
func (s *Stage) CompilePair(ctx context.Context, title string, entries []Entry, dir string) (Pair, error) {
	qSrc := RenderQuestions(title, entries)
	aSrc := RenderMarkScheme(title, entries)

	var pair Pair
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.compileWithRepair(gctx, qSrc, "questions", dir)
		pair.QuestionsPDF = p
		return err
	})
	g.Go(func() error {
		p, err := s.compileWithRepair(gctx, aSrc, "answers", dir)
		pair.AnswersPDF = p
		return err
	})
	if err := g.Wait(); err != nil {
		return Pair{}, err
	}
	return pair, nil
}

// compileWithRepair runs the bounded attempt loop. Each failed attempt feeds
// its diagnostic to the repair table and the next attempt compiles the
// rewritten source, so repairs compound.
func (s *Stage) compileWithRepair(ctx context.Context, source, baseName, dir string) (string, error) {
	var lastDiag string
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		start := time.Now()
		pdf, diag, err := s.compiler.Compile(ctx, source, baseName, dir)
		if err == nil {
			s.log.Info("compile.ok",
				"doc", baseName,
				"attempt", attempt,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return pdf, nil
		}
		lastDiag = diag

		if attempt == s.cfg.Attempts {
			break
		}
		repaired, rule := Repair(diag, source)
		s.log.Warn("compile.attempt_failed",
			"doc", baseName,
			"attempt", attempt,
			"repair", rule,
			"diagnostic", execx.Truncate(diag, 512),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		source = repaired
	}
	return "", common.NewAppError("COMPILE", "compile attempts exhausted for "+baseName+": "+execx.Truncate(lastDiag, 512), common.ErrCompileExhausted)
}
