// Package generate produces one question and one mark-scheme answer per
// blueprint slot, fanning the work out over a bounded pool and recombining
// results by position.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/blueprint"
	"github.com/paperforge/paperforge/internal/common"
	"github.com/paperforge/paperforge/internal/llm"
	"github.com/paperforge/paperforge/internal/summarize"
)

// Item is one finished position of the paper.
type Item struct {
	Slot        blueprint.Slot
	Question    llm.Question
	Answer      llm.Answer
	Regenerated bool // the first draft was judged trivial and replaced
}

// Config for the stage.
type Config struct {
	Workers      int           // parallel slots, default 2
	QMaxTokens   int           // question output cap
	AMaxTokens   int           // answer output cap
	RetryBackoff time.Duration // pause before the single retry
}

type Stage struct {
	cfg Config
	gen llm.Generator
	log *slog.Logger
}

func NewStage(cfg Config, gen llm.Generator, logger *slog.Logger) *Stage {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QMaxTokens <= 0 {
		cfg.QMaxTokens = 4_000
	}
	if cfg.AMaxTokens <= 0 {
		cfg.AMaxTokens = 2_500
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	return &Stage{cfg: cfg, gen: gen, log: loggerOr(logger)}
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// Run covers every slot or fails the stage. cancelled is polled before each
// dispatch; calls already in flight finish and their results are discarded.
// onDone, when non-nil, is called after each slot finishes with the number
// completed so far and the total. The stage itself holds no per-run state,
// so one Stage serves concurrent jobs.
func (s *Stage) Run(ctx context.Context, slots []blueprint.Slot, digest string, cancelled func() bool, onDone func(done, total int)) ([]Item, error) {
	start := time.Now()
	s.log.Info("generate.start", "slots", len(slots), "workers", s.cfg.Workers, "digest_chars", len(digest))

	items := make([]Item, len(slots))
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, slot := range slots {
		if cancelled != nil && cancelled() {
			return nil, common.ErrCancelled
		}
		g.Go(func() error {
			item, err := s.runSlot(gctx, slot, digest)
			if err != nil {
				return err
			}
			items[i] = item
			if onDone != nil {
				onDone(int(done.Add(1)), len(slots))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, common.ErrCancelled) {
			return nil, err
		}
		return nil, common.NewAppError("COVERAGE", err.Error(), common.ErrCoverage)
	}
	if cancelled != nil && cancelled() {
		return nil, common.ErrCancelled
	}

	s.log.Info("generate.ok", "slots", len(slots), "elapsed_ms", time.Since(start).Milliseconds())
	return items, nil
}

func (s *Stage) runSlot(ctx context.Context, slot blueprint.Slot, digest string) (Item, error) {
	profile := summarize.ProfileFor(slot.Difficulty)
	wordMin, wordMax := summarize.AnswerWordRange(slot.Type, slot.Difficulty)

	req := llm.QuestionRequest{
		Type:         slot.Type,
		Difficulty:   slot.Difficulty,
		Digest:       digest,
		Instructions: slot.Instructions,
		Position:     slot.Position,
		WordMin:      wordMin,
		WordMax:      wordMax,
		Temperature:  profile.QuestionTemp,
		MaxTokens:    s.cfg.QMaxTokens,
	}

	q, err := s.questionWithRetry(ctx, req)
	if err != nil {
		return Item{}, fmt.Errorf("question %d: %w", slot.Position, err)
	}

	item := Item{Slot: slot, Question: q}
	if trivial(q, slot, profile) {
		s.log.Warn("generate.trivial_draft", "position", slot.Position, "type", slot.Type, "prompt_words", wordCount(q.Prompt))
		amended := req
		amended.Instructions = joinGuidance(req.Instructions,
			"The previous draft was too trivial for this difficulty. Write a more demanding question.")
		q2, err := s.questionWithRetry(ctx, amended)
		if err == nil {
			// one amended regeneration, accepted as-is
			item.Question = q2
			item.Regenerated = true
		}
	}

	a, err := s.answerWithRetry(ctx, llm.AnswerRequest{
		Type:      slot.Type,
		Question:  item.Question,
		Digest:    digest,
		MaxTokens: s.cfg.AMaxTokens,
	})
	if err != nil {
		return Item{}, fmt.Errorf("answer %d: %w", slot.Position, err)
	}
	item.Answer = a
	return item, nil
}

func (s *Stage) questionWithRetry(ctx context.Context, req llm.QuestionRequest) (llm.Question, error) {
	q, _, err := s.gen.GenerateQuestion(ctx, req)
	if err == nil || !retryable(err) {
		return q, err
	}
	s.log.Warn("generate.question.retry", "position", req.Position, "error", err)
	sleep(ctx, s.cfg.RetryBackoff)
	q, _, err = s.gen.GenerateQuestion(ctx, req)
	return q, err
}

func (s *Stage) answerWithRetry(ctx context.Context, req llm.AnswerRequest) (llm.Answer, error) {
	a, _, err := s.gen.GenerateAnswer(ctx, req)
	if err == nil || !retryable(err) {
		return a, err
	}
	s.log.Warn("generate.answer.retry", "error", err)
	sleep(ctx, s.cfg.RetryBackoff)
	a, _, err = s.gen.GenerateAnswer(ctx, req)
	return a, err
}

func retryable(err error) bool {
	var ge *llm.GenerationError
	return errors.As(err, &ge) && ge.Kind.Retryable()
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// trivial flags drafts that cannot carry the requested difficulty: a prompt
// shorter than the profile floor, or an MCQ without enough options.
func trivial(q llm.Question, slot blueprint.Slot, p summarize.Profile) bool {
	if slot.Type == constants.QuestionMCQ && len(q.Options) < 3 {
		return true
	}
	return wordCount(q.Prompt) < p.PromptWordMin
}

func wordCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

func joinGuidance(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + " " + extra
}
