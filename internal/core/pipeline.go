package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/blueprint"
	"github.com/paperforge/paperforge/internal/common"
	"github.com/paperforge/paperforge/internal/generate"
	"github.com/paperforge/paperforge/internal/job"
	"github.com/paperforge/paperforge/internal/texdoc"
)

// Percent milestones. Each stage owns a slice of the bar; the registry keeps
// the value monotonic so late stragglers can never move it backwards.
const (
	pctStart        = 2
	pctExtracting   = 10
	pctExtractDone  = 25
	pctPlanned      = 35
	pctSummarizing  = 48
	pctDigestReady  = 55
	pctGenerateSpan = 30 // 55..85
	pctCompiling    = 90
)

// Run executes the full pipeline for a registered job. All state flows
// through the registry; the return value is for the queue's logging only.
func (c *Controller) Run(ctx context.Context, id uuid.UUID, req SubmitRequest) error {
	c.registry.Start(id)
	c.registry.SetProgress(id, pctStart, 0, "Starting")

	cancelled := func() bool { return c.registry.Cancelled(id) }
	if cancelled() {
		c.registry.MarkCancelled(id)
		return common.ErrCancelled
	}

	err := c.run(ctx, id, req, cancelled)
	if err == nil {
		c.registry.Succeed(id)
		return nil
	}
	if errors.Is(err, common.ErrCancelled) {
		c.registry.MarkCancelled(id)
		c.log.Info("job.cancelled", "job_id", id)
		return err
	}
	code, msg, diag := failureFor(err)
	c.registry.Fail(id, code, msg, diag)
	c.log.Error("job.failed", "job_id", id, "code", code, "error", err)
	return err
}

func (c *Controller) run(ctx context.Context, id uuid.UUID, req SubmitRequest, cancelled func() bool) error {
	// the plan is pure and cheap; resolving it first lets extraction know
	// whether math-dense material deserves cap priority
	slots := blueprint.Plan(req.Blueprint)
	wantMath := blueprint.WantsMath(slots)

	// extract
	c.registry.SetStage(id, constants.StageExtract)
	c.registry.SetProgress(id, pctExtracting, 1, "Reading files")
	stageStart := time.Now()
	crp, err := c.builder.Build(ctx, req.Files, wantMath)
	c.registry.SetTiming(id, constants.StageExtract, time.Since(stageStart))
	if err != nil {
		return err
	}
	for _, w := range crp.Warnings {
		c.registry.AddWarning(id, w.String())
	}
	c.registry.SetProgress(id, pctExtractDone, 1, "Files processed")
	if cancelled() {
		return common.ErrCancelled
	}

	// plan + summarize
	c.registry.SetStage(id, constants.StageSummarize)
	c.registry.SetProgress(id, pctPlanned, 2, "Planning paper")
	stageStart = time.Now()
	c.registry.SetProgress(id, pctSummarizing, 2, "Condensing sources")
	digest, err := c.summarizer.Digest(ctx, crp, planDifficulty(req.Blueprint), wantMath, cancelled)
	c.registry.SetTiming(id, constants.StageSummarize, time.Since(stageStart))
	if err != nil {
		return err
	}
	c.registry.SetProgress(id, pctDigestReady, 2, "Digest ready")
	if cancelled() {
		return common.ErrCancelled
	}

	// generate
	c.registry.SetStage(id, constants.StageGenerate)
	c.registry.SetProgress(id, pctDigestReady, 3, "Writing questions")
	onSlot := func(done, total int) {
		pct := pctDigestReady + pctGenerateSpan*done/total
		c.registry.SetProgress(id, pct, 3, fmt.Sprintf("Writing questions (%d/%d)", done, total))
	}
	stageStart = time.Now()
	items, err := c.genStage.Run(ctx, slots, digest.Text, cancelled, onSlot)
	c.registry.SetTiming(id, constants.StageGenerate, time.Since(stageStart))
	if err != nil {
		return err
	}
	if cancelled() {
		return common.ErrCancelled
	}

	// compile
	c.registry.SetStage(id, constants.StageCompile)
	c.registry.SetProgress(id, pctCompiling, 4, "Compiling documents")
	dir := filepath.Join(c.cfg.Pipeline.OutputDir, id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	entries := toEntries(items)
	title := req.Blueprint.Title
	if title == "" {
		title = "Question Paper"
	}
	stageStart = time.Now()
	pair, err := c.texStage.CompilePair(ctx, title, entries, dir)
	c.registry.SetTiming(id, constants.StageCompile, time.Since(stageStart))
	if err != nil {
		return err
	}

	c.registry.SetArtifact(id, job.ArtifactQuestions, pair.QuestionsPDF)
	c.registry.SetArtifact(id, job.ArtifactAnswers, pair.AnswersPDF)
	c.storeResult(id, items, crp)
	return nil
}

func toEntries(items []generate.Item) []texdoc.Entry {
	entries := make([]texdoc.Entry, len(items))
	for i, item := range items {
		entries[i] = texdoc.Entry{
			Position:      item.Slot.Position,
			Type:          item.Slot.Type,
			Prompt:        item.Question.Prompt,
			Options:       item.Question.Options,
			CorrectIndex:  item.Question.CorrectIndex,
			Solution:      item.Answer.Solution,
			MarkingPoints: item.Answer.MarkingPoints,
		}
	}
	return entries
}

func planDifficulty(bp blueprint.Blueprint) constants.Difficulty {
	if d := constants.NormalizeDifficulty(bp.Difficulty); d != "" {
		return d
	}
	return constants.DifficultyMedium
}

func failureFor(err error) (code, message, diagnostic string) {
	var ae *common.AppError
	if errors.As(err, &ae) {
		return ae.Code, ae.Message, causeText(ae)
	}
	switch {
	case errors.Is(err, common.ErrNoUsableContent):
		return "NO_USABLE_CONTENT", "none of the uploaded files contained usable text", err.Error()
	case errors.Is(err, common.ErrValidation):
		return "VALIDATION", "the request was invalid", err.Error()
	case errors.Is(err, common.ErrCoverage):
		return "COVERAGE", "could not produce every requested question", err.Error()
	case errors.Is(err, common.ErrCompileExhausted):
		return "COMPILE", "the documents could not be compiled", err.Error()
	default:
		return "INTERNAL", "an internal error occurred", err.Error()
	}
}

func causeText(ae *common.AppError) string {
	if ae.Cause != nil {
		return ae.Cause.Error()
	}
	return ""
}
