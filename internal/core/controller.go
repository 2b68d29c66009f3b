// Package core owns the job lifecycle: validating submissions, running the
// staged pipeline and serving results back to the presentation layer.
package core

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/blueprint"
	"github.com/paperforge/paperforge/internal/common"
	"github.com/paperforge/paperforge/internal/corpus"
	"github.com/paperforge/paperforge/internal/export"
	"github.com/paperforge/paperforge/internal/extract"
	"github.com/paperforge/paperforge/internal/generate"
	"github.com/paperforge/paperforge/internal/job"
	"github.com/paperforge/paperforge/internal/llm"
	"github.com/paperforge/paperforge/internal/summarize"
	"github.com/paperforge/paperforge/internal/texdoc"
)

// SubmitRequest is a validated-on-entry paper request.
type SubmitRequest struct {
	Blueprint blueprint.Blueprint
	Files     []extract.SourceFile
}

// paperResult keeps what the manifest needs after a job succeeds.
type paperResult struct {
	items []generate.Item
	crp   *corpus.Corpus
}

// Controller wires the stages together and is the only writer of job state.
type Controller struct {
	cfg        *common.Config
	registry   *job.Registry
	builder    *corpus.Builder
	summarizer *summarize.Summarizer
	genStage   *generate.Stage
	texStage   *texdoc.Stage
	exporter   *export.Service
	log        *slog.Logger

	mu      sync.Mutex
	results map[uuid.UUID]*paperResult
}

func NewController(cfg *common.Config, registry *job.Registry, gen llm.Generator, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	extractor := extract.NewExtractor(extract.Config{
		MaxPages:     cfg.Limits.MaxPDFPages,
		CharLimit:    cfg.Limits.MaxTotalChars,
		MaxFileBytes: cfg.Limits.MaxFileBytes,
	}, logger)

	compiler := texdoc.NewCompiler(texdoc.CompilerConfig{
		Command: cfg.Compiler.Command,
		Timeout: cfg.Compiler.Timeout,
	}, logger)

	return &Controller{
		cfg:      cfg,
		registry: registry,
		builder: corpus.NewBuilder(corpus.Config{
			Workers:      cfg.Pipeline.ExtractWorkers,
			TotalCharCap: cfg.Limits.MaxTotalChars,
		}, extractor, logger),
		summarizer: summarize.NewSummarizer(summarize.Config{
			BaseTokens: cfg.Pipeline.SummaryTokensPerUnit,
			MinTokens:  cfg.Pipeline.SummaryTokensMin,
			MaxTokens:  cfg.Pipeline.SummaryTokensMax,
			InputCap:   cfg.Pipeline.InputTokenCap,
			OutScale:   float64(cfg.LLM.SummaryOutScale),
			Workers:    cfg.Pipeline.ExtractWorkers,
		}, gen, logger),
		genStage: generate.NewStage(generate.Config{
			Workers:    cfg.Pipeline.GenerateWorkers,
			QMaxTokens: cfg.LLM.QuestionOutCap,
			AMaxTokens: cfg.LLM.AnswerOutCap,
		}, gen, logger),
		texStage: texdoc.NewStage(texdoc.StageConfig{
			Attempts: cfg.Compiler.MaxAttempts,
		}, compiler, logger),
		exporter: export.NewService(logger),
		log:      logger,
		results:  make(map[uuid.UUID]*paperResult),
	}
}

// WithStages swaps the stage implementations; used by tests.
func (c *Controller) WithStages(b *corpus.Builder, s *summarize.Summarizer, g *generate.Stage, t *texdoc.Stage) *Controller {
	if b != nil {
		c.builder = b
	}
	if s != nil {
		c.summarizer = s
	}
	if g != nil {
		c.genStage = g
	}
	if t != nil {
		c.texStage = t
	}
	return c
}

// Register validates a submission and creates the queued job entry. The
// caller hands the returned id plus the request to the queue.
func (c *Controller) Register(req SubmitRequest) (uuid.UUID, error) {
	if err := c.validate(req); err != nil {
		return uuid.Nil, err
	}
	title := req.Blueprint.Title
	if title == "" {
		title = "Question Paper"
	}
	id := c.registry.Create(title, len(req.Files), req.Blueprint.QuestionCount)
	c.log.Info("job.registered",
		"job_id", id,
		"title", title,
		"files", len(req.Files),
		"questions", req.Blueprint.QuestionCount,
	)
	return id, nil
}

func (c *Controller) validate(req SubmitRequest) error {
	lim := c.cfg.Limits
	if len(req.Files) == 0 {
		return common.ValidationError("at least one file is required")
	}
	if len(req.Files) > lim.MaxFiles {
		return common.ValidationErrorf("%d files exceeds limit %d", len(req.Files), lim.MaxFiles)
	}
	var total int64
	for _, f := range req.Files {
		if f.Format == "" {
			return common.ValidationErrorf("unsupported file type: %s", f.Name)
		}
		size := int64(len(f.Data))
		if size > lim.MaxFileBytes {
			return common.ValidationErrorf("%s exceeds the per-file size limit", f.Name)
		}
		total += size
	}
	if total > lim.MaxTotalBytes {
		return common.ValidationError("upload exceeds the total size limit")
	}
	return blueprint.Validate(req.Blueprint, blueprint.Limits{
		MaxQuestions:      lim.MaxQuestions,
		MaxTitleLen:       lim.MaxTitleLen,
		MaxInstructionLen: lim.MaxInstructionLen,
	})
}

// Poll returns the job snapshot.
func (c *Controller) Poll(id uuid.UUID) (job.Snapshot, error) {
	snap, ok := c.registry.Snapshot(id)
	if !ok {
		return job.Snapshot{}, common.ErrNotFound
	}
	return snap, nil
}

// LatestCompleted returns the newest succeeded job, so a client that lost its
// job id can still find the last finished paper.
func (c *Controller) LatestCompleted() (job.Snapshot, error) {
	snap, ok := c.registry.MostRecentCompleted()
	if !ok {
		return job.Snapshot{}, common.ErrNotFound
	}
	return snap, nil
}

// Cancel flags the job for cooperative cancellation. Cancelling a terminal
// job is a no-op; unknown jobs are an error.
func (c *Controller) Cancel(id uuid.UUID) error {
	if !c.registry.Exists(id) {
		return common.ErrNotFound
	}
	if c.registry.Cancel(id) {
		c.log.Info("job.cancel_requested", "job_id", id)
	}
	return nil
}

// ArtifactPath resolves the on-disk path of a produced artifact.
func (c *Controller) ArtifactPath(id uuid.UUID, kind job.ArtifactKind) (string, error) {
	snap, ok := c.registry.Snapshot(id)
	if !ok {
		return "", common.ErrNotFound
	}
	path, ok := snap.Artifacts[kind]
	if !ok {
		return "", fmt.Errorf("artifact %s: %w", kind, common.ErrNotFound)
	}
	return path, nil
}

// ManifestXLSX builds the manifest workbook for a finished job.
func (c *Controller) ManifestXLSX(id uuid.UUID) ([]byte, error) {
	snap, ok := c.registry.Snapshot(id)
	if !ok {
		return nil, common.ErrNotFound
	}
	if snap.Status != constants.JobStatusSucceeded {
		return nil, common.NewAppError("NOT_READY", "job has no manifest yet", common.ErrInvalidInput)
	}
	c.mu.Lock()
	res, ok := c.results[id]
	c.mu.Unlock()
	if !ok {
		return nil, common.ErrNotFound
	}
	return c.exporter.ManifestXLSX(snap, res.items, res.crp)
}

func (c *Controller) storeResult(id uuid.UUID, items []generate.Item, crp *corpus.Corpus) {
	c.mu.Lock()
	c.results[id] = &paperResult{items: items, crp: crp}
	c.mu.Unlock()
}

// PruneExpired drops retired jobs and their retained results.
func (c *Controller) PruneExpired() int {
	removed := c.registry.Prune()
	c.mu.Lock()
	for id := range c.results {
		if !c.registry.Exists(id) {
			delete(c.results, id)
		}
	}
	c.mu.Unlock()
	return removed
}
