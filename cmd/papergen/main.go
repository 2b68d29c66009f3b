// papergen runs a single paper job over local files and writes the compiled
// PDFs plus the manifest workbook, without starting the daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/blueprint"
	"github.com/paperforge/paperforge/internal/common"
	"github.com/paperforge/paperforge/internal/core"
	"github.com/paperforge/paperforge/internal/extract"
	"github.com/paperforge/paperforge/internal/job"
	"github.com/paperforge/paperforge/internal/llm/openai"
)

// printError prints to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		bpPath     = flag.String("blueprint", "", "path to a blueprint JSON file (overrides the other paper flags)")
		title      = flag.String("title", "Question Paper", "paper title")
		count      = flag.Int("count", 10, "number of questions")
		difficulty = flag.String("difficulty", "medium", "paper difficulty: easy, medium or hard")
		types      = flag.String("types", "", "comma-separated question type cycle, e.g. long,short,mcq")
		out        = flag.String("out", "", "output directory (defaults to APP_OUTPUT_DIR)")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		printError("Usage: papergen [flags] file.txt [file.pdf ...]\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *out != "" {
		cfg.Pipeline.OutputDir = *out
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	bp, err := loadBlueprint(*bpPath, *title, *count, *difficulty, *types)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	files, err := loadFiles(flag.Args())
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	registry := job.NewRegistry(cfg.Pipeline.JobRetention, cfg.Pipeline.MaxJobs, logger)
	gen := openai.NewClient(openai.Config{
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		Model:        cfg.LLM.QuestionModel,
		SummaryModel: cfg.LLM.SummaryModel,
		Timeout:      cfg.LLM.Timeout,
	}, logger)
	ctrl := core.NewController(cfg, registry, gen, logger)

	req := core.SubmitRequest{Blueprint: bp, Files: files}
	id, err := ctrl.Register(req)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = ctrl.Cancel(id)
	}()

	// Progress on a single line while the pipeline runs.
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if snap, err := ctrl.Poll(id); err == nil {
					fmt.Printf("\r%3d%%  %-40s", snap.Percent, snap.Label)
				}
			}
		}
	}()

	runErr := ctrl.Run(ctx, id, req)
	close(done)
	fmt.Println()

	snap, err := ctrl.Poll(id)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	for _, w := range snap.Warnings {
		printError("warning: %s\n", w)
	}
	if runErr != nil || snap.Status != constants.JobStatusSucceeded {
		if snap.Failure != nil {
			printError("Error: %s: %s\n", snap.Failure.Code, snap.Failure.Message)
			if snap.Failure.Diagnostic != "" {
				printError("%s\n", snap.Failure.Diagnostic)
			}
		} else {
			printError("Error: job finished with status %s\n", snap.Status)
		}
		os.Exit(1)
	}

	fmt.Printf("questions: %s\n", snap.Artifacts[job.ArtifactQuestions])
	fmt.Printf("answers:   %s\n", snap.Artifacts[job.ArtifactAnswers])

	if data, err := ctrl.ManifestXLSX(id); err == nil {
		path := filepath.Join(filepath.Dir(snap.Artifacts[job.ArtifactQuestions]), "manifest.xlsx")
		if err := os.WriteFile(path, data, 0o644); err == nil {
			fmt.Printf("manifest:  %s\n", path)
		}
	}
}

func loadBlueprint(path, title string, count int, difficulty, types string) (blueprint.Blueprint, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return blueprint.Blueprint{}, err
		}
		return blueprint.Parse(data)
	}
	bp := blueprint.Blueprint{
		Title:         title,
		QuestionCount: count,
		Difficulty:    difficulty,
	}
	if types != "" {
		for _, t := range strings.Split(types, ",") {
			bp.Types = append(bp.Types, strings.TrimSpace(t))
		}
	}
	return bp, nil
}

func loadFiles(paths []string) ([]extract.SourceFile, error) {
	files := make([]extract.SourceFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, extract.SourceFile{
			Name:   filepath.Base(p),
			Format: constants.MapExtToFormat(filepath.Ext(p)),
			Data:   data,
		})
	}
	return files, nil
}
