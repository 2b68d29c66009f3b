package texdoc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/paperforge/paperforge/internal/execx"
)

// Runner lets us stub the TeX engine in tests. Production code uses
// execx.ExecRunner.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

var _ Runner = execx.ExecRunner{}

// CompilerConfig for the tectonic wrapper.
type CompilerConfig struct {
	Command string // binary name or absolute path; if empty -> "tectonic"
	Timeout time.Duration
}

// Compiler shells out to tectonic for one source at a time.
type Compiler struct {
	cfg    CompilerConfig
	runner Runner
	log    *slog.Logger
}

func NewCompiler(cfg CompilerConfig, logger *slog.Logger) *Compiler {
	if cfg.Command == "" {
		cfg.Command = "tectonic"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{cfg: cfg, runner: execx.ExecRunner{}, log: logger}
}

// WithRunner swaps the subprocess runner; used by tests.
func (c *Compiler) WithRunner(r Runner) *Compiler {
	c.runner = r
	return c
}

// Compile writes source as <baseName>.tex under dir and runs the engine.
// On failure the returned diagnostic holds the error tail of the engine
// output for the repair table to match on.
func (c *Compiler) Compile(ctx context.Context, source, baseName, dir string) (pdfPath, diagnostic string, err error) {
	texPath := filepath.Join(dir, baseName+".tex")
	if err := os.WriteFile(texPath, []byte(source), 0o644); err != nil {
		return "", "", fmt.Errorf("write tex source: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	out, errb, runErr := c.runner.Run(ctx, c.cfg.Command, texPath, "--outdir", dir)
	if runErr != nil {
		diag := DiagnosticTail(string(errb)+"\n"+string(out), 20)
		return "", diag, fmt.Errorf("%s: %w", filepath.Base(c.cfg.Command), runErr)
	}

	pdfPath = filepath.Join(dir, baseName+".pdf")
	if _, statErr := os.Stat(pdfPath); statErr != nil {
		return "", "engine reported success but produced no PDF", fmt.Errorf("missing output: %w", statErr)
	}
	return pdfPath, "", nil
}
