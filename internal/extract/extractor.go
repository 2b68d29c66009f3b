package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/execx"
)

// Config for the extractor.
type Config struct {
	Pdftotext    string // binary name or absolute path; if empty -> "pdftotext"
	MaxPages     int    // page cap for PDFs, 0 = no limit
	CharLimit    int    // per-file extracted character cap
	MaxFileBytes int64  // per-file raw size cap
	Timeout      time.Duration
}

// Extractor picks a recovery strategy based on the declared format, after
// sniffing the leading bytes so a mislabeled file fails with a typed error
// instead of corrupting the corpus.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.CharLimit <= 0 {
		cfg.CharLimit = 1_000_000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Extractor{cfg: cfg, runner: execx.ExecRunner{}, logger: logger}
}

// WithRunner swaps the subprocess runner; used by tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

func (e *Extractor) Extract(ctx context.Context, file SourceFile) (string, Metadata, error) {
	if e.cfg.MaxFileBytes > 0 && int64(len(file.Data)) > e.cfg.MaxFileBytes {
		return "", Metadata{}, NewError(KindTooLarge, file.Name,
			fmt.Errorf("%d bytes exceeds limit %d", len(file.Data), e.cfg.MaxFileBytes))
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	e.logger.Debug("extraction start", "file", file.Name, "format", file.Format, "bytes", len(file.Data))
	switch file.Format {
	case constants.PDF:
		if !bytes.HasPrefix(file.Data, []byte("%PDF-")) {
			return "", Metadata{}, NewError(KindUnsupportedFormat, file.Name,
				fmt.Errorf("content does not match declared format"))
		}
		return e.extractPDF(ctx, file)
	case constants.RTF:
		if !bytes.HasPrefix(file.Data, []byte(`{\rtf`)) {
			return "", Metadata{}, NewError(KindUnsupportedFormat, file.Name,
				fmt.Errorf("content does not match declared format"))
		}
		return e.extractRTF(file)
	case constants.TXT:
		return e.extractTXT(file)
	}
	return "", Metadata{}, NewError(KindUnsupportedFormat, file.Name,
		fmt.Errorf("unsupported format %q", file.Format))
}

// extractTXT decodes UTF-8, falling back to UTF-16 when a BOM is present or
// the bytes do not form valid UTF-8.
func (e *Extractor) extractTXT(file SourceFile) (string, Metadata, error) {
	meta := Metadata{Format: constants.TXT}
	data := file.Data

	text := ""
	if utf8.Valid(data) && !bytes.HasPrefix(data, []byte{0xFF, 0xFE}) && !bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		text = strings.TrimPrefix(string(data), "\uFEFF")
	} else {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		decoded, err := dec.Bytes(data)
		if err != nil {
			return "", meta, NewError(KindCorrupt, file.Name, fmt.Errorf("decode text: %w", err))
		}
		text = string(decoded)
		meta.FallbackUsed = true
	}

	text = e.cap(text)
	if strings.TrimSpace(text) == "" {
		return "", meta, NewError(KindEmpty, file.Name, nil)
	}
	meta.Paragraphs = countParagraphs(text)
	return text, meta, nil
}

func (e *Extractor) cap(s string) string {
	if len(s) > e.cfg.CharLimit {
		return s[:e.cfg.CharLimit]
	}
	return s
}

func countParagraphs(s string) int {
	n := 0
	for _, p := range strings.Split(s, "\n\n") {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}
