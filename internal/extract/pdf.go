package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/execx"
)

// extractPDF validates the document with pdfcpu first, so encrypted and
// structurally broken files get a typed failure before we spend a subprocess
// on them, then recovers text with pdftotext.
func (e *Extractor) extractPDF(ctx context.Context, file SourceFile) (string, Metadata, error) {
	meta := Metadata{Format: constants.PDF}

	tmp, err := os.CreateTemp("", "pf-pdf-*.pdf")
	if err != nil {
		return "", meta, fmt.Errorf("temp file: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			e.logger.Warn("failed to remove temp pdf", "path", tmp.Name(), "error", rmErr)
		}
	}()
	if _, err := tmp.Write(file.Data); err != nil {
		tmp.Close()
		return "", meta, fmt.Errorf("write temp pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", meta, fmt.Errorf("close temp pdf: %w", err)
	}

	pages, err := api.PageCountFile(tmp.Name())
	if err != nil {
		if isEncryptedErr(err) {
			return "", meta, NewError(KindEncrypted, file.Name, err)
		}
		return "", meta, NewError(KindCorrupt, file.Name, err)
	}
	meta.Pages = pages

	text, err := e.pdfToText(ctx, tmp.Name(), pages)
	if err != nil {
		return "", meta, NewError(KindCorrupt, file.Name, err)
	}
	text = e.cap(text)
	if strings.TrimSpace(text) == "" {
		// Scanned or image-only PDF; optical recovery is a separate capability.
		return "", meta, NewError(KindEmpty, file.Name, fmt.Errorf("no extractable text in %d pages", pages))
	}
	meta.Paragraphs = countParagraphs(text)
	return text, meta, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string, pages int) (string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix [-l N] <path> -
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if e.cfg.MaxPages > 0 && pages > e.cfg.MaxPages {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, "-")

	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, args...)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", filepath.Base(e.cfg.Pdftotext), err, execx.Truncate(string(errb), 512))
	}
	return string(out), nil
}

func isEncryptedErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}
