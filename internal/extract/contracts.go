package extract

import (
	"context"
	"fmt"

	"github.com/paperforge/paperforge/constants"
)

// SourceFile is one uploaded file. Bytes are owned transiently by the corpus
// build and discarded after extraction.
type SourceFile struct {
	Name   string
	Format constants.FileFormat // declared from the extension
	Data   []byte
}

// Metadata describes how a file's text was recovered.
type Metadata struct {
	Format       constants.FileFormat
	Pages        int
	Paragraphs   int
	FallbackUsed bool // a secondary recovery path produced the text
}

// ErrorKind classifies per-file extraction failures.
type ErrorKind string

const (
	KindCorrupt           ErrorKind = "Corrupt"
	KindEncrypted         ErrorKind = "Encrypted"
	KindEmpty             ErrorKind = "Empty"
	KindTooLarge          ErrorKind = "TooLarge"
	KindUnsupportedFormat ErrorKind = "UnsupportedFormat"
)

// Error is a typed per-file failure. The corpus build degrades these to
// warnings; they only fail the job when no file yields usable text.
type Error struct {
	Kind ErrorKind
	File string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a typed extraction failure.
func NewError(kind ErrorKind, file string, err error) *Error {
	return &Error{Kind: kind, File: file, Err: err}
}

// TextExtractor converts one file into normalized text plus metadata, or a
// typed failure. Implementations are pure per file and hold no shared state.
type TextExtractor interface {
	Extract(ctx context.Context, file SourceFile) (string, Metadata, error)
}
