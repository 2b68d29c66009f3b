package llm

import (
	"context"
	"fmt"

	"github.com/paperforge/paperforge/constants"
)

// SummaryRequest asks for a condensed digest of one source text.
type SummaryRequest struct {
	Text         string
	TargetTokens int
	MathDense    bool
}

// QuestionRequest asks for a single exam question grounded in the digest.
type QuestionRequest struct {
	Type         constants.QuestionType
	Difficulty   constants.Difficulty
	Digest       string
	Instructions string // author guidance for this position, may be empty
	Position     int    // 1-based position in the paper
	WordMin      int
	WordMax      int
	Temperature  float32
	MaxTokens    int
}

// AnswerRequest asks for the model answer and marking points for a question.
type AnswerRequest struct {
	Type      constants.QuestionType
	Question  Question
	Digest    string
	MaxTokens int
}

// Question is the normalized shape we want back from the model.
type Question struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options,omitempty"`       // MCQ only, 3-5 entries
	CorrectIndex int      `json:"correct_index,omitempty"` // MCQ only, 0-based
}

// Answer carries the worked solution for the mark scheme.
type Answer struct {
	Solution      string   `json:"solution"`
	MarkingPoints []string `json:"marking_points,omitempty"`
}

// Generator is the interface the pipeline depends on.
type Generator interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
	GenerateQuestion(ctx context.Context, req QuestionRequest) (Question, []byte /*rawJSON*/, error)
	GenerateAnswer(ctx context.Context, req AnswerRequest) (Answer, []byte /*rawJSON*/, error)
}

// ErrorKind classifies generation failures so the caller can decide
// whether a retry is worth it.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindRateLimited ErrorKind = "rate_limited"
	KindMalformed   ErrorKind = "malformed"
	KindRefused     ErrorKind = "refused"
)

// GenerationError wraps a provider failure with its kind.
type GenerationError struct {
	Kind ErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func NewGenerationError(kind ErrorKind, err error) *GenerationError {
	return &GenerationError{Kind: kind, Err: err}
}

// Retryable reports whether a failure of this kind may succeed on a
// second attempt. Malformed output and refusals are sticky.
func (k ErrorKind) Retryable() bool {
	return k == KindTimeout || k == KindRateLimited
}
