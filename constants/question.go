package constants

import "strings"

// QuestionType is the kind of item the generator is asked to produce.
type QuestionType string

const (
	QuestionLong  QuestionType = "long"
	QuestionShort QuestionType = "short"
	QuestionMCQ   QuestionType = "mcq"
	QuestionMath  QuestionType = "math"
)

// DefaultTypeOrder drives the round-robin default blueprint when the caller
// only supplies a question count.
var DefaultTypeOrder = []QuestionType{QuestionLong, QuestionShort, QuestionMCQ, QuestionMath}

var typeAliases = map[string]QuestionType{
	"long":        QuestionLong,
	"short":       QuestionShort,
	"mcq":         QuestionMCQ,
	"math":        QuestionMath,
	"calc":        QuestionMath,
	"calculation": QuestionMath,
}

// NormalizeType maps user input to a canonical question type.
// Returns "" for unrecognized values.
func NormalizeType(v string) QuestionType {
	return typeAliases[strings.ToLower(strings.TrimSpace(v))]
}

// Difficulty of a question or of the whole paper.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// NormalizeDifficulty maps user input to a canonical difficulty.
// Returns "" for unrecognized values.
func NormalizeDifficulty(v string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	}
	return ""
}
