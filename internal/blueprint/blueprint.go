// Package blueprint validates the requested paper shape and expands it into
// one concrete slot per question position.
package blueprint

import (
	"strings"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/common"
)

// Override pins one position to a type or difficulty, or adds author
// guidance for it.
type Override struct {
	Position     int    `json:"position"` // 1-based
	Type         string `json:"type,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Blueprint is the author's request for a paper.
type Blueprint struct {
	Title         string     `json:"title,omitempty"`
	QuestionCount int        `json:"question_count"`
	Difficulty    string     `json:"difficulty,omitempty"` // defaults to medium
	Types         []string   `json:"types,omitempty"`      // cycle order; defaults to long,short,mcq,math
	Overrides     []Override `json:"overrides,omitempty"`
}

// Slot is one fully resolved question position.
type Slot struct {
	Position     int // 1-based
	Type         constants.QuestionType
	Difficulty   constants.Difficulty
	Instructions string
}

// Limits bound what a blueprint may ask for.
type Limits struct {
	MaxQuestions      int
	MaxTitleLen       int
	MaxInstructionLen int
}

// Validate rejects a malformed blueprint before any stage runs.
func Validate(bp Blueprint, lim Limits) error {
	if bp.QuestionCount < 1 {
		return common.ValidationErrorf("question_count must be at least 1, got %d", bp.QuestionCount)
	}
	if lim.MaxQuestions > 0 && bp.QuestionCount > lim.MaxQuestions {
		return common.ValidationErrorf("question_count %d exceeds limit %d", bp.QuestionCount, lim.MaxQuestions)
	}
	if lim.MaxTitleLen > 0 && len(bp.Title) > lim.MaxTitleLen {
		return common.ValidationErrorf("title exceeds %d characters", lim.MaxTitleLen)
	}
	if bp.Difficulty != "" && constants.NormalizeDifficulty(bp.Difficulty) == "" {
		return common.ValidationErrorf("unknown difficulty %q", bp.Difficulty)
	}
	for _, t := range bp.Types {
		if constants.NormalizeType(t) == "" {
			return common.ValidationErrorf("unknown question type %q", t)
		}
	}

	seen := make(map[int]bool, len(bp.Overrides))
	for _, o := range bp.Overrides {
		if o.Position < 1 || o.Position > bp.QuestionCount {
			return common.ValidationErrorf("override position %d out of range 1..%d", o.Position, bp.QuestionCount)
		}
		if seen[o.Position] {
			return common.ValidationErrorf("duplicate override for position %d", o.Position)
		}
		seen[o.Position] = true
		if o.Type != "" && constants.NormalizeType(o.Type) == "" {
			return common.ValidationErrorf("unknown question type %q at position %d", o.Type, o.Position)
		}
		if o.Difficulty != "" && constants.NormalizeDifficulty(o.Difficulty) == "" {
			return common.ValidationErrorf("unknown difficulty %q at position %d", o.Difficulty, o.Position)
		}
		if lim.MaxInstructionLen > 0 && len(o.Instructions) > lim.MaxInstructionLen {
			return common.ValidationErrorf("instructions at position %d exceed %d characters", o.Position, lim.MaxInstructionLen)
		}
	}
	return nil
}

// Plan expands a validated blueprint into slots. Types cycle round-robin in
// the requested (or default) order, then per-position overrides are applied
// on top.
func Plan(bp Blueprint) []Slot {
	diff := constants.NormalizeDifficulty(bp.Difficulty)
	if diff == "" {
		diff = constants.DifficultyMedium
	}

	cycle := make([]constants.QuestionType, 0, len(bp.Types))
	for _, t := range bp.Types {
		if qt := constants.NormalizeType(t); qt != "" {
			cycle = append(cycle, qt)
		}
	}
	if len(cycle) == 0 {
		cycle = constants.DefaultTypeOrder
	}

	byPos := make(map[int]Override, len(bp.Overrides))
	for _, o := range bp.Overrides {
		byPos[o.Position] = o
	}

	slots := make([]Slot, bp.QuestionCount)
	for i := range slots {
		pos := i + 1
		s := Slot{
			Position:   pos,
			Type:       cycle[i%len(cycle)],
			Difficulty: diff,
		}
		if o, ok := byPos[pos]; ok {
			if o.Type != "" {
				s.Type = constants.NormalizeType(o.Type)
			}
			if o.Difficulty != "" {
				s.Difficulty = constants.NormalizeDifficulty(o.Difficulty)
			}
			s.Instructions = strings.TrimSpace(o.Instructions)
		}
		slots[i] = s
	}
	return slots
}

// WantsMath reports whether any slot will ask for a computational question.
func WantsMath(slots []Slot) bool {
	for _, s := range slots {
		if s.Type == constants.QuestionMath {
			return true
		}
	}
	return false
}
