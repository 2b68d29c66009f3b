package summarize

import "github.com/paperforge/paperforge/constants"

// Profile tunes how much digest a difficulty earns and how adventurous the
// question model is allowed to be.
type Profile struct {
	TokenScale    float64 // multiplier on the per-unit summary budget
	QuestionTemp  float32 // sampling temperature for question generation
	PromptWordMin int     // question statement length guidance
	PromptWordMax int
}

var profiles = map[constants.Difficulty]Profile{
	constants.DifficultyEasy:   {TokenScale: 0.80, QuestionTemp: 0.25, PromptWordMin: 12, PromptWordMax: 18},
	constants.DifficultyMedium: {TokenScale: 1.00, QuestionTemp: 0.40, PromptWordMin: 15, PromptWordMax: 25},
	constants.DifficultyHard:   {TokenScale: 1.25, QuestionTemp: 0.60, PromptWordMin: 20, PromptWordMax: 35},
}

// ProfileFor returns the tuning profile, defaulting to medium.
func ProfileFor(d constants.Difficulty) Profile {
	if p, ok := profiles[d]; ok {
		return p
	}
	return profiles[constants.DifficultyMedium]
}

// AnswerWordRange returns the expected answer length for a question type at a
// difficulty. MCQ has no free-text answer so it shares the prompt guidance.
func AnswerWordRange(qt constants.QuestionType, d constants.Difficulty) (int, int) {
	switch qt {
	case constants.QuestionLong:
		switch d {
		case constants.DifficultyEasy:
			return 40, 80
		case constants.DifficultyHard:
			return 70, 120
		default:
			return 50, 100
		}
	case constants.QuestionShort:
		switch d {
		case constants.DifficultyEasy:
			return 8, 15
		case constants.DifficultyHard:
			return 12, 25
		default:
			return 10, 20
		}
	default: // mcq, math
		p := ProfileFor(d)
		return p.PromptWordMin, p.PromptWordMax
	}
}
