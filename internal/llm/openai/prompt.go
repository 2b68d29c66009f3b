package openai

import (
	"fmt"
	"strings"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/llm"
)

func buildSummarySystemPrompt(req llm.SummaryRequest) string {
	parts := []string{
		"You are condensing study material into revision notes for exam authoring.",
		"Write one fact per line as a plain bullet starting with '- '.",
		"Keep definitions, laws, relationships, named results and concrete figures. Drop filler and narrative.",
		fmt.Sprintf("Target roughly %d tokens in total.", req.TargetTokens),
	}
	if req.MathDense {
		parts = append(parts,
			"Preserve formulas and symbols exactly. Use LaTeX inline math \\( ... \\) for every expression.")
	}
	parts = append(parts, "Do not number the bullets. Do not add headings or commentary.")
	return strings.Join(parts, " ")
}

func buildQuestionSystemPrompt(req llm.QuestionRequest) string {
	parts := []string{
		"You are an exam author. Write exactly one question grounded ONLY in the supplied study notes.",
		"Never ask about material absent from the notes.",
		"Use LaTeX inline math \\( ... \\) for any mathematics. Never use bare $ delimiters.",
	}

	switch req.Type {
	case constants.QuestionLong:
		parts = append(parts,
			"The question must require an extended written answer with explanation or derivation.",
			fmt.Sprintf("A strong answer should need %d-%d words.", req.WordMin, req.WordMax))
	case constants.QuestionShort:
		parts = append(parts,
			"The question must be answerable in a few sentences.",
			fmt.Sprintf("A strong answer should need %d-%d words.", req.WordMin, req.WordMax))
	case constants.QuestionMCQ:
		parts = append(parts,
			"Write a multiple-choice question with 4 options.",
			"Exactly one option is correct. Distractors must be plausible mistakes, not jokes.",
			"Report the 0-based index of the correct option in correct_index.")
	case constants.QuestionMath:
		parts = append(parts,
			"Write a computational problem solvable with only the facts and formulas in the notes.",
			"State all given values with units. The problem must have a single numeric or closed-form result.")
	}

	switch req.Difficulty {
	case constants.DifficultyEasy:
		parts = append(parts, "Difficulty: easy. Test direct recall or a single-step application.")
	case constants.DifficultyHard:
		parts = append(parts, "Difficulty: hard. Require combining two or more facts, or a multi-step derivation.")
	default:
		parts = append(parts, "Difficulty: medium. Require understanding beyond recall, but at most two steps.")
	}

	if s := strings.TrimSpace(req.Instructions); s != "" {
		parts = append(parts, "Author guidance for this question: "+s)
	}
	return strings.Join(parts, " ")
}

func buildQuestionUserPrompt(req llm.QuestionRequest) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("This is question %d of the paper.\n\nStudy notes:\n", req.Position))
	b.WriteString(req.Digest)
	return b.String()
}

func buildAnswerSystemPrompt(req llm.AnswerRequest) string {
	parts := []string{
		"You are writing the mark scheme entry for one exam question.",
		"Give the complete model answer, then the discrete marking points an examiner would award.",
		"Use LaTeX inline math \\( ... \\) for any mathematics. Never use bare $ delimiters.",
	}
	switch req.Type {
	case constants.QuestionMCQ:
		parts = append(parts,
			"State the correct option letter and text first, then briefly explain why each distractor is wrong.")
	case constants.QuestionMath:
		parts = append(parts,
			"Show the full working step by step. State the final result with units.")
	}
	return strings.Join(parts, " ")
}

func buildAnswerUserPrompt(req llm.AnswerRequest) string {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(req.Question.Prompt)
	if len(req.Question.Options) > 0 {
		b.WriteString("\n\nOptions:\n")
		for i, opt := range req.Question.Options {
			b.WriteString(fmt.Sprintf("%c) %s\n", 'A'+i, opt))
		}
		b.WriteString(fmt.Sprintf("Correct option index: %d\n", req.Question.CorrectIndex))
	}
	b.WriteString("\n\nStudy notes the question was drawn from:\n")
	b.WriteString(req.Digest)
	return b.String()
}
