package summarize

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/common"
	"github.com/paperforge/paperforge/internal/corpus"
	"github.com/paperforge/paperforge/internal/llm"
)

// fakeGen returns fixed bullet summaries and records requests.
type fakeGen struct {
	mu   sync.Mutex
	reqs []llm.SummaryRequest
	out  map[string]string // keyed by a substring of the input text
}

func (f *fakeGen) Summarize(_ context.Context, req llm.SummaryRequest) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	for k, v := range f.out {
		if strings.Contains(req.Text, k) {
			return v, nil
		}
	}
	return "- generic fact", nil
}

func (f *fakeGen) GenerateQuestion(context.Context, llm.QuestionRequest) (llm.Question, []byte, error) {
	panic("not used")
}

func (f *fakeGen) GenerateAnswer(context.Context, llm.AnswerRequest) (llm.Answer, []byte, error) {
	panic("not used")
}

func unitCorpus(texts ...string) *corpus.Corpus {
	c := &corpus.Corpus{}
	for i, t := range texts {
		c.Units = append(c.Units, corpus.Unit{Index: i, FileName: "f.txt", Text: t})
		c.TotalChars += len(t)
	}
	return c
}

func TestDigestPassthroughWhenCorpusFits(t *testing.T) {
	s := NewSummarizer(Config{InputCap: 10_000}, &fakeGen{}, nil)
	c := unitCorpus("Newton's first law.", "The second law.")

	dg, err := s.Digest(context.Background(), c, constants.DifficultyMedium, false, nil)
	require.NoError(t, err)
	assert.False(t, dg.Summarized)
	assert.Contains(t, dg.Text, "[F1:")
	assert.Contains(t, dg.Text, "[F2:")
	assert.Contains(t, dg.Text, "Newton's first law.")
}

func TestDigestSummarizesAndInterleaves(t *testing.T) {
	fg := &fakeGen{out: map[string]string{
		"AAA": "- fact a1\n- fact a2",
		"BBB": "- fact b1\n- fact b2",
	}}
	s := NewSummarizer(Config{InputCap: 20}, fg, nil)
	c := unitCorpus(strings.Repeat("AAA ", 20), strings.Repeat("BBB ", 20))

	dg, err := s.Digest(context.Background(), c, constants.DifficultyMedium, false, nil)
	require.NoError(t, err)
	assert.True(t, dg.Summarized)

	lines := strings.Split(dg.Text, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "- [F1] fact a1", lines[0])
	assert.Equal(t, "- [F2] fact b1", lines[1])
}

func TestDigestBudgetsScaleWithDifficultyAndMath(t *testing.T) {
	fg := &fakeGen{}
	s := NewSummarizer(Config{BaseTokens: 350, MinTokens: 200, MaxTokens: 800, InputCap: 10}, fg, nil)
	c := unitCorpus("prose unit text here", "math unit text here")
	c.Units[1].MathDense = true

	dg, err := s.Digest(context.Background(), c, constants.DifficultyHard, true, nil)
	require.NoError(t, err)
	// hard scale 1.25: prose 438, math-dense weighted 1.5x -> 656
	assert.Equal(t, 438, dg.PerUnitTokens[0])
	assert.Equal(t, 656, dg.PerUnitTokens[1])
}

func TestDigestBudgetClamped(t *testing.T) {
	s := NewSummarizer(Config{BaseTokens: 350, MinTokens: 200, MaxTokens: 400, InputCap: 2}, &fakeGen{}, nil)
	c := unitCorpus("a unit", "b unit")
	c.Units[0].MathDense = true

	dg, err := s.Digest(context.Background(), c, constants.DifficultyEasy, true, nil)
	require.NoError(t, err)
	// easy scale 0.80: math weighted -> 420, clamped to 400; prose 280
	assert.Equal(t, 400, dg.PerUnitTokens[0])
	assert.Equal(t, 280, dg.PerUnitTokens[1])
}

func TestDigestHonoursCancellation(t *testing.T) {
	s := NewSummarizer(Config{InputCap: 5}, &fakeGen{}, nil)
	c := unitCorpus("unit one text", "unit two text")

	_, err := s.Digest(context.Background(), c, constants.DifficultyMedium, false, func() bool { return true })
	assert.ErrorIs(t, err, common.ErrCancelled)
}

func TestDigestRespectsInputCap(t *testing.T) {
	fg := &fakeGen{out: map[string]string{
		"AAA": "- " + strings.Repeat("long fact one ", 10) + "\n- short a",
	}}
	s := NewSummarizer(Config{InputCap: 15}, fg, nil)
	c := unitCorpus(strings.Repeat("AAA ", 20))

	dg, err := s.Digest(context.Background(), c, constants.DifficultyMedium, false, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(dg.Text), llm.TokenBudgetChars(15))
	assert.LessOrEqual(t, llm.EstimateTokens(dg.Text), 15)
}

func TestDigestBudgetsHonourOutScale(t *testing.T) {
	s := NewSummarizer(Config{BaseTokens: 350, MinTokens: 100, MaxTokens: 800, OutScale: 0.5, InputCap: 2}, &fakeGen{}, nil)
	c := unitCorpus("one unit of text", "two units of text")

	dg, err := s.Digest(context.Background(), c, constants.DifficultyMedium, false, nil)
	require.NoError(t, err)
	// medium scale 1.0 halved by the global multiplier
	assert.Equal(t, 175, dg.PerUnitTokens[0])
	assert.Equal(t, 175, dg.PerUnitTokens[1])
}

func TestAnswerWordRange(t *testing.T) {
	min, max := AnswerWordRange(constants.QuestionLong, constants.DifficultyHard)
	assert.Equal(t, 70, min)
	assert.Equal(t, 120, max)

	min, max = AnswerWordRange(constants.QuestionShort, constants.DifficultyEasy)
	assert.Equal(t, 8, min)
	assert.Equal(t, 15, max)

	min, max = AnswerWordRange(constants.QuestionMath, constants.DifficultyMedium)
	assert.Equal(t, 15, min)
	assert.Equal(t, 25, max)
}

func TestProfileForUnknownDefaultsToMedium(t *testing.T) {
	p := ProfileFor(constants.Difficulty("bogus"))
	assert.Equal(t, ProfileFor(constants.DifficultyMedium), p)
}
