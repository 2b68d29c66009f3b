package generate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/blueprint"
	"github.com/paperforge/paperforge/internal/common"
	"github.com/paperforge/paperforge/internal/llm"
	"github.com/paperforge/paperforge/internal/summarize"
)

const solidPrompt = "Explain in detail how conservation of momentum applies to a two-body collision, including the role of external forces in the system."

// scriptGen serves scripted responses keyed by slot position.
type scriptGen struct {
	mu        sync.Mutex
	questions map[int][]scriptResult // consumed in order per position
	answerErr map[int]error
	qCalls    map[int]int
	aCalls    int
}

type scriptResult struct {
	q   llm.Question
	err error
}

func newScriptGen() *scriptGen {
	return &scriptGen{
		questions: map[int][]scriptResult{},
		answerErr: map[int]error{},
		qCalls:    map[int]int{},
	}
}

func (s *scriptGen) Summarize(context.Context, llm.SummaryRequest) (string, error) {
	panic("not used")
}

func (s *scriptGen) GenerateQuestion(_ context.Context, req llm.QuestionRequest) (llm.Question, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qCalls[req.Position]++
	script := s.questions[req.Position]
	if len(script) == 0 {
		return llm.Question{Prompt: solidPrompt}, nil, nil
	}
	r := script[0]
	if len(script) > 1 {
		s.questions[req.Position] = script[1:]
	}
	return r.q, nil, r.err
}

func (s *scriptGen) GenerateAnswer(_ context.Context, req llm.AnswerRequest) (llm.Answer, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aCalls++
	for _, err := range s.answerErr {
		return llm.Answer{}, nil, err
	}
	return llm.Answer{Solution: "Because momentum is conserved: " + req.Question.Prompt[:10]}, nil, nil
}

func slots(n int) []blueprint.Slot {
	return blueprint.Plan(blueprint.Blueprint{QuestionCount: n})
}

func newTestStage(gen llm.Generator) *Stage {
	return NewStage(Config{Workers: 2, RetryBackoff: time.Millisecond}, gen, nil)
}

func TestRunCoversEverySlotInOrder(t *testing.T) {
	sg := newScriptGen()
	st := newTestStage(sg)

	items, err := st.Run(context.Background(), slots(5), "digest", nil, nil)
	require.NoError(t, err)
	require.Len(t, items, 5)
	for i, item := range items {
		assert.Equal(t, i+1, item.Slot.Position, "results recombine by position")
		assert.NotEmpty(t, item.Question.Prompt)
		assert.NotEmpty(t, item.Answer.Solution)
	}
}

func TestRunReportsProgressPerCall(t *testing.T) {
	sg := newScriptGen()
	st := newTestStage(sg)

	var mu sync.Mutex
	var seen []int
	total := 0
	onDone := func(done, n int) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, done)
		total = n
	}

	_, err := st.Run(context.Background(), slots(4), "digest", nil, onDone)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, seen, 4)
	assert.Contains(t, seen, 4, "final callback reports full coverage")
}

func TestRunRetriesTransientFailureOnce(t *testing.T) {
	sg := newScriptGen()
	sg.questions[1] = []scriptResult{
		{err: llm.NewGenerationError(llm.KindRateLimited, errors.New("429"))},
		{q: llm.Question{Prompt: solidPrompt}},
	}
	st := newTestStage(sg)

	items, err := st.Run(context.Background(), slots(1), "digest", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sg.qCalls[1])
	assert.Equal(t, solidPrompt, items[0].Question.Prompt)
}

func TestRunFailsStageAfterSecondFailure(t *testing.T) {
	sg := newScriptGen()
	boom := llm.NewGenerationError(llm.KindTimeout, errors.New("deadline"))
	sg.questions[2] = []scriptResult{{err: boom}, {err: boom}}
	st := newTestStage(sg)

	_, err := st.Run(context.Background(), slots(3), "digest", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCoverage)
	assert.Contains(t, err.Error(), "question 2")
}

func TestRunDoesNotRetryMalformed(t *testing.T) {
	sg := newScriptGen()
	sg.questions[1] = []scriptResult{
		{err: llm.NewGenerationError(llm.KindMalformed, errors.New("bad json"))},
	}
	st := newTestStage(sg)

	_, err := st.Run(context.Background(), slots(1), "digest", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCoverage)
	assert.Equal(t, 1, sg.qCalls[1], "malformed output is not retried")
}

func TestRunRegeneratesTrivialDraftOnce(t *testing.T) {
	sg := newScriptGen()
	sg.questions[1] = []scriptResult{
		{q: llm.Question{Prompt: "Define force."}}, // below the medium floor
		{q: llm.Question{Prompt: solidPrompt}},
		{q: llm.Question{Prompt: "should never be requested"}},
	}
	st := newTestStage(sg)

	items, err := st.Run(context.Background(), slots(1), "digest", nil, nil)
	require.NoError(t, err)
	assert.True(t, items[0].Regenerated)
	assert.Equal(t, solidPrompt, items[0].Question.Prompt)
	assert.Equal(t, 2, sg.qCalls[1])
}

func TestRunAcceptsSecondDraftAsIs(t *testing.T) {
	sg := newScriptGen()
	sg.questions[1] = []scriptResult{
		{q: llm.Question{Prompt: "Define force."}},
		{q: llm.Question{Prompt: "State Newton's first law precisely and give one everyday example of it."}},
	}
	st := newTestStage(sg)

	items, err := st.Run(context.Background(), slots(1), "digest", nil, nil)
	require.NoError(t, err)
	assert.True(t, items[0].Regenerated)
	assert.Equal(t, 2, sg.qCalls[1], "the amended draft is final even if still short")
}

func TestRunCancelledBeforeDispatch(t *testing.T) {
	sg := newScriptGen()
	st := newTestStage(sg)

	_, err := st.Run(context.Background(), slots(4), "digest", func() bool { return true }, nil)
	assert.ErrorIs(t, err, common.ErrCancelled)
	assert.Equal(t, 0, sg.qCalls[1])
}

func TestTrivialGate(t *testing.T) {
	mcqSlot := blueprint.Slot{Type: constants.QuestionMCQ, Difficulty: constants.DifficultyMedium}
	longSlot := blueprint.Slot{Type: constants.QuestionLong, Difficulty: constants.DifficultyMedium}

	tests := []struct {
		name string
		q    llm.Question
		slot blueprint.Slot
		want bool
	}{
		{
			name: "mcq with two options",
			q:    llm.Question{Prompt: solidPrompt, Options: []string{"a", "b"}},
			slot: mcqSlot,
			want: true,
		},
		{
			name: "mcq with four options",
			q:    llm.Question{Prompt: solidPrompt, Options: []string{"a", "b", "c", "d"}},
			slot: mcqSlot,
			want: false,
		},
		{
			name: "prompt below floor",
			q:    llm.Question{Prompt: "Define entropy."},
			slot: longSlot,
			want: true,
		},
		{
			name: "prompt at floor",
			q:    llm.Question{Prompt: strings.Repeat("word ", 20)},
			slot: longSlot,
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := summarize.ProfileFor(tt.slot.Difficulty)
			assert.Equal(t, tt.want, trivial(tt.q, tt.slot, p))
		})
	}
}
