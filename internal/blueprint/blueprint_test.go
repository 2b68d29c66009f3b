package blueprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperforge/paperforge/constants"
	"github.com/paperforge/paperforge/internal/common"
)

var testLimits = Limits{MaxQuestions: 30, MaxTitleLen: 80, MaxInstructionLen: 200}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		bp      Blueprint
		wantErr string
	}{
		{
			name: "minimal ok",
			bp:   Blueprint{QuestionCount: 5},
		},
		{
			name: "full ok",
			bp: Blueprint{
				Title:         "Mechanics revision",
				QuestionCount: 8,
				Difficulty:    "hard",
				Types:         []string{"long", "mcq"},
				Overrides:     []Override{{Position: 3, Type: "math", Instructions: "use SI units"}},
			},
		},
		{
			name:    "zero questions",
			bp:      Blueprint{QuestionCount: 0},
			wantErr: "at least 1",
		},
		{
			name:    "over limit",
			bp:      Blueprint{QuestionCount: 31},
			wantErr: "exceeds limit",
		},
		{
			name:    "bad difficulty",
			bp:      Blueprint{QuestionCount: 3, Difficulty: "brutal"},
			wantErr: "unknown difficulty",
		},
		{
			name:    "bad type in cycle",
			bp:      Blueprint{QuestionCount: 3, Types: []string{"essay"}},
			wantErr: "unknown question type",
		},
		{
			name:    "override out of range",
			bp:      Blueprint{QuestionCount: 3, Overrides: []Override{{Position: 4}}},
			wantErr: "out of range",
		},
		{
			name:    "duplicate override",
			bp:      Blueprint{QuestionCount: 3, Overrides: []Override{{Position: 2}, {Position: 2}}},
			wantErr: "duplicate override",
		},
		{
			name: "override difficulty ok",
			bp:   Blueprint{QuestionCount: 3, Overrides: []Override{{Position: 2, Difficulty: "hard"}}},
		},
		{
			name:    "bad override difficulty",
			bp:      Blueprint{QuestionCount: 3, Overrides: []Override{{Position: 2, Difficulty: "brutal"}}},
			wantErr: "unknown difficulty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.bp, testLimits)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPlanDefaultRoundRobin(t *testing.T) {
	slots := Plan(Blueprint{QuestionCount: 6})
	require.Len(t, slots, 6)
	want := []constants.QuestionType{
		constants.QuestionLong, constants.QuestionShort, constants.QuestionMCQ,
		constants.QuestionMath, constants.QuestionLong, constants.QuestionShort,
	}
	for i, s := range slots {
		assert.Equal(t, i+1, s.Position)
		assert.Equal(t, want[i], s.Type)
		assert.Equal(t, constants.DifficultyMedium, s.Difficulty)
	}
}

func TestPlanCustomCycleAndOverrides(t *testing.T) {
	slots := Plan(Blueprint{
		QuestionCount: 4,
		Difficulty:    "hard",
		Types:         []string{"mcq", "short"},
		Overrides: []Override{
			{Position: 2, Type: "math", Instructions: "kinematics only"},
			{Position: 3, Difficulty: "easy"},
			{Position: 4, Instructions: "cite the source"},
		},
	})
	require.Len(t, slots, 4)
	assert.Equal(t, constants.QuestionMCQ, slots[0].Type)
	assert.Equal(t, constants.QuestionMath, slots[1].Type)
	assert.Equal(t, "kinematics only", slots[1].Instructions)
	assert.Equal(t, constants.QuestionMCQ, slots[2].Type)
	assert.Equal(t, constants.DifficultyEasy, slots[2].Difficulty, "difficulty-only override keeps the cycled type")
	assert.Equal(t, constants.QuestionShort, slots[3].Type, "instruction-only override keeps the cycled type")
	assert.Equal(t, "cite the source", slots[3].Instructions)
	assert.Equal(t, constants.DifficultyHard, slots[0].Difficulty)
	assert.Equal(t, constants.DifficultyHard, slots[1].Difficulty)
	assert.Equal(t, constants.DifficultyHard, slots[3].Difficulty)
}

func TestPlanNormalizesAliases(t *testing.T) {
	slots := Plan(Blueprint{QuestionCount: 2, Types: []string{"calculation"}})
	assert.Equal(t, constants.QuestionMath, slots[0].Type)
	assert.Equal(t, constants.QuestionMath, slots[1].Type)
}

func TestWantsMath(t *testing.T) {
	assert.True(t, WantsMath(Plan(Blueprint{QuestionCount: 4})))
	assert.False(t, WantsMath(Plan(Blueprint{QuestionCount: 3})))
}

func TestParse(t *testing.T) {
	bp, err := Parse([]byte(`{"question_count": 5, "types": ["long"], "overrides": [{"position": 1, "instructions": "x"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 5, bp.QuestionCount)
	assert.Equal(t, []string{"long"}, bp.Types)

	bp, err = Parse([]byte(`{"question_count": 3, "overrides": [{"position": 2, "difficulty": "hard"}]}`))
	require.NoError(t, err)
	require.Len(t, bp.Overrides, 1)
	assert.Equal(t, "hard", bp.Overrides[0].Difficulty)

	_, err = Parse([]byte(`{"types": ["long"]}`))
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = Parse([]byte(`{"question_count": 5, "bogus": true}`))
	assert.ErrorIs(t, err, common.ErrValidation)
}
