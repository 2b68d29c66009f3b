package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperforge/paperforge/constants"
)

func TestQuestionSchemaAcceptsPlainQuestion(t *testing.T) {
	schema := BuildQuestionJSONSchema(constants.QuestionShort)
	doc := []byte(`{"prompt":"State Ohm's law."}`)
	assert.NoError(t, ValidateJSONAgainstSchema(schema, doc))
}

func TestQuestionSchemaRejectsMCQWithoutOptions(t *testing.T) {
	schema := BuildQuestionJSONSchema(constants.QuestionMCQ)
	doc := []byte(`{"prompt":"Which law relates V, I and R?"}`)
	assert.Error(t, ValidateJSONAgainstSchema(schema, doc))
}

func TestQuestionSchemaAcceptsMCQ(t *testing.T) {
	schema := BuildQuestionJSONSchema(constants.QuestionMCQ)
	doc := []byte(`{
		"prompt": "Which law relates V, I and R?",
		"options": ["Ohm's law", "Hooke's law", "Boyle's law", "Lenz's law"],
		"correct_index": 0
	}`)
	require.NoError(t, ValidateJSONAgainstSchema(schema, doc))

	var q Question
	require.NoError(t, json.Unmarshal(doc, &q))
	assert.Len(t, q.Options, 4)
	assert.Equal(t, 0, q.CorrectIndex)
}

func TestAnswerSchemaRequiresSolution(t *testing.T) {
	schema := BuildAnswerJSONSchema()
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"marking_points":["x"]}`)))
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"solution":"V = IR"}`)))
}

func TestExtractJSONPayload(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare object", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose wrapped", in: "Here you go:\n{\"a\":1}\nHope that helps.", want: `{"a":1}`},
		{name: "no object", in: "sorry, nothing", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONPayload(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestLooksLikeRefusal(t *testing.T) {
	assert.True(t, LooksLikeRefusal(""))
	assert.True(t, LooksLikeRefusal("I'm sorry, but I can't write that."))
	assert.False(t, LooksLikeRefusal(`{"prompt":"Define entropy."}`))
}

func TestGenerationErrorRetryable(t *testing.T) {
	assert.True(t, KindTimeout.Retryable())
	assert.True(t, KindRateLimited.Retryable())
	assert.False(t, KindMalformed.Retryable())
	assert.False(t, KindRefused.Retryable())

	var ge *GenerationError
	err := NewGenerationError(KindTimeout, errors.New("deadline"))
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, KindTimeout, ge.Kind)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("ab"))
	// 380 chars at ~3.8 chars/token is about 100 tokens
	long := make([]byte, 380)
	for i := range long {
		long[i] = 'x'
	}
	assert.Equal(t, 100, EstimateTokens(string(long)))
}
