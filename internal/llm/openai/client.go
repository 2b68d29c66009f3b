package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paperforge/paperforge/internal/execx"
	"github.com/paperforge/paperforge/internal/llm"
)

// Summarize implements llm.Generator using text-only chat/completions.
func (c *Client) Summarize(ctx context.Context, req llm.SummaryRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.summarize.start",
		"req_id", rid,
		"model", c.cfg.SummaryModel,
		"text_len", len(req.Text),
		"target_tokens", req.TargetTokens,
		"math_dense", req.MathDense,
	)

	body := map[string]any{
		"model":       c.cfg.SummaryModel,
		"temperature": 0.2,
		"max_tokens":  req.TargetTokens + req.TargetTokens/5,
		"messages": []map[string]any{
			{"role": "system", "content": buildSummarySystemPrompt(req)},
			{"role": "user", "content": req.Text},
		},
	}

	content, err := c.chat(ctx, rid, body)
	if err != nil {
		c.log.Error("llm.summarize.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}
	if llm.LooksLikeRefusal(content) {
		return "", llm.NewGenerationError(llm.KindRefused, fmt.Errorf("model declined to summarize"))
	}

	c.log.Info("llm.summarize.ok",
		"req_id", rid,
		"summary_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return strings.TrimSpace(content), nil
}

// GenerateQuestion implements llm.Generator. The response must match the
// per-type JSON schema or the call fails as malformed.
func (c *Client) GenerateQuestion(ctx context.Context, req llm.QuestionRequest) (llm.Question, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.question.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"type", req.Type,
		"difficulty", req.Difficulty,
		"position", req.Position,
		"temp", req.Temperature,
		"digest_len", len(req.Digest),
	)

	schema := llm.BuildQuestionJSONSchema(req.Type)
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     req.Temperature,
		"max_tokens":      req.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": buildQuestionSystemPrompt(req)},
			{"role": "user", "content": buildQuestionUserPrompt(req) + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	content, err := c.chat(ctx, rid, body)
	if err != nil {
		c.log.Error("llm.question.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Question{}, nil, err
	}
	if llm.LooksLikeRefusal(content) {
		return llm.Question{}, []byte(content), llm.NewGenerationError(llm.KindRefused, fmt.Errorf("model declined to write question"))
	}

	raw, err := llm.ExtractJSONPayload(content)
	if err != nil {
		return llm.Question{}, []byte(content), llm.NewGenerationError(llm.KindMalformed, err)
	}
	if err := llm.ValidateJSONAgainstSchema(schema, raw); err != nil {
		c.log.Error("llm.question.schema_validation_failed",
			"req_id", rid, "error", err, "content", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Question{}, raw, llm.NewGenerationError(llm.KindMalformed, err)
	}

	var out llm.Question
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.Question{}, raw, llm.NewGenerationError(llm.KindMalformed, fmt.Errorf("unmarshal question: %w", err))
	}

	c.log.Info("llm.question.ok",
		"req_id", rid,
		"position", req.Position,
		"prompt_len", len(out.Prompt),
		"options", len(out.Options),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, raw, nil
}

// GenerateAnswer implements llm.Generator. Runs at a fixed low temperature.
func (c *Client) GenerateAnswer(ctx context.Context, req llm.AnswerRequest) (llm.Answer, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.answer.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"type", req.Type,
		"question_len", len(req.Question.Prompt),
	)

	schema := llm.BuildAnswerJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     answerTemperature,
		"max_tokens":      req.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": buildAnswerSystemPrompt(req)},
			{"role": "user", "content": buildAnswerUserPrompt(req) + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	content, err := c.chat(ctx, rid, body)
	if err != nil {
		c.log.Error("llm.answer.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Answer{}, nil, err
	}
	if llm.LooksLikeRefusal(content) {
		return llm.Answer{}, []byte(content), llm.NewGenerationError(llm.KindRefused, fmt.Errorf("model declined to answer"))
	}

	raw, err := llm.ExtractJSONPayload(content)
	if err != nil {
		return llm.Answer{}, []byte(content), llm.NewGenerationError(llm.KindMalformed, err)
	}
	if err := llm.ValidateJSONAgainstSchema(schema, raw); err != nil {
		c.log.Error("llm.answer.schema_validation_failed",
			"req_id", rid, "error", err, "content", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Answer{}, raw, llm.NewGenerationError(llm.KindMalformed, err)
	}

	var out llm.Answer
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.Answer{}, raw, llm.NewGenerationError(llm.KindMalformed, fmt.Errorf("unmarshal answer: %w", err))
	}

	c.log.Info("llm.answer.ok",
		"req_id", rid,
		"solution_len", len(out.Solution),
		"marking_points", len(out.MarkingPoints),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, raw, nil
}

// chat posts a chat/completions body and returns the first choice's content.
func (c *Client) chat(ctx context.Context, rid string, body map[string]any) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", llm.NewGenerationError(llm.KindMalformed, fmt.Errorf("decode openai response: %w", err))
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.chat.no_choices", "req_id", rid, "raw", string(raw))
		return "", llm.NewGenerationError(llm.KindMalformed, fmt.Errorf("no choices in openai response"))
	}
	return cc.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, llm.NewGenerationError(classifyTransportErr(err), fmt.Errorf("openai http error: %w", err))
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.log.Warn("openai response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := classifyStatus(resp.StatusCode)
		return nil, llm.NewGenerationError(kind, fmt.Errorf("openai status %d: %s", resp.StatusCode, execx.Truncate(buf.String(), 512)))
	}
	return buf.Bytes(), nil
}

func classifyTransportErr(err error) llm.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return llm.KindTimeout
	}
	// connection refused/reset, DNS hiccups; worth a retry
	return llm.KindRateLimited
}

func classifyStatus(code int) llm.ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return llm.KindRateLimited
	case code >= 500:
		return llm.KindRateLimited
	default:
		return llm.KindRefused
	}
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
