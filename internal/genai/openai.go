package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/schoolconnect/schoolconnect-api/internal/quiz"
)

// OpenAIGenerator drafts questions through an OpenAI-compatible chat
// completions endpoint.
type OpenAIGenerator struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
	Model   string
}

var _ Generator = (*OpenAIGenerator)(nil)

func NewOpenAIGenerator(baseURL, apiKey, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) ([]quiz.Question, error) {
	if req.NumQuestions <= 0 {
		req.NumQuestions = 5
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	types := req.QuestionTypes
	if len(types) == 0 {
		types = []string{"multiple_choice", "true_false", "short_answer"}
	}

	body, err := json.Marshal(chatRequest{
		Model: g.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPromptTemplate,
				req.NumQuestions, req.Difficulty, req.Topic, strings.Join(types, ", "))},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)

	resp, err := g.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation endpoint: status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("generation endpoint: bad response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("generation endpoint: no choices")
	}

	qs, err := parseQuestions(cr.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if err := validateQuestions(qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// parseQuestions tolerates a model that wraps its JSON in markdown fences
// despite instructions.
func parseQuestions(content string) ([]quiz.Question, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	var qs []quiz.Question
	if err := json.Unmarshal([]byte(content), &qs); err != nil {
		return nil, fmt.Errorf("model output is not a question array: %w", err)
	}
	return qs, nil
}
