package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the keyword suggestion client using an OpenAI-compatible
// chat API
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new suggestion client. baseURL may be empty for
// the default OpenAI endpoint.
func NewClient(apiKey, baseURL, model string) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

const suggestSystemPrompt = `You expand a Telegram group-search request into concrete search keywords.

Rules:
1. Generate up to 30 keywords related to the user's request
2. Keywords must be specific and searchable
3. Cover different angles and related topics
4. Order by relevance, most relevant first
5. Answer in the language of the request

Return JSON only:
{"explanation": "one sentence on what the user wants", "keywords": ["kw1", "kw2", "..."]}`

// suggestResponse matches the JSON shape the prompt asks for
type suggestResponse struct {
	Explanation string   `json:"explanation"`
	Keywords    []string `json:"keywords"`
}

// SuggestKeywords asks the model for keyword candidates
func (c *Client) SuggestKeywords(ctx context.Context, query string, history []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: suggestSystemPrompt},
	}
	if len(history) > 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("## Recent requests\n%s\n\n## Current request\n%s", strings.Join(history, "\n"), query),
		})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: query,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   1200,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}

	parsed, err := parseSuggestResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	fmt.Printf("[OpenAI] Suggested %d keywords\n", len(parsed.Keywords))
	return parsed.Keywords, nil
}

// parseSuggestResponse tolerates code fences and leading prose around
// the JSON object
func parseSuggestResponse(text string) (*suggestResponse, error) {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		text = strings.TrimPrefix(text, "json")
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var parsed suggestResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("malformed suggestion response: %w", err)
	}
	if len(parsed.Keywords) == 0 {
		return nil, fmt.Errorf("suggestion response has no keywords")
	}
	return &parsed, nil
}
