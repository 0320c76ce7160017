// Package llm wraps the OpenAI chat-completions API behind the single
// generate(system, user, temperature) capability the bot needs.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client is a thin chat-completion client with bounded retry on transient
// failures. Retry/backoff beyond that is deliberately not built in here.
type Client struct {
	api   openai.Client
	model string
}

// New builds a Client for the given model. timeout bounds each attempt.
func New(apiKey, model string, timeout time.Duration) *Client {
	api := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	)
	return &Client{api: api, model: model}
}

var retryDelays = []time.Duration{500 * time.Millisecond, 1000 * time.Millisecond}

// Generate runs one chat completion and returns the trimmed text.
func (c *Client) Generate(ctx context.Context, system, user string, temperature float64) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(temperature),
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelays[attempt-1]):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		resp, err := c.api.Chat.Completions.New(ctx, params)
		if err != nil {
			if isTransient(err) {
				lastErr = err
				continue
			}
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no choices in response")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}
	return "", fmt.Errorf("chat completion: %w", lastErr)
}

// isTransient reports whether the error looks like a rate limit or server
// error worth one more attempt.
func isTransient(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests") ||
		strings.Contains(s, "500") ||
		strings.Contains(s, "502") ||
		strings.Contains(s, "503") ||
		strings.Contains(s, "server_error") ||
		strings.Contains(s, "internal server error")
}
