package answer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are OMNIS, a helpful school assistant robot. Keep answers brief and concise. Be friendly and to the point."

type RemoteConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	RetryDelay  time.Duration
	Debug       bool
}

// Chat answers through an OpenAI-compatible chat completion endpoint. The
// client is built lazily so a missing key only matters when a question is
// actually routed here.
type Chat struct {
	cfg     RemoteConfig
	breaker *circuit

	mu     sync.Mutex
	client *openai.Client
}

func NewChat(cfg RemoteConfig) *Chat {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 300
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 300 * time.Millisecond
	}
	return &Chat{cfg: cfg, breaker: newCircuit(3, time.Minute, 30*time.Second)}
}

// Configured reports whether a credential is present.
func (c *Chat) Configured() bool { return c.cfg.APIKey != "" }

func (c *Chat) getClient() (*openai.Client, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		oc := openai.DefaultConfig(c.cfg.APIKey)
		if c.cfg.BaseURL != "" {
			oc.BaseURL = c.cfg.BaseURL
		}
		c.client = openai.NewClientWithConfig(oc)
	}
	return c.client, nil
}

// Ask sends one question. A transient failure is retried once; an empty reply
// counts as a failure for the retry and surfaces as ErrNoAnswer.
func (c *Chat) Ask(ctx context.Context, question string) (string, error) {
	client, err := c.getClient()
	if err != nil {
		return "", err
	}
	if err := c.breaker.allow(time.Now()); err != nil {
		return "", err
	}
	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: float32(c.cfg.Temperature),
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
		}
		start := time.Now()
		resp, err := client.CreateChatCompletion(ctx, req)
		remoteLatencyMS.Observe(float64(time.Since(start).Milliseconds()))
		if err != nil {
			if isQuota(err) {
				c.breaker.failure(time.Now(), ErrQuota)
				return "", fmt.Errorf("%w: %v", ErrQuota, err)
			}
			lastErr = err
			if c.cfg.Debug {
				log.Printf("[answer] attempt %d failed: %v", attempt+1, err)
			}
			continue
		}
		if len(resp.Choices) > 0 {
			if text := clean(resp.Choices[0].Message.Content); text != "" {
				c.breaker.success()
				return text, nil
			}
		}
		lastErr = ErrNoAnswer
	}
	if errors.Is(lastErr, ErrNoAnswer) {
		return "", ErrNoAnswer
	}
	if ctx.Err() == nil {
		c.breaker.failure(time.Now(), lastErr)
	}
	return "", fmt.Errorf("ask remote: %w", lastErr)
}

func isQuota(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests
}
