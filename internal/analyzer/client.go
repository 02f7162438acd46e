// This file defines the LLM transport: a minimal chat-completion contract
// and its Anthropic implementation. One round-trip per call, no streaming.

package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrTransport wraps network-level or non-success API failures.
var ErrTransport = errors.New("llm transport failure")

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Client is the outbound LLM contract. Implementations perform a single
// request/response exchange and return the raw response text.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ClaudeClient implements Client using the Anthropic API.
type ClaudeClient struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration
}

// ClaudeOptions configures a ClaudeClient.
type ClaudeOptions struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// NewClaudeClient creates a Claude-backed transport.
func NewClaudeClient(opts ClaudeOptions) *ClaudeClient {
	if opts.Model == "" {
		opts.Model = "claude-sonnet-4-20250514"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 8192
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &ClaudeClient{
		client:      anthropic.NewClient(option.WithAPIKey(opts.APIKey)),
		model:       opts.Model,
		maxTokens:   int64(opts.MaxTokens),
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
	}
}

// Complete sends the conversation and returns the concatenated text blocks
// of the reply. Any API or network failure is reported as ErrTransport.
func (c *ClaudeClient) Complete(ctx context.Context, messages []Message) (string, error) {
	claudeMessages, systemText, err := convertMessages(messages)
	if err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  claudeMessages,
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Messages.New(callCtx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty response", ErrTransport)
	}
	return sb.String(), nil
}

// convertMessages maps the transport-neutral messages onto Anthropic's
// format. System messages are extracted for the System parameter; the
// first one wins.
func convertMessages(messages []Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	out := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	if len(out) == 0 {
		return nil, "", fmt.Errorf("at least one non-system message is required")
	}
	return out, systemText, nil
}
