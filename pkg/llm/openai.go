package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI completes chats against api.openai.com or a compatible endpoint.
type OpenAI struct {
	client *openai.Client
	cfg    Config
	log    *slog.Logger
}

// NewOpenAI builds the provider. A missing API key is an error.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAI{
		client: openai.NewClientWithConfig(oc),
		cfg:    cfg,
		log:    cfg.Logger.With("component", "llm.openai"),
	}, nil
}

func (o *OpenAI) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = o.cfg.MaxTokens
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, toOpenAIMessage(m))
	}

	var resp openai.ChatCompletionResponse
	err := o.retry(ctx, func() (err error) {
		resp, err = o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       o.cfg.Model,
			Messages:    msgs,
			MaxTokens:   maxTokens,
			Temperature: float32(o.cfg.Temperature),
			Tools:       toOpenAITools(req.Tools),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	msg := resp.Choices[0].Message
	out := &ChatResponse{
		Content:      msg.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		Model:        resp.Model,
		TotalTokens:  resp.Usage.TotalTokens,
		Latency:      time.Since(start),
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func toOpenAIMessage(m Message) openai.ChatCompletionMessage {
	out := openai.ChatCompletionMessage{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, openai.ToolCall{
			ID:   tc.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return out
}

func toOpenAITools(tools []Tool) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		params := t.Parameters
		if params == nil {
			params = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// Health lists models, which fails fast on a bad key.
func (o *OpenAI) Health(ctx context.Context) error {
	_, err := o.client.ListModels(ctx)
	return toAPIError(err)
}

func (o *OpenAI) Close() error { return nil }

func (o *OpenAI) retry(ctx context.Context, call func() error) error {
	for attempt := 0; ; attempt++ {
		err := toAPIError(call())
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if attempt >= o.cfg.Retries || !errors.As(err, &apiErr) || !apiErr.Temporary() {
			return err
		}
		o.log.Warn("completion failed, retrying", "attempt", attempt+1, "status", apiErr.Status)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.cfg.Backoff * time.Duration(attempt+1)):
		}
	}
}

// toAPIError turns go-openai HTTP failures into *APIError.
func toAPIError(err error) error {
	if err == nil {
		return nil
	}
	var oe *openai.APIError
	if errors.As(err, &oe) {
		e := &APIError{Status: oe.HTTPStatusCode, Message: oe.Message}
		if oe.Code != nil {
			e.Code = fmt.Sprint(oe.Code)
		}
		return e
	}
	var re *openai.RequestError
	if errors.As(err, &re) {
		return &APIError{Status: re.HTTPStatusCode, Message: re.Error()}
	}
	return fmt.Errorf("openai: %w", err)
}

var _ Provider = (*OpenAI)(nil)
