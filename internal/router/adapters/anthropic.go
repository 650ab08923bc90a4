package adapters

import (
	"context"
	"maps"
	"net/http"
	"strings"

	"github.com/af-corp/containment-gateway/internal/config"
)

const (
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 1024
)

// AnthropicClient handles communication with the Anthropic Messages API.
type AnthropicClient struct {
	name   string
	cfg    config.ProviderConfig
	client *http.Client
}

func NewAnthropicClient(name string, cfg config.ProviderConfig, client *http.Client) *AnthropicClient {
	return &AnthropicClient{name: name, cfg: cfg, client: client}
}

func (c *AnthropicClient) Name() string { return c.name }

func (c *AnthropicClient) Call(ctx context.Context, req CallRequest) (*CallResult, error) {
	// The Messages API requires max_tokens.
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}

	body := anthropicRequestBody{
		Model:       c.cfg.Model,
		System:      req.Context,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	headers := maps.Clone(c.cfg.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	headers["x-api-key"] = c.cfg.APIKey
	if headers["anthropic-version"] == "" {
		headers["anthropic-version"] = anthropicVersion
	}

	var out anthropicResponseBody
	if err := postJSON(ctx, c.client, c.name, c.cfg.BaseURL+"/v1/messages", headers, body, &out); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &CallResult{
		Content:    text.String(),
		TokensUsed: out.Usage.InputTokens + out.Usage.OutputTokens,
	}, nil
}

type anthropicRequestBody struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type anthropicResponseBody struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
