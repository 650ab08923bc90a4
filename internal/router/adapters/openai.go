package adapters

import (
	"context"
	"maps"
	"net/http"

	"github.com/af-corp/containment-gateway/internal/config"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint. The
// local model server (Ollama, vLLM) is served through the same client.
type OpenAIClient struct {
	name   string
	cfg    config.ProviderConfig
	client *http.Client
}

func NewOpenAIClient(name string, cfg config.ProviderConfig, client *http.Client) *OpenAIClient {
	return &OpenAIClient{name: name, cfg: cfg, client: client}
}

func (c *OpenAIClient) Name() string { return c.name }

func (c *OpenAIClient) Call(ctx context.Context, req CallRequest) (*CallResult, error) {
	body := openAIRequestBody{
		Model:       c.cfg.Model,
		Messages:    buildMessages(req),
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = &req.MaxTokens
	}

	headers := maps.Clone(c.cfg.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	var out openAIResponseBody
	if err := postJSON(ctx, c.client, c.name, c.cfg.BaseURL+"/chat/completions", headers, body, &out); err != nil {
		return nil, err
	}

	res := &CallResult{TokensUsed: out.Usage.TotalTokens}
	if len(out.Choices) > 0 {
		res.Content = out.Choices[0].Message.Content
	}
	return res, nil
}

func buildMessages(req CallRequest) []chatMessage {
	var msgs []chatMessage
	if req.Context != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.Context})
	}
	return append(msgs, chatMessage{Role: "user", Content: req.Prompt})
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequestBody struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type openAIResponseBody struct {
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
