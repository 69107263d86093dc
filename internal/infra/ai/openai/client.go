package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/research-camera/internal/domain/analysis"
	"github.com/bryanwahyu/research-camera/internal/infra/ai/prompt"
)

const (
	maxTokens          = 4096
	defaultModel       = "gemini-3-pro-preview"
	defaultTemperature = 0.4
)

// Client calls any OpenAI-compatible chat completion endpoint with inline images.
type Client struct {
	*openai.Client
	Model       string
	Temperature float32
}

// Options untuk NewClient. BaseURL kosong = api.openai.com
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	HTTPClient  *http.Client
}

func NewClient(opt Options) *Client {
	cfg := openai.DefaultConfig(opt.APIKey)
	if opt.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opt.BaseURL, "/")
	}
	if opt.HTTPClient != nil {
		cfg.HTTPClient = opt.HTTPClient
	}
	model := opt.Model
	if model == "" {
		model = defaultModel
	}
	temp := opt.Temperature
	if temp == 0 {
		temp = defaultTemperature
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, Temperature: temp}
}

// Analyze sends one chat completion and decodes the schema-constrained reply.
// It is never retried.
func (c *Client) Analyze(ctx context.Context, in analysis.Request) (analysis.Result, error) {
	if err := in.Validate(); err != nil {
		return analysis.Result{}, err
	}

	parts := make([]openai.ChatMessagePart, 0, len(in.Images)+1)
	for _, img := range in.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURI(img),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: prompt.GetUserPrompt(in.Mode, in.Audience, len(in.Images)),
	})

	req := openai.ChatCompletionRequest{
		Model:       c.Model,
		Temperature: c.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   prompt.SchemaName,
				Schema: prompt.ResponseSchema(),
				Strict: true,
			},
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	}
	// reasoning models (o1/o3/o4/gpt-5*) pakai MaxCompletionTokens
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return analysis.Result{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return analysis.Result{}, &analysis.FailedError{Message: "model returned no choices"}
	}

	var out analysis.Result
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return analysis.Result{}, &analysis.FailedError{
			Message: fmt.Sprintf("decode model response: %v", err),
			Err:     err,
		}
	}
	return out, nil
}

// Ping lists the provider's models, which checks reachability and the API key
// without spending tokens.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func dataURI(img analysis.Image) string {
	mime := img.MimeType
	if mime == "" {
		mime = http.DetectContentType(img.Data)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// quotaCodes are provider error codes/types that mean the quota is spent.
var quotaCodes = []string{"RESOURCE_EXHAUSTED", "insufficient_quota", "rate_limit_exceeded"}

// classify maps a provider error to ErrQuotaExceeded or *FailedError.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &analysis.FailedError{Message: err.Error(), Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", analysis.ErrQuotaExceeded, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", analysis.ErrQuotaExceeded, reqErr.Err)
	}

	msg := err.Error()
	if apiErr != nil {
		code := fmt.Sprint(apiErr.Code)
		for _, q := range quotaCodes {
			if code == q || apiErr.Type == q {
				return fmt.Errorf("%w: %s", analysis.ErrQuotaExceeded, apiErr.Message)
			}
		}
	}
	// Gemini puts the gRPC status name in the message text
	if strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return fmt.Errorf("%w: %s", analysis.ErrQuotaExceeded, msg)
	}

	if apiErr != nil && apiErr.Message != "" {
		return &analysis.FailedError{Message: apiErr.Message, Err: err}
	}
	return &analysis.FailedError{Message: msg, Err: err}
}
