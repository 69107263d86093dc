package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bryanwahyu/research-camera/internal/domain/analysis"
)

type Config struct {
	BaseURL string
	// Timeout 0 means no client-side limit, only the transport defaults.
	Timeout time.Duration
}

// Client calls the api server's POST /analyze. It implements analysis.Client.
type Client struct {
	client *resty.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		cli.SetTimeout(cfg.Timeout)
	}
	return &Client{client: cli}
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Analyze uploads the images as multipart form data. Zero images fail with
// ErrNoImage before any request is made.
func (c *Client) Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	if err := req.Validate(); err != nil {
		return analysis.Result{}, err
	}

	fields := make([]*resty.MultipartField, 0, len(req.Images))
	for i, img := range req.Images {
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("image-%d", i+1)
		}
		ct := img.MimeType
		if ct == "" {
			ct = http.DetectContentType(img.Data)
		}
		fields = append(fields, &resty.MultipartField{
			Param:       "images",
			FileName:    name,
			ContentType: ct,
			Reader:      bytes.NewReader(img.Data),
		})
	}

	var out analysis.Result
	resp, err := c.client.R().
		SetContext(ctx).
		SetMultipartFields(fields...).
		SetFormData(map[string]string{
			"mode":     string(req.Mode),
			"audience": string(req.Audience),
		}).
		SetResult(&out).
		Post("/analyze")
	if err != nil {
		return analysis.Result{}, &analysis.FailedError{Message: fmt.Sprintf("analyze request: %v", err), Err: err}
	}
	if err := mapHTTPError(resp); err != nil {
		return analysis.Result{}, err
	}
	if len(out.Sections) == 0 {
		// SetResult only decodes for json content types
		if err := json.Unmarshal(resp.Body(), &out); err != nil {
			return analysis.Result{}, &analysis.FailedError{Message: "decode analysis response", Err: err}
		}
	}
	return out, nil
}

// Health calls the server's GET /health and fails on anything but 200.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("health: unexpected status %d", resp.StatusCode())
	}
	return nil
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	var body errorBody
	_ = json.Unmarshal(resp.Body(), &body)

	if resp.StatusCode() == http.StatusTooManyRequests || body.Error == analysis.QuotaMarker {
		return analysis.ErrQuotaExceeded
	}
	if resp.StatusCode() == http.StatusBadRequest && body.Error != "" {
		return &analysis.FailedError{Message: body.Error}
	}

	msg := body.Details
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		msg = strings.TrimSpace(string(resp.Body()))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	return &analysis.FailedError{Message: msg}
}
