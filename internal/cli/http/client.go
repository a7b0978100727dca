package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codejudge/internal/judge/model"
	"codejudge/internal/judge/result"
	pkgerrors "codejudge/pkg/errors"
)

const (
	executionsPath = "/api/v1/judge/executions"
	languagesPath  = "/api/v1/judge/languages"
)

// ResponseInfo carries response details.
type ResponseInfo struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Language is one entry of the languages listing.
type Language struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Aliases   []string `json:"aliases"`
	Strategy  string   `json:"strategy"`
	TimeoutMs int64    `json:"timeoutMs"`
}

type envelope struct {
	Code    pkgerrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
}

// Client wraps judge HTTP requests for the CLI.
type Client struct {
	baseURL string
	timeout time.Duration
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
	}
}

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

// Execute posts a submission and decodes the judged result.
func (c *Client) Execute(ctx context.Context, sub model.Submission) (result.AggregateResult, error) {
	var agg result.AggregateResult
	body, err := json.Marshal(sub)
	if err != nil {
		return agg, fmt.Errorf("encode submission failed: %w", err)
	}
	resp, err := c.Do(ctx, http.MethodPost, executionsPath, nil, body)
	if err != nil {
		return agg, err
	}
	if err := decode(resp, &agg); err != nil {
		return result.AggregateResult{}, err
	}
	return agg, nil
}

// Languages lists the languages supported by the server.
func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	resp, err := c.Do(ctx, http.MethodGet, languagesPath, nil, nil)
	if err != nil {
		return nil, err
	}
	var langs []Language
	if err := decode(resp, &langs); err != nil {
		return nil, err
	}
	return langs, nil
}

func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, body []byte) (ResponseInfo, error) {
	var info ResponseInfo
	client := &http.Client{Timeout: c.timeout}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", c.baseURL, path), reader)
	if err != nil {
		return info, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := client.Do(req)
	info.Duration = time.Since(start)
	if err != nil {
		return info, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	info.StatusCode = resp.StatusCode
	info.Headers = resp.Header
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return info, fmt.Errorf("read response body failed: %w", err)
	}
	info.Body = bodyBytes
	return info, nil
}

func decode(resp ResponseInfo, out interface{}) error {
	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return fmt.Errorf("HTTP %d: decode response failed: %w", resp.StatusCode, err)
	}
	if env.Code != pkgerrors.Success {
		return pkgerrors.New(env.Code).WithMessage(env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data failed: %w", err)
	}
	return nil
}
