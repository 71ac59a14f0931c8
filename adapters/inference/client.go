package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shrimp/internal/errors"
	"shrimp/ports"
)

// Client calls the model serving endpoint over HTTP. One synchronous POST
// per prediction; no retries, the caller decides whether to re-run.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new inference client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type inferRequest struct {
	Input ports.Tensor `json:"input"`
}

type inferResponse struct {
	Output ports.Tensor `json:"output"`
	Error  string       `json:"error,omitempty"`
}

// Infer posts the scaled lag tensor and returns the model's flat output
// tensor. Any transport, status or shape problem maps to INFERENCE_ERROR.
func (c *Client) Infer(ctx context.Context, input ports.Tensor) (ports.Tensor, error) {
	if err := input.Validate(); err != nil {
		return ports.Tensor{}, errors.InferenceError(err)
	}

	payload, err := json.Marshal(inferRequest{Input: input})
	if err != nil {
		return ports.Tensor{}, errors.InferenceError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return ports.Tensor{}, errors.InferenceError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.Tensor{}, errors.InferenceError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.Tensor{}, errors.InferenceError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return ports.Tensor{}, errors.InferenceError(
			fmt.Errorf("model endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var out inferResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return ports.Tensor{}, errors.InferenceError(fmt.Errorf("malformed model response: %w", err))
	}
	if out.Error != "" {
		return ports.Tensor{}, errors.InferenceError(fmt.Errorf("model endpoint error: %s", out.Error))
	}
	if err := out.Output.Validate(); err != nil {
		return ports.Tensor{}, errors.InferenceError(err)
	}
	return out.Output, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
