// Package oracle is the prompt phase's client for the external LLM text
// oracle: an opaque POST-in/text-out service. It carries no
// provider-specific request shaping beyond a plain http.Client with a
// configurable timeout, since the oracle is treated as a single opaque
// text endpoint rather than a specific model provider.
package oracle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"crforge/internal/logging"
)

// Client sends a CR's work-file context to the oracle and returns its raw
// text response, which the json phase then runs through internal/repair.
type Client struct {
	addr   string
	client *http.Client
}

// New builds a Client bound to addr (host:port) with the given timeout.
func New(addr string, timeout time.Duration) *Client {
	return &Client{
		addr:   addr,
		client: &http.Client{Timeout: timeout},
	}
}

// Ask posts prompt to the oracle's /ask endpoint and returns its response
// body verbatim.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	timer := logging.StartTimer(logging.CategoryOracle, "Ask")
	defer timer.Stop()

	url := fmt.Sprintf("http://%s/ask", c.addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(prompt))
	if err != nil {
		return "", fmt.Errorf("oracle: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	logging.Oracle("asking oracle at %s (%d bytes)", url, len(prompt))
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("oracle: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	logging.Oracle("oracle responded with %d bytes", len(body))
	return string(body), nil
}
