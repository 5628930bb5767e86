// Package tasks is the client for the backend's task-completion endpoints:
// single chat-completion calls that turn conversation context into a narrow
// side artifact (title, tags, follow-ups, search queries, an auto-completion,
// an emoji).
//
// Model output on these endpoints is unreliable free text. Every decoder
// degrades to its documented fallback instead of failing; only transport and
// server errors surface to the caller.
package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chatrelay/chatrelay/internal/remote"
)

// Message is one chat message forwarded as task context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client issues task completions against one backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for the backend at baseURL. A non-positive
// timeout selects the 120s default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Complete posts payload to the named task endpoint and returns the raw
// completion text.
//
// Non-2xx responses become *remote.APIError with the server's detail field,
// network failures become *remote.TransportError. A 2xx response without the
// choices[0].message.content path yields "" without error; decoders already
// tolerate empty text.
func (c *Client) Complete(ctx context.Context, endpoint, token string, payload map[string]any) (string, error) {
	url := c.baseURL + "/tasks/" + endpoint + "/completions"

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal task payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	remote.Authorize(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &remote.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &remote.TransportError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &remote.APIError{StatusCode: resp.StatusCode, Detail: remote.Detail(respBody)}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode task response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}
