package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/chatrelay/chatrelay/internal/remote"
)

// Invoke executes the named operation with the given arguments.
//
// It never returns a Go error: every failure, from an unknown operation name
// to a tool-server 500, is converted into map[string]any{"error": message}.
// Tool invocations fail routinely and the caller branches on the value
// instead of unwinding.
func (c *Client) Invoke(ctx context.Context, bundle *Bundle, name string, args map[string]any, token string) any {
	result, err := c.invoke(ctx, bundle, name, args, token)
	if err != nil {
		slog.Warn("tool invocation failed", "operation", name, "error", err)
		return map[string]any{"error": err.Error()}
	}
	return result
}

func (c *Client) invoke(ctx context.Context, bundle *Bundle, name string, args map[string]any, token string) (any, error) {
	op, ok := bundle.Operations[name]
	if !ok {
		return nil, &OperationNotFoundError{Name: name}
	}

	// Transcribe declared parameters only; undeclared argument keys reach the
	// server through the body at most. Unresolved {placeholders} stay literal
	// and surface as the server's 404.
	route := op.Path
	query := url.Values{}
	for _, p := range op.Params {
		v, ok := args[p.Name]
		if !ok {
			continue
		}
		switch p.In {
		case InPath:
			route = strings.ReplaceAll(route, "{"+p.Name+"}", url.PathEscape(fmt.Sprint(v)))
		case InQuery:
			query.Set(p.Name, fmt.Sprint(v))
		}
	}
	fullURL := bundle.BaseURL + route
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	// The entire args map goes out verbatim as the body, path/query values
	// included. Loosely specified servers rely on that duplication.
	var body io.Reader
	attachBody := op.HasBody &&
		(op.Method == http.MethodPost || op.Method == http.MethodPut || op.Method == http.MethodPatch)
	if attachBody {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshal tool arguments: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, op.Method, fullURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	remote.Authorize(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &remote.TransportError{URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &remote.TransportError{URL: fullURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Tool servers are arbitrary third parties; their error bodies are
		// passed through verbatim, never decoded.
		return nil, fmt.Errorf("tool server returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode tool response: %w", err)
	}
	return result, nil
}
