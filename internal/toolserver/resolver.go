package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/chatrelay/chatrelay/internal/remote"
)

// Client resolves tool-spec documents and invokes their operations.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a tool-server client. A non-positive timeout selects the
// 120s default.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// Resolve fetches the OpenAPI document at docURL and builds its invocation
// bundle.
//
// Format dispatch is by URL suffix, not Content-Type: .yaml/.yml
// (case-insensitive) parse as YAML, everything else as strict JSON, so a YAML
// body served under a .json name is a ParseError. Servers are trusted to name
// their documents consistently.
func (c *Client) Resolve(ctx context.Context, docURL, token string) (*Bundle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	remote.Authorize(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &remote.TransportError{URL: docURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &remote.TransportError{URL: docURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if hasYAMLSuffix(docURL) {
		var probe map[string]any
		if err := yaml.Unmarshal(body, &probe); err != nil {
			return nil, &ParseError{URL: docURL, Err: err}
		}
	} else if !json.Valid(body) {
		return nil, &ParseError{URL: docURL, Err: errors.New("document is not valid JSON")}
	}

	doc, err := openapi3.NewLoader().LoadFromData(body)
	if err != nil {
		return nil, &ParseError{URL: docURL, Err: err}
	}

	bundle := &Bundle{
		Doc:        doc,
		BaseURL:    deriveBase(docURL),
		Operations: make(map[string]Operation),
	}
	if doc.Info != nil {
		bundle.Info = Info{
			Title:       doc.Info.Title,
			Version:     doc.Info.Version,
			Description: doc.Info.Description,
		}
	}
	if doc.Paths != nil {
		for pathTemplate, item := range doc.Paths.Map() {
			for method, op := range item.Operations() {
				if op == nil || op.OperationID == "" {
					continue
				}
				bundle.Operations[op.OperationID] = Operation{
					Path:    pathTemplate,
					Method:  method,
					Params:  operationParams(op),
					HasBody: hasRequestBody(op),
				}
			}
		}
	}
	return bundle, nil
}

func hasYAMLSuffix(docURL string) bool {
	lower := strings.ToLower(docURL)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

// deriveBase strips the document segment from docURL; operations are invoked
// relative to the directory the document lives in.
func deriveBase(docURL string) string {
	u, err := url.Parse(docURL)
	if err != nil {
		return strings.TrimRight(docURL, "/")
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = path.Dir(u.Path)
	if u.Path == "/" || u.Path == "." {
		u.Path = ""
	}
	return strings.TrimRight(u.String(), "/")
}

func operationParams(op *openapi3.Operation) []Param {
	params := make([]Param, 0, len(op.Parameters))
	for _, ref := range op.Parameters {
		if ref == nil || ref.Value == nil {
			continue
		}
		switch ref.Value.In {
		case openapi3.ParameterInPath:
			params = append(params, Param{Name: ref.Value.Name, In: InPath})
		case openapi3.ParameterInQuery:
			params = append(params, Param{Name: ref.Value.Name, In: InQuery})
		}
	}
	return params
}

func hasRequestBody(op *openapi3.Operation) bool {
	return op.RequestBody != nil && op.RequestBody.Value != nil && len(op.RequestBody.Value.Content) > 0
}
