// Package toolserver talks to third-party HTTP services described by OpenAPI
// documents. A server's document is fetched and indexed at resolve time;
// operations are then invoked dynamically by operationId, with no static
// bindings and no cross-request caching.
package toolserver

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/chatrelay/chatrelay/internal/shared/llmtext"
)

// ParamLocation tags where an operation parameter is transcribed.
type ParamLocation string

const (
	InPath  ParamLocation = "path"
	InQuery ParamLocation = "query"
)

// Param is one declared operation parameter. Only path and query parameters
// are transcribed into requests; other locations are ignored at resolve time.
type Param struct {
	Name string
	In   ParamLocation
}

// Operation is the resolved route for one operationId.
type Operation struct {
	Path    string // template with literal {name} placeholders
	Method  string // upper-case HTTP method
	Params  []Param
	HasBody bool
}

// Info is the document metadata subset surfaced to callers.
type Info struct {
	Title       string
	Version     string
	Description string
}

// Bundle is one resolved tool server: the parsed document, its metadata, the
// invocation base URL, and the operationId index built from every
// path × method. Bundles are built per resolve and never cached.
type Bundle struct {
	Doc        *openapi3.T
	Info       Info
	BaseURL    string
	Operations map[string]Operation
}

// FetchError is a non-2xx answer while fetching a tool-spec document.
type FetchError struct {
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("tool server returned %d: %s", e.StatusCode, llmtext.Truncate(e.Body, 300))
}

// ParseError is a tool-spec document that could not be parsed in the format
// its URL suffix promises. Documents are never repaired.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse tool spec %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// OperationNotFoundError reports an invocation of an operationId the resolved
// document does not declare. Invoke converts it into an {"error": ...} value;
// targeting a wrong operation name is an expected caller mistake, not a fault.
type OperationNotFoundError struct {
	Name string
}

func (e *OperationNotFoundError) Error() string {
	return fmt.Sprintf("operation %q not found in tool spec", e.Name)
}
