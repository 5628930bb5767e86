package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chatrelay/chatrelay/internal/remote"
)

// Builder fetches and merges model catalogs. Safe for concurrent use; every
// Build call is independent and nothing is cached between calls.
type Builder struct {
	baseURL    string
	httpClient *http.Client
}

// NewBuilder returns a Builder for the backend at baseURL. A non-positive
// timeout selects the 120s default.
func NewBuilder(baseURL string, timeout time.Duration) *Builder {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Builder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Build assembles the merged catalog.
//
// With baseOnly it returns the backend's base catalog unmodified. Otherwise it
// fetches the base catalog, fans out one concurrent fetch per enabled
// connection (all-settle: a failing or slow connection degrades to an empty
// contribution and never blocks the rest), applies per-connection index,
// id prefix and tags, and merges everything id-keyed with later writes winning.
func (b *Builder) Build(ctx context.Context, token string, conns []Connection, baseOnly bool) ([]Model, error) {
	if baseOnly {
		return b.fetchBase(ctx, token, true)
	}

	base, err := b.fetchBase(ctx, token, false)
	if err != nil {
		return nil, err
	}

	contributions := make([][]Model, len(conns))
	g, gctx := errgroup.WithContext(ctx)
	for i, conn := range conns {
		if !conn.Enabled {
			continue // keeps an empty contribution at position i
		}
		if len(conn.ModelIDs) > 0 {
			contributions[i] = synthesize(conn.ModelIDs)
			continue
		}
		i, conn := i, conn
		g.Go(func() error {
			models, err := b.fetchConnection(gctx, conn)
			if err != nil {
				slog.Warn("connection model fetch failed", "index", i, "url", conn.BaseURL, "error", err)
				return nil
			}
			contributions[i] = models
			return nil
		})
	}
	_ = g.Wait() // goroutines never return an error; failures become empty contributions
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	merged := append([]Model(nil), base...)
	for i, conn := range conns {
		models := contributions[i]
		for j := range models {
			at := i
			models[j].ConnectionIndex = &at
			if conn.IDPrefix != "" {
				models[j].ID = conn.IDPrefix + "." + models[j].ID
			}
			if len(conn.Tags) > 0 {
				models[j].Tags = conn.Tags
			}
			models[j].Direct = true
			if models[j].Name == "" {
				models[j].Name = models[j].ID
			}
		}
		merged = append(merged, models...)
	}
	return mergeByID(merged), nil
}

// Verify probes a connection's model-listing endpoint with its own key.
// A nil return means the connection answered 2xx with a decodable list.
func (b *Builder) Verify(ctx context.Context, conn Connection) error {
	_, err := b.fetchConnection(ctx, conn)
	return err
}

func (b *Builder) fetchBase(ctx context.Context, token string, baseOnly bool) ([]Model, error) {
	url := b.baseURL + "/models"
	if baseOnly {
		url += "/base"
	}
	return b.fetchList(ctx, url, token)
}

func (b *Builder) fetchConnection(ctx context.Context, conn Connection) ([]Model, error) {
	url := strings.TrimRight(conn.BaseURL, "/") + "/models"
	return b.fetchList(ctx, url, conn.APIKey)
}

func (b *Builder) fetchList(ctx context.Context, url, token string) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	remote.Authorize(req, token)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &remote.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &remote.TransportError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &remote.APIError{StatusCode: resp.StatusCode, Detail: remote.Detail(body)}
	}
	return decodeModelList(body)
}
