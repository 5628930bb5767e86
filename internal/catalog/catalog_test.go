package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chatrelay/chatrelay/internal/remote"
)

// serveModels returns a handler answering every request with {"data": models}.
func serveModels(models ...Model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": models})
	}
}

// newTestBuilder shortens the client timeout so timeout tests finish quickly.
func newTestBuilder(t *testing.T, backendURL string) *Builder {
	t.Helper()
	return NewBuilder(backendURL, 250*time.Millisecond)
}

func ids(models []Model) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		out = append(out, m.ID)
	}
	return out
}

// ─── Build ─────────────────────────────────────────────────────────────────

func TestBuild_BaseOnly(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/base" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		serveModels(Model{ID: "gpt-4", Name: "GPT-4"})(w, r)
	}))
	defer backend.Close()

	var connCalls atomic.Int32
	conn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connCalls.Add(1)
		serveModels(Model{ID: "never"})(w, r)
	}))
	defer conn.Close()

	b := newTestBuilder(t, backend.URL)
	models, err := b.Build(context.Background(), "tkn", []Connection{{BaseURL: conn.URL, Enabled: true}}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 || models[0].ID != "gpt-4" {
		t.Fatalf("unexpected catalog: %v", ids(models))
	}
	if models[0].Direct {
		t.Error("base catalog entries must not be marked direct")
	}
	if connCalls.Load() != 0 {
		t.Error("baseOnly must not touch connections")
	}
}

func TestBuild_ConnectionOverridesBase(t *testing.T) {
	backend := httptest.NewServer(serveModels(
		Model{ID: "llama3", Name: "Llama 3 (base)"},
		Model{ID: "gpt-4", Name: "GPT-4"},
	))
	defer backend.Close()

	conn := httptest.NewServer(serveModels(Model{ID: "llama3", Name: "Llama 3 (direct)"}))
	defer conn.Close()

	b := newTestBuilder(t, backend.URL)
	models, err := b.Build(context.Background(), "", []Connection{{BaseURL: conn.URL, Enabled: true}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := ids(models)
	want := []string{"llama3", "gpt-4"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if models[0].Name != "Llama 3 (direct)" || !models[0].Direct {
		t.Errorf("later write must win: %+v", models[0])
	}
	if models[0].ConnectionIndex == nil || *models[0].ConnectionIndex != 0 {
		t.Errorf("missing connection index: %+v", models[0])
	}
}

func TestBuild_PrefixAndTags(t *testing.T) {
	backend := httptest.NewServer(serveModels())
	defer backend.Close()

	conn := httptest.NewServer(serveModels(Model{ID: "llama3"}))
	defer conn.Close()

	b := newTestBuilder(t, backend.URL)
	models, err := b.Build(context.Background(), "", []Connection{{
		BaseURL:  conn.URL,
		Enabled:  true,
		IDPrefix: "local",
		Tags:     []string{"selfhosted"},
	}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("expected 1 model, got %v", ids(models))
	}
	if models[0].ID != "local.llama3" {
		t.Errorf("expected id local.llama3, got %q", models[0].ID)
	}
	if models[0].Name != "local.llama3" {
		t.Errorf("name must default to the prefixed id, got %q", models[0].Name)
	}
	if len(models[0].Tags) != 1 || models[0].Tags[0] != "selfhosted" {
		t.Errorf("missing tags: %+v", models[0])
	}
}

func TestBuild_DisabledConnectionContributesNothing(t *testing.T) {
	backend := httptest.NewServer(serveModels(Model{ID: "gpt-4"}))
	defer backend.Close()

	var connCalls atomic.Int32
	conn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connCalls.Add(1)
		serveModels(Model{ID: "hidden"})(w, r)
	}))
	defer conn.Close()

	b := newTestBuilder(t, backend.URL)
	models, err := b.Build(context.Background(), "", []Connection{{
		BaseURL:  conn.URL,
		Enabled:  false,
		ModelIDs: []string{"still", "nothing"},
	}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 || models[0].ID != "gpt-4" {
		t.Errorf("disabled connection leaked models: %v", ids(models))
	}
	if connCalls.Load() != 0 {
		t.Error("disabled connection must not be fetched")
	}
}

func TestBuild_AllowListSkipsDiscovery(t *testing.T) {
	backend := httptest.NewServer(serveModels())
	defer backend.Close()

	var connCalls atomic.Int32
	conn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connCalls.Add(1)
	}))
	defer conn.Close()

	b := newTestBuilder(t, backend.URL)
	models, err := b.Build(context.Background(), "", []Connection{{
		BaseURL:  conn.URL,
		Enabled:  true,
		ModelIDs: []string{"mixtral", "phi3"},
		IDPrefix: "lab",
	}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if connCalls.Load() != 0 {
		t.Error("allow-list must not trigger discovery")
	}
	got := ids(models)
	if len(got) != 2 || got[0] != "lab.mixtral" || got[1] != "lab.phi3" {
		t.Fatalf("unexpected catalog: %v", got)
	}
	// Synthesis fixes the name before prefixing; only missing names pick up
	// the rewritten id.
	if models[0].Name != "mixtral" {
		t.Errorf("unexpected name: %q", models[0].Name)
	}
	if models[0].OwnedBy != "openai" {
		t.Errorf("unexpected owned_by: %q", models[0].OwnedBy)
	}
}

func TestBuild_FailedConnectionIsIsolated(t *testing.T) {
	backend := httptest.NewServer(serveModels(Model{ID: "gpt-4"}))
	defer backend.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	good := httptest.NewServer(serveModels(Model{ID: "llama3"}))
	defer good.Close()

	b := newTestBuilder(t, backend.URL)
	models, err := b.Build(context.Background(), "", []Connection{
		{BaseURL: bad.URL, Enabled: true},
		{BaseURL: good.URL, Enabled: true},
	}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := ids(models)
	if len(got) != 2 || got[0] != "gpt-4" || got[1] != "llama3" {
		t.Errorf("unexpected catalog: %v", got)
	}
}

func TestBuild_TimedOutConnectionDoesNotBlockOthers(t *testing.T) {
	backend := httptest.NewServer(serveModels(Model{ID: "gpt-4"}))
	defer backend.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	fast := httptest.NewServer(serveModels(Model{ID: "llama3"}))
	defer fast.Close()

	b := newTestBuilder(t, backend.URL)
	start := time.Now()
	models, err := b.Build(context.Background(), "", []Connection{
		{BaseURL: slow.URL, Enabled: true},
		{BaseURL: fast.URL, Enabled: true},
	}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("build took too long: %v", elapsed)
	}
	got := ids(models)
	if len(got) != 2 || got[0] != "gpt-4" || got[1] != "llama3" {
		t.Errorf("unexpected catalog: %v", got)
	}
}

func TestBuild_BareArrayConnectionResponse(t *testing.T) {
	backend := httptest.NewServer(serveModels())
	defer backend.Close()

	conn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Model{{ID: "mistral"}})
	}))
	defer conn.Close()

	b := newTestBuilder(t, backend.URL)
	models, err := b.Build(context.Background(), "", []Connection{{BaseURL: conn.URL, Enabled: true}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 || models[0].ID != "mistral" {
		t.Errorf("unexpected catalog: %v", ids(models))
	}
}

func TestBuild_BaseFailurePropagates(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "invalid token"})
	}))
	defer backend.Close()

	b := newTestBuilder(t, backend.URL)
	_, err := b.Build(context.Background(), "bad", nil, false)
	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Detail != "invalid token" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestBuild_SendsConnectionKeyNotCallerToken(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer caller" {
			t.Errorf("backend expected caller token, got %q", got)
		}
		serveModels()(w, r)
	}))
	defer backend.Close()

	conn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer conn-key" {
			t.Errorf("connection expected its own key, got %q", got)
		}
		serveModels()(w, r)
	}))
	defer conn.Close()

	b := newTestBuilder(t, backend.URL)
	if _, err := b.Build(context.Background(), "caller", []Connection{{BaseURL: conn.URL, APIKey: "conn-key", Enabled: true}}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ─── Verify ────────────────────────────────────────────────────────────────

func TestVerify(t *testing.T) {
	good := httptest.NewServer(serveModels(Model{ID: "llama3"}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "key rejected"})
	}))
	defer bad.Close()

	b := newTestBuilder(t, good.URL)
	if err := b.Verify(context.Background(), Connection{BaseURL: good.URL, APIKey: "k"}); err != nil {
		t.Errorf("expected healthy connection, got %v", err)
	}
	err := b.Verify(context.Background(), Connection{BaseURL: bad.URL, APIKey: "k"})
	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 APIError, got %v", err)
	}
}

// ─── mergeByID ─────────────────────────────────────────────────────────────

func TestMergeByID_OrderAndOverride(t *testing.T) {
	merged := mergeByID([]Model{
		{ID: "a", Name: "first"},
		{ID: "b"},
		{ID: "a", Name: "second"},
	})
	if len(merged) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(merged))
	}
	if merged[0].ID != "a" || merged[0].Name != "second" {
		t.Errorf("later write must win in place: %+v", merged[0])
	}
	if merged[1].ID != "b" {
		t.Errorf("order not preserved: %+v", merged[1])
	}
}
