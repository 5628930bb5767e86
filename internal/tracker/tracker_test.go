package tracker

import (
	"context"
	"testing"
	"time"
)

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// ─── Launch / deregistration ───────────────────────────────────────────────

func TestLocalLaunch_RegistersUntilDone(t *testing.T) {
	l := NewLocal()
	release := make(chan struct{})

	id := l.Launch(context.Background(), "chat-1", func(ctx context.Context) {
		<-release
	})
	if id == "" {
		t.Fatal("expected non-empty id")
	}
	if got := l.List(); len(got) != 1 || got[0] != id {
		t.Fatalf("unexpected list: %v", got)
	}

	close(release)
	waitUntil(t, func() bool { return len(l.List()) == 0 }, "run did not deregister")
}

func TestLocalLaunch_ParentCancelPropagates(t *testing.T) {
	l := NewLocal()
	stopped := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	l.Launch(ctx, "", func(runCtx context.Context) {
		<-runCtx.Done()
		close(stopped)
	})

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not observe parent cancellation")
	}
}

// ─── Stop ──────────────────────────────────────────────────────────────────

func TestLocalStop_CancelsRun(t *testing.T) {
	l := NewLocal()
	stopped := make(chan struct{})

	id := l.Launch(context.Background(), "", func(ctx context.Context) {
		<-ctx.Done()
		close(stopped)
	})

	if !l.Stop(id) {
		t.Fatal("Stop returned false for a registered run")
	}
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not observe cancellation")
	}
	waitUntil(t, func() bool { return len(l.List()) == 0 }, "stopped run did not deregister")
}

func TestLocalStop_UnknownID(t *testing.T) {
	l := NewLocal()
	if l.Stop("ghost") {
		t.Error("expected Stop to return false for an unknown id")
	}
}

// ─── Listing ───────────────────────────────────────────────────────────────

func TestLocalListByChat(t *testing.T) {
	l := NewLocal()
	release := make(chan struct{})
	defer close(release)
	block := func(ctx context.Context) { <-release }

	a := l.Launch(context.Background(), "chat-1", block)
	b := l.Launch(context.Background(), "chat-1", block)
	c := l.Launch(context.Background(), "chat-2", block)

	got := l.ListByChat("chat-1")
	if len(got) != 2 {
		t.Fatalf("expected 2 runs for chat-1, got %v", got)
	}
	if got[0] != a && got[1] != a {
		t.Errorf("missing run %s in %v", a, got)
	}
	if got[0] != b && got[1] != b {
		t.Errorf("missing run %s in %v", b, got)
	}

	if got := l.ListByChat("chat-2"); len(got) != 1 || got[0] != c {
		t.Errorf("unexpected runs for chat-2: %v", got)
	}
	if got := l.ListByChat("chat-3"); len(got) != 0 {
		t.Errorf("expected no runs for chat-3, got %v", got)
	}
}

// ─── Close ─────────────────────────────────────────────────────────────────

func TestLocalClose_CancelsEverything(t *testing.T) {
	l := NewLocal()
	first := make(chan struct{})
	second := make(chan struct{})

	l.Launch(context.Background(), "", func(ctx context.Context) {
		<-ctx.Done()
		close(first)
	})
	l.Launch(context.Background(), "", func(ctx context.Context) {
		<-ctx.Done()
		close(second)
	})

	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for _, ch := range []chan struct{}{first, second} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("run did not observe Close")
		}
	}
}
