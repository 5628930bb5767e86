// Package tracker registers in-flight task runs so they can be listed and
// aborted while they execute, in process memory or across instances through
// Redis.
package tracker

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Tracker registers running task calls under generated ids.
type Tracker interface {
	// Launch runs fn in its own goroutine under a cancellable child of ctx
	// and returns the id the run is registered under. chatID may be empty
	// for runs not tied to a conversation.
	Launch(ctx context.Context, chatID string, fn func(context.Context)) string
	// Stop cancels the run registered under id. A local tracker reports
	// whether the id was known; a distributed tracker reports whether the
	// stop command was broadcast.
	Stop(id string) bool
	// List returns the ids of all registered runs, sorted.
	List() []string
	// ListByChat returns the ids of runs registered under chatID, sorted.
	ListByChat(chatID string) []string
	Close() error
}

type run struct {
	chatID string
	cancel context.CancelFunc
}

// Local tracks runs in process memory. Runs deregister themselves when their
// function returns, whether it finished or was cancelled.
type Local struct {
	mu   sync.Mutex
	runs map[string]*run

	// onExit, when set, is called after a run deregisters. The Redis
	// tracker uses it to drop its mirrored entries.
	onExit func(id, chatID string)
}

func NewLocal() *Local {
	return &Local{runs: make(map[string]*run)}
}

func (l *Local) Launch(ctx context.Context, chatID string, fn func(context.Context)) string {
	id := uuid.NewString()
	l.launch(ctx, id, chatID, fn)
	return id
}

func (l *Local) launch(ctx context.Context, id, chatID string, fn func(context.Context)) {
	runCtx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	l.runs[id] = &run{chatID: chatID, cancel: cancel}
	l.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			l.mu.Lock()
			delete(l.runs, id)
			onExit := l.onExit
			l.mu.Unlock()
			if onExit != nil {
				onExit(id, chatID)
			}
		}()
		fn(runCtx)
	}()
}

func (l *Local) Stop(id string) bool {
	l.mu.Lock()
	r, ok := l.runs[id]
	l.mu.Unlock()
	if !ok {
		return false
	}
	r.cancel()
	return true
}

func (l *Local) List() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.runs))
	for id := range l.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Local) ListByChat(chatID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ids []string
	for id, r := range l.runs {
		if r.chatID == chatID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Close cancels every registered run. It does not wait for them to return.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.runs {
		r.cancel()
	}
	return nil
}
