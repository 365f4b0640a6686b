package orgctx

import (
	"context"
	"sync"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
)

type contextKey int

const memoContextKey contextKey = iota

type memoKey struct {
	actorID uuid.UUID
	slug    string
}

type memoEntry struct {
	once sync.Once
	oc   *Context
	err  error
}

// memo shares resolutions within one logical request. It is discarded with the request context.
type memo struct {
	mu      sync.Mutex
	entries map[memoKey]*memoEntry
}

// WithMemo returns a context in which repeated resolutions of the same (actor, slug)
// return the first result. Upstream failures are not memoized.
func WithMemo(ctx context.Context) context.Context {
	if memoFromContext(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, memoContextKey, &memo{entries: make(map[memoKey]*memoEntry)})
}

func memoFromContext(ctx context.Context) *memo {
	m, _ := ctx.Value(memoContextKey).(*memo)
	return m
}

func (m *memo) do(actorID uuid.UUID, slug string, fn func() (*Context, error)) (*Context, error) {
	key := memoKey{actorID: actorID, slug: slug}

	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memoEntry{}
		m.entries[key] = entry
	}
	m.mu.Unlock()

	entry.once.Do(func() {
		entry.oc, entry.err = fn()
	})

	if entry.err != nil && !apperr.IsDecision(entry.err) {
		m.mu.Lock()
		if m.entries[key] == entry {
			delete(m.entries, key)
		}
		m.mu.Unlock()
	}

	return entry.oc, entry.err
}

// NewMemoInterceptor returns a connect interceptor that scopes a resolution memo to each RPC.
func NewMemoInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			return next(WithMemo(ctx), req)
		}
	}
}
