package schedule

import (
	"context"
	"sync"
)

// Sink is the destination a delivery is written to. The dispatcher resolves
// one per claimed row; it never caches sinks across ticks.
type Sink interface {
	SendText(ctx context.Context, text string) error
	SendFile(ctx context.Context, path, caption string) error
}

// Resolver maps a stored channel id to its sink. A false return means the
// destination no longer exists; the row is failed without invoking a handler.
type Resolver func(channelID string) (Sink, bool)

// Handler delivers one claimed row's content to a sink. Content is the raw
// stored payload; its interpretation belongs entirely to the handler. Any
// returned error is captured verbatim as the row's terminal failure.
type Handler func(ctx context.Context, sink Sink, content string) error

// KindText is the built-in kind: content is sent to the sink verbatim.
const KindText = "text"

// Registry maps a schedule kind to its Handler. Safe for concurrent use;
// registration normally happens once at startup.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Handler
}

// NewRegistry returns a registry with the built-in text handler installed.
func NewRegistry() *Registry {
	r := &Registry{m: map[string]Handler{}}
	r.Register(KindText, func(ctx context.Context, sink Sink, content string) error {
		return sink.SendText(ctx, content)
	})
	return r
}

func (r *Registry) Register(kind string, h Handler) {
	if kind == "" || h == nil {
		return
	}
	r.mu.Lock()
	r.m[kind] = h
	r.mu.Unlock()
}

func (r *Registry) Get(kind string) (Handler, bool) {
	r.mu.RLock()
	h, ok := r.m[kind]
	r.mu.RUnlock()
	return h, ok
}
