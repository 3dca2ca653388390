// Package observability provides hooks for metrics and tracing.
//
// Libraries call the registered hooks; main registers real implementations
// at startup. The defaults do nothing, so packages that emit events never
// depend on a metrics backend. [PromHooks] is the Prometheus backend used
// by the server.
//
//	func main() {
//	    hooks := observability.NewPromHooks(prometheus.DefaultRegisterer)
//	    observability.SetTransformHooks(hooks)
//	    observability.SetCacheHooks(hooks)
//	    observability.SetHTTPHooks(hooks)
//	}
//
// Libraries emit events through the accessors:
//
//	observability.Transform().OnTransformStart(ctx, lines)
//	// ... transform ...
//	observability.Transform().OnTransformComplete(ctx, summary, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// TransformSummary is what a finished transform reports.
type TransformSummary struct {
	Lines    int
	Moves    int
	SubMoves int
	Resyncs  int
	CacheHit bool
	// SubMovesByRegion counts sub-moves per region name.
	SubMovesByRegion map[string]int
}

// TransformHooks receives events from the transform pipeline.
type TransformHooks interface {
	OnTransformStart(ctx context.Context, lines int)
	OnTransformComplete(ctx context.Context, s TransformSummary, duration time.Duration, err error)
}

// CacheHooks receives events from cache lookups.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// NoopTransformHooks does nothing.
type NoopTransformHooks struct{}

func (NoopTransformHooks) OnTransformStart(context.Context, int) {}
func (NoopTransformHooks) OnTransformComplete(context.Context, TransformSummary, time.Duration, error) {
}

// NoopCacheHooks does nothing.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks does nothing.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                       {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

var (
	transformHooks TransformHooks = NoopTransformHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	httpHooks      HTTPHooks      = NoopHTTPHooks{}
	hooksMu        sync.RWMutex
)

// SetTransformHooks registers transform hooks. A nil h is ignored.
func SetTransformHooks(h TransformHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		transformHooks = h
	}
}

// SetCacheHooks registers cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Transform returns the registered transform hooks.
func Transform() TransformHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return transformHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores the no-op hooks. It is meant for tests.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	transformHooks = NoopTransformHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
