// Package observability provides hooks for metrics, tracing, and logging.
//
// Instrumentation is optional and backend-agnostic. Consumers register hooks
// at startup to receive events about partitioning runs, evolution resampling,
// and cache operations. Libraries never import a metrics framework directly.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPartitionHooks(&myPartitionHooks{})
//	    observability.SetEvolutionHooks(&myProgressBar{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Partition().OnChunkStart(ctx, index, organisms)
//	// ... run the mixture model ...
//	observability.Partition().OnChunkComplete(ctx, index, q, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// PartitionHooks receives events from a partitioning run.
type PartitionHooks interface {
	// OnPartitionStart fires once per run, after chunks are planned.
	OnPartitionStart(ctx context.Context, organisms, families, chunks int)
	// OnPartitionComplete fires once per run with the chosen Q.
	OnPartitionComplete(ctx context.Context, q int, duration time.Duration, err error)

	// OnChunkStart fires before a chunk is solved.
	OnChunkStart(ctx context.Context, index, organisms int)
	// OnChunkComplete fires after a chunk is solved or fails.
	OnChunkComplete(ctx context.Context, index, q int, duration time.Duration, err error)
}

// EvolutionHooks receives events from a rarefaction run.
type EvolutionHooks interface {
	// OnEvolutionStart reports the number of scheduled samples.
	OnEvolutionStart(ctx context.Context, samples int)
	// OnSampleComplete fires after each sample finishes, in completion order.
	OnSampleComplete(ctx context.Context, size int, err error)
	// OnEvolutionComplete fires once after the log has been written.
	OnEvolutionComplete(ctx context.Context, failures int, duration time.Duration)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopPartitionHooks is a no-op implementation of PartitionHooks.
type NoopPartitionHooks struct{}

func (NoopPartitionHooks) OnPartitionStart(context.Context, int, int, int)                 {}
func (NoopPartitionHooks) OnPartitionComplete(context.Context, int, time.Duration, error)  {}
func (NoopPartitionHooks) OnChunkStart(context.Context, int, int)                          {}
func (NoopPartitionHooks) OnChunkComplete(context.Context, int, int, time.Duration, error) {}

// NoopEvolutionHooks is a no-op implementation of EvolutionHooks.
type NoopEvolutionHooks struct{}

func (NoopEvolutionHooks) OnEvolutionStart(context.Context, int)                   {}
func (NoopEvolutionHooks) OnSampleComplete(context.Context, int, error)            {}
func (NoopEvolutionHooks) OnEvolutionComplete(context.Context, int, time.Duration) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	partitionHooks PartitionHooks = NoopPartitionHooks{}
	evolutionHooks EvolutionHooks = NoopEvolutionHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	hooksMu        sync.RWMutex
)

// SetPartitionHooks registers custom partition hooks.
// This should be called once at application startup before any run.
func SetPartitionHooks(h PartitionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		partitionHooks = h
	}
}

// SetEvolutionHooks registers custom evolution hooks.
func SetEvolutionHooks(h EvolutionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		evolutionHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Partition returns the registered partition hooks.
func Partition() PartitionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return partitionHooks
}

// Evolution returns the registered evolution hooks.
func Evolution() EvolutionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return evolutionHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	partitionHooks = NoopPartitionHooks{}
	evolutionHooks = NoopEvolutionHooks{}
	cacheHooks = NoopCacheHooks{}
}
