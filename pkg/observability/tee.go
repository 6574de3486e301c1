package observability

import (
	"context"
	"time"
)

// TeePartition returns hooks forwarding every event to each of hs in order.
func TeePartition(hs ...PartitionHooks) PartitionHooks { return partitionTee(hs) }

// TeeEvolution returns hooks forwarding every event to each of hs in order.
func TeeEvolution(hs ...EvolutionHooks) EvolutionHooks { return evolutionTee(hs) }

type partitionTee []PartitionHooks

func (t partitionTee) OnPartitionStart(ctx context.Context, organisms, families, chunks int) {
	for _, h := range t {
		h.OnPartitionStart(ctx, organisms, families, chunks)
	}
}

func (t partitionTee) OnPartitionComplete(ctx context.Context, q int, d time.Duration, err error) {
	for _, h := range t {
		h.OnPartitionComplete(ctx, q, d, err)
	}
}

func (t partitionTee) OnChunkStart(ctx context.Context, index, organisms int) {
	for _, h := range t {
		h.OnChunkStart(ctx, index, organisms)
	}
}

func (t partitionTee) OnChunkComplete(ctx context.Context, index, q int, d time.Duration, err error) {
	for _, h := range t {
		h.OnChunkComplete(ctx, index, q, d, err)
	}
}

type evolutionTee []EvolutionHooks

func (t evolutionTee) OnEvolutionStart(ctx context.Context, samples int) {
	for _, h := range t {
		h.OnEvolutionStart(ctx, samples)
	}
}

func (t evolutionTee) OnSampleComplete(ctx context.Context, size int, err error) {
	for _, h := range t {
		h.OnSampleComplete(ctx, size, err)
	}
}

func (t evolutionTee) OnEvolutionComplete(ctx context.Context, failures int, d time.Duration) {
	for _, h := range t {
		h.OnEvolutionComplete(ctx, failures, d)
	}
}
