// Package batch chunks large item lists so rate-limited downstream APIs see
// bounded load while the caller gets observable progress.
package batch

import (
	"context"

	"github.com/rotisserie/eris"
)

// ProgressFunc receives (itemsProcessedSoFar, totalItems) after each chunk.
type ProgressFunc func(processed, total int)

// Chunk splits items into slices of at most size elements, preserving order.
// A size <= 0 yields a single chunk with everything.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]T{items}
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Process runs fn over items in strictly sequential chunks of at most size
// elements. Results are concatenated in input order. If any chunk fails the
// whole run fails: no later chunk is started and no partial results are
// returned. onProgress (optional) is invoked after each completed chunk.
func Process[T, R any](ctx context.Context, items []T, size int, fn func(ctx context.Context, chunk []T) ([]R, error), onProgress ProgressFunc) ([]R, error) {
	total := len(items)
	if total == 0 {
		return nil, nil
	}

	results := make([]R, 0, total)
	processed := 0
	for _, chunk := range Chunk(items, size) {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "batch: cancelled")
		}

		chunkResults, err := fn(ctx, chunk)
		if err != nil {
			return nil, eris.Wrapf(err, "batch: chunk at item %d failed", processed)
		}
		results = append(results, chunkResults...)

		processed += len(chunk)
		if onProgress != nil {
			onProgress(processed, total)
		}
	}

	return results, nil
}
