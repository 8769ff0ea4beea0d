package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_Sizes(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	chunks := Chunk(items, 3)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{1, 2, 3}, chunks[0])
	assert.Equal(t, []int{4, 5, 6}, chunks[1])
	assert.Equal(t, []int{7}, chunks[2])

	assert.Len(t, Chunk(items, 0), 1)
	assert.Len(t, Chunk(items, 100), 1)
	assert.Nil(t, Chunk([]int{}, 3))
}

func TestProcess_ChunkCountAndOrder(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	var chunkSizes []int
	var lastSeen = -1
	results, err := Process(context.Background(), items, 10, func(_ context.Context, chunk []int) ([]int, error) {
		chunkSizes = append(chunkSizes, len(chunk))
		for _, v := range chunk {
			require.Equal(t, lastSeen+1, v, "items must arrive in input order")
			lastSeen = v
		}
		return chunk, nil
	}, nil)
	require.NoError(t, err)

	// ceil(25/10) = 3 chunks of at most 10 items each.
	assert.Equal(t, []int{10, 10, 5}, chunkSizes)
	assert.Equal(t, items, results)
}

func TestProcess_ProgressCallback(t *testing.T) {
	items := make([]string, 25)
	type progress struct{ done, total int }
	var calls []progress

	_, err := Process(context.Background(), items, 10, func(_ context.Context, chunk []string) ([]string, error) {
		return chunk, nil
	}, func(done, total int) {
		calls = append(calls, progress{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, []progress{{10, 25}, {20, 25}, {25, 25}}, calls)
}

func TestProcess_AbortsOnChunkFailure(t *testing.T) {
	items := make([]int, 30)
	boom := errors.New("provider exploded")

	var invocations int
	results, err := Process(context.Background(), items, 10, func(_ context.Context, chunk []int) ([]int, error) {
		invocations++
		if invocations == 2 {
			return nil, boom
		}
		return chunk, nil
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, results, "no partial results on failure")
	assert.Equal(t, 2, invocations, "no chunk after the failing one may run")
}

func TestProcess_EmptyInput(t *testing.T) {
	results, err := Process(context.Background(), nil, 10, func(_ context.Context, chunk []int) ([]int, error) {
		t.Fatal("fn must not be called for empty input")
		return nil, nil
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Process(ctx, []int{1, 2, 3}, 1, func(_ context.Context, chunk []int) ([]int, error) {
		return chunk, nil
	}, nil)
	require.Error(t, err)
}
