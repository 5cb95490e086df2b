package stream

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/utkarsh5026/lambdapool/pool"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the number of words counted by one pool job.
const DefaultChunkSize = 64

// CountWords counts the lower-cased occurrences of every word, splitting words into
// chunks that are counted in parallel on p. Partial counts are merged with a sum as
// they arrive, so the result does not depend on the order in which chunks finish.
//
// A chunkSize of 0 or less uses DefaultChunkSize. If any chunk fails, or ctx ends,
// the first error is returned.
func CountWords(ctx context.Context, p *pool.WorkerPool, words []string, chunkSize int) (map[string]int, error) {
	if p == nil {
		return nil, errors.New("stream: nil pool")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	handles := make([]*pool.Handle[map[string]int], 0, len(words)/chunkSize+1)
	for start := 0; start < len(words); start += chunkSize {
		chunk := words[start:min(start+chunkSize, len(words))]
		h, err := pool.Submit(p, pool.Bind(chunk, countChunk))
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}

	var mu sync.Mutex
	counts := make(map[string]int)

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range handles {
		g.Go(func() error {
			partial, err := h.AwaitContext(gctx)
			if err != nil {
				return err
			}

			mu.Lock()
			MergeInto(counts, partial, Sum[int])
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func countChunk(ctx context.Context, words []string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ToMap(Map(FromSlice(words), strings.ToLower),
		func(w string) string { return w },
		func(string) int { return 1 },
		Sum[int],
	)
}
