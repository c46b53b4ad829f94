// internal/exam/loader.go
package exam

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// MaxInQuery is the largest id set a single "id IN (...)" query may carry.
const MaxInQuery = 10

// Chunk splits ids into consecutive groups of at most size entries.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxInQuery
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

// LoadOrdered fetches every question referenced by ids, one query per chunk,
// and returns them in the order of ids. Ids with no stored question are
// dropped, shortening the result.
func LoadOrdered(ctx context.Context, q QuestionQuerier, ids []string) ([]Question, error) {
	var (
		mu  sync.Mutex
		all []Question
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range Chunk(ids, MaxInQuery) {
		chunk := chunk
		g.Go(func() error {
			qs, err := q.QuestionsByIDs(gctx, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, qs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	SortByIDs(all, ids)
	return all, nil
}

// SortByIDs stable-sorts qs by each question's first index in ids. A question
// absent from ids sorts first, as index -1.
func SortByIDs(qs []Question, ids []string) {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := pos[id]; !ok {
			pos[id] = i
		}
	}
	indexOf := func(id string) int {
		if i, ok := pos[id]; ok {
			return i
		}
		return -1
	}
	sort.SliceStable(qs, func(i, j int) bool {
		return indexOf(qs[i].ID) < indexOf(qs[j].ID)
	})
}
