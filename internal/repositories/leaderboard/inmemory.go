package leaderboard

import (
	"context"
	"sort"
	"sync"
)

var _ Repository = (*inMemoryRepository)(nil)

type inMemoryRepository struct {
	mu      sync.RWMutex
	records []Record
	byID    map[string]int
}

// NewInMemory creates a leaderboard kept in process memory, for running
// without Redis and for tests
func NewInMemory() Repository {
	return &inMemoryRepository{
		byID: make(map[string]int),
	}
}

func (r *inMemoryRepository) Save(_ context.Context, input SaveInput) (*SaveOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range input.Records {
		if _, ok := r.byID[rec.ID]; ok {
			r.remove(rec.ID)
		}
		idx := sort.Search(len(r.records), func(i int) bool {
			return Less(rec, r.records[i])
		})
		r.records = append(r.records, Record{})
		copy(r.records[idx+1:], r.records[idx:])
		r.records[idx] = rec
		r.reindex(idx)
	}

	return &SaveOutput{Saved: len(input.Records)}, nil
}

func (r *inMemoryRepository) List(_ context.Context, input ListInput) (*ListOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if input.Offset >= len(r.records) {
		return &ListOutput{}, nil
	}
	end := min(input.Offset+input.Limit, len(r.records))
	out := make([]Record, end-input.Offset)
	copy(out, r.records[input.Offset:end])
	return &ListOutput{Records: out}, nil
}

func (r *inMemoryRepository) remove(id string) {
	idx := r.byID[id]
	r.records = append(r.records[:idx], r.records[idx+1:]...)
	delete(r.byID, id)
	r.reindex(idx)
}

func (r *inMemoryRepository) reindex(from int) {
	for i := from; i < len(r.records); i++ {
		r.byID[r.records[i].ID] = i
	}
}
