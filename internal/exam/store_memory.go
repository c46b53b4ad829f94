package exam

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a Store kept in process memory. Used by tests and for
// throwaway local runs.
type MemoryStore struct {
	mu        sync.RWMutex
	questions map[string]Question
	exams     map[string]Exam
	results   []Result
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		questions: map[string]Question{},
		exams:     map[string]Exam{},
	}
}

func (m *MemoryStore) AddQuestion(_ context.Context, q Question) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.Images == nil {
		q.Images = []string{}
	}
	q.ID = uuid.NewString()
	q.CreatedAt = now()
	m.questions[q.ID] = q
	return q, nil
}

func (m *MemoryStore) ListQuestions(_ context.Context) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Question, 0, len(m.questions))
	for _, q := range m.questions {
		out = append(out, q)
	}
	sortQuestionsNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) QuestionsByIDs(_ context.Context, ids []string) ([]Question, error) {
	if len(ids) > MaxInQuery {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyIDs, len(ids), MaxInQuery)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Question{}
	seen := map[string]bool{}
	for _, id := range ids {
		if q, ok := m.questions[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, q)
		}
	}
	sortQuestionsNewestFirst(out)
	return out, nil
}

func sortQuestionsNewestFirst(qs []Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].CreatedAt.Equal(qs[j].CreatedAt) {
			return qs[i].ID > qs[j].ID
		}
		return qs[i].CreatedAt.After(qs[j].CreatedAt)
	})
}

func (m *MemoryStore) AddExam(_ context.Context, e Exam) (Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.NewString()
	e.CreatedAt = now()
	e.QuestionIDs = append([]string(nil), e.QuestionIDs...)
	m.exams[e.ID] = e
	return e, nil
}

func (m *MemoryStore) GetExam(_ context.Context, id string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}
	return e, nil
}

func (m *MemoryStore) ListExams(_ context.Context, opts ListOpts) ([]Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Exam{}
	for _, e := range m.exams {
		if opts.ActiveOnly && !e.IsActive {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if opts.Limit > 0 {
		if opts.Offset >= len(out) {
			return []Exam{}, nil
		}
		out = out[opts.Offset:]
		if len(out) > opts.Limit {
			out = out[:opts.Limit]
		}
	}
	return out, nil
}

func (m *MemoryStore) AddResult(_ context.Context, r Result) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	r.Timestamp = now()
	if r.Mode == "" {
		r.Mode = "take"
	}
	m.results = append(m.results, r)
	return r, nil
}

// Results returns a copy of every stored result, oldest first.
func (m *MemoryStore) Results() []Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Result(nil), m.results...)
}
