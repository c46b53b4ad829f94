package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itembased/examdesk/internal/exam"
	"github.com/itembased/examdesk/internal/grading"
)

var (
	ErrRunNotFound = errors.New("runner: run not found")
	ErrInternal    = errors.New("runner: event is not client-dispatchable")
)

// ResultSink persists a finished run. exam.Store satisfies it.
type ResultSink interface {
	AddResult(ctx context.Context, r exam.Result) (exam.Result, error)
}

// Owner identifies who is taking the run.
type Owner struct {
	StudentID string
	Email     string
}

// Run is one view's exam session. It owns its State exclusively.
type Run struct {
	ID      string
	ExamID  *string // nil for a practice run over all questions
	Owner   Owner
	Started time.Time

	mu      sync.Mutex
	state   State
	touched time.Time
}

func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Run) View() View { return Render(r.State()) }

// Dispatch applies a client event. A confirmed submit grades the run and
// writes the Result, tagged with the run's mode, through sink. The run stays in
// PhaseSubmitting while the write is in flight and returns to answering
// if it fails.
func (r *Run) Dispatch(ctx context.Context, ev Event, sink ResultSink) (State, error) {
	if ev.Internal() {
		return r.State(), ErrInternal
	}

	r.mu.Lock()
	next, err := Apply(r.state, ev)
	if err != nil {
		r.mu.Unlock()
		return next, err
	}
	r.state = next
	r.touched = time.Now()
	r.mu.Unlock()

	if next.Phase != PhaseSubmitting {
		return next, nil
	}

	// Only submit_succeeded/submit_failed are accepted while submitting, so
	// the lock need not be held across the write.
	outcome := grading.Grade(next.Questions, next.Answers)
	done := Event{Type: EventSubmitSucceeded, Score: outcome.Score}
	if _, werr := sink.AddResult(ctx, r.result(next.Mode, outcome)); werr != nil {
		slog.Error("save result failed", "run", r.ID, "error", werr)
		done = Event{Type: EventSubmitFailed, Err: errSaveResult}
		err = werr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	final, aerr := Apply(r.state, done)
	if aerr != nil {
		return r.state, aerr
	}
	r.state = final
	return final, err
}

// shown to the client; the cause is only logged
const errSaveResult = "Could not save your result. Please try again."

func (r *Run) result(mode Mode, o grading.Outcome) exam.Result {
	return exam.Result{
		ExamID:         r.ExamID,
		StudentID:      r.Owner.StudentID,
		Email:          r.Owner.Email,
		Score:          o.Score,
		Answers:        o.Answers,
		CorrectCount:   o.CorrectCount,
		TotalQuestions: o.TotalQuestions,
		Mode:           string(mode),
	}
}

// Registry holds live runs by id. Runs are discarded once idle past a TTL.
type Registry struct {
	mu   sync.Mutex
	runs map[string]*Run
}

func NewRegistry() *Registry {
	return &Registry{runs: map[string]*Run{}}
}

func (g *Registry) Start(mode Mode, examID *string, owner Owner, questions []exam.Question) (*Run, error) {
	st, err := New(mode, questions)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	r := &Run{
		ID:      uuid.NewString(),
		ExamID:  examID,
		Owner:   owner,
		Started: now,
		state:   st,
		touched: now,
	}
	g.mu.Lock()
	g.runs[r.ID] = r
	g.mu.Unlock()
	return r, nil
}

func (g *Registry) Get(id string) (*Run, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return r, nil
}

// Sweep drops runs idle for longer than ttl and returns how many it removed.
func (g *Registry) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for id, r := range g.runs {
		r.mu.Lock()
		idle := r.touched.Before(cutoff) && r.state.Phase != PhaseSubmitting
		r.mu.Unlock()
		if idle {
			delete(g.runs, id)
			n++
		}
	}
	return n
}

// SweepEvery runs Sweep on an interval until ctx is done.
func (g *Registry) SweepEvery(ctx context.Context, every, ttl time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := g.Sweep(ttl); n > 0 {
				slog.Info("swept idle runs", "count", n)
			}
		}
	}
}
