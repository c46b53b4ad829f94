package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/itembased/examdesk/internal/exam"
)

type fakeSink struct {
	mu      sync.Mutex
	fail    error
	results []exam.Result
}

func (f *fakeSink) AddResult(_ context.Context, r exam.Result) (exam.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return exam.Result{}, f.fail
	}
	f.results = append(f.results, r)
	return r, nil
}

func dispatchAll(t *testing.T, r *Run, sink ResultSink, evs ...Event) State {
	t.Helper()
	var st State
	for _, ev := range evs {
		var err error
		st, err = r.Dispatch(context.Background(), ev, sink)
		if err != nil {
			t.Fatalf("dispatch %s: %v", ev.Type, err)
		}
	}
	return st
}

func TestRunSubmitPersistsResult(t *testing.T) {
	g := NewRegistry()
	examID := "exam-1"
	r, err := g.Start(ModeTake, &examID, Owner{StudentID: "s1", Email: "s1@example.com"}, threeQuestions())
	if err != nil {
		t.Fatal(err)
	}
	store := exam.NewMemoryStore()
	st := dispatchAll(t, r, store,
		Event{Type: EventStart},
		Event{Type: EventSelect, Option: 0}, // correct
		Event{Type: EventNext},
		Event{Type: EventSelect, Option: 1}, // correct
		Event{Type: EventNext},
		Event{Type: EventRequestSubmit},
		Event{Type: EventConfirmSubmit},
	)
	if st.Phase != PhaseSubmitted || st.Score == nil || *st.Score != 67 {
		t.Fatalf("state = %+v", st)
	}
	results := store.Results()
	if len(results) != 1 {
		t.Fatalf("results = %d", len(results))
	}
	res := results[0]
	if res.ExamID == nil || *res.ExamID != "exam-1" || res.StudentID != "s1" || res.CorrectCount != 2 || res.TotalQuestions != 3 {
		t.Fatalf("result = %+v", res)
	}
	if res.ID == "" || res.Timestamp.IsZero() || res.Mode != "take" {
		t.Fatalf("stored result missing id/timestamp: %+v", res)
	}
	if res.Answers["q3"] != nil {
		t.Fatal("unanswered q3 should be nil")
	}
}

func TestRunSubmitFailureReenables(t *testing.T) {
	g := NewRegistry()
	r, _ := g.Start(ModeTake, nil, Owner{StudentID: "s1"}, threeQuestions()[:1])
	sink := &fakeSink{fail: errors.New("write refused")}
	dispatchAll(t, r, sink, Event{Type: EventStart}, Event{Type: EventRequestSubmit})

	st, err := r.Dispatch(context.Background(), Event{Type: EventConfirmSubmit}, sink)
	if err == nil {
		t.Fatal("expected write error")
	}
	if st.Phase != PhaseAnswering || st.LastError != errSaveResult {
		t.Fatalf("state = %+v", st)
	}
	if strings.Contains(st.LastError, "write refused") {
		t.Fatalf("storage detail leaked: %q", st.LastError)
	}
	if v := r.View(); v.SubmitDisabled || !v.CanSubmit {
		t.Fatalf("submit not re-enabled: %+v", v)
	}

	sink.fail = nil
	st = dispatchAll(t, r, sink, Event{Type: EventRequestSubmit}, Event{Type: EventConfirmSubmit})
	if st.Phase != PhaseSubmitted || len(sink.results) != 1 {
		t.Fatalf("retry state = %+v, results = %d", st, len(sink.results))
	}
}

func TestPreviewPersistsTaggedResult(t *testing.T) {
	g := NewRegistry()
	r, _ := g.Start(ModePreview, nil, Owner{StudentID: "t1"}, threeQuestions()[:1])
	sink := &fakeSink{}
	st := dispatchAll(t, r, sink,
		Event{Type: EventSelect, Option: 0},
		Event{Type: EventRequestSubmit},
		Event{Type: EventConfirmSubmit})
	if st.Phase != PhaseSubmitted || *st.Score != 100 {
		t.Fatalf("state = %+v", st)
	}
	if len(sink.results) != 1 || sink.results[0].Mode != "preview" || sink.results[0].StudentID != "t1" {
		t.Fatalf("results = %+v", sink.results)
	}
}

func TestClientCannotForgeInternalEvents(t *testing.T) {
	g := NewRegistry()
	r, _ := g.Start(ModePreview, nil, Owner{}, threeQuestions())
	if _, err := r.Dispatch(context.Background(), Event{Type: EventSubmitSucceeded, Score: 100}, &fakeSink{}); !errors.Is(err, ErrInternal) {
		t.Fatalf("err = %v", err)
	}
}

func TestRegistryGetAndSweep(t *testing.T) {
	g := NewRegistry()
	r, _ := g.Start(ModeTake, nil, Owner{}, threeQuestions())
	if got, err := g.Get(r.ID); err != nil || got != r {
		t.Fatalf("get = %v, %v", got, err)
	}
	if _, err := g.Get("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	if n := g.Sweep(time.Hour); n != 0 {
		t.Fatalf("swept fresh run")
	}
	r.mu.Lock()
	r.touched = time.Now().Add(-2 * time.Hour)
	r.mu.Unlock()
	if n := g.Sweep(time.Hour); n != 1 {
		t.Fatalf("swept %d", n)
	}
	if _, err := g.Get(r.ID); !errors.Is(err, ErrRunNotFound) {
		t.Fatal("run survived sweep")
	}
}
