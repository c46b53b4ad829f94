// Package runner walks a student through an ordered question set.
//
// All exam-taking logic is the pure transition Apply(State, Event). Render
// turns a State into what a client displays, and Run adds the one side
// effect (persisting the result) around a submit.
package runner

import (
	"errors"
	"fmt"
	"maps"

	"github.com/itembased/examdesk/internal/exam"
)

var (
	ErrNoQuestions       = errors.New("runner: exam has no questions")
	ErrInvalidTransition = errors.New("runner: event not allowed in this phase")
	ErrInvalidOption     = errors.New("runner: option out of range")
)

type Mode string

const (
	ModeTake    Mode = "take"
	ModePreview Mode = "preview" // no start confirmation
)

type Phase string

const (
	PhaseReady         Phase = "ready" // waiting for the start confirmation
	PhaseAnswering     Phase = "answering"
	PhaseConfirmSubmit Phase = "confirm_submit"
	PhaseSubmitting    Phase = "submitting"
	PhaseSubmitted     Phase = "submitted"
)

type EventType string

const (
	EventStart           EventType = "start"
	EventNext            EventType = "next"
	EventPrev            EventType = "prev"
	EventSelect          EventType = "select"
	EventRequestSubmit   EventType = "request_submit"
	EventCancelSubmit    EventType = "cancel_submit"
	EventConfirmSubmit   EventType = "confirm_submit"
	EventSubmitSucceeded EventType = "submit_succeeded"
	EventSubmitFailed    EventType = "submit_failed"
)

type Event struct {
	Type   EventType `json:"type"`
	Option int       `json:"option,omitempty"` // EventSelect

	Score int    `json:"-"` // EventSubmitSucceeded
	Err   string `json:"-"` // EventSubmitFailed
}

// Internal reports whether the event may only be raised by Run, never by a client.
func (e Event) Internal() bool {
	return e.Type == EventSubmitSucceeded || e.Type == EventSubmitFailed
}

type State struct {
	Mode      Mode
	Phase     Phase
	Cursor    int
	Questions []exam.Question
	Answers   map[string]int // question id -> selected option; absent = unanswered
	Score     *int
	LastError string
}

// New starts a run over questions. An empty set is refused so scoring never
// divides by zero.
func New(mode Mode, questions []exam.Question) (State, error) {
	if len(questions) == 0 {
		return State{}, ErrNoQuestions
	}
	phase := PhaseReady
	if mode == ModePreview {
		phase = PhaseAnswering
	}
	return State{
		Mode:      mode,
		Phase:     phase,
		Questions: questions,
		Answers:   map[string]int{},
	}, nil
}

func (s State) Current() exam.Question { return s.Questions[s.Cursor] }

func (s State) last() int { return len(s.Questions) - 1 }

// Apply returns the state after ev. s is not modified; on error the returned
// state equals s.
func Apply(s State, ev Event) (State, error) {
	reject := func() (State, error) {
		return s, fmt.Errorf("%w: %s during %s", ErrInvalidTransition, ev.Type, s.Phase)
	}

	switch s.Phase {
	case PhaseReady:
		if ev.Type != EventStart {
			return reject()
		}
		s.Phase = PhaseAnswering
		return s, nil

	case PhaseAnswering:
		switch ev.Type {
		case EventNext:
			if s.Cursor < s.last() {
				s.Cursor++
			}
			return s, nil
		case EventPrev:
			if s.Cursor > 0 {
				s.Cursor--
			}
			return s, nil
		case EventSelect:
			q := s.Current()
			if ev.Option < 0 || ev.Option >= len(q.Options) {
				return s, fmt.Errorf("%w: %d of %d", ErrInvalidOption, ev.Option, len(q.Options))
			}
			answers := maps.Clone(s.Answers)
			if answers == nil {
				answers = map[string]int{}
			}
			answers[q.ID] = ev.Option
			s.Answers = answers
			return s, nil
		case EventRequestSubmit:
			if s.Cursor != s.last() {
				return reject()
			}
			s.Phase = PhaseConfirmSubmit
			return s, nil
		}
		return reject()

	case PhaseConfirmSubmit:
		switch ev.Type {
		case EventCancelSubmit:
			s.Phase = PhaseAnswering
			return s, nil
		case EventConfirmSubmit:
			s.Phase = PhaseSubmitting
			s.LastError = ""
			return s, nil
		}
		return reject()

	case PhaseSubmitting:
		switch ev.Type {
		case EventSubmitSucceeded:
			score := ev.Score
			s.Score = &score
			s.Phase = PhaseSubmitted
			return s, nil
		case EventSubmitFailed:
			s.Phase = PhaseAnswering
			s.LastError = ev.Err
			return s, nil
		}
		return reject()
	}
	return reject()
}
