package exam

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrTooManyIDs = errors.New("too many ids for a single IN query")
)

type ListOpts struct {
	ActiveOnly bool // students only see exams that are open
	Limit      int
	Offset     int
}

// QuestionQuerier fetches questions whose id is one of ids. Implementations
// reject more than MaxInQuery ids and make no promise about result order.
type QuestionQuerier interface {
	QuestionsByIDs(ctx context.Context, ids []string) ([]Question, error)
}

type Store interface {
	QuestionQuerier

	// Add* assign the id and creation time and return the stored document.
	AddQuestion(ctx context.Context, q Question) (Question, error)
	ListQuestions(ctx context.Context) ([]Question, error) // newest first

	AddExam(ctx context.Context, e Exam) (Exam, error)
	GetExam(ctx context.Context, id string) (Exam, error)
	ListExams(ctx context.Context, opts ListOpts) ([]Exam, error) // newest first

	AddResult(ctx context.Context, r Result) (Result, error)
}
