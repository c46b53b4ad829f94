package authoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/itembased/examdesk/internal/exam"
)

var (
	ErrEmptyTitle   = errors.New("exam title is required")
	ErrNoSelection  = errors.New("select at least one question")
	ErrUnknownQuest = errors.New("question is not in the loaded list")
)

type ExamWriter interface {
	AddExam(ctx context.Context, e exam.Exam) (exam.Exam, error)
}

// ExamComposer tracks which loaded questions are selected. Selection order
// is kept, and it becomes the exam's question order.
type ExamComposer struct {
	loaded   map[string]bool
	selected []string
}

func NewExamComposer() *ExamComposer {
	return &ExamComposer{loaded: map[string]bool{}}
}

// Load replaces the candidate list and clears the selection.
func (c *ExamComposer) Load(questions []exam.Question) {
	c.loaded = make(map[string]bool, len(questions))
	for _, q := range questions {
		c.loaded[q.ID] = true
	}
	c.selected = nil
}

func (c *ExamComposer) Toggle(id string, on bool) error {
	if !c.loaded[id] {
		return fmt.Errorf("%w: %s", ErrUnknownQuest, id)
	}
	at := -1
	for i, s := range c.selected {
		if s == id {
			at = i
			break
		}
	}
	switch {
	case on && at < 0:
		c.selected = append(c.selected, id)
	case !on && at >= 0:
		c.selected = append(c.selected[:at], c.selected[at+1:]...)
	}
	return nil
}

func (c *ExamComposer) Selected() []string {
	return append([]string(nil), c.selected...)
}

// Create writes an active exam. Title and selection are checked before any write.
func (c *ExamComposer) Create(ctx context.Context, store ExamWriter, title, authorID string) (exam.Exam, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return exam.Exam{}, ErrEmptyTitle
	}
	if len(c.selected) == 0 {
		return exam.Exam{}, ErrNoSelection
	}
	return store.AddExam(ctx, exam.Exam{
		Title:       title,
		QuestionIDs: c.Selected(),
		AuthorID:    authorID,
		IsActive:    true,
	})
}
