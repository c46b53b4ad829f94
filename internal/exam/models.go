package exam

import (
	"time"
	"unicode/utf8"
)

// Question is a single multiple-choice item. It is immutable once stored.
type Question struct {
	ID                 string    `json:"id"`
	Text               string    `json:"text"`
	Images             []string  `json:"images"` // download URLs, attachment order
	Options            []string  `json:"options"`
	CorrectAnswerIndex int       `json:"correctAnswerIndex"`
	AuthorID           string    `json:"authorId"`
	CreatedAt          time.Time `json:"createdAt"`
}

// QuestionView is the student-safe rendering of a Question (no answer key).
type QuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Images  []string `json:"images"`
	Options []string `json:"options"`
}

func (q Question) View() QuestionView {
	return QuestionView{ID: q.ID, Text: q.Text, Images: q.Images, Options: q.Options}
}

type Exam struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	QuestionIDs []string  `json:"questionIds"` // order is significant
	AuthorID    string    `json:"authorId"`
	CreatedAt   time.Time `json:"createdAt"`
	IsActive    bool      `json:"isActive"`
}

// Result is append-only; nothing in this service reads it back for display.
type Result struct {
	ID             string          `json:"id"`
	ExamID         *string         `json:"examId,omitempty"` // nil for a practice run over all questions
	StudentID      string          `json:"studentId"`
	Email          string          `json:"email"`
	Score          int             `json:"score"`
	Answers        map[string]*int `json:"answers"` // nil entry = unanswered
	CorrectCount   int             `json:"correctCount"`
	TotalQuestions int             `json:"totalQuestions"`
	Mode           string          `json:"mode"` // "take" or "preview"
	Timestamp      time.Time       `json:"timestamp"`
}

// QuestionSummary is the row shown when picking questions for an exam.
type QuestionSummary struct {
	ID        string    `json:"id"`
	Preview   string    `json:"preview"`
	HasImages bool      `json:"hasImages"`
	CreatedAt time.Time `json:"createdAt"`
}

const previewRunes = 50

func (q Question) Summary() QuestionSummary {
	preview := "(image question)"
	if q.Text != "" {
		preview = q.Text
		if utf8.RuneCountInString(preview) > previewRunes {
			preview = string([]rune(preview)[:previewRunes]) + "..."
		}
	}
	return QuestionSummary{ID: q.ID, Preview: preview, HasImages: len(q.Images) > 0, CreatedAt: q.CreatedAt}
}

type ExamSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"questionCount"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (e Exam) Summary() ExamSummary {
	return ExamSummary{ID: e.ID, Title: e.Title, QuestionCount: len(e.QuestionIDs), IsActive: e.IsActive, CreatedAt: e.CreatedAt}
}
