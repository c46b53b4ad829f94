// Package grading scores single-answer multiple-choice runs.
package grading

import (
	"math"

	"github.com/itembased/examdesk/internal/exam"
)

// Outcome is the graded view of one run, ready to persist as a Result.
type Outcome struct {
	CorrectCount   int
	TotalQuestions int
	Score          int
	Answers        map[string]*int // every question id; nil when unanswered
}

// CountCorrect counts questions whose recorded answer equals the correct
// index. A missing answer never matches, whatever the stored key is.
func CountCorrect(questions []exam.Question, answers map[string]int) int {
	n := 0
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok && a == q.CorrectAnswerIndex {
			n++
		}
	}
	return n
}

// Percent returns round(100*correct/total), halves rounded away from zero.
// total must be positive; callers refuse to start a run with no questions.
func Percent(correct, total int) int {
	return int(math.Round(100 * float64(correct) / float64(total)))
}

func Grade(questions []exam.Question, answers map[string]int) Outcome {
	out := Outcome{
		TotalQuestions: len(questions),
		Answers:        make(map[string]*int, len(questions)),
	}
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok {
			a := a
			out.Answers[q.ID] = &a
		} else {
			out.Answers[q.ID] = nil
		}
	}
	out.CorrectCount = CountCorrect(questions, answers)
	out.Score = Percent(out.CorrectCount, out.TotalQuestions)
	return out
}
