// internal/runner/render.go
package runner

import (
	"fmt"

	"github.com/itembased/examdesk/internal/exam"
)

// View is everything a client needs to draw the taking screen.
type View struct {
	Mode     Mode              `json:"mode"`
	Phase    Phase             `json:"phase"`
	Label    string            `json:"label,omitempty"` // "Preview" banner
	Index    int               `json:"index"`
	Total    int               `json:"total"`
	Position string            `json:"position"` // "3 / 10"
	Question exam.QuestionView `json:"question"`
	Selected *int              `json:"selected"` // pre-checked option, nil if unanswered
	Answered int               `json:"answered"`

	CanPrev        bool   `json:"canPrev"`
	CanNext        bool   `json:"canNext"`
	CanSubmit      bool   `json:"canSubmit"`
	SubmitLabel    string `json:"submitLabel"`
	SubmitDisabled bool   `json:"submitDisabled"`

	ConfirmStart  bool   `json:"confirmStart"`
	ConfirmSubmit bool   `json:"confirmSubmit"`
	Score         *int   `json:"score,omitempty"`
	Error         string `json:"error,omitempty"`
}

func Render(s State) View {
	q := s.Current()
	v := View{
		Mode:     s.Mode,
		Phase:    s.Phase,
		Index:    s.Cursor,
		Total:    len(s.Questions),
		Position: fmt.Sprintf("%d / %d", s.Cursor+1, len(s.Questions)),
		Question: q.View(),
		Answered: len(s.Answers),
		Score:    s.Score,
		Error:    s.LastError,

		ConfirmStart:  s.Phase == PhaseReady,
		ConfirmSubmit: s.Phase == PhaseConfirmSubmit,
		SubmitLabel:   "Submit",
	}
	if s.Mode == ModePreview {
		v.Label = "Preview"
	}
	if sel, ok := s.Answers[q.ID]; ok {
		v.Selected = &sel
	}

	answering := s.Phase == PhaseAnswering
	v.CanPrev = answering && s.Cursor > 0
	v.CanNext = answering && s.Cursor < s.last()
	v.CanSubmit = answering && s.Cursor == s.last()

	switch s.Phase {
	case PhaseSubmitting:
		v.SubmitLabel = "Submitting..."
		v.SubmitDisabled = true
	case PhaseSubmitted, PhaseReady:
		v.SubmitDisabled = true
	}
	return v
}
