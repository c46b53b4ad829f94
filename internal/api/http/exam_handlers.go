// internal/api/http/exam_handlers.go
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/itembased/examdesk/internal/auth/middleware"
	"github.com/itembased/examdesk/internal/authoring"
	"github.com/itembased/examdesk/internal/exam"
	"github.com/itembased/examdesk/internal/rbac"
	syncx "github.com/itembased/examdesk/internal/sync"
)

// POST /exams  { "title": "...", "question_ids": ["..."] }
// question_ids are applied as selections in order over the current question list.
func CreateExamHandler(store exam.Store, events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title       string   `json:"title"`
			QuestionIDs []string `json:"question_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		switch {
		case strings.TrimSpace(req.Title) == "":
			writeError(w, http.StatusBadRequest, authoring.ErrEmptyTitle.Error())
			return
		case len(req.QuestionIDs) == 0:
			writeError(w, http.StatusBadRequest, authoring.ErrNoSelection.Error())
			return
		}
		qs, err := store.ListQuestions(r.Context())
		if err != nil {
			slog.Error("list questions failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not load questions")
			return
		}
		c := authoring.NewExamComposer()
		c.Load(qs)
		for _, id := range req.QuestionIDs {
			if err := c.Toggle(id, true); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		e, err := c.Create(r.Context(), store, req.Title, authmw.SubjectFromContext(r.Context()))
		switch {
		case errors.Is(err, authoring.ErrEmptyTitle), errors.Is(err, authoring.ErrNoSelection):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			slog.Error("save exam failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not save exam, try again")
			return
		}
		events.Record(r.Context(), syncx.TypeExamCreated, e.ID, e.Summary())
		writeJSON(w, http.StatusCreated, e)
	}
}

// canSeeInactive is true for roles that may preview exams; everyone else only
// sees exams that are open.
func canSeeInactive(r *http.Request) bool {
	return rbac.Can(r.Context(), "exam:preview")
}

// GET /exams?limit=&offset=
func ListExamsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListExams(r.Context(), exam.ListOpts{
			ActiveOnly: !canSeeInactive(r),
			Limit:      parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:     parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			slog.Error("list exams failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not load exams")
			return
		}
		out := make([]exam.ExamSummary, len(list))
		for i, e := range list {
			out[i] = e.Summary()
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type examDetail struct {
	exam.Exam
	Questions any `json:"questions"`
}

// loadExam fetches an exam the caller may see together with its questions
// in exam order.
func loadExam(r *http.Request, store exam.Store, id string) (exam.Exam, []exam.Question, error) {
	e, err := store.GetExam(r.Context(), id)
	if err != nil {
		return exam.Exam{}, nil, err
	}
	if !e.IsActive && !canSeeInactive(r) {
		return exam.Exam{}, nil, exam.ErrNotFound
	}
	qs, err := exam.LoadOrdered(r.Context(), store, e.QuestionIDs)
	if err != nil {
		return exam.Exam{}, nil, err
	}
	return e, qs, nil
}

// GET /exams/{examID}. Answer keys are only included for authors.
func GetExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, qs, err := loadExam(r, store, chi.URLParam(r, "examID"))
		if errors.Is(err, exam.ErrNotFound) {
			writeError(w, http.StatusNotFound, "exam not found")
			return
		}
		if err != nil {
			slog.Error("load exam failed", "exam", chi.URLParam(r, "examID"), "error", err)
			writeError(w, http.StatusInternalServerError, "could not load exam")
			return
		}
		if rbac.Can(r.Context(), "question:list") {
			writeJSON(w, http.StatusOK, examDetail{Exam: e, Questions: qs})
			return
		}
		views := make([]exam.QuestionView, len(qs))
		for i, q := range qs {
			views[i] = q.View()
		}
		writeJSON(w, http.StatusOK, examDetail{Exam: e, Questions: views})
	}
}
