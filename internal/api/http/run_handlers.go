package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/itembased/examdesk/internal/auth/middleware"
	"github.com/itembased/examdesk/internal/exam"
	"github.com/itembased/examdesk/internal/rbac"
	"github.com/itembased/examdesk/internal/runner"
	syncx "github.com/itembased/examdesk/internal/sync"
)

type runResponse struct {
	RunID string      `json:"run_id"`
	View  runner.View `json:"view"`
}

// POST /runs  { "exam_id": "...", "mode": "take|preview" }
// Without exam_id the run is a practice pass over every question.
func StartRunHandler(store exam.Store, runs *runner.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExamID string      `json:"exam_id"`
			Mode   runner.Mode `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		switch req.Mode {
		case "":
			req.Mode = runner.ModeTake
		case runner.ModeTake:
		case runner.ModePreview:
			if !rbac.Can(r.Context(), "exam:preview") {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
		default:
			writeError(w, http.StatusBadRequest, "unknown mode")
			return
		}

		var (
			examID *string
			qs     []exam.Question
			err    error
		)
		if req.ExamID != "" {
			var e exam.Exam
			e, qs, err = loadExam(r, store, req.ExamID)
			examID = &e.ID
		} else {
			qs, err = store.ListQuestions(r.Context())
		}
		if errors.Is(err, exam.ErrNotFound) {
			writeError(w, http.StatusNotFound, "exam not found")
			return
		}
		if err != nil {
			slog.Error("load run questions failed", "exam", req.ExamID, "error", err)
			writeError(w, http.StatusInternalServerError, "could not load exam")
			return
		}

		ctx := r.Context()
		owner := runner.Owner{StudentID: authmw.SubjectFromContext(ctx), Email: authmw.EmailFromContext(ctx)}
		run, err := runs.Start(req.Mode, examID, owner, qs)
		if errors.Is(err, runner.ErrNoQuestions) {
			writeError(w, http.StatusBadRequest, "this exam has no questions")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, runResponse{RunID: run.ID, View: run.View()})
	}
}

// ownRun resolves the run and hides other users' runs as not found.
func ownRun(w http.ResponseWriter, r *http.Request, runs *runner.Registry) (*runner.Run, bool) {
	run, err := runs.Get(chi.URLParam(r, "runID"))
	if err != nil || run.Owner.StudentID != authmw.SubjectFromContext(r.Context()) {
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	return run, true
}

// GET /runs/{runID}
func GetRunHandler(runs *runner.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := ownRun(w, r, runs)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, runResponse{RunID: run.ID, View: run.View()})
	}
}

// recordingSink writes the result and then logs a ResultSubmitted event.
type recordingSink struct {
	store  exam.Store
	events *syncx.EventRepo
}

func (s recordingSink) AddResult(ctx context.Context, res exam.Result) (exam.Result, error) {
	saved, err := s.store.AddResult(ctx, res)
	if err != nil {
		return saved, err
	}
	s.events.Record(ctx, syncx.TypeResultSubmitted, saved.ID, map[string]any{
		"examId":    saved.ExamID,
		"studentId": saved.StudentID,
		"score":     saved.Score,
		"mode":      saved.Mode,
	})
	return saved, nil
}

// POST /runs/{runID}/events  { "type": "select", "option": 2 }
func RunEventHandler(store exam.Store, runs *runner.Registry, events *syncx.EventRepo) http.HandlerFunc {
	sink := recordingSink{store: store, events: events}
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := ownRun(w, r, runs)
		if !ok {
			return
		}
		var ev runner.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		st, err := run.Dispatch(r.Context(), ev, sink)
		resp := runResponse{RunID: run.ID, View: runner.Render(st)}
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, resp)
		case errors.Is(err, runner.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, resp)
		case errors.Is(err, runner.ErrInvalidOption), errors.Is(err, runner.ErrInternal):
			writeJSON(w, http.StatusBadRequest, resp)
		default:
			// result write failed; the view is back to answering and may retry
			writeJSON(w, http.StatusInternalServerError, resp)
		}
	}
}
