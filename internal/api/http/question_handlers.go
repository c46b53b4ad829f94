package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	authmw "github.com/itembased/examdesk/internal/auth/middleware"
	"github.com/itembased/examdesk/internal/authoring"
	"github.com/itembased/examdesk/internal/exam"
	"github.com/itembased/examdesk/internal/storage"
	syncx "github.com/itembased/examdesk/internal/sync"
)

// POST /questions (multipart)
//
//	text           question text
//	options        repeated, one per choice
//	correct_index  zero-based
//	images         repeated image files
func CreateQuestionHandler(store exam.Store, blobs storage.BlobStore, events *syncx.EventRepo, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			writeError(w, http.StatusBadRequest, "multipart form required: "+err.Error())
			return
		}
		defer r.MultipartForm.RemoveAll()

		d := authoring.NewQuestionDraft()
		d.SetText(r.FormValue("text"))
		if opts := r.MultipartForm.Value["options"]; len(opts) > 0 {
			d.SetOptions(opts)
		}
		if s := r.FormValue("correct_index"); s != "" {
			i, err := strconv.Atoi(s)
			if err == nil {
				err = d.SetCorrect(i)
			}
			if err != nil {
				writeError(w, http.StatusBadRequest, "correct_index out of range")
				return
			}
		}
		for _, fh := range r.MultipartForm.File["images"] {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "read "+fh.Filename)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "read "+fh.Filename)
				return
			}
			if _, err := d.AddAttachment(fh.Filename, data); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		q, err := d.Save(r.Context(), blobs, store, authmw.SubjectFromContext(r.Context()))
		if errors.Is(err, authoring.ErrEmptyQuestion) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			slog.Error("save question failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not save question, try again")
			return
		}
		events.Record(r.Context(), syncx.TypeQuestionCreated, q.ID, q.Summary())
		writeJSON(w, http.StatusCreated, q)
	}
}

// GET /questions?full=1
// Without full, rows are the short previews used when composing an exam.
func ListQuestionsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := store.ListQuestions(r.Context())
		if err != nil {
			slog.Error("list questions failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not load questions")
			return
		}
		if r.URL.Query().Get("full") == "1" {
			writeJSON(w, http.StatusOK, qs)
			return
		}
		out := make([]exam.QuestionSummary, len(qs))
		for i, q := range qs {
			out[i] = q.Summary()
		}
		writeJSON(w, http.StatusOK, out)
	}
}
