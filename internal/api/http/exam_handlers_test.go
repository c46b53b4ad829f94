package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/itembased/examdesk/internal/exam"
)

// countingStore records reads; every other Store method is unused here.
type countingStore struct {
	exam.Store
	lists int
}

func (c *countingStore) ListQuestions(context.Context) ([]exam.Question, error) {
	c.lists++
	return nil, nil
}

func TestCreateExamRejectsBeforeLoading(t *testing.T) {
	cases := map[string]string{
		"empty title":  `{"title":"  ","question_ids":["q1"]}`,
		"no selection": `{"title":"Mid","question_ids":[]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			store := &countingStore{}
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/exams", strings.NewReader(body))
			CreateExamHandler(store, nil).ServeHTTP(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rr.Code)
			}
			if store.lists != 0 {
				t.Fatalf("questions loaded %d times", store.lists)
			}
		})
	}
}
