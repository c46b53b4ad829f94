package exam_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/itembased/examdesk/internal/db"
	"github.com/itembased/examdesk/internal/exam"
)

func openStore(t *testing.T) *exam.SQLStore {
	t.Helper()
	return exam.NewSQLStore(openDB(t))
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

func TestSQLStoreQuestionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	saved, err := s.AddQuestion(ctx, exam.Question{
		Text:               "2+2?",
		Options:            []string{"3", "4"},
		CorrectAnswerIndex: 1,
		AuthorID:           "teacher-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("id/createdAt not assigned: %+v", saved)
	}

	got, err := s.QuestionsByIDs(ctx, []string{saved.ID, "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d questions", len(got))
	}
	q := got[0]
	if q.Text != "2+2?" || q.CorrectAnswerIndex != 1 || len(q.Options) != 2 || q.Images == nil {
		t.Fatalf("round trip mismatch: %+v", q)
	}
}

func TestSQLStoreRejectsOversizedIn(t *testing.T) {
	s := openStore(t)
	ids := make([]string, exam.MaxInQuery+1)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}
	if _, err := s.QuestionsByIDs(context.Background(), ids); !errors.Is(err, exam.ErrTooManyIDs) {
		t.Fatalf("err = %v", err)
	}
}

func TestSQLStoreLoadOrderedAcrossChunks(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	var ids []string
	for i := 0; i < 23; i++ {
		q, err := s.AddQuestion(ctx, exam.Question{Text: fmt.Sprint("q", i), Options: []string{"a", "b"}, AuthorID: "t"})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, q.ID)
	}
	// exam order differs from creation order
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	ids[3], ids[17] = ids[17], ids[3]

	got, err := exam.LoadOrdered(ctx, s, ids)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(ids) {
		t.Fatalf("got %d", len(got))
	}
	for i := range ids {
		if got[i].ID != ids[i] {
			t.Fatalf("position %d = %s, want %s", i, got[i].ID, ids[i])
		}
	}
}

func TestSQLStoreExamsAndResults(t *testing.T) {
	ctx := context.Background()
	dbh := openDB(t)
	s := exam.NewSQLStore(dbh)

	active, err := s.AddExam(ctx, exam.Exam{Title: "Mid", QuestionIDs: []string{"b", "a"}, AuthorID: "t", IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddExam(ctx, exam.Exam{Title: "Draft", QuestionIDs: []string{"c"}, AuthorID: "t"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetExam(ctx, active.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Mid" || len(got.QuestionIDs) != 2 || got.QuestionIDs[0] != "b" || !got.IsActive {
		t.Fatalf("exam mismatch: %+v", got)
	}
	if _, err := s.GetExam(ctx, "nope"); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("missing exam err = %v", err)
	}

	all, err := s.ListExams(ctx, exam.ListOpts{})
	if err != nil || len(all) != 2 {
		t.Fatalf("list all = %d, %v", len(all), err)
	}
	onlyActive, err := s.ListExams(ctx, exam.ListOpts{ActiveOnly: true})
	if err != nil || len(onlyActive) != 1 || onlyActive[0].ID != active.ID {
		t.Fatalf("list active = %+v, %v", onlyActive, err)
	}

	one := 1
	r, err := s.AddResult(ctx, exam.Result{
		ExamID:         &active.ID,
		StudentID:      "s1",
		Email:          "s1@example.com",
		Score:          50,
		Answers:        map[string]*int{"a": &one, "b": nil},
		CorrectCount:   1,
		TotalQuestions: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.ID == "" || r.Timestamp.IsZero() || r.Mode != "take" {
		t.Fatalf("result not stamped: %+v", r)
	}
	pr, err := s.AddResult(ctx, exam.Result{StudentID: "t1", Answers: map[string]*int{}, Mode: "preview"})
	if err != nil {
		t.Fatalf("practice result without exam id: %v", err)
	}
	var mode string
	if err := dbh.QueryRowContext(ctx, `SELECT mode FROM results WHERE id = $1`, pr.ID).Scan(&mode); err != nil || mode != "preview" {
		t.Fatalf("stored mode = %q, %v", mode, err)
	}
}
