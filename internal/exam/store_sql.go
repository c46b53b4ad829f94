package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

func (s *SQLStore) AddQuestion(ctx context.Context, q Question) (Question, error) {
	if q.Images == nil {
		q.Images = []string{}
	}
	ij, err := json.Marshal(q.Images)
	if err != nil {
		return Question{}, err
	}
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return Question{}, err
	}
	q.ID = uuid.NewString()
	q.CreatedAt = now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO questions (id,text,images_json,options_json,correct_index,author_id,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		q.ID, q.Text, string(ij), string(oj), q.CorrectAnswerIndex, q.AuthorID, q.CreatedAt.UnixMilli())
	if err != nil {
		return Question{}, fmt.Errorf("insert question: %w", err)
	}
	return q, nil
}

const questionCols = `id,text,images_json,options_json,correct_index,author_id,created_at`

func (s *SQLStore) ListQuestions(ctx context.Context) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionCols+` FROM questions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return scanQuestions(rows)
}

// QuestionsByIDs runs a single "id IN (...)" query, ordered by creation time
// like the listing. Callers must reorder.
func (s *SQLStore) QuestionsByIDs(ctx context.Context, ids []string) ([]Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxInQuery {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyIDs, len(ids), MaxInQuery)
	}
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionCols+` FROM questions WHERE id IN (`+strings.Join(ph, ",")+`) ORDER BY created_at DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	return scanQuestions(rows)
}

func scanQuestions(rows *sql.Rows) ([]Question, error) {
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		var q Question
		var ij, oj string
		var created int64
		if err := rows.Scan(&q.ID, &q.Text, &ij, &oj, &q.CorrectAnswerIndex, &q.AuthorID, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ij), &q.Images); err != nil {
			return nil, fmt.Errorf("question %s images: %w", q.ID, err)
		}
		if err := json.Unmarshal([]byte(oj), &q.Options); err != nil {
			return nil, fmt.Errorf("question %s options: %w", q.ID, err)
		}
		if q.Images == nil {
			q.Images = []string{}
		}
		q.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) AddExam(ctx context.Context, e Exam) (Exam, error) {
	qj, err := json.Marshal(e.QuestionIDs)
	if err != nil {
		return Exam{}, err
	}
	e.ID = uuid.NewString()
	e.CreatedAt = now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exams (id,title,question_ids_json,author_id,is_active,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.Title, string(qj), e.AuthorID, boolInt(e.IsActive), e.CreatedAt.UnixMilli())
	if err != nil {
		return Exam{}, fmt.Errorf("insert exam: %w", err)
	}
	return e, nil
}

const examCols = `id,title,question_ids_json,author_id,is_active,created_at`

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+examCols+` FROM exams WHERE id=$1`, id)
	e, err := scanExam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}
	return e, err
}

func (s *SQLStore) ListExams(ctx context.Context, opts ListOpts) ([]Exam, error) {
	q := `SELECT ` + examCols + ` FROM exams`
	if opts.ActiveOnly {
		q += ` WHERE is_active=1`
	}
	q += ` ORDER BY created_at DESC, id DESC`
	var args []any
	if opts.Limit > 0 {
		q += ` LIMIT $1 OFFSET $2`
		args = append(args, opts.Limit, opts.Offset)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()
	out := []Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanExam(row scanner) (Exam, error) {
	var e Exam
	var qj string
	var active int
	var created int64
	if err := row.Scan(&e.ID, &e.Title, &qj, &e.AuthorID, &active, &created); err != nil {
		return Exam{}, err
	}
	if err := json.Unmarshal([]byte(qj), &e.QuestionIDs); err != nil {
		return Exam{}, fmt.Errorf("exam %s question ids: %w", e.ID, err)
	}
	e.IsActive = active != 0
	e.CreatedAt = time.UnixMilli(created).UTC()
	return e, nil
}

func (s *SQLStore) AddResult(ctx context.Context, r Result) (Result, error) {
	aj, err := json.Marshal(r.Answers)
	if err != nil {
		return Result{}, err
	}
	r.ID = uuid.NewString()
	r.Timestamp = now()
	if r.Mode == "" {
		r.Mode = "take"
	}
	var examID sql.NullString
	if r.ExamID != nil {
		examID = sql.NullString{String: *r.ExamID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (id,exam_id,student_id,email,score,answers_json,correct_count,total_questions,mode,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, examID, r.StudentID, r.Email, r.Score, string(aj), r.CorrectCount, r.TotalQuestions, r.Mode, r.Timestamp.UnixMilli())
	if err != nil {
		return Result{}, fmt.Errorf("insert result: %w", err)
	}
	return r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
