package authoring

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/itembased/examdesk/internal/exam"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fakeBlobs struct {
	mu   sync.Mutex
	keys []string
	fail string // name fragment that fails to upload
}

func (f *fakeBlobs) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if f.fail != "" && strings.Contains(key, f.fail) {
		return "", errors.New("bucket unavailable")
	}
	_, _ = io.Copy(io.Discard, r)
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return key, nil
}

func (f *fakeBlobs) Get(context.Context, string) (io.ReadCloser, error) { return nil, nil }

func (f *fakeBlobs) URL(key string) (string, error) { return "https://cdn.test/" + key, nil }

type fakeWriter struct {
	questions []exam.Question
	exams     []exam.Exam
}

func (f *fakeWriter) AddQuestion(_ context.Context, q exam.Question) (exam.Question, error) {
	q.ID = "q1"
	f.questions = append(f.questions, q)
	return q, nil
}

func (f *fakeWriter) AddExam(_ context.Context, e exam.Exam) (exam.Exam, error) {
	e.ID = "e1"
	f.exams = append(f.exams, e)
	return e, nil
}

func TestOptionCountClamps(t *testing.T) {
	d := NewQuestionDraft()
	if d.OptionCount() != DefaultOptions {
		t.Fatalf("default = %d", d.OptionCount())
	}
	for i := 0; i < 10; i++ {
		d.IncreaseOptions()
	}
	if d.OptionCount() != MaxOptions {
		t.Fatalf("max = %d", d.OptionCount())
	}
	for i := 0; i < 20; i++ {
		d.DecreaseOptions()
	}
	if d.OptionCount() != MinOptions {
		t.Fatalf("min = %d", d.OptionCount())
	}
}

func TestDecreaseResetsDroppedCorrectIndex(t *testing.T) {
	d := NewQuestionDraft()
	if err := d.SetCorrect(4); err != nil {
		t.Fatal(err)
	}
	d.DecreaseOptions()
	if d.correct != 0 {
		t.Fatalf("correct = %d", d.correct)
	}
	if err := d.SetCorrect(4); !errors.Is(err, ErrOptionIndex) {
		t.Fatalf("err = %v", err)
	}
}

func TestAddAttachmentRejectsNonImages(t *testing.T) {
	d := NewQuestionDraft()
	if _, err := d.AddAttachment("notes.txt", []byte("hello world")); !errors.Is(err, ErrNotImage) {
		t.Fatalf("err = %v", err)
	}
	big := make([]byte, MaxAttachmentBytes+1)
	copy(big, pngBytes)
	_, err := d.AddAttachment("huge.png", big)
	if !errors.Is(err, ErrTooLarge) || !strings.Contains(err.Error(), "5.0 MiB") {
		t.Fatalf("err = %v", err)
	}
}

func TestRemoveAttachmentByID(t *testing.T) {
	d := NewQuestionDraft()
	a, _ := d.AddAttachment("a.png", pngBytes)
	b, _ := d.AddAttachment("b.png", pngBytes)
	c, _ := d.AddAttachment("c.png", pngBytes)
	if err := d.RemoveAttachment(a); err != nil {
		t.Fatal(err)
	}
	// removing by id after a shift still hits the intended attachment
	if err := d.RemoveAttachment(c); err != nil {
		t.Fatal(err)
	}
	atts := d.Attachments()
	if len(atts) != 1 || atts[0].ID != b {
		t.Fatalf("left = %+v", atts)
	}
	if err := d.RemoveAttachment(a); !errors.Is(err, ErrNoAttachment) {
		t.Fatalf("err = %v", err)
	}
}

func TestSaveEmptyQuestionWritesNothing(t *testing.T) {
	blobs, w := &fakeBlobs{}, &fakeWriter{}
	d := NewQuestionDraft()
	d.SetText("   ")
	if _, err := d.Save(context.Background(), blobs, w, "t1"); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("err = %v", err)
	}
	if len(blobs.keys) != 0 || len(w.questions) != 0 {
		t.Fatal("write attempted")
	}
}

func TestSaveKeepsAttachmentOrder(t *testing.T) {
	blobs, w := &fakeBlobs{}, &fakeWriter{}
	d := NewQuestionDraft()
	d.SetOptions([]string{"3", "4", "5"})
	_ = d.SetCorrect(1)
	for _, n := range []string{"one.png", "two.png", "three.png"} {
		if _, err := d.AddAttachment(n, pngBytes); err != nil {
			t.Fatal(err)
		}
	}
	q, err := d.Save(context.Background(), blobs, w, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(q.Images) != 3 {
		t.Fatalf("images = %v", q.Images)
	}
	for i, n := range []string{"one.png", "two.png", "three.png"} {
		if !strings.HasPrefix(q.Images[i], "https://cdn.test/questions/") || !strings.HasSuffix(q.Images[i], "_"+n) {
			t.Errorf("images[%d] = %s", i, q.Images[i])
		}
	}
	if q.CorrectAnswerIndex != 1 || len(q.Options) != 3 || q.AuthorID != "t1" {
		t.Fatalf("question = %+v", q)
	}
}

func TestSaveUploadFailureSkipsWrite(t *testing.T) {
	blobs, w := &fakeBlobs{fail: "bad"}, &fakeWriter{}
	d := NewQuestionDraft()
	_, _ = d.AddAttachment("ok.png", pngBytes)
	_, _ = d.AddAttachment("bad.png", pngBytes)
	if _, err := d.Save(context.Background(), blobs, w, "t1"); err == nil {
		t.Fatal("expected upload error")
	}
	if len(w.questions) != 0 {
		t.Fatal("question written after failed upload")
	}
}

func TestComposerSelectionOrder(t *testing.T) {
	c := NewExamComposer()
	c.Load([]exam.Question{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	for _, id := range []string{"c", "a", "b"} {
		if err := c.Toggle(id, true); err != nil {
			t.Fatal(err)
		}
	}
	_ = c.Toggle("a", false)
	_ = c.Toggle("c", true) // already selected
	if got := strings.Join(c.Selected(), ","); got != "c,b" {
		t.Fatalf("selected = %s", got)
	}
	if err := c.Toggle("zzz", true); !errors.Is(err, ErrUnknownQuest) {
		t.Fatalf("err = %v", err)
	}

	w := &fakeWriter{}
	e, err := c.Create(context.Background(), w, "  Midterm  ", "t1")
	if err != nil {
		t.Fatal(err)
	}
	if e.Title != "Midterm" || !e.IsActive || strings.Join(e.QuestionIDs, ",") != "c,b" {
		t.Fatalf("exam = %+v", e)
	}

	c.Load([]exam.Question{{ID: "a"}})
	if len(c.Selected()) != 0 {
		t.Fatal("load kept selection")
	}
}

func TestComposerPreconditionsSkipWrite(t *testing.T) {
	w := &fakeWriter{}
	c := NewExamComposer()
	c.Load([]exam.Question{{ID: "a"}})
	if _, err := c.Create(context.Background(), w, "Quiz", "t1"); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("err = %v", err)
	}
	_ = c.Toggle("a", true)
	if _, err := c.Create(context.Background(), w, "  ", "t1"); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("err = %v", err)
	}
	if len(w.exams) != 0 {
		t.Fatal("write attempted")
	}
}
