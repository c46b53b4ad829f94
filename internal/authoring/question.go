// internal/authoring/question.go
package authoring

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/itembased/examdesk/internal/exam"
	"github.com/itembased/examdesk/internal/storage"
)

const (
	MinOptions     = 2
	MaxOptions     = 10
	DefaultOptions = 5

	MaxAttachmentBytes = 5 << 20
)

var (
	ErrEmptyQuestion   = errors.New("question needs text or at least one image")
	ErrNotImage        = errors.New("attachment is not an image")
	ErrTooLarge        = errors.New("attachment too large")
	ErrNoAttachment    = errors.New("no such attachment")
	ErrOptionIndex     = errors.New("option index out of range")
	ErrEmptyAttachment = errors.New("attachment is empty")
)

// QuestionWriter is the part of exam.Store a draft needs.
type QuestionWriter interface {
	AddQuestion(ctx context.Context, q exam.Question) (exam.Question, error)
}

type Attachment struct {
	ID          string
	Name        string
	ContentType string
	Data        []byte
}

// QuestionDraft holds a question being composed. Attachments are keyed by a
// generated id so removing one never shifts the others.
type QuestionDraft struct {
	mu          sync.Mutex
	text        string
	options     []string
	correct     int
	attachments []Attachment
}

func NewQuestionDraft() *QuestionDraft {
	return &QuestionDraft{options: make([]string, DefaultOptions)}
}

func (d *QuestionDraft) SetText(s string) {
	d.mu.Lock()
	d.text = s
	d.mu.Unlock()
}

// AddAttachment sniffs data and accepts images only. It returns the id used
// by RemoveAttachment.
func (d *QuestionDraft) AddAttachment(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyAttachment
	}
	if len(data) > MaxAttachmentBytes {
		return "", fmt.Errorf("%w: %s is %s, limit %s", ErrTooLarge, name,
			humanize.IBytes(uint64(len(data))), humanize.IBytes(MaxAttachmentBytes))
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %s (%s)", ErrNotImage, name, mt.String())
	}
	a := Attachment{ID: uuid.NewString(), Name: path.Base(name), ContentType: mt.String(), Data: data}
	d.mu.Lock()
	d.attachments = append(d.attachments, a)
	d.mu.Unlock()
	return a.ID, nil
}

func (d *QuestionDraft) RemoveAttachment(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, a := range d.attachments {
		if a.ID == id {
			d.attachments = append(d.attachments[:i], d.attachments[i+1:]...)
			return nil
		}
	}
	return ErrNoAttachment
}

func (d *QuestionDraft) Attachments() []Attachment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Attachment(nil), d.attachments...)
}

func (d *QuestionDraft) OptionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.options)
}

// IncreaseOptions adds an empty option, up to MaxOptions.
func (d *QuestionDraft) IncreaseOptions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.options) < MaxOptions {
		d.options = append(d.options, "")
	}
	return len(d.options)
}

// DecreaseOptions drops the last option, down to MinOptions. A correct index
// that falls off the end is reset to the first option.
func (d *QuestionDraft) DecreaseOptions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.options) > MinOptions {
		d.options = d.options[:len(d.options)-1]
	}
	if d.correct >= len(d.options) {
		d.correct = 0
	}
	return len(d.options)
}

// SetOptions replaces all options at once, clamping the count to the allowed range.
func (d *QuestionDraft) SetOptions(opts []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := min(max(len(opts), MinOptions), MaxOptions)
	d.options = make([]string, n)
	copy(d.options, opts)
	if d.correct >= n {
		d.correct = 0
	}
}

func (d *QuestionDraft) SetOption(i int, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.options) {
		return ErrOptionIndex
	}
	d.options[i] = text
	return nil
}

func (d *QuestionDraft) SetCorrect(i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.options) {
		return ErrOptionIndex
	}
	d.correct = i
	return nil
}

// Save uploads every attachment concurrently, then writes the question with
// the image URLs in attachment order. Nothing is uploaded when the draft has
// neither text nor images.
func (d *QuestionDraft) Save(ctx context.Context, blobs storage.BlobStore, store QuestionWriter, authorID string) (exam.Question, error) {
	d.mu.Lock()
	text := strings.TrimSpace(d.text)
	options := append([]string(nil), d.options...)
	correct := d.correct
	atts := append([]Attachment(nil), d.attachments...)
	d.mu.Unlock()

	if text == "" && len(atts) == 0 {
		return exam.Question{}, ErrEmptyQuestion
	}

	urls := make([]string, len(atts))
	stamp := time.Now().UnixNano()
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range atts {
		i, a := i, a
		g.Go(func() error {
			key := fmt.Sprintf("questions/%d_%s", stamp+int64(i), a.Name)
			stored, err := blobs.Put(gctx, key, bytes.NewReader(a.Data), a.ContentType)
			if err != nil {
				return fmt.Errorf("upload %s: %w", a.Name, err)
			}
			u, err := blobs.URL(stored)
			if err != nil {
				return err
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return exam.Question{}, err
	}

	return store.AddQuestion(ctx, exam.Question{
		Text:               text,
		Images:             urls,
		Options:            options,
		CorrectAnswerIndex: correct,
		AuthorID:           authorID,
	})
}
