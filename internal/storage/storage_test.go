package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

func TestFSStorePutGetURL(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir(), "https://quiz.example.com/")
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Put(ctx, "questions/1_a b.png", strings.NewReader("png-bytes"), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != "png-bytes" {
		t.Fatalf("read %q", b)
	}
	u, err := s.URL(key)
	if err != nil {
		t.Fatal(err)
	}
	if u != "https://quiz.example.com/assets/questions/1_a%20b.png" {
		t.Fatalf("url = %s", u)
	}
	if _, err := s.Get(ctx, "questions/missing.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestFSStoreConfinesKeys(t *testing.T) {
	s, _ := NewFSStore(t.TempDir(), "")
	key, err := s.Put(context.Background(), "../../etc/x", strings.NewReader("x"), "")
	if err != nil {
		t.Fatal(err)
	}
	if key != "etc/x" {
		t.Fatalf("key = %s", key)
	}
	if _, err := s.Put(context.Background(), "/", strings.NewReader("x"), ""); err == nil {
		t.Fatal("empty key accepted")
	}
}

type stubS3 struct {
	s3iface.S3API
	puts []*s3.PutObjectInput
}

func (s *stubS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	s.puts = append(s.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func TestS3StorePutAndURL(t *testing.T) {
	stub := &stubS3{}
	s := NewS3StoreWithClient(stub, "quiz-assets", "ap-northeast-2")
	key, err := s.Put(context.Background(), "questions/9_q.png", strings.NewReader("img"), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if len(stub.puts) != 1 || aws.StringValue(stub.puts[0].Bucket) != "quiz-assets" ||
		aws.StringValue(stub.puts[0].ContentType) != "image/png" {
		t.Fatalf("puts = %+v", stub.puts)
	}
	u, _ := s.URL(key)
	if u != "https://quiz-assets.s3.ap-northeast-2.amazonaws.com/questions/9_q.png" {
		t.Fatalf("url = %s", u)
	}

	u, _ = s.URL("questions/17_my pic #1?.png")
	if u != "https://quiz-assets.s3.ap-northeast-2.amazonaws.com/questions/17_my%20pic%20%231%3F.png" {
		t.Fatalf("escaped url = %s", u)
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Path != "/questions/17_my pic #1?.png" || parsed.Fragment != "" {
		t.Fatalf("parsed = %+v, %v", parsed, err)
	}
}
