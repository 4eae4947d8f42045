package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

type fakeWhisper struct {
	gotAudio string
	gotModel string
	text     string
	err      error
}

func (f *fakeWhisper) New(_ context.Context, body openai.AudioTranscriptionNewParams, _ ...option.RequestOption) (*openai.Transcription, error) {
	data, _ := io.ReadAll(body.File)
	f.gotAudio = string(data)
	f.gotModel = string(body.Model)
	if f.err != nil {
		return nil, f.err
	}
	return &openai.Transcription{Text: f.text}, nil
}

type fakeS3 struct {
	bucket, key string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("s3-audio"))}, nil
}

func TestWhisperTranscriberHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "voice-bytes")
	}))
	defer srv.Close()

	whisper := &fakeWhisper{text: "  remind me to take metformin  "}
	tr := newWhisperTranscriber(whisper, NewFetcher(srv.Client(), nil), "", logging.New("error"))

	text, err := tr.Transcribe(context.Background(), srv.URL+"/notes/clip.m4a")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "remind me to take metformin" {
		t.Fatalf("unexpected text %q", text)
	}
	if whisper.gotAudio != "voice-bytes" {
		t.Fatalf("unexpected audio payload %q", whisper.gotAudio)
	}
	if whisper.gotModel != "whisper-1" {
		t.Fatalf("unexpected model %q", whisper.gotModel)
	}
}

func TestWhisperTranscriberS3(t *testing.T) {
	s3Client := &fakeS3{}
	whisper := &fakeWhisper{text: "hello"}
	tr := newWhisperTranscriber(whisper, NewFetcher(nil, s3Client), "whisper-1", logging.New("error"))

	if _, err := tr.Transcribe(context.Background(), "s3://voice-notes/u1/clip.ogg"); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if s3Client.bucket != "voice-notes" || s3Client.key != "u1/clip.ogg" {
		t.Fatalf("unexpected s3 location %s/%s", s3Client.bucket, s3Client.key)
	}
	if whisper.gotAudio != "s3-audio" {
		t.Fatalf("unexpected audio payload %q", whisper.gotAudio)
	}
}

func TestWhisperTranscriberErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "x")
	}))
	defer srv.Close()
	fetcher := NewFetcher(srv.Client(), nil)

	tr := newWhisperTranscriber(&fakeWhisper{text: "ok"}, fetcher, "", nil)
	if _, err := tr.Transcribe(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("expected download error")
	}
	if _, err := tr.Transcribe(context.Background(), "ftp://host/a.mp3"); err == nil {
		t.Fatal("expected unsupported scheme error")
	}
	if _, err := tr.Transcribe(context.Background(), "s3://bucket/a.mp3"); err == nil {
		t.Fatal("expected error without s3 client")
	}

	empty := newWhisperTranscriber(&fakeWhisper{text: "   "}, fetcher, "", nil)
	if _, err := empty.Transcribe(context.Background(), srv.URL+"/a.mp3"); !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}

	failing := newWhisperTranscriber(&fakeWhisper{err: errors.New("quota")}, fetcher, "", nil)
	if _, err := failing.Transcribe(context.Background(), srv.URL+"/a.mp3"); err == nil || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("expected wrapped whisper error, got %v", err)
	}
}
