// Package transcribe turns voice-note URLs into text.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

const maxAudioBytes = 25 << 20

// ErrEmptyTranscript is returned when the audio produced no text.
var ErrEmptyTranscript = errors.New("transcribe: empty transcript")

type s3API interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type transcriptionAPI interface {
	New(ctx context.Context, body openai.AudioTranscriptionNewParams, opts ...option.RequestOption) (*openai.Transcription, error)
}

// Fetcher loads audio bytes for a URL. http(s) URLs are fetched directly and
// s3://bucket/key URLs go through S3.
type Fetcher struct {
	httpClient *http.Client
	s3         s3API
}

func NewFetcher(httpClient *http.Client, s3Client s3API) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{httpClient: httpClient, s3: s3Client}
}

// Fetch returns the audio stream and a file name hint. The caller closes the stream.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, "", fmt.Errorf("transcribe: parse url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		name = "audio.mp3"
	}

	switch u.Scheme {
	case "s3":
		if f.s3 == nil {
			return nil, "", errors.New("transcribe: s3 client not configured")
		}
		out, err := f.s3.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(u.Host),
			Key:    aws.String(strings.TrimPrefix(u.Path, "/")),
		})
		if err != nil {
			return nil, "", fmt.Errorf("transcribe: get s3 object: %w", err)
		}
		return out.Body, name, nil
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, "", fmt.Errorf("transcribe: build request: %w", err)
		}
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("transcribe: download audio: %w", err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, "", fmt.Errorf("transcribe: download audio: status %d", resp.StatusCode)
		}
		return resp.Body, name, nil
	default:
		return nil, "", fmt.Errorf("transcribe: unsupported url scheme %q", u.Scheme)
	}
}

// WhisperTranscriber sends audio to the OpenAI transcription endpoint.
type WhisperTranscriber struct {
	api     transcriptionAPI
	fetcher *Fetcher
	model   string
	logger  *logging.Logger
}

// NewWhisperTranscriber builds a transcriber from an OpenAI client.
func NewWhisperTranscriber(client *openai.Client, fetcher *Fetcher, model string, logger *logging.Logger) *WhisperTranscriber {
	if client == nil {
		panic("transcribe: openai client required")
	}
	return newWhisperTranscriber(&client.Audio.Transcriptions, fetcher, model, logger)
}

func newWhisperTranscriber(api transcriptionAPI, fetcher *Fetcher, model string, logger *logging.Logger) *WhisperTranscriber {
	if fetcher == nil {
		fetcher = NewFetcher(nil, nil)
	}
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WhisperTranscriber{api: api, fetcher: fetcher, model: model, logger: logger}
}

// Transcribe downloads audioURL and returns its text.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioURL string) (string, error) {
	body, name, err := t.fetcher.Fetch(ctx, audioURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	start := time.Now()
	resp, err := t.api.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(io.LimitReader(body, maxAudioBytes), name, "application/octet-stream"),
		Model: openai.AudioModel(t.model),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: whisper request: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	t.logger.Debug("audio transcribed", "model", t.model, "chars", len(text), "duration_ms", time.Since(start).Milliseconds())
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}
