// Package transcribe turns consultation audio into text. The production
// implementation talks to a whisper-server instance over HTTP; tests use the
// Transcriber interface to stub it out.
package transcribe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/mediscribe/mediscribe/internal/platform/apperr"
)

// Transcriber converts an audio recording into a plain-text transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, fileName string) (string, error)
}

// inferenceResponse is the whisper-server /inference response body.
type inferenceResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// WhisperClient calls a whisper-server over HTTP. Inference is serialized
// through a mutex: the model holds a large working set and concurrent
// requests degrade rather than parallelize.
type WhisperClient struct {
	client *resty.Client
	model  string
	logger zerolog.Logger

	mu sync.Mutex
}

// NewWhisperClient builds a client for the whisper-server at baseURL.
// The model name is advisory; servers loaded with a fixed model ignore it.
func NewWhisperClient(baseURL, model string, timeout time.Duration, logger zerolog.Logger) *WhisperClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &WhisperClient{
		client: client,
		model:  model,
		logger: logger.With().Str("component", "whisper").Logger(),
	}
}

// Transcribe uploads the audio and returns the recognized text.
func (w *WhisperClient) Transcribe(ctx context.Context, audio io.Reader, fileName string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	var out inferenceResponse

	resp, err := w.client.R().
		SetContext(ctx).
		SetFileReader("file", fileName, audio).
		SetFormData(map[string]string{
			"model":           w.model,
			"response_format": "json",
		}).
		SetResult(&out).
		SetError(&out).
		Post("/inference")
	if err != nil {
		return "", apperr.Upstream("transcription service unreachable", err)
	}
	if resp.IsError() {
		msg := out.Error
		if msg == "" {
			msg = resp.Status()
		}
		return "", apperr.Upstream(fmt.Sprintf("transcription failed: %s", msg), nil)
	}

	w.logger.Info().
		Str("file", fileName).
		Dur("took", time.Since(start)).
		Int("chars", len(out.Text)).
		Msg("transcription complete")

	return out.Text, nil
}
