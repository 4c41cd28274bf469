package speech

import (
	"bytes"
	"context"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Transcriber turns a WAV clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Whisper transcribes through any OpenAI-compatible transcription endpoint.
type Whisper struct {
	client   *openai.Client
	model    string
	language string
}

func NewWhisper(apiKey, baseURL, model, language string) (*Whisper, error) {
	if apiKey == "" {
		return nil, &Error{Code: ErrCodeInvalidConfig, Message: "speech API key is required"}
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
		log.Printf("[speech] using base url %s", baseURL)
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &Whisper{client: openai.NewClientWithConfig(cfg), model: model, language: language}, nil
}

func (w *Whisper) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if len(wav) <= 44 {
		return "", &Error{Code: ErrCodeInvalidAudio, Message: "audio clip is empty"}
	}
	start := time.Now()
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "utterance.wav",
		Reader:   bytes.NewReader(wav),
		Language: w.language,
	})
	transcribeMS.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return "", &Error{Code: ErrCodeProvider, Message: "transcription request failed", Err: err}
	}
	return strings.TrimSpace(resp.Text), nil
}
