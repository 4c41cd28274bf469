package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"
)

var ErrMissingKey = errors.New("tts: missing API key")

// OpenAI synthesizes speech as raw 24kHz 16-bit mono PCM.
type OpenAI struct {
	client *openai.Client
	model  string
	voice  string
}

func NewOpenAI(apiKey, baseURL, model, voice string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrMissingKey
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model, voice: voice}, nil
}

func (o *OpenAI) Synthesize(ctx context.Context, text string) ([]byte, error) {
	start := time.Now()
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.SpeechVoice(o.voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		ttsSynthesisTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()
	pcm, err := io.ReadAll(resp)
	if err != nil {
		ttsSynthesisTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read speech body: %w", err)
	}
	ttsSynthesisTotal.WithLabelValues("ok").Inc()
	ttsLatencyMS.Observe(float64(time.Since(start).Milliseconds()))
	ttsAudioBytes.Add(float64(len(pcm)))
	return pcm, nil
}

// Silent logs what would have been said. Used when no TTS key is configured
// so the kiosk keeps running headless.
type Silent struct{}

func (Silent) Synthesize(_ context.Context, text string) ([]byte, error) {
	ttsSynthesisTotal.WithLabelValues("silent").Inc()
	log.Printf("[tts] (silent) %s", text)
	return nil, nil
}
