package main

import (
	"context"
	"errors"
	"log"
	"time"

	"omnis/kiosk/internal/audio"
	"omnis/kiosk/internal/config"
	"omnis/kiosk/internal/conversation"
	"omnis/kiosk/internal/coordinator"
	"omnis/kiosk/internal/speech"
)

var errNoAudio = errors.New("audio backend unavailable")

// voiceBuilder assembles a conversation loop around a freshly opened
// microphone. Without an audio context or a recognizer the build fails and
// the runner stays idle until the next greeting retries it.
type voiceBuilder struct {
	cfg         config.Config
	audio       *audio.Context
	transcriber speech.Transcriber
	sttErr      error
	deps        conversation.Deps
}

func (b *voiceBuilder) build(ctx context.Context) (coordinator.VoiceSession, error) {
	if b.sttErr != nil {
		return nil, b.sttErr
	}
	if b.audio == nil {
		return nil, errNoAudio
	}
	devices, err := b.audio.CaptureDevices()
	if err != nil {
		return nil, err
	}
	dev, err := audio.Probe(devices, b.cfg.Voice.MicDevice)
	if err != nil {
		return nil, err
	}
	mic, err := b.audio.OpenMicrophone(dev)
	if err != nil {
		return nil, err
	}
	log.Printf("microphone %d %q opened", dev.Index, dev.Name)
	rec := speech.NewRecognizer(mic, b.transcriber, speech.Options{
		ListenTimeout: b.cfg.Voice.ListenTimeout,
		PhraseLimit:   b.cfg.Voice.PhraseLimit,
		Pause:         b.cfg.Voice.Pause,
		MinEnergy:     b.cfg.Voice.MinEnergy,
		Calibration:   time.Second,
	})
	if err := rec.Calibrate(ctx); err != nil {
		log.Printf("mic calibration skipped: %v", err)
	}
	deps := b.deps
	deps.Listener = rec
	loop := conversation.NewLoop(deps, conversation.Options{
		WakeWords:  b.cfg.Voice.WakeWords,
		MaxStrikes: b.cfg.Voice.TimeoutStrikes,
		EnrollTTL:  b.cfg.Enroll.Timeout,
		Debug:      b.cfg.Debug,
	})
	return &voiceSession{loop: loop, mic: mic}, nil
}

// voiceSession ties a conversation loop to the microphone it reads.
type voiceSession struct {
	loop *conversation.Loop
	mic  *audio.Microphone
}

func (s *voiceSession) Run(ctx context.Context) error { return s.loop.Run(ctx) }

func (s *voiceSession) Close() error { return s.mic.Close() }
