package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"omnis/kiosk/internal/config"
	"omnis/kiosk/internal/coordinator"
)

func TestVoiceBuilderWithoutAudio(t *testing.T) {
	b := &voiceBuilder{cfg: config.Load()}
	sess, err := b.build(context.Background())
	if !errors.Is(err, errNoAudio) {
		t.Fatalf("expected errNoAudio, got %v", err)
	}
	if sess != nil {
		t.Fatalf("expected no session, got %v", sess)
	}
}

func TestVoiceBuilderRecognizerErrorWins(t *testing.T) {
	sttErr := errors.New("missing API key")
	b := &voiceBuilder{cfg: config.Load(), sttErr: sttErr}
	if _, err := b.build(context.Background()); !errors.Is(err, sttErr) {
		t.Fatalf("expected recognizer error, got %v", err)
	}
}

func TestVoiceRunnerIdleWithoutAudio(t *testing.T) {
	b := &voiceBuilder{cfg: config.Load()}
	exited := make(chan error, 1)
	r := coordinator.NewVoiceRunner(b.build, func(_ string, err error) { exited <- err })

	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case err := <-exited:
		if !errors.Is(err, errNoAudio) {
			t.Fatalf("expected errNoAudio, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("build failure was not reported")
	}
	if r.IsRunning() {
		t.Fatal("runner should be idle after a failed build")
	}
	// a later greeting can try again
	if err := r.Start(); err != nil {
		t.Fatalf("second start: %v", err)
	}
	<-exited
}
