package floor

import (
	"testing"
	"time"
)

func TestSpeakingBlocksListening(t *testing.T) {
	f := New(300 * time.Millisecond)
	now := time.Now()
	f.OnPlaybackStarted("u1", now)
	d := f.ShouldListen(now.Add(time.Second))
	if d.Allow || d.Reason != "speaking" {
		t.Fatalf("expected listen blocked while speaking, got %+v", d)
	}
	if f.ActiveUtterance() != "u1" {
		t.Fatalf("expected active utterance u1, got %q", f.ActiveUtterance())
	}
}

func TestIdleAllowsListening(t *testing.T) {
	f := New(300 * time.Millisecond)
	if d := f.ShouldListen(time.Now()); !d.Allow {
		t.Fatalf("should allow listening when idle, got %+v", d)
	}
}

func TestEchoGuardAfterPlayback(t *testing.T) {
	f := New(300 * time.Millisecond)
	now := time.Now()
	f.OnPlaybackStarted("u1", now)
	f.OnPlaybackStopped("u1", now.Add(time.Second))

	if d := f.ShouldListen(now.Add(1100 * time.Millisecond)); d.Allow || d.Reason != "echo_guard" {
		t.Fatalf("expected echo guard, got %+v", d)
	}
	if d := f.ShouldListen(now.Add(1400 * time.Millisecond)); !d.Allow {
		t.Fatalf("expected listening allowed after guard, got %+v", d)
	}
}
