package floor

import (
	"sync"
	"time"
)

// Decision tells the voice loop whether it may listen right now.
type Decision struct {
	Allow  bool
	Reason string // "speaking", "echo_guard"
}

// Manager tracks who holds the floor. The speaker reports playback start and
// stop; the voice loop asks before every listen attempt. Safe for concurrent use.
type Manager struct {
	mu                sync.Mutex
	speaking          bool
	activeUtteranceID string
	lastStartedAt     time.Time
	guardUntil        time.Time
	echoTail          time.Duration
}

// New returns a manager that keeps the microphone closed for echoTail after
// playback ends, so the tail of our own voice is not transcribed.
func New(echoTail time.Duration) *Manager { return &Manager{echoTail: echoTail} }

func (m *Manager) OnPlaybackStarted(utteranceID string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speaking = true
	m.activeUtteranceID = utteranceID
	m.lastStartedAt = now
}

func (m *Manager) OnPlaybackStopped(utteranceID string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Regardless of ID match, stopping clears speaking.
	m.speaking = false
	m.activeUtteranceID = ""
	m.guardUntil = now.Add(m.echoTail)
}

func (m *Manager) ShouldListen(now time.Time) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.speaking {
		return Decision{Reason: "speaking"}
	}
	if now.Before(m.guardUntil) {
		return Decision{Reason: "echo_guard"}
	}
	return Decision{Allow: true}
}

// ActiveUtterance returns the utterance currently playing, if any.
func (m *Manager) ActiveUtterance() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeUtteranceID
}
