package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrVoiceRunning    = errors.New("voice loop already running")
	ErrVoiceNotRunning = errors.New("voice loop not running")
)

// VoiceSession is one running voice loop plus the devices it holds.
type VoiceSession interface {
	Run(ctx context.Context) error
	Close() error
}

// VoiceFactory opens the microphone and builds a session. A failure here
// (no capture device) leaves the runner idle so the next greeting retries.
type VoiceFactory func(ctx context.Context) (VoiceSession, error)

// ExitCallback is invoked when the voice loop returns or its session could
// not be built.
type ExitCallback func(sessionID string, err error)

// VoiceRunner starts the voice loop at most once at a time.
type VoiceRunner struct {
	factory VoiceFactory
	onExit  ExitCallback
	grace   time.Duration

	mu  sync.Mutex
	cur *voiceProc
}

type voiceProc struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

func NewVoiceRunner(factory VoiceFactory, onExit ExitCallback) *VoiceRunner {
	return &VoiceRunner{factory: factory, onExit: onExit, grace: 3 * time.Second}
}

func (r *VoiceRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur != nil
}

// Start reserves the voice slot and returns. The session is built and run
// in its own goroutine, so device setup never holds up the caller. A build
// failure releases the slot and is reported through the exit callback.
func (r *VoiceRunner) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	p := &voiceProc{id: uuid.NewString(), cancel: cancel, done: make(chan struct{})}

	// Reserve slot to prevent TOCTOU duplicate starts
	r.mu.Lock()
	if r.cur != nil {
		r.mu.Unlock()
		cancel()
		return ErrVoiceRunning
	}
	r.cur = p
	r.mu.Unlock()

	go r.launch(ctx, p)
	return nil
}

func (r *VoiceRunner) launch(ctx context.Context, p *voiceProc) {
	defer close(p.done)
	defer p.cancel()

	sess, err := r.build(ctx)
	if err != nil {
		r.release(p)
		voiceStarts.WithLabelValues("error").Inc()
		log.Printf("[voice] session %s not started: %v", p.id, err)
		if r.onExit != nil {
			r.onExit(p.id, err)
		}
		return
	}
	voiceStarts.WithLabelValues("ok").Inc()
	gaugeVoiceRunning.Set(1)
	log.Printf("[voice] session %s started", p.id)

	err = r.run(ctx, sess)
	if cerr := sess.Close(); cerr != nil {
		log.Printf("[voice] session %s close: %v", p.id, cerr)
	}
	r.release(p)
	gaugeVoiceRunning.Set(0)
	log.Printf("[voice] session %s exited err=%v", p.id, err)
	if r.onExit != nil {
		r.onExit(p.id, err)
	}
}

func (r *VoiceRunner) build(ctx context.Context) (sess VoiceSession, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			sess, err = nil, fmt.Errorf("voice session build panicked: %v", rec)
		}
	}()
	sess, err = r.factory(ctx)
	if err == nil && sess == nil {
		err = errors.New("voice factory returned no session")
	}
	return sess, err
}

func (r *VoiceRunner) release(p *voiceProc) {
	r.mu.Lock()
	if r.cur == p {
		r.cur = nil
	}
	r.mu.Unlock()
}

// Stop cancels the loop and waits up to the grace period for it to exit.
func (r *VoiceRunner) Stop() error {
	r.mu.Lock()
	p := r.cur
	r.mu.Unlock()
	if p == nil {
		return ErrVoiceNotRunning
	}
	p.cancel()
	select {
	case <-p.done:
		return nil
	case <-time.After(r.grace):
		return errors.New("voice loop did not stop within grace period")
	}
}
