package audio

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"omnis/kiosk/internal/floor"
)

// Synthesizer turns text into 16-bit mono PCM at PlaybackSampleRate.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Output plays PCM and returns once it has been heard.
type Output interface {
	Play(ctx context.Context, pcm []byte) error
}

type utterance struct {
	id   string
	text string
}

// Speaker serialises speech requests from the perception and voice loops onto
// one output. Speak never blocks; IsSpeaking stays true from the moment a
// request is queued until the echo guard after its playback has passed.
type Speaker struct {
	synth   Synthesizer
	out     Output
	gate    *floor.Manager
	queue   chan utterance
	pending atomic.Int32
	now     func() time.Time
}

func NewSpeaker(synth Synthesizer, out Output, gate *floor.Manager) *Speaker {
	if gate == nil {
		gate = floor.New(300 * time.Millisecond)
	}
	return &Speaker{
		synth: synth,
		out:   out,
		gate:  gate,
		queue: make(chan utterance, 16),
		now:   time.Now,
	}
}

// Speak queues text for playback. When the queue is full the text is dropped.
func (s *Speaker) Speak(text string) {
	if text == "" {
		return
	}
	s.pending.Add(1)
	u := utterance{id: uuid.NewString(), text: text}
	select {
	case s.queue <- u:
		speakerQueued.Inc()
	default:
		s.pending.Add(-1)
		speakerDropped.Inc()
		log.Printf("[speaker] queue full, dropping %q", text)
	}
}

func (s *Speaker) IsSpeaking() bool {
	if s.pending.Load() > 0 {
		return true
	}
	return !s.gate.ShouldListen(s.now()).Allow
}

// Run drains the queue until ctx is cancelled.
func (s *Speaker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-s.queue:
			s.say(ctx, u)
			s.pending.Add(-1)
		}
	}
}

func (s *Speaker) say(ctx context.Context, u utterance) {
	start := time.Now()
	pcm, err := s.synth.Synthesize(ctx, u.text)
	if err != nil {
		speakerErrors.WithLabelValues("synthesize").Inc()
		log.Printf("[speaker] synthesis failed for %q: %v", u.text, err)
		return
	}
	log.Printf("[speaker] say %q (%d bytes, synth %dms)", u.text, len(pcm), time.Since(start).Milliseconds())
	if len(pcm) == 0 || s.out == nil {
		return
	}
	s.gate.OnPlaybackStarted(u.id, s.now())
	defer func() { s.gate.OnPlaybackStopped(u.id, s.now()) }()
	if err := s.out.Play(ctx, pcm); err != nil && ctx.Err() == nil {
		speakerErrors.WithLabelValues("play").Inc()
		log.Printf("[speaker] playback failed: %v", err)
		return
	}
	speakerPlaybackMS.Observe(float64(time.Since(start).Milliseconds()))
}
