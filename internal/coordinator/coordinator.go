package coordinator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"omnis/kiosk/internal/enroll"
	"omnis/kiosk/internal/face"
	"omnis/kiosk/internal/presence"
	"omnis/kiosk/internal/types"
)

// maxFrameFailures consecutive frame errors release the camera so it can be
// reacquired.
const maxFrameFailures = 5

type Speaker interface {
	Speak(text string)
}

type VoiceStarter interface {
	Start() error
	IsRunning() bool
}

type Publisher interface {
	Publish(typ string, payload map[string]any)
}

type Deps struct {
	Camera  face.CameraOpener
	Matcher *face.Matcher
	Gallery *face.Gallery
	Tracker *presence.Tracker
	Slot    *enroll.Slot
	Speaker Speaker
	Voice   VoiceStarter
	Events  Publisher
	// Active is shared with the conversation loop.
	Active *atomic.Bool
}

type Options struct {
	CameraIndex     int
	FrameInterval   time.Duration
	ErrorPause      time.Duration
	Greeting        string
	UnknownGreeting string
	EnrollPrompt    string
	BackoffMin      time.Duration
	BackoffMax      time.Duration
	Debug           bool
}

// Status is a point-in-time view of the perception side for the monitor API.
type Status struct {
	CameraOpen         bool      `json:"camera_open"`
	Frames             int64     `json:"frames"`
	LastFrameAt        time.Time `json:"last_frame_at,omitempty"`
	VoiceRunning       bool      `json:"voice_running"`
	ConversationActive bool      `json:"conversation_active"`
	AwaitingName       bool      `json:"awaiting_name"`
	Enrolled           int       `json:"enrolled"`
}

// Coordinator runs the perception loop: camera frames in, greetings and
// enrollment offers out.
type Coordinator struct {
	d       Deps
	opts    Options
	backoff *Backoff
	now     func() time.Time

	cameraOpen  atomic.Bool
	frames      atomic.Int64
	lastFrameAt atomic.Int64
}

func New(d Deps, opts Options) *Coordinator {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 100 * time.Millisecond
	}
	if opts.ErrorPause <= 0 {
		opts.ErrorPause = 500 * time.Millisecond
	}
	if opts.BackoffMin <= 0 {
		opts.BackoffMin = time.Second
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = 30 * time.Second
	}
	if opts.Greeting == "" {
		opts.Greeting = "Hello %s!"
	}
	if d.Active == nil {
		d.Active = new(atomic.Bool)
	}
	return &Coordinator{
		d:       d,
		opts:    opts,
		backoff: NewBackoff(opts.BackoffMin, opts.BackoffMax),
		now:     time.Now,
	}
}

// Run acquires the camera and processes frames until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	log.Printf("[perception] starting camera=%d interval=%s", c.opts.CameraIndex, c.opts.FrameInterval)
	for ctx.Err() == nil {
		cam, err := c.d.Camera.OpenCamera(ctx, c.opts.CameraIndex)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			metricCameraOpenFailures.Inc()
			wait := c.backoff.Fail()
			log.Printf("[perception] camera %d unavailable (attempt %d), retrying in %s: %v",
				c.opts.CameraIndex, c.backoff.Failures(), wait, err)
			sleep(ctx, wait)
			continue
		}
		c.backoff.Reset()
		c.runCamera(ctx, cam)
	}
	log.Printf("[perception] stopped")
	return nil
}

func (c *Coordinator) runCamera(ctx context.Context, cam face.Camera) {
	c.cameraOpen.Store(true)
	defer func() {
		c.cameraOpen.Store(false)
		if err := cam.Close(); err != nil {
			log.Printf("[perception] camera close: %v", err)
		}
	}()

	fails := 0
	for ctx.Err() == nil {
		if err := c.processFrame(ctx, cam); err != nil {
			if ctx.Err() != nil {
				return
			}
			metricFrameErrors.Inc()
			fails++
			log.Printf("[perception] frame error (%d in a row): %v", fails, err)
			if fails >= maxFrameFailures {
				metricCameraReopens.Inc()
				log.Printf("[perception] releasing camera after %d failed frames", fails)
				return
			}
			sleep(ctx, c.opts.ErrorPause)
			continue
		}
		fails = 0
		sleep(ctx, c.opts.FrameInterval)
	}
}

func (c *Coordinator) processFrame(ctx context.Context, cam face.Camera) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	dets, err := cam.Frame(ctx)
	if err != nil {
		return err
	}
	now := c.now()
	metricFrames.Inc()
	c.frames.Add(1)
	c.lastFrameAt.Store(now.UnixNano())

	results := c.d.Matcher.Match(dets, c.d.Gallery.Snapshot())
	dec := c.d.Tracker.Observe(results, now, c.d.Active.Load())
	if dec.Suppressed {
		return nil
	}
	c.act(dec, now)
	return nil
}

func (c *Coordinator) act(dec presence.Decision, now time.Time) {
	for _, g := range dec.Greetings {
		c.d.Speaker.Speak(c.greeting(g.Name))
		c.publish("greeting", map[string]any{"name": g.Name, "reason": g.Reason})
		if c.opts.Debug {
			log.Printf("[perception] greeted %s (%s)", g.Name, g.Reason)
		}
	}
	if len(dec.Greetings) > 0 {
		c.ensureVoice()
	}

	if !dec.UnknownGreeting {
		return
	}
	if c.opts.UnknownGreeting != "" {
		c.d.Speaker.Speak(c.opts.UnknownGreeting)
	}
	c.publish("greeting", map[string]any{"name": types.Unknown.String(), "reason": "unknown"})
	if dec.Unknown == nil || c.d.Slot == nil {
		return
	}
	offered := c.d.Slot.Publish(enroll.Pending{
		Descriptor:  dec.Unknown.Descriptor,
		Image:       dec.Unknown.Crop,
		PublishedAt: now,
	})
	if !offered {
		return
	}
	metricEnrollOffers.Inc()
	if c.opts.EnrollPrompt != "" {
		c.d.Speaker.Speak(c.opts.EnrollPrompt)
	}
	c.publish("enrollment_offered", map[string]any{"region": dec.Unknown.Region})
	c.ensureVoice()
}

func (c *Coordinator) greeting(name string) string {
	if strings.Contains(c.opts.Greeting, "%s") {
		return fmt.Sprintf(c.opts.Greeting, name)
	}
	return c.opts.Greeting
}

// ensureVoice starts the voice loop on first need. A failed start is logged
// and retried on the next greeting.
func (c *Coordinator) ensureVoice() {
	if c.d.Voice == nil || c.d.Voice.IsRunning() {
		return
	}
	if err := c.d.Voice.Start(); err != nil && err != ErrVoiceRunning {
		log.Printf("[perception] voice loop not started: %v", err)
	}
}

func (c *Coordinator) publish(typ string, payload map[string]any) {
	if c.d.Events != nil {
		c.d.Events.Publish(typ, payload)
	}
}

func (c *Coordinator) Status() Status {
	s := Status{
		CameraOpen:         c.cameraOpen.Load(),
		Frames:             c.frames.Load(),
		ConversationActive: c.d.Active.Load(),
	}
	if ns := c.lastFrameAt.Load(); ns > 0 {
		s.LastFrameAt = time.Unix(0, ns).UTC()
	}
	if c.d.Voice != nil {
		s.VoiceRunning = c.d.Voice.IsRunning()
	}
	if c.d.Slot != nil {
		s.AwaitingName = c.d.Slot.Awaiting()
	}
	if c.d.Gallery != nil {
		s.Enrolled = c.d.Gallery.Len()
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
