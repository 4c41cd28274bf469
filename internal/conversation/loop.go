package conversation

import (
	"context"
	"log"
	"runtime/debug"
	"sync/atomic"
	"time"

	"omnis/kiosk/internal/enroll"
	"omnis/kiosk/internal/speech"
)

const (
	PhraseAcknowledge    = "Yes, how can I help you?"
	PhrasePromptSpecific = "Please ask me something specific."
)

type Listener interface {
	Listen(ctx context.Context) speech.Outcome
}

type Speaker interface {
	Speak(text string)
	IsSpeaking() bool
}

type NameHandler interface {
	HandleName(ctx context.Context, utterance string) enroll.Result
}

// Publisher receives monitor events. May be nil.
type Publisher interface {
	Publish(typ string, payload map[string]any)
}

type Deps struct {
	Listener Listener
	Speaker  Speaker
	Router   *Router
	Slot     *enroll.Slot
	Names    NameHandler
	Events   Publisher
	// Active mirrors Machine.Active for readers on other goroutines.
	Active *atomic.Bool
}

type Options struct {
	WakeWords  []string
	MaxStrikes int
	EnrollTTL  time.Duration
	Poll       time.Duration // sleep while the kiosk is speaking
	ErrorPause time.Duration
	Debug      bool
}

// Loop is the voice goroutine: listen, decide, answer.
type Loop struct {
	d       Deps
	opts    Options
	machine *Machine
	now     func() time.Time
}

func NewLoop(d Deps, opts Options) *Loop {
	if opts.Poll <= 0 {
		opts.Poll = 500 * time.Millisecond
	}
	if opts.ErrorPause <= 0 {
		opts.ErrorPause = time.Second
	}
	if opts.EnrollTTL <= 0 {
		opts.EnrollTTL = 30 * time.Second
	}
	if d.Active == nil {
		d.Active = &atomic.Bool{}
	}
	if d.Slot == nil {
		d.Slot = enroll.NewSlot()
	}
	return &Loop{d: d, opts: opts, machine: NewMachine(opts.WakeWords, opts.MaxStrikes), now: time.Now}
}

// Active reports whether a conversation is in progress. Safe from any goroutine.
func (l *Loop) Active() bool { return l.d.Active.Load() }

// Run blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	log.Printf("[voice] loop started, wake words %v", l.opts.WakeWords)
	defer log.Printf("[voice] loop stopped")
	for ctx.Err() == nil {
		l.step(ctx)
	}
	return nil
}

func (l *Loop) step(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			panicsTotal.Inc()
			log.Printf("[voice] recovered panic: %v\n%s", r, debug.Stack())
			sleep(ctx, l.opts.ErrorPause)
		}
	}()

	if l.d.Speaker.IsSpeaking() {
		sleep(ctx, l.opts.Poll)
		return
	}

	out := l.d.Listener.Listen(ctx)
	if ctx.Err() != nil {
		return
	}
	utterancesTotal.WithLabelValues(out.Kind.String()).Inc()
	if out.Kind == speech.OK && l.d.Speaker.IsSpeaking() {
		discardedTotal.Inc()
		if l.opts.Debug {
			log.Printf("[voice] discarded %q heard while speaking", out.Text)
		}
		return
	}

	switch out.Kind {
	case speech.OK:
		log.Printf("[voice] heard %q", out.Text)
		l.handleText(ctx, out.Text)
	case speech.TimedOut:
		if l.machine.OnTimeout() {
			log.Printf("[voice] no speech for %d attempts, say a wake word to start again", l.machine.maxStrikes)
			l.transition(Active, Idle)
		}
		l.expireSlot()
	case speech.Unintelligible:
		if l.opts.Debug {
			log.Printf("[voice] didn't catch that")
		}
	case speech.ServiceError:
		log.Printf("[voice] speech error: %v", out.Err)
		sleep(ctx, l.opts.ErrorPause)
	}
}

func (l *Loop) handleText(ctx context.Context, text string) {
	l.expireSlot()
	if l.d.Slot.Awaiting() && l.d.Names != nil {
		res := l.d.Names.HandleName(ctx, text)
		l.d.Speaker.Speak(res.Reply)
		l.publish("enrollment", map[string]any{"name": res.Name, "saved": res.Saved, "reason": res.Reason})
		return
	}

	before := l.machine.State()
	d := l.machine.OnUtterance(text)
	if d.Ignored {
		if l.opts.Debug {
			log.Printf("[voice] no wake word in %q", text)
		}
		return
	}
	if after := l.machine.State(); after != before {
		l.transition(before, after)
	}
	if d.Acknowledge {
		l.d.Speaker.Speak(PhraseAcknowledge)
	}
	if d.PromptSpecific {
		l.d.Speaker.Speak(PhrasePromptSpecific)
	}
	if d.Question == "" {
		return
	}

	log.Printf("[voice] question %q", d.Question)
	a := l.d.Router.Route(ctx, d.Question)
	log.Printf("[voice] %s answer: %s", a.Source, a.Text)
	l.d.Speaker.Speak(a.Text)
	l.machine.Answered()
	l.publish("answer", map[string]any{"question": d.Question, "answer": a.Text, "source": a.Source})
}

func (l *Loop) expireSlot() {
	if l.d.Slot.Expire(l.now(), l.opts.EnrollTTL) {
		log.Printf("[enroll] pending enrollment expired")
		l.publish("enrollment", map[string]any{"reason": "expired"})
	}
}

func (l *Loop) transition(from, to State) {
	l.d.Active.Store(to == Active)
	stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
	if to == Active {
		gaugeActive.Set(1)
	} else {
		gaugeActive.Set(0)
	}
	log.Printf("[voice] state %s -> %s", from, to)
	l.publish("conversation_state", map[string]any{"from": from.String(), "to": to.String()})
}

func (l *Loop) publish(typ string, payload map[string]any) {
	if l.d.Events != nil {
		l.d.Events.Publish(typ, payload)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
