package speech

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

// FrameSource is a running microphone.
type FrameSource interface {
	Frames() <-chan []byte
	Flush()
	SampleRate() int
}

type Options struct {
	ListenTimeout time.Duration // wait for speech to start
	PhraseLimit   time.Duration // cap on one utterance
	Pause         time.Duration // silence that ends an utterance
	MinEnergy     float64
	Calibration   time.Duration // ambient sampling before the first listen
	MinStart      time.Duration
	Preroll       time.Duration
}

func (o *Options) defaults() {
	if o.ListenTimeout <= 0 {
		o.ListenTimeout = 5 * time.Second
	}
	if o.PhraseLimit <= 0 {
		o.PhraseLimit = 8 * time.Second
	}
	if o.Pause <= 0 {
		o.Pause = time.Second
	}
	if o.MinEnergy <= 0 {
		o.MinEnergy = 100
	}
	if o.MinStart <= 0 {
		o.MinStart = 60 * time.Millisecond
	}
	if o.Preroll <= 0 {
		o.Preroll = 300 * time.Millisecond
	}
}

// Recognizer captures one utterance per Listen call and transcribes it.
// Not safe for concurrent Listen calls; the voice loop is its only caller.
type Recognizer struct {
	src        FrameSource
	tr         Transcriber
	opts       Options
	vad        *VAD
	calibrated bool
}

func NewRecognizer(src FrameSource, tr Transcriber, opts Options) *Recognizer {
	opts.defaults()
	return &Recognizer{
		src:  src,
		tr:   tr,
		opts: opts,
		vad:  NewVAD(opts.MinEnergy, opts.MinStart, opts.Pause),
	}
}

func (r *Recognizer) Threshold() float64 { return r.vad.Threshold() }

// Calibrate samples ambient noise once and sets the energy threshold.
func (r *Recognizer) Calibrate(ctx context.Context) error {
	if r.calibrated || r.opts.Calibration <= 0 {
		r.calibrated = true
		return nil
	}
	r.src.Flush()
	rate := r.src.SampleRate()
	var sampled time.Duration
	var sum float64
	var n int
	for sampled < r.opts.Calibration {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-r.src.Frames():
			if !ok {
				return &Error{Code: ErrCodeDevice, Message: "microphone closed during calibration"}
			}
			sum += RMS(f)
			n++
			sampled += FrameDuration(f, rate)
		}
	}
	ambient := 0.0
	if n > 0 {
		ambient = sum / float64(n)
	}
	th := CalibratedThreshold(ambient, r.opts.MinEnergy)
	r.vad.SetThreshold(th)
	gaugeThreshold.Set(th)
	r.calibrated = true
	log.Printf("[speech] calibrated ambient=%.1f threshold=%.1f", ambient, th)
	return nil
}

// Listen waits for one utterance and transcribes it.
func (r *Recognizer) Listen(ctx context.Context) Outcome {
	start := time.Now()
	out := r.listen(ctx)
	out.Duration = time.Since(start)
	listenTotal.WithLabelValues(out.Kind.String()).Inc()
	return out
}

func (r *Recognizer) listen(ctx context.Context) Outcome {
	if err := r.Calibrate(ctx); err != nil {
		return Outcome{Kind: ServiceError, Err: err}
	}
	r.src.Flush()
	r.vad.Reset()

	rate := r.src.SampleRate()
	// Wall-clock guard in case the device stalls and stops delivering frames.
	stall := time.NewTimer(r.opts.ListenTimeout + r.opts.PhraseLimit + 2*time.Second)
	defer stall.Stop()

	var (
		preroll    [][]byte
		prerollDur time.Duration
		clip       []byte
		waited     time.Duration
		spoken     time.Duration
	)

	for {
		select {
		case <-ctx.Done():
			return Outcome{Kind: ServiceError, Err: ctx.Err()}
		case <-stall.C:
			if r.vad.Speaking() {
				return r.transcribe(ctx, clip, rate, spoken)
			}
			return Outcome{Kind: TimedOut}
		case f, ok := <-r.src.Frames():
			if !ok {
				if r.vad.Speaking() {
					return r.transcribe(ctx, clip, rate, spoken)
				}
				return Outcome{Kind: ServiceError, Err: &Error{Code: ErrCodeDevice, Message: "microphone closed"}}
			}
			dur := FrameDuration(f, rate)
			ev := r.vad.Feed(RMS(f), dur)

			if clip == nil {
				if ev == VADStart {
					for _, p := range preroll {
						clip = append(clip, p...)
					}
					clip = append(clip, f...)
					spoken = prerollDur + dur
					continue
				}
				preroll = append(preroll, f)
				prerollDur += dur
				for prerollDur > r.opts.Preroll && len(preroll) > 1 {
					prerollDur -= FrameDuration(preroll[0], rate)
					preroll = preroll[1:]
				}
				waited += dur
				if waited >= r.opts.ListenTimeout {
					return Outcome{Kind: TimedOut}
				}
				continue
			}

			clip = append(clip, f...)
			spoken += dur
			if ev == VADEnd || spoken >= r.opts.PhraseLimit {
				return r.transcribe(ctx, clip, rate, spoken)
			}
		}
	}
}

func (r *Recognizer) transcribe(ctx context.Context, clip []byte, rate int, spoken time.Duration) Outcome {
	r.vad.Reset()
	utteranceMS.Observe(float64(spoken.Milliseconds()))
	text, err := r.tr.Transcribe(ctx, PCMToWAV(clip, rate))
	if err != nil {
		var se *Error
		if errors.As(err, &se) && se.Code == ErrCodeInvalidAudio {
			return Outcome{Kind: Unintelligible}
		}
		log.Printf("[speech] transcription failed: %v", err)
		return Outcome{Kind: ServiceError, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{Kind: Unintelligible}
	}
	return Outcome{Kind: OK, Text: text}
}
