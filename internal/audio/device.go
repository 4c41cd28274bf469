package audio

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

const (
	// CaptureSampleRate is what the recognizer and the transcription API expect.
	CaptureSampleRate = 16000
	// PlaybackSampleRate matches the raw PCM returned by the speech synthesizer.
	PlaybackSampleRate = 24000

	periodMs = 20
)

// Context owns the miniaudio context and the capture devices enumerated on it.
type Context struct {
	ctx     *malgo.AllocatedContext
	mu      sync.Mutex
	ids     []malgo.DeviceID
	devices []DeviceInfo
}

func NewContext() (*Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &Context{ctx: ctx}, nil
}

// CaptureDevices enumerates capture devices. Results are cached for the
// lifetime of the context; OpenMicrophone resolves indexes against them.
func (c *Context) CaptureDevices() ([]DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.devices != nil {
		return append([]DeviceInfo(nil), c.devices...), nil
	}
	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate capture devices: %w", err)
	}
	c.ids = make([]malgo.DeviceID, len(infos))
	c.devices = make([]DeviceInfo, len(infos))
	for i, info := range infos {
		c.ids[i] = info.ID
		c.devices[i] = DeviceInfo{Index: i, Name: info.Name(), IsDefault: info.IsDefault != 0}
	}
	return append([]DeviceInfo(nil), c.devices...), nil
}

func (c *Context) Close() {
	if c == nil || c.ctx == nil {
		return
	}
	_ = c.ctx.Uninit()
	c.ctx.Free()
}

// Microphone delivers 16-bit mono PCM frames of periodMs each.
type Microphone struct {
	dev    *malgo.Device
	frames chan []byte
	name   string
}

// OpenMicrophone starts capturing from dev. Frames that the consumer does not
// read in time are dropped.
func (c *Context) OpenMicrophone(dev DeviceInfo) (*Microphone, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.PeriodSizeInMilliseconds = periodMs
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = CaptureSampleRate
	cfg.Alsa.NoMMap = 1

	c.mu.Lock()
	if dev.Index >= 0 && dev.Index < len(c.ids) {
		cfg.Capture.DeviceID = c.ids[dev.Index].Pointer()
	}
	c.mu.Unlock()

	m := &Microphone{frames: make(chan []byte, 256), name: dev.Name}
	d, err := malgo.InitDevice(c.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			buf := make([]byte, len(input))
			copy(buf, input)
			select {
			case m.frames <- buf:
			default:
				micFramesDropped.Inc()
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init capture device %q: %w", dev.Name, err)
	}
	if err := d.Start(); err != nil {
		d.Uninit()
		return nil, fmt.Errorf("start capture device %q: %w", dev.Name, err)
	}
	m.dev = d
	log.Printf("[audio] microphone open: %q (%d Hz)", dev.Name, CaptureSampleRate)
	return m, nil
}

func (m *Microphone) Frames() <-chan []byte { return m.frames }

func (m *Microphone) SampleRate() int { return CaptureSampleRate }

// Flush discards anything captured so far.
func (m *Microphone) Flush() {
	for {
		select {
		case <-m.frames:
		default:
			return
		}
	}
}

func (m *Microphone) Close() error {
	if m.dev != nil {
		_ = m.dev.Stop()
		m.dev.Uninit()
		m.dev = nil
		log.Printf("[audio] microphone closed: %q", m.name)
	}
	return nil
}

// Player plays 16-bit mono PCM on the default output device.
type Player struct {
	dev *malgo.Device
	mu  sync.Mutex
	buf []byte
}

func (c *Context) OpenPlayer() (*Player, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.PeriodSizeInMilliseconds = periodMs
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = PlaybackSampleRate
	cfg.Alsa.NoMMap = 1

	p := &Player{}
	d, err := malgo.InitDevice(c.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) {
			p.mu.Lock()
			n := copy(output, p.buf)
			p.buf = p.buf[n:]
			p.mu.Unlock()
			for i := n; i < len(output); i++ {
				output[i] = 0
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init playback device: %w", err)
	}
	if err := d.Start(); err != nil {
		d.Uninit()
		return nil, fmt.Errorf("start playback device: %w", err)
	}
	p.dev = d
	return p, nil
}

// Play queues pcm and blocks until the device has consumed it or ctx ends.
func (p *Player) Play(ctx context.Context, pcm []byte) error {
	p.mu.Lock()
	p.buf = append(p.buf, pcm...)
	p.mu.Unlock()

	t := time.NewTicker(periodMs * time.Millisecond)
	defer t.Stop()
	for {
		p.mu.Lock()
		left := len(p.buf)
		p.mu.Unlock()
		if left == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.buf = nil
			p.mu.Unlock()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (p *Player) Close() error {
	if p.dev != nil {
		_ = p.dev.Stop()
		p.dev.Uninit()
		p.dev = nil
	}
	return nil
}
