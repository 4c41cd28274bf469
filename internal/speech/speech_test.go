package speech

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 16000

// frame returns 20ms of constant-amplitude PCM.
func frame(amp int16) []byte {
	b := make([]byte, testRate/50*2)
	for i := 0; i < len(b); i += 2 {
		binary.LittleEndian.PutUint16(b[i:], uint16(amp))
	}
	return b
}

type fakeSource struct{ ch chan []byte }

func newSource() *fakeSource { return &fakeSource{ch: make(chan []byte, 1024)} }

func (f *fakeSource) push(amp int16, n int) {
	for i := 0; i < n; i++ {
		f.ch <- frame(amp)
	}
}

func (f *fakeSource) Frames() <-chan []byte { return f.ch }
func (f *fakeSource) Flush() {}
func (f *fakeSource) SampleRate() int { return testRate }

type fakeTranscriber struct {
	text  string
	err   error
	calls int
	last  []byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, wav []byte) (string, error) {
	f.calls++
	f.last = wav
	return f.text, f.err
}

func opts() Options {
	return Options{ListenTimeout: time.Second, PhraseLimit: 2 * time.Second, Pause: 200 * time.Millisecond, MinEnergy: 100}
}

func TestVADStartAndEnd(t *testing.T) {
	v := NewVAD(100, 40*time.Millisecond, 60*time.Millisecond)
	step := 20 * time.Millisecond
	assert.Equal(t, VADNone, v.Feed(500, step))
	assert.Equal(t, VADStart, v.Feed(500, step))
	assert.True(t, v.Speaking())
	assert.Equal(t, VADNone, v.Feed(10, step))
	assert.Equal(t, VADNone, v.Feed(500, step), "loud frame resets the hangover")
	assert.Equal(t, VADNone, v.Feed(10, step))
	assert.Equal(t, VADNone, v.Feed(10, step))
	assert.Equal(t, VADEnd, v.Feed(10, step))
	assert.False(t, v.Speaking())
}

func TestVADIgnoresBlips(t *testing.T) {
	v := NewVAD(100, 60*time.Millisecond, time.Second)
	step := 20 * time.Millisecond
	for i := 0; i < 10; i++ {
		assert.Equal(t, VADNone, v.Feed(500, step))
		assert.Equal(t, VADNone, v.Feed(0, step))
	}
}

func TestRMSAndThreshold(t *testing.T) {
	assert.InDelta(t, 2000, RMS(frame(2000)), 0.001)
	assert.InDelta(t, 2000, RMS(frame(-2000)), 0.001)
	assert.Equal(t, 0.0, RMS(nil))
	assert.Equal(t, 20*time.Millisecond, FrameDuration(frame(0), testRate))
	assert.Equal(t, 100.0, CalibratedThreshold(20, 100))
	assert.Equal(t, 300.0, CalibratedThreshold(200, 100))
}

func TestPCMToWAVHeader(t *testing.T) {
	wav := PCMToWAV(frame(1), testRate)
	require.Len(t, wav, 44+640)
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint32(testRate), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(640), binary.LittleEndian.Uint32(wav[40:44]))
}

func TestListenTimesOutOnSilence(t *testing.T) {
	src := newSource()
	src.push(0, 200)
	tr := &fakeTranscriber{}
	out := NewRecognizer(src, tr, opts()).Listen(context.Background())
	assert.Equal(t, TimedOut, out.Kind)
	assert.Zero(t, tr.calls)
}

func TestListenTranscribesUtterance(t *testing.T) {
	src := newSource()
	src.push(0, 10)
	src.push(3000, 30)
	src.push(0, 20)
	tr := &fakeTranscriber{text: " omnis what time is school over "}
	out := NewRecognizer(src, tr, opts()).Listen(context.Background())

	require.Equal(t, OK, out.Kind)
	assert.Equal(t, "omnis what time is school over", out.Text)
	require.Equal(t, 1, tr.calls)
	assert.Equal(t, "RIFF", string(tr.last[:4]))
	// preroll + speech + hangover, all 20ms frames
	assert.Greater(t, len(tr.last)-44, 30*640)
}

func TestListenPhraseLimit(t *testing.T) {
	src := newSource()
	src.push(3000, 500)
	tr := &fakeTranscriber{text: "a very long question"}
	out := NewRecognizer(src, tr, opts()).Listen(context.Background())
	require.Equal(t, OK, out.Kind)
	assert.LessOrEqual(t, len(tr.last)-44, 2*testRate*2+640)
}

func TestListenUnintelligible(t *testing.T) {
	src := newSource()
	src.push(3000, 20)
	src.push(0, 20)
	out := NewRecognizer(src, &fakeTranscriber{text: "  "}, opts()).Listen(context.Background())
	assert.Equal(t, Unintelligible, out.Kind)
}

func TestListenServiceError(t *testing.T) {
	src := newSource()
	src.push(3000, 20)
	src.push(0, 20)
	boom := errors.New("connection refused")
	out := NewRecognizer(src, &fakeTranscriber{err: boom}, opts()).Listen(context.Background())
	assert.Equal(t, ServiceError, out.Kind)
	assert.ErrorIs(t, out.Err, boom)
}

func TestListenClosedMicrophone(t *testing.T) {
	src := newSource()
	close(src.ch)
	out := NewRecognizer(src, &fakeTranscriber{}, opts()).Listen(context.Background())
	assert.Equal(t, ServiceError, out.Kind)
	var se *Error
	require.ErrorAs(t, out.Err, &se)
	assert.Equal(t, ErrCodeDevice, se.Code)
}

func TestCalibrationRaisesThreshold(t *testing.T) {
	src := newSource()
	src.push(200, 50) // one second of ambient noise
	src.push(250, 60) // louder than min energy, quieter than the calibrated threshold
	o := opts()
	o.Calibration = time.Second
	r := NewRecognizer(src, &fakeTranscriber{text: "noise"}, o)

	out := r.Listen(context.Background())
	assert.InDelta(t, 300, r.Threshold(), 0.001)
	assert.Equal(t, TimedOut, out.Kind)
}

func TestListenHonoursContext(t *testing.T) {
	src := newSource()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := NewRecognizer(src, &fakeTranscriber{}, opts()).Listen(ctx)
	assert.Equal(t, ServiceError, out.Kind)
	assert.ErrorIs(t, out.Err, context.Canceled)
}
