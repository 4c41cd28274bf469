package speech

import (
	"encoding/binary"
	"math"
	"time"
)

// VADEvent is emitted by VAD.Feed on speech boundaries.
type VADEvent int

const (
	VADNone VADEvent = iota
	VADStart
	VADEnd
)

// VAD is an energy detector over 16-bit PCM frames. Speech starts after
// minStart of consecutive loud audio and ends after hangover of quiet audio.
type VAD struct {
	threshold float64
	minStart  time.Duration
	hangover  time.Duration

	speaking bool
	loudFor  time.Duration
	quietFor time.Duration
}

func NewVAD(threshold float64, minStart, hangover time.Duration) *VAD {
	return &VAD{threshold: threshold, minStart: minStart, hangover: hangover}
}

func (v *VAD) Threshold() float64 { return v.threshold }

func (v *VAD) SetThreshold(t float64) { v.threshold = t }

func (v *VAD) Speaking() bool { return v.speaking }

// Feed consumes the RMS of one frame lasting dur.
func (v *VAD) Feed(rms float64, dur time.Duration) VADEvent {
	if !v.speaking {
		if rms >= v.threshold {
			v.loudFor += dur
			if v.loudFor >= v.minStart {
				v.speaking = true
				v.quietFor = 0
				vadStarts.Inc()
				return VADStart
			}
		} else {
			v.loudFor = 0
		}
		return VADNone
	}

	if rms < v.threshold {
		v.quietFor += dur
		if v.quietFor >= v.hangover {
			v.Reset()
			vadEnds.Inc()
			return VADEnd
		}
	} else {
		v.quietFor = 0
	}
	return VADNone
}

func (v *VAD) Reset() {
	v.speaking = false
	v.loudFor = 0
	v.quietFor = 0
}

// CalibratedThreshold raises the floor above the measured ambient level.
func CalibratedThreshold(ambient, minEnergy float64) float64 {
	return math.Max(minEnergy, ambient*1.5)
}

// RMS of little-endian signed 16-bit samples.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// FrameDuration of mono 16-bit PCM at rate.
func FrameDuration(pcm []byte, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(len(pcm)/2) * time.Second / time.Duration(rate)
}
