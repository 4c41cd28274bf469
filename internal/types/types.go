package types

import "time"

// UnknownKey is the cooldown key shared by every unrecognized face.
const UnknownKey = "__unknown__"

type Identity struct {
	Name  string `json:"name,omitempty"`
	Known bool   `json:"known"`
}

var Unknown = Identity{}

func Known(name string) Identity { return Identity{Name: name, Known: true} }

// Key returns the name used for cooldown bookkeeping.
func (i Identity) Key() string {
	if !i.Known {
		return UnknownKey
	}
	return i.Name
}

func (i Identity) String() string {
	if !i.Known {
		return "Unknown"
	}
	return i.Name
}

// Region is a face box in image pixels, ordered the way the vision sidecar reports it.
type Region struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

func (r Region) Area() int {
	h := r.Bottom - r.Top
	w := r.Right - r.Left
	if h < 0 {
		h = 0
	}
	if w < 0 {
		w = 0
	}
	return h * w
}

type Descriptor []float64

type Detection struct {
	Region     Region     `json:"region"`
	Descriptor Descriptor `json:"-"`
	Crop       []byte     `json:"-"`
}

type MatchResult struct {
	Identity  Identity  `json:"identity"`
	Detection Detection `json:"detection"`
	Distance  float64   `json:"distance"`
}

type FaceRecord struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Descriptor Descriptor `json:"-"`
	Image      []byte     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Event struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Ts      time.Time      `json:"timestamp"`
	Payload map[string]any `json:"payload,omitempty"`
}
