package conversation

import (
	"strings"
	"unicode"
)

type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Decision is what the voice loop should do with one recognised utterance.
type Decision struct {
	Acknowledge    bool   // just woke up; say the acknowledgement
	Question       string // route this
	PromptSpecific bool   // active, but nothing worth answering yet
	Ignored        bool   // idle and no wake word
}

// Machine tracks wake-word conversation mode. It performs no I/O and is owned
// by the voice loop.
type Machine struct {
	wake       map[string]bool
	maxStrikes int
	state      State
	strikes    int
}

func NewMachine(wakeWords []string, maxStrikes int) *Machine {
	if maxStrikes <= 0 {
		maxStrikes = 3
	}
	w := make(map[string]bool, len(wakeWords))
	for _, s := range wakeWords {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			w[s] = true
		}
	}
	return &Machine{wake: w, maxStrikes: maxStrikes}
}

func (m *Machine) State() State { return m.state }
func (m *Machine) Active() bool { return m.state == Active }
func (m *Machine) Strikes() int { return m.strikes }

func (m *Machine) OnUtterance(text string) Decision {
	tokens := tokenize(text)
	var rest []string
	woke := false
	for _, t := range tokens {
		if m.wake[t] {
			woke = true
			continue
		}
		rest = append(rest, t)
	}

	var d Decision
	if m.state == Idle {
		if !woke {
			return Decision{Ignored: true}
		}
		m.state = Active
		d.Acknowledge = true
	}
	m.strikes = 0

	if q := strings.Join(rest, " "); len(q) >= 3 {
		d.Question = q
	} else if !d.Acknowledge {
		d.PromptSpecific = true
	}
	return d
}

// Answered marks the routed question as handled.
func (m *Machine) Answered() { m.strikes = 0 }

// OnTimeout counts a listen attempt that heard nothing. It reports whether the
// conversation just ended.
func (m *Machine) OnTimeout() bool {
	if m.state != Active {
		return false
	}
	m.strikes++
	if m.strikes >= m.maxStrikes {
		m.state = Idle
		m.strikes = 0
		return true
	}
	return false
}

func tokenize(text string) []string {
	var out []string
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
