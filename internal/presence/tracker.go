package presence

import (
	"time"

	"omnis/kiosk/internal/types"
)

const (
	ReasonNewcomer  = "newcomer"
	ReasonReturning = "returning"
	ReasonPrimary   = "primary"
)

type Greeting struct {
	Name   string
	Reason string
}

// Decision is what the tracker wants the perception loop to do for one frame.
type Decision struct {
	Greetings []Greeting
	Primary   types.Identity
	// UnknownGreeting is set when the generic greeting should be spoken.
	UnknownGreeting bool
	// Unknown is the largest unrecognized face, offered for enrollment.
	Unknown *types.Detection
	// Suppressed means a conversation was active and the frame was ignored.
	Suppressed bool
}

// Tracker holds greeting state. It is owned by the perception loop and is not
// safe for concurrent use.
type Tracker struct {
	cooldown      time.Duration
	lastGreetedAt map[string]time.Time
	previousKnown map[string]struct{}
	lastPrimary   string
}

func New(cooldown time.Duration) *Tracker {
	return &Tracker{
		cooldown:      cooldown,
		lastGreetedAt: make(map[string]time.Time),
		previousKnown: make(map[string]struct{}),
	}
}

// Observe decides who to greet in this frame and updates the tracker state.
func (t *Tracker) Observe(results []types.MatchResult, now time.Time, conversationActive bool) Decision {
	if conversationActive {
		return Decision{Suppressed: true}
	}

	var d Decision
	knownNow := make(map[string]struct{})
	var order []string
	primaryIdx := -1
	unknownIdx := -1
	for i, r := range results {
		if !r.Identity.Known {
			if unknownIdx < 0 || r.Detection.Region.Area() > results[unknownIdx].Detection.Region.Area() {
				unknownIdx = i
			}
			continue
		}
		if _, seen := knownNow[r.Identity.Name]; !seen {
			knownNow[r.Identity.Name] = struct{}{}
			order = append(order, r.Identity.Name)
		}
		if primaryIdx < 0 || r.Detection.Region.Area() > results[primaryIdx].Detection.Region.Area() {
			primaryIdx = i
		}
	}

	greeted := make(map[string]struct{})
	greet := func(name, reason string) {
		if _, dup := greeted[name]; dup {
			return
		}
		greeted[name] = struct{}{}
		d.Greetings = append(d.Greetings, Greeting{Name: name, Reason: reason})
		metricGreetings.WithLabelValues(reason).Inc()
	}

	for _, name := range order {
		if _, wasHere := t.previousKnown[name]; !wasHere {
			greet(name, ReasonNewcomer)
			continue
		}
		if last, ok := t.lastGreetedAt[name]; !ok || now.Sub(last) > t.cooldown {
			greet(name, ReasonReturning)
		}
	}

	if primaryIdx >= 0 {
		d.Primary = results[primaryIdx].Identity
		if d.Primary.Name != t.lastPrimary {
			greet(d.Primary.Name, ReasonPrimary)
		}
		t.lastPrimary = d.Primary.Name
	} else {
		d.Primary = types.Unknown
		t.lastPrimary = types.UnknownKey
	}

	for name := range greeted {
		t.lastGreetedAt[name] = now
	}
	t.previousKnown = knownNow

	if primaryIdx < 0 && unknownIdx >= 0 {
		last, ok := t.lastGreetedAt[types.UnknownKey]
		if !ok || now.Sub(last) > t.cooldown {
			d.UnknownGreeting = true
			det := results[unknownIdx].Detection
			d.Unknown = &det
			t.lastGreetedAt[types.UnknownKey] = now
			metricGreetings.WithLabelValues("unknown").Inc()
		}
	}
	return d
}

// LastGreeted reports when name was last greeted.
func (t *Tracker) LastGreeted(name string) (time.Time, bool) {
	ts, ok := t.lastGreetedAt[name]
	return ts, ok
}
