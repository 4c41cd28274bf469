package face

import (
	"log"
	"math"

	"omnis/kiosk/internal/types"
)

// Matcher reduces one frame's detections to named-or-unknown identities.
type Matcher struct {
	tolerance float64
	maxFaces  int
	debug     bool
}

func NewMatcher(tolerance float64, maxFaces int) *Matcher {
	if tolerance <= 0 {
		tolerance = 0.55
	}
	if maxFaces <= 0 {
		maxFaces = 4
	}
	return &Matcher{tolerance: tolerance, maxFaces: maxFaces}
}

// SetDebug enables per-face candidate logging.
func (m *Matcher) SetDebug(on bool) { m.debug = on }

// Match returns one result per retained detection, in input order.
// Detections past the per-frame cap are dropped before any matching.
func (m *Matcher) Match(dets []types.Detection, gallery []types.FaceRecord) []types.MatchResult {
	if len(dets) == 0 {
		return nil
	}
	if len(dets) > m.maxFaces {
		if m.debug {
			log.Printf("[vision] too many faces (%d), limiting to %d", len(dets), m.maxFaces)
		}
		metricFacesDropped.Add(float64(len(dets) - m.maxFaces))
		dets = dets[:m.maxFaces]
	}

	out := make([]types.MatchResult, 0, len(dets))
	for _, d := range dets {
		best := -1
		bestDist := math.Inf(1)
		for i, rec := range gallery {
			dist := Distance(rec.Descriptor, d.Descriptor)
			// strict less keeps the first record on ties
			if dist < bestDist {
				best, bestDist = i, dist
			}
		}

		res := types.MatchResult{Identity: types.Unknown, Detection: d, Distance: bestDist}
		if best >= 0 && bestDist < m.tolerance {
			res.Identity = types.Known(gallery[best].Name)
		}
		if m.debug {
			chosen := "UNKNOWN"
			if best >= 0 {
				chosen = gallery[best].Name
			}
			log.Printf("[vision] candidate=%s dist=%.3f accepted=%t", chosen, bestDist, res.Identity.Known)
		}
		metricMatches.WithLabelValues(matchLabel(res.Identity)).Inc()
		out = append(out, res)
	}
	return out
}

// Distance is the euclidean distance between two descriptors.
// Descriptors of different length never match.
func Distance(a, b types.Descriptor) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func matchLabel(id types.Identity) string {
	if id.Known {
		return "known"
	}
	return "unknown"
}
