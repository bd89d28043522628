package effect

import (
	"fmt"
	"math"
	"time"

	"github.com/fogleman/ease"
)

// Curve maps progress in [0,1] to a level in [0,1].
type Curve func(t float64) float64

var curves = map[string]Curve{
	"linear":       ease.Linear,
	"in-quad":      ease.InQuad,
	"out-quad":     ease.OutQuad,
	"in-out-quad":  ease.InOutQuad,
	"in-out-cubic": ease.InOutCubic,
	"in-quart":     ease.InQuart,
}

// LookupCurve returns the easing curve registered under name.
func LookupCurve(name string) (Curve, error) {
	if c, found := curves[name]; found {
		return c, nil
	}
	return nil, fmt.Errorf("unknown fade curve %q", name)
}

// Fade describes a stepped transition between two DMX levels.
type Fade struct {
	// The easing curve to use
	Curve Curve

	// Total running time of the fade
	Duration time.Duration

	// Number of frames the fade is split into
	Steps int
}

// NewFade builds a fade from a curve name. A zero duration or step count produces an
// instant cut.
func NewFade(curve string, duration time.Duration, steps int) (Fade, error) {
	c, err := LookupCurve(curve)
	if err != nil {
		return Fade{}, err
	}
	return Fade{
		Curve:    c,
		Duration: duration,
		Steps:    steps,
	}, nil
}

// Instant reports whether the fade is a plain cut.
func (f Fade) Instant() bool {
	return f.Curve == nil || f.Duration <= 0 || f.Steps <= 1
}

// Interval is the time between frames.
func (f Fade) Interval() time.Duration {
	if f.Instant() {
		return 0
	}
	return f.Duration / time.Duration(f.Steps)
}

// Level returns the eased progress after the given step, clamped to [0,1].
func (f Fade) Level(step int) float64 {
	if f.Instant() || step >= f.Steps {
		return 1.0
	}
	if step <= 0 {
		return 0.0
	}
	return math.Max(0.0, math.Min(1.0, f.Curve(float64(step)/float64(f.Steps))))
}

// Values returns the DMX value for every frame of a fade from one level to another.
// The last value is always to.
func (f Fade) Values(from, to byte) []byte {
	if f.Instant() {
		return []byte{to}
	}
	out := make([]byte, 0, f.Steps)
	for step := 1; step <= f.Steps; step++ {
		level := f.Level(step)
		v := float64(from) + (float64(to)-float64(from))*level
		out = append(out, byte(math.Round(v)))
	}
	return out
}
