package sensor

import (
	"ledswarm-go/x/mathx"

	"github.com/go-gl/mathgl/mgl32"
)

// Window is the number of magnitude deltas averaged into the jolt signal.
const Window = 20

// DefaultNoiseThreshold is the minimum change in average jolt worth emitting.
const DefaultNoiseThreshold float32 = 0.02

// MovingAverage turns acceleration vectors into a smoothed "jolt": the mean
// absolute change in magnitude over the last Window samples. The absolute
// difference removes constant biases such as gravity.
type MovingAverage struct {
	buf    [Window]float32
	idx    int
	prev   float32
	primed bool
}

// Add records one sample.
func (m *MovingAverage) Add(v mgl32.Vec3) {
	mag := v.Len()
	if !m.primed {
		// First sample only seeds the reference magnitude.
		m.prev = mag
		m.primed = true
	}
	d := mag - m.prev
	if d < 0 {
		d = -d
	}
	m.buf[m.idx] = d
	m.prev = mag
	m.idx++
	if m.idx == Window {
		m.idx = 0
	}
}

// Average is the window mean rounded to two decimals.
func (m *MovingAverage) Average() float32 {
	var sum float32
	for _, d := range m.buf {
		sum += d
	}
	return mathx.Round(sum/Window, 2)
}

// JoltGate coalesces the averaged signal: a value is let through only when
// it moved more than Threshold away from the last value let through.
type JoltGate struct {
	Threshold float32
	last      float32
}

// Offer reports whether avg should be emitted and, if so, remembers it.
func (g *JoltGate) Offer(avg float32) bool {
	d := avg - g.last
	if d < 0 {
		d = -d
	}
	if d <= g.Threshold {
		return false
	}
	g.last = avg
	return true
}

// Last is the most recently emitted value.
func (g *JoltGate) Last() float32 { return g.last }
