// Package led renders the unit's state as a single RGBW colour for the whole
// ring, once per coordinator tick.
package led

import "math"

// Color is one RGBW pixel value.
type Color struct{ R, G, B, W uint8 }

var (
	Off      = Color{}
	Cyan     = Color{G: 255, B: 255}
	Red      = Color{R: 255}
	Green    = Color{G: 255}
	Fallback = Color{W: 30} // shown for an empty timeline
)

// Segment shows Color for Ticks ticks.
type Segment struct {
	Ticks uint32
	Color Color
}

// Timeline is a looping sequence of segments, or an analytic wave over a
// fixed cycle. The zero value renders Fallback.
type Timeline struct {
	segs  []Segment
	cycle uint32
	wave  func(t uint32) Color
}

func NewTimeline(segs ...Segment) Timeline {
	var cycle uint32
	for _, s := range segs {
		cycle += s.Ticks
	}
	return Timeline{segs: segs, cycle: cycle}
}

// Wave builds a timeline computed by fn for t in [0, cycle).
func Wave(cycle uint32, fn func(t uint32) Color) Timeline {
	return Timeline{cycle: cycle, wave: fn}
}

// Cycle is the period in ticks.
func (tl Timeline) Cycle() uint32 { return tl.cycle }

// At returns the colour at tick t; it depends only on t mod Cycle().
func (tl Timeline) At(t uint32) Color {
	if tl.cycle == 0 {
		return Fallback
	}
	t %= tl.cycle
	if tl.wave != nil {
		return tl.wave(t)
	}
	var elapsed uint32
	for _, s := range tl.segs {
		elapsed += s.Ticks
		if t < elapsed {
			return s.Color
		}
	}
	return Fallback
}

// ---- Mode timelines ----

// ClockWrap is a common multiple of every mode timeline's cycle. An
// animation clock wrapping here stays continuous in every timeline.
const ClockWrap = 4000

func DiscoveryTimeline() Timeline {
	return NewTimeline(Segment{1000, Cyan}, Segment{1000, Off})
}

func ConnectingTimeline() Timeline {
	return NewTimeline(Segment{500, Cyan}, Segment{500, Off})
}

func doubleBlink(c Color) Timeline {
	return NewTimeline(Segment{50, c}, Segment{50, Off}, Segment{50, c}, Segment{850, Off})
}

func ClientTimeline() Timeline { return doubleBlink(Color{W: 100}) }
func MasterTimeline() Timeline { return doubleBlink(Color{G: 100}) }

// Meditation parameters: one hue rotation per cycle, white topping the
// mix up to a constant perceived level.
const (
	MeditationCycle = 800
	MeditationTotal = 160
)

func MeditationTimeline() Timeline { return Wave(MeditationCycle, Meditation) }

// Meditation is the rotating rainbow shown while hosting with no peers.
func Meditation(t uint32) Color {
	r := wave(t, 0)
	g := wave(t, 1.0/3)
	b := wave(t, 2.0/3)
	mean := (int(r) + int(g) + int(b)) / 3
	w := MeditationTotal - mean
	if w < 0 {
		w = 0
	}
	return Color{R: r, G: g, B: b, W: uint8(w)}
}

func wave(t uint32, phase float64) uint8 {
	x := 2 * math.Pi * (float64(t)/MeditationCycle + phase)
	v := 127.5 + 127.5*math.Sin(x)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
