package led

// Animation is what one mode looks like: a timeline, or the elimination
// indicator while a round is being played.
type Animation struct {
	Timeline  Timeline
	Indicator bool
}

// Engine maps a mode value to its animation. The animation is rebuilt only
// when the mode changes (==), not every tick.
type Engine[M comparable] struct {
	describe func(M) Animation
	ind      *Indicator

	mode   M
	have   bool
	anim   Animation
	builds int
}

func NewEngine[M comparable](describe func(M) Animation, ind *Indicator) *Engine[M] {
	if ind == nil {
		ind = NewIndicator(DefaultThreshold)
	}
	return &Engine[M]{describe: describe, ind: ind}
}

// Color returns the colour for mode m at tick t given the live jolt.
func (e *Engine[M]) Color(m M, t uint32, jolt float32) Color {
	if !e.have || m != e.mode {
		e.anim = e.describe(m)
		e.mode = m
		e.have = true
		e.builds++
	}
	if e.anim.Indicator {
		return e.ind.Color(jolt)
	}
	return e.anim.Timeline.At(t)
}

func (e *Engine[M]) Indicator() *Indicator { return e.ind }

// Builds counts how many times an animation was (re)built.
func (e *Engine[M]) Builds() int { return e.builds }
