package led

import "ledswarm-go/x/mathx"

// DefaultThreshold is the jolt that eliminates a player.
const DefaultThreshold float32 = 0.2

// Indicator shows how close the player is to elimination: green at rest,
// blending to red as jolt approaches Threshold. Reaching Threshold once
// latches red until Reset.
type Indicator struct {
	Threshold float32
	stayRed   bool
}

func NewIndicator(threshold float32) *Indicator {
	if threshold <= 0 || threshold != threshold {
		threshold = DefaultThreshold
	}
	return &Indicator{Threshold: threshold}
}

// Observe updates the latch. It reports true only on the call that sets it.
func (i *Indicator) Observe(jolt float32) bool {
	if i.stayRed || jolt < i.Threshold {
		return false
	}
	i.stayRed = true
	return true
}

// Color observes jolt and returns the indicator colour.
func (i *Indicator) Color(jolt float32) Color {
	i.Observe(jolt)
	if i.stayRed {
		return Red
	}
	f := mathx.Clamp01(jolt / i.Threshold)
	return Color{R: mathx.LerpU8(0, 255, f), G: mathx.LerpU8(255, 0, f)}
}

func (i *Indicator) Eliminated() bool { return i.stayRed }

// Reset clears the latch at the start of a round.
func (i *Indicator) Reset() { i.stayRed = false }
