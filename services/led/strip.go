package led

import (
	"sync"

	"ledswarm-go/errcode"
	"ledswarm-go/x/mathx"
)

// Driver writes one colour to every pixel of the ring.
type Driver interface {
	Write(c Color) error
}

// Strip applies the global intensity in front of a Driver and suppresses
// writes that would not change the output.
type Strip struct {
	drv       Driver
	intensity float32
	last      Color
	shown     bool
}

func NewStrip(drv Driver, intensity float32) *Strip {
	return &Strip{drv: drv, intensity: mathx.Clamp01(intensity)}
}

// SetIntensity clamps v to [0,1] (NaN is 0) and returns the applied value.
func (s *Strip) SetIntensity(v float32) float32 {
	s.intensity = mathx.Clamp01(v)
	return s.intensity
}

func (s *Strip) Intensity() float32 { return s.intensity }

// Scale applies intensity to every channel, truncating.
func Scale(c Color, intensity float32) Color {
	k := mathx.Clamp01(intensity)
	return Color{
		R: uint8(float32(c.R) * k),
		G: uint8(float32(c.G) * k),
		B: uint8(float32(c.B) * k),
		W: uint8(float32(c.W) * k),
	}
}

// Show scales c and writes it if it differs from the last output.
func (s *Strip) Show(c Color) error {
	out := Scale(c, s.intensity)
	if s.shown && out == s.last {
		return nil
	}
	if err := s.drv.Write(out); err != nil {
		return err
	}
	s.last = out
	s.shown = true
	return nil
}

// Recorder is a Driver for host runs and tests; it keeps the latest colour
// and a count of writes.
type Recorder struct {
	mu     sync.Mutex
	last   Color
	writes int
	fail   error
}

func (r *Recorder) Write(c Color) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.last = c
	r.writes++
	return nil
}

func (r *Recorder) Last() Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Recorder) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// Fail makes following writes return an led_init error.
func (r *Recorder) Fail() {
	r.mu.Lock()
	r.fail = errcode.LEDInit
	r.mu.Unlock()
}
