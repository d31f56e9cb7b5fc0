package sensor

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Simulated is an accelerometer for host runs. At rest it reports 1 g on Z;
// while shaken, alternate samples are scaled by (1+g) so the filter sees a
// steady jolt of about g.
type Simulated struct {
	mu    sync.Mutex
	shake float32
	flip  bool
	fail  error
}

func NewSimulated() *Simulated { return &Simulated{} }

func (s *Simulated) Shake(g float32) {
	s.mu.Lock()
	s.shake = g
	s.mu.Unlock()
}

func (s *Simulated) Still() { s.Shake(0) }

// Fail makes every following Read return err.
func (s *Simulated) Fail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *Simulated) Read() (mgl32.Vec3, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return mgl32.Vec3{}, s.fail
	}
	v := mgl32.Vec3{0, 0, 1}
	s.flip = !s.flip
	if s.flip && s.shake > 0 {
		v = v.Mul(1 + s.shake)
	}
	return v, nil
}
