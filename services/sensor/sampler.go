package sensor

import (
	"context"
	"time"

	"ledswarm-go/bus"
	"ledswarm-go/errcode"
	"ledswarm-go/protocol"
	"ledswarm-go/types"
	"ledswarm-go/x/timex"

	"github.com/go-gl/mathgl/mgl32"
)

// Accelerometer yields one acceleration sample in g.
type Accelerometer interface {
	Read() (mgl32.Vec3, error)
}

type Config struct {
	Interval       time.Duration
	NoiseThreshold float32
}

// Sampler owns the filter state. Only the gated scalar leaves this task.
type Sampler struct {
	cfg  Config
	acc  Accelerometer
	conn *bus.Connection

	avg     MovingAverage
	gate    JoltGate
	emitted uint32
}

func NewSampler(cfg Config, acc Accelerometer, conn *bus.Connection) *Sampler {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Millisecond
	}
	if cfg.NoiseThreshold <= 0 {
		cfg.NoiseThreshold = DefaultNoiseThreshold
	}
	return &Sampler{
		cfg:  cfg,
		acc:  acc,
		conn: conn,
		gate: JoltGate{Threshold: cfg.NoiseThreshold},
	}
}

// Step reads one sample and publishes a jolt frame if the gate opens.
func (s *Sampler) Step() error {
	v, err := s.acc.Read()
	if err != nil {
		if errcode.Of(err) == errcode.SensorFault {
			return err
		}
		return errcode.Wrap(errcode.SensorFault, "sample", err)
	}
	s.avg.Add(v)
	avg := s.avg.Average()
	if !s.gate.Offer(avg) {
		return nil
	}
	s.emitted++
	s.conn.Publish(s.conn.NewMessage(types.TopicSensorJolt, protocol.AccelerometerJoltDelta(avg), false))
	s.conn.Publish(s.conn.NewMessage(types.TopicSensorState, types.SensorState{
		Jolt:    avg,
		Emitted: s.emitted,
	}, true))
	return nil
}

// Run samples until ctx ends. A failed read ends the task with a
// sensor_fault error; the unit is not expected to carry on without data.
func (s *Sampler) Run(ctx context.Context) error {
	for {
		if err := s.Step(); err != nil {
			println("[sensor] read failed:", err.Error())
			return err
		}
		if !timex.Sleep(ctx, s.cfg.Interval) {
			return nil
		}
	}
}
