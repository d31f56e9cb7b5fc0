// Package platform assembles one unit: the bus, its tasks and the hardware
// they drive.
package platform

import (
	"context"

	"ledswarm-go/bus"
	"ledswarm-go/errcode"
	"ledswarm-go/protocol"
	"ledswarm-go/services/config"
	"ledswarm-go/services/heartbeat"
	"ledswarm-go/services/led"
	"ledswarm-go/services/mesh"
	"ledswarm-go/services/network"
	"ledswarm-go/services/radio"
	"ledswarm-go/services/sensor"
	"ledswarm-go/types"
)

// Hardware is what a board provides to a unit.
type Hardware struct {
	Accel sensor.Accelerometer
	LEDs  led.Driver
	Link  radio.Link
	WiFi  network.WiFi
}

// Task is a long-running unit component.
type Task interface {
	Run(ctx context.Context) error
}

type Unit struct {
	Name   string
	Config config.Config
	Bus    *bus.Bus

	Coordinator *mesh.Coordinator
	Sampler     *sensor.Sampler
	Transport   *radio.Transport
	Negotiator  *network.Negotiator
	Heartbeat   *heartbeat.Service

	// Extra tasks (HTTP ingress on host builds).
	Extra map[string]Task

	cfgConn *bus.Connection
}

// NewUnit wires the tasks of one unit over a fresh bus.
func NewUnit(name string, cfg config.Config, hw Hardware) *Unit {
	b := bus.NewBus(cfg.Bus.QueueLen)
	meshConn := b.NewConnection(name + "/mesh")
	addr := protocol.NewAddr()
	u := &Unit{
		Name:   name,
		Config: cfg,
		Bus:    b,
		Coordinator: mesh.NewCoordinator(mesh.Config{
			TickInterval:     cfg.Mesh.TickInterval,
			InitialIntensity: cfg.LED.InitialIntensity,
			JoltThreshold:    cfg.Game.JoltThreshold,
			Addr:             addr,
			ProbeInterval:    cfg.Mesh.ProbeInterval,
		}, meshConn, mesh.BusOutbox{Conn: meshConn}, led.NewStrip(hw.LEDs, cfg.LED.InitialIntensity)),
		Sampler: sensor.NewSampler(sensor.Config{
			Interval:       cfg.Sensor.SampleInterval,
			NoiseThreshold: cfg.Sensor.NoiseThreshold,
		}, hw.Accel, b.NewConnection(name+"/sensor")),
		Transport: radio.NewTransport(radio.Config{
			Addr:           addr,
			SendTimeout:    cfg.Radio.SendTimeout,
			ReceiveTimeout: cfg.Radio.ReceiveTimeout,
			Idle:           cfg.Radio.Idle,
		}, hw.Link, b.NewConnection(name+"/radio")),
		Negotiator: network.NewNegotiator(network.Config{
			SSID:        cfg.Mesh.SSID,
			Password:    cfg.Mesh.Password,
			JoinTimeout: cfg.Mesh.JoinTimeout,
			Simplified:  cfg.Mesh.Simplified,
		}, hw.WiFi, b.NewConnection(name+"/net")),
		Heartbeat: &heartbeat.Service{Interval: cfg.Heartbeat.Interval},
		Extra:     map[string]Task{},
		cfgConn:   b.NewConnection(name + "/config"),
	}
	config.Publish(u.cfgConn, cfg)
	return u
}

type exit struct {
	task string
	err  error
}

// Run starts every task and blocks until ctx is done or a task fails with a
// fatal error, which is returned. Other task errors are logged.
func (u *Unit) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exits := make(chan exit, 4+len(u.Extra))
	spawn := func(name string, run func(context.Context) error) {
		go func() { exits <- exit{name, run(ctx)} }()
	}
	spawn("sensor", u.Sampler.Run)
	spawn("radio", u.Transport.Run)
	spawn("net", u.Negotiator.Run)
	for name, t := range u.Extra {
		spawn(name, t.Run)
	}
	_ = u.Heartbeat.Start(ctx, u.Bus.NewConnection(u.Name+"/heartbeat"))
	spawn("mesh", u.Coordinator.Run)

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-exits:
			if e.err == nil {
				continue
			}
			if errcode.Fatal(errcode.Of(e.err)) {
				return e.err
			}
			println("[" + e.task + "] stopped: " + e.err.Error())
		}
	}
}

// State returns the retained mesh state of the unit, if published yet.
func (u *Unit) State() (types.MeshState, bool) {
	sub := u.cfgConn.Subscribe(types.TopicMeshState)
	defer u.cfgConn.Unsubscribe(sub)
	m, ok := sub.TryNext()
	if !ok {
		return types.MeshState{}, false
	}
	st, ok := m.Payload.(types.MeshState)
	return st, ok
}

// Submit hands a client command to the unit as if it came from ingress.
func (u *Unit) Submit(f protocol.Frame) {
	u.cfgConn.Publish(u.cfgConn.NewMessage(types.TopicIngress, f, false))
}
