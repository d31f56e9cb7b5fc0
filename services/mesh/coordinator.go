// Package mesh runs the unit's state machine: role negotiation, id
// assignment, rounds and the per-tick LED refresh.
package mesh

import (
	"context"
	"time"

	"ledswarm-go/bus"
	"ledswarm-go/protocol"
	"ledswarm-go/services/led"
	"ledswarm-go/types"

	"github.com/google/uuid"
)

type Config struct {
	TickInterval     time.Duration
	InitialIntensity float32
	JoltThreshold    float32

	// Addr is the unit's radio address, the same one the transport stamps.
	Addr protocol.Addr
	// ProbeInterval enables radio discovery: while hosting with no peers
	// the unit broadcasts a JoinRequest this often. Zero disables it.
	ProbeInterval time.Duration
}

// Sensors is the live sensor state as seen by the game logic.
type Sensors struct {
	AccelerometerJolt float32
}

// inbound is one frame taken from an input queue. from and to are set for
// radio frames only.
type inbound struct {
	f        protocol.Frame
	src      source
	from, to protocol.Addr
}

// source tells handlers where a frame came from.
type source uint8

const (
	fromRadio source = iota
	fromIngress
	fromSensor
)

func (s source) String() string {
	switch s {
	case fromRadio:
		return "radio"
	case fromIngress:
		return "ingress"
	}
	return "sensor"
}

// Coordinator owns the mode, the sensors and the peer table. All of its
// methods must be called from the goroutine running Run (or Step).
type Coordinator struct {
	cfg   Config
	conn  *bus.Connection
	out   Outbox
	strip *led.Strip
	leds  *led.Engine[Mode]

	mode         Mode
	sensors      Sensors
	peers        arena[[]RemoteController]
	masterRounds arena[GameState]
	clientRounds arena[ClientGameState]
	tick         uint32
	clock        uint32 // animation time, wraps at led.ClockWrap

	// Join handshake. joinPending is set while our JoinRequest is out;
	// the probe fields drive radio discovery while hosting.
	joinPending bool
	probeTicks  uint32
	sinceProbe  uint32
	lowestPrev  protocol.Addr
	lowestCur   protocol.Addr

	netSub *bus.Subscription
	inbox  [3]*bus.Subscription // radio, ingress, sensor
	next   int

	published types.MeshState
	hasState  bool
	ledFailed bool

	newUniqueID func() string
}

// NewCoordinator subscribes to the inbound queues immediately so nothing
// published before Run is lost.
func NewCoordinator(cfg Config, conn *bus.Connection, out Outbox, strip *led.Strip) *Coordinator {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Millisecond
	}
	if cfg.Addr == protocol.Broadcast {
		cfg.Addr = protocol.NewAddr()
	}
	if strip == nil {
		strip = led.NewStrip(&led.Recorder{}, cfg.InitialIntensity)
	} else {
		strip.SetIntensity(cfg.InitialIntensity)
	}
	c := &Coordinator{
		cfg:         cfg,
		conn:        conn,
		out:         out,
		strip:       strip,
		leds:        led.NewEngine(Animation, led.NewIndicator(cfg.JoltThreshold)),
		mode:        Mode{Kind: Discovery},
		newUniqueID: uuid.NewString,
		lowestPrev:  noProbe,
		lowestCur:   noProbe,
	}
	if cfg.ProbeInterval > 0 {
		c.probeTicks = uint32(cfg.ProbeInterval / cfg.TickInterval)
		if c.probeTicks == 0 {
			c.probeTicks = 1
		}
	}
	c.netSub = conn.Subscribe(types.TopicNetEvent)
	c.inbox[fromRadio] = conn.Subscribe(types.TopicRadioRx)
	c.inbox[fromIngress] = conn.Subscribe(types.TopicIngress)
	c.inbox[fromSensor] = conn.Subscribe(types.TopicSensorJolt)
	return c
}

// Run ticks until ctx ends.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.conn.Disconnect()
	c.publishState()

	t := time.NewTicker(c.cfg.TickInterval)
	defer t.Stop()
	for {
		c.Step()
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Step is one tick: at most one network event, at most one frame, one LED
// refresh. It never blocks.
func (c *Coordinator) Step() {
	changed := false
	if m, ok := c.netSub.TryNext(); ok {
		if ev, ok := m.Payload.(types.NetworkEvent); ok {
			c.handleNetworkEvent(ev)
			changed = true
		}
	}
	if in, ok := c.nextFrame(); ok {
		c.handleFrame(in)
		changed = true
	}
	c.probe()
	if changed {
		c.publishState()
	}
	c.render()
	c.tick++
	c.clock++
	if c.clock == led.ClockWrap {
		c.clock = 0
	}
}

// nextFrame takes one frame, rotating the starting queue so a busy source
// cannot starve the others. Radio frames arrive as packets.
func (c *Coordinator) nextFrame() (inbound, bool) {
	for i := 0; i < len(c.inbox); i++ {
		idx := (c.next + i) % len(c.inbox)
		m, ok := c.inbox[idx].TryNext()
		if !ok {
			continue
		}
		c.next = (idx + 1) % len(c.inbox)
		in := inbound{src: source(idx)}
		switch p := m.Payload.(type) {
		case protocol.Packet:
			in.f, in.from, in.to = p.Frame, p.From, p.To
		case protocol.Frame:
			in.f = p
		default:
			println("[mesh] dropped non-frame payload on", m.Topic.String())
			return inbound{}, false
		}
		return in, true
	}
	return inbound{}, false
}

func (c *Coordinator) render() {
	col := c.leds.Color(c.mode, c.clock, c.sensors.AccelerometerJolt)
	if err := c.strip.Show(col); err != nil && !c.ledFailed {
		c.ledFailed = true
		println("[mesh] led write failed:", err.Error())
	}
}

// setMode switches mode and frees arena slots the new mode no longer uses.
func (c *Coordinator) setMode(next Mode) {
	prev := c.mode
	if prev.Peers != NoHandle && prev.Peers != next.Peers {
		c.peers.release(prev.Peers)
	}
	if prev.Round != NoHandle && (prev.Round != next.Round || prev.Kind != next.Kind) {
		switch prev.Kind {
		case Master:
			c.masterRounds.release(prev.Round)
		case Client:
			c.clientRounds.release(prev.Round)
		}
	}
	c.mode = next
	if prev.Kind != next.Kind {
		c.joinPending = false
		c.sinceProbe = 0
		c.lowestPrev, c.lowestCur = noProbe, noProbe
		println("[mesh] mode", prev.String(), "->", next.String())
	}
}

// send broadcasts f.
func (c *Coordinator) send(f protocol.Frame) { c.sendTo(protocol.Broadcast, f) }

func (c *Coordinator) sendTo(to protocol.Addr, f protocol.Frame) {
	if c.out == nil {
		return
	}
	if err := c.out.Send(protocol.Packet{To: to, Frame: f}); err != nil {
		println("[mesh] send", f.String(), "to", to.String(), "failed:", err.Error())
	}
}

// State summarises the coordinator for other services.
func (c *Coordinator) State() types.MeshState {
	s := types.MeshState{
		Mode:      c.mode.String(),
		Intensity: c.strip.Intensity(),
		Tick:      c.tick,
	}
	switch c.mode.Kind {
	case Client:
		s.ID = c.mode.ID
		if r := c.clientRounds.get(c.mode.Round); r != nil {
			s.Round = r.Game.String()
			s.Active = r.IsActive
		}
	case Master:
		s.NextID = c.mode.IDCounter
		if p := c.peers.get(c.mode.Peers); p != nil {
			s.Peers = len(*p)
		}
		if r := c.masterRounds.get(c.mode.Round); r != nil {
			s.Round = r.Game.String()
			s.Active = !c.leds.Indicator().Eliminated()
		}
	case Game:
		s.Round = c.mode.Game.String()
		s.Active = !c.leds.Indicator().Eliminated()
	}
	return s
}

// publishState publishes mesh/state (retained) when it changed.
func (c *Coordinator) publishState() {
	s := c.State()
	cmp := s
	cmp.Tick = c.published.Tick
	if c.hasState && cmp == c.published {
		return
	}
	c.published = s
	c.hasState = true
	c.conn.Publish(c.conn.NewMessage(types.TopicMeshState, s, true))
}

// ---- Accessors for the owning goroutine (tests, simulator) ----

func (c *Coordinator) Mode() Mode         { return c.mode }
func (c *Coordinator) Sensors() Sensors   { return c.sensors }
func (c *Coordinator) Tick() uint32       { return c.tick }
func (c *Coordinator) Intensity() float32 { return c.strip.Intensity() }
func (c *Coordinator) Eliminated() bool   { return c.leds.Indicator().Eliminated() }

// Addr is the unit's radio address.
func (c *Coordinator) Addr() protocol.Addr { return c.cfg.Addr }

// Peers returns a copy of the master's peer list.
func (c *Coordinator) Peers() []RemoteController {
	p := c.peers.get(c.mode.Peers)
	if p == nil {
		return nil
	}
	return append([]RemoteController(nil), (*p)...)
}

// MasterRound returns the master's round state, if a round is running.
func (c *Coordinator) MasterRound() (GameState, bool) {
	if c.mode.Kind != Master {
		return GameState{}, false
	}
	r := c.masterRounds.get(c.mode.Round)
	if r == nil {
		return GameState{}, false
	}
	return *r, true
}

// ClientRound returns the client's round state, if a round is running.
func (c *Coordinator) ClientRound() (ClientGameState, bool) {
	if c.mode.Kind != Client {
		return ClientGameState{}, false
	}
	r := c.clientRounds.get(c.mode.Round)
	if r == nil {
		return ClientGameState{}, false
	}
	return *r, true
}
