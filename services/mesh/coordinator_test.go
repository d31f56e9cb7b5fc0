package mesh

import (
	"context"
	"testing"
	"time"

	"ledswarm-go/bus"
	"ledswarm-go/protocol"
	"ledswarm-go/services/led"
	"ledswarm-go/types"
)

type recOutbox struct {
	sent []protocol.Frame
	to   []protocol.Addr
}

func (o *recOutbox) Send(p protocol.Packet) error {
	o.sent = append(o.sent, p.Frame)
	o.to = append(o.to, p.To)
	return nil
}

func (o *recOutbox) reset() { o.sent, o.to = nil, nil }

const (
	selfAddr protocol.Addr = 50
	peerAddr protocol.Addr = 7
)

type harness struct {
	t    *testing.T
	c    *Coordinator
	peer *bus.Connection
	out  *recOutbox
	leds *led.Recorder
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, Config{InitialIntensity: 1, JoltThreshold: 0.2, Addr: selfAddr})
}

func newHarnessWith(t *testing.T, cfg Config) *harness {
	t.Helper()
	b := bus.NewBus(32)
	out := &recOutbox{}
	rec := &led.Recorder{}
	c := NewCoordinator(cfg, b.NewConnection("mesh"), out, led.NewStrip(rec, 1))
	n := 0
	c.newUniqueID = func() string {
		n++
		return "unit-" + string(rune('a'+n-1))
	}
	return &harness{t: t, c: c, peer: b.NewConnection("test"), out: out, leds: rec}
}

func (h *harness) net(kind types.NetEventKind, id uint32) {
	h.peer.Publish(h.peer.NewMessage(types.TopicNetEvent, types.NetworkEvent{Kind: kind, ClientID: id}, false))
	h.c.Step()
}

// radio delivers a broadcast frame from the default peer.
func (h *harness) radio(f protocol.Frame) {
	h.packet(protocol.Packet{From: peerAddr, To: protocol.Broadcast, Frame: f})
}

func (h *harness) radioFrom(from protocol.Addr, f protocol.Frame) {
	h.packet(protocol.Packet{From: from, To: protocol.Broadcast, Frame: f})
}

func (h *harness) packet(p protocol.Packet) {
	h.peer.Publish(h.peer.NewMessage(types.TopicRadioRx, p, false))
	h.c.Step()
}

func (h *harness) ingress(f protocol.Frame) {
	h.peer.Publish(h.peer.NewMessage(types.TopicIngress, f, false))
	h.c.Step()
}

func (h *harness) jolt(v float32) {
	h.peer.Publish(h.peer.NewMessage(types.TopicSensorJolt, protocol.AccelerometerJoltDelta(v), false))
	h.c.Step()
}

func (h *harness) wantKind(k Kind) {
	h.t.Helper()
	if h.c.Mode().Kind != k {
		h.t.Fatalf("mode = %s, want %s", h.c.Mode(), k)
	}
}

func (h *harness) toMaster(joiners int) {
	h.net(types.NoMesh, 0)
	h.wantKind(ServerMeditation)
	for i := 0; i < joiners; i++ {
		h.radioFrom(protocol.Addr(101+i), protocol.JoinRequest())
	}
	h.out.reset()
}

func (h *harness) toClient(id uint32) {
	h.net(types.MeshFound, 0)
	h.net(types.Joined, 0)
	h.packet(protocol.Packet{From: peerAddr, To: selfAddr, Frame: protocol.JoinResponse(id)})
	h.wantKind(Client)
	h.out.reset()
}

func TestNetworkEvents(t *testing.T) {
	h := newHarness(t)
	h.wantKind(Discovery)

	h.net(types.MeshFound, 0)
	h.wantKind(Connecting)

	h.net(types.Joined, 0)
	h.wantKind(Connecting)
	if len(h.out.sent) != 1 || h.out.sent[0] != protocol.JoinRequest() {
		t.Fatalf("joined should send exactly one JoinRequest, sent %v", h.out.sent)
	}

	h.net(types.NoMesh, 0)
	h.wantKind(ServerMeditation)

	h.net(types.AssignedClient, 1)
	h.wantKind(Client)
	if h.c.Mode().ID != 1 {
		t.Fatalf("client id = %d", h.c.Mode().ID)
	}

	h.net(types.MeshFound, 0)
	h.wantKind(Client)
}

func TestJoinProtocol(t *testing.T) {
	h := newHarness(t)
	h.net(types.NoMesh, 0)

	h.radioFrom(101, protocol.JoinRequest())
	h.wantKind(Master)
	peers := h.c.Peers()
	if len(peers) != 1 || peers[0].ID != 1 || peers[0].Addr != 101 || h.c.Mode().IDCounter != 2 {
		t.Fatalf("after first join: peers %v counter %d", peers, h.c.Mode().IDCounter)
	}
	if peers[0].UniqueID == "" {
		t.Fatal("peer must carry a unique id")
	}

	h.radioFrom(102, protocol.JoinRequest())
	peers = h.c.Peers()
	if len(peers) != 2 || peers[1].ID != 2 || h.c.Mode().IDCounter != 3 {
		t.Fatalf("after second join: peers %v counter %d", peers, h.c.Mode().IDCounter)
	}
	if peers[0].UniqueID == peers[1].UniqueID {
		t.Fatal("unique ids collide")
	}

	want := []protocol.Frame{protocol.JoinResponse(1), protocol.JoinResponse(2)}
	if len(h.out.sent) != 2 || h.out.sent[0] != want[0] || h.out.sent[1] != want[1] {
		t.Fatalf("responses %v, want %v", h.out.sent, want)
	}
	if h.out.to[0] != 101 || h.out.to[1] != 102 {
		t.Fatalf("responses must go to the requester, sent to %v", h.out.to)
	}
}

func TestRepeatedJoinRequestKeepsID(t *testing.T) {
	h := newHarness(t)
	h.toMaster(2)

	h.radioFrom(101, protocol.JoinRequest())
	if len(h.c.Peers()) != 2 || h.c.Mode().IDCounter != 3 {
		t.Fatalf("repeat request allocated an id: peers %v", h.c.Peers())
	}
	if len(h.out.sent) != 1 || h.out.sent[0] != protocol.JoinResponse(1) || h.out.to[0] != 101 {
		t.Fatalf("expected the first id again, sent %v to %v", h.out.sent, h.out.to)
	}
}

func TestJoinResponse(t *testing.T) {
	h := newHarness(t)
	toUs := func(id uint32) {
		h.packet(protocol.Packet{From: peerAddr, To: selfAddr, Frame: protocol.JoinResponse(id)})
	}
	h.net(types.MeshFound, 0)

	// No request out yet.
	toUs(4)
	h.wantKind(Connecting)

	h.net(types.Joined, 0)
	toUs(0)
	h.wantKind(Connecting)

	// Responses for other joiners, or broadcast, are not ours.
	h.packet(protocol.Packet{From: peerAddr, To: 99, Frame: protocol.JoinResponse(4)})
	h.radio(protocol.JoinResponse(4))
	h.wantKind(Connecting)

	toUs(4)
	h.wantKind(Client)
	if h.c.Mode().ID != 4 {
		t.Fatalf("id = %d", h.c.Mode().ID)
	}
	if _, ok := h.c.ClientRound(); ok {
		t.Fatal("new client has no round")
	}

	toUs(5)
	if h.c.Mode().ID != 4 {
		t.Fatal("client id must not change")
	}
}

func TestBrightnessPropagation(t *testing.T) {
	m := newHarness(t)
	m.toMaster(1)
	m.ingress(protocol.SetBrightness(0.7))
	if m.c.Intensity() != 0.7 {
		t.Fatalf("master intensity %v", m.c.Intensity())
	}
	if len(m.out.sent) != 1 || m.out.sent[0] != protocol.SetBrightness(0.7) {
		t.Fatalf("master should rebroadcast once, sent %v", m.out.sent)
	}

	c := newHarness(t)
	c.toClient(1)
	c.radio(protocol.SetBrightness(0.7))
	if c.c.Intensity() != 0.7 {
		t.Fatalf("client intensity %v", c.c.Intensity())
	}
	if len(c.out.sent) != 0 {
		t.Fatalf("client must not transmit, sent %v", c.out.sent)
	}
}

func TestBrightnessClamped(t *testing.T) {
	h := newHarness(t)
	h.toMaster(1)
	h.ingress(protocol.SetBrightness(1.8))
	if h.c.Intensity() != 1 {
		t.Fatalf("intensity %v", h.c.Intensity())
	}
	h.ingress(protocol.SetBrightness(-2))
	if h.c.Intensity() != 0 {
		t.Fatalf("intensity %v", h.c.Intensity())
	}
	if len(h.out.sent) != 2 || h.out.sent[0] != protocol.SetBrightness(1) || h.out.sent[1] != protocol.SetBrightness(0) {
		t.Fatalf("clamped values should be rebroadcast, sent %v", h.out.sent)
	}
}

func TestMasterStartRound(t *testing.T) {
	h := newHarness(t)
	h.toMaster(3)
	h.ingress(protocol.StartRound(protocol.LastOneStanding))

	r, ok := h.c.MasterRound()
	if !ok {
		t.Fatal("master should be in a round")
	}
	if len(r.Active) != 3 || r.Active[0] != 1 || r.Active[2] != 3 || len(r.Exited) != 0 {
		t.Fatalf("round %+v", r)
	}
	if len(h.out.sent) != 1 || h.out.sent[0] != protocol.StartRound(protocol.LastOneStanding) {
		t.Fatalf("StartRound broadcast missing: %v", h.out.sent)
	}

	// A joiner mid-round keeps the round untouched.
	h.radioFrom(104, protocol.JoinRequest())
	r, _ = h.c.MasterRound()
	if len(r.Active) != 3 || h.c.Mode().IDCounter != 5 {
		t.Fatalf("late join changed round %+v", r)
	}

	// Restart frees the previous round.
	h.ingress(protocol.StartRound(protocol.LastOneStanding))
	if h.c.masterRounds.live() != 1 {
		t.Fatalf("stale rounds kept: %d", h.c.masterRounds.live())
	}
	r, _ = h.c.MasterRound()
	if len(r.Active) != 4 {
		t.Fatalf("restart should include every peer, got %+v", r)
	}
}

func TestClientRoundAndElimination(t *testing.T) {
	h := newHarness(t)
	h.toClient(2)

	h.radio(protocol.StartRound(protocol.LastOneStanding))
	r, ok := h.c.ClientRound()
	if !ok || !r.IsActive {
		t.Fatalf("round %+v ok=%v", r, ok)
	}
	if h.leds.Last() != (led.Color{G: 255}) {
		t.Fatalf("round starts green, got %+v", h.leds.Last())
	}

	h.jolt(0.1)
	if c := h.leds.Last(); c.R == 0 || c.G == 0 {
		t.Fatalf("half jolt should blend, got %+v", c)
	}

	h.jolt(0.25)
	r, _ = h.c.ClientRound()
	if r.IsActive || !h.c.Eliminated() {
		t.Fatal("crossing the threshold eliminates the player")
	}
	h.jolt(0)
	if h.leds.Last() != led.Red {
		t.Fatalf("elimination latches red, got %+v", h.leds.Last())
	}

	// Next round resets the latch.
	h.radio(protocol.StartRound(protocol.LastOneStanding))
	r, _ = h.c.ClientRound()
	if !r.IsActive || h.c.Eliminated() {
		t.Fatal("new round must clear the latch")
	}
	if h.c.clientRounds.live() != 1 {
		t.Fatalf("stale client rounds kept: %d", h.c.clientRounds.live())
	}
}

func TestRoundStartWithLingeringJolt(t *testing.T) {
	h := newHarness(t)
	h.toClient(3)
	h.jolt(0.4)

	h.radio(protocol.StartRound(protocol.LastOneStanding))
	r, ok := h.c.ClientRound()
	if !ok || r.IsActive || !h.c.Eliminated() {
		t.Fatalf("shaking at round start eliminates at once: %+v eliminated=%v", r, h.c.Eliminated())
	}
	if h.leds.Last() != led.Red {
		t.Fatalf("got %+v", h.leds.Last())
	}
}

func TestStandaloneRound(t *testing.T) {
	h := newHarness(t)
	h.net(types.NoMesh, 0)
	h.ingress(protocol.StartRound(protocol.LastOneStanding))
	h.wantKind(Game)
	if h.c.Mode().Game != protocol.LastOneStanding {
		t.Fatalf("game = %v", h.c.Mode().Game)
	}
	h.jolt(0.5)
	if h.leds.Last() != led.Red {
		t.Fatalf("standalone elimination should show red, got %+v", h.leds.Last())
	}
}

func TestOutOfContextFramesIgnored(t *testing.T) {
	h := newHarness(t)
	h.radio(protocol.StartRound(protocol.LastOneStanding))
	h.wantKind(Discovery)

	h.radio(protocol.JoinRequest())
	h.wantKind(Discovery)

	h.ingress(protocol.JoinResponse(3))
	h.wantKind(Discovery)

	h.radio(protocol.AccelerometerJoltDelta(5))
	if h.c.Sensors().AccelerometerJolt != 0 {
		t.Fatal("radio cannot inject sensor data")
	}

	h.toClient(1)
	h.ingress(protocol.StartRound(protocol.LastOneStanding))
	if _, ok := h.c.ClientRound(); ok {
		t.Fatal("clients do not start rounds locally")
	}
	if len(h.out.sent) != 0 {
		t.Fatalf("nothing should be sent, got %v", h.out.sent)
	}
}

func TestOneFramePerTick(t *testing.T) {
	h := newHarness(t)
	h.toMaster(0)
	for i := 0; i < 3; i++ {
		p := protocol.Packet{From: protocol.Addr(200 + i), Frame: protocol.JoinRequest()}
		h.peer.Publish(h.peer.NewMessage(types.TopicRadioRx, p, false))
	}
	h.c.Step()
	if n := len(h.c.Peers()); n != 1 {
		t.Fatalf("one tick handled %d frames", n)
	}
	h.c.Step()
	h.c.Step()
	if n := len(h.c.Peers()); n != 3 {
		t.Fatalf("three ticks handled %d frames", n)
	}
}

func TestQueuesServedInTurn(t *testing.T) {
	h := newHarness(t)
	h.toMaster(1)
	for i := 0; i < 4; i++ {
		p := protocol.Packet{From: protocol.Addr(200 + i), Frame: protocol.JoinRequest()}
		h.peer.Publish(h.peer.NewMessage(types.TopicRadioRx, p, false))
	}
	h.peer.Publish(h.peer.NewMessage(types.TopicIngress, protocol.SetBrightness(0.4), false))
	h.c.Step()
	h.c.Step()
	if h.c.Intensity() != 0.4 {
		t.Fatal("ingress starved by radio traffic")
	}
}

func TestMeshStatePublished(t *testing.T) {
	h := newHarness(t)
	sub := h.peer.Subscribe(types.TopicMeshState)
	h.toMaster(2)

	var last types.MeshState
	for {
		m, ok := sub.TryNext()
		if !ok {
			break
		}
		if !m.Retained {
			t.Fatal("mesh/state is retained")
		}
		last = m.Payload.(types.MeshState)
	}
	if last.Mode != "Master" || last.Peers != 2 || last.NextID != 3 {
		t.Fatalf("state %+v", last)
	}
}

func TestTickAndLEDRefresh(t *testing.T) {
	h := newHarness(t)
	h.c.Step()
	if h.leds.Last() != led.Cyan {
		t.Fatalf("discovery starts cyan, got %+v", h.leds.Last())
	}
	for h.c.Tick() < 1001 {
		h.c.Step()
	}
	if h.leds.Last() != led.Off {
		t.Fatalf("discovery dark phase, got %+v", h.leds.Last())
	}
	if h.c.leds.Builds() != 1 {
		t.Fatalf("animation rebuilt %d times without a mode change", h.c.leds.Builds())
	}
}

func TestRunStops(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.c.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestBusOutboxRefusesInternal(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("x")
	sub := conn.Subscribe(types.TopicRadioTx)
	o := BusOutbox{Conn: conn}
	if err := o.Send(protocol.Packet{Frame: protocol.AccelerometerJoltDelta(1)}); err == nil {
		t.Fatal("internal frames are not transmitted")
	}
	want := protocol.Packet{To: 9, Frame: protocol.JoinResponse(2)}
	if err := o.Send(want); err != nil {
		t.Fatal(err)
	}
	m, ok := sub.TryNext()
	if !ok || m.Payload.(protocol.Packet) != want {
		t.Fatal("packet not queued on radio/tx")
	}
}

// relay carries what one harness sent to another, as the radio would.
func relay(from, to *harness) {
	for i, f := range from.out.sent {
		p := protocol.Packet{From: from.c.Addr(), To: from.out.to[i], Frame: f}
		if p.To == protocol.Broadcast || p.To == to.c.Addr() {
			to.peer.Publish(to.peer.NewMessage(types.TopicRadioRx, p, false))
		}
	}
	from.out.reset()
}

func probing(t *testing.T, addr protocol.Addr) *harness {
	return newHarnessWith(t, Config{
		InitialIntensity: 1,
		JoltThreshold:    0.2,
		Addr:             addr,
		TickInterval:     time.Millisecond,
		ProbeInterval:    5 * time.Millisecond,
	})
}

func TestRadioDiscoveryElectsLowestAddress(t *testing.T) {
	lo, hi := probing(t, 10), probing(t, 20)
	lo.net(types.NoMesh, 0)
	hi.net(types.NoMesh, 0)

	for i := 0; i < 40; i++ {
		lo.c.Step()
		hi.c.Step()
		relay(lo, hi)
		relay(hi, lo)
	}

	lo.wantKind(Master)
	hi.wantKind(Client)
	if hi.c.Mode().ID != 1 {
		t.Fatalf("client id = %d", hi.c.Mode().ID)
	}
	peers := lo.c.Peers()
	if len(peers) != 1 || peers[0].Addr != 20 || peers[0].ID != 1 {
		t.Fatalf("peers %v", peers)
	}
}

func TestRadioDiscoveryProbesOnlyWhileHosting(t *testing.T) {
	h := probing(t, 10)
	h.net(types.NoMesh, 0)

	// Before our first probe nobody is admitted.
	h.radioFrom(20, protocol.JoinRequest())
	h.wantKind(ServerMeditation)

	for i := 0; i < 5; i++ {
		h.c.Step()
	}
	if len(h.out.sent) == 0 || h.out.sent[0] != protocol.JoinRequest() || h.out.to[0] != protocol.Broadcast {
		t.Fatalf("expected a broadcast probe, sent %v", h.out.sent)
	}

	// A lower address heard recently takes the lead.
	h.radioFrom(3, protocol.JoinRequest())
	h.radioFrom(20, protocol.JoinRequest())
	h.wantKind(ServerMeditation)

	// The lower host admits us.
	h.packet(protocol.Packet{From: 3, To: 10, Frame: protocol.JoinResponse(2)})
	h.wantKind(Client)
	h.out.reset()
	for i := 0; i < 20; i++ {
		h.c.Step()
	}
	if len(h.out.sent) != 0 {
		t.Fatalf("clients do not probe, sent %v", h.out.sent)
	}
}

func TestAnimationClockWraps(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < led.ClockWrap; i++ {
		h.c.Step()
	}
	if h.c.clock != 0 || h.c.Tick() != led.ClockWrap {
		t.Fatalf("clock %d tick %d", h.c.clock, h.c.Tick())
	}
	h.c.Step()
	if h.leds.Last() != led.Cyan {
		t.Fatalf("discovery restarts its cycle after the wrap, got %+v", h.leds.Last())
	}
}
