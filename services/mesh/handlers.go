package mesh

import (
	"ledswarm-go/protocol"
	"ledswarm-go/types"
	"ledswarm-go/x/mathx"
)

func (c *Coordinator) handleNetworkEvent(ev types.NetworkEvent) {
	k := c.mode.Kind
	switch ev.Kind {
	case types.MeshFound:
		if k == Discovery {
			c.setMode(Mode{Kind: Connecting})
			return
		}
	case types.Joined:
		if k == Connecting {
			// Admission is asked for once; a lost response leaves us here.
			c.joinPending = true
			c.send(protocol.JoinRequest())
			return
		}
	case types.NoMesh:
		if k == Discovery || k == Connecting {
			c.setMode(Mode{Kind: ServerMeditation})
			return
		}
	case types.AssignedClient:
		if k.preMesh() && ev.ClientID >= 1 {
			c.setMode(Mode{Kind: Client, ID: ev.ClientID})
			return
		}
	}
	println("[mesh] ignored net event", ev.Kind.String(), "in", c.mode.String())
}

func (c *Coordinator) handleFrame(in inbound) {
	f, src := in.f, in.src
	switch f.Kind.Class() {
	case protocol.ClassController:
		if src != fromRadio {
			break
		}
		if c.handleController(in) {
			return
		}
	case protocol.ClassClient:
		if c.handleClient(f, src) {
			return
		}
	case protocol.ClassInternal:
		if src != fromRadio && c.handleInternal(f) {
			return
		}
	}
	println("[mesh] ignored", f.String(), "from", src.String(), "in", c.mode.String())
}

// ---- Join handshake ----

// Responses go to the requester only, and a unit takes a response only
// while its own request is out, so two joiners never share an id.
func (c *Coordinator) handleController(in inbound) bool {
	f := in.f
	switch f.Kind {
	case protocol.KindJoinRequest:
		switch c.mode.Kind {
		case ServerMeditation:
			if !c.hosts(in.from) {
				return false
			}
			peers := c.peers.alloc([]RemoteController{{UniqueID: c.newUniqueID(), ID: 1, Addr: in.from}})
			c.setMode(Mode{Kind: Master, IDCounter: 2, Peers: peers})
			c.sendTo(in.from, protocol.JoinResponse(1))
			return true
		case Master:
			p := c.peers.get(c.mode.Peers)
			if in.from != protocol.Broadcast {
				for _, rc := range *p {
					if rc.Addr == in.from {
						// Repeated request: the response was lost.
						c.sendTo(in.from, protocol.JoinResponse(rc.ID))
						return true
					}
				}
			}
			id := c.mode.IDCounter
			*p = append(*p, RemoteController{UniqueID: c.newUniqueID(), ID: id, Addr: in.from})
			next := c.mode
			next.IDCounter = id + 1
			c.setMode(next)
			c.sendTo(in.from, protocol.JoinResponse(id))
			return true
		}
	case protocol.KindJoinResponse:
		if c.mode.Kind.preMesh() && c.joinPending && in.to == c.cfg.Addr && f.AssignedID >= 1 {
			c.setMode(Mode{Kind: Client, ID: f.AssignedID})
			return true
		}
	}
	return false
}

// ---- Radio discovery ----

const noProbe = ^protocol.Addr(0)

// probe broadcasts a JoinRequest every probe interval while hosting alone,
// for boards that find no mesh over Wi-Fi.
func (c *Coordinator) probe() {
	if c.probeTicks == 0 || c.mode.Kind != ServerMeditation {
		return
	}
	c.sinceProbe++
	if c.sinceProbe < c.probeTicks {
		return
	}
	c.sinceProbe = 0
	c.lowestPrev, c.lowestCur = c.lowestCur, noProbe
	c.joinPending = true
	c.send(protocol.JoinRequest())
}

// hosts reports whether a unit in ServerMeditation admits a requester.
// With discovery on, hosts hear each other's probes: the lowest address
// seen over the last two probe windows becomes master and the others wait
// for its response. A unit leads only after its own first probe.
func (c *Coordinator) hosts(from protocol.Addr) bool {
	if c.probeTicks == 0 {
		return true
	}
	if from != protocol.Broadcast && from < c.lowestCur {
		c.lowestCur = from
	}
	lowest := min(c.lowestPrev, c.lowestCur)
	return c.joinPending && (lowest == noProbe || c.cfg.Addr < lowest)
}

// ---- Client commands ----

func (c *Coordinator) handleClient(f protocol.Frame, src source) bool {
	switch f.Kind {
	case protocol.KindSetBrightness:
		v := c.strip.SetIntensity(f.Value)
		if c.mode.Kind == Master {
			c.send(protocol.SetBrightness(v))
		}
		return true
	case protocol.KindStartRound:
		return c.startRound(f.Game, src)
	}
	return false
}

func (c *Coordinator) startRound(g protocol.GameMode, src source) bool {
	switch c.mode.Kind {
	case Master:
		if src != fromIngress {
			return false
		}
		peers := c.peers.get(c.mode.Peers)
		active := make([]uint32, 0, len(*peers))
		for _, p := range *peers {
			active = append(active, p.ID)
		}
		next := c.mode
		next.Round = c.masterRounds.alloc(GameState{Game: g, Active: active})
		c.setMode(next)
		c.leds.Indicator().Reset()
		c.checkElimination()
		c.send(protocol.StartRound(g))
		return true
	case Client:
		if src != fromRadio {
			return false
		}
		next := c.mode
		next.Round = c.clientRounds.alloc(ClientGameState{Game: g, IsActive: true})
		c.setMode(next)
		c.leds.Indicator().Reset()
		c.checkElimination()
		return true
	case Discovery, ServerMeditation, Game:
		if src != fromIngress {
			return false
		}
		c.setMode(Mode{Kind: Game, Game: g})
		c.leds.Indicator().Reset()
		c.checkElimination()
		return true
	}
	return false
}

// ---- Local sensor updates ----

func (c *Coordinator) handleInternal(f protocol.Frame) bool {
	if f.Kind != protocol.KindJoltDelta {
		return false
	}
	c.sensors.AccelerometerJolt = mathx.Max(f.Value, 0)
	c.checkElimination()
	return true
}

// checkElimination latches the indicator when the current jolt reaches the
// threshold during a round. It runs before the LED refresh so the latch and
// the client's round state always agree.
func (c *Coordinator) checkElimination() {
	if !c.mode.InRound() {
		return
	}
	if c.leds.Indicator().Observe(c.sensors.AccelerometerJolt) {
		println("[mesh] eliminated")
		if r := c.clientRounds.get(c.mode.Round); c.mode.Kind == Client && r != nil {
			r.IsActive = false
		}
	}
}
