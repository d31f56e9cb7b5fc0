package mesh

import (
	"ledswarm-go/protocol"
	"ledswarm-go/services/led"
)

// Kind is the unit's role or phase.
type Kind uint8

const (
	Discovery        Kind = iota // powered on, no mesh seen yet
	Connecting                   // joining a mesh that was found
	ServerMeditation             // hosting, waiting for the first joiner
	Client                       // member of a mesh
	Master                       // owner of the mesh
	Game                         // standalone round, no mesh
)

func (k Kind) String() string {
	switch k {
	case Discovery:
		return "Discovery"
	case Connecting:
		return "Connecting"
	case ServerMeditation:
		return "ServerMeditation"
	case Client:
		return "Client"
	case Master:
		return "Master"
	case Game:
		return "Game"
	}
	return "Unknown"
}

// preMesh reports whether a JoinResponse may still turn the unit into a client.
func (k Kind) preMesh() bool {
	return k == Discovery || k == Connecting || k == ServerMeditation
}

// Mode is the coordinator state. Collections live in arenas and are
// referenced by handle so Mode stays a small comparable value.
//
//	Client: ID, Round (client round arena)
//	Master: IDCounter, Peers, Round (master round arena)
//	Game:   Game
type Mode struct {
	Kind      Kind
	ID        uint32
	IDCounter uint32
	Peers     Handle
	Round     Handle
	Game      protocol.GameMode
}

func (m Mode) String() string {
	if m.Kind == Game {
		return "Game(" + m.Game.String() + ")"
	}
	return m.Kind.String()
}

// InRound reports whether the elimination indicator is on screen.
func (m Mode) InRound() bool {
	switch m.Kind {
	case Game:
		return true
	case Client, Master:
		return m.Round != NoHandle
	}
	return false
}

// Animation maps a mode to its LED animation.
func Animation(m Mode) led.Animation {
	if m.InRound() {
		return led.Animation{Indicator: true}
	}
	switch m.Kind {
	case Discovery:
		return led.Animation{Timeline: led.DiscoveryTimeline()}
	case Connecting:
		return led.Animation{Timeline: led.ConnectingTimeline()}
	case ServerMeditation:
		return led.Animation{Timeline: led.MeditationTimeline()}
	case Client:
		return led.Animation{Timeline: led.ClientTimeline()}
	case Master:
		return led.Animation{Timeline: led.MasterTimeline()}
	}
	return led.Animation{}
}

// RemoteController is the master's record of an admitted peer.
type RemoteController struct {
	UniqueID string
	ID       uint32
	Addr     protocol.Addr // radio address the response went to
}

// GameState is the master's view of a round. Ids move from Active to
// Exited, never back.
type GameState struct {
	Game   protocol.GameMode
	Active []uint32
	Exited []uint32
}

// ClientGameState is a client's view of the same round.
type ClientGameState struct {
	Game     protocol.GameMode
	IsActive bool
}
