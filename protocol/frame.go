// Package protocol defines the messages exchanged between units over the
// radio and between tasks over the bus.
package protocol

import "ledswarm-go/x/conv"

// Kind discriminates the payload carried by a Frame.
type Kind uint8

const (
	KindInvalid Kind = iota

	// Controller messages: mesh membership.
	KindJoinRequest
	KindJoinResponse

	// Client messages: commands every unit obeys.
	KindSetBrightness
	KindStartRound

	// Internal messages: produced locally, never transmitted.
	KindJoltDelta

	kindEnd
)

// Class groups kinds the way the coordinator dispatches them.
type Class uint8

const (
	ClassInvalid Class = iota
	ClassController
	ClassClient
	ClassInternal
)

func (k Kind) Class() Class {
	switch k {
	case KindJoinRequest, KindJoinResponse:
		return ClassController
	case KindSetBrightness, KindStartRound:
		return ClassClient
	case KindJoltDelta:
		return ClassInternal
	}
	return ClassInvalid
}

func (k Kind) String() string {
	switch k {
	case KindJoinRequest:
		return "JoinRequest"
	case KindJoinResponse:
		return "JoinResponse"
	case KindSetBrightness:
		return "SetBrightness"
	case KindStartRound:
		return "StartRound"
	case KindJoltDelta:
		return "AccelerometerJoltDelta"
	}
	return "Invalid"
}

// GameMode identifies a round type. The zero value is no game and never
// appears in a StartRound that Encode accepts.
type GameMode uint8

const (
	gameNone GameMode = iota
	LastOneStanding
	gameEnd
)

func (g GameMode) known() bool { return g > gameNone && g < gameEnd }

func (g GameMode) String() string {
	switch g {
	case LastOneStanding:
		return "LastOneStanding"
	}
	return "None"
}

// ParseGameMode is the inverse of GameMode.String for known games.
func ParseGameMode(s string) (GameMode, bool) {
	switch s {
	case "LastOneStanding":
		return LastOneStanding, true
	}
	return gameNone, false
}

// Frame is one message. Only the fields relevant to Kind are set, so two
// frames built by the constructors below compare equal with ==.
type Frame struct {
	Kind       Kind
	AssignedID uint32   // JoinResponse
	Value      float32  // SetBrightness, AccelerometerJoltDelta
	Game       GameMode // StartRound
}

func JoinRequest() Frame            { return Frame{Kind: KindJoinRequest} }
func JoinResponse(id uint32) Frame  { return Frame{Kind: KindJoinResponse, AssignedID: id} }
func SetBrightness(v float32) Frame { return Frame{Kind: KindSetBrightness, Value: v} }
func StartRound(g GameMode) Frame   { return Frame{Kind: KindStartRound, Game: g} }
func AccelerometerJoltDelta(v float32) Frame {
	return Frame{Kind: KindJoltDelta, Value: v}
}

// canonical reports whether f is exactly what its constructor builds: a
// known kind with only that kind's fields set.
func (f Frame) canonical() bool {
	switch f.Kind {
	case KindJoinRequest:
		return f == JoinRequest()
	case KindJoinResponse:
		return f == JoinResponse(f.AssignedID)
	case KindSetBrightness:
		return f == SetBrightness(f.Value)
	case KindJoltDelta:
		return f == AccelerometerJoltDelta(f.Value)
	case KindStartRound:
		return f == StartRound(f.Game) && f.Game.known()
	}
	return false
}

// Radio reports whether the frame may be transmitted to other units.
func (f Frame) Radio() bool {
	c := f.Kind.Class()
	return c == ClassController || c == ClassClient
}

func (f Frame) String() string {
	switch f.Kind {
	case KindJoinResponse:
		return f.Kind.String() + "(" + conv.Utoa(uint64(f.AssignedID)) + ")"
	case KindSetBrightness, KindJoltDelta:
		return f.Kind.String() + "(" + conv.Ftoa(float64(f.Value), 2) + ")"
	case KindStartRound:
		return f.Kind.String() + "(" + f.Game.String() + ")"
	}
	return f.Kind.String()
}
