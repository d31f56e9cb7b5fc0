package protocol

import (
	"encoding/binary"

	"github.com/google/uuid"

	"ledswarm-go/x/conv"
)

// Addr is a unit's link address on the radio.
type Addr uint32

// Broadcast addresses every unit in range.
const Broadcast Addr = 0

func (a Addr) String() string {
	if a == Broadcast {
		return "*"
	}
	return conv.Utoa(uint64(a))
}

// NewAddr draws a random non-broadcast address.
func NewAddr() Addr {
	for {
		id := uuid.New()
		if a := Addr(binary.BigEndian.Uint32(id[:4])); a != Broadcast {
			return a
		}
	}
}

// Packet is a frame with its link addresses. It is the payload of
// radio/rx and radio/tx.
type Packet struct {
	From, To Addr
	Frame    Frame
}

const packetHeaderLen = 8

// MaxPacketLen bounds an encoded packet.
const MaxPacketLen = packetHeaderLen + MaxFrameLen

// EncodePacket prefixes the encoded frame with the destination and source
// addresses, big-endian.
func EncodePacket(p Packet) ([]byte, error) {
	fb, err := Encode(p.Frame)
	if err != nil {
		return nil, err
	}
	b := make([]byte, packetHeaderLen, packetHeaderLen+len(fb))
	binary.BigEndian.PutUint32(b[0:4], uint32(p.To))
	binary.BigEndian.PutUint32(b[4:8], uint32(p.From))
	return append(b, fb...), nil
}

// DecodePacket is the inverse of EncodePacket. Errors carry MalformedFrame.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < packetHeaderLen {
		return Packet{}, malformed("short header", nil)
	}
	f, err := Decode(b[packetHeaderLen:])
	if err != nil {
		return Packet{}, err
	}
	return Packet{
		To:    Addr(binary.BigEndian.Uint32(b[0:4])),
		From:  Addr(binary.BigEndian.Uint32(b[4:8])),
		Frame: f,
	}, nil
}
