package mesh

import (
	"ledswarm-go/bus"
	"ledswarm-go/errcode"
	"ledswarm-go/protocol"
	"ledswarm-go/types"
)

// Outbox transmits a packet, best effort. To is protocol.Broadcast for the
// whole mesh; From is stamped by the radio.
type Outbox interface {
	Send(p protocol.Packet) error
}

// BusOutbox queues packets on radio/tx for the radio transport.
type BusOutbox struct {
	Conn *bus.Connection
}

func (o BusOutbox) Send(p protocol.Packet) error {
	if !p.Frame.Radio() {
		return &errcode.E{C: errcode.Unsupported, Op: "send", Msg: p.Frame.Kind.String() + " is internal"}
	}
	o.Conn.Publish(o.Conn.NewMessage(types.TopicRadioTx, p, false))
	return nil
}
