package radio

import (
	"context"
	"sync/atomic"
	"time"

	"ledswarm-go/bus"
	"ledswarm-go/errcode"
	"ledswarm-go/protocol"
	"ledswarm-go/types"
	"ledswarm-go/x/timex"
)

type Config struct {
	// Addr is this unit's link address; a random one is drawn when unset.
	Addr           protocol.Addr
	SendTimeout    time.Duration
	ReceiveTimeout time.Duration
	Idle           time.Duration
}

type Stats struct {
	Sent, Received, Malformed, Filtered, Errors uint32
}

// Transport runs the duty cycle: send one queued packet, then listen once,
// then idle. Packets addressed to this unit or broadcast are published on
// radio/rx; the rest, and our own echoes, are filtered out.
type Transport struct {
	cfg   Config
	link  Link
	conn  *bus.Connection
	txSub *bus.Subscription

	sent, received, malformed, filtered, errors atomic.Uint32
}

func NewTransport(cfg Config, link Link, conn *bus.Connection) *Transport {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 50 * time.Millisecond
	}
	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = 20 * time.Millisecond
	}
	if cfg.Idle <= 0 {
		cfg.Idle = time.Millisecond
	}
	if cfg.Addr == protocol.Broadcast {
		cfg.Addr = protocol.NewAddr()
	}
	return &Transport{
		cfg:   cfg,
		link:  link,
		conn:  conn,
		txSub: conn.Subscribe(types.TopicRadioTx),
	}
}

// Addr is the link address stamped on every packet sent.
func (t *Transport) Addr() protocol.Addr { return t.cfg.Addr }

// Send broadcasts f now. Internal frames never leave the unit.
func (t *Transport) Send(f protocol.Frame) error {
	return t.SendTo(protocol.Broadcast, f)
}

// SendTo transmits f to one unit.
func (t *Transport) SendTo(to protocol.Addr, f protocol.Frame) error {
	if !f.Radio() {
		return &errcode.E{C: errcode.Unsupported, Op: "radio send", Msg: f.Kind.String() + " is internal"}
	}
	b, err := protocol.EncodePacket(protocol.Packet{From: t.cfg.Addr, To: to, Frame: f})
	if err != nil {
		return err
	}
	return Send(t.link, b, t.cfg.SendTimeout)
}

// Cycle performs one send-then-receive pass. A bare Frame on radio/tx is
// broadcast.
func (t *Transport) Cycle() {
	if m, ok := t.txSub.TryNext(); ok {
		var p protocol.Packet
		switch v := m.Payload.(type) {
		case protocol.Packet:
			p = v
		case protocol.Frame:
			p = protocol.Packet{To: protocol.Broadcast, Frame: v}
		}
		if p.Frame.Kind != protocol.KindInvalid {
			if err := t.SendTo(p.To, p.Frame); err != nil {
				t.errors.Add(1)
				println("[radio] send", p.Frame.String(), "to", p.To.String(), "failed:", err.Error())
			} else {
				t.sent.Add(1)
			}
		}
	}

	b, err := Receive(t.link, t.cfg.ReceiveTimeout)
	if err != nil {
		if errcode.Of(err) != errcode.Timeout {
			t.errors.Add(1)
			println("[radio] receive failed:", err.Error())
		}
		return
	}
	p, err := protocol.DecodePacket(b)
	if err == nil && !p.Frame.Radio() {
		err = &errcode.E{C: errcode.MalformedFrame, Op: "decode", Msg: "internal frame on air"}
	}
	if err != nil {
		t.malformed.Add(1)
		println("[radio] dropped frame:", err.Error())
		return
	}
	if p.From == t.cfg.Addr || (p.To != protocol.Broadcast && p.To != t.cfg.Addr) {
		t.filtered.Add(1)
		return
	}
	t.received.Add(1)
	t.conn.Publish(t.conn.NewMessage(types.TopicRadioRx, p, false))
}

// Run cycles until ctx ends.
func (t *Transport) Run(ctx context.Context) error {
	for {
		t.Cycle()
		if !timex.Sleep(ctx, t.cfg.Idle) {
			return nil
		}
	}
}

func (t *Transport) Stats() Stats {
	return Stats{
		Sent:      t.sent.Load(),
		Received:  t.received.Load(),
		Malformed: t.malformed.Load(),
		Filtered:  t.filtered.Load(),
		Errors:    t.errors.Load(),
	}
}
