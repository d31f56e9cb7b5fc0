// Package radio moves encoded frames between units over a half-duplex link.
// Every send or receive cycle opened on a Link must be closed exactly once
// before the next one is opened; the helpers here do that with defer.
package radio

import (
	"sync"
	"sync/atomic"
	"time"

	"ledswarm-go/errcode"
)

// SendCycle is an open transmit cycle.
type SendCycle interface {
	// Wait blocks until the frame left the transceiver or timeout elapsed.
	Wait(timeout time.Duration) error
	Close() error
}

// ReceiveCycle is an open receive window.
type ReceiveCycle interface {
	// Wait returns the next frame, or an errcode.Timeout error.
	Wait(timeout time.Duration) ([]byte, error)
	Close() error
}

// Link is a transceiver.
type Link interface {
	BeginSend(b []byte) (SendCycle, error)
	BeginReceive() (ReceiveCycle, error)
}

// Send runs one transmit cycle on l.
func Send(l Link, b []byte, timeout time.Duration) (err error) {
	c, err := l.BeginSend(b)
	if err != nil {
		return errcode.Wrap(errcode.RadioCycle, "begin send", err)
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = errcode.Wrap(errcode.RadioCycle, "end send", cerr)
		}
	}()
	return c.Wait(timeout)
}

// Receive runs one receive cycle on l.
func Receive(l Link, timeout time.Duration) (b []byte, err error) {
	c, err := l.BeginReceive()
	if err != nil {
		return nil, errcode.Wrap(errcode.RadioCycle, "begin receive", err)
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = errcode.Wrap(errcode.RadioCycle, "end receive", cerr)
		}
	}()
	return c.Wait(timeout)
}

// IRQ is the transceiver interrupt flag. Raise is the whole interrupt
// handler; the radio task consumes the flag with Take.
type IRQ struct {
	flag atomic.Bool
}

func (i *IRQ) Raise()     { i.flag.Store(true) }
func (i *IRQ) Take() bool { return i.flag.Swap(false) }

// ---- shared link plumbing ----

// cycleGuard tracks the open cycle of one transceiver.
type cycleGuard struct {
	open   atomic.Bool
	opens  atomic.Uint32
	closes atomic.Uint32
}

func (g *cycleGuard) begin() error {
	if !g.open.CompareAndSwap(false, true) {
		return &errcode.E{C: errcode.RadioCycle, Op: "begin", Msg: "previous cycle still open"}
	}
	g.opens.Add(1)
	return nil
}

func (g *cycleGuard) end() error {
	if !g.open.CompareAndSwap(true, false) {
		return &errcode.E{C: errcode.RadioCycle, Op: "close", Msg: "cycle not open"}
	}
	g.closes.Add(1)
	return nil
}

// CycleCounts reports opened and closed cycles.
type CycleCounts struct {
	Opened, Closed uint32
}

func (g *cycleGuard) counts() CycleCounts {
	return CycleCounts{Opened: g.opens.Load(), Closed: g.closes.Load()}
}

const inboxLen = 64

// inbox holds received frames until a receive cycle collects them. When
// full the oldest frame is dropped.
type inbox struct {
	mu    sync.Mutex
	q     [][]byte
	drops uint32
	irq   *IRQ
}

func (b *inbox) push(p []byte) {
	b.mu.Lock()
	if len(b.q) == inboxLen {
		b.q = b.q[1:]
		b.drops++
	}
	b.q = append(b.q, p)
	b.mu.Unlock()
	b.irq.Raise()
}

func (b *inbox) pop() (p []byte, more bool, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.q) == 0 {
		return nil, false, false
	}
	p = b.q[0]
	b.q[0] = nil
	b.q = b.q[1:]
	return p, len(b.q) > 0, true
}

const pollInterval = 200 * time.Microsecond

// rxCycle waits for the IRQ flag, then collects one frame.
type rxCycle struct {
	guard  *cycleGuard
	in     *inbox
	closed atomic.Bool
}

func (c *rxCycle) Wait(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		if c.in.irq.Take() {
			if p, more, ok := c.in.pop(); ok {
				if more {
					c.in.irq.Raise()
				}
				return p, nil
			}
		}
		if !time.Now().Before(deadline) {
			return nil, errcode.Timeout
		}
		time.Sleep(pollInterval)
	}
}

func (c *rxCycle) Close() error { return closeOnce(&c.closed, c.guard) }

// txCycle sends through fn when waited on.
type txCycle struct {
	guard  *cycleGuard
	send   func() error
	closed atomic.Bool
}

func (c *txCycle) Wait(time.Duration) error { return c.send() }

func (c *txCycle) Close() error { return closeOnce(&c.closed, c.guard) }

func closeOnce(closed *atomic.Bool, g *cycleGuard) error {
	if !closed.CompareAndSwap(false, true) {
		return &errcode.E{C: errcode.RadioCycle, Op: "close", Msg: "cycle already closed"}
	}
	return g.end()
}
