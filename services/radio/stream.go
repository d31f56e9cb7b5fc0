package radio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ledswarm-go/errcode"
	"ledswarm-go/protocol"
	"ledswarm-go/x/timex"
)

// Port is a byte stream to a serially attached radio module.
type Port interface {
	Write(p []byte) (int, error)
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

// Stream framing: sync byte, payload length, payload.
const streamSync byte = 0x7E

// StreamLink runs the half-duplex cycle protocol over a Port. A reader
// goroutine reassembles frames and raises the IRQ for each complete one.
type StreamLink struct {
	port  Port
	guard cycleGuard
	irq   IRQ
	in    inbox

	wmu        sync.Mutex
	readErrors atomic.Uint32
}

func NewStreamLink(port Port) *StreamLink {
	l := &StreamLink{port: port}
	l.in.irq = &l.irq
	return l
}

// Start launches the reader. It stops when ctx ends.
func (l *StreamLink) Start(ctx context.Context) {
	go l.readLoop(ctx)
}

// readErrorBackoff paces retries after a port error.
const readErrorBackoff = 20 * time.Millisecond

func (l *StreamLink) readLoop(ctx context.Context) {
	var asm frameAssembler
	buf := make([]byte, 64)
	failing := false
	for {
		if ctx.Err() != nil {
			return
		}
		// Bound the blocking wait to assist shutdown.
		rctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
		n, err := l.port.RecvSomeContext(rctx, buf)
		cancel()
		if err != nil && n == 0 && !errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			l.readErrors.Add(1)
			if !failing {
				failing = true
				println("[radio] stream read failed:", err.Error())
			}
			if !timex.Sleep(ctx, readErrorBackoff) {
				return
			}
			continue
		}
		if n > 0 && failing {
			failing = false
			println("[radio] stream read recovered")
		}
		for i := 0; i < n; i++ {
			if p, ok := asm.feed(buf[i]); ok {
				l.in.push(p)
			}
		}
	}
}

func (l *StreamLink) BeginSend(b []byte) (SendCycle, error) {
	if len(b) == 0 || len(b) > protocol.MaxPacketLen {
		return nil, &errcode.E{C: errcode.TooLarge, Op: "stream send", Msg: "frame length out of range"}
	}
	if err := l.guard.begin(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(b)+2)
	out = append(out, streamSync, byte(len(b)))
	out = append(out, b...)
	return &txCycle{guard: &l.guard, send: func() error {
		l.wmu.Lock()
		defer l.wmu.Unlock()
		_, err := l.port.Write(out)
		return err
	}}, nil
}

func (l *StreamLink) BeginReceive() (ReceiveCycle, error) {
	if err := l.guard.begin(); err != nil {
		return nil, err
	}
	return &rxCycle{guard: &l.guard, in: &l.in}, nil
}

func (l *StreamLink) Cycles() CycleCounts { return l.guard.counts() }

// ReadErrors counts failed port reads.
func (l *StreamLink) ReadErrors() uint32 { return l.readErrors.Load() }

// frameAssembler resynchronises on the sync byte after any bad length.
type frameAssembler struct {
	state int // 0 hunt, 1 length, 2 payload
	want  int
	buf   []byte
}

func (a *frameAssembler) feed(c byte) ([]byte, bool) {
	switch a.state {
	case 0:
		if c == streamSync {
			a.state = 1
		}
	case 1:
		n := int(c)
		if n == 0 || n > protocol.MaxPacketLen {
			a.state = 0
			if c == streamSync {
				a.state = 1
			}
			return nil, false
		}
		a.want = n
		a.buf = make([]byte, 0, n)
		a.state = 2
	case 2:
		a.buf = append(a.buf, c)
		if len(a.buf) == a.want {
			a.state = 0
			p := a.buf
			a.buf = nil
			return p, true
		}
	}
	return nil, false
}
