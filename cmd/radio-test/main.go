//go:build rp2040

// Command radio-test checks the UART radio path on a bench board with uart0
// TX wired to uart1 RX: frames sent by one transport must decode intact on
// the other.
package main

import (
	"context"
	"machine"
	"time"

	"ledswarm-go/bus"
	"ledswarm-go/protocol"
	"ledswarm-go/services/radio"
	"ledswarm-go/types"
	"ledswarm-go/x/conv"
)

func main() {
	println("[radio] boot …")
	time.Sleep(1500 * time.Millisecond)
	ctx := context.Background()

	tx, err := radio.OpenUART(ctx, radio.UARTConfig{Port: "uart0", BaudRate: 115200, TX: machine.GP0, RX: machine.GP1})
	if err != nil {
		println("[radio] FAIL: uart0:", err.Error())
		return
	}
	rx, err := radio.OpenUART(ctx, radio.UARTConfig{Port: "uart1", BaudRate: 115200, TX: machine.GP4, RX: machine.GP5})
	if err != nil {
		println("[radio] FAIL: uart1:", err.Error())
		return
	}

	b := bus.NewBus(64)
	sender := radio.NewTransport(radio.Config{}, tx, b.NewConnection("tx"))
	receiver := radio.NewTransport(radio.Config{}, rx, b.NewConnection("rx"))
	go func() { _ = receiver.Run(ctx) }()
	got := b.NewConnection("ui").Subscribe(types.TopicRadioRx)

	// --- Smoke test ---
	println("[radio] smoke: JoinRequest")
	if sendExpect(sender, got, protocol.JoinRequest(), 2*time.Second) {
		println("[radio] smoke: PASS")
	} else {
		println("[radio] smoke: FAIL")
	}

	// --- Integrity test: every radio kind, in order ---
	println("[radio] integrity: 200 frames")
	ok := true
	for i := 0; i < 200 && ok; i++ {
		f := pattern(i)
		ok = sendExpect(sender, got, f, time.Second)
		if !ok {
			println("[radio] integrity: lost", f.String(), "at", i)
		}
	}
	if ok {
		println("[radio] integrity: PASS")
	} else {
		println("[radio] integrity: FAIL")
	}

	// --- Throughput: frames per second, fire and forget ---
	println("[radio] throughput: 5s")
	start := time.Now()
	sent := 0
	for time.Since(start) < 5*time.Second {
		if sender.Send(protocol.SetBrightness(0.5)) == nil {
			sent++
		}
	}
	time.Sleep(200 * time.Millisecond)
	st := receiver.Stats()
	println("[radio] throughput: sent=" + conv.Itoa(int64(sent)) +
		" received=" + conv.Utoa(uint64(st.Received)) +
		" malformed=" + conv.Utoa(uint64(st.Malformed)) +
		" per_s=" + conv.Ftoa(float64(st.Received)/5, 1))
}

func pattern(i int) protocol.Frame {
	switch i % 4 {
	case 0:
		return protocol.JoinRequest()
	case 1:
		return protocol.JoinResponse(uint32(i))
	case 2:
		return protocol.SetBrightness(float32(i%100) / 100)
	}
	return protocol.StartRound(protocol.LastOneStanding)
}

func sendExpect(t *radio.Transport, sub *bus.Subscription, f protocol.Frame, timeout time.Duration) bool {
	if err := t.Send(f); err != nil {
		println("[radio] send:", err.Error())
		return false
	}
	deadline := time.After(timeout)
	for {
		select {
		case m := <-sub.Channel():
			if got, ok := m.Payload.(protocol.Packet); ok && got.Frame == f {
				return true
			}
		case <-deadline:
			return false
		}
	}
}
