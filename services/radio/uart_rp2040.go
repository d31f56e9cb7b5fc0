//go:build rp2040

package radio

import (
	"context"
	"machine"

	"ledswarm-go/errcode"

	"github.com/jangala-dev/tinygo-uartx/uartx"
)

type UARTConfig struct {
	Port     string // "uart0" | "uart1"
	BaudRate uint32
	TX, RX   machine.Pin
}

// OpenUART brings up the UART-attached UWB module and starts its reader.
func OpenUART(ctx context.Context, cfg UARTConfig) (*StreamLink, error) {
	var hw *uartx.UART
	switch cfg.Port {
	case "uart0", "":
		hw = uartx.UART0
	case "uart1":
		hw = uartx.UART1
	default:
		return nil, &errcode.E{C: errcode.RadioInit, Op: "uart", Msg: "unknown port " + cfg.Port}
	}
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: cfg.BaudRate,
		TX:       cfg.TX,
		RX:       cfg.RX,
	}); err != nil {
		return nil, errcode.Wrap(errcode.RadioInit, "uart configure", err)
	}
	l := NewStreamLink(hw)
	l.Start(ctx)
	return l, nil
}
