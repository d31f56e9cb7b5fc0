//go:build rp2040

package led

import (
	"image/color"
	"machine"

	"ledswarm-go/errcode"

	"tinygo.org/x/drivers/ws2812"
)

// SK6812 drives an RGBW ring (e.g. a seven pixel jewel) on one data pin.
type SK6812 struct {
	dev ws2812.Device
	buf []color.RGBA
}

func NewSK6812(pin machine.Pin, pixels int) (*SK6812, error) {
	if pixels <= 0 {
		return nil, &errcode.E{C: errcode.LEDInit, Op: "sk6812", Msg: "no pixels"}
	}
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &SK6812{dev: ws2812.NewSK6812(pin), buf: make([]color.RGBA, pixels)}, nil
}

// Write sets every pixel; the alpha byte carries the white channel.
func (d *SK6812) Write(c Color) error {
	px := color.RGBA{R: c.R, G: c.G, B: c.B, A: c.W}
	for i := range d.buf {
		d.buf[i] = px
	}
	if err := d.dev.WriteColors(d.buf); err != nil {
		return errcode.Wrap(errcode.LEDInit, "sk6812 write", err)
	}
	return nil
}
