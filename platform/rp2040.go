//go:build rp2040

package platform

import (
	"context"
	"machine"

	"ledswarm-go/errcode"
	"ledswarm-go/services/config"
	"ledswarm-go/services/led"
	"ledswarm-go/services/network"
	"ledswarm-go/services/radio"
	"ledswarm-go/services/sensor"
)

// Device is the embedded config document used on this board.
const Device = "pico"

// Open brings up the board peripherals: the accelerometer on I2C0, the
// SK6812 ring and the UART radio. Every failure here is fatal.
func Open(ctx context.Context, cfg config.Config) (Hardware, error) {
	i2c := machine.I2C0
	sda, scl := machine.I2C0_SDA_PIN, machine.I2C0_SCL_PIN
	if cfg.Sensor.SDA != 0 || cfg.Sensor.SCL != 0 {
		sda, scl = machine.Pin(cfg.Sensor.SDA), machine.Pin(cfg.Sensor.SCL)
	}
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       sda,
		SCL:       scl,
	}); err != nil {
		return Hardware{}, errcode.Wrap(errcode.SensorFault, "i2c0 configure", err)
	}
	acc, err := sensor.NewADXL345(i2c)
	if err != nil {
		return Hardware{}, err
	}

	leds, err := led.NewSK6812(machine.Pin(cfg.LED.Pin), cfg.LED.Pixels)
	if err != nil {
		return Hardware{}, err
	}

	link, err := radio.OpenUART(ctx, radio.UARTConfig{
		Port:     cfg.Radio.Port,
		BaudRate: cfg.Radio.BaudRate,
		TX:       machine.Pin(cfg.Radio.TX),
		RX:       machine.Pin(cfg.Radio.RX),
	})
	if err != nil {
		return Hardware{}, err
	}

	return Hardware{Accel: acc, LEDs: leds, Link: link, WiFi: network.Standalone{}}, nil
}

// AttachServices adds the board-specific tasks. The Pico has no network
// stack for HTTP ingress.
func AttachServices(u *Unit) {}
