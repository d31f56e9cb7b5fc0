package sensor

import (
	"ledswarm-go/errcode"

	"github.com/go-gl/mathgl/mgl32"
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/adxl345"
)

const adxlDeviceID = 0xE5

// checkedI2C remembers the first bus error, since the adxl345 driver drops them.
type checkedI2C struct {
	bus drivers.I2C
	err error
}

func (c *checkedI2C) Tx(addr uint16, w, r []byte) error {
	err := c.bus.Tx(addr, w, r)
	if err != nil && c.err == nil {
		c.err = err
	}
	return err
}

func (c *checkedI2C) take() error {
	err := c.err
	c.err = nil
	return err
}

// ADXL345 adapts the tinygo driver (also fits the register-compatible ADXL343).
type ADXL345 struct {
	bus *checkedI2C
	dev adxl345.Device
}

// NewADXL345 probes and configures the accelerometer at 800 Hz, ±2 g.
func NewADXL345(bus drivers.I2C) (*ADXL345, error) {
	cb := &checkedI2C{bus: bus}
	id := []byte{0}
	if err := cb.Tx(adxl345.AddressLow, []byte{0x00}, id); err != nil {
		return nil, errcode.Wrap(errcode.SensorFault, "adxl345 probe", err)
	}
	if id[0] != adxlDeviceID {
		return nil, &errcode.E{C: errcode.SensorFault, Op: "adxl345 probe", Msg: "unexpected device id"}
	}
	cb.take()

	a := &ADXL345{bus: cb, dev: adxl345.New(cb)}
	a.dev.Configure()
	a.dev.UseLowPower(false)
	a.dev.SetRate(adxl345.RATE_800HZ)
	a.dev.SetRange(adxl345.RANGE_2G)
	if err := cb.take(); err != nil {
		return nil, errcode.Wrap(errcode.SensorFault, "adxl345 configure", err)
	}
	return a, nil
}

// Read returns acceleration in g.
func (a *ADXL345) Read() (mgl32.Vec3, error) {
	x, y, z, _ := a.dev.ReadAcceleration()
	if err := a.bus.take(); err != nil {
		return mgl32.Vec3{}, errcode.Wrap(errcode.SensorFault, "adxl345 read", err)
	}
	// The driver scales to roughly 1/1000 g per unit.
	return mgl32.Vec3{float32(x) / 1000, float32(y) / 1000, float32(z) / 1000}, nil
}
