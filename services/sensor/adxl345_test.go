package sensor

import (
	"errors"
	"sync"
	"testing"

	"ledswarm-go/errcode"
)

// regI2C emulates a register-mapped I²C device.
type regI2C struct {
	mu    sync.Mutex
	addr  uint16
	regs  [64]byte
	fail  error
	reads int
}

func (f *regI2C) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if addr != f.addr {
		return errors.New("nack")
	}
	if len(w) == 0 {
		return nil
	}
	reg := int(w[0])
	if len(r) == 0 {
		copy(f.regs[reg:], w[1:])
		return nil
	}
	f.reads++
	copy(r, f.regs[reg:])
	return nil
}

func newADXLBus() *regI2C {
	f := &regI2C{addr: 0x53}
	f.regs[0x00] = adxlDeviceID
	// X=0, Y=0, Z=250 raw (little endian) at ±2 g.
	f.regs[0x36] = 250
	return f
}

func TestADXL345_ReadScalesToG(t *testing.T) {
	f := newADXLBus()
	a, err := NewADXL345(f)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if f.regs[0x2D]&0x08 == 0 {
		t.Fatal("measure bit not set in POWER_CTL")
	}
	v, err := a.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v[0] != 0 || v[1] != 0 || v[2] != 1 {
		t.Fatalf("got %v, want (0,0,1)", v)
	}
}

func TestADXL345_WrongDevice(t *testing.T) {
	f := newADXLBus()
	f.regs[0x00] = 0x12
	if _, err := NewADXL345(f); errcode.Of(err) != errcode.SensorFault {
		t.Fatalf("want sensor_fault, got %v", err)
	}
}

func TestADXL345_BusErrorSurfaces(t *testing.T) {
	f := newADXLBus()
	a, err := NewADXL345(f)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.mu.Lock()
	f.fail = errors.New("bus stuck")
	f.mu.Unlock()
	if _, err := a.Read(); errcode.Of(err) != errcode.SensorFault {
		t.Fatalf("want sensor_fault, got %v", err)
	}
}
