//go:build !rp2040

package platform

import (
	"context"
	"time"

	"ledswarm-go/services/config"
	"ledswarm-go/services/ingress"
	"ledswarm-go/services/led"
	"ledswarm-go/services/network"
	"ledswarm-go/services/radio"
	"ledswarm-go/services/sensor"
)

// Device is the embedded config document used on this board.
const Device = "host"

// Open returns simulated peripherals on a private board, so the firmware
// entry point also runs on a workstation as a lone unit.
func Open(ctx context.Context, cfg config.Config) (Hardware, error) {
	hw, _ := NewHostBoard().Hardware()
	return hw, nil
}

// AttachServices adds the board-specific tasks: HTTP ingress on host builds.
func AttachServices(u *Unit) {
	u.Extra["ingress"] = ingress.NewServer(ingress.Config{
		Addr:        u.Config.HTTP.Addr,
		LogRequests: u.Config.HTTP.LogRequests,
		Intensity:   u.Config.LED.InitialIntensity,
	}, u.Bus.NewConnection(u.Name+"/ingress"))
}

// HostBoard is a shared radio medium and Wi-Fi air for simulated units.
type HostBoard struct {
	Medium *radio.Medium
	Air    *network.Air
	// JoinDelay is how long a simulated Wi-Fi join takes.
	JoinDelay time.Duration
}

func NewHostBoard() *HostBoard {
	return &HostBoard{Medium: radio.NewMedium(), Air: network.NewAir()}
}

// HostParts exposes the simulated peripherals of one unit.
type HostParts struct {
	Accel *sensor.Simulated
	LEDs  *led.Recorder
	Link  *radio.MediumLink
	WiFi  *network.Station
}

// Hardware attaches a new set of simulated peripherals to the board.
func (h *HostBoard) Hardware() (Hardware, *HostParts) {
	p := &HostParts{
		Accel: sensor.NewSimulated(),
		LEDs:  &led.Recorder{},
		Link:  h.Medium.Attach(),
		WiFi:  h.Air.Station(h.JoinDelay),
	}
	return Hardware{Accel: p.Accel, LEDs: p.LEDs, Link: p.Link, WiFi: p.WiFi}, p
}

// NewHostUnit builds a simulated unit. With serveHTTP it also runs the
// ingress server on cfg.HTTP.Addr.
func (h *HostBoard) NewHostUnit(name string, cfg config.Config, serveHTTP bool) (*Unit, *HostParts) {
	hw, parts := h.Hardware()
	u := NewUnit(name, cfg, hw)
	if serveHTTP {
		AttachServices(u)
	}
	return u, parts
}
