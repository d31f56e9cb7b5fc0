// Package network decides, once per boot, whether the unit joins an
// existing mesh network or hosts a new one.
package network

import (
	"context"
	"time"

	"ledswarm-go/bus"
	"ledswarm-go/errcode"
	"ledswarm-go/types"
)

// WiFi is the station/access point radio.
type WiFi interface {
	Scan(ctx context.Context) ([]string, error)
	Join(ctx context.Context, ssid, password string) error
	Host(ctx context.Context, ssid, password string) error
}

type Config struct {
	SSID        string
	Password    string
	JoinTimeout time.Duration
	// Simplified reports the unit as client 1 straight after joining,
	// skipping the radio admission handshake.
	Simplified bool
}

// Negotiator resolves to network events on net/event.
type Negotiator struct {
	cfg  Config
	wifi WiFi
	conn *bus.Connection
}

func NewNegotiator(cfg Config, wifi WiFi, conn *bus.Connection) *Negotiator {
	if cfg.SSID == "" {
		cfg.SSID = "LEDswarm"
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 30 * time.Second
	}
	return &Negotiator{cfg: cfg, wifi: wifi, conn: conn}
}

func (n *Negotiator) publish(ev types.NetworkEvent) {
	n.conn.Publish(n.conn.NewMessage(types.TopicNetEvent, ev, false))
}

// Run scans, then joins or hosts, and returns. Only a failure to host is
// reported as an error: without it the unit cannot be reached at all.
func (n *Negotiator) Run(ctx context.Context) error {
	found, err := n.scan(ctx)
	if err != nil {
		println("[net] scan failed:", err.Error())
	}
	if ctx.Err() != nil {
		return nil
	}

	if found {
		println("[net] found", n.cfg.SSID, "- joining")
		n.publish(types.NetworkEvent{Kind: types.MeshFound})
		jctx, cancel := context.WithTimeout(ctx, n.cfg.JoinTimeout)
		err := n.wifi.Join(jctx, n.cfg.SSID, n.cfg.Password)
		cancel()
		if err == nil {
			if n.cfg.Simplified {
				n.publish(types.NetworkEvent{Kind: types.AssignedClient, ClientID: 1})
			} else {
				n.publish(types.NetworkEvent{Kind: types.Joined})
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		println("[net] join failed:", err.Error())
	}

	println("[net] hosting", n.cfg.SSID)
	n.publish(types.NetworkEvent{Kind: types.NoMesh})
	if err := n.wifi.Host(ctx, n.cfg.SSID, n.cfg.Password); err != nil {
		return errcode.Wrap(errcode.NetworkHost, "host", err)
	}
	return nil
}

func (n *Negotiator) scan(ctx context.Context) (bool, error) {
	sctx, cancel := context.WithTimeout(ctx, n.cfg.JoinTimeout)
	defer cancel()
	ssids, err := n.wifi.Scan(sctx)
	if err != nil {
		return false, errcode.Wrap(errcode.NetworkScan, "scan", err)
	}
	for _, s := range ssids {
		if s == n.cfg.SSID {
			return true, nil
		}
	}
	return false, nil
}
