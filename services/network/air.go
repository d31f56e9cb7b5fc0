package network

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	errNoNetwork   = errors.New("no such network")
	errBadPassword = errors.New("authentication failed")
)

// Air is an in-memory set of Wi-Fi networks shared by simulated units.
type Air struct {
	mu       sync.Mutex
	networks map[string]string // ssid -> password
}

func NewAir() *Air { return &Air{networks: map[string]string{}} }

// Station returns a WiFi bound to this air. JoinDelay simulates slow
// association.
func (a *Air) Station(joinDelay time.Duration) *Station {
	return &Station{air: a, JoinDelay: joinDelay}
}

// Networks lists hosted SSIDs.
func (a *Air) Networks() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.networks))
	for s := range a.networks {
		out = append(out, s)
	}
	return out
}

type Station struct {
	air       *Air
	JoinDelay time.Duration
}

func (s *Station) Scan(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.air.Networks(), nil
}

func (s *Station) Join(ctx context.Context, ssid, password string) error {
	if s.JoinDelay > 0 {
		t := time.NewTimer(s.JoinDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	s.air.mu.Lock()
	defer s.air.mu.Unlock()
	pw, ok := s.air.networks[ssid]
	if !ok {
		return errNoNetwork
	}
	if pw != password {
		return errBadPassword
	}
	return nil
}

func (s *Station) Host(ctx context.Context, ssid, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.air.mu.Lock()
	s.air.networks[ssid] = password
	s.air.mu.Unlock()
	return nil
}
