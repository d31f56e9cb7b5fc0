package main

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"ledswarm-go/platform"
	"ledswarm-go/protocol"
	"ledswarm-go/services/config"
	"ledswarm-go/types"
)

var errNoUnit = errors.New("no such unit")

type simUnit struct {
	unit   *platform.Unit
	parts  *platform.HostParts
	cancel context.CancelFunc
	done   chan error
}

// Swarm runs simulated units on one shared board.
type Swarm struct {
	cfg   config.Config
	board *platform.HostBoard

	mu    sync.Mutex
	units []*simUnit
	// serveHTTP gives the next added unit the ingress server.
	serveHTTP bool
}

func NewSwarm(cfg config.Config, serveHTTP bool) *Swarm {
	return &Swarm{cfg: cfg, board: platform.NewHostBoard(), serveHTTP: serveHTTP}
}

// Add starts a new unit and returns its name.
func (s *Swarm) Add() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := "u" + strconv.Itoa(len(s.units)+1)
	u, parts := s.board.NewHostUnit(name, s.cfg, s.serveHTTP)
	s.serveHTTP = false

	ctx, cancel := context.WithCancel(context.Background())
	su := &simUnit{unit: u, parts: parts, cancel: cancel, done: make(chan error, 1)}
	go func() {
		err := u.Run(ctx)
		if err != nil {
			println("[sim]", name, "halted:", err.Error())
		}
		su.done <- err
	}()
	s.units = append(s.units, su)
	return name
}

func (s *Swarm) get(name string) (*simUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, su := range s.units {
		if su.unit.Name == name {
			return su, nil
		}
	}
	return nil, errNoUnit
}

// Names lists units in creation order.
func (s *Swarm) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.units))
	for i, su := range s.units {
		out[i] = su.unit.Name
	}
	return out
}

// State is the last published mesh state of a unit.
func (s *Swarm) State(name string) (types.MeshState, error) {
	su, err := s.get(name)
	if err != nil {
		return types.MeshState{}, err
	}
	st, _ := su.unit.State()
	return st, nil
}

func (s *Swarm) Brightness(name string, v float32) error {
	return s.submit(name, protocol.SetBrightness(v))
}

func (s *Swarm) Start(name string) error {
	return s.submit(name, protocol.StartRound(protocol.LastOneStanding))
}

func (s *Swarm) submit(name string, f protocol.Frame) error {
	su, err := s.get(name)
	if err != nil {
		return err
	}
	su.unit.Submit(f)
	return nil
}

// Shake jolts a unit's accelerometer by about g until Still.
func (s *Swarm) Shake(name string, g float32) error {
	su, err := s.get(name)
	if err != nil {
		return err
	}
	su.parts.Accel.Shake(g)
	return nil
}

func (s *Swarm) Still(name string) error {
	su, err := s.get(name)
	if err != nil {
		return err
	}
	su.parts.Accel.Still()
	return nil
}

// Close stops every unit and waits for them.
func (s *Swarm) Close() {
	s.mu.Lock()
	units := s.units
	s.units = nil
	s.mu.Unlock()
	for _, su := range units {
		su.cancel()
	}
	for _, su := range units {
		<-su.done
	}
}
