package main

import (
	"testing"
	"time"

	"ledswarm-go/services/config"
	"ledswarm-go/types"
)

func newTestSwarm(t *testing.T) *Swarm {
	t.Helper()
	cfg, err := config.Load("host", map[string]string{
		"LEDSWARM_MESH_JOIN_TIMEOUT":  "200ms",
		"LEDSWARM_HEARTBEAT_INTERVAL": "1h",
	})
	if err != nil {
		t.Fatal(err)
	}
	s := NewSwarm(cfg, false)
	t.Cleanup(s.Close)
	return s
}

func eventually(t *testing.T, s *Swarm, name, what string, ok func(types.MeshState) bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if st, err := s.State(name); err == nil && ok(st) {
			return
		}
		select {
		case <-deadline:
			st, _ := s.State(name)
			t.Fatalf("%s %s: last state %+v", name, what, st)
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func TestSwarmRound(t *testing.T) {
	s := newTestSwarm(t)
	a := s.Add()
	eventually(t, s, a, "hosting", func(st types.MeshState) bool { return st.Mode == "ServerMeditation" })
	b := s.Add()
	eventually(t, s, b, "joined", func(st types.MeshState) bool { return st.Mode == "Client" })
	eventually(t, s, a, "master", func(st types.MeshState) bool { return st.Mode == "Master" })

	if err := s.Start(a); err != nil {
		t.Fatal(err)
	}
	eventually(t, s, b, "in round", func(st types.MeshState) bool { return st.Round == "LastOneStanding" && st.Active })

	if err := s.Shake(b, 1); err != nil {
		t.Fatal(err)
	}
	eventually(t, s, b, "eliminated", func(st types.MeshState) bool { return !st.Active })
	if err := s.Still(b); err != nil {
		t.Fatal(err)
	}
}

func TestSwarmUnknownUnit(t *testing.T) {
	s := newTestSwarm(t)
	if _, err := s.State("nope"); err != errNoUnit {
		t.Fatalf("state: %v", err)
	}
	if err := s.Brightness("nope", 0.5); err != errNoUnit {
		t.Fatalf("brightness: %v", err)
	}
	if got := s.Names(); len(got) != 0 {
		t.Fatalf("names %v", got)
	}
}
