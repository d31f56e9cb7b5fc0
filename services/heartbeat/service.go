package heartbeat

import (
	"context"
	"time"

	"ledswarm-go/bus"
	"ledswarm-go/services/config"
	"ledswarm-go/types"
	"ledswarm-go/x/conv"
)

const defaultInterval = 2 * time.Second

// Logger receives one status line per beat. Defaults to println.
type Logger func(line string)

type Service struct {
	Interval time.Duration
	Log      Logger

	state types.MeshState
	seen  bool
}

// Line renders the status line for a mesh state.
func Line(s types.MeshState) string {
	line := "[heartbeat] mode=" + s.Mode +
		" id=" + conv.Utoa(uint64(s.ID)) +
		" peers=" + conv.Itoa(int64(s.Peers)) +
		" tick=" + conv.Utoa(uint64(s.Tick))
	if s.Round != "" {
		active := "false"
		if s.Active {
			active = "true"
		}
		line += " round=" + s.Round + " active=" + active
	}
	return line
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(types.ConfigTopic(config.SectionHeartbeat))
	stateSub := conn.Subscribe(types.TopicMeshState)
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(stateSub)

	tick := time.NewTicker(s.Interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("[heartbeat] stopping")
			return
		case <-tick.C:
			if s.seen {
				s.Log(Line(s.state))
			} else {
				s.Log("[heartbeat] waiting for mesh state")
			}
		case msg := <-stateSub.Channel():
			if st, ok := msg.Payload.(types.MeshState); ok {
				s.state, s.seen = st, true
			}
		case msg := <-cfgSub.Channel():
			if hb, ok := msg.Payload.(config.Heartbeat); ok && hb.Interval > 0 && hb.Interval != s.Interval {
				s.Interval = hb.Interval
				tick.Reset(hb.Interval)
				println("[heartbeat] interval set to", hb.Interval.String())
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.Interval <= 0 {
		s.Interval = defaultInterval
	}
	if s.Log == nil {
		s.Log = func(line string) { println(line) }
	}
	go s.serviceLoop(ctx, conn)
	return nil
}
