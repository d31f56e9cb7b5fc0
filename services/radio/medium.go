package radio

import "sync"

// Medium is a shared in-memory ether for host runs: a frame sent on one
// attached link reaches every other attached link.
type Medium struct {
	mu    sync.RWMutex
	links []*MediumLink
}

func NewMedium() *Medium { return &Medium{} }

// Attach adds a transceiver to the medium.
func (m *Medium) Attach() *MediumLink {
	l := &MediumLink{medium: m}
	l.in.irq = &l.irq
	m.mu.Lock()
	m.links = append(m.links, l)
	m.mu.Unlock()
	return l
}

func (m *Medium) broadcast(from *MediumLink, b []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.links {
		if l == from || l.isMuted() {
			continue
		}
		l.in.push(append([]byte(nil), b...))
	}
}

// MediumLink is one transceiver on a Medium.
type MediumLink struct {
	medium *Medium
	guard  cycleGuard
	irq    IRQ
	in     inbox

	mu    sync.Mutex
	muted bool
}

func (l *MediumLink) BeginSend(b []byte) (SendCycle, error) {
	if err := l.guard.begin(); err != nil {
		return nil, err
	}
	p := append([]byte(nil), b...)
	return &txCycle{guard: &l.guard, send: func() error {
		l.medium.broadcast(l, p)
		return nil
	}}, nil
}

func (l *MediumLink) BeginReceive() (ReceiveCycle, error) {
	if err := l.guard.begin(); err != nil {
		return nil, err
	}
	return &rxCycle{guard: &l.guard, in: &l.in}, nil
}

// Mute stops delivery to this link, as if it walked out of range.
func (l *MediumLink) Mute(on bool) {
	l.mu.Lock()
	l.muted = on
	l.mu.Unlock()
}

func (l *MediumLink) isMuted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.muted
}

// Inject delivers raw bytes to this link as if received over the air.
func (l *MediumLink) Inject(b []byte) { l.in.push(append([]byte(nil), b...)) }

func (l *MediumLink) Cycles() CycleCounts { return l.guard.counts() }
