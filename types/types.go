package types

// ---- Network negotiation (net/event) ----

// NetEventKind is the outcome reported by the Wi-Fi negotiator.
type NetEventKind uint8

const (
	// MeshFound: an existing mesh network was seen; the unit is joining it.
	MeshFound NetEventKind = iota + 1
	// Joined: the station join completed; the unit must now ask for an id.
	Joined
	// NoMesh: nothing to join (or the join failed); the unit hosts.
	NoMesh
	// AssignedClient: single-mesh shortcut, the unit is a client with ClientID.
	AssignedClient
)

func (k NetEventKind) String() string {
	switch k {
	case MeshFound:
		return "mesh_found"
	case Joined:
		return "joined"
	case NoMesh:
		return "no_mesh"
	case AssignedClient:
		return "assigned_client"
	}
	return "unknown"
}

type NetworkEvent struct {
	Kind     NetEventKind `json:"kind"`
	ClientID uint32       `json:"client_id,omitempty"`
}

// ---- Coordinator state (mesh/state, retained) ----

type MeshState struct {
	Mode      string  `json:"mode"`
	ID        uint32  `json:"id,omitempty"`
	Peers     int     `json:"peers"`
	NextID    uint32  `json:"next_id,omitempty"`
	Round     string  `json:"round,omitempty"`
	Active    bool    `json:"active"`
	Intensity float32 `json:"intensity"`
	Tick      uint32  `json:"tick"`
}

// ---- Sensor diagnostics (sensor/state, retained) ----

type SensorState struct {
	Jolt    float32 `json:"jolt"`
	Emitted uint32  `json:"emitted"`
	Dropped uint32  `json:"dropped"`
}
