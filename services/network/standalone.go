package network

import "context"

// Standalone is the WiFi of a board without a Wi-Fi chip: it never sees a
// mesh and hosting always succeeds. Such units meet over radio discovery
// (mesh probe_interval) instead.
type Standalone struct{}

func (Standalone) Scan(context.Context) ([]string, error) { return nil, nil }

func (Standalone) Join(context.Context, string, string) error { return errNoNetwork }

func (Standalone) Host(context.Context, string, string) error { return nil }
