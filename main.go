package main

import (
	"context"
	"time"

	"ledswarm-go/errcode"
	"ledswarm-go/platform"
	"ledswarm-go/services/config"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot", platform.Device)

	ctx := context.Background()

	cfg, err := config.Load(platform.Device, nil)
	if err != nil {
		fatal(err)
	}

	hw, err := platform.Open(ctx, cfg)
	if err != nil {
		fatal(err)
	}

	u := platform.NewUnit("unit", cfg, hw)
	platform.AttachServices(u)
	println("[main] running")
	if err := u.Run(ctx); err != nil {
		fatal(err)
	}
}

// fatal halts the unit; on the board the panic resets it.
func fatal(err error) {
	println("[main] fatal:", string(errcode.Of(err)), err.Error())
	panic(err)
}
