//go:build rp2040

// Command boardtest walks the LED ring through every mode animation and then
// prints accelerometer jolt readings, to check a freshly assembled unit.
package main

import (
	"context"
	"time"

	"ledswarm-go/errcode"
	"ledswarm-go/platform"
	"ledswarm-go/services/config"
	"ledswarm-go/services/led"
	"ledswarm-go/services/sensor"
	"ledswarm-go/x/conv"
)

// ---------- Configuration ----------

const (
	dwell      = 2 * time.Second
	tick       = time.Millisecond
	joltWindow = 10 * time.Second
	// Cycles: 0 = loop forever
	cyclesToRun = 0
)

var sequence = []struct {
	name string
	tl   led.Timeline
}{
	{"discovery", led.DiscoveryTimeline()},
	{"connecting", led.ConnectingTimeline()},
	{"client", led.ClientTimeline()},
	{"master", led.MasterTimeline()},
	{"meditation", led.MeditationTimeline()},
}

func main() {
	time.Sleep(2 * time.Second)
	println("[boardtest] boot")

	cfg, err := config.Load(platform.Device, nil)
	if err != nil {
		fail(err)
	}
	hw, err := platform.Open(context.Background(), cfg)
	if err != nil {
		fail(err)
	}
	strip := led.NewStrip(hw.LEDs, cfg.LED.InitialIntensity)

	for cycle := 1; cyclesToRun == 0 || cycle <= cyclesToRun; cycle++ {
		println("[boardtest] cycle", cycle)
		for _, s := range sequence {
			println("[boardtest] led:", s.name)
			play(strip, s.tl)
		}
		println("[boardtest] indicator sweep")
		ind := led.NewIndicator(cfg.Game.JoltThreshold)
		for j := 0; j <= 20; j++ {
			_ = strip.Show(ind.Color(float32(j) / 100))
			time.Sleep(100 * time.Millisecond)
		}
		println("[boardtest] shake the unit")
		jolts(hw.Accel)
	}
}

func play(strip *led.Strip, tl led.Timeline) {
	end := time.Now().Add(dwell)
	for t := uint32(0); time.Now().Before(end); t++ {
		if err := strip.Show(tl.At(t)); err != nil {
			fail(err)
		}
		time.Sleep(tick)
	}
}

func jolts(acc sensor.Accelerometer) {
	var avg sensor.MovingAverage
	gate := sensor.JoltGate{Threshold: sensor.DefaultNoiseThreshold}
	end := time.Now().Add(joltWindow)
	for time.Now().Before(end) {
		v, err := acc.Read()
		if err != nil {
			fail(err)
		}
		avg.Add(v)
		if a := avg.Average(); gate.Offer(a) {
			println("[boardtest] jolt=" + conv.Ftoa(float64(a), 2))
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func fail(err error) {
	println("[boardtest] FAIL:", string(errcode.Of(err)), err.Error())
	for {
		time.Sleep(time.Second)
	}
}
