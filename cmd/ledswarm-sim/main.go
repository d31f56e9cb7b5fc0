// Command ledswarm-sim runs several units on one in-memory radio medium and
// Wi-Fi air, driven from an interactive shell.
package main

import (
	"errors"
	"io/fs"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"ledswarm-go/platform"
	"ledswarm-go/services/config"
	"ledswarm-go/services/heartbeat"
	"ledswarm-go/x/conv"
)

type options struct {
	Units int  `env:"LEDSWARM_SIM_UNITS" envDefault:"0"`
	HTTP  bool `env:"LEDSWARM_SIM_HTTP" envDefault:"false"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		println("[sim] .env:", err.Error())
	}
	var opts options
	if err := env.Parse(&opts); err != nil {
		panic(err)
	}
	cfg, err := config.Load(platform.Device, nil)
	if err != nil {
		panic(err)
	}

	swarm := NewSwarm(cfg, opts.HTTP)
	defer swarm.Close()
	for i := 0; i < opts.Units; i++ {
		swarm.Add()
	}

	shell := ishell.New()
	shell.Println("LEDswarm simulator")
	shell.ShowPrompt(true)
	register(shell, swarm)
	shell.Run()
	shell.Close()
}

func register(shell *ishell.Shell, swarm *Swarm) {
	shell.AddCmd(&ishell.Cmd{
		Name: "add",
		Help: "add a unit",
		Func: func(c *ishell.Context) {
			c.Println("added", swarm.Add())
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "list",
		Help: "list units and their modes",
		Func: func(c *ishell.Context) {
			for _, name := range swarm.Names() {
				st, _ := swarm.State(name)
				c.Println(name, st.Mode)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "state",
		Help: "state <unit>",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errors.New("usage: state <unit>"))
				return
			}
			st, err := swarm.State(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(heartbeat.Line(st), "intensity="+conv.Ftoa(float64(st.Intensity), 2))
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "brightness",
		Help: "brightness <unit> <0..1>",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 2 {
				c.Err(errors.New("usage: brightness <unit> <0..1>"))
				return
			}
			v, err := strconv.ParseFloat(c.Args[1], 32)
			if err != nil {
				c.Err(err)
				return
			}
			if err := swarm.Brightness(c.Args[0], float32(v)); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "start",
		Help: "start <unit>: start a LastOneStanding round",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errors.New("usage: start <unit>"))
				return
			}
			if err := swarm.Start(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "shake",
		Help: "shake <unit> <g>",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 2 {
				c.Err(errors.New("usage: shake <unit> <g>"))
				return
			}
			g, err := strconv.ParseFloat(c.Args[1], 32)
			if err != nil {
				c.Err(err)
				return
			}
			if err := swarm.Shake(c.Args[0], float32(g)); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "still",
		Help: "still <unit>",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errors.New("usage: still <unit>"))
				return
			}
			if err := swarm.Still(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "quit",
		Help: "stop all units and exit",
		Func: func(c *ishell.Context) {
			c.Stop()
		},
	})
}
