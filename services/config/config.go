package config

import (
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v2"

	"ledswarm-go/bus"
	"ledswarm-go/errcode"
	"ledswarm-go/types"
	"ledswarm-go/x/mathx"
)

const EnvPrefix = "LEDSWARM_"

// Section names double as the retained config/<section> topics.
const (
	SectionLED       = "led"
	SectionMesh      = "mesh"
	SectionGame      = "game"
	SectionSensor    = "sensor"
	SectionRadio     = "radio"
	SectionBus       = "bus"
	SectionHTTP      = "http"
	SectionHeartbeat = "heartbeat"
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

type LED struct {
	InitialIntensity float32 `yaml:"initial_intensity" env:"INITIAL_INTENSITY"`
	Pixels           int     `yaml:"pixels" env:"PIXELS"`
	Pin              uint8   `yaml:"pin" env:"PIN"`
}

type Mesh struct {
	SSID         string        `yaml:"ssid" env:"SSID"`
	Password     string        `yaml:"password" env:"PASSWORD"`
	JoinTimeout  time.Duration `yaml:"join_timeout" env:"JOIN_TIMEOUT"`
	TickInterval time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
	Simplified   bool          `yaml:"simplified" env:"SIMPLIFIED"`

	// ProbeInterval paces radio discovery on boards without Wi-Fi; 0 is off.
	ProbeInterval time.Duration `yaml:"probe_interval" env:"PROBE_INTERVAL"`
}

type Game struct {
	JoltThreshold float32 `yaml:"jolt_threshold" env:"JOLT_THRESHOLD"`
}

type Sensor struct {
	SampleInterval time.Duration `yaml:"sample_interval" env:"SAMPLE_INTERVAL"`
	NoiseThreshold float32       `yaml:"noise_threshold" env:"NOISE_THRESHOLD"`
	SDA            uint8         `yaml:"i2c_sda" env:"I2C_SDA"`
	SCL            uint8         `yaml:"i2c_scl" env:"I2C_SCL"`
}

type Radio struct {
	Port           string        `yaml:"port" env:"PORT"`
	BaudRate       uint32        `yaml:"baud_rate" env:"BAUD_RATE"`
	TX             uint8         `yaml:"tx" env:"TX"`
	RX             uint8         `yaml:"rx" env:"RX"`
	SendTimeout    time.Duration `yaml:"send_timeout" env:"SEND_TIMEOUT"`
	ReceiveTimeout time.Duration `yaml:"receive_timeout" env:"RECEIVE_TIMEOUT"`
	Idle           time.Duration `yaml:"idle" env:"IDLE"`
}

type Bus struct {
	QueueLen int `yaml:"queue_len" env:"QUEUE_LEN"`
}

type HTTP struct {
	Addr        string `yaml:"addr" env:"ADDR"`
	LogRequests bool   `yaml:"log_requests" env:"LOG_REQUESTS"`
}

type Heartbeat struct {
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

// Config is the whole unit configuration.
type Config struct {
	LED       LED       `yaml:"led" envPrefix:"LED_"`
	Mesh      Mesh      `yaml:"mesh" envPrefix:"MESH_"`
	Game      Game      `yaml:"game" envPrefix:"GAME_"`
	Sensor    Sensor    `yaml:"sensor" envPrefix:"SENSOR_"`
	Radio     Radio     `yaml:"radio" envPrefix:"RADIO_"`
	Bus       Bus       `yaml:"bus" envPrefix:"BUS_"`
	HTTP      HTTP      `yaml:"http" envPrefix:"HTTP_"`
	Heartbeat Heartbeat `yaml:"heartbeat" envPrefix:"HEARTBEAT_"`
}

// Parse decodes a YAML document strictly.
func Parse(raw []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(raw, &c); err != nil {
		return Config{}, errcode.Wrap(errcode.InvalidPayload, "config", err)
	}
	return c, nil
}

// Load resolves the embedded document for device, applies LEDSWARM_*
// overrides from environ (the process environment when nil) and normalises
// the result.
func Load(device string, environ map[string]string) (Config, error) {
	if device == "" {
		return Config{}, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "missing device"}
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return Config{}, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "no embedded config for device: " + device}
	}
	c, err := Parse(raw)
	if err != nil {
		return Config{}, err
	}
	if err := env.Parse(&c, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return Config{}, errcode.Wrap(errcode.InvalidParams, "config env", err)
	}
	c.Normalize()
	return c, nil
}

// Normalize clamps values into range and fills in anything left unset.
func (c *Config) Normalize() {
	c.LED.InitialIntensity = mathx.Clamp01(c.LED.InitialIntensity)
	if c.LED.Pixels <= 0 {
		c.LED.Pixels = 7
	}
	if c.Mesh.SSID == "" {
		c.Mesh.SSID = "LEDswarm"
	}
	if c.Mesh.JoinTimeout <= 0 {
		c.Mesh.JoinTimeout = 30 * time.Second
	}
	if c.Mesh.TickInterval <= 0 {
		c.Mesh.TickInterval = time.Millisecond
	}
	if c.Mesh.ProbeInterval < 0 {
		c.Mesh.ProbeInterval = 0
	}
	if !(c.Game.JoltThreshold > 0) {
		c.Game.JoltThreshold = 0.2
	}
	if c.Sensor.SampleInterval <= 0 {
		c.Sensor.SampleInterval = 2 * time.Millisecond
	}
	if !(c.Sensor.NoiseThreshold >= 0) {
		c.Sensor.NoiseThreshold = 0.02
	}
	if c.Radio.BaudRate == 0 {
		c.Radio.BaudRate = 115200
	}
	if c.Radio.SendTimeout <= 0 {
		c.Radio.SendTimeout = 50 * time.Millisecond
	}
	if c.Radio.ReceiveTimeout <= 0 {
		c.Radio.ReceiveTimeout = 20 * time.Millisecond
	}
	if c.Radio.Idle <= 0 {
		c.Radio.Idle = time.Millisecond
	}
	if c.Bus.QueueLen <= 0 {
		c.Bus.QueueLen = 256
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":80"
	}
	if c.Heartbeat.Interval <= 0 {
		c.Heartbeat.Interval = 2 * time.Second
	}
}

// Sections lists every section with its payload, in publication order.
func (c Config) Sections() []Section {
	return []Section{
		{SectionLED, c.LED},
		{SectionMesh, c.Mesh},
		{SectionGame, c.Game},
		{SectionSensor, c.Sensor},
		{SectionRadio, c.Radio},
		{SectionBus, c.Bus},
		{SectionHTTP, c.HTTP},
		{SectionHeartbeat, c.Heartbeat},
	}
}

type Section struct {
	Name    string
	Payload any
}

// Publish emits every section of c as a retained config/<section> message.
func Publish(conn *bus.Connection, c Config) {
	for _, sec := range c.Sections() {
		conn.Publish(conn.NewMessage(types.ConfigTopic(sec.Name), sec.Payload, true))
	}
}
