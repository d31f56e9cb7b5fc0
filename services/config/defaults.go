package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID. Val: YAML document for that device. Anything a document
// leaves out keeps its zero value and is filled in by Normalize.
// -----------------------------------------------------------------------------

const cfgPico = `
led:
  initial_intensity: 0.3
  pixels: 7
  pin: 20
mesh:
  ssid: LEDswarm
  password: LEDswarm
  join_timeout: 30s
  tick_interval: 1ms
  probe_interval: 1s
game:
  jolt_threshold: 0.2
sensor:
  sample_interval: 2ms
  noise_threshold: 0.02
  i2c_sda: 4
  i2c_scl: 5
radio:
  port: uart0
  baud_rate: 115200
  tx: 0
  rx: 1
  send_timeout: 50ms
  receive_timeout: 20ms
  idle: 1ms
bus:
  queue_len: 256
heartbeat:
  interval: 2s
`

const cfgHost = `
led:
  initial_intensity: 0.3
  pixels: 7
mesh:
  ssid: LEDswarm
  password: LEDswarm
  join_timeout: 2s
  tick_interval: 1ms
game:
  jolt_threshold: 0.2
sensor:
  sample_interval: 2ms
  noise_threshold: 0.02
radio:
  send_timeout: 50ms
  receive_timeout: 20ms
  idle: 1ms
bus:
  queue_len: 256
http:
  addr: ":8080"
heartbeat:
  interval: 2s
`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"host": []byte(cfgHost),
}
