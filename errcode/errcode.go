package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	Timeout        Code = "timeout"
	TooLarge       Code = "too_large"

	// Radio link
	MalformedFrame Code = "malformed_frame"
	RadioInit      Code = "radio_init"
	RadioCycle     Code = "radio_cycle"

	// Peripherals
	SensorFault Code = "sensor_fault"
	LEDInit     Code = "led_init"

	// Network negotiation
	NetworkScan Code = "network_scan"
	NetworkHost Code = "network_host"

	Error Code = "error" // generic fallback
)

// E wraps a Code when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap builds an *E for op with the given code and cause.
func Wrap(c Code, op string, err error) *E {
	e := &E{C: c, Op: op, Err: err}
	if err != nil {
		e.Msg = err.Error()
	}
	return e
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		if inner := u.Unwrap(); inner != nil {
			return Of(inner)
		}
	}
	return Error
}

// Fatal reports whether a code belongs to the unrecoverable class: the
// unit is expected to halt and restart rather than continue.
func Fatal(c Code) bool {
	switch c {
	case SensorFault, RadioInit, LEDInit, NetworkHost:
		return true
	}
	return false
}
