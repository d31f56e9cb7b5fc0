package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"

	"ledswarm-go/errcode"
)

// Client commands arrive from browsers as externally tagged JSON objects:
//
//	{"SetBrightness": 0.5}   or   {"SetBrightness": "0.5"}
//	{"StartRound": "LastOneStanding"}

// ParseClientJSON decodes exactly one client command.
func ParseClientJSON(b []byte) (Frame, error) {
	var obj map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&obj); err != nil {
		return Frame{}, errcode.Wrap(errcode.InvalidPayload, "json", err)
	}
	if dec.More() {
		return Frame{}, &errcode.E{C: errcode.InvalidPayload, Op: "json", Msg: "trailing data"}
	}
	if len(obj) != 1 {
		return Frame{}, &errcode.E{C: errcode.InvalidPayload, Op: "json", Msg: "want exactly one command"}
	}
	for tag, raw := range obj {
		switch tag {
		case "SetBrightness":
			v, err := parseBrightness(raw)
			if err != nil {
				return Frame{}, errcode.Wrap(errcode.InvalidPayload, "json", err)
			}
			return SetBrightness(v), nil
		case "StartRound":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return Frame{}, errcode.Wrap(errcode.InvalidPayload, "json", err)
			}
			g, ok := ParseGameMode(s)
			if !ok {
				return Frame{}, &errcode.E{C: errcode.InvalidPayload, Op: "json", Msg: "unknown game " + s}
			}
			return StartRound(g), nil
		default:
			return Frame{}, &errcode.E{C: errcode.Unsupported, Op: "json", Msg: "unknown command " + tag}
		}
	}
	return Frame{}, errcode.InvalidPayload
}

// parseBrightness accepts a JSON number or a string holding one.
func parseBrightness(raw json.RawMessage) (float32, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return float32(n), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	n, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	return float32(n), nil
}

// MarshalClientJSON renders a client command in the same tagged form.
func MarshalClientJSON(f Frame) ([]byte, error) {
	switch f.Kind {
	case KindSetBrightness:
		return json.Marshal(map[string]float32{"SetBrightness": f.Value})
	case KindStartRound:
		return json.Marshal(map[string]string{"StartRound": f.Game.String()})
	}
	return nil, &errcode.E{C: errcode.Unsupported, Op: "json", Msg: f.Kind.String() + " is not a client command"}
}
