package protocol

import (
	"bytes"
	"math"

	"ledswarm-go/errcode"

	"github.com/vmihailenco/msgpack/v5"
)

// Magic prefixes every encoded frame so stray radio noise is rejected
// before the msgpack body is even looked at.
const Magic byte = 0xA7

// MaxFrameLen bounds an encoded frame; the largest variant is well under it.
const MaxFrameLen = 32

// Encode serialises f as Magic followed by a msgpack array:
//
//	[kind]              JoinRequest
//	[kind, assigned_id] JoinResponse
//	[kind, value]       SetBrightness, AccelerometerJoltDelta
//	[kind, game]        StartRound
//
// Frames that no constructor produces (unknown kind or game, fields that do
// not belong to the kind) are refused, so Decode(Encode(f)) == f whenever
// Encode succeeds.
func Encode(f Frame) ([]byte, error) {
	if !f.canonical() {
		return nil, &errcode.E{C: errcode.InvalidPayload, Op: "encode", Msg: "not a wire frame: " + f.String()}
	}
	var buf bytes.Buffer
	buf.Grow(12)
	buf.WriteByte(Magic)
	enc := msgpack.NewEncoder(&buf)

	// Writes into a bytes.Buffer do not fail.
	switch f.Kind {
	case KindJoinResponse:
		_ = enc.EncodeArrayLen(2)
		_ = enc.EncodeUint8(uint8(f.Kind))
		_ = enc.EncodeUint32(f.AssignedID)
	case KindSetBrightness, KindJoltDelta:
		_ = enc.EncodeArrayLen(2)
		_ = enc.EncodeUint8(uint8(f.Kind))
		_ = enc.EncodeFloat32(f.Value)
	case KindStartRound:
		_ = enc.EncodeArrayLen(2)
		_ = enc.EncodeUint8(uint8(f.Kind))
		_ = enc.EncodeUint8(uint8(f.Game))
	default:
		_ = enc.EncodeArrayLen(1)
		_ = enc.EncodeUint8(uint8(f.Kind))
	}
	return buf.Bytes(), nil
}

// Decode parses bytes produced by Encode. Any deviation, including trailing
// bytes, yields an *errcode.E with code MalformedFrame.
func Decode(b []byte) (Frame, error) {
	if len(b) < 2 || len(b) > MaxFrameLen {
		return Frame{}, malformed("bad length", nil)
	}
	if b[0] != Magic {
		return Frame{}, malformed("bad magic", nil)
	}
	r := bytes.NewReader(b[1:])
	dec := msgpack.NewDecoder(r)

	n, err := dec.DecodeArrayLen()
	if err != nil {
		return Frame{}, malformed("header", err)
	}
	k, err := dec.DecodeUint64()
	if err != nil {
		return Frame{}, malformed("kind", err)
	}
	if k == uint64(KindInvalid) || k >= uint64(kindEnd) {
		return Frame{}, malformed("unknown kind", nil)
	}
	f := Frame{Kind: Kind(k)}

	want := 2
	if f.Kind == KindJoinRequest {
		want = 1
	}
	if n != want {
		return Frame{}, malformed("field count", nil)
	}

	switch f.Kind {
	case KindJoinResponse:
		id, err := dec.DecodeUint64()
		if err != nil {
			return Frame{}, malformed("assigned_id", err)
		}
		if id > math.MaxUint32 {
			return Frame{}, malformed("assigned_id range", nil)
		}
		f.AssignedID = uint32(id)
	case KindSetBrightness, KindJoltDelta:
		v, err := dec.DecodeFloat32()
		if err != nil {
			return Frame{}, malformed("value", err)
		}
		f.Value = v
	case KindStartRound:
		g, err := dec.DecodeUint64()
		if err != nil {
			return Frame{}, malformed("game", err)
		}
		if g > math.MaxUint8 || !GameMode(g).known() {
			return Frame{}, malformed("unknown game", nil)
		}
		f.Game = GameMode(g)
	}

	if r.Len() != 0 {
		return Frame{}, malformed("trailing bytes", nil)
	}
	return f, nil
}

func malformed(msg string, cause error) error {
	e := &errcode.E{C: errcode.MalformedFrame, Op: "decode", Msg: msg, Err: cause}
	if cause != nil {
		e.Msg += ": " + cause.Error()
	}
	return e
}
