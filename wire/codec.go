package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"shadowswap/game"
)

const (
	MaxFrameSize = 512
	HeaderSize   = 5 // tag (1) + tick (4)

	float32Size = 4
	vec2Size    = float32Size * 2
)

// Header in front of every frame. Use only with Marshal/Unmarshal to get the packed layout.
type Header struct {
	Tag  Tag    // +0 (1)
	Tick uint32 // +1..+4
}

func (h *Header) Unmarshal(b []byte) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("frame header is shorter than %d bytes", HeaderSize)
	}
	h.Tag = b[0]
	h.Tick = binary.LittleEndian.Uint32(b[1:5])
	return nil
}

func (h *Header) Marshal(b []byte) {
	b[0] = h.Tag
	binary.LittleEndian.PutUint32(b[1:5], h.Tick)
}

var (
	ErrMalformed      = errors.New("malformed frame")
	ErrUnknownVariant = errors.New("unknown message variant")
)

// DecodeError describes a dropped datagram. It matches ErrMalformed or
// ErrUnknownVariant through errors.Is.
type DecodeError struct {
	Kind   error
	Tag    Tag
	Length int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v (tag = %s, length = %d): %s", e.Kind, TagToString(e.Tag), e.Length, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}

// FrameSize returns the encoded size of a message.
func FrameSize(m Message) int {
	return HeaderSize + m.payloadSize()
}

// Encode packs a message into a new frame.
func Encode(m Message) []byte {
	b := make([]byte, FrameSize(m))
	h := Header{Tag: m.GetTag(), Tick: m.GetTick()}
	h.Marshal(b[:HeaderSize])
	m.marshalPayload(b[HeaderSize:])
	return b
}

// Decode parses one frame. The caller is expected to drop the datagram on error.
func Decode(b []byte) (Message, error) {
	var h Header
	if err := h.Unmarshal(b); err != nil {
		return nil, &DecodeError{Kind: ErrMalformed, Length: len(b), Reason: err.Error()}
	}

	builder, exists := messagesRegistry[h.Tag]
	if !exists {
		return nil, &DecodeError{Kind: ErrUnknownVariant, Tag: h.Tag, Length: len(b), Reason: "no such tag"}
	}

	m := builder()
	want := HeaderSize + m.payloadSize()
	if len(b) != want {
		return nil, &DecodeError{
			Kind:   ErrMalformed,
			Tag:    h.Tag,
			Length: len(b),
			Reason: fmt.Sprintf("length mismatch (had = %d, expected = %d)", len(b), want),
		}
	}

	if err := m.unmarshalPayload(b[HeaderSize:]); err != nil {
		return nil, &DecodeError{Kind: ErrMalformed, Tag: h.Tag, Length: len(b), Reason: err.Error()}
	}
	m.setTick(h.Tick)
	return m, nil
}

// TickNewer reports whether tick a comes after tick b, allowing the counter to wrap.
func TickNewer(a, b uint32) bool {
	return int32(a-b) > 0
}

func putFloat32(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}

func readFloat32(b []byte) (float32, error) {
	f := math.Float32frombits(binary.LittleEndian.Uint32(b))
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return 0, fmt.Errorf("non-finite float")
	}
	return f, nil
}

func putVec2(b []byte, v game.Vec2) {
	putFloat32(b, v.X)
	putFloat32(b[float32Size:], v.Y)
}

func readVec2(b []byte) (v game.Vec2, err error) {
	if v.X, err = readFloat32(b); err != nil {
		return v, err
	}
	v.Y, err = readFloat32(b[float32Size:])
	return v, err
}

func readPlayer(b byte) (game.PlayerID, error) {
	id := game.PlayerID(b)
	if !id.Valid() {
		return 0, fmt.Errorf("invalid player id %d", b)
	}
	return id, nil
}
