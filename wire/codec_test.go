package wire

import (
	"errors"
	"fmt"
	"math"
	"shadowswap/game"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allVariants() []Message {
	return []Message{
		&PlayerUpdate{Tick: 100, Player: game.ClientPlayer, Position: game.Vec2{X: 45, Y: 48}, Velocity: game.Vec2{X: -0.6, Y: 0.8}},
		&ShadowUpdate{Tick: 7, Owner: game.HostPlayer, Position: game.Vec2{X: 360, Y: 500}},
		&ObjectUpdate{Tick: math.MaxUint32, Position: game.Vec2{X: 600.5, Y: 400.25}, Velocity: game.Vec2{X: -12, Y: 3.5}},
		&ScoreUpdate{Tick: 3, Player: game.ClientPlayer, Score: 2},
		&PhaseChange{Tick: 42, Phase: game.PhaseEnded},
		&ResetRequest{Tick: 9000},
		&SwapRequest{Tick: 12, Player: game.HostPlayer},
		&InverseUpdate{Tick: 61, Active: true, Remaining: 4.75},
	}
}

func TestRoundTripEveryVariant(t *testing.T) {
	for _, original := range allVariants() {
		t.Run(TagToString(original.GetTag()), func(t *testing.T) {
			frame := Encode(original)
			assert.Equal(t, FrameSize(original), len(frame))
			assert.LessOrEqual(t, len(frame), MaxFrameSize)

			decoded, err := Decode(frame)
			require.NoError(t, err)
			assert.Equal(t, original, decoded)
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	for _, m := range allVariants() {
		assert.Equal(t, Encode(m), Encode(m))
	}
}

func TestFrameLayout(t *testing.T) {
	frame := Encode(&ScoreUpdate{Tick: 0x01020304, Player: game.ClientPlayer, Score: 3})
	assert.Equal(t, []byte{TagScoreUpdate, 0x04, 0x03, 0x02, 0x01, 0x01, 0x03}, frame)
}

func TestDecodeTruncatedFrameIsMalformed(t *testing.T) {
	frame := Encode(&PlayerUpdate{Tick: 1})
	for n := 0; n < len(frame); n++ {
		_, err := Decode(frame[:n])
		require.Error(t, err, fmt.Sprintf("length %d", n))
		assert.True(t, errors.Is(err, ErrMalformed))

		var decodeErr *DecodeError
		assert.True(t, errors.As(err, &decodeErr))
		assert.Equal(t, n, decodeErr.Length)
	}
}

func TestDecodeTrailingBytesIsMalformed(t *testing.T) {
	frame := append(Encode(&PhaseChange{Tick: 1, Phase: game.PhasePlaying}), 0x00)
	_, err := Decode(frame)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestDecodeMismatchedTagIsMalformed(t *testing.T) {
	// A shadow frame relabelled as an object frame has the wrong length for its tag.
	frame := Encode(&ShadowUpdate{Tick: 1, Position: game.Vec2{X: 1, Y: 2}})
	frame[0] = TagObjectUpdate
	_, err := Decode(frame)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestDecodeUnknownTag(t *testing.T) {
	_, err := Decode([]byte{0xEE, 0, 0, 0, 0})
	assert.True(t, errors.Is(err, ErrUnknownVariant))
	assert.False(t, errors.Is(err, ErrMalformed))
}

func TestDecodeRejectsInvalidFields(t *testing.T) {
	badPlayer := Encode(&ScoreUpdate{Tick: 1, Player: game.HostPlayer})
	badPlayer[HeaderSize] = 2

	badPhase := Encode(&PhaseChange{Tick: 1})
	badPhase[HeaderSize] = 9

	badBool := Encode(&InverseUpdate{Tick: 1})
	badBool[HeaderSize] = 7

	nan := Encode(&ObjectUpdate{Tick: 1})
	putFloat32(nan[HeaderSize:], float32(math.NaN()))

	for name, frame := range map[string][]byte{
		"player": badPlayer,
		"phase":  badPhase,
		"bool":   badBool,
		"nan":    nan,
	} {
		_, err := Decode(frame)
		assert.True(t, errors.Is(err, ErrMalformed), name)
	}
}

func TestTickNewerWraps(t *testing.T) {
	assert.True(t, TickNewer(2, 1))
	assert.False(t, TickNewer(1, 2))
	assert.False(t, TickNewer(5, 5))
	assert.True(t, TickNewer(3, math.MaxUint32-2))
}
