package session

import (
	"shadowswap/game"
	"shadowswap/wire"
)

const (
	// ResendInterval is how often, in ticks, the host repeats score and phase even when unchanged.
	ResendInterval = 30
	// RequestRepeat is how many consecutive ticks a swap or reset press is sent for.
	RequestRepeat = 3
	// SnapDistance is how far a predicted entity may drift from the host's copy before it snaps.
	SnapDistance float32 = 40
	// SwapHoldTicks is how long a predicted swap wins over host updates that predate it.
	SwapHoldTicks = 12
)

// LocalInput is what the local player is doing right now. Direction is held state,
// Swap and Reset are presses.
type LocalInput struct {
	Direction game.Vec2
	Swap      bool
	Reset     bool
}

// Role is one side of a session. Implementations are safe for concurrent use:
// the tick loop drives them while the viewer reads snapshots and feeds input.
type Role interface {
	PlayerID() game.PlayerID
	ApplyLocalInput(in LocalInput)
	IngestRemoteMessage(msg wire.Message)
	Advance(dt float32)
	ProduceOutboundMessages() []wire.Message
	Snapshot() game.State
	// PeerTimedOut is called once when the peer has been silent for too long.
	PeerTimedOut()
}

func sanitizeDirection(v game.Vec2) game.Vec2 {
	if !v.IsFinite() {
		return game.Vec2{}
	}
	return v.Normalized()
}

// entityOf returns the id a message's staleness is tracked under.
func entityOf(msg wire.Message) uint8 {
	switch m := msg.(type) {
	case *wire.PlayerUpdate:
		return uint8(m.Player)
	case *wire.ShadowUpdate:
		return uint8(m.Owner)
	case *wire.ScoreUpdate:
		return uint8(m.Player)
	case *wire.SwapRequest:
		return uint8(m.Player)
	default:
		return 0
	}
}
