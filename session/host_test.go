package session

import (
	"shadowswap/game"
	"shadowswap/wire"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDt = float32(1.0 / 60.0)

func playingHost(t *testing.T) *Host {
	t.Helper()
	h := NewHost()
	h.IngestRemoteMessage(&wire.PlayerUpdate{Tick: 1, Player: game.ClientPlayer, Position: game.PlayerSpawn(game.ClientPlayer)})
	require.Equal(t, game.PhasePlaying, h.Snapshot().Match.Phase)
	return h
}

func countTags(msgs []wire.Message) map[wire.Tag]int {
	counts := make(map[wire.Tag]int)
	for _, m := range msgs {
		counts[m.GetTag()]++
	}
	return counts
}

func TestHostBeginsOnFirstClientUpdate(t *testing.T) {
	h := NewHost()
	assert.Equal(t, game.PhaseSetup, h.Snapshot().Match.Phase)

	// A datagram claiming to be about the host's own character proves nothing.
	h.IngestRemoteMessage(&wire.PlayerUpdate{Tick: 1, Player: game.HostPlayer})
	assert.Equal(t, game.PhaseSetup, h.Snapshot().Match.Phase)

	h.IngestRemoteMessage(&wire.PlayerUpdate{Tick: 2, Player: game.ClientPlayer})
	assert.Equal(t, game.PhasePlaying, h.Snapshot().Match.Phase)
}

func TestHostIgnoresStaleClientIntent(t *testing.T) {
	h := playingHost(t)

	h.IngestRemoteMessage(&wire.PlayerUpdate{Tick: 5, Player: game.ClientPlayer, Velocity: game.Vec2{X: 1}})
	h.IngestRemoteMessage(&wire.PlayerUpdate{Tick: 4, Player: game.ClientPlayer, Velocity: game.Vec2{X: -1}})
	h.Advance(testDt)

	// The client steers the host's shadow.
	shadow := h.Snapshot().Shadows[game.HostPlayer].Position
	assert.InDelta(t, game.ShadowSpawn(game.HostPlayer).X+game.PlayerSpeed*testDt, shadow.X, 1e-3)
	assert.Equal(t, game.ShadowSpawn(game.HostPlayer).Y, shadow.Y)
}

func TestHostIgnoresAdvisoryClientState(t *testing.T) {
	h := playingHost(t)
	before := h.Snapshot()

	h.IngestRemoteMessage(&wire.ShadowUpdate{Tick: 9, Owner: game.HostPlayer, Position: game.Vec2{X: 1, Y: 1}})
	h.IngestRemoteMessage(&wire.ObjectUpdate{Tick: 9, Position: game.Vec2{X: 1, Y: 1}})
	h.IngestRemoteMessage(&wire.ScoreUpdate{Tick: 9, Player: game.ClientPlayer, Score: 2})
	h.IngestRemoteMessage(&wire.PhaseChange{Tick: 9, Phase: game.PhaseEnded})

	assert.Equal(t, before, h.Snapshot())
}

func TestHostSwapRequestAppliedOnce(t *testing.T) {
	h := playingHost(t)

	for i := 0; i < RequestRepeat; i++ {
		h.IngestRemoteMessage(&wire.SwapRequest{Tick: 7, Player: game.ClientPlayer})
	}
	h.Advance(testDt)
	h.Advance(testDt)

	s := h.Snapshot()
	assert.Equal(t, game.ShadowSpawn(game.ClientPlayer), s.Players[game.ClientPlayer].Position)
	assert.Equal(t, game.PlayerSpawn(game.ClientPlayer), s.Shadows[game.ClientPlayer].Position)
	assert.Equal(t, game.PlayerSpawn(game.HostPlayer), s.Players[game.HostPlayer].Position)

	// A new press swaps back.
	h.IngestRemoteMessage(&wire.SwapRequest{Tick: 8, Player: game.ClientPlayer})
	h.Advance(testDt)
	assert.Equal(t, game.PlayerSpawn(game.ClientPlayer), h.Snapshot().Players[game.ClientPlayer].Position)
}

func TestHostCountsSwapPressesWithinOneTick(t *testing.T) {
	h := playingHost(t)

	h.IngestRemoteMessage(&wire.SwapRequest{Tick: 7, Player: game.ClientPlayer})
	h.IngestRemoteMessage(&wire.SwapRequest{Tick: 8, Player: game.ClientPlayer})
	h.IngestRemoteMessage(&wire.SwapRequest{Tick: 7, Player: game.ClientPlayer})
	h.Advance(testDt)
	assert.Equal(t, game.PlayerSpawn(game.ClientPlayer), h.Snapshot().Players[game.ClientPlayer].Position)

	h.ApplyLocalInput(LocalInput{Swap: true})
	h.ApplyLocalInput(LocalInput{Swap: true})
	h.Advance(testDt)
	assert.Equal(t, game.PlayerSpawn(game.HostPlayer), h.Snapshot().Players[game.HostPlayer].Position)

	h.ApplyLocalInput(LocalInput{Swap: true})
	h.ApplyLocalInput(LocalInput{Swap: true})
	h.ApplyLocalInput(LocalInput{Swap: true})
	h.Advance(testDt)
	assert.Equal(t, game.ShadowSpawn(game.HostPlayer), h.Snapshot().Players[game.HostPlayer].Position)
}

func TestHostLocalSwap(t *testing.T) {
	h := playingHost(t)
	h.ApplyLocalInput(LocalInput{Swap: true})
	h.Advance(testDt)
	h.Advance(testDt)

	s := h.Snapshot()
	assert.Equal(t, game.ShadowSpawn(game.HostPlayer), s.Players[game.HostPlayer].Position)
	assert.Equal(t, game.PlayerSpawn(game.HostPlayer), s.Shadows[game.HostPlayer].Position)
}

func endMatch(h *Host) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.Match.Phase = game.PhaseEnded
	h.state.Match.Scores = [game.PlayerCount]uint8{game.WinThreshold, 1}
}

func TestHostResetRequest(t *testing.T) {
	h := playingHost(t)

	// Only an ended match can be reset.
	h.IngestRemoteMessage(&wire.ResetRequest{Tick: 10})
	assert.Equal(t, game.PhasePlaying, h.Snapshot().Match.Phase)

	endMatch(h)
	h.IngestRemoteMessage(&wire.ResetRequest{Tick: 10})
	assert.Equal(t, game.PhaseEnded, h.Snapshot().Match.Phase, "tick 10 was already used")

	h.IngestRemoteMessage(&wire.ResetRequest{Tick: 11})
	s := h.Snapshot()
	assert.Equal(t, game.PhaseSetup, s.Match.Phase)
	assert.Equal(t, [game.PlayerCount]uint8{0, 0}, s.Match.Scores)

	// The next client update restarts play.
	h.IngestRemoteMessage(&wire.PlayerUpdate{Tick: 12, Player: game.ClientPlayer})
	assert.Equal(t, game.PhasePlaying, h.Snapshot().Match.Phase)
}

func TestHostOutboundBundle(t *testing.T) {
	h := playingHost(t)

	h.Advance(testDt)
	first := countTags(h.ProduceOutboundMessages())
	assert.Equal(t, map[wire.Tag]int{
		wire.TagPhaseChange:   1,
		wire.TagScoreUpdate:   2,
		wire.TagPlayerUpdate:  2,
		wire.TagShadowUpdate:  2,
		wire.TagObjectUpdate:  1,
		wire.TagInverseUpdate: 1,
	}, first)

	h.Advance(testDt)
	second := countTags(h.ProduceOutboundMessages())
	assert.Zero(t, second[wire.TagPhaseChange])
	assert.Zero(t, second[wire.TagScoreUpdate])
	assert.Equal(t, 2, second[wire.TagPlayerUpdate])

	for h.Snapshot().Tick < ResendInterval-1 {
		h.Advance(testDt)
		h.ProduceOutboundMessages()
	}
	h.Advance(testDt)
	healed := countTags(h.ProduceOutboundMessages())
	assert.Equal(t, 1, healed[wire.TagPhaseChange])
	assert.Equal(t, 2, healed[wire.TagScoreUpdate])
}

func TestHostBundleTicksAndOrder(t *testing.T) {
	h := playingHost(t)
	h.Advance(testDt)
	msgs := h.ProduceOutboundMessages()

	require.NotEmpty(t, msgs)
	assert.Equal(t, wire.TagPhaseChange, msgs[0].GetTag())
	for _, m := range msgs {
		assert.Equal(t, h.Snapshot().Tick, m.GetTick())
		assert.LessOrEqual(t, len(wire.Encode(m)), wire.MaxFrameSize)
	}
}

func TestHostResetEcho(t *testing.T) {
	h := playingHost(t)
	endMatch(h)

	h.ApplyLocalInput(LocalInput{Reset: true})
	assert.Equal(t, game.PhaseSetup, h.Snapshot().Match.Phase)

	var echoTicks []uint32
	for i := 0; i < RequestRepeat+1; i++ {
		h.Advance(testDt)
		for _, m := range h.ProduceOutboundMessages() {
			if m.GetTag() == wire.TagResetRequest {
				echoTicks = append(echoTicks, m.GetTick())
			}
		}
	}

	require.Len(t, echoTicks, RequestRepeat)
	assert.Equal(t, echoTicks[0], echoTicks[1])
	assert.Equal(t, echoTicks[0], echoTicks[2])
}

func TestHostPeerTimedOutClearsIntent(t *testing.T) {
	h := playingHost(t)
	h.IngestRemoteMessage(&wire.PlayerUpdate{Tick: 2, Player: game.ClientPlayer, Velocity: game.Vec2{Y: 1}})
	h.PeerTimedOut()
	h.Advance(testDt)

	assert.Equal(t, game.ShadowSpawn(game.HostPlayer), h.Snapshot().Shadows[game.HostPlayer].Position)
}
