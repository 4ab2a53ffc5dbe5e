package session

import (
	"go.uber.org/zap"
	"shadowswap/applog"
	"shadowswap/game"
	"shadowswap/wire"
	"sync"
)

// Host owns the authoritative match. The client's datagrams only contribute its intent,
// swap presses and reset requests.
type Host struct {
	mu     sync.Mutex
	state  game.State
	filter *stalenessFilter

	// Input waiting for the next tick. Each swap press is counted so none collapse.
	localDir    game.Vec2
	localSwaps  int
	remoteDir   game.Vec2
	remoteSwaps int

	announced      bool
	lastSentScores [game.PlayerCount]uint8
	lastSentPhase  game.Phase

	resetEcho int
	resetTick uint32
}

func NewHost() *Host {
	return &Host{
		state:  game.NewState(),
		filter: newStalenessFilter(),
	}
}

func (h *Host) PlayerID() game.PlayerID {
	return game.HostPlayer
}

func (h *Host) ApplyLocalInput(in LocalInput) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.localDir = sanitizeDirection(in.Direction)
	if in.Swap && h.state.Match.Phase == game.PhasePlaying {
		h.localSwaps++
	}
	if in.Reset {
		h.reset("local")
	}
}

func (h *Host) IngestRemoteMessage(msg wire.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch m := msg.(type) {
	case *wire.PlayerUpdate:
		if m.Player != game.ClientPlayer || !h.filter.Accept(m) {
			return
		}
		h.remoteDir = sanitizeDirection(m.Velocity)
		if err := h.state.Begin(); err == nil {
			applog.Info("Match started", zap.Uint32("tick", h.state.Tick))
		}

	case *wire.SwapRequest:
		if m.Player != game.ClientPlayer || !h.filter.Accept(m) {
			return
		}
		if h.state.Match.Phase == game.PhasePlaying {
			h.remoteSwaps++
		}

	case *wire.ResetRequest:
		if !h.filter.Accept(m) {
			return
		}
		h.reset("remote")

	default:
		// Anything else the client says about shared state is advisory.
	}
}

// reset is a no-op unless the match has ended.
func (h *Host) reset(source string) {
	if err := h.state.Reset(); err != nil {
		return
	}

	h.localSwaps, h.remoteSwaps = 0, 0
	h.resetEcho = RequestRepeat
	applog.Info("Match reset", zap.String("requestedBy", source), zap.Uint32("tick", h.state.Tick))
}

func (h *Host) Advance(dt float32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var inputs game.Inputs
	inputs[game.HostPlayer] = game.Input{Direction: h.localDir, Swaps: h.localSwaps}
	inputs[game.ClientPlayer] = game.Input{Direction: h.remoteDir, Swaps: h.remoteSwaps}
	h.localSwaps, h.remoteSwaps = 0, 0

	before := h.state.Match
	h.state = game.Step(h.state, inputs, dt)
	after := h.state.Match

	for id := game.PlayerID(0); id < game.PlayerCount; id++ {
		if after.Scores[id] != before.Scores[id] {
			applog.Info("Trap scored",
				zap.Stringer("owner", id),
				zap.Uint8("score", after.Scores[id]),
				zap.Uint32("tick", h.state.Tick))
		}
	}
	if before.Inverse.Active != after.Inverse.Active {
		applog.Debug("Inverse control toggled", zap.Bool("active", after.Inverse.Active))
	}
	if before.Phase != game.PhaseEnded && after.Phase == game.PhaseEnded {
		winner, _ := after.Winner()
		applog.Info("Match ended",
			zap.Stringer("winner", winner),
			zap.Uint8s("scores", after.Scores[:]))
	}
}

// ProduceOutboundMessages builds this tick's broadcast. Score and phase go first so a
// client applies them before the positions that follow in the same tick.
func (h *Host) ProduceOutboundMessages() []wire.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := &h.state
	tick := s.Tick
	heal := !h.announced || tick%ResendInterval == 0
	msgs := make([]wire.Message, 0, 12)

	if heal || s.Match.Phase != h.lastSentPhase {
		msgs = append(msgs, &wire.PhaseChange{Tick: tick, Phase: s.Match.Phase})
		h.lastSentPhase = s.Match.Phase
	}
	for id := game.PlayerID(0); id < game.PlayerCount; id++ {
		if heal || s.Match.Scores[id] != h.lastSentScores[id] {
			msgs = append(msgs, &wire.ScoreUpdate{Tick: tick, Player: id, Score: s.Match.Scores[id]})
			h.lastSentScores[id] = s.Match.Scores[id]
		}
	}
	h.announced = true

	if h.resetEcho > 0 {
		if h.resetEcho == RequestRepeat {
			h.resetTick = tick
		}
		msgs = append(msgs, &wire.ResetRequest{Tick: h.resetTick})
		h.resetEcho--
	}

	for id := game.PlayerID(0); id < game.PlayerCount; id++ {
		msgs = append(msgs, &wire.PlayerUpdate{
			Tick:     tick,
			Player:   id,
			Position: s.Players[id].Position,
			Velocity: s.Players[id].Intent,
		})
	}
	for id := game.PlayerID(0); id < game.PlayerCount; id++ {
		msgs = append(msgs, &wire.ShadowUpdate{Tick: tick, Owner: id, Position: s.Shadows[id].Position})
	}
	msgs = append(msgs,
		&wire.ObjectUpdate{Tick: tick, Position: s.Object.Position, Velocity: s.Object.Velocity},
		&wire.InverseUpdate{Tick: tick, Active: s.Match.Inverse.Active, Remaining: s.Match.Inverse.Remaining},
	)
	return msgs
}

func (h *Host) Snapshot() game.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// PeerTimedOut stops applying the client's last intent so its targets do not drift forever.
func (h *Host) PeerTimedOut() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remoteDir = game.Vec2{}
}
