package session

import (
	"go.uber.org/zap"
	"math"
	"shadowswap/applog"
	"shadowswap/game"
	"shadowswap/wire"
	"sync"
)

// hold keeps a locally predicted position alive against host updates until tick `until`,
// as long as the host's value stays within maxDrift of it.
type hold struct {
	set      bool
	until    uint32
	maxDrift float32
}

func (h hold) active(now uint32) bool {
	return h.set && !wire.TickNewer(now, h.until)
}

// pressBurst is a swap or reset press being repeated over several ticks under one tick id.
type pressBurst struct {
	tick      uint32
	remaining int
}

// Client mirrors the host's match and predicts what its own input moves.
type Client struct {
	mu     sync.Mutex
	view   game.State
	filter *stalenessFilter
	tick   uint32

	// Host updates older than epoch belong to a match that has since been reset.
	epoch    uint32
	hasEpoch bool
	heard    bool

	localDir     game.Vec2
	pendingSwaps int
	pendingReset bool
	reset        pressBurst

	// One burst per swap press, oldest first. Each press gets its own id so the
	// host's staleness filter keeps presses apart while dropping the repeats.
	swaps      []pressBurst
	lastSwapID uint32
	hasSwapID  bool

	playerHolds [game.PlayerCount]hold
	shadowHolds [game.PlayerCount]hold
}

func NewClient() *Client {
	return &Client{
		view:   game.NewState(),
		filter: newStalenessFilter(),
	}
}

func (c *Client) PlayerID() game.PlayerID {
	return game.ClientPlayer
}

func (c *Client) ApplyLocalInput(in LocalInput) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.localDir = sanitizeDirection(in.Direction)
	if in.Swap && c.view.Match.Phase == game.PhasePlaying {
		c.pendingSwaps++
	}
	if in.Reset && c.view.Match.Phase == game.PhaseEnded {
		c.pendingReset = true
	}
}

func (c *Client) IngestRemoteMessage(msg wire.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tick := msg.GetTick()
	if c.hasEpoch && wire.TickNewer(c.epoch, tick) {
		return
	}
	if !c.filter.Accept(msg) {
		return
	}
	if !c.heard || wire.TickNewer(tick, c.view.Tick) {
		c.view.Tick = tick
		c.heard = true
	}

	switch m := msg.(type) {
	case *wire.PlayerUpdate:
		c.applyPlayer(m.Player, m.Position)
		c.view.Players[m.Player].Intent = m.Velocity
		if m.Player == game.HostPlayer {
			if err := c.view.Begin(); err == nil {
				applog.Info("Match started", zap.Uint32("hostTick", tick))
			}
		}

	case *wire.ShadowUpdate:
		c.applyShadow(m.Owner, m.Position)

	case *wire.ObjectUpdate:
		c.view.Object = game.ContestedObject{Position: m.Position, Velocity: m.Velocity}

	case *wire.ScoreUpdate:
		// Counters never go down within a match; a reset clears them through the epoch.
		if m.Score > c.view.Match.Scores[m.Player] {
			c.view.Match.Scores[m.Player] = m.Score
			applog.Info("Trap scored", zap.Stringer("owner", m.Player), zap.Uint8("score", m.Score))
		}

	case *wire.PhaseChange:
		c.applyPhase(m.Phase, tick)

	case *wire.ResetRequest:
		if c.view.Match.Phase == game.PhaseEnded {
			c.resetView(tick)
		}

	case *wire.InverseUpdate:
		c.view.Match.Inverse = game.InverseTimer{Active: m.Active, Remaining: m.Remaining}

	default:
		// Swap requests only ever travel to the host.
	}
}

func (c *Client) applyPlayer(id game.PlayerID, pos game.Vec2) {
	p := &c.view.Players[id]
	if h := c.playerHolds[id]; h.active(c.tick) && p.Position.Distance(pos) <= h.maxDrift {
		return
	}
	p.Position = pos
	c.playerHolds[id] = hold{}
}

func (c *Client) applyShadow(id game.PlayerID, pos game.Vec2) {
	sh := &c.view.Shadows[id]
	if h := c.shadowHolds[id]; h.active(c.tick) && sh.Position.Distance(pos) <= h.maxDrift {
		return
	}
	sh.Position = pos
	c.shadowHolds[id] = hold{}
}

func (c *Client) applyPhase(phase game.Phase, tick uint32) {
	current := c.view.Match.Phase
	if phase == current {
		return
	}
	if current == game.PhaseEnded {
		c.resetView(tick)
	}

	c.view.Match.Phase = phase
	if phase == game.PhaseEnded {
		c.view.Match.TrapCooldown = 0
		winner, _ := c.view.Match.Winner()
		applog.Info("Match ended", zap.Stringer("winner", winner), zap.Uint8s("scores", c.view.Match.Scores[:]))
	}
}

// resetView starts a fresh match mirror. Anything the host sent before tick is discarded from now on.
func (c *Client) resetView(tick uint32) {
	hostTick := c.view.Tick
	c.view = game.NewState()
	c.view.Tick = hostTick

	c.epoch, c.hasEpoch = tick, true
	c.playerHolds = [game.PlayerCount]hold{}
	c.shadowHolds = [game.PlayerCount]hold{}
	c.pendingSwaps, c.pendingReset = 0, false
	c.swaps, c.reset = nil, pressBurst{}
	applog.Info("Match reset", zap.Uint32("hostTick", tick))
}

// Advance runs the local prediction for one tick.
func (c *Client) Advance(dt float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	if c.view.Match.Phase != game.PhasePlaying || dt <= 0 {
		c.pendingSwaps = 0
		if c.pendingReset && c.view.Match.Phase == game.PhaseEnded {
			c.reset = pressBurst{tick: c.tick, remaining: RequestRepeat}
		}
		c.pendingReset = false
		return
	}
	c.pendingReset = false

	if c.localDir != (game.Vec2{}) {
		target := c.PlayerID().Opponent()
		c.view.ApplyIntent(c.PlayerID(), c.localDir, dt)
		movement := hold{set: true, until: c.tick, maxDrift: SnapDistance}
		if c.view.SteersCharacter() {
			c.playerHolds[target] = movement
		} else {
			c.shadowHolds[target] = movement
		}
	}
	c.view.Players[c.PlayerID()].Intent = c.localDir

	if c.pendingSwaps > 0 {
		for ; c.pendingSwaps > 0; c.pendingSwaps-- {
			c.view.Swap(c.PlayerID())
			c.swaps = append(c.swaps, pressBurst{tick: c.nextSwapID(), remaining: RequestRepeat})
		}
		swapped := hold{set: true, until: c.tick + SwapHoldTicks, maxDrift: float32(math.Inf(1))}
		c.playerHolds[c.PlayerID()] = swapped
		c.shadowHolds[c.PlayerID()] = swapped
	}

	// The host flips the window; locally it only counts down for display.
	inv := &c.view.Match.Inverse
	inv.Remaining -= dt
	if inv.Remaining < 0 {
		inv.Remaining = 0
	}
}

// nextSwapID is the current tick unless an earlier press already took it.
func (c *Client) nextSwapID() uint32 {
	id := c.tick
	if c.hasSwapID && !wire.TickNewer(id, c.lastSwapID) {
		id = c.lastSwapID + 1
	}
	c.lastSwapID, c.hasSwapID = id, true
	return id
}

func (c *Client) ProduceOutboundMessages() []wire.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.PlayerID()
	msgs := []wire.Message{
		&wire.PlayerUpdate{
			Tick:     c.tick,
			Player:   id,
			Position: c.view.Players[id].Position,
			Velocity: c.localDir,
		},
	}

	live := c.swaps[:0]
	for _, b := range c.swaps {
		msgs = append(msgs, &wire.SwapRequest{Tick: b.tick, Player: id})
		if b.remaining--; b.remaining > 0 {
			live = append(live, b)
		}
	}
	c.swaps = live
	if c.reset.remaining > 0 {
		msgs = append(msgs, &wire.ResetRequest{Tick: c.reset.tick})
		c.reset.remaining--
	}
	return msgs
}

func (c *Client) Snapshot() game.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Client) PeerTimedOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingSwaps, c.pendingReset = 0, false
}
