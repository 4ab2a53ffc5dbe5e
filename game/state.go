package game

import "fmt"

// PlayerID doubles as the session role: the host always plays as player 0, the client as player 1.
type PlayerID uint8

const (
	HostPlayer   PlayerID = 0
	ClientPlayer PlayerID = 1
	PlayerCount           = 2
)

func (id PlayerID) Valid() bool {
	return id < PlayerCount
}

func (id PlayerID) Opponent() PlayerID {
	return 1 - id
}

func (id PlayerID) String() string {
	switch id {
	case HostPlayer:
		return "host"
	case ClientPlayer:
		return "client"
	default:
		return fmt.Sprintf("player(%d)", uint8(id))
	}
}

// PlayerState is a participant's character.
type PlayerState struct {
	Position Vec2
	Intent   Vec2 // last normalised direction this player steered with
	Role     PlayerID
}

// ShadowState belongs to one player and is steered by that player's opponent.
type ShadowState struct {
	Position   Vec2
	TrapRadius float32
}

// ContestedObject only ever advances on the host; clients mirror it.
type ContestedObject struct {
	Position Vec2
	Velocity Vec2
}

// InverseTimer is the shared toggle that hands each player control of the opponent's character.
type InverseTimer struct {
	Active    bool
	Remaining float32
}

// Advance runs the timer down and flips the window when it expires. It reports whether it flipped.
func (t *InverseTimer) Advance(dt float32) bool {
	t.Remaining -= dt
	if t.Remaining > 0 {
		return false
	}

	if t.Active {
		t.Active = false
		t.Remaining = InverseCooldown
	} else {
		t.Active = true
		t.Remaining = InverseDuration
	}
	return true
}

// MatchState holds the scoring side of a match. Scores[i] counts how many times
// player i's shadow trapped the opponent.
type MatchState struct {
	Phase        Phase
	Scores       [PlayerCount]uint8
	WinThreshold uint8
	Inverse      InverseTimer
	TrapCooldown float32
}

// Winner returns the player whose score reached the win threshold.
func (m MatchState) Winner() (PlayerID, bool) {
	for id := PlayerID(0); id < PlayerCount; id++ {
		if m.Scores[id] >= m.WinThreshold {
			return id, true
		}
	}
	return 0, false
}

// State is the whole simulation. It holds no pointers, maps or slices, so
// assigning it copies it and Step can treat it as a value.
type State struct {
	Tick    uint32
	Players [PlayerCount]PlayerState
	Shadows [PlayerCount]ShadowState
	Object  ContestedObject
	Match   MatchState
}

func PlayerSpawn(id PlayerID) Vec2 {
	if id == HostPlayer {
		return Vec2{X: FieldWidth * 0.3, Y: FieldHeight / 2}
	}
	return Vec2{X: FieldWidth * 0.7, Y: FieldHeight / 2}
}

func ShadowSpawn(id PlayerID) Vec2 {
	if id == HostPlayer {
		return Vec2{X: FieldWidth * 0.3, Y: FieldHeight/2 + 100}
	}
	return Vec2{X: FieldWidth * 0.7, Y: FieldHeight/2 - 100}
}

func ObjectSpawn() Vec2 {
	return Vec2{X: FieldWidth / 2, Y: FieldHeight / 2}
}

// NewState returns a fresh match waiting in Setup.
func NewState() State {
	var s State
	for id := PlayerID(0); id < PlayerCount; id++ {
		s.Players[id] = PlayerState{Position: PlayerSpawn(id), Role: id}
		s.Shadows[id] = ShadowState{Position: ShadowSpawn(id), TrapRadius: TrapRadius}
	}
	s.Object = ContestedObject{Position: ObjectSpawn()}
	s.Match = MatchState{
		Phase:        PhaseSetup,
		WinThreshold: WinThreshold,
		Inverse:      InverseTimer{Remaining: InverseCooldown},
	}
	return s
}

// respawn puts every character and shadow back at its spawn point.
func (s *State) respawn() {
	for id := PlayerID(0); id < PlayerCount; id++ {
		s.Players[id].Position = PlayerSpawn(id)
		s.Players[id].Intent = Vec2{}
		s.Shadows[id].Position = ShadowSpawn(id)
	}
}
