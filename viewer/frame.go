package viewer

import (
	"shadowswap/game"
	"shadowswap/session"
)

type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

type ShadowFrame struct {
	Point
	TrapRadius float32 `json:"trapRadius"`
}

type ObjectFrame struct {
	Point
	VX float32 `json:"vx"`
	VY float32 `json:"vy"`
}

type InverseFrame struct {
	Active    bool    `json:"active"`
	Remaining float32 `json:"remaining"`
}

// Frame is what a renderer needs to draw one frame. Players and Shadows are indexed by player id.
type Frame struct {
	Tick         uint32        `json:"tick"`
	Self         string        `json:"self"`
	Phase        string        `json:"phase"`
	Scores       []int         `json:"scores"`
	WinThreshold int           `json:"winThreshold"`
	Winner       string        `json:"winner,omitempty"`
	Players      []Point       `json:"players"`
	Shadows      []ShadowFrame `json:"shadows"`
	Object       ObjectFrame   `json:"object"`
	Inverse      InverseFrame  `json:"inverse"`
	PeerAlive    bool          `json:"peerAlive"`
}

func NewFrame(s game.State, self game.PlayerID, peerAlive bool) Frame {
	f := Frame{
		Tick:         s.Tick,
		Self:         self.String(),
		Phase:        s.Match.Phase.String(),
		Scores:       make([]int, game.PlayerCount),
		WinThreshold: int(s.Match.WinThreshold),
		Players:      make([]Point, game.PlayerCount),
		Shadows:      make([]ShadowFrame, game.PlayerCount),
		Object: ObjectFrame{
			Point: point(s.Object.Position),
			VX:    s.Object.Velocity.X,
			VY:    s.Object.Velocity.Y,
		},
		Inverse:   InverseFrame{Active: s.Match.Inverse.Active, Remaining: s.Match.Inverse.Remaining},
		PeerAlive: peerAlive,
	}

	for id := game.PlayerID(0); id < game.PlayerCount; id++ {
		f.Scores[id] = int(s.Match.Scores[id])
		f.Players[id] = point(s.Players[id].Position)
		f.Shadows[id] = ShadowFrame{Point: point(s.Shadows[id].Position), TrapRadius: s.Shadows[id].TrapRadius}
	}

	if s.Match.Phase == game.PhaseEnded {
		if winner, ok := s.Match.Winner(); ok {
			f.Winner = winner.String()
		}
	}
	return f
}

func point(v game.Vec2) Point {
	return Point{X: v.X, Y: v.Y}
}

// InputEvent is sent by the renderer whenever the local input changes.
// AX and AY hold the direction, each in -1..1.
type InputEvent struct {
	AX    float32 `json:"ax"`
	AY    float32 `json:"ay"`
	Swap  bool    `json:"swap"`
	Reset bool    `json:"reset"`
}

func (e InputEvent) LocalInput() session.LocalInput {
	return session.LocalInput{
		Direction: game.Vec2{X: e.AX, Y: e.AY},
		Swap:      e.Swap,
		Reset:     e.Reset,
	}
}
