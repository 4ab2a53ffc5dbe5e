package game

import (
	"errors"
	"fmt"
)

type Phase uint8

const (
	PhaseSetup Phase = iota
	PhasePlaying
	PhaseEnded
	phaseCount
)

func (p Phase) Valid() bool {
	return p < phaseCount
}

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhasePlaying:
		return "playing"
	case PhaseEnded:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// ErrInvalidTransition is returned when a phase change does not apply to the current phase.
// Reordered datagrams make this routine, so callers are expected to ignore it.
var ErrInvalidTransition = errors.New("invalid phase transition")

// Begin moves a match from Setup to Playing once both peers have been heard from.
func (s *State) Begin() error {
	if s.Match.Phase != PhaseSetup {
		return fmt.Errorf("%w: begin from %s", ErrInvalidTransition, s.Match.Phase)
	}
	s.Match.Phase = PhasePlaying
	return nil
}

// Reset returns an ended match to Setup with cleared scores and every entity at its spawn point.
// The tick counter is kept so that peers keep rejecting stale datagrams across the reset.
func (s *State) Reset() error {
	if s.Match.Phase != PhaseEnded {
		return fmt.Errorf("%w: reset from %s", ErrInvalidTransition, s.Match.Phase)
	}
	tick := s.Tick
	*s = NewState()
	s.Tick = tick
	return nil
}

// end is only reached from Step when a score hits the threshold.
func (s *State) end() {
	s.Match.Phase = PhaseEnded
	s.Match.TrapCooldown = 0
	for id := PlayerID(0); id < PlayerCount; id++ {
		s.Players[id].Intent = Vec2{}
	}
	s.Object.Velocity = Vec2{}
}
