package game

// Input is one player's contribution to a tick.
type Input struct {
	Direction Vec2
	// Swaps is the number of swap presses to apply this tick. Each press swaps once.
	Swaps int
}

// Inputs is indexed by PlayerID.
type Inputs [PlayerCount]Input

// Step advances the match by dt seconds. It works on a copy of state and has no
// other inputs, so equal arguments always give bit-identical results.
func Step(state State, inputs Inputs, dt float32) State {
	state.Tick++
	if state.Match.Phase != PhasePlaying || dt <= 0 {
		return state
	}

	state.Match.Inverse.Advance(dt)

	for id := PlayerID(0); id < PlayerCount; id++ {
		dir := inputs[id].Direction
		if !dir.IsFinite() {
			dir = Vec2{}
		}
		dir = dir.Normalized()
		state.Players[id].Intent = dir
		state.ApplyIntent(id, dir, dt)
	}

	for id := PlayerID(0); id < PlayerCount; id++ {
		for n := 0; n < inputs[id].Swaps; n++ {
			state.Swap(id)
		}
	}

	state.stepObject(dt)
	state.checkTraps(dt)
	return state
}

// ApplyIntent moves whatever the mover steers this tick: the opponent's shadow
// normally, the opponent's character while the inverse window is open.
// The client runs the same function for its local prediction.
func (s *State) ApplyIntent(mover PlayerID, dir Vec2, dt float32) {
	if !mover.Valid() || dir == (Vec2{}) {
		return
	}

	delta := dir.Scale(PlayerSpeed * dt)
	target := mover.Opponent()
	if s.Match.Inverse.Active {
		p := &s.Players[target]
		p.Position = clampToField(p.Position.Add(delta), PlayerSize)
		return
	}

	sh := &s.Shadows[target]
	sh.Position = clampToField(sh.Position.Add(delta), ShadowSize)
}

// Swap exchanges the player's character with that player's own shadow.
// Only the requester's two entities move.
func (s *State) Swap(id PlayerID) {
	if !id.Valid() {
		return
	}
	s.Players[id].Position, s.Shadows[id].Position = s.Shadows[id].Position, s.Players[id].Position
}

// SteersCharacter reports whether input currently moves the opponent's character instead of its shadow.
func (s *State) SteersCharacter() bool {
	return s.Match.Inverse.Active
}

func (s *State) stepObject(dt float32) {
	o := &s.Object
	reach := PlayerSize + ObjectRadius
	for id := PlayerID(0); id < PlayerCount; id++ {
		offset := o.Position.Sub(s.Players[id].Position)
		dist := offset.Length()
		if dist >= reach {
			continue
		}

		normal := offset.Normalized()
		if normal == (Vec2{}) {
			// Exactly on top of the character: push away from the field centre line
			// towards the opponent's half.
			normal = Vec2{X: 1}
			if id == ClientPlayer {
				normal = Vec2{X: -1}
			}
		}
		o.Position = s.Players[id].Position.Add(normal.Scale(reach))
		o.Velocity = o.Velocity.Add(normal.Scale(ObjectPushSpeed))
	}

	if speed := o.Velocity.Length(); speed > ObjectMaxSpeed {
		o.Velocity = o.Velocity.Scale(ObjectMaxSpeed / speed)
	}

	o.Position = o.Position.Add(o.Velocity.Scale(dt))
	o.Velocity = o.Velocity.Scale(clamp(1-ObjectDamping*dt, 0, 1))

	clamped := clampToField(o.Position, ObjectRadius)
	if clamped.X != o.Position.X {
		o.Velocity.X = 0
	}
	if clamped.Y != o.Position.Y {
		o.Velocity.Y = 0
	}
	o.Position = clamped
}

// checkTraps scores at most one trap per tick and none while the cooldown runs.
func (s *State) checkTraps(dt float32) {
	if s.Match.TrapCooldown > 0 {
		s.Match.TrapCooldown -= dt
		if s.Match.TrapCooldown > 0 {
			return
		}
		s.Match.TrapCooldown = 0
	}

	for victim := PlayerID(0); victim < PlayerCount; victim++ {
		owner := victim.Opponent()
		shadow := s.Shadows[owner]
		if s.Players[victim].Position.Distance(shadow.Position) >= shadow.TrapRadius {
			continue
		}

		s.Match.Scores[owner]++
		s.Match.TrapCooldown = TrapCooldown
		s.respawn()

		if s.Match.Scores[owner] >= s.Match.WinThreshold {
			s.end()
		}
		return
	}
}
