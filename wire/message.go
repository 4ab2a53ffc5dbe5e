package wire

import (
	"fmt"
	"shadowswap/game"
)

type Tag = byte

const (
	TagPlayerUpdate  Tag = 0x01 // PLAYER
	TagShadowUpdate  Tag = 0x02 // SHADOW
	TagObjectUpdate  Tag = 0x03 // OBJECT
	TagScoreUpdate   Tag = 0x04 // SCORE
	TagPhaseChange   Tag = 0x05 // PHASE
	TagResetRequest  Tag = 0x06 // RESET
	TagSwapRequest   Tag = 0x07 // SWAP
	TagInverseUpdate Tag = 0x08 // INVERSE
)

func TagToString(t Tag) string {
	switch t {
	case TagPlayerUpdate:
		return "PLAYER"
	case TagShadowUpdate:
		return "SHADOW"
	case TagObjectUpdate:
		return "OBJECT"
	case TagScoreUpdate:
		return "SCORE"
	case TagPhaseChange:
		return "PHASE"
	case TagResetRequest:
		return "RESET"
	case TagSwapRequest:
		return "SWAP"
	case TagInverseUpdate:
		return "INVERSE"
	default:
		return fmt.Sprintf("%02X", t)
	}
}

// Message is one datagram's worth of game state or intent. Every variant has a fixed
// payload size, so a frame's length is fully determined by its tag.
type Message interface {
	GetTag() Tag
	GetTick() uint32
	setTick(t uint32)
	payloadSize() int
	marshalPayload(b []byte)
	unmarshalPayload(b []byte) error
}

// PlayerUpdate carries a character. Player is the sender's role (host or client);
// Velocity is the intent vector the player steered with.
type PlayerUpdate struct {
	Tick     uint32
	Player   game.PlayerID
	Position game.Vec2
	Velocity game.Vec2
}

func (m *PlayerUpdate) GetTag() Tag      { return TagPlayerUpdate }
func (m *PlayerUpdate) GetTick() uint32  { return m.Tick }
func (m *PlayerUpdate) setTick(t uint32) { m.Tick = t }
func (m *PlayerUpdate) payloadSize() int { return 1 + vec2Size*2 }

func (m *PlayerUpdate) marshalPayload(b []byte) {
	b[0] = byte(m.Player)
	putVec2(b[1:], m.Position)
	putVec2(b[1+vec2Size:], m.Velocity)
}

func (m *PlayerUpdate) unmarshalPayload(b []byte) (err error) {
	if m.Player, err = readPlayer(b[0]); err != nil {
		return err
	}
	if m.Position, err = readVec2(b[1:]); err != nil {
		return err
	}
	m.Velocity, err = readVec2(b[1+vec2Size:])
	return err
}

// ShadowUpdate carries the shadow owned by Owner.
type ShadowUpdate struct {
	Tick     uint32
	Owner    game.PlayerID
	Position game.Vec2
}

func (m *ShadowUpdate) GetTag() Tag      { return TagShadowUpdate }
func (m *ShadowUpdate) GetTick() uint32  { return m.Tick }
func (m *ShadowUpdate) setTick(t uint32) { m.Tick = t }
func (m *ShadowUpdate) payloadSize() int { return 1 + vec2Size }

func (m *ShadowUpdate) marshalPayload(b []byte) {
	b[0] = byte(m.Owner)
	putVec2(b[1:], m.Position)
}

func (m *ShadowUpdate) unmarshalPayload(b []byte) (err error) {
	if m.Owner, err = readPlayer(b[0]); err != nil {
		return err
	}
	m.Position, err = readVec2(b[1:])
	return err
}

// ObjectUpdate is only ever sent by the host.
type ObjectUpdate struct {
	Tick     uint32
	Position game.Vec2
	Velocity game.Vec2
}

func (m *ObjectUpdate) GetTag() Tag      { return TagObjectUpdate }
func (m *ObjectUpdate) GetTick() uint32  { return m.Tick }
func (m *ObjectUpdate) setTick(t uint32) { m.Tick = t }
func (m *ObjectUpdate) payloadSize() int { return vec2Size * 2 }

func (m *ObjectUpdate) marshalPayload(b []byte) {
	putVec2(b, m.Position)
	putVec2(b[vec2Size:], m.Velocity)
}

func (m *ObjectUpdate) unmarshalPayload(b []byte) (err error) {
	if m.Position, err = readVec2(b); err != nil {
		return err
	}
	m.Velocity, err = readVec2(b[vec2Size:])
	return err
}

type ScoreUpdate struct {
	Tick   uint32
	Player game.PlayerID
	Score  uint8
}

func (m *ScoreUpdate) GetTag() Tag      { return TagScoreUpdate }
func (m *ScoreUpdate) GetTick() uint32  { return m.Tick }
func (m *ScoreUpdate) setTick(t uint32) { m.Tick = t }
func (m *ScoreUpdate) payloadSize() int { return 2 }

func (m *ScoreUpdate) marshalPayload(b []byte) {
	b[0] = byte(m.Player)
	b[1] = m.Score
}

func (m *ScoreUpdate) unmarshalPayload(b []byte) (err error) {
	if m.Player, err = readPlayer(b[0]); err != nil {
		return err
	}
	m.Score = b[1]
	return nil
}

type PhaseChange struct {
	Tick  uint32
	Phase game.Phase
}

func (m *PhaseChange) GetTag() Tag      { return TagPhaseChange }
func (m *PhaseChange) GetTick() uint32  { return m.Tick }
func (m *PhaseChange) setTick(t uint32) { m.Tick = t }
func (m *PhaseChange) payloadSize() int { return 1 }

func (m *PhaseChange) marshalPayload(b []byte) {
	b[0] = byte(m.Phase)
}

func (m *PhaseChange) unmarshalPayload(b []byte) error {
	phase := game.Phase(b[0])
	if !phase.Valid() {
		return fmt.Errorf("invalid phase %d", b[0])
	}
	m.Phase = phase
	return nil
}

// ResetRequest asks to restart an ended match. The tick identifies the key press,
// so repeated copies of one press reset only once.
type ResetRequest struct {
	Tick uint32
}

func (m *ResetRequest) GetTag() Tag      { return TagResetRequest }
func (m *ResetRequest) GetTick() uint32  { return m.Tick }
func (m *ResetRequest) setTick(t uint32) { m.Tick = t }
func (m *ResetRequest) payloadSize() int { return 0 }

func (m *ResetRequest) marshalPayload(_ []byte) {}

func (m *ResetRequest) unmarshalPayload(_ []byte) error {
	return nil
}

// SwapRequest asks the host to swap Player's character with its shadow. Like
// ResetRequest, the tick identifies the key press.
type SwapRequest struct {
	Tick   uint32
	Player game.PlayerID
}

func (m *SwapRequest) GetTag() Tag      { return TagSwapRequest }
func (m *SwapRequest) GetTick() uint32  { return m.Tick }
func (m *SwapRequest) setTick(t uint32) { m.Tick = t }
func (m *SwapRequest) payloadSize() int { return 1 }

func (m *SwapRequest) marshalPayload(b []byte) {
	b[0] = byte(m.Player)
}

func (m *SwapRequest) unmarshalPayload(b []byte) (err error) {
	m.Player, err = readPlayer(b[0])
	return err
}

// InverseUpdate mirrors the host's inverse-control timer.
type InverseUpdate struct {
	Tick      uint32
	Active    bool
	Remaining float32
}

func (m *InverseUpdate) GetTag() Tag      { return TagInverseUpdate }
func (m *InverseUpdate) GetTick() uint32  { return m.Tick }
func (m *InverseUpdate) setTick(t uint32) { m.Tick = t }
func (m *InverseUpdate) payloadSize() int { return 1 + float32Size }

func (m *InverseUpdate) marshalPayload(b []byte) {
	b[0] = 0
	if m.Active {
		b[0] = 1
	}
	putFloat32(b[1:], m.Remaining)
}

func (m *InverseUpdate) unmarshalPayload(b []byte) (err error) {
	switch b[0] {
	case 0:
		m.Active = false
	case 1:
		m.Active = true
	default:
		return fmt.Errorf("invalid bool byte %02X", b[0])
	}
	m.Remaining, err = readFloat32(b[1:])
	return err
}

type messageBuilder = func() Message

var messagesRegistry = map[Tag]messageBuilder{
	TagPlayerUpdate:  func() Message { return new(PlayerUpdate) },
	TagShadowUpdate:  func() Message { return new(ShadowUpdate) },
	TagObjectUpdate:  func() Message { return new(ObjectUpdate) },
	TagScoreUpdate:   func() Message { return new(ScoreUpdate) },
	TagPhaseChange:   func() Message { return new(PhaseChange) },
	TagResetRequest:  func() Message { return new(ResetRequest) },
	TagSwapRequest:   func() Message { return new(SwapRequest) },
	TagInverseUpdate: func() Message { return new(InverseUpdate) },
}
