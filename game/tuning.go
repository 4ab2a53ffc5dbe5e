package game

const (
	FieldWidth  float32 = 1200.0
	FieldHeight float32 = 800.0

	PlayerSize   float32 = 20.0
	ShadowSize   float32 = 18.0
	ObjectRadius float32 = 16.0

	PlayerSpeed float32 = 200.0 // units per second, for both shadows and possessed characters

	TrapRadius   float32 = 50.0
	TrapCooldown float32 = 1.0 // seconds after a trap during which no new trap is scored
	WinThreshold uint8   = 3

	InverseDuration float32 = 5.0  // seconds the inverse-control window stays open
	InverseCooldown float32 = 10.0 // seconds between inverse-control windows

	ObjectPushSpeed float32 = 260.0 // speed given to the contested object when a character touches it
	ObjectDamping   float32 = 1.5   // fraction of velocity lost per second
	ObjectMaxSpeed  float32 = 400.0
)
