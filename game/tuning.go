package game

import "math"

// Playfield and simulation tuning. Everything the physics step depends on
// lives here so the whole feel of the game can be adjusted in one place.
const (
	FieldWidth  = 800.0
	FieldHeight = 600.0

	PaddleWidth  = 10.0
	PaddleHeight = 100.0
	PaddleMargin = 20.0 // gap between wall and paddle face

	BasePaddleSpeed = 360.0 // px/s
	MaxPaddleSpeed  = 600.0
	PaddleSpeedGain = 0.06 // fraction of remaining headroom added per hit

	BallRadius   = 8.0
	ServeSpeed   = 300.0 // px/s
	MaxBallSpeed = 900.0
	SpeedRamp    = 1.06 // multiplicative per paddle hit

	// MaxBounceAngle caps the rebound angle off a paddle, measured from
	// the horizontal. Applied after reflection so speed is conserved.
	MaxBounceAngle = math.Pi / 4

	// ClearMargin is how far past a paddle's face a ball must travel
	// before that paddle may hit it again.
	ClearMargin = 4.0

	CountdownSeconds = 3.0
	WinScore         = 11

	MaxPowerUps      = 2
	PowerUpRadius    = 16.0
	PowerUpTTL       = 8.0 // seconds on screen before expiry
	PowerUpInterval  = 8.0 // base seconds between spawns
	PowerUpJitter    = 4.0 // +/- randomization of the interval
	SplitSpawnCount  = 2   // extra balls per pickup
	MaxBalls         = 3
	SplitSpread      = math.Pi / 6 // angular offset range for split balls
	SplitDuration    = 10.0        // seconds before collapsing back
	ServeAngleSpread = math.Pi / 9

	SmashCooldown   = 6.0
	SmashWindow     = 0.3 // seconds after press during which a hit is boosted
	SmashMultiplier = 1.5
	DashCooldown    = 6.0
	DashDuration    = 0.8
	DashMultiplier  = 2.0
)
