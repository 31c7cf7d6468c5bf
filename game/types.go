package game

// Side identifies one half of the field.
type Side string

const (
	SideNone  Side = ""
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Opponent returns the other playing side. SideNone maps to itself.
func (s Side) Opponent() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	}
	return SideNone
}

// SkillKind selects the one skill a side carries for the whole match.
type SkillKind string

const (
	SkillSmash SkillKind = "smash"
	SkillDash  SkillKind = "dash"
)

// EventKind tags a simulation event drained by the session after each tick.
type EventKind string

const (
	EventGoal             EventKind = "goal"
	EventPaddleHit        EventKind = "paddle_hit"
	EventPowerUpSpawned   EventKind = "powerup_spawned"
	EventPowerUpCollected EventKind = "powerup_collected"
	EventSkillEffect      EventKind = "skill_effect"
	EventGameOver         EventKind = "game_over"
)

// Event is a flat record of something that happened during Update. The
// world never performs I/O itself; the owning session drains these and
// decides what to report or broadcast.
type Event struct {
	Kind      EventKind
	Side      Side      // scorer, hitter, collector, or winner depending on Kind
	Skill     SkillKind // set for EventSkillEffect
	Speed     float64   // ball speed after a paddle hit
	Smashed   bool      // paddle hit boosted by an active smash window
	PowerUpID int
}
