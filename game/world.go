// Package game is the pure match simulation: paddles, balls, power-ups,
// skills, and scoring. It performs no I/O and holds no locks; the owning
// session is the single writer and serializes every call.
package game

import (
	"math"
	"math/rand"
)

// World is the authoritative state of one match.
type World struct {
	Left, Right *Paddle
	Balls       []*Ball

	ScoreLeft  int
	ScoreRight int

	Clock     float64 // simulation seconds since creation
	Countdown float64 // seconds remaining; 0 means no countdown
	Paused    bool
	Over      bool
	Winner    Side

	PowerUps   []*PowerUp
	SplitUntil float64 // sim clock; 0 means split mode inactive

	// Classic mode disables power-ups and skills entirely.
	Classic bool

	// TimeScale stretches or shrinks dt. Debug tooling only.
	TimeScale float64

	leftSkill  *SkillState
	rightSkill *SkillState

	TimedOutLeft  bool
	TimedOutRight bool

	nextPowerUpAt float64
	powerUpSeq    int

	rng    *rand.Rand
	events []Event
}

// NewWorld builds a world with one serving ball and both paddles centered.
// The rand source is injected so tests are deterministic.
func NewWorld(leftSkill, rightSkill SkillKind, classic bool, rng *rand.Rand) *World {
	w := &World{
		Left:       newPaddle(SideLeft),
		Right:      newPaddle(SideRight),
		Classic:    classic,
		TimeScale:  1,
		Paused:     true,
		leftSkill:  newSkillState(leftSkill),
		rightSkill: newSkillState(rightSkill),
		rng:        rng,
	}
	w.schedulePowerUp()
	w.serve()
	return w
}

// ApplyInput sets a side's movement intent, clamped to [-1, 1].
func (w *World) ApplyInput(side Side, intent float64) {
	p := w.paddle(side)
	if p == nil {
		return
	}
	p.Intent = math.Max(-1, math.Min(1, intent))
}

// Pause freezes the simulation. No-op during a countdown.
func (w *World) Pause() {
	if w.Countdown > 0 {
		return
	}
	w.Paused = true
}

// Resume unfreezes the simulation.
func (w *World) Resume() {
	if w.Over {
		return
	}
	w.Paused = false
}

// StartCountdown freezes play and arms the pre-round countdown. Physics
// stays frozen until the countdown reaches zero, then play resumes.
func (w *World) StartCountdown() {
	if w.Over {
		return
	}
	w.Countdown = CountdownSeconds
	w.Paused = true
}

// Restart resets the match to its initial state, keeping the selected
// skills and classic flag.
func (w *World) Restart() {
	w.ScoreLeft = 0
	w.ScoreRight = 0
	w.Over = false
	w.Winner = SideNone
	w.Paused = true
	w.Countdown = 0
	w.PowerUps = nil
	w.SplitUntil = 0
	w.TimedOutLeft = false
	w.TimedOutRight = false
	w.Left = newPaddle(SideLeft)
	w.Right = newPaddle(SideRight)
	w.leftSkill = newSkillState(w.leftSkill.Kind)
	w.rightSkill = newSkillState(w.rightSkill.Kind)
	w.schedulePowerUp()
	w.serve()
}

// ForceOver ends the match from outside the simulation (forfeit, timeout,
// cancellation). SideNone records a match with no winner. No event is
// emitted; the caller already knows.
func (w *World) ForceOver(winner Side) {
	if w.Over {
		return
	}
	w.Over = true
	w.Winner = winner
	w.Countdown = 0
	w.Paused = true
}

// DrainEvents returns the events produced since the last drain.
func (w *World) DrainEvents() []Event {
	evs := w.events
	w.events = nil
	return evs
}

// CountdownValue returns the whole-second countdown display value, 0 when
// no countdown is running.
func (w *World) CountdownValue() int {
	return int(math.Ceil(w.Countdown))
}

// Update advances the simulation by one fixed tick.
func (w *World) Update(dt float64) {
	dt *= w.TimeScale

	if w.Countdown > 0 {
		w.Countdown -= dt
		if w.Countdown <= 0 {
			w.Countdown = 0
			w.Paused = false
		}
		return
	}
	if w.Paused || w.Over {
		return
	}

	w.Clock += dt

	w.Left.integrate(dt, w.Clock)
	w.Right.integrate(dt, w.Clock)

	w.spawnPowerUps()
	w.collectPowerUps()

	for _, b := range w.Balls {
		b.integrate(dt)
		w.clearPaddleMemory(b)
		w.collidePaddle(b, w.Left)
		w.collidePaddle(b, w.Right)
	}

	for i := 0; i < len(w.Balls); i++ {
		for j := i + 1; j < len(w.Balls); j++ {
			collideBalls(w.Balls[i], w.Balls[j])
		}
	}

	w.collapseSplit()
	w.scoreGoals()
}

// clearPaddleMemory re-enables hits by the last-touching paddle once the
// ball has fully cleared its face.
func (w *World) clearPaddleMemory(b *Ball) {
	switch b.LastHit {
	case SideLeft:
		if b.X-b.Radius > w.Left.face()+ClearMargin {
			b.LastHit = SideNone
		}
	case SideRight:
		if b.X+b.Radius < w.Right.face()-ClearMargin {
			b.LastHit = SideNone
		}
	}
}

// collidePaddle resolves a capsule-vs-circle collision between a ball and
// a paddle: reflect about the contact normal, push out of penetration,
// clamp the outgoing angle to MaxBounceAngle, renormalize speed, then
// apply the speed ramp and any armed smash.
func (w *World) collidePaddle(b *Ball, p *Paddle) {
	if b.LastHit == p.Side {
		return
	}
	xMin, xMax, yMin, yMax := p.rect()
	cx := math.Max(xMin, math.Min(b.X, xMax))
	cy := math.Max(yMin, math.Min(b.Y, yMax))
	dx := b.X - cx
	dy := b.Y - cy
	dist := math.Hypot(dx, dy)
	if dist > b.Radius {
		return
	}

	var dirX float64 = 1
	if p.Side == SideRight {
		dirX = -1
	}

	var nx, ny float64
	if dist == 0 {
		nx, ny = dirX, 0
	} else {
		nx, ny = dx/dist, dy/dist
	}

	dot := b.VX*nx + b.VY*ny
	if dot >= 0 {
		// Overlapping but already separating (a ball-ball collision can
		// shove a ball into a paddle): resolve the penetration only. No
		// hit is registered.
		b.X = cx + nx*(b.Radius+0.1)
		b.Y = cy + ny*(b.Radius+0.1)
		return
	}
	b.VX -= 2 * dot * nx
	b.VY -= 2 * dot * ny

	// Push out of penetration.
	b.X = cx + nx*(b.Radius+0.1)
	b.Y = cy + ny*(b.Radius+0.1)

	// Clamp the bounce angle after reflection and before renormalizing so
	// speed is conserved, not direction. The outgoing horizontal component
	// always points away from the paddle.
	speed := b.Speed()
	away := b.VX * dirX
	if away < 1e-6 {
		away = 1e-6
	}
	ang := math.Atan2(b.VY, away)
	if ang > MaxBounceAngle {
		ang = MaxBounceAngle
	} else if ang < -MaxBounceAngle {
		ang = -MaxBounceAngle
	}
	b.VX = dirX * speed * math.Cos(ang)
	b.VY = speed * math.Sin(ang)

	smashed := w.smashArmed(p.Side)
	speed *= SpeedRamp
	if smashed {
		speed *= SmashMultiplier
	}
	if speed > MaxBallSpeed {
		speed = MaxBallSpeed
	}
	b.setSpeed(speed)
	b.LastHit = p.Side

	w.Left.rampSpeed()
	w.Right.rampSpeed()

	if smashed {
		w.emit(Event{Kind: EventSkillEffect, Side: p.Side, Skill: SkillSmash})
	}
	w.emit(Event{Kind: EventPaddleHit, Side: p.Side, Speed: speed, Smashed: smashed})
}

// scoreGoals removes balls past either goal plane, credits the opposing
// side, and either finishes the match or serves a fresh ball.
func (w *World) scoreGoals() {
	kept := w.Balls[:0]
	for _, b := range w.Balls {
		switch {
		case b.X <= 0:
			w.ScoreRight++
			w.emit(Event{Kind: EventGoal, Side: SideRight})
		case b.X >= FieldWidth:
			w.ScoreLeft++
			w.emit(Event{Kind: EventGoal, Side: SideLeft})
		default:
			kept = append(kept, b)
		}
	}
	w.Balls = kept

	if w.ScoreLeft >= WinScore || w.ScoreRight >= WinScore {
		w.Over = true
		if w.ScoreLeft >= WinScore {
			w.Winner = SideLeft
		} else {
			w.Winner = SideRight
		}
		w.emit(Event{Kind: EventGameOver, Side: w.Winner})
		return
	}

	if len(w.Balls) == 0 {
		w.Left.Speed = BasePaddleSpeed
		w.Right.Speed = BasePaddleSpeed
		w.SplitUntil = 0
		w.serve()
	}
}

// serve spawns a single ball from center with a randomized horizontal
// direction and a small vertical spread.
func (w *World) serve() {
	dir := 1.0
	if w.rng.Intn(2) == 0 {
		dir = -1
	}
	ang := (w.rng.Float64()*2 - 1) * ServeAngleSpread
	w.Balls = []*Ball{{
		X:      FieldWidth / 2,
		Y:      FieldHeight / 2,
		VX:     dir * ServeSpeed * math.Cos(ang),
		VY:     ServeSpeed * math.Sin(ang),
		Radius: BallRadius,
	}}
}

func (w *World) paddle(side Side) *Paddle {
	switch side {
	case SideLeft:
		return w.Left
	case SideRight:
		return w.Right
	}
	return nil
}

func (w *World) emit(ev Event) {
	w.events = append(w.events, ev)
}
