package game

import "math"

// Debug hooks for test and ops tooling. These bypass the normal rules and
// are only reachable through the session's debug channel.

// DebugForcePowerUp spawns a power-up immediately, still honoring the
// on-screen cap.
func (w *World) DebugForcePowerUp() {
	if len(w.PowerUps) < MaxPowerUps {
		w.addPowerUp()
	}
}

// DebugClearPowerUps removes every power-up from the field.
func (w *World) DebugClearPowerUps() {
	w.PowerUps = nil
}

// DebugSetScore overwrites the score. Win detection still runs on the
// next tick, so setting a side to the threshold ends the match normally.
func (w *World) DebugSetScore(left, right int) {
	w.ScoreLeft = left
	w.ScoreRight = right
}

// DebugSetBallSpeed rescales every ball to the given speed, clamped to
// the global cap.
func (w *World) DebugSetBallSpeed(speed float64) {
	speed = math.Max(0, math.Min(speed, MaxBallSpeed))
	for _, b := range w.Balls {
		b.setSpeed(speed)
	}
}

// DebugSetBallVelocity overrides the first ball's velocity vector.
func (w *World) DebugSetBallVelocity(vx, vy float64) {
	if len(w.Balls) == 0 {
		return
	}
	w.Balls[0].VX = vx
	w.Balls[0].VY = vy
	if s := w.Balls[0].Speed(); s > MaxBallSpeed {
		w.Balls[0].setSpeed(MaxBallSpeed)
	}
}

// DebugSwapSkill replaces a side's skill kind and resets its state.
func (w *World) DebugSwapSkill(side Side, kind SkillKind) {
	switch side {
	case SideLeft:
		w.leftSkill = newSkillState(kind)
	case SideRight:
		w.rightSkill = newSkillState(kind)
	}
}

// DebugSetTimeScale stretches the simulation clock. 1 is real time.
func (w *World) DebugSetTimeScale(scale float64) {
	if scale <= 0 {
		return
	}
	w.TimeScale = scale
}
