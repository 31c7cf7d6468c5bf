package game

import "math"

// PowerUp is a pickup on the field. Only the split effect exists: touching
// it spawns extra balls and arms split mode for a while.
type PowerUp struct {
	ID        int
	X, Y      float64
	Radius    float64
	ExpiresAt float64 // sim clock
}

// spawnPowerUps places a new power-up when the schedule says so and the
// on-screen cap allows it, then prunes expired ones. Caps are silently
// enforced: an elapsed schedule with a full screen just reschedules.
func (w *World) spawnPowerUps() {
	if w.Classic {
		return
	}
	if w.Clock >= w.nextPowerUpAt {
		if len(w.PowerUps) < MaxPowerUps {
			w.addPowerUp()
		}
		w.schedulePowerUp()
	}

	kept := w.PowerUps[:0]
	for _, pu := range w.PowerUps {
		if w.Clock < pu.ExpiresAt {
			kept = append(kept, pu)
		}
	}
	w.PowerUps = kept
}

func (w *World) addPowerUp() {
	w.powerUpSeq++
	pu := &PowerUp{
		ID:        w.powerUpSeq,
		X:         FieldWidth*0.25 + w.rng.Float64()*FieldWidth*0.5,
		Y:         FieldHeight*0.15 + w.rng.Float64()*FieldHeight*0.7,
		Radius:    PowerUpRadius,
		ExpiresAt: w.Clock + PowerUpTTL,
	}
	w.PowerUps = append(w.PowerUps, pu)
	w.emit(Event{Kind: EventPowerUpSpawned, PowerUpID: pu.ID})
}

func (w *World) schedulePowerUp() {
	jitter := (w.rng.Float64()*2 - 1) * PowerUpJitter
	w.nextPowerUpAt = w.Clock + PowerUpInterval + jitter
}

// collectPowerUps tests every power-up against every ball; the first
// overlapping ball consumes it and triggers the split effect.
func (w *World) collectPowerUps() {
	kept := w.PowerUps[:0]
	for _, pu := range w.PowerUps {
		var carrier *Ball
		for _, b := range w.Balls {
			if circlesOverlap(pu.X, pu.Y, pu.Radius, b.X, b.Y, b.Radius) {
				carrier = b
				break
			}
		}
		if carrier == nil {
			kept = append(kept, pu)
			continue
		}
		w.emit(Event{Kind: EventPowerUpCollected, Side: carrier.LastHit, PowerUpID: pu.ID})
		w.triggerSplit(carrier)
	}
	w.PowerUps = kept
}

// triggerSplit spawns extra balls fanned around the carrier's heading and
// arms split mode. The ball cap bounds how many actually appear.
func (w *World) triggerSplit(carrier *Ball) {
	n := SplitSpawnCount
	if room := MaxBalls - len(w.Balls); n > room {
		n = room
	}
	speed := carrier.Speed()
	for i := 0; i < n; i++ {
		ang := carrier.heading() + (w.rng.Float64()*2-1)*SplitSpread
		// Seed each ball a little ahead along its own heading so the
		// cluster does not instantly collide with itself.
		lead := carrier.Radius*2 + 1
		w.Balls = append(w.Balls, &Ball{
			X:       carrier.X + math.Cos(ang)*lead,
			Y:       carrier.Y + math.Sin(ang)*lead,
			VX:      math.Cos(ang) * speed,
			VY:      math.Sin(ang) * speed,
			Radius:  carrier.Radius,
			LastHit: carrier.LastHit,
		})
	}
	w.SplitUntil = w.Clock + SplitDuration
}

// collapseSplit ends an elapsed split window, keeping only the fastest
// ball (ties broken by the greatest horizontal speed), and restarts the
// power-up schedule.
func (w *World) collapseSplit() {
	if w.SplitUntil == 0 || w.Clock < w.SplitUntil {
		return
	}
	w.SplitUntil = 0
	if len(w.Balls) > 1 {
		best := w.Balls[0]
		for _, b := range w.Balls[1:] {
			if b.Speed() > best.Speed() ||
				(b.Speed() == best.Speed() && math.Abs(b.VX) > math.Abs(best.VX)) {
				best = b
			}
		}
		w.Balls = []*Ball{best}
	}
	w.schedulePowerUp()
}

func circlesOverlap(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	rr := r1 + r2
	return dx*dx+dy*dy <= rr*rr
}
