package game

import "math"

// Ball is one ball in flight. LastHit remembers which paddle touched it
// last so the same paddle cannot double-bounce it before it clears.
type Ball struct {
	X, Y    float64
	VX, VY  float64
	Radius  float64
	LastHit Side
}

// Speed returns the magnitude of the ball's velocity.
func (b *Ball) Speed() float64 {
	return math.Hypot(b.VX, b.VY)
}

// setSpeed rescales the velocity to the given magnitude, preserving direction.
func (b *Ball) setSpeed(s float64) {
	cur := b.Speed()
	if cur == 0 {
		b.VX = s
		b.VY = 0
		return
	}
	b.VX = b.VX / cur * s
	b.VY = b.VY / cur * s
}

// heading returns the velocity angle in radians.
func (b *Ball) heading() float64 {
	return math.Atan2(b.VY, b.VX)
}

// integrate advances the ball and reflects it off the top and bottom walls.
func (b *Ball) integrate(dt float64) {
	b.X += b.VX * dt
	b.Y += b.VY * dt

	if b.Y-b.Radius <= 0 {
		b.Y = b.Radius
		b.VY = math.Abs(b.VY)
	} else if b.Y+b.Radius >= FieldHeight {
		b.Y = FieldHeight - b.Radius
		b.VY = -math.Abs(b.VY)
	}
}

// collideBalls resolves an elastic collision between two equal-mass balls:
// normal velocity components are exchanged and the pair is separated along
// the contact normal.
func collideBalls(a, b *Ball) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dist := math.Hypot(dx, dy)
	minDist := a.Radius + b.Radius
	if dist >= minDist {
		return
	}
	if dist == 0 {
		// Coincident centers, pick an arbitrary normal.
		dx, dy, dist = 1, 0, 1
	}
	nx := dx / dist
	ny := dy / dist

	van := a.VX*nx + a.VY*ny
	vbn := b.VX*nx + b.VY*ny
	if van-vbn < 0 {
		// Already separating.
		return
	}

	// Equal masses: swap the normal components.
	a.VX += (vbn - van) * nx
	a.VY += (vbn - van) * ny
	b.VX += (van - vbn) * nx
	b.VY += (van - vbn) * ny

	overlap := (minDist - dist) / 2
	a.X -= nx * overlap
	a.Y -= ny * overlap
	b.X += nx * overlap
	b.Y += ny * overlap
}
