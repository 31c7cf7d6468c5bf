package game

// Paddle is one side's paddle. Y is the center of the paddle face. Speed
// ramps up a little after every hit and is reset between rounds. Intent is
// the owner's current movement input: -1 (up), 0, or 1 (down).
type Paddle struct {
	Side      Side
	Y         float64
	Speed     float64
	Intent    float64
	DashUntil float64 // sim clock; > 0 while a dash is active
}

func newPaddle(side Side) *Paddle {
	return &Paddle{
		Side:  side,
		Y:     FieldHeight / 2,
		Speed: BasePaddleSpeed,
	}
}

// rect returns the paddle's axis-aligned bounds.
func (p *Paddle) rect() (xMin, xMax, yMin, yMax float64) {
	if p.Side == SideLeft {
		xMin = PaddleMargin
	} else {
		xMin = FieldWidth - PaddleMargin - PaddleWidth
	}
	xMax = xMin + PaddleWidth
	yMin = p.Y - PaddleHeight/2
	yMax = p.Y + PaddleHeight/2
	return
}

// face returns the x coordinate of the surface facing the field.
func (p *Paddle) face() float64 {
	if p.Side == SideLeft {
		return PaddleMargin + PaddleWidth
	}
	return FieldWidth - PaddleMargin - PaddleWidth
}

// integrate moves the paddle by its intent, clamped to the playfield.
func (p *Paddle) integrate(dt, now float64) {
	speed := p.Speed
	if p.DashUntil > 0 && now < p.DashUntil {
		speed *= DashMultiplier
	}
	p.Y += p.Intent * speed * dt

	if p.Y < PaddleHeight/2 {
		p.Y = PaddleHeight / 2
	} else if p.Y > FieldHeight-PaddleHeight/2 {
		p.Y = FieldHeight - PaddleHeight/2
	}
}

// rampSpeed nudges the paddle speed toward the cap with diminishing returns.
func (p *Paddle) rampSpeed() {
	p.Speed += (MaxPaddleSpeed - p.Speed) * PaddleSpeedGain
	if p.Speed > MaxPaddleSpeed {
		p.Speed = MaxPaddleSpeed
	}
}

func (p *Paddle) dashActive(now float64) bool {
	return p.DashUntil > 0 && now < p.DashUntil
}
