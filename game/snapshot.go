package game

import "math"

// Snapshot is the redacted, broadcast-safe view of a World. It is a fresh
// value on every call: internal deadlines and raw timestamps are reduced
// to remaining-millisecond figures so nothing leaks that could let a
// client infer server-only bookkeeping.
type Snapshot struct {
	Clock      float64       `json:"clock"`
	Countdown  int           `json:"countdown"`
	Paused     bool          `json:"paused"`
	Over       bool          `json:"over"`
	Winner     Side          `json:"winner,omitempty"`
	ScoreLeft  int           `json:"scoreLeft"`
	ScoreRight int           `json:"scoreRight"`
	Balls      []BallView    `json:"balls"`
	Left       PaddleView    `json:"left"`
	Right      PaddleView    `json:"right"`
	PowerUps   []PowerUpView `json:"powerUps,omitempty"`
	Split      bool          `json:"split"`
	SplitMs    int           `json:"splitMs,omitempty"`
	LeftSkill  SkillView     `json:"leftSkill"`
	RightSkill SkillView     `json:"rightSkill"`
}

type BallView struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Radius float64 `json:"r"`
}

type PaddleView struct {
	Y        float64 `json:"y"`
	Speed    float64 `json:"speed"`
	Dashing  bool    `json:"dashing"`
	TimedOut bool    `json:"timedOut"`
}

type PowerUpView struct {
	ID          int     `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Radius      float64 `json:"r"`
	RemainingMs int     `json:"remainingMs"`
}

type SkillView struct {
	Kind       SkillKind `json:"kind"`
	CooldownMs int       `json:"cooldownMs"` // until the skill is usable again
}

// Snapshot builds the public view of the world.
func (w *World) Snapshot() Snapshot {
	s := Snapshot{
		Clock:      w.Clock,
		Countdown:  w.CountdownValue(),
		Paused:     w.Paused,
		Over:       w.Over,
		Winner:     w.Winner,
		ScoreLeft:  w.ScoreLeft,
		ScoreRight: w.ScoreRight,
		Balls:      make([]BallView, 0, len(w.Balls)),
		Left: PaddleView{
			Y:        w.Left.Y,
			Speed:    w.Left.Speed,
			Dashing:  w.Left.dashActive(w.Clock),
			TimedOut: w.TimedOutLeft,
		},
		Right: PaddleView{
			Y:        w.Right.Y,
			Speed:    w.Right.Speed,
			Dashing:  w.Right.dashActive(w.Clock),
			TimedOut: w.TimedOutRight,
		},
		Split:      w.SplitUntil > 0,
		LeftSkill:  w.skillView(w.leftSkill),
		RightSkill: w.skillView(w.rightSkill),
	}
	if w.SplitUntil > 0 {
		s.SplitMs = remainingMs(w.Clock, w.SplitUntil)
	}
	for _, b := range w.Balls {
		s.Balls = append(s.Balls, BallView{X: b.X, Y: b.Y, VX: b.VX, VY: b.VY, Radius: b.Radius})
	}
	for _, pu := range w.PowerUps {
		s.PowerUps = append(s.PowerUps, PowerUpView{
			ID:          pu.ID,
			X:           pu.X,
			Y:           pu.Y,
			Radius:      pu.Radius,
			RemainingMs: remainingMs(w.Clock, pu.ExpiresAt),
		})
	}
	return s
}

func (w *World) skillView(sk *SkillState) SkillView {
	return SkillView{
		Kind:       sk.Kind,
		CooldownMs: remainingMs(w.Clock, sk.ReadyAt),
	}
}

func remainingMs(now, deadline float64) int {
	if deadline <= now {
		return 0
	}
	return int(math.Round((deadline - now) * 1000))
}
