package game

// SkillState tracks one side's skill. The kind is fixed for the whole
// match; ReadyAt and PressedAt live on the simulation clock.
type SkillState struct {
	Kind      SkillKind
	ReadyAt   float64
	PressedAt float64
}

func newSkillState(kind SkillKind) *SkillState {
	return &SkillState{Kind: kind, PressedAt: -1}
}

// PressSkill activates the given side's skill if its cooldown has elapsed.
// A dash takes effect immediately; a smash only arms a timing window and
// pays off when a paddle hit lands inside it.
func (w *World) PressSkill(side Side) {
	if w.Classic || w.Over {
		return
	}
	sk := w.skill(side)
	if sk == nil || w.Clock < sk.ReadyAt {
		return
	}
	sk.PressedAt = w.Clock
	sk.ReadyAt = w.Clock + w.cooldown(sk.Kind)

	if sk.Kind == SkillDash {
		w.paddle(side).DashUntil = w.Clock + DashDuration
		w.emit(Event{Kind: EventSkillEffect, Side: side, Skill: SkillDash})
	}
}

// smashArmed reports whether a hit by side at the current instant falls
// inside that side's smash window.
func (w *World) smashArmed(side Side) bool {
	sk := w.skill(side)
	if sk == nil || sk.Kind != SkillSmash || sk.PressedAt < 0 {
		return false
	}
	return w.Clock-sk.PressedAt <= SmashWindow
}

func (w *World) cooldown(kind SkillKind) float64 {
	if kind == SkillDash {
		return DashCooldown
	}
	return SmashCooldown
}

func (w *World) skill(side Side) *SkillState {
	switch side {
	case SideLeft:
		return w.leftSkill
	case SideRight:
		return w.rightSkill
	}
	return nil
}
