package session

import (
	"pongd/game"
	"pongd/report"
)

// successWindow is how long after a press a realized skill effect may
// still be credited to it. Matching is most-recent-unconfirmed-first,
// which can misattribute under rapid repeated presses; the stats
// consumer only aggregates counts, so this is tolerated.
const successWindow = 1.0 // simulation seconds

type skillAttempt struct {
	kind    game.SkillKind
	at      float64 // world clock at press
	success bool
}

// sideStats aggregates one side's telemetry for the end-of-match report.
type sideStats struct {
	paddleHits   int
	maxBallSpeed float64
	powerUps     int
	attempts     []skillAttempt
}

func (st *sideStats) recordHit(speed float64) {
	st.paddleHits++
	if speed > st.maxBallSpeed {
		st.maxBallSpeed = speed
	}
}

func (st *sideStats) recordAttempt(kind game.SkillKind, at float64) {
	st.attempts = append(st.attempts, skillAttempt{kind: kind, at: at})
}

// confirmAttempt marks the most recent unconfirmed attempt of the kind as
// successful, provided it happened within the success window.
func (st *sideStats) confirmAttempt(kind game.SkillKind, now float64) {
	for i := len(st.attempts) - 1; i >= 0; i-- {
		a := &st.attempts[i]
		if a.kind != kind || a.success {
			continue
		}
		if now-a.at <= successWindow {
			a.success = true
		}
		return
	}
}

func (st *sideStats) toReport(playerID string) report.PlayerStats {
	out := report.PlayerStats{
		PlayerID:          playerID,
		PaddleHits:        st.paddleHits,
		MaxBallSpeed:      st.maxBallSpeed,
		PowerUpsCollected: st.powerUps,
		SkillAttempts:     make([]report.SkillAttempt, 0, len(st.attempts)),
	}
	for _, a := range st.attempts {
		out.SkillAttempts = append(out.SkillAttempts, report.SkillAttempt{
			Kind:    string(a.kind),
			AtClock: a.at,
			Success: a.success,
		})
	}
	return out
}
