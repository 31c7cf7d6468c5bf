// Package report notifies external collaborators about match outcomes.
// Every call is best-effort: failures are logged and swallowed, and the
// session's authoritative state never depends on delivery.
package report

// Reason explains why a match finished.
type Reason string

const (
	ReasonScore     Reason = "score"
	ReasonTimeout   Reason = "timeout"
	ReasonForfeit   Reason = "forfeit"
	ReasonCancelled Reason = "cancelled"
)

// SkillAttempt is one recorded skill activation for telemetry.
type SkillAttempt struct {
	Kind    string  `json:"kind"`
	AtClock float64 `json:"atClock"`
	Success bool    `json:"success"`
}

// PlayerStats is the end-of-match aggregate for one player.
type PlayerStats struct {
	PlayerID          string         `json:"playerId"`
	PaddleHits        int            `json:"paddleHits"`
	MaxBallSpeed      float64        `json:"maxBallSpeed"`
	PowerUpsCollected int            `json:"powerUpsCollected"`
	SkillAttempts     []SkillAttempt `json:"skillAttempts"`
}

// MatchResult is everything reported when a match ends.
type MatchResult struct {
	RoomID       string        `json:"roomId"`
	Reason       Reason        `json:"reason"`
	WinnerID     string        `json:"winnerId,omitempty"` // empty when cancelled
	ScoreLeft    int           `json:"scoreLeft"`
	ScoreRight   int           `json:"scoreRight"`
	Tournament   bool          `json:"tournament,omitempty"`
	TournamentID string        `json:"tournamentId,omitempty"`
	MatchID      string        `json:"matchId,omitempty"`
	Stats        []PlayerStats `json:"stats"`
}

// Reporter is the outbound notification capability injected into sessions.
type Reporter interface {
	MatchStarted(roomID, leftID, rightID string)
	GoalScored(roomID, scorerID string, scoreLeft, scoreRight int)
	PowerUpCollected(roomID, playerID string)
	MatchFinished(res MatchResult)
}

// Nop discards every notification. Used by tests and as the default when
// no collaborators are configured.
type Nop struct{}

func (Nop) MatchStarted(string, string, string) {}
func (Nop) GoalScored(string, string, int, int) {}
func (Nop) PowerUpCollected(string, string)     {}
func (Nop) MatchFinished(MatchResult)           {}
