package session

import (
	"encoding/json"

	"pongd/game"
)

// Outbound protocol messages. Every frame is a JSON object with a "type"
// discriminator; clients ignore types they do not know.

type welcomeMsg struct {
	Type    string   `json:"type"` // "welcome"
	Side    Role     `json:"side"`
	Names   []string `json:"opponentNames"`
	Avatars []string `json:"avatars"`
}

type stateMsg struct {
	Type       string        `json:"type"` // "state"
	Snapshot   game.Snapshot `json:"snapshot"`
	ServerTime int64         `json:"serverTime"` // unix ms
}

type countdownMsg struct {
	Type  string `json:"type"` // "countdown"
	Value int    `json:"value"`
}

type pausedMsg struct {
	Type string `json:"type"` // "paused" | "resumed"
}

type gameoverMsg struct {
	Type       string         `json:"type"` // "gameover"
	Winner     game.Side      `json:"winner"`
	WinnerID   string         `json:"winnerId,omitempty"`
	Tournament *tournamentCtx `json:"tournament,omitempty"`
}

type tournamentCtx struct {
	TournamentID string `json:"tournamentId"`
	MatchID      string `json:"matchId"`
}

type timeoutStatusMsg struct {
	Type  string       `json:"type"` // "timeout_status"
	Left  timeoutState `json:"left"`
	Right timeoutState `json:"right"`
}

type timeoutState struct {
	Active      bool  `json:"active"`
	RemainingMs int64 `json:"remainingMs"`
}

type pongMsg struct {
	Type string `json:"type"` // "pong"
	T    int64  `json:"t"`
}

type errorMsg struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// encode marshals a message, which cannot fail for the fixed shapes above.
func encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"type":"error","message":"internal encoding error"}`)
	}
	return data
}
