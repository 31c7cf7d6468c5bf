package report

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Endpoints are the collaborator base URLs. Empty entries disable the
// corresponding notifications.
type Endpoints struct {
	Persistence string
	Matchmaking string
	Tournament  string
}

// HTTP posts notifications to the collaborators. Each call returns
// immediately; delivery happens on a goroutine with a short timeout and
// any error is only logged.
type HTTP struct {
	endpoints Endpoints
	client    *http.Client
	logger    *slog.Logger
}

func NewHTTP(endpoints Endpoints, logger *slog.Logger) *HTTP {
	return &HTTP{
		endpoints: endpoints,
		client:    &http.Client{Timeout: 5 * time.Second},
		logger:    logger,
	}
}

func (h *HTTP) MatchStarted(roomID, leftID, rightID string) {
	h.post(h.endpoints.Persistence, "/matches/started", map[string]any{
		"roomId": roomID,
		"left":   leftID,
		"right":  rightID,
	})
}

func (h *HTTP) GoalScored(roomID, scorerID string, scoreLeft, scoreRight int) {
	h.post(h.endpoints.Persistence, "/matches/goal", map[string]any{
		"roomId":     roomID,
		"scorerId":   scorerID,
		"scoreLeft":  scoreLeft,
		"scoreRight": scoreRight,
	})
}

func (h *HTTP) PowerUpCollected(roomID, playerID string) {
	h.post(h.endpoints.Persistence, "/matches/powerup", map[string]any{
		"roomId":   roomID,
		"playerId": playerID,
	})
}

func (h *HTTP) MatchFinished(res MatchResult) {
	h.post(h.endpoints.Persistence, "/matches/finished", res)
	h.post(h.endpoints.Matchmaking, "/rooms/finished", map[string]any{
		"roomId":     res.RoomID,
		"reason":     res.Reason,
		"scoreLeft":  res.ScoreLeft,
		"scoreRight": res.ScoreRight,
	})
	// The tournament service only learns about decided matches; a
	// cancelled no-show has no winner to report.
	if res.Tournament && res.WinnerID != "" {
		h.post(h.endpoints.Tournament, "/matches/finished", map[string]any{
			"matchId":  res.MatchID,
			"winnerId": res.WinnerID,
		})
	}
}

// post fires the request on a goroutine. Non-2xx responses and transport
// errors are logged and otherwise ignored.
func (h *HTTP) post(base, path string, payload any) {
	if base == "" {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("report marshal failed", "path", path, "err", err)
		return
	}
	url := base + path
	go func() {
		resp, err := h.client.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			h.logger.Warn("report delivery failed", "url", url, "err", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			h.logger.Warn("report rejected", "url", url, "status", resp.StatusCode)
		}
	}()
}
