package wsserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"pongd/game"
	"pongd/room"
	"pongd/session"
)

// createMatchRequest is the match-setup payload sent by the matchmaking
// or tournament service.
type createMatchRequest struct {
	RoomID       string        `json:"roomId"`
	Player1      playerPayload `json:"player1"`
	Player2      playerPayload `json:"player2"`
	IsTournament bool          `json:"isTournament"`
	TournamentID string        `json:"tournamentId"`
	MatchID      string        `json:"matchId"`
	ClassicMode  bool          `json:"classicMode"`
}

type playerPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Skill  string `json:"skill"`
}

func (p playerPayload) toInfo() session.PlayerInfo {
	return session.PlayerInfo{
		ID:     p.ID,
		Name:   p.Name,
		Avatar: p.Avatar,
		Skill:  game.SkillKind(p.Skill),
	}
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Player1.ID == "" || req.Player2.ID == "" {
		http.Error(w, "both players are required", http.StatusBadRequest)
		return
	}
	if req.RoomID == "" {
		req.RoomID = uuid.New().String()
	}

	_, err := s.registry.Create(req.RoomID, req.Player1.toInfo(), req.Player2.toInfo(), session.Meta{
		Tournament:   req.IsTournament,
		TournamentID: req.TournamentID,
		MatchID:      req.MatchID,
		Classic:      req.ClassicMode,
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomExists) {
			http.Error(w, "room already exists", http.StatusConflict)
			return
		}
		http.Error(w, "could not create room", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"roomId": req.RoomID})
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	if err := s.registry.Delete(roomID); err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		http.Error(w, "could not delete room", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
