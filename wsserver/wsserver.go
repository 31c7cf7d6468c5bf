// Package wsserver is the transport edge: it upgrades websocket
// connections, attaches them to sessions, and exposes the match
// lifecycle HTTP endpoints used by the matchmaking and tournament
// services.
package wsserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"pongd/room"
)

// Server routes inbound traffic to the room registry.
type Server struct {
	upgrader websocket.Upgrader
	registry *room.Registry
	logger   *slog.Logger
}

func New(registry *room.Registry, logger *slog.Logger) *Server {
	return &Server{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		registry: registry,
		logger:   logger,
	}
}

// Routes returns the HTTP mux for the gateway.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /match", s.handleCreateMatch)
	mux.HandleFunc("DELETE /match/{roomId}", s.handleDeleteMatch)
	mux.HandleFunc("GET /ws/{roomId}", s.handleWS)
	return mux
}

// inbound is the envelope every client frame must fit. Unknown types and
// frames that fail to parse are ignored.
type inbound struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"playerId,omitempty"`
	Up       bool            `json:"up,omitempty"`
	Down     bool            `json:"down,omitempty"`
	T        int64           `json:"t,omitempty"`
	Action   string          `json:"action,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	sess, err := s.registry.Get(roomID)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "room", roomID, "err", err)
		return
	}

	client := newClient(conn, s.logger)
	go client.writePump()
	sess.Attach(client)
	s.logger.Info("connection attached", "room", roomID, "conn", client.ID())

	defer func() {
		sess.Detach(client)
		client.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("read loop ended", "room", roomID, "conn", client.ID(), "err", err)
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed frames are silently ignored.
			continue
		}

		switch msg.Type {
		case "identify":
			sess.Identify(client, msg.PlayerID)
		case "ready":
			sess.MarkReady(client)
		case "input":
			sess.Input(client, msg.Up, msg.Down)
		case "skill":
			sess.ActivateSkill(client)
		case "pause":
			sess.Pause(client)
		case "resume":
			sess.Resume(client)
		case "forfeit":
			sess.Forfeit(client)
		case "ping":
			sess.Ping(client, msg.T)
		case "debug":
			sess.Debug(client, msg.Action, msg.Payload)
		default:
			// Unrecognized message shapes are not errors.
		}
	}
}
