// Package room maps room identifiers to live sessions. The registry is
// owned by the server composition root; there are no package-level
// singletons.
package room

import (
	"errors"
	"log/slog"
	"sync"

	"pongd/report"
	"pongd/session"
)

var (
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room not found")
)

// Registry is the process-wide map from room id to session. Creation and
// deletion race against gateway-driven lookups, so every access goes
// through one mutex.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*session.Session
	reporter report.Reporter
	logger   *slog.Logger
}

func NewRegistry(rep report.Reporter, logger *slog.Logger) *Registry {
	return &Registry{
		rooms:    make(map[string]*session.Session),
		reporter: rep,
		logger:   logger,
	}
}

// Create instantiates a session for the room, applies the expected
// players, and starts its tick drivers. Sessions sweep themselves out of
// the registry after sitting empty past the idle grace period.
func (r *Registry) Create(roomID string, left, right session.PlayerInfo, meta session.Meta) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomID]; exists {
		return nil, ErrRoomExists
	}
	s := session.New(roomID, left, right, meta, r.reporter, r.logger)
	s.SetExpireFunc(r.expire)
	r.rooms[roomID] = s
	s.Start()
	r.logger.Info("room created", "room", roomID,
		"left", left.ID, "right", right.ID, "tournament", meta.Tournament)
	return s, nil
}

// Get returns an existing session. It never creates one.
func (r *Registry) Get(roomID string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return s, nil
}

// Delete tears down the session and removes the entry.
func (r *Registry) Delete(roomID string) error {
	r.mu.Lock()
	s, ok := r.rooms[roomID]
	if ok {
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()

	if !ok {
		return ErrRoomNotFound
	}
	s.Destroy()
	r.logger.Info("room deleted", "room", roomID)
	return nil
}

// Len reports how many rooms are live.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// expire is handed to each session; it runs inside the session's own
// broadcast cycle when the room has idled out.
func (r *Registry) expire(roomID string) {
	r.logger.Info("room idle past grace, sweeping", "room", roomID)
	if err := r.Delete(roomID); err != nil && !errors.Is(err, ErrRoomNotFound) {
		r.logger.Warn("sweep failed", "room", roomID, "err", err)
	}
}
