// Package session binds two expected players (plus spectators) to one
// simulated match. Each Session is a single-writer actor: inbound
// protocol messages, the fixed-timestep physics tick, and the broadcast
// tick all serialize on one mutex. Sessions are fully independent of
// each other.
package session

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"pongd/game"
	"pongd/report"
)

// Phase is the session lifecycle state.
type Phase string

const (
	PhaseAwaiting  Phase = "awaiting_connections"
	PhaseCountdown Phase = "countdown_pending"
	PhaseActive    Phase = "active"
	PhasePaused    Phase = "paused_on_disconnect"
	PhaseOver      Phase = "game_over"
	PhaseDestroyed Phase = "destroyed"
)

const (
	PhysicsHz   = 240
	BroadcastHz = 60

	physicsDT = 1.0 / float64(PhysicsHz)

	// DisconnectGrace is how long a playing side may stay disconnected
	// before forfeiting by timeout.
	DisconnectGrace = 30 * time.Second

	// TournamentConnectWindow is how long a tournament match waits for
	// its players to show up at all.
	TournamentConnectWindow = 10 * time.Second

	// IdleGrace is how long an empty room survives before the registry
	// sweeps it.
	IdleGrace = 5 * time.Minute
)

// Conn is a transport connection attached to the session. Send must not
// block; a false return means the peer is unusable.
type Conn interface {
	ID() string
	Send(data []byte) bool
	Close()
}

// PlayerInfo describes one expected player, fixed at room creation.
type PlayerInfo struct {
	ID     string
	Name   string
	Avatar string
	Skill  game.SkillKind
}

// Meta carries the match-setup flags.
type Meta struct {
	Tournament   bool
	TournamentID string
	MatchID      string
	Classic      bool
}

type peer struct {
	conn     Conn
	playerID string
}

// Session owns one World and everything around it.
type Session struct {
	ID string

	mu       sync.Mutex
	world    *game.World
	logger   *slog.Logger
	reporter report.Reporter

	left  PlayerInfo
	right PlayerInfo
	meta  Meta

	peers      map[string]*peer
	assignment Assignment

	phase      Phase
	readyLeft  bool
	readyRight bool
	started    bool
	finished   bool
	reason     report.Reason

	graceLeft  time.Time // zero = no grace running
	graceRight time.Time
	tourneyBy  time.Time // tournament connection-establishment deadline
	emptySince time.Time

	stats map[game.Side]*sideStats

	// previously broadcast values, for edge-triggered transition events
	lastPaused    bool
	lastOver      bool
	lastCountdown int

	stop     chan struct{}
	stopOnce sync.Once
	onExpire func(roomID string)
	now      func() time.Time
}

// New builds a session for the two expected players. Start must be
// called to run the tick drivers.
func New(roomID string, left, right PlayerInfo, meta Meta, rep report.Reporter, logger *slog.Logger) *Session {
	s := &Session{
		ID:       roomID,
		logger:   logger.With("room", roomID),
		reporter: rep,
		left:     left,
		right:    right,
		meta:     meta,
		peers:    make(map[string]*peer),
		phase:    PhaseAwaiting,
		stats: map[game.Side]*sideStats{
			game.SideLeft:  {},
			game.SideRight: {},
		},
		stop: make(chan struct{}),
		now:  time.Now,
	}
	s.world = game.NewWorld(
		skillOrDefault(left.Skill),
		skillOrDefault(right.Skill),
		meta.Classic,
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)
	if meta.Tournament {
		s.tourneyBy = s.now().Add(TournamentConnectWindow)
	}
	s.emptySince = s.now()
	return s
}

func skillOrDefault(k game.SkillKind) game.SkillKind {
	if k == "" {
		return game.SkillSmash
	}
	return k
}

// SetExpireFunc registers the registry callback invoked when the room
// has sat empty past the idle grace period.
func (s *Session) SetExpireFunc(fn func(roomID string)) {
	s.mu.Lock()
	s.onExpire = fn
	s.mu.Unlock()
}

// Start launches the physics and broadcast drivers.
func (s *Session) Start() {
	go s.run()
}

func (s *Session) run() {
	phys := time.NewTicker(time.Second / PhysicsHz)
	defer phys.Stop()
	bcast := time.NewTicker(time.Second / BroadcastHz)
	defer bcast.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-phys.C:
			s.physicsTick()
		case <-bcast.C:
			if s.broadcastTick(s.now()) {
				s.expire()
				return
			}
		}
	}
}

// expire invokes the registry callback. The callback pointer is read
// under the mutex so registration order against Start does not matter.
func (s *Session) expire() {
	s.mu.Lock()
	fn := s.onExpire
	s.mu.Unlock()
	if fn != nil {
		fn(s.ID)
	}
}

// Destroy stops both drivers and releases every connection. Idempotent.
func (s *Session) Destroy() {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	s.phase = PhaseDestroyed
	conns := make([]Conn, 0, len(s.peers))
	for _, p := range s.peers {
		conns = append(conns, p.conn)
	}
	s.peers = make(map[string]*peer)
	s.assignment = Assignment{}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// ---------------------------------------------------
// Connection lifecycle

// Attach registers a connection. It joins as a spectator until it
// identifies itself.
func (s *Session) Attach(conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseDestroyed {
		conn.Close()
		return
	}
	s.peers[conn.ID()] = &peer{conn: conn}
	s.emptySince = time.Time{}
}

// Detach removes a connection. Losing a playing role mid-match starts
// the disconnect grace period instead of ending the match.
func (s *Session) Detach(conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := conn.ID()
	if _, ok := s.peers[id]; !ok {
		return
	}
	role := s.assignment.role(id)
	delete(s.peers, id)
	s.assignment = s.assignment.vacate(id)

	if role == RoleLeft || role == RoleRight {
		if !s.started {
			// Pre-ready: just clear the side's ready flag.
			s.setReady(role, false)
		} else if !s.finished {
			deadline := s.now().Add(DisconnectGrace)
			if role == RoleLeft {
				s.graceLeft = deadline
			} else {
				s.graceRight = deadline
			}
			// Cancel any running countdown so it cannot unpause the
			// world while the side is gone; reconnection arms a new one.
			s.world.Countdown = 0
			s.world.Pause()
			s.phase = PhasePaused
			s.logger.Info("player disconnected, grace running", "side", role)
		}
	}

	if len(s.peers) == 0 {
		s.emptySince = s.now()
	}
}

// Identify resolves a connection's identity claim into a role. A newer
// connection with an already-bound identity displaces the older one,
// which stays attached as a spectator.
func (s *Session) Identify(conn Conn, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.peers[conn.ID()]
	if !ok {
		return
	}
	if s.left.ID == "" && s.right.ID == "" {
		s.sendTo(conn, errorMsg{Type: "error", Message: "room has no players configured"})
		return
	}

	next, granted, displaced := ResolveClaim(s.assignment, ExpectedPlayers{
		LeftID:  s.left.ID,
		RightID: s.right.ID,
	}, Claim{ConnID: conn.ID(), PlayerID: playerID})

	if granted == RoleSpectator {
		s.sendTo(conn, errorMsg{Type: "error", Message: "unknown player identity"})
		return
	}

	s.assignment = next
	p.playerID = playerID
	if displaced != "" {
		s.logger.Info("identity reclaimed, demoting previous connection",
			"side", granted, "displaced", displaced)
	}

	s.sendTo(conn, welcomeMsg{
		Type:    "welcome",
		Side:    granted,
		Names:   []string{s.left.Name, s.right.Name},
		Avatars: []string{s.left.Avatar, s.right.Avatar},
	})

	// Reconnection into a running match: stop the grace timer and give
	// the returning player a fresh countdown rather than dropping them
	// mid-tick.
	side := roleSide(granted)
	if s.graceActive(side) {
		s.clearGrace(side)
		if s.started && !s.finished {
			s.world.StartCountdown()
			s.phase = PhaseCountdown
			s.logger.Info("player reconnected, restarting countdown", "side", granted)
		}
	}
}

// ---------------------------------------------------
// Protocol operations

// MarkReady flags a playing side as ready. When both sides are ready and
// connected the countdown starts and the match-started notification
// fires exactly once.
func (s *Session) MarkReady(conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role := s.assignment.role(conn.ID())
	if role == RoleSpectator {
		s.sendTo(conn, errorMsg{Type: "error", Message: "spectators cannot ready up"})
		return
	}
	s.setReady(role, true)

	if s.readyLeft && s.readyRight &&
		s.assignment.LeftConn != "" && s.assignment.RightConn != "" &&
		!s.started && !s.finished {
		s.started = true
		s.tourneyBy = time.Time{}
		s.phase = PhaseCountdown
		s.world.StartCountdown()
		s.reporter.MatchStarted(s.ID, s.left.ID, s.right.ID)
		s.logger.Info("both sides ready, match starting")
	}
}

// Input sets the paddle intent for the connection's side.
func (s *Session) Input(conn Conn, up, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	side := roleSide(s.assignment.role(conn.ID()))
	if side == game.SideNone {
		return
	}
	var intent float64
	if up && !down {
		intent = -1
	} else if down && !up {
		intent = 1
	}
	s.world.ApplyInput(side, intent)
}

// ActivateSkill forwards a skill press and records a provisional
// telemetry attempt; a later realized effect confirms it.
func (s *Session) ActivateSkill(conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	side := roleSide(s.assignment.role(conn.ID()))
	if side == game.SideNone {
		s.sendTo(conn, errorMsg{Type: "error", Message: "spectators have no skill"})
		return
	}
	info := s.playerInfo(side)
	s.stats[side].recordAttempt(skillOrDefault(info.Skill), s.world.Clock)
	s.world.PressSkill(side)
}

// Pause freezes the match. Spectators are rejected.
func (s *Session) Pause(conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assignment.role(conn.ID()) == RoleSpectator {
		s.sendTo(conn, errorMsg{Type: "error", Message: "spectators cannot pause"})
		return
	}
	s.world.Pause()
}

// Resume unfreezes the match. Spectators are rejected, a match that has
// not started (or is already over) cannot be resumed, and a match held by
// a disconnect grace cannot be resumed from the other side.
func (s *Session) Resume(conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assignment.role(conn.ID()) == RoleSpectator {
		s.sendTo(conn, errorMsg{Type: "error", Message: "spectators cannot resume"})
		return
	}
	if !s.started || s.finished {
		s.sendTo(conn, errorMsg{Type: "error", Message: "match is not running"})
		return
	}
	if s.graceActive(game.SideLeft) || s.graceActive(game.SideRight) {
		s.sendTo(conn, errorMsg{Type: "error", Message: "waiting for opponent to reconnect"})
		return
	}
	s.world.Resume()
	s.phase = PhaseActive
}

// Forfeit ends the match immediately in favor of the other side.
func (s *Session) Forfeit(conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	side := roleSide(s.assignment.role(conn.ID()))
	if side == game.SideNone {
		s.sendTo(conn, errorMsg{Type: "error", Message: "spectators cannot forfeit"})
		return
	}
	s.finish(side.Opponent(), report.ReasonForfeit)
}

// Ping answers with the echoed client timestamp.
func (s *Session) Ping(conn Conn, t int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendTo(conn, pongMsg{Type: "pong", T: t})
}

// Debug drives the world's test/ops hooks.
func (s *Session) Debug(conn Conn, action string, payload json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch action {
	case "spawn_powerup":
		s.world.DebugForcePowerUp()
	case "clear_powerups":
		s.world.DebugClearPowerUps()
	case "set_score":
		var p struct{ Left, Right int }
		if json.Unmarshal(payload, &p) == nil {
			s.world.DebugSetScore(p.Left, p.Right)
		}
	case "set_ball_speed":
		var p struct{ Speed float64 }
		if json.Unmarshal(payload, &p) == nil {
			s.world.DebugSetBallSpeed(p.Speed)
		}
	case "set_ball_velocity":
		var p struct{ VX, VY float64 }
		if json.Unmarshal(payload, &p) == nil {
			s.world.DebugSetBallVelocity(p.VX, p.VY)
		}
	case "swap_skill":
		var p struct {
			Side  game.Side
			Skill game.SkillKind
		}
		if json.Unmarshal(payload, &p) == nil {
			s.world.DebugSwapSkill(p.Side, p.Skill)
		}
	case "time_scale":
		var p struct{ Scale float64 }
		if json.Unmarshal(payload, &p) == nil {
			s.world.DebugSetTimeScale(p.Scale)
		}
	default:
		s.sendTo(conn, errorMsg{Type: "error", Message: "unknown debug action"})
	}
}

// ---------------------------------------------------
// Tick drivers

// physicsTick advances the world by one fixed step and folds the
// resulting events into telemetry and reports.
func (s *Session) physicsTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseDestroyed {
		return
	}
	s.world.Update(physicsDT)
	for _, ev := range s.world.DrainEvents() {
		s.handleEvent(ev)
	}
}

func (s *Session) handleEvent(ev game.Event) {
	switch ev.Kind {
	case game.EventGoal:
		scorer := s.playerInfo(ev.Side)
		s.reporter.GoalScored(s.ID, scorer.ID, s.world.ScoreLeft, s.world.ScoreRight)
	case game.EventPaddleHit:
		if st := s.stats[ev.Side]; st != nil {
			st.recordHit(ev.Speed)
		}
	case game.EventPowerUpCollected:
		if st := s.stats[ev.Side]; st != nil {
			st.powerUps++
		}
		s.reporter.PowerUpCollected(s.ID, s.playerInfo(ev.Side).ID)
	case game.EventSkillEffect:
		if st := s.stats[ev.Side]; st != nil {
			st.confirmAttempt(ev.Skill, s.world.Clock)
		}
	case game.EventGameOver:
		s.finish(ev.Side, report.ReasonScore)
	}
}

// broadcastTick pushes a state snapshot to every connection, emits
// edge-triggered transition messages, and evaluates every deadline. The
// returned flag tells the run loop the room has idled out.
func (s *Session) broadcastTick(now time.Time) (expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseDestroyed {
		return false
	}

	s.checkTournamentDeadline(now)
	s.checkGraceDeadlines(now)

	// Countdown transitions.
	if cd := s.world.CountdownValue(); cd != s.lastCountdown {
		s.broadcast(countdownMsg{Type: "countdown", Value: cd})
		if cd == 0 && s.started && !s.finished {
			s.phase = PhaseActive
		}
		s.lastCountdown = cd
	}

	// Pause/resume edges, suppressed before the match has started and
	// while a countdown is the reason physics is frozen.
	if s.started {
		paused := s.world.Paused && s.world.CountdownValue() == 0 && !s.world.Over
		if paused != s.lastPaused {
			if paused {
				s.broadcast(pausedMsg{Type: "paused"})
			} else {
				s.broadcast(pausedMsg{Type: "resumed"})
			}
			s.lastPaused = paused
		}
	}

	// Game-over edge.
	if s.world.Over && !s.lastOver {
		msg := gameoverMsg{
			Type:     "gameover",
			Winner:   s.world.Winner,
			WinnerID: s.playerInfo(s.world.Winner).ID,
		}
		if s.meta.Tournament {
			msg.Tournament = &tournamentCtx{
				TournamentID: s.meta.TournamentID,
				MatchID:      s.meta.MatchID,
			}
		}
		s.broadcast(msg)
		s.lastOver = true
		s.phase = PhaseOver
	}

	if s.graceActive(game.SideLeft) || s.graceActive(game.SideRight) {
		s.broadcast(timeoutStatusMsg{
			Type:  "timeout_status",
			Left:  s.timeoutState(s.graceLeft, now),
			Right: s.timeoutState(s.graceRight, now),
		})
	}

	s.broadcast(stateMsg{
		Type:       "state",
		Snapshot:   s.world.Snapshot(),
		ServerTime: now.UnixMilli(),
	})

	return !s.emptySince.IsZero() && now.Sub(s.emptySince) > IdleGrace
}

// checkTournamentDeadline enforces the connection-establishment window
// of tournament matches.
func (s *Session) checkTournamentDeadline(now time.Time) {
	if s.tourneyBy.IsZero() || s.started || s.finished || now.Before(s.tourneyBy) {
		return
	}
	s.tourneyBy = time.Time{}

	leftHere := s.assignment.LeftConn != ""
	rightHere := s.assignment.RightConn != ""
	switch {
	case leftHere && rightHere:
		// Both showed up; let the normal ready flow take it from here.
	case leftHere:
		s.logger.Info("tournament no-show, left wins by forfeit")
		s.finish(game.SideLeft, report.ReasonForfeit)
	case rightHere:
		s.logger.Info("tournament no-show, right wins by forfeit")
		s.finish(game.SideRight, report.ReasonForfeit)
	default:
		s.logger.Info("tournament match cancelled, nobody connected")
		s.finish(game.SideNone, report.ReasonCancelled)
	}
}

// checkGraceDeadlines forfeits a side whose disconnect grace has run out.
func (s *Session) checkGraceDeadlines(now time.Time) {
	if s.finished {
		return
	}
	if s.graceActive(game.SideLeft) && !now.Before(s.graceLeft) {
		s.world.TimedOutLeft = true
		s.finish(game.SideRight, report.ReasonTimeout)
		return
	}
	if s.graceActive(game.SideRight) && !now.Before(s.graceRight) {
		s.world.TimedOutRight = true
		s.finish(game.SideLeft, report.ReasonTimeout)
	}
}

// ---------------------------------------------------
// Internals

// finish ends the match exactly once, regardless of how many triggers
// race to call it.
func (s *Session) finish(winner game.Side, reason report.Reason) {
	if s.finished {
		return
	}
	s.finished = true
	s.reason = reason
	s.phase = PhaseOver
	s.graceLeft = time.Time{}
	s.graceRight = time.Time{}
	s.tourneyBy = time.Time{}
	s.world.ForceOver(winner)

	res := report.MatchResult{
		RoomID:       s.ID,
		Reason:       reason,
		WinnerID:     s.playerInfo(winner).ID,
		ScoreLeft:    s.world.ScoreLeft,
		ScoreRight:   s.world.ScoreRight,
		Tournament:   s.meta.Tournament,
		TournamentID: s.meta.TournamentID,
		MatchID:      s.meta.MatchID,
		Stats: []report.PlayerStats{
			s.stats[game.SideLeft].toReport(s.left.ID),
			s.stats[game.SideRight].toReport(s.right.ID),
		},
	}
	s.reporter.MatchFinished(res)
	s.logger.Info("match finished", "reason", reason, "winner", winner,
		"score", s.world.ScoreLeft, "scoreRight", s.world.ScoreRight)
}

func (s *Session) setReady(role Role, ready bool) {
	if role == RoleLeft {
		s.readyLeft = ready
	} else if role == RoleRight {
		s.readyRight = ready
	}
}

func (s *Session) graceActive(side game.Side) bool {
	if side == game.SideLeft {
		return !s.graceLeft.IsZero()
	}
	return !s.graceRight.IsZero()
}

func (s *Session) clearGrace(side game.Side) {
	if side == game.SideLeft {
		s.graceLeft = time.Time{}
	} else {
		s.graceRight = time.Time{}
	}
	if !s.graceActive(game.SideLeft) && !s.graceActive(game.SideRight) {
		if s.phase == PhasePaused {
			s.phase = PhaseCountdown
		}
	}
}

func (s *Session) timeoutState(deadline time.Time, now time.Time) timeoutState {
	if deadline.IsZero() {
		return timeoutState{}
	}
	remaining := deadline.Sub(now).Milliseconds()
	if remaining < 0 {
		remaining = 0
	}
	return timeoutState{Active: true, RemainingMs: remaining}
}

func (s *Session) playerInfo(side game.Side) PlayerInfo {
	switch side {
	case game.SideLeft:
		return s.left
	case game.SideRight:
		return s.right
	}
	return PlayerInfo{}
}

func roleSide(r Role) game.Side {
	switch r {
	case RoleLeft:
		return game.SideLeft
	case RoleRight:
		return game.SideRight
	}
	return game.SideNone
}

func (s *Session) broadcast(msg any) {
	data := encode(msg)
	for _, p := range s.peers {
		if !p.conn.Send(data) {
			s.logger.Warn("dropping frame, send queue full", "conn", p.conn.ID())
		}
	}
}

func (s *Session) sendTo(conn Conn, msg any) {
	conn.Send(encode(msg))
}
