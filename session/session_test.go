package session

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pongd/game"
	"pongd/report"
)

// fakeConn records every frame a session sends.
type fakeConn struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// messages decodes all frames of the given type.
func (c *fakeConn) messages(msgType string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, f := range c.frames {
		var m map[string]any
		if json.Unmarshal(f, &m) == nil && m["type"] == msgType {
			out = append(out, m)
		}
	}
	return out
}

// fakeReporter counts notifications.
type fakeReporter struct {
	mu       sync.Mutex
	started  int
	goals    int
	powerups int
	finished []report.MatchResult
}

func (r *fakeReporter) MatchStarted(string, string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *fakeReporter) GoalScored(string, string, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.goals++
}

func (r *fakeReporter) PowerUpCollected(string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.powerups++
}

func (r *fakeReporter) MatchFinished(res report.MatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, res)
}

func (r *fakeReporter) finishedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.finished)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	alice = PlayerInfo{ID: "alice", Name: "Alice", Skill: game.SkillSmash}
	bob   = PlayerInfo{ID: "bob", Name: "Bob", Skill: game.SkillDash}
)

// newTestSession builds a session with a frozen clock. The tick drivers
// are never started; tests call the tick functions directly.
func newTestSession(t *testing.T, meta Meta) (*Session, *fakeReporter, func(time.Time)) {
	t.Helper()
	rep := &fakeReporter{}
	s := New("room-1", alice, bob, meta, rep, testLogger())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cur := base
	s.now = func() time.Time { return cur }
	s.emptySince = base
	setClock := func(at time.Time) { cur = at }
	setClock(base)
	return s, rep, setClock
}

func joinBoth(t *testing.T, s *Session) (*fakeConn, *fakeConn) {
	t.Helper()
	c1 := newFakeConn("c1")
	c2 := newFakeConn("c2")
	s.Attach(c1)
	s.Attach(c2)
	s.Identify(c1, "alice")
	s.Identify(c2, "bob")
	return c1, c2
}

func TestBothReadyStartsCountdownOnce(t *testing.T) {
	s, rep, _ := newTestSession(t, Meta{})
	c1, c2 := joinBoth(t, s)

	require.Equal(t, PhaseAwaiting, s.Phase())
	s.MarkReady(c1)
	require.Equal(t, PhaseAwaiting, s.Phase(), "one ready side is not enough")
	s.MarkReady(c2)

	assert.Equal(t, PhaseCountdown, s.Phase())
	assert.Equal(t, 1, rep.started, "match-started fires exactly once")

	// Racing/duplicate ready messages must not re-fire it.
	s.MarkReady(c1)
	s.MarkReady(c2)
	assert.Equal(t, 1, rep.started)
}

func TestWelcomeCarriesSideAndNames(t *testing.T) {
	s, _, _ := newTestSession(t, Meta{})
	c1, _ := joinBoth(t, s)

	welcomes := c1.messages("welcome")
	require.Len(t, welcomes, 1)
	assert.Equal(t, "left", welcomes[0]["side"])
	names, _ := welcomes[0]["opponentNames"].([]any)
	assert.Equal(t, []any{"Alice", "Bob"}, names)
}

func TestIdentityCollisionDemotesOlderConnection(t *testing.T) {
	s, _, _ := newTestSession(t, Meta{})
	c1, _ := joinBoth(t, s)

	c3 := newFakeConn("c3")
	s.Attach(c3)
	s.Identify(c3, "alice")

	s.mu.Lock()
	assert.Equal(t, "c3", s.assignment.LeftConn)
	s.mu.Unlock()

	// The displaced connection is now a spectator but still attached.
	s.Input(c1, true, false)
	assert.Zero(t, s.world.Left.Intent, "demoted connection no longer controls the paddle")
	assert.False(t, c1.closed, "demoted, not closed")

	s.Input(c3, true, false)
	assert.Equal(t, -1.0, s.world.Left.Intent)
}

func TestUnknownIdentityRejectedAsSpectator(t *testing.T) {
	s, _, _ := newTestSession(t, Meta{})
	c := newFakeConn("cx")
	s.Attach(c)
	s.Identify(c, "mallory")

	require.NotEmpty(t, c.messages("error"))
	s.Input(c, true, false)
	assert.Zero(t, s.world.Left.Intent)
	assert.Zero(t, s.world.Right.Intent)
}

func TestSpectatorActionsRejected(t *testing.T) {
	s, _, _ := newTestSession(t, Meta{})
	spec := newFakeConn("spec")
	s.Attach(spec)

	s.MarkReady(spec)
	s.Pause(spec)
	s.Resume(spec)
	s.Forfeit(spec)

	assert.GreaterOrEqual(t, len(spec.messages("error")), 4)
	assert.False(t, s.world.Paused && s.started)
	assert.Equal(t, PhaseAwaiting, s.Phase())
}

func TestInputMapsToIntent(t *testing.T) {
	s, _, _ := newTestSession(t, Meta{})
	c1, c2 := joinBoth(t, s)

	s.Input(c1, true, false)
	assert.Equal(t, -1.0, s.world.Left.Intent)
	s.Input(c1, false, true)
	assert.Equal(t, 1.0, s.world.Left.Intent)
	s.Input(c1, true, true)
	assert.Zero(t, s.world.Left.Intent, "contradictory input cancels out")
	s.Input(c2, false, true)
	assert.Equal(t, 1.0, s.world.Right.Intent)
}

func TestForfeitEndsMatchForOpponent(t *testing.T) {
	s, rep, _ := newTestSession(t, Meta{})
	c1, c2 := joinBoth(t, s)
	s.MarkReady(c1)
	s.MarkReady(c2)

	s.Forfeit(c1)

	require.Equal(t, 1, rep.finishedCount())
	res := rep.finished[0]
	assert.Equal(t, report.ReasonForfeit, res.Reason)
	assert.Equal(t, "bob", res.WinnerID)
	assert.Equal(t, PhaseOver, s.Phase())

	// Further triggers cannot double-report.
	s.Forfeit(c2)
	assert.Equal(t, 1, rep.finishedCount())
}

func TestResumeBeforeStartRejected(t *testing.T) {
	s, rep, _ := newTestSession(t, Meta{})
	c1, _ := joinBoth(t, s)

	// Neither side has readied up; a stray resume must not start physics.
	s.Resume(c1)
	require.NotEmpty(t, c1.messages("error"))
	assert.True(t, s.world.Paused, "world stays frozen until both sides are ready")
	assert.Equal(t, PhaseAwaiting, s.Phase())

	for i := 0; i < PhysicsHz; i++ {
		s.physicsTick()
	}
	assert.Zero(t, s.world.Clock, "no simulation time passes before the match starts")
	assert.Zero(t, rep.started)
	assert.Zero(t, rep.finishedCount(), "a match that never started cannot finish by score")
}

func TestResumeAfterFinishRejected(t *testing.T) {
	s, _, _ := newTestSession(t, Meta{})
	c1, c2 := joinBoth(t, s)
	s.MarkReady(c1)
	s.MarkReady(c2)
	s.Forfeit(c2)

	before := len(c1.messages("error"))
	s.Resume(c1)
	assert.True(t, s.world.Paused)
	assert.Equal(t, PhaseOver, s.Phase())
	assert.Greater(t, len(c1.messages("error")), before)
}

func TestDisconnectStartsGraceAndPauses(t *testing.T) {
	s, _, setClock := newTestSession(t, Meta{})
	c1, c2 := joinBoth(t, s)
	s.MarkReady(c1)
	s.MarkReady(c2)

	s.Detach(c2)

	assert.Equal(t, PhasePaused, s.Phase())
	assert.True(t, s.world.Paused)

	// The broadcast tick keeps publishing remaining grace.
	base := s.now()
	setClock(base.Add(10 * time.Second))
	s.broadcastTick(s.now())
	statuses := c1.messages("timeout_status")
	require.NotEmpty(t, statuses)
	right := statuses[len(statuses)-1]["right"].(map[string]any)
	assert.Equal(t, true, right["active"])
	assert.InDelta(t, 20000, right["remainingMs"].(float64), 1500)
}

func TestGraceExpiryAwardsTimeoutWinOnce(t *testing.T) {
	s, rep, setClock := newTestSession(t, Meta{})
	c1, c2 := joinBoth(t, s)
	s.MarkReady(c1)
	s.MarkReady(c2)
	base := s.now()

	s.Detach(c2)
	setClock(base.Add(DisconnectGrace + time.Second))
	s.broadcastTick(s.now())

	require.Equal(t, 1, rep.finishedCount())
	res := rep.finished[0]
	assert.Equal(t, report.ReasonTimeout, res.Reason)
	assert.Equal(t, "alice", res.WinnerID)

	// A second tick past the deadline must not report again.
	setClock(base.Add(DisconnectGrace + 2*time.Second))
	s.broadcastTick(s.now())
	assert.Equal(t, 1, rep.finishedCount())
}

func TestReconnectWithinGraceRestartsCountdown(t *testing.T) {
	s, rep, setClock := newTestSession(t, Meta{})
	c1, c2 := joinBoth(t, s)
	s.MarkReady(c1)
	s.MarkReady(c2)
	base := s.now()

	// Burn the initial countdown down so the match is properly live.
	for i := 0; i < 4*PhysicsHz; i++ {
		s.physicsTick()
	}
	require.False(t, s.world.Paused)

	s.Detach(c2)
	require.True(t, s.world.Paused)

	setClock(base.Add(5 * time.Second))
	c3 := newFakeConn("c3")
	s.Attach(c3)
	s.Identify(c3, "bob")

	assert.Equal(t, PhaseCountdown, s.Phase())
	assert.Equal(t, 3, s.world.CountdownValue(), "returning player gets a fresh countdown")
	assert.False(t, s.graceActive(game.SideRight))

	setClock(base.Add(DisconnectGrace + time.Minute))
	s.broadcastTick(s.now())
	assert.Zero(t, rep.finishedCount(), "cleared grace never expires")
}

func TestPreStartDisconnectClearsReady(t *testing.T) {
	s, rep, _ := newTestSession(t, Meta{})
	c1, c2 := joinBoth(t, s)
	s.MarkReady(c1)
	s.Detach(c1)

	s.mu.Lock()
	assert.False(t, s.readyLeft)
	s.mu.Unlock()
	assert.Equal(t, PhaseAwaiting, s.Phase(), "no grace before the match starts")

	// The remaining player readying up alone must not start anything.
	s.MarkReady(c2)
	assert.Zero(t, rep.started)
}

func TestTournamentNoShowCancelsWithNoWinner(t *testing.T) {
	s, rep, setClock := newTestSession(t, Meta{Tournament: true, TournamentID: "t1", MatchID: "m1"})
	base := s.now()
	s.tourneyBy = base.Add(TournamentConnectWindow)

	setClock(base.Add(TournamentConnectWindow + time.Second))
	s.broadcastTick(s.now())

	require.Equal(t, 1, rep.finishedCount())
	res := rep.finished[0]
	assert.Equal(t, report.ReasonCancelled, res.Reason)
	assert.Empty(t, res.WinnerID, "cancelled matches have no winner")
}

func TestTournamentSingleShowWinsByForfeit(t *testing.T) {
	s, rep, setClock := newTestSession(t, Meta{Tournament: true, TournamentID: "t1", MatchID: "m1"})
	base := s.now()
	s.tourneyBy = base.Add(TournamentConnectWindow)

	c1 := newFakeConn("c1")
	s.Attach(c1)
	s.Identify(c1, "alice")

	setClock(base.Add(TournamentConnectWindow + time.Second))
	s.broadcastTick(s.now())

	require.Equal(t, 1, rep.finishedCount())
	res := rep.finished[0]
	assert.Equal(t, report.ReasonForfeit, res.Reason)
	assert.Equal(t, "alice", res.WinnerID)
}

func TestTournamentTimerCancelledWhenBothReady(t *testing.T) {
	s, rep, setClock := newTestSession(t, Meta{Tournament: true, TournamentID: "t1", MatchID: "m1"})
	base := s.now()
	s.tourneyBy = base.Add(TournamentConnectWindow)

	c1, c2 := joinBoth(t, s)
	s.MarkReady(c1)
	s.MarkReady(c2)

	setClock(base.Add(time.Minute))
	s.broadcastTick(s.now())

	assert.Zero(t, rep.finishedCount(), "a started tournament match is never no-showed")
	assert.Equal(t, 1, rep.started)
}

func TestScoreFinishReportsOnce(t *testing.T) {
	s, rep, _ := newTestSession(t, Meta{})
	c1, c2 := joinBoth(t, s)
	s.MarkReady(c1)
	s.MarkReady(c2)

	s.mu.Lock()
	s.world.DebugSetScore(game.WinScore-1, 0)
	s.world.Resume()
	s.world.Countdown = 0
	s.world.DebugSetBallVelocity(900, 0)
	s.world.Balls[0].X = game.FieldWidth - 2
	s.world.Balls[0].Y = game.FieldHeight / 2
	s.mu.Unlock()

	for i := 0; i < PhysicsHz; i++ {
		s.physicsTick()
	}

	require.Equal(t, 1, rep.finishedCount())
	res := rep.finished[0]
	assert.Equal(t, report.ReasonScore, res.Reason)
	assert.Equal(t, "alice", res.WinnerID)
	assert.Equal(t, game.WinScore, res.ScoreLeft)
	assert.Equal(t, 1, rep.goals)
}

func TestBroadcastEmitsEdgeTransitions(t *testing.T) {
	s, _, _ := newTestSession(t, Meta{})
	c1, c2 := joinBoth(t, s)
	s.MarkReady(c1)
	s.MarkReady(c2)

	// Countdown value appears once per change, not per tick.
	s.broadcastTick(s.now())
	s.broadcastTick(s.now())
	require.Len(t, c1.messages("countdown"), 1)

	for i := 0; i < 4*PhysicsHz; i++ {
		s.physicsTick()
	}
	s.broadcastTick(s.now())
	cds := c1.messages("countdown")
	assert.Equal(t, float64(0), cds[len(cds)-1]["value"])

	// Manual pause and resume produce exactly one edge each.
	s.Pause(c1)
	s.broadcastTick(s.now())
	s.broadcastTick(s.now())
	assert.Len(t, c2.messages("paused"), 1)

	s.Resume(c1)
	s.broadcastTick(s.now())
	s.broadcastTick(s.now())
	assert.Len(t, c2.messages("resumed"), 1)
}

func TestGameOverBroadcastIncludesTournamentContext(t *testing.T) {
	s, _, _ := newTestSession(t, Meta{Tournament: true, TournamentID: "t9", MatchID: "m3"})
	c1, c2 := joinBoth(t, s)
	s.MarkReady(c1)
	s.MarkReady(c2)

	s.Forfeit(c2)
	s.broadcastTick(s.now())

	overs := c1.messages("gameover")
	require.Len(t, overs, 1)
	assert.Equal(t, "left", overs[0]["winner"])
	assert.Equal(t, "alice", overs[0]["winnerId"])
	tc := overs[0]["tournament"].(map[string]any)
	assert.Equal(t, "m3", tc["matchId"])

	// The edge fires once.
	s.broadcastTick(s.now())
	assert.Len(t, c1.messages("gameover"), 1)
}

func TestSkillTelemetryConfirmsRealizedEffect(t *testing.T) {
	s, _, _ := newTestSession(t, Meta{})
	c1, c2 := joinBoth(t, s)
	s.MarkReady(c1)
	s.MarkReady(c2)

	// Bob carries dash, which realizes its effect on activation.
	s.ActivateSkill(c2)
	s.physicsTick()

	s.mu.Lock()
	attempts := s.stats[game.SideRight].attempts
	s.mu.Unlock()
	require.Len(t, attempts, 1)
	assert.Equal(t, game.SkillDash, attempts[0].kind)
	assert.True(t, attempts[0].success, "realized effect confirms the provisional attempt")
}

func TestSkillAttemptWithoutEffectStaysUnconfirmed(t *testing.T) {
	s, _, _ := newTestSession(t, Meta{})
	c1, c2 := joinBoth(t, s)
	s.MarkReady(c1)
	s.MarkReady(c2)

	// Alice's smash arms a window but no paddle hit lands.
	s.ActivateSkill(c1)
	for i := 0; i < 10; i++ {
		s.physicsTick()
	}

	s.mu.Lock()
	attempts := s.stats[game.SideLeft].attempts
	s.mu.Unlock()
	require.Len(t, attempts, 1)
	assert.False(t, attempts[0].success)
}

func TestIdleSessionReportsExpiry(t *testing.T) {
	s, _, setClock := newTestSession(t, Meta{})
	base := s.now()

	assert.False(t, s.broadcastTick(s.now()), "fresh room is not expired yet")

	setClock(base.Add(IdleGrace + time.Second))
	assert.True(t, s.broadcastTick(s.now()), "empty past the grace period")

	// A connection resets the idle clock.
	c := newFakeConn("c1")
	s.Attach(c)
	assert.False(t, s.broadcastTick(s.now()))
}

func TestExpireInvokesRegisteredCallback(t *testing.T) {
	s, _, setClock := newTestSession(t, Meta{})
	base := s.now()

	// Registration can happen after the drivers would already be running.
	var swept []string
	s.SetExpireFunc(func(id string) { swept = append(swept, id) })

	setClock(base.Add(IdleGrace + time.Second))
	require.True(t, s.broadcastTick(s.now()))
	s.expire()
	assert.Equal(t, []string{"room-1"}, swept)
}

func TestDestroyClosesConnectionsAndStopsTicks(t *testing.T) {
	s, _, _ := newTestSession(t, Meta{})
	c1, c2 := joinBoth(t, s)

	s.Destroy()
	s.Destroy() // idempotent

	assert.True(t, c1.closed)
	assert.True(t, c2.closed)
	assert.Equal(t, PhaseDestroyed, s.Phase())

	// Ticks against a destroyed session are no-ops.
	s.physicsTick()
	assert.False(t, s.broadcastTick(s.now()))
}

func TestPingAnswersPong(t *testing.T) {
	s, _, _ := newTestSession(t, Meta{})
	c := newFakeConn("c1")
	s.Attach(c)
	s.Ping(c, 12345)

	pongs := c.messages("pong")
	require.Len(t, pongs, 1)
	assert.Equal(t, float64(12345), pongs[0]["t"])
}

func TestDebugActionsReachWorld(t *testing.T) {
	s, _, _ := newTestSession(t, Meta{})
	c1, _ := joinBoth(t, s)

	s.Debug(c1, "set_score", json.RawMessage(`{"Left":4,"Right":7}`))
	assert.Equal(t, 4, s.world.ScoreLeft)
	assert.Equal(t, 7, s.world.ScoreRight)

	s.Debug(c1, "spawn_powerup", nil)
	assert.Len(t, s.world.PowerUps, 1)
	s.Debug(c1, "clear_powerups", nil)
	assert.Empty(t, s.world.PowerUps)

	s.Debug(c1, "time_scale", json.RawMessage(`{"Scale":2}`))
	assert.Equal(t, 2.0, s.world.TimeScale)

	s.Debug(c1, "bogus", nil)
	assert.NotEmpty(t, c1.messages("error"))
}
