package session

// Role is what a connection is allowed to do in a room.
type Role string

const (
	RoleSpectator Role = "spectator"
	RoleLeft      Role = "left"
	RoleRight     Role = "right"
)

// Claim is one connection's bid for a playing role.
type Claim struct {
	ConnID   string
	PlayerID string
}

// ExpectedPlayers are the identities configured at room creation. They
// never change for the life of the session.
type ExpectedPlayers struct {
	LeftID  string
	RightID string
}

// Assignment maps the playing roles to connection ids. Empty means vacant.
type Assignment struct {
	LeftConn  string
	RightConn string
}

// ResolveClaim decides what role a claim earns. It is a pure function so
// identity-collision behavior can be tested without any network plumbing.
// A claim matching an already-bound identity displaces the older
// connection, whose id is returned so the caller can demote it.
func ResolveClaim(cur Assignment, expected ExpectedPlayers, c Claim) (next Assignment, granted Role, displaced string) {
	next = cur
	if expected.LeftID == "" && expected.RightID == "" {
		return next, RoleSpectator, ""
	}
	switch c.PlayerID {
	case expected.LeftID:
		if cur.LeftConn != c.ConnID {
			displaced = cur.LeftConn
		}
		next.LeftConn = c.ConnID
		return next, RoleLeft, displaced
	case expected.RightID:
		if cur.RightConn != c.ConnID {
			displaced = cur.RightConn
		}
		next.RightConn = c.ConnID
		return next, RoleRight, displaced
	}
	return next, RoleSpectator, ""
}

// role returns the role an assignment grants to a connection id.
func (a Assignment) role(connID string) Role {
	switch connID {
	case "":
		return RoleSpectator
	case a.LeftConn:
		return RoleLeft
	case a.RightConn:
		return RoleRight
	}
	return RoleSpectator
}

// vacate clears whichever playing role the connection holds.
func (a Assignment) vacate(connID string) Assignment {
	if a.LeftConn == connID {
		a.LeftConn = ""
	}
	if a.RightConn == connID {
		a.RightConn = ""
	}
	return a
}
