package models

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleSuperAdmin Role = "super admin"
	RoleManager    Role = "manager"
	RoleDeveloper  Role = "developer"
	RoleTester     Role = "tester"
)

// Roles lists every role in descending order of privilege.
var Roles = []Role{RoleSuperAdmin, RoleManager, RoleDeveloper, RoleTester}

func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// ParseRole returns the Role named by s.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Membership is the edge between a project and a user. SessionStartedAt is
// nil while no work session is open.
type Membership struct {
	ProjectID           string
	UserID              string
	Role                Role
	ContributionMinutes int64
	LastActivity        *time.Time
	SessionStartedAt    *time.Time
}

// Running reports whether a work session is open on the edge.
func (m *Membership) Running() bool {
	return m.SessionStartedAt != nil
}

// Member is a membership joined with the user's public fields.
type Member struct {
	Membership
	Name  string
	Email string
}

// Assignment is one entry of a batch assign.
type Assignment struct {
	UserID string
	Role   Role
}

type SessionStart struct {
	ProjectID string
	TaskID    string
	StartedAt time.Time
}

type SessionEnd struct {
	ProjectID         string
	TaskID            string
	ElapsedMinutes    int64
	CumulativeMinutes int64
	EndedAt           time.Time
}
