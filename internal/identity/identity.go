// Package identity verifies bearer tokens issued by the portal's login
// service and turns them into an Actor.
package identity

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleCandidate Role = "candidate"
	RoleManager   Role = "manager"
	RoleHR        Role = "hr"
	RoleAdmin     Role = "admin"
)

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
	ErrInvalidRole  = errors.New("invalid_role")
)

// Actor is the authenticated caller. For candidates ID is the candidate id;
// for staff it is the portal user id.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleCandidate:
		return RoleCandidate, nil
	case RoleManager:
		return RoleManager, nil
	case RoleHR:
		return RoleHR, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

// IsStaff reports whether the actor may override pipeline state.
func (a Actor) IsStaff() bool {
	return a.Role == RoleHR || a.Role == RoleAdmin
}

func (a Actor) Valid() bool {
	if strings.TrimSpace(a.ID) == "" {
		return false
	}
	_, err := ParseRole(string(a.Role))
	return err == nil
}
