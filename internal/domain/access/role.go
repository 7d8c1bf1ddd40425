// Package access resolves a caller's effective role in a campaign or session.
//
// The resolvers are pure: they look only at the data they are given and never
// touch storage. Callers pass whichever membership rows they loaded, usually
// just the caller's own row.
package access

import (
	"quest-scheduler-go/internal/domain/apperr"
)

// Role is a membership role. Campaigns use all three; sessions use GM and PLAYER.
type Role string

const (
	RoleNone   Role = ""
	RoleOwner  Role = "OWNER"
	RoleGM     Role = "GM"
	RolePlayer Role = "PLAYER"
)

var ErrInvalidRole = apperr.New(apperr.KindValidation, "invalid_role", "invalid role")

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleGM, RolePlayer:
		return true
	case RoleNone:
		return false
	}
	return false
}

func (r Role) String() string {
	if r == RoleNone {
		return "NONE"
	}
	return string(r)
}

// ParseRole accepts OWNER, GM or PLAYER.
func ParseRole(value string) (Role, error) {
	role := Role(value)
	if !role.Valid() {
		return RoleNone, ErrInvalidRole.WithMessage("invalid role %q", value)
	}
	return role, nil
}

// Membership is the part of a member or participant row the resolver needs.
type Membership struct {
	UserID string
	Role   Role
}

// RoleInCampaign returns OWNER when userID is the campaign owner, otherwise
// the role recorded for userID in members, otherwise RoleNone. The owner
// comparison wins over whatever the membership rows say.
func RoleInCampaign(ownerID string, members []Membership, userID string) Role {
	if userID == "" {
		return RoleNone
	}
	if ownerID == userID {
		return RoleOwner
	}
	for _, member := range members {
		if member.UserID != userID {
			continue
		}
		switch member.Role {
		case RoleGM, RolePlayer:
			return member.Role
		case RoleOwner, RoleNone:
			// an OWNER row for someone other than ownerID is not trusted
			return RoleNone
		}
	}
	return RoleNone
}

// RoleInSession returns GM for the session creator, PLAYER for any other
// participant, or RoleNone.
func RoleInSession(creatorID string, participants []Membership, userID string) Role {
	if userID == "" {
		return RoleNone
	}
	if creatorID == userID {
		return RoleGM
	}
	for _, participant := range participants {
		if participant.UserID == userID {
			return RolePlayer
		}
	}
	return RoleNone
}

// CanManageCampaign reports whether role may run member and request management.
func CanManageCampaign(role Role) bool {
	return role == RoleOwner || role == RoleGM
}

// CanManageSession reports whether role may mutate a session and its roster.
func CanManageSession(role Role) bool {
	return role == RoleGM
}

// IsMember reports whether role is any campaign or session role.
func IsMember(role Role) bool {
	return role != RoleNone
}
