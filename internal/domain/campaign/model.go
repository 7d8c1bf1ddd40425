package campaign

import (
	"time"

	"quest-scheduler-go/internal/domain/access"
	"quest-scheduler-go/internal/domain/apperr"
)

type Visibility string

const (
	VisibilityPublic   Visibility = "PUBLIC"
	VisibilityPrivate  Visibility = "PRIVATE"
	VisibilityLinkOnly Visibility = "LINK_ONLY"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityLinkOnly:
		return true
	}
	return false
}

func ParseVisibility(value string) (Visibility, error) {
	v := Visibility(value)
	if !v.Valid() {
		return "", ErrInvalidVisibility.WithMessage("invalid visibility %q", value)
	}
	return v, nil
}

type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "PENDING"
	JoinRequestApproved JoinRequestStatus = "APPROVED"
	JoinRequestRejected JoinRequestStatus = "REJECTED"
)

func (s JoinRequestStatus) Valid() bool {
	switch s {
	case JoinRequestPending, JoinRequestApproved, JoinRequestRejected:
		return true
	}
	return false
}

func ParseJoinRequestStatus(value string) (JoinRequestStatus, error) {
	s := JoinRequestStatus(value)
	if !s.Valid() {
		return "", apperr.Validationf("invalid join request status %q", value)
	}
	return s, nil
}

type Campaign struct {
	ID          string     `gorm:"type:uuid;primaryKey"`
	Title       string     `gorm:"not null"`
	Description string     `gorm:"not null;default:''"`
	System      string     `gorm:"not null;default:'';index"`
	Visibility  Visibility `gorm:"type:varchar(16);not null"`
	InviteCode  *string    `gorm:"size:32;uniqueIndex"`
	OwnerID     string     `gorm:"not null;index"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`
}

type Member struct {
	ID         string      `gorm:"type:uuid;primaryKey"`
	CampaignID string      `gorm:"type:uuid;not null;uniqueIndex:idx_campaign_members_pair"`
	UserID     string      `gorm:"not null;uniqueIndex:idx_campaign_members_pair"`
	Role       access.Role `gorm:"type:varchar(16);not null"`
	JoinedAt   time.Time   `gorm:"autoCreateTime"`
}

func (Member) TableName() string { return "campaign_members" }

type JoinRequest struct {
	ID         string            `gorm:"type:uuid;primaryKey"`
	CampaignID string            `gorm:"type:uuid;not null;uniqueIndex:idx_join_requests_pair"`
	UserID     string            `gorm:"not null;uniqueIndex:idx_join_requests_pair"`
	Status     JoinRequestStatus `gorm:"type:varchar(16);not null"`
	Message    string            `gorm:"not null;default:''"`
	ReviewedAt *time.Time
	ReviewedBy *string
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time
}

func (JoinRequest) TableName() string { return "join_requests" }

// RoleFilter narrows ListMyCampaigns.
type RoleFilter string

const (
	RoleFilterAll    RoleFilter = "all"
	RoleFilterOwner  RoleFilter = "owner"
	RoleFilterMember RoleFilter = "member"
)

func ParseRoleFilter(value string) (RoleFilter, error) {
	switch RoleFilter(value) {
	case "":
		return RoleFilterAll, nil
	case RoleFilterAll, RoleFilterOwner, RoleFilterMember:
		return RoleFilter(value), nil
	}
	return "", apperr.Validationf("invalid role filter %q", value)
}

// Membership is a campaign seen from one of its members.
type Membership struct {
	Campaign Campaign
	Role     access.Role
}

// Details is the payload of GetCampaign. InviteCode on Campaign and
// PendingRequests are only filled for OWNER and GM viewers.
type Details struct {
	Campaign        Campaign
	ViewerRole      access.Role
	MemberCount     int64
	PendingRequests []JoinRequest
}

type CreateCampaignInput struct {
	OwnerID     string
	Title       string
	Description string
	System      string
	Visibility  Visibility
}

type UpdateCampaignInput struct {
	CampaignID   string
	ActingUserID string
	Title        *string
	Description  *string
	System       *string
	Visibility   *Visibility
}

// JoinOutcome reports what SubmitJoinRequest did: a PUBLIC campaign yields a
// Member and no Request, any other campaign yields a pending Request.
type JoinOutcome struct {
	Member  *Member
	Request *JoinRequest
}

func (o JoinOutcome) Joined() bool {
	return o.Member != nil
}

func roster(members ...*Member) []access.Membership {
	result := make([]access.Membership, 0, len(members))
	for _, member := range members {
		if member == nil {
			continue
		}
		result = append(result, access.Membership{UserID: member.UserID, Role: member.Role})
	}
	return result
}

func stripPrivate(c *Campaign, role access.Role) {
	if !access.CanManageCampaign(role) {
		c.InviteCode = nil
	}
}
