package campaign

import (
	"context"

	"quest-scheduler-go/internal/domain/access"
)

// Repository is the campaign store. Implementations must translate missing
// rows into the NotFound sentinels of this package and uniqueness violations
// on (campaign_id, user_id) into ErrAlreadyMember / ErrJoinRequestExists.
type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	CreateCampaign(ctx context.Context, campaign *Campaign) error
	GetCampaign(ctx context.Context, campaignID string) (*Campaign, error)
	// LockCampaign reads the campaign and holds a row lock until the
	// surrounding transaction ends.
	LockCampaign(ctx context.Context, campaignID string) (*Campaign, error)
	GetCampaignByInviteCode(ctx context.Context, code string) (*Campaign, error)
	UpdateCampaign(ctx context.Context, campaign *Campaign) error
	DeleteCampaign(ctx context.Context, campaignID string) error
	IsInviteCodeTaken(ctx context.Context, code string) (bool, error)
	ListCampaignsByUser(ctx context.Context, userID string, filter RoleFilter) ([]Membership, error)

	AddMember(ctx context.Context, member *Member) error
	GetMember(ctx context.Context, campaignID, userID string) (*Member, error)
	ListMembers(ctx context.Context, campaignID string) ([]Member, error)
	CountMembers(ctx context.Context, campaignID string) (int64, error)
	UpdateMemberRole(ctx context.Context, campaignID, userID string, role access.Role) error
	DeleteMember(ctx context.Context, campaignID, userID string) error

	CreateJoinRequest(ctx context.Context, request *JoinRequest) error
	GetJoinRequest(ctx context.Context, requestID string) (*JoinRequest, error)
	LockJoinRequest(ctx context.Context, requestID string) (*JoinRequest, error)
	GetJoinRequestByUser(ctx context.Context, campaignID, userID string) (*JoinRequest, error)
	UpdateJoinRequest(ctx context.Context, request *JoinRequest) error
	ListJoinRequests(ctx context.Context, campaignID string, status JoinRequestStatus) ([]JoinRequest, error)
}
