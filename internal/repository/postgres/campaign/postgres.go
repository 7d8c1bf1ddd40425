package campaign

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quest-scheduler-go/internal/domain/access"
	campaigndomain "quest-scheduler-go/internal/domain/campaign"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(campaigndomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) CreateCampaign(ctx context.Context, campaign *campaigndomain.Campaign) error {
	err := r.db.WithContext(ctx).Create(campaign).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return campaigndomain.ErrInviteCodeTaken
	}
	return err
}

func (r *PostgresRepository) GetCampaign(ctx context.Context, campaignID string) (*campaigndomain.Campaign, error) {
	return r.firstCampaign(r.db.WithContext(ctx), campaignID)
}

func (r *PostgresRepository) LockCampaign(ctx context.Context, campaignID string) (*campaigndomain.Campaign, error) {
	return r.firstCampaign(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), campaignID)
}

func (r *PostgresRepository) firstCampaign(db *gorm.DB, campaignID string) (*campaigndomain.Campaign, error) {
	var campaign campaigndomain.Campaign
	if err := db.Where("id = ?", campaignID).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, campaigndomain.ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *PostgresRepository) GetCampaignByInviteCode(ctx context.Context, code string) (*campaigndomain.Campaign, error) {
	var campaign campaigndomain.Campaign
	if err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, campaigndomain.ErrInviteCodeNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *PostgresRepository) UpdateCampaign(ctx context.Context, campaign *campaigndomain.Campaign) error {
	result := r.db.WithContext(ctx).Model(&campaigndomain.Campaign{}).
		Where("id = ?", campaign.ID).
		Updates(map[string]any{
			"title":       campaign.Title,
			"description": campaign.Description,
			"system":      campaign.System,
			"visibility":  campaign.Visibility,
			"invite_code": campaign.InviteCode,
		})
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return campaigndomain.ErrInviteCodeTaken
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return campaigndomain.ErrCampaignNotFound
	}
	return nil
}

// DeleteCampaign relies on ON DELETE CASCADE for members, join requests and sessions.
func (r *PostgresRepository) DeleteCampaign(ctx context.Context, campaignID string) error {
	result := r.db.WithContext(ctx).Delete(&campaigndomain.Campaign{}, "id = ?", campaignID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return campaigndomain.ErrCampaignNotFound
	}
	return nil
}

func (r *PostgresRepository) IsInviteCodeTaken(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&campaigndomain.Campaign{}).Where("invite_code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRepository) ListCampaignsByUser(ctx context.Context, userID string, filter campaigndomain.RoleFilter) ([]campaigndomain.Membership, error) {
	type membershipRow struct {
		campaigndomain.Campaign
		MemberRole access.Role `gorm:"column:member_role"`
	}

	query := r.db.WithContext(ctx).
		Table("campaigns").
		Select("campaigns.*, campaign_members.role AS member_role").
		Joins("join campaign_members on campaign_members.campaign_id = campaigns.id").
		Where("campaign_members.user_id = ?", userID)
	switch filter {
	case campaigndomain.RoleFilterOwner:
		query = query.Where("campaign_members.role = ?", access.RoleOwner)
	case campaigndomain.RoleFilterMember:
		query = query.Where("campaign_members.role <> ?", access.RoleOwner)
	case campaigndomain.RoleFilterAll:
	}

	var rows []membershipRow
	if err := query.Order("campaigns.created_at desc").Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]campaigndomain.Membership, 0, len(rows))
	for _, row := range rows {
		result = append(result, campaigndomain.Membership{Campaign: row.Campaign, Role: row.MemberRole})
	}
	return result, nil
}

func (r *PostgresRepository) AddMember(ctx context.Context, member *campaigndomain.Member) error {
	err := r.db.WithContext(ctx).Create(member).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return campaigndomain.ErrAlreadyMember
	}
	return err
}

func (r *PostgresRepository) GetMember(ctx context.Context, campaignID, userID string) (*campaigndomain.Member, error) {
	var member campaigndomain.Member
	if err := r.db.WithContext(ctx).Where("campaign_id = ? AND user_id = ?", campaignID, userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, campaigndomain.ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *PostgresRepository) ListMembers(ctx context.Context, campaignID string) ([]campaigndomain.Member, error) {
	var members []campaigndomain.Member
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("joined_at asc").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *PostgresRepository) CountMembers(ctx context.Context, campaignID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&campaigndomain.Member{}).Where("campaign_id = ?", campaignID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) UpdateMemberRole(ctx context.Context, campaignID, userID string, role access.Role) error {
	result := r.db.WithContext(ctx).Model(&campaigndomain.Member{}).
		Where("campaign_id = ? AND user_id = ?", campaignID, userID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return campaigndomain.ErrMemberNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteMember(ctx context.Context, campaignID, userID string) error {
	result := r.db.WithContext(ctx).Delete(&campaigndomain.Member{}, "campaign_id = ? AND user_id = ?", campaignID, userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return campaigndomain.ErrMemberNotFound
	}
	return nil
}

func (r *PostgresRepository) CreateJoinRequest(ctx context.Context, request *campaigndomain.JoinRequest) error {
	err := r.db.WithContext(ctx).Create(request).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return campaigndomain.ErrJoinRequestExists
	}
	return err
}

func (r *PostgresRepository) GetJoinRequest(ctx context.Context, requestID string) (*campaigndomain.JoinRequest, error) {
	return r.firstJoinRequest(r.db.WithContext(ctx), requestID)
}

func (r *PostgresRepository) LockJoinRequest(ctx context.Context, requestID string) (*campaigndomain.JoinRequest, error) {
	return r.firstJoinRequest(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), requestID)
}

func (r *PostgresRepository) firstJoinRequest(db *gorm.DB, requestID string) (*campaigndomain.JoinRequest, error) {
	var request campaigndomain.JoinRequest
	if err := db.Where("id = ?", requestID).First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, campaigndomain.ErrJoinRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *PostgresRepository) GetJoinRequestByUser(ctx context.Context, campaignID, userID string) (*campaigndomain.JoinRequest, error) {
	var request campaigndomain.JoinRequest
	if err := r.db.WithContext(ctx).Where("campaign_id = ? AND user_id = ?", campaignID, userID).First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, campaigndomain.ErrJoinRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *PostgresRepository) UpdateJoinRequest(ctx context.Context, request *campaigndomain.JoinRequest) error {
	result := r.db.WithContext(ctx).Model(&campaigndomain.JoinRequest{}).
		Where("id = ?", request.ID).
		Updates(map[string]any{
			"status":      request.Status,
			"message":     request.Message,
			"reviewed_at": request.ReviewedAt,
			"reviewed_by": request.ReviewedBy,
			"updated_at":  request.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return campaigndomain.ErrJoinRequestNotFound
	}
	return nil
}

func (r *PostgresRepository) ListJoinRequests(ctx context.Context, campaignID string, status campaigndomain.JoinRequestStatus) ([]campaigndomain.JoinRequest, error) {
	query := r.db.WithContext(ctx).Where("campaign_id = ?", campaignID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []campaigndomain.JoinRequest
	if err := query.Order("created_at asc").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}
