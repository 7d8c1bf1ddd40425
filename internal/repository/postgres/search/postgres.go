package search

import (
	"context"

	"gorm.io/gorm"

	"quest-scheduler-go/internal/domain/access"
	campaigndomain "quest-scheduler-go/internal/domain/campaign"
	searchdomain "quest-scheduler-go/internal/domain/search"
	sessiondomain "quest-scheduler-go/internal/domain/session"
	pgutil "quest-scheduler-go/internal/repository/postgres"
)

const memberCountColumn = "(SELECT COUNT(*) FROM campaign_members cm WHERE cm.campaign_id = campaigns.id)"

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) SearchCampaigns(ctx context.Context, filter searchdomain.CampaignFilter) ([]searchdomain.CampaignHit, int64, error) {
	query := r.db.WithContext(ctx).Model(&campaigndomain.Campaign{})
	if filter.Visibility != "" {
		query = query.Where("campaigns.visibility = ?", filter.Visibility)
	}
	if filter.System != "" {
		query = query.Where("LOWER(campaigns.system) = LOWER(?)", filter.System)
	}
	if filter.Query != "" {
		pattern := pgutil.ContainsPattern(filter.Query)
		query = query.Where("(campaigns.title"+pgutil.ContainsClause+" OR campaigns.description"+pgutil.ContainsClause+")", pattern, pattern)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case searchdomain.CampaignSortPopular:
		query = query.Order("member_count desc, campaigns.created_at desc")
	case searchdomain.CampaignSortTitle:
		query = query.Order("LOWER(campaigns.title) asc, campaigns.id asc")
	default:
		query = query.Order("campaigns.created_at desc, campaigns.id asc")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	type campaignRow struct {
		campaigndomain.Campaign
		MemberCount int64 `gorm:"column:member_count"`
	}
	var rows []campaignRow
	if err := query.Select("campaigns.*, " + memberCountColumn + " AS member_count").Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	hits := make([]searchdomain.CampaignHit, 0, len(rows))
	for _, row := range rows {
		row.Campaign.InviteCode = nil
		hits = append(hits, searchdomain.CampaignHit{Campaign: row.Campaign, MemberCount: row.MemberCount})
	}
	return hits, total, nil
}

func (r *PostgresRepository) SearchSessions(ctx context.Context, filter searchdomain.SessionFilter) ([]searchdomain.SessionHit, int64, error) {
	query := r.db.WithContext(ctx).Model(&sessiondomain.Session{})
	if filter.Visibility != "" {
		query = query.Where("sessions.visibility = ?", filter.Visibility)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("sessions.status IN ?", filter.Statuses)
	}
	if filter.System != "" {
		query = query.Joins("join campaigns on campaigns.id = sessions.campaign_id").
			Where("LOWER(campaigns.system) = LOWER(?)", filter.System)
	}
	if !filter.DateFrom.IsZero() {
		query = query.Where("sessions.date >= ?", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		query = query.Where("sessions.date <= ?", filter.DateTo)
	}
	if filter.MinPrice != nil {
		query = query.Where("sessions.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("sessions.price <= ?", *filter.MaxPrice)
	}
	if filter.OneShot != nil {
		if *filter.OneShot {
			query = query.Where("sessions.campaign_id IS NULL")
		} else {
			query = query.Where("sessions.campaign_id IS NOT NULL")
		}
	}
	if filter.Query != "" {
		pattern := pgutil.ContainsPattern(filter.Query)
		query = query.Where("(sessions.title"+pgutil.ContainsClause+" OR sessions.description"+pgutil.ContainsClause+")", pattern, pattern)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case searchdomain.SessionSortNewest:
		query = query.Order("sessions.created_at desc, sessions.id asc")
	case searchdomain.SessionSortPrice:
		query = query.Order("sessions.price asc, sessions.date asc")
	default:
		query = query.Order("sessions.date asc, sessions.id asc")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var sessions []sessiondomain.Session
	if err := query.Select("sessions.*").Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	hits := make([]searchdomain.SessionHit, 0, len(sessions))
	for _, session := range sessions {
		hits = append(hits, searchdomain.SessionHit{Session: session})
	}
	return hits, total, nil
}

func (r *PostgresRepository) PlayerCounts(ctx context.Context, sessionIDs []string) (map[string]searchdomain.PlayerCount, error) {
	result := make(map[string]searchdomain.PlayerCount, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return result, nil
	}

	type countRow struct {
		SessionID string `gorm:"column:session_id"`
		Confirmed int64  `gorm:"column:confirmed"`
		Seated    int64  `gorm:"column:seated"`
	}
	var rows []countRow
	if err := r.db.WithContext(ctx).
		Model(&sessiondomain.Participant{}).
		Select("session_id, COUNT(*) FILTER (WHERE status = ?) AS confirmed, COUNT(*) AS seated", sessiondomain.ParticipantConfirmed).
		Where("session_id IN ? AND role = ? AND status <> ?", sessionIDs, access.RolePlayer, sessiondomain.ParticipantDeclined).
		Group("session_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.SessionID] = searchdomain.PlayerCount{Confirmed: row.Confirmed, Seated: row.Seated}
	}
	return result, nil
}
