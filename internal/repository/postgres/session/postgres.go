package session

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quest-scheduler-go/internal/domain/access"
	campaigndomain "quest-scheduler-go/internal/domain/campaign"
	sessiondomain "quest-scheduler-go/internal/domain/session"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(sessiondomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) CreateSession(ctx context.Context, session *sessiondomain.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *PostgresRepository) GetSession(ctx context.Context, sessionID string) (*sessiondomain.Session, error) {
	return r.firstSession(r.db.WithContext(ctx), sessionID)
}

// LockSession takes a FOR UPDATE lock so capacity checks and status changes
// on one session run one at a time.
func (r *PostgresRepository) LockSession(ctx context.Context, sessionID string) (*sessiondomain.Session, error) {
	return r.firstSession(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), sessionID)
}

func (r *PostgresRepository) firstSession(db *gorm.DB, sessionID string) (*sessiondomain.Session, error) {
	var session sessiondomain.Session
	if err := db.Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sessiondomain.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *PostgresRepository) UpdateSession(ctx context.Context, session *sessiondomain.Session) error {
	result := r.db.WithContext(ctx).Model(&sessiondomain.Session{}).
		Where("id = ?", session.ID).
		Updates(map[string]any{
			"title":       session.Title,
			"description": session.Description,
			"date":        session.Date,
			"duration":    session.Duration,
			"max_players": session.MaxPlayers,
			"price":       session.Price,
			"status":      session.Status,
			"visibility":  session.Visibility,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sessiondomain.ErrSessionNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, sessionID string) error {
	result := r.db.WithContext(ctx).Delete(&sessiondomain.Session{}, "id = ?", sessionID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sessiondomain.ErrSessionNotFound
	}
	return nil
}

func (r *PostgresRepository) ListSessionsByUser(ctx context.Context, userID string, filter sessiondomain.ListFilter) ([]sessiondomain.Attendance, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID)
	if filter.Role != access.RoleNone {
		query = query.Where("role = ?", filter.Role)
	}
	var participants []sessiondomain.Participant
	if err := query.Find(&participants).Error; err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return []sessiondomain.Attendance{}, nil
	}

	ids := make([]string, 0, len(participants))
	byID := make(map[string]sessiondomain.Participant, len(participants))
	for _, participant := range participants {
		ids = append(ids, participant.SessionID)
		byID[participant.SessionID] = participant
	}

	sessionQuery := r.db.WithContext(ctx).Where("id IN ?", ids)
	if filter.Status != "" {
		sessionQuery = sessionQuery.Where("status = ?", filter.Status)
	}
	var sessions []sessiondomain.Session
	if err := sessionQuery.Order("date asc").Find(&sessions).Error; err != nil {
		return nil, err
	}

	result := make([]sessiondomain.Attendance, 0, len(sessions))
	for _, session := range sessions {
		result = append(result, sessiondomain.Attendance{Session: session, Participant: byID[session.ID]})
	}
	return result, nil
}

func (r *PostgresRepository) ListCampaignSessions(ctx context.Context, campaignID string, publicOnly bool) ([]sessiondomain.Session, error) {
	query := r.db.WithContext(ctx).Where("campaign_id = ?", campaignID)
	if publicOnly {
		query = query.Where("visibility <> ?", campaigndomain.VisibilityPrivate)
	}
	var sessions []sessiondomain.Session
	if err := query.Order("date asc").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *PostgresRepository) ListDueSessions(ctx context.Context, now time.Time) ([]sessiondomain.Session, error) {
	var sessions []sessiondomain.Session
	err := r.db.WithContext(ctx).
		Where("(status = ? AND date <= ?) OR (status = ? AND date + duration * interval '1 minute' <= ?)",
			sessiondomain.StatusPlanned, now, sessiondomain.StatusActive, now).
		Order("date asc").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *PostgresRepository) AddParticipant(ctx context.Context, participant *sessiondomain.Participant) error {
	err := r.db.WithContext(ctx).Create(participant).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return sessiondomain.ErrAlreadyJoined
	}
	return err
}

func (r *PostgresRepository) GetParticipant(ctx context.Context, sessionID, userID string) (*sessiondomain.Participant, error) {
	var participant sessiondomain.Participant
	if err := r.db.WithContext(ctx).Where("session_id = ? AND user_id = ?", sessionID, userID).First(&participant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sessiondomain.ErrParticipantNotFound
		}
		return nil, err
	}
	return &participant, nil
}

func (r *PostgresRepository) ListParticipants(ctx context.Context, sessionID string) ([]sessiondomain.Participant, error) {
	var participants []sessiondomain.Participant
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("joined_at asc").
		Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *PostgresRepository) CountPlayers(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&sessiondomain.Participant{}).
		Where("session_id = ? AND role = ? AND status <> ?", sessionID, access.RolePlayer, sessiondomain.ParticipantDeclined).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) UpdateParticipantStatus(ctx context.Context, sessionID, userID string, status sessiondomain.ParticipantStatus) error {
	result := r.db.WithContext(ctx).Model(&sessiondomain.Participant{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sessiondomain.ErrParticipantNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteParticipant(ctx context.Context, sessionID, userID string) error {
	result := r.db.WithContext(ctx).Delete(&sessiondomain.Participant{}, "session_id = ? AND user_id = ?", sessionID, userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sessiondomain.ErrParticipantNotFound
	}
	return nil
}

func (r *PostgresRepository) GetCampaign(ctx context.Context, campaignID string) (*campaigndomain.Campaign, error) {
	var campaign campaigndomain.Campaign
	if err := r.db.WithContext(ctx).Where("id = ?", campaignID).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, campaigndomain.ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *PostgresRepository) GetCampaignMember(ctx context.Context, campaignID, userID string) (*campaigndomain.Member, error) {
	var member campaigndomain.Member
	if err := r.db.WithContext(ctx).Where("campaign_id = ? AND user_id = ?", campaignID, userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, campaigndomain.ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}
