package calendar

import (
	"context"

	"gorm.io/gorm"

	calendardomain "quest-scheduler-go/internal/domain/calendar"
	campaigndomain "quest-scheduler-go/internal/domain/campaign"
	sessiondomain "quest-scheduler-go/internal/domain/session"
	pgutil "quest-scheduler-go/internal/repository/postgres"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListSessions(ctx context.Context, query calendardomain.Query) ([]sessiondomain.Session, error) {
	db := r.db.WithContext(ctx)
	q := db.Model(&sessiondomain.Session{}).
		Where("sessions.date >= ? AND sessions.date < ?", query.From, query.To)

	switch {
	case query.ParticipantID != "" && query.IncludePublic:
		q = q.Where(
			db.Where("sessions.visibility <> ?", campaigndomain.VisibilityPrivate).
				Or("EXISTS (SELECT 1 FROM session_participants sp WHERE sp.session_id = sessions.id AND sp.user_id = ?)", query.ParticipantID),
		)
	case query.ParticipantID != "":
		q = q.Where("EXISTS (SELECT 1 FROM session_participants sp WHERE sp.session_id = sessions.id AND sp.user_id = ?)", query.ParticipantID)
	case query.IncludePublic:
		q = q.Where("sessions.visibility <> ?", campaigndomain.VisibilityPrivate)
	default:
		return []sessiondomain.Session{}, nil
	}

	if query.System != "" {
		q = q.Joins("join campaigns on campaigns.id = sessions.campaign_id").
			Where("LOWER(campaigns.system) = LOWER(?)", query.System)
	}
	if query.Search != "" {
		pattern := pgutil.ContainsPattern(query.Search)
		q = q.Where("(sessions.title"+pgutil.ContainsClause+" OR sessions.description"+pgutil.ContainsClause+")", pattern, pattern)
	}

	var sessions []sessiondomain.Session
	if err := q.Select("sessions.*").Order("sessions.date asc").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
