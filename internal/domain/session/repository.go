package session

import (
	"context"
	"time"

	"quest-scheduler-go/internal/domain/campaign"
)

// Repository is the session store. A duplicate (session_id, user_id)
// participant must surface as ErrAlreadyJoined.
type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	// LockSession reads the session and holds a row lock until the
	// surrounding transaction ends. Joins rely on it to serialize capacity checks.
	LockSession(ctx context.Context, sessionID string) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	DeleteSession(ctx context.Context, sessionID string) error
	ListSessionsByUser(ctx context.Context, userID string, filter ListFilter) ([]Attendance, error)
	ListCampaignSessions(ctx context.Context, campaignID string, publicOnly bool) ([]Session, error)
	// ListDueSessions returns PLANNED sessions that have started and ACTIVE
	// sessions that have ended as of now.
	ListDueSessions(ctx context.Context, now time.Time) ([]Session, error)

	AddParticipant(ctx context.Context, participant *Participant) error
	GetParticipant(ctx context.Context, sessionID, userID string) (*Participant, error)
	ListParticipants(ctx context.Context, sessionID string) ([]Participant, error)
	// CountPlayers counts the PLAYER participants holding a seat (see
	// Participant.HoldsSeat).
	CountPlayers(ctx context.Context, sessionID string) (int64, error)
	UpdateParticipantStatus(ctx context.Context, sessionID, userID string, status ParticipantStatus) error
	DeleteParticipant(ctx context.Context, sessionID, userID string) error

	GetCampaign(ctx context.Context, campaignID string) (*campaign.Campaign, error)
	GetCampaignMember(ctx context.Context, campaignID, userID string) (*campaign.Member, error)
}
