package inmemory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"quest-scheduler-go/internal/domain/access"
	"quest-scheduler-go/internal/domain/campaign"
	"quest-scheduler-go/internal/domain/session"
)

type SessionRepository struct {
	store *Store
	inTx  bool
}

func NewSessionRepository(store *Store) *SessionRepository {
	return &SessionRepository{store: store}
}

func (r *SessionRepository) Transaction(ctx context.Context, fn func(session.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.store.transaction(ctx, func() error {
		return fn(&SessionRepository{store: r.store, inTx: true})
	})
}

func (r *SessionRepository) CreateSession(ctx context.Context, item *session.Session) error {
	return r.store.view(r.inTx, func(s *state) error {
		if item.CampaignID != nil {
			if _, ok := s.campaigns[*item.CampaignID]; !ok {
				return campaign.ErrCampaignNotFound
			}
		}
		now := r.store.now().UTC()
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now
		s.sessions[item.ID] = *item
		return nil
	})
}

func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (*session.Session, error) {
	var result session.Session
	err := r.store.view(r.inTx, func(s *state) error {
		item, ok := s.sessions[sessionID]
		if !ok {
			return session.ErrSessionNotFound
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// LockSession is a plain read: the store mutex already serializes transactions.
func (r *SessionRepository) LockSession(ctx context.Context, sessionID string) (*session.Session, error) {
	return r.GetSession(ctx, sessionID)
}

func (r *SessionRepository) UpdateSession(ctx context.Context, item *session.Session) error {
	return r.store.view(r.inTx, func(s *state) error {
		if _, ok := s.sessions[item.ID]; !ok {
			return session.ErrSessionNotFound
		}
		item.UpdatedAt = r.store.now().UTC()
		s.sessions[item.ID] = *item
		return nil
	})
}

func (r *SessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	return r.store.view(r.inTx, func(s *state) error {
		if _, ok := s.sessions[sessionID]; !ok {
			return session.ErrSessionNotFound
		}
		s.deleteSession(sessionID)
		return nil
	})
}

func (r *SessionRepository) ListSessionsByUser(ctx context.Context, userID string, filter session.ListFilter) ([]session.Attendance, error) {
	var result []session.Attendance
	err := r.store.view(r.inTx, func(s *state) error {
		for _, participant := range s.participants {
			if participant.UserID != userID {
				continue
			}
			if filter.Role != access.RoleNone && participant.Role != filter.Role {
				continue
			}
			item, ok := s.sessions[participant.SessionID]
			if !ok {
				continue
			}
			if filter.Status != "" && item.Status != filter.Status {
				continue
			}
			result = append(result, session.Attendance{Session: item, Participant: participant})
		}
		return nil
	})
	slices.SortFunc(result, func(a, b session.Attendance) int {
		return a.Session.Date.Compare(b.Session.Date)
	})
	return result, err
}

func (r *SessionRepository) ListCampaignSessions(ctx context.Context, campaignID string, publicOnly bool) ([]session.Session, error) {
	var result []session.Session
	err := r.store.view(r.inTx, func(s *state) error {
		for _, item := range s.sessions {
			if item.CampaignID == nil || *item.CampaignID != campaignID {
				continue
			}
			if publicOnly && item.Visibility == campaign.VisibilityPrivate {
				continue
			}
			result = append(result, item)
		}
		return nil
	})
	sortByDate(result)
	return result, err
}

func (r *SessionRepository) ListDueSessions(ctx context.Context, now time.Time) ([]session.Session, error) {
	var result []session.Session
	err := r.store.view(r.inTx, func(s *state) error {
		for _, item := range s.sessions {
			switch item.Status {
			case session.StatusPlanned:
				if item.Date.After(now) {
					continue
				}
			case session.StatusActive:
				if item.EndsAt().After(now) {
					continue
				}
			case session.StatusFinished, session.StatusCanceled:
				continue
			}
			result = append(result, item)
		}
		return nil
	})
	sortByDate(result)
	return result, err
}

func (r *SessionRepository) AddParticipant(ctx context.Context, participant *session.Participant) error {
	return r.store.view(r.inTx, func(s *state) error {
		if _, ok := s.sessions[participant.SessionID]; !ok {
			return session.ErrSessionNotFound
		}
		if _, ok := s.findParticipant(participant.SessionID, participant.UserID); ok {
			return session.ErrAlreadyJoined
		}
		if participant.Role == access.RoleGM {
			for _, existing := range s.participants {
				if existing.SessionID == participant.SessionID && existing.Role == access.RoleGM {
					return session.ErrAlreadyJoined
				}
			}
		}
		if participant.JoinedAt.IsZero() {
			participant.JoinedAt = r.store.now().UTC()
		}
		s.participants[participant.ID] = *participant
		return nil
	})
}

func (r *SessionRepository) GetParticipant(ctx context.Context, sessionID, userID string) (*session.Participant, error) {
	var result session.Participant
	err := r.store.view(r.inTx, func(s *state) error {
		participant, ok := s.findParticipant(sessionID, userID)
		if !ok {
			return session.ErrParticipantNotFound
		}
		result = participant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *SessionRepository) ListParticipants(ctx context.Context, sessionID string) ([]session.Participant, error) {
	var result []session.Participant
	err := r.store.view(r.inTx, func(s *state) error {
		for _, participant := range s.participants {
			if participant.SessionID == sessionID {
				result = append(result, participant)
			}
		}
		return nil
	})
	slices.SortFunc(result, func(a, b session.Participant) int {
		return cmp.Or(a.JoinedAt.Compare(b.JoinedAt), cmp.Compare(a.UserID, b.UserID))
	})
	return result, err
}

func (r *SessionRepository) CountPlayers(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.store.view(r.inTx, func(s *state) error {
		for _, participant := range s.participants {
			if participant.SessionID == sessionID && participant.HoldsSeat() {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *SessionRepository) UpdateParticipantStatus(ctx context.Context, sessionID, userID string, status session.ParticipantStatus) error {
	return r.store.view(r.inTx, func(s *state) error {
		participant, ok := s.findParticipant(sessionID, userID)
		if !ok {
			return session.ErrParticipantNotFound
		}
		participant.Status = status
		s.participants[participant.ID] = participant
		return nil
	})
}

func (r *SessionRepository) DeleteParticipant(ctx context.Context, sessionID, userID string) error {
	return r.store.view(r.inTx, func(s *state) error {
		participant, ok := s.findParticipant(sessionID, userID)
		if !ok {
			return session.ErrParticipantNotFound
		}
		delete(s.participants, participant.ID)
		return nil
	})
}

func (r *SessionRepository) GetCampaign(ctx context.Context, campaignID string) (*campaign.Campaign, error) {
	return (&CampaignRepository{store: r.store, inTx: r.inTx}).GetCampaign(ctx, campaignID)
}

func (r *SessionRepository) GetCampaignMember(ctx context.Context, campaignID, userID string) (*campaign.Member, error) {
	return (&CampaignRepository{store: r.store, inTx: r.inTx}).GetMember(ctx, campaignID, userID)
}

func sortByDate(items []session.Session) {
	slices.SortFunc(items, func(a, b session.Session) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID, b.ID))
	})
}
