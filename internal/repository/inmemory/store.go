// Package inmemory keeps every repository in process memory behind one
// mutex. Transactions hold the mutex for their whole duration and restore a
// snapshot on error, so they are fully serialized.
package inmemory

import (
	"context"
	"maps"
	"sync"
	"time"

	"quest-scheduler-go/internal/domain/campaign"
	"quest-scheduler-go/internal/domain/session"
)

type Store struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

type state struct {
	campaigns    map[string]campaign.Campaign
	members      map[string]campaign.Member
	joinRequests map[string]campaign.JoinRequest
	sessions     map[string]session.Session
	participants map[string]session.Participant
}

func NewStore() *Store {
	return &Store{
		data: &state{
			campaigns:    make(map[string]campaign.Campaign),
			members:      make(map[string]campaign.Member),
			joinRequests: make(map[string]campaign.JoinRequest),
			sessions:     make(map[string]session.Session),
			participants: make(map[string]session.Participant),
		},
		now: time.Now,
	}
}

func (s *state) clone() *state {
	return &state{
		campaigns:    maps.Clone(s.campaigns),
		members:      maps.Clone(s.members),
		joinRequests: maps.Clone(s.joinRequests),
		sessions:     maps.Clone(s.sessions),
		participants: maps.Clone(s.participants),
	}
}

// view runs fn against the current state. Inside a transaction the mutex is
// already held by the caller.
func (s *Store) view(inTx bool, fn func(*state) error) error {
	if !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

func (s *Store) transaction(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *state) deleteSession(sessionID string) {
	delete(s.sessions, sessionID)
	for id, participant := range s.participants {
		if participant.SessionID == sessionID {
			delete(s.participants, id)
		}
	}
}

func (s *state) deleteCampaign(campaignID string) {
	delete(s.campaigns, campaignID)
	for id, member := range s.members {
		if member.CampaignID == campaignID {
			delete(s.members, id)
		}
	}
	for id, request := range s.joinRequests {
		if request.CampaignID == campaignID {
			delete(s.joinRequests, id)
		}
	}
	for id, item := range s.sessions {
		if item.CampaignID != nil && *item.CampaignID == campaignID {
			s.deleteSession(id)
		}
	}
}

func (s *state) findMember(campaignID, userID string) (campaign.Member, bool) {
	for _, member := range s.members {
		if member.CampaignID == campaignID && member.UserID == userID {
			return member, true
		}
	}
	return campaign.Member{}, false
}

func (s *state) findParticipant(sessionID, userID string) (session.Participant, bool) {
	for _, participant := range s.participants {
		if participant.SessionID == sessionID && participant.UserID == userID {
			return participant, true
		}
	}
	return session.Participant{}, false
}

func (s *state) campaignSystem(campaignID *string) string {
	if campaignID == nil {
		return ""
	}
	return s.campaigns[*campaignID].System
}
