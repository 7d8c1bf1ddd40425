package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"quest-scheduler-go/internal/domain/access"
	"quest-scheduler-go/internal/domain/campaign"
	"quest-scheduler-go/internal/domain/notify"
	"quest-scheduler-go/pkg/logger"
)

const (
	maxPlayersLimit = 100
	defaultDuration = 180
)

type Service struct {
	repo     Repository
	notifier notify.Notifier
	log      logger.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		notifier: notify.Noop(),
		log:      logger.Nop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error) {
	sessions, err := s.create(ctx, input, nil)
	if err != nil {
		return nil, err
	}
	return &sessions[0], nil
}

// CreateRecurringSessions creates every occurrence of a series in one
// transaction. Each occurrence gets its own GM participant.
func (s *Service) CreateRecurringSessions(ctx context.Context, input CreateSessionInput, recurrence Recurrence) ([]Session, error) {
	if err := recurrence.validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, input, &recurrence)
}

func (s *Service) create(ctx context.Context, input CreateSessionInput, recurrence *Recurrence) ([]Session, error) {
	input, err := s.normalizeCreate(input)
	if err != nil {
		return nil, err
	}

	count := 1
	var seriesID *string
	if recurrence != nil {
		count = recurrence.Count
		id := s.newID()
		seriesID = &id
	}

	result := make([]Session, 0, count)
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if input.CampaignID != nil {
			if err := s.requireCampaignManager(ctx, tx, *input.CampaignID, input.CreatorID); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		for i := 0; i < count; i++ {
			date := input.Date
			if recurrence != nil {
				date = recurrence.occurrence(input.Date, i)
			}
			session := Session{
				ID:          s.newID(),
				Title:       input.Title,
				Description: input.Description,
				Date:        date,
				Duration:    input.Duration,
				MaxPlayers:  input.MaxPlayers,
				Price:       input.Price,
				Status:      StatusPlanned,
				Visibility:  input.Visibility,
				CampaignID:  input.CampaignID,
				CreatorID:   input.CreatorID,
				SeriesID:    seriesID,
			}
			if err := tx.CreateSession(ctx, &session); err != nil {
				return err
			}

			gm := Participant{
				ID:        s.newID(),
				SessionID: session.ID,
				UserID:    input.CreatorID,
				Role:      access.RoleGM,
				Status:    ParticipantConfirmed,
				IsGuest:   false,
				JoinedAt:  now,
			}
			if err := tx.AddParticipant(ctx, &gm); err != nil {
				return err
			}
			result = append(result, session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) normalizeCreate(input CreateSessionInput) (CreateSessionInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" {
		return input, ErrTitleRequired
	}
	if input.CreatorID == "" {
		return input, ErrNotGM
	}
	if input.Date.IsZero() {
		return input, ErrInvalidSchedule.WithMessage("date is required")
	}
	input.Date = input.Date.UTC()
	if !input.Date.After(s.now()) {
		return input, ErrInvalidSchedule.WithMessage("date must be in the future")
	}
	if input.Duration == 0 {
		input.Duration = defaultDuration
	}
	if input.Duration < 0 {
		return input, ErrInvalidSchedule.WithMessage("duration must be positive")
	}
	if input.MaxPlayers < 1 || input.MaxPlayers > maxPlayersLimit {
		return input, ErrInvalidCapacity
	}
	if input.Price < 0 {
		return input, ErrInvalidPrice
	}
	if input.Visibility == "" {
		input.Visibility = campaign.VisibilityPublic
	}
	if !input.Visibility.Valid() {
		return input, ErrInvalidVisibility.WithMessage("invalid visibility %q", input.Visibility)
	}
	if input.CampaignID != nil && strings.TrimSpace(*input.CampaignID) == "" {
		input.CampaignID = nil
	}
	return input, nil
}

// GetSession returns the session with its roster. PRIVATE sessions are only
// visible to participants and members of the owning campaign.
func (s *Service) GetSession(ctx context.Context, sessionID, viewerID string) (*Details, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	participants, err := s.repo.ListParticipants(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	role := access.RoleInSession(session.CreatorID, memberships(participants), viewerID)
	if err := s.canView(ctx, s.repo, session, role, viewerID); err != nil {
		return nil, err
	}

	players := countPlayers(participants)
	available := session.MaxPlayers - players
	if available < 0 {
		available = 0
	}
	return &Details{
		Session:        *session,
		ViewerRole:     role,
		Participants:   participants,
		PlayerCount:    players,
		AvailableSlots: available,
	}, nil
}

func (s *Service) UpdateSession(ctx context.Context, input UpdateSessionInput) (*Session, error) {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, ErrInvalidStatus.WithMessage("invalid session status %q", *input.Status)
	}
	if input.Visibility != nil && !input.Visibility.Valid() {
		return nil, ErrInvalidVisibility.WithMessage("invalid visibility %q", *input.Visibility)
	}
	if input.Duration != nil && *input.Duration <= 0 {
		return nil, ErrInvalidSchedule.WithMessage("duration must be positive")
	}
	if input.MaxPlayers != nil && (*input.MaxPlayers < 1 || *input.MaxPlayers > maxPlayersLimit) {
		return nil, ErrInvalidCapacity
	}
	if input.Price != nil && *input.Price < 0 {
		return nil, ErrInvalidPrice
	}

	var result Session
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		session, err := tx.LockSession(ctx, input.SessionID)
		if err != nil {
			return err
		}
		if session.CreatorID != input.ActingUserID {
			return ErrNotGM
		}
		if session.Status.Terminal() {
			return ErrSessionTerminal.WithMessage("session is %s", session.Status)
		}

		if input.Title != nil {
			session.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			session.Description = strings.TrimSpace(*input.Description)
		}
		if input.Date != nil {
			date := input.Date.UTC()
			if session.Status == StatusPlanned && !date.After(s.now()) {
				return ErrInvalidSchedule.WithMessage("date must be in the future")
			}
			session.Date = date
		}
		if input.Duration != nil {
			session.Duration = *input.Duration
		}
		if input.Price != nil {
			session.Price = *input.Price
		}
		if input.Visibility != nil {
			session.Visibility = *input.Visibility
		}
		if input.MaxPlayers != nil {
			players, err := tx.CountPlayers(ctx, session.ID)
			if err != nil {
				return err
			}
			if int64(*input.MaxPlayers) < players {
				return ErrCapacityBelowRoster
			}
			session.MaxPlayers = *input.MaxPlayers
		}
		if input.Status != nil && *input.Status != session.Status {
			if !CanAdvance(session.Status, *input.Status) {
				return ErrInvalidTransition.WithMessage("cannot move session from %s to %s", session.Status, *input.Status)
			}
			session.Status = *input.Status
		}

		if err := tx.UpdateSession(ctx, session); err != nil {
			return err
		}
		result = *session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteSession is allowed to the GM and, for campaign sessions, the campaign owner.
func (s *Service) DeleteSession(ctx context.Context, sessionID, actingUserID string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		session, err := tx.LockSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.CreatorID != actingUserID {
			if session.CampaignID == nil {
				return ErrNotGM
			}
			parent, err := tx.GetCampaign(ctx, *session.CampaignID)
			if err != nil {
				return err
			}
			if parent.OwnerID != actingUserID {
				return ErrNotGM
			}
		}
		return tx.DeleteSession(ctx, session.ID)
	})
}

func (s *Service) CancelSession(ctx context.Context, sessionID, actingUserID string) (*Session, error) {
	var (
		result       Session
		participants []Participant
	)
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		session, err := tx.LockSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.CreatorID != actingUserID {
			return ErrNotGM
		}
		if session.Status.Terminal() {
			return ErrSessionTerminal.WithMessage("session is already %s", session.Status)
		}

		session.Status = StatusCanceled
		if err := tx.UpdateSession(ctx, session); err != nil {
			return err
		}
		participants, err = tx.ListParticipants(ctx, session.ID)
		if err != nil {
			return err
		}
		result = *session
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCancel(ctx, result, actingUserID, participants)
	return &result, nil
}

func (s *Service) afterCancel(ctx context.Context, session Session, actingUserID string, participants []Participant) {
	ids := make([]string, 0, len(participants))
	for _, participant := range participants {
		if participant.Role == access.RoleGM {
			continue
		}
		ids = append(ids, participant.UserID)
	}

	event := notify.SessionCanceled{
		SessionID:      session.ID,
		Title:          session.Title,
		Date:           session.Date,
		CanceledBy:     actingUserID,
		ParticipantIDs: ids,
	}
	if err := s.notifier.SessionCanceled(ctx, event); err != nil {
		s.log.InternalError("sessions.cancel: notify failed", err, "session_id", session.ID)
	}

	if session.Price <= 0 {
		return
	}
	for _, participant := range participants {
		if participant.Role == access.RoleGM || participant.Status != ParticipantConfirmed {
			continue
		}
		refund := notify.RefundRequested{SessionID: session.ID, UserID: participant.UserID, Amount: session.Price}
		if err := s.notifier.RefundRequested(ctx, refund); err != nil {
			s.log.InternalError("sessions.cancel: refund request failed", err, "session_id", session.ID, "user_id", participant.UserID)
		}
	}
}

func (s *Service) ListMySessions(ctx context.Context, userID string, filter ListFilter) ([]Attendance, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus.WithMessage("invalid session status %q", filter.Status)
	}
	if filter.Role != access.RoleNone && filter.Role != access.RoleGM && filter.Role != access.RolePlayer {
		return nil, access.ErrInvalidRole.WithMessage("invalid session role %q", filter.Role)
	}
	return s.repo.ListSessionsByUser(ctx, userID, filter)
}

// ListCampaignSessions lists a campaign's sessions. Campaign members see all
// of them; everyone else sees PUBLIC and LINK_ONLY sessions of non-private campaigns.
func (s *Service) ListCampaignSessions(ctx context.Context, campaignID, viewerID string) ([]Session, error) {
	parent, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	role, err := s.campaignRole(ctx, s.repo, parent, viewerID)
	if err != nil {
		return nil, err
	}
	if parent.Visibility == campaign.VisibilityPrivate && !access.IsMember(role) {
		return nil, campaign.ErrCampaignAccessDenied
	}
	return s.repo.ListCampaignSessions(ctx, parent.ID, !access.IsMember(role))
}

// JoinSession adds userID as a PLAYER. The session must be PLANNED, in the
// future and below capacity; the checks and the insert share one locked
// transaction so concurrent joins cannot overfill it.
func (s *Service) JoinSession(ctx context.Context, sessionID, userID string, isGuest bool) (*Participant, error) {
	if userID == "" {
		return nil, ErrSessionAccessDenied
	}

	var result Participant
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		session, err := tx.LockSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status != StatusPlanned {
			return ErrSessionNotJoinable.WithMessage("session is %s", session.Status)
		}
		now := s.now()
		if !session.Date.After(now) {
			return ErrSessionStarted
		}

		_, err = tx.GetParticipant(ctx, session.ID, userID)
		switch {
		case err == nil:
			return ErrAlreadyJoined
		case !errors.Is(err, ErrParticipantNotFound):
			return err
		}

		players, err := tx.CountPlayers(ctx, session.ID)
		if err != nil {
			return err
		}
		if players >= int64(session.MaxPlayers) {
			return ErrSessionFull
		}

		status := ParticipantConfirmed
		if session.Visibility == campaign.VisibilityPrivate {
			status = ParticipantPending
		}
		participant := Participant{
			ID:        s.newID(),
			SessionID: session.ID,
			UserID:    userID,
			Role:      access.RolePlayer,
			Status:    status,
			IsGuest:   isGuest,
			JoinedAt:  now.UTC(),
		}
		if err := tx.AddParticipant(ctx, &participant); err != nil {
			return err
		}
		result = participant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) LeaveSession(ctx context.Context, sessionID, userID string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		session, err := tx.LockSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.CreatorID == userID {
			return ErrGMCannotLeave
		}
		switch session.Status {
		case StatusFinished, StatusCanceled:
			return ErrSessionTerminal.WithMessage("session is %s", session.Status)
		case StatusActive:
			return ErrSessionInProgress
		case StatusPlanned:
		}

		if _, err := tx.GetParticipant(ctx, session.ID, userID); err != nil {
			return err
		}
		return tx.DeleteParticipant(ctx, session.ID, userID)
	})
}

func (s *Service) ListParticipants(ctx context.Context, sessionID, viewerID string) ([]Participant, error) {
	details, err := s.GetSession(ctx, sessionID, viewerID)
	if err != nil {
		return nil, err
	}
	return details.Participants, nil
}

// UpdateParticipantStatus lets the GM record a participant's status.
// ATTENDED and NO_SHOW need a FINISHED session; PENDING and CONFIRMED need
// one that is not FINISHED. Taking a DECLINED player back needs a free seat.
func (s *Service) UpdateParticipantStatus(ctx context.Context, sessionID, actingUserID, targetUserID string, status ParticipantStatus) (*Participant, error) {
	if !status.Valid() {
		return nil, ErrInvalidParticipantStatus.WithMessage("invalid participant status %q", status)
	}

	var result Participant
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		session, err := tx.LockSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.CreatorID != actingUserID {
			return ErrNotGM
		}
		if status.IsResult() && session.Status != StatusFinished {
			return ErrStatusNotAllowed.WithMessage("%s requires a finished session, session is %s", status, session.Status)
		}
		if status.IsPlanning() && session.Status == StatusFinished {
			return ErrStatusNotAllowed.WithMessage("%s is not allowed once the session is finished", status)
		}

		participant, err := tx.GetParticipant(ctx, session.ID, targetUserID)
		if err != nil {
			return err
		}
		if participant.Role == access.RolePlayer && participant.Status == ParticipantDeclined && status.IsPlanning() {
			players, err := tx.CountPlayers(ctx, session.ID)
			if err != nil {
				return err
			}
			if players >= int64(session.MaxPlayers) {
				return ErrSessionFull
			}
		}
		if err := tx.UpdateParticipantStatus(ctx, session.ID, targetUserID, status); err != nil {
			return err
		}
		participant.Status = status
		result = *participant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) RemoveParticipant(ctx context.Context, sessionID, actingUserID, targetUserID string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		session, err := tx.LockSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.CreatorID != actingUserID {
			return ErrNotGM
		}
		if session.Status.Terminal() {
			return ErrSessionTerminal.WithMessage("session is %s, update the participant status instead", session.Status)
		}
		if targetUserID == session.CreatorID {
			return ErrCannotRemoveGM
		}

		participant, err := tx.GetParticipant(ctx, session.ID, targetUserID)
		if err != nil {
			return err
		}
		if participant.Role == access.RoleGM {
			return ErrCannotRemoveGM
		}
		return tx.DeleteParticipant(ctx, session.ID, targetUserID)
	})
}

// AdvanceStatuses moves started PLANNED sessions to ACTIVE and ended ones to
// FINISHED. Each session is re-read under lock so a concurrent cancel wins.
func (s *Service) AdvanceStatuses(ctx context.Context) (Advanced, error) {
	now := s.now().UTC()
	due, err := s.repo.ListDueSessions(ctx, now)
	if err != nil {
		return Advanced{}, err
	}

	var result Advanced
	for _, candidate := range due {
		err := s.repo.Transaction(ctx, func(tx Repository) error {
			session, err := tx.LockSession(ctx, candidate.ID)
			if err != nil {
				return err
			}
			next := dueStatus(*session, now)
			if next == session.Status || !CanAdvance(session.Status, next) {
				return nil
			}
			session.Status = next
			if err := tx.UpdateSession(ctx, session); err != nil {
				return err
			}
			if next == StatusActive {
				result.Started++
			} else {
				result.Finished++
			}
			return nil
		})
		if errors.Is(err, ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func dueStatus(session Session, now time.Time) Status {
	switch session.Status {
	case StatusPlanned, StatusActive:
		if !session.EndsAt().After(now) {
			return StatusFinished
		}
		if !session.Date.After(now) {
			return StatusActive
		}
	case StatusFinished, StatusCanceled:
	}
	return session.Status
}

func (s *Service) requireCampaignManager(ctx context.Context, tx Repository, campaignID, userID string) error {
	parent, err := tx.GetCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	role, err := s.campaignRole(ctx, tx, parent, userID)
	if err != nil {
		return err
	}
	if !access.CanManageCampaign(role) {
		return campaign.ErrNotManager
	}
	return nil
}

func (s *Service) campaignRole(ctx context.Context, repo Repository, parent *campaign.Campaign, userID string) (access.Role, error) {
	if userID == "" {
		return access.RoleNone, nil
	}
	if userID == parent.OwnerID {
		return access.RoleOwner, nil
	}
	member, err := repo.GetCampaignMember(ctx, parent.ID, userID)
	if errors.Is(err, campaign.ErrMemberNotFound) {
		return access.RoleNone, nil
	}
	if err != nil {
		return access.RoleNone, err
	}
	return access.RoleInCampaign(parent.OwnerID, []access.Membership{{UserID: member.UserID, Role: member.Role}}, userID), nil
}

func (s *Service) canView(ctx context.Context, repo Repository, session *Session, role access.Role, viewerID string) error {
	if session.Visibility != campaign.VisibilityPrivate || access.IsMember(role) {
		return nil
	}
	if session.CampaignID != nil && viewerID != "" {
		parent, err := repo.GetCampaign(ctx, *session.CampaignID)
		if err != nil {
			return err
		}
		campaignRole, err := s.campaignRole(ctx, repo, parent, viewerID)
		if err != nil {
			return err
		}
		if access.IsMember(campaignRole) {
			return nil
		}
	}
	return ErrSessionAccessDenied
}

func memberships(participants []Participant) []access.Membership {
	result := make([]access.Membership, 0, len(participants))
	for _, participant := range participants {
		result = append(result, access.Membership{UserID: participant.UserID, Role: participant.Role})
	}
	return result
}

func countPlayers(participants []Participant) int {
	count := 0
	for _, participant := range participants {
		if participant.HoldsSeat() {
			count++
		}
	}
	return count
}
