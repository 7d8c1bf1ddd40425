package campaign

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"quest-scheduler-go/internal/domain/access"
	"quest-scheduler-go/internal/domain/apperr"
	"quest-scheduler-go/internal/domain/notify"
	"quest-scheduler-go/pkg/logger"
)

const (
	inviteCodeBytes    = 8
	inviteCodeAttempts = 10
)

type Service struct {
	repo     Repository
	notifier notify.Notifier
	log      logger.Logger
	now      func() time.Time
	newID    func() string
	newCode  func() (string, error)
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

func WithInviteCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		if gen != nil {
			s.newCode = gen
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
		newCode:  generateInviteCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateCampaign(ctx context.Context, input CreateCampaignInput) (*Campaign, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.OwnerID == "" {
		return nil, ErrNotOwner
	}
	visibility := input.Visibility
	if visibility == "" {
		visibility = VisibilityPublic
	}
	if !visibility.Valid() {
		return nil, ErrInvalidVisibility.WithMessage("invalid visibility %q", visibility)
	}

	var result Campaign
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		campaign := Campaign{
			ID:          s.newID(),
			Title:       title,
			Description: strings.TrimSpace(input.Description),
			System:      strings.TrimSpace(input.System),
			Visibility:  visibility,
			OwnerID:     input.OwnerID,
		}
		if visibility == VisibilityLinkOnly {
			code, err := s.uniqueInviteCode(ctx, tx)
			if err != nil {
				return err
			}
			campaign.InviteCode = &code
		}
		if err := tx.CreateCampaign(ctx, &campaign); err != nil {
			return err
		}

		owner := Member{
			ID:         s.newID(),
			CampaignID: campaign.ID,
			UserID:     input.OwnerID,
			Role:       access.RoleOwner,
			JoinedAt:   s.now().UTC(),
		}
		if err := tx.AddMember(ctx, &owner); err != nil {
			return err
		}

		result = campaign
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// GetCampaign loads a campaign as seen by viewerID, which may be empty for
// anonymous callers.
func (s *Service) GetCampaign(ctx context.Context, campaignID, viewerID string) (*Details, error) {
	campaign, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	role, err := s.roleOf(ctx, s.repo, campaign, viewerID)
	if err != nil {
		return nil, err
	}
	if err := canView(campaign, role); err != nil {
		return nil, err
	}

	count, err := s.repo.CountMembers(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	details := Details{
		Campaign:    *campaign,
		ViewerRole:  role,
		MemberCount: count,
	}
	stripPrivate(&details.Campaign, role)
	if access.CanManageCampaign(role) {
		pending, err := s.repo.ListJoinRequests(ctx, campaign.ID, JoinRequestPending)
		if err != nil {
			return nil, err
		}
		details.PendingRequests = pending
	}

	return &details, nil
}

func (s *Service) UpdateCampaign(ctx context.Context, input UpdateCampaignInput) (*Campaign, error) {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if input.Visibility != nil && !input.Visibility.Valid() {
		return nil, ErrInvalidVisibility.WithMessage("invalid visibility %q", *input.Visibility)
	}

	var result Campaign
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		campaign, err := tx.LockCampaign(ctx, input.CampaignID)
		if err != nil {
			return err
		}
		role, err := s.roleOf(ctx, tx, campaign, input.ActingUserID)
		if err != nil {
			return err
		}
		if !access.CanManageCampaign(role) {
			return ErrNotManager
		}

		if input.Title != nil {
			campaign.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			campaign.Description = strings.TrimSpace(*input.Description)
		}
		if input.System != nil {
			campaign.System = strings.TrimSpace(*input.System)
		}
		if input.Visibility != nil && *input.Visibility != campaign.Visibility {
			if role != access.RoleOwner {
				return ErrNotOwner
			}
			campaign.Visibility = *input.Visibility
			if campaign.Visibility == VisibilityLinkOnly && campaign.InviteCode == nil {
				code, err := s.uniqueInviteCode(ctx, tx)
				if err != nil {
					return err
				}
				campaign.InviteCode = &code
			}
		}

		if err := tx.UpdateCampaign(ctx, campaign); err != nil {
			return err
		}
		result = *campaign
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// DeleteCampaign removes the campaign with its members, join requests and sessions.
func (s *Service) DeleteCampaign(ctx context.Context, campaignID, actingUserID string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		campaign, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if campaign.OwnerID != actingUserID {
			return ErrNotOwner
		}
		return tx.DeleteCampaign(ctx, campaign.ID)
	})
}

func (s *Service) ListMyCampaigns(ctx context.Context, userID string, filter RoleFilter) ([]Membership, error) {
	if filter == "" {
		filter = RoleFilterAll
	}
	memberships, err := s.repo.ListCampaignsByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	for i := range memberships {
		role := access.RoleInCampaign(memberships[i].Campaign.OwnerID, []access.Membership{{UserID: userID, Role: memberships[i].Role}}, userID)
		memberships[i].Role = role
		stripPrivate(&memberships[i].Campaign, role)
	}
	return memberships, nil
}

func (s *Service) ListMembers(ctx context.Context, campaignID, viewerID string) ([]Member, error) {
	campaign, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	role, err := s.roleOf(ctx, s.repo, campaign, viewerID)
	if err != nil {
		return nil, err
	}
	if err := canView(campaign, role); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, campaign.ID)
}

func (s *Service) AddMember(ctx context.Context, campaignID, actingUserID, targetUserID string, role access.Role) (*Member, error) {
	if err := assignableRole(role); err != nil {
		return nil, err
	}
	if strings.TrimSpace(targetUserID) == "" {
		return nil, apperr.Validationf("user_id is required")
	}

	var result Member
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		campaign, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		actingRole, err := s.roleOf(ctx, tx, campaign, actingUserID)
		if err != nil {
			return err
		}
		if !access.CanManageCampaign(actingRole) {
			return ErrNotManager
		}

		member, err := s.addMember(ctx, tx, campaign, targetUserID, role)
		if err != nil {
			return err
		}
		result = *member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) RemoveMember(ctx context.Context, campaignID, actingUserID, targetUserID string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		campaign, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		actingRole, err := s.roleOf(ctx, tx, campaign, actingUserID)
		if err != nil {
			return err
		}
		if !access.CanManageCampaign(actingRole) {
			return ErrNotManager
		}
		if targetUserID == campaign.OwnerID {
			return ErrCannotRemoveOwner
		}

		member, err := tx.GetMember(ctx, campaign.ID, targetUserID)
		if err != nil {
			return err
		}
		if member.Role == access.RoleOwner {
			return ErrCannotRemoveOwner
		}
		return tx.DeleteMember(ctx, campaign.ID, targetUserID)
	})
}

// LeaveCampaign removes the caller's own membership. The owner cannot leave.
func (s *Service) LeaveCampaign(ctx context.Context, campaignID, userID string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		campaign, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if campaign.OwnerID == userID {
			return ErrOwnerCannotLeave
		}
		if _, err := tx.GetMember(ctx, campaign.ID, userID); err != nil {
			return err
		}
		return tx.DeleteMember(ctx, campaign.ID, userID)
	})
}

func (s *Service) UpdateMemberRole(ctx context.Context, campaignID, actingUserID, targetUserID string, role access.Role) (*Member, error) {
	if role == access.RoleOwner {
		return nil, ErrOwnerRoleImmutable
	}
	if err := assignableRole(role); err != nil {
		return nil, err
	}

	var result Member
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		campaign, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if campaign.OwnerID != actingUserID {
			return ErrNotOwner
		}
		if targetUserID == campaign.OwnerID {
			return ErrOwnerRoleImmutable
		}

		member, err := tx.GetMember(ctx, campaign.ID, targetUserID)
		if err != nil {
			return err
		}
		if member.Role == access.RoleOwner {
			return ErrOwnerRoleImmutable
		}
		if err := tx.UpdateMemberRole(ctx, campaign.ID, targetUserID, role); err != nil {
			return err
		}
		member.Role = role
		result = *member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) RegenerateInviteCode(ctx context.Context, campaignID, actingUserID string) (string, error) {
	var code string
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		campaign, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if campaign.OwnerID != actingUserID {
			return ErrNotOwner
		}
		if campaign.Visibility == VisibilityPrivate {
			return ErrInviteCodeUnavailable
		}

		code, err = s.uniqueInviteCode(ctx, tx)
		if err != nil {
			return err
		}
		campaign.InviteCode = &code
		return tx.UpdateCampaign(ctx, campaign)
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

func (s *Service) JoinByInviteCode(ctx context.Context, code, userID string) (*Member, error) {
	code = normalizeInviteCode(code)
	if code == "" {
		return nil, ErrInviteCodeNotFound
	}

	var result Member
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		found, err := tx.GetCampaignByInviteCode(ctx, code)
		if err != nil {
			return err
		}
		campaign, err := tx.LockCampaign(ctx, found.ID)
		if err != nil {
			return err
		}
		if campaign.Visibility == VisibilityPrivate {
			return ErrInviteCodeUnavailable
		}

		member, err := s.addMember(ctx, tx, campaign, userID, access.RolePlayer)
		if err != nil {
			return err
		}
		result = *member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitJoinRequest joins PUBLIC campaigns immediately. For PRIVATE and
// LINK_ONLY campaigns it files a PENDING request, reusing the caller's
// previous request row when one exists.
func (s *Service) SubmitJoinRequest(ctx context.Context, campaignID, userID, message string) (JoinOutcome, error) {
	if userID == "" {
		return JoinOutcome{}, ErrCampaignAccessDenied
	}
	message = strings.TrimSpace(message)

	var (
		outcome JoinOutcome
		ownerID string
	)
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		campaign, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		ownerID = campaign.OwnerID
		if campaign.Visibility == VisibilityPublic {
			member, err := s.addMember(ctx, tx, campaign, userID, access.RolePlayer)
			if err != nil {
				return err
			}
			outcome.Member = member
			return nil
		}

		if err := s.ensureNotMember(ctx, tx, campaign, userID); err != nil {
			return err
		}

		now := s.now().UTC()
		existing, err := tx.GetJoinRequestByUser(ctx, campaign.ID, userID)
		switch {
		case errors.Is(err, ErrJoinRequestNotFound):
			request := JoinRequest{
				ID:         s.newID(),
				CampaignID: campaign.ID,
				UserID:     userID,
				Status:     JoinRequestPending,
				Message:    message,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.CreateJoinRequest(ctx, &request); err != nil {
				return err
			}
			outcome.Request = &request
			return nil
		case err != nil:
			return err
		}

		if existing.Status == JoinRequestPending {
			return ErrJoinRequestExists
		}
		existing.Status = JoinRequestPending
		existing.Message = message
		existing.ReviewedAt = nil
		existing.ReviewedBy = nil
		existing.UpdatedAt = now
		if err := tx.UpdateJoinRequest(ctx, existing); err != nil {
			return err
		}
		outcome.Request = existing
		return nil
	})
	if err != nil {
		return JoinOutcome{}, err
	}

	if outcome.Request != nil {
		event := notify.JoinRequestSubmitted{
			RequestID:  outcome.Request.ID,
			CampaignID: outcome.Request.CampaignID,
			UserID:     userID,
			OwnerID:    ownerID,
			Message:    message,
		}
		if err := s.notifier.JoinRequestSubmitted(ctx, event); err != nil {
			s.log.InternalError("campaigns.join_request: notify failed", err, "request_id", event.RequestID)
		}
	}
	return outcome, nil
}

// ApproveJoinRequest admits the requester with role, PLAYER when role is empty.
func (s *Service) ApproveJoinRequest(ctx context.Context, requestID, actingUserID string, role access.Role) (*Member, error) {
	if role == access.RoleNone {
		role = access.RolePlayer
	}
	if err := assignableRole(role); err != nil {
		return nil, err
	}

	var result Member
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		request, campaign, err := s.reviewable(ctx, tx, requestID, actingUserID)
		if err != nil {
			return err
		}

		member, err := s.addMember(ctx, tx, campaign, request.UserID, role)
		if err != nil {
			return err
		}
		if err := s.markReviewed(ctx, tx, request, JoinRequestApproved, actingUserID); err != nil {
			return err
		}
		result = *member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) RejectJoinRequest(ctx context.Context, requestID, actingUserID string) (*JoinRequest, error) {
	var result JoinRequest
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		request, _, err := s.reviewable(ctx, tx, requestID, actingUserID)
		if err != nil {
			return err
		}
		if err := s.markReviewed(ctx, tx, request, JoinRequestRejected, actingUserID); err != nil {
			return err
		}
		result = *request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) ListJoinRequests(ctx context.Context, campaignID, actingUserID string, status JoinRequestStatus) ([]JoinRequest, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validationf("invalid join request status %q", status)
	}
	campaign, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	role, err := s.roleOf(ctx, s.repo, campaign, actingUserID)
	if err != nil {
		return nil, err
	}
	if !access.CanManageCampaign(role) {
		return nil, ErrNotManager
	}
	return s.repo.ListJoinRequests(ctx, campaign.ID, status)
}

// RoleOf resolves userID's role in the campaign. Other engines use it to
// authorize campaign-scoped actions.
func (s *Service) RoleOf(ctx context.Context, campaignID, userID string) (*Campaign, access.Role, error) {
	campaign, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, access.RoleNone, err
	}
	role, err := s.roleOf(ctx, s.repo, campaign, userID)
	if err != nil {
		return nil, access.RoleNone, err
	}
	return campaign, role, nil
}

func (s *Service) roleOf(ctx context.Context, repo Repository, campaign *Campaign, userID string) (access.Role, error) {
	if userID == "" {
		return access.RoleNone, nil
	}
	if userID == campaign.OwnerID {
		return access.RoleOwner, nil
	}
	member, err := repo.GetMember(ctx, campaign.ID, userID)
	if errors.Is(err, ErrMemberNotFound) {
		return access.RoleNone, nil
	}
	if err != nil {
		return access.RoleNone, err
	}
	return access.RoleInCampaign(campaign.OwnerID, roster(member), userID), nil
}

func (s *Service) ensureNotMember(ctx context.Context, tx Repository, campaign *Campaign, userID string) error {
	if userID == campaign.OwnerID {
		return ErrAlreadyMember
	}
	_, err := tx.GetMember(ctx, campaign.ID, userID)
	switch {
	case err == nil:
		return ErrAlreadyMember
	case errors.Is(err, ErrMemberNotFound):
		return nil
	default:
		return err
	}
}

func (s *Service) addMember(ctx context.Context, tx Repository, campaign *Campaign, userID string, role access.Role) (*Member, error) {
	if err := s.ensureNotMember(ctx, tx, campaign, userID); err != nil {
		return nil, err
	}
	member := Member{
		ID:         s.newID(),
		CampaignID: campaign.ID,
		UserID:     userID,
		Role:       role,
		JoinedAt:   s.now().UTC(),
	}
	if err := tx.AddMember(ctx, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *Service) reviewable(ctx context.Context, tx Repository, requestID, actingUserID string) (*JoinRequest, *Campaign, error) {
	request, err := tx.LockJoinRequest(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	campaign, err := tx.LockCampaign(ctx, request.CampaignID)
	if err != nil {
		return nil, nil, err
	}
	role, err := s.roleOf(ctx, tx, campaign, actingUserID)
	if err != nil {
		return nil, nil, err
	}
	if !access.CanManageCampaign(role) {
		return nil, nil, ErrNotManager
	}
	if request.Status != JoinRequestPending {
		return nil, nil, ErrJoinRequestNotPending.WithMessage("join request is already %s", request.Status)
	}
	return request, campaign, nil
}

func (s *Service) markReviewed(ctx context.Context, tx Repository, request *JoinRequest, status JoinRequestStatus, reviewerID string) error {
	now := s.now().UTC()
	reviewer := reviewerID
	request.Status = status
	request.ReviewedAt = &now
	request.ReviewedBy = &reviewer
	request.UpdatedAt = now
	return tx.UpdateJoinRequest(ctx, request)
}

func (s *Service) uniqueInviteCode(ctx context.Context, repo Repository) (string, error) {
	for i := 0; i < inviteCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		taken, err := repo.IsInviteCodeTaken(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeGenerationFailed
}

func canView(campaign *Campaign, role access.Role) error {
	if campaign.Visibility == VisibilityPrivate && !access.IsMember(role) {
		return ErrCampaignAccessDenied
	}
	return nil
}

func assignableRole(role access.Role) error {
	switch role {
	case access.RoleGM, access.RolePlayer:
		return nil
	case access.RoleOwner:
		return ErrOwnerRoleImmutable
	case access.RoleNone:
		return ErrInvalidMemberRole
	}
	return ErrInvalidMemberRole.WithMessage("invalid member role %q", role)
}

func normalizeInviteCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func generateInviteCode() (string, error) {
	var b [inviteCodeBytes]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
