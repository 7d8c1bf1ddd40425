package inmemory

import (
	"cmp"
	"context"
	"slices"

	"quest-scheduler-go/internal/domain/access"
	"quest-scheduler-go/internal/domain/campaign"
)

type CampaignRepository struct {
	store *Store
	inTx  bool
}

func NewCampaignRepository(store *Store) *CampaignRepository {
	return &CampaignRepository{store: store}
}

func (r *CampaignRepository) Transaction(ctx context.Context, fn func(campaign.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.store.transaction(ctx, func() error {
		return fn(&CampaignRepository{store: r.store, inTx: true})
	})
}

func (r *CampaignRepository) CreateCampaign(ctx context.Context, item *campaign.Campaign) error {
	return r.store.view(r.inTx, func(s *state) error {
		if item.InviteCode != nil && inviteCodeTaken(s, *item.InviteCode, item.ID) {
			return campaign.ErrInviteCodeTaken
		}
		now := r.store.now().UTC()
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now
		s.campaigns[item.ID] = *item
		return nil
	})
}

func (r *CampaignRepository) GetCampaign(ctx context.Context, campaignID string) (*campaign.Campaign, error) {
	var result campaign.Campaign
	err := r.store.view(r.inTx, func(s *state) error {
		item, ok := s.campaigns[campaignID]
		if !ok {
			return campaign.ErrCampaignNotFound
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// LockCampaign is a plain read: the store mutex already serializes transactions.
func (r *CampaignRepository) LockCampaign(ctx context.Context, campaignID string) (*campaign.Campaign, error) {
	return r.GetCampaign(ctx, campaignID)
}

func (r *CampaignRepository) GetCampaignByInviteCode(ctx context.Context, code string) (*campaign.Campaign, error) {
	var result campaign.Campaign
	err := r.store.view(r.inTx, func(s *state) error {
		for _, item := range s.campaigns {
			if item.InviteCode != nil && *item.InviteCode == code {
				result = item
				return nil
			}
		}
		return campaign.ErrInviteCodeNotFound
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *CampaignRepository) UpdateCampaign(ctx context.Context, item *campaign.Campaign) error {
	return r.store.view(r.inTx, func(s *state) error {
		if _, ok := s.campaigns[item.ID]; !ok {
			return campaign.ErrCampaignNotFound
		}
		if item.InviteCode != nil && inviteCodeTaken(s, *item.InviteCode, item.ID) {
			return campaign.ErrInviteCodeTaken
		}
		item.UpdatedAt = r.store.now().UTC()
		s.campaigns[item.ID] = *item
		return nil
	})
}

func (r *CampaignRepository) DeleteCampaign(ctx context.Context, campaignID string) error {
	return r.store.view(r.inTx, func(s *state) error {
		if _, ok := s.campaigns[campaignID]; !ok {
			return campaign.ErrCampaignNotFound
		}
		s.deleteCampaign(campaignID)
		return nil
	})
}

func (r *CampaignRepository) IsInviteCodeTaken(ctx context.Context, code string) (bool, error) {
	var taken bool
	err := r.store.view(r.inTx, func(s *state) error {
		taken = inviteCodeTaken(s, code, "")
		return nil
	})
	return taken, err
}

func (r *CampaignRepository) ListCampaignsByUser(ctx context.Context, userID string, filter campaign.RoleFilter) ([]campaign.Membership, error) {
	var result []campaign.Membership
	err := r.store.view(r.inTx, func(s *state) error {
		for _, member := range s.members {
			if member.UserID != userID {
				continue
			}
			switch filter {
			case campaign.RoleFilterOwner:
				if member.Role != access.RoleOwner {
					continue
				}
			case campaign.RoleFilterMember:
				if member.Role == access.RoleOwner {
					continue
				}
			case campaign.RoleFilterAll:
			}
			item, ok := s.campaigns[member.CampaignID]
			if !ok {
				continue
			}
			result = append(result, campaign.Membership{Campaign: item, Role: member.Role})
		}
		return nil
	})
	slices.SortFunc(result, func(a, b campaign.Membership) int {
		return b.Campaign.CreatedAt.Compare(a.Campaign.CreatedAt)
	})
	return result, err
}

func (r *CampaignRepository) AddMember(ctx context.Context, member *campaign.Member) error {
	return r.store.view(r.inTx, func(s *state) error {
		if _, ok := s.campaigns[member.CampaignID]; !ok {
			return campaign.ErrCampaignNotFound
		}
		if _, ok := s.findMember(member.CampaignID, member.UserID); ok {
			return campaign.ErrAlreadyMember
		}
		if member.Role == access.RoleOwner {
			for _, existing := range s.members {
				if existing.CampaignID == member.CampaignID && existing.Role == access.RoleOwner {
					return campaign.ErrAlreadyMember
				}
			}
		}
		if member.JoinedAt.IsZero() {
			member.JoinedAt = r.store.now().UTC()
		}
		s.members[member.ID] = *member
		return nil
	})
}

func (r *CampaignRepository) GetMember(ctx context.Context, campaignID, userID string) (*campaign.Member, error) {
	var result campaign.Member
	err := r.store.view(r.inTx, func(s *state) error {
		member, ok := s.findMember(campaignID, userID)
		if !ok {
			return campaign.ErrMemberNotFound
		}
		result = member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *CampaignRepository) ListMembers(ctx context.Context, campaignID string) ([]campaign.Member, error) {
	var result []campaign.Member
	err := r.store.view(r.inTx, func(s *state) error {
		for _, member := range s.members {
			if member.CampaignID == campaignID {
				result = append(result, member)
			}
		}
		return nil
	})
	slices.SortFunc(result, func(a, b campaign.Member) int {
		return cmp.Or(a.JoinedAt.Compare(b.JoinedAt), cmp.Compare(a.UserID, b.UserID))
	})
	return result, err
}

func (r *CampaignRepository) CountMembers(ctx context.Context, campaignID string) (int64, error) {
	var count int64
	err := r.store.view(r.inTx, func(s *state) error {
		count = countMembers(s, campaignID)
		return nil
	})
	return count, err
}

func (r *CampaignRepository) UpdateMemberRole(ctx context.Context, campaignID, userID string, role access.Role) error {
	return r.store.view(r.inTx, func(s *state) error {
		member, ok := s.findMember(campaignID, userID)
		if !ok {
			return campaign.ErrMemberNotFound
		}
		member.Role = role
		s.members[member.ID] = member
		return nil
	})
}

func (r *CampaignRepository) DeleteMember(ctx context.Context, campaignID, userID string) error {
	return r.store.view(r.inTx, func(s *state) error {
		member, ok := s.findMember(campaignID, userID)
		if !ok {
			return campaign.ErrMemberNotFound
		}
		delete(s.members, member.ID)
		return nil
	})
}

func (r *CampaignRepository) CreateJoinRequest(ctx context.Context, request *campaign.JoinRequest) error {
	return r.store.view(r.inTx, func(s *state) error {
		if _, ok := s.campaigns[request.CampaignID]; !ok {
			return campaign.ErrCampaignNotFound
		}
		for _, existing := range s.joinRequests {
			if existing.CampaignID == request.CampaignID && existing.UserID == request.UserID {
				return campaign.ErrJoinRequestExists
			}
		}
		now := r.store.now().UTC()
		if request.CreatedAt.IsZero() {
			request.CreatedAt = now
		}
		request.UpdatedAt = now
		s.joinRequests[request.ID] = *request
		return nil
	})
}

func (r *CampaignRepository) GetJoinRequest(ctx context.Context, requestID string) (*campaign.JoinRequest, error) {
	var result campaign.JoinRequest
	err := r.store.view(r.inTx, func(s *state) error {
		request, ok := s.joinRequests[requestID]
		if !ok {
			return campaign.ErrJoinRequestNotFound
		}
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *CampaignRepository) LockJoinRequest(ctx context.Context, requestID string) (*campaign.JoinRequest, error) {
	return r.GetJoinRequest(ctx, requestID)
}

func (r *CampaignRepository) GetJoinRequestByUser(ctx context.Context, campaignID, userID string) (*campaign.JoinRequest, error) {
	var result campaign.JoinRequest
	err := r.store.view(r.inTx, func(s *state) error {
		for _, request := range s.joinRequests {
			if request.CampaignID == campaignID && request.UserID == userID {
				result = request
				return nil
			}
		}
		return campaign.ErrJoinRequestNotFound
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *CampaignRepository) UpdateJoinRequest(ctx context.Context, request *campaign.JoinRequest) error {
	return r.store.view(r.inTx, func(s *state) error {
		if _, ok := s.joinRequests[request.ID]; !ok {
			return campaign.ErrJoinRequestNotFound
		}
		s.joinRequests[request.ID] = *request
		return nil
	})
}

func (r *CampaignRepository) ListJoinRequests(ctx context.Context, campaignID string, status campaign.JoinRequestStatus) ([]campaign.JoinRequest, error) {
	var result []campaign.JoinRequest
	err := r.store.view(r.inTx, func(s *state) error {
		for _, request := range s.joinRequests {
			if request.CampaignID != campaignID {
				continue
			}
			if status != "" && request.Status != status {
				continue
			}
			result = append(result, request)
		}
		return nil
	})
	slices.SortFunc(result, func(a, b campaign.JoinRequest) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result, err
}

func inviteCodeTaken(s *state, code, exceptID string) bool {
	for _, item := range s.campaigns {
		if item.ID != exceptID && item.InviteCode != nil && *item.InviteCode == code {
			return true
		}
	}
	return false
}

func countMembers(s *state, campaignID string) int64 {
	var count int64
	for _, member := range s.members {
		if member.CampaignID == campaignID {
			count++
		}
	}
	return count
}
