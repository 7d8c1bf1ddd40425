package inmemory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"quest-scheduler-go/internal/domain/calendar"
	"quest-scheduler-go/internal/domain/campaign"
	"quest-scheduler-go/internal/domain/search"
	"quest-scheduler-go/internal/domain/session"
)

type CalendarRepository struct {
	store *Store
}

func NewCalendarRepository(store *Store) *CalendarRepository {
	return &CalendarRepository{store: store}
}

func (r *CalendarRepository) ListSessions(ctx context.Context, query calendar.Query) ([]session.Session, error) {
	var result []session.Session
	err := r.store.view(false, func(s *state) error {
		participating := make(map[string]bool)
		if query.ParticipantID != "" {
			for _, participant := range s.participants {
				if participant.UserID == query.ParticipantID {
					participating[participant.SessionID] = true
				}
			}
		}

		for _, item := range s.sessions {
			if item.Date.Before(query.From) || !item.Date.Before(query.To) {
				continue
			}
			public := query.IncludePublic && item.Visibility != campaign.VisibilityPrivate
			if !public && !participating[item.ID] {
				continue
			}
			if query.System != "" && !strings.EqualFold(s.campaignSystem(item.CampaignID), query.System) {
				continue
			}
			if !matchesText(query.Search, item.Title, item.Description) {
				continue
			}
			result = append(result, item)
		}
		return nil
	})
	sortByDate(result)
	return result, err
}

type SearchRepository struct {
	store *Store
}

func NewSearchRepository(store *Store) *SearchRepository {
	return &SearchRepository{store: store}
}

func (r *SearchRepository) SearchCampaigns(ctx context.Context, filter search.CampaignFilter) ([]search.CampaignHit, int64, error) {
	var hits []search.CampaignHit
	err := r.store.view(false, func(s *state) error {
		for _, item := range s.campaigns {
			if filter.Visibility != "" && item.Visibility != filter.Visibility {
				continue
			}
			if filter.System != "" && !strings.EqualFold(item.System, filter.System) {
				continue
			}
			if !matchesText(filter.Query, item.Title, item.Description) {
				continue
			}
			item.InviteCode = nil
			hits = append(hits, search.CampaignHit{Campaign: item, MemberCount: countMembers(s, item.ID)})
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	slices.SortFunc(hits, func(a, b search.CampaignHit) int {
		switch filter.Sort {
		case search.CampaignSortPopular:
			return cmp.Or(cmp.Compare(b.MemberCount, a.MemberCount), b.Campaign.CreatedAt.Compare(a.Campaign.CreatedAt))
		case search.CampaignSortTitle:
			return cmp.Or(cmp.Compare(strings.ToLower(a.Campaign.Title), strings.ToLower(b.Campaign.Title)), cmp.Compare(a.Campaign.ID, b.Campaign.ID))
		case search.CampaignSortNewest:
		}
		return cmp.Or(b.Campaign.CreatedAt.Compare(a.Campaign.CreatedAt), cmp.Compare(a.Campaign.ID, b.Campaign.ID))
	})
	return paginate(hits, filter.Limit, filter.Offset), int64(len(hits)), nil
}

func (r *SearchRepository) SearchSessions(ctx context.Context, filter search.SessionFilter) ([]search.SessionHit, int64, error) {
	var hits []search.SessionHit
	err := r.store.view(false, func(s *state) error {
		for _, item := range s.sessions {
			if filter.Visibility != "" && item.Visibility != filter.Visibility {
				continue
			}
			if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, item.Status) {
				continue
			}
			if filter.System != "" && !strings.EqualFold(s.campaignSystem(item.CampaignID), filter.System) {
				continue
			}
			if !filter.DateFrom.IsZero() && item.Date.Before(filter.DateFrom) {
				continue
			}
			if !filter.DateTo.IsZero() && item.Date.After(filter.DateTo) {
				continue
			}
			if filter.MinPrice != nil && item.Price < *filter.MinPrice {
				continue
			}
			if filter.MaxPrice != nil && item.Price > *filter.MaxPrice {
				continue
			}
			if filter.OneShot != nil && item.IsOneShot() != *filter.OneShot {
				continue
			}
			if !matchesText(filter.Query, item.Title, item.Description) {
				continue
			}
			hits = append(hits, search.SessionHit{Session: item})
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	slices.SortFunc(hits, func(a, b search.SessionHit) int {
		switch filter.Sort {
		case search.SessionSortNewest:
			return cmp.Or(b.Session.CreatedAt.Compare(a.Session.CreatedAt), cmp.Compare(a.Session.ID, b.Session.ID))
		case search.SessionSortPrice:
			return cmp.Or(cmp.Compare(a.Session.Price, b.Session.Price), a.Session.Date.Compare(b.Session.Date))
		case search.SessionSortDate:
		}
		return cmp.Or(a.Session.Date.Compare(b.Session.Date), cmp.Compare(a.Session.ID, b.Session.ID))
	})
	return paginate(hits, filter.Limit, filter.Offset), int64(len(hits)), nil
}

func (r *SearchRepository) PlayerCounts(ctx context.Context, sessionIDs []string) (map[string]search.PlayerCount, error) {
	result := make(map[string]search.PlayerCount)
	wanted := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = true
	}
	err := r.store.view(false, func(s *state) error {
		for _, participant := range s.participants {
			if !wanted[participant.SessionID] {
				continue
			}
			if !participant.HoldsSeat() {
				continue
			}
			count := result[participant.SessionID]
			count.Seated++
			if participant.Status == session.ParticipantConfirmed {
				count.Confirmed++
			}
			result[participant.SessionID] = count
		}
		return nil
	})
	return result, err
}

func matchesText(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	query = strings.ToLower(query)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		return items
	}
	start := min(offset, len(items))
	end := min(start+limit, len(items))
	return items[start:end]
}
