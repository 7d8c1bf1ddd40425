// Package search implements paginated discovery of public campaigns and
// sessions.
package search

import (
	"context"
	"strings"

	"quest-scheduler-go/internal/domain/campaign"
	"quest-scheduler-go/internal/domain/session"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SearchCampaigns only ever returns PUBLIC campaigns.
func (s *Service) SearchCampaigns(ctx context.Context, params CampaignParams) (*Page[CampaignHit], error) {
	limit, offset, err := paging(params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	sort := params.Sort
	if sort == "" {
		sort = CampaignSortNewest
	}
	if _, err := ParseCampaignSort(string(sort)); err != nil {
		return nil, err
	}

	hits, total, err := s.repo.SearchCampaigns(ctx, CampaignFilter{
		Visibility: campaign.VisibilityPublic,
		Query:      strings.TrimSpace(params.Query),
		System:     strings.TrimSpace(params.System),
		Sort:       sort,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, err
	}
	return newPage(hits, total, limit, offset), nil
}

// SearchSessions returns PUBLIC sessions that are PLANNED or ACTIVE.
// AvailableSlots uses the seat count JoinSession enforces, so an advertised
// slot can actually be taken. With
// HasAvailableSlots the repository is queried unpaged, full sessions are
// dropped and the page is cut from what is left, so Total and HasMore
// describe the filtered set.
func (s *Service) SearchSessions(ctx context.Context, params SessionParams) (*Page[SessionHit], error) {
	limit, offset, err := paging(params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	sort := params.Sort
	if sort == "" {
		sort = SessionSortDate
	}
	if _, err := ParseSessionSort(string(sort)); err != nil {
		return nil, err
	}
	if err := validatePrices(params.MinPrice, params.MaxPrice); err != nil {
		return nil, err
	}
	if !params.DateFrom.IsZero() && !params.DateTo.IsZero() && params.DateFrom.After(params.DateTo) {
		return nil, ErrInvalidDateRange
	}

	filter := SessionFilter{
		Visibility: campaign.VisibilityPublic,
		Statuses:   []session.Status{session.StatusPlanned, session.StatusActive},
		Query:      strings.TrimSpace(params.Query),
		System:     strings.TrimSpace(params.System),
		DateFrom:   params.DateFrom,
		DateTo:     params.DateTo,
		MinPrice:   params.MinPrice,
		MaxPrice:   params.MaxPrice,
		OneShot:    params.OneShot,
		Sort:       sort,
		Limit:      limit,
		Offset:     offset,
	}
	if params.HasAvailableSlots {
		filter.Limit, filter.Offset = 0, 0
	}

	hits, total, err := s.repo.SearchSessions(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.fillSlots(ctx, hits); err != nil {
		return nil, err
	}

	if !params.HasAvailableSlots {
		return newPage(hits, total, limit, offset), nil
	}

	open := hits[:0]
	for _, hit := range hits {
		if hit.AvailableSlots > 0 {
			open = append(open, hit)
		}
	}
	total = int64(len(open))
	start := min(offset, len(open))
	end := min(start+limit, len(open))
	return newPage(open[start:end], total, limit, offset), nil
}

func (s *Service) fillSlots(ctx context.Context, hits []SessionHit) error {
	if len(hits) == 0 {
		return nil
	}
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.Session.ID)
	}
	counts, err := s.repo.PlayerCounts(ctx, ids)
	if err != nil {
		return err
	}
	for i := range hits {
		count := counts[hits[i].Session.ID]
		hits[i].ConfirmedPlayers = count.Confirmed
		hits[i].AvailableSlots = max(hits[i].Session.MaxPlayers-int(count.Seated), 0)
	}
	return nil
}

func paging(limit, offset int) (int, int, error) {
	if limit < 0 || offset < 0 {
		return 0, 0, ErrInvalidPagination
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit, offset, nil
}

func validatePrices(minPrice, maxPrice *float64) error {
	if minPrice != nil && *minPrice < 0 {
		return ErrInvalidPriceRange.WithMessage("min_price must not be negative")
	}
	if maxPrice != nil && *maxPrice < 0 {
		return ErrInvalidPriceRange.WithMessage("max_price must not be negative")
	}
	if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		return ErrInvalidPriceRange.WithMessage("min_price must not exceed max_price")
	}
	return nil
}

func newPage[T any](items []T, total int64, limit, offset int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(items)) < total,
	}
}
