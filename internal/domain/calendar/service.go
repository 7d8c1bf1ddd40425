// Package calendar derives read-only day and month views over sessions.
// Nothing is cached; every call recomputes from the repository.
package calendar

import (
	"context"
	"strings"
	"time"

	"quest-scheduler-go/internal/domain/session"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetCalendar counts sessions per day of the given month. Unlike the
// filtered views, an anonymous viewer asking for ScopeMine is rejected.
// An empty scope means ScopeMine for signed-in viewers and ScopePublic otherwise.
func (s *Service) GetCalendar(ctx context.Context, viewerID string, year, month int, rawScope string) (*Month, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 {
		return nil, ErrInvalidMonth.WithMessage("invalid year/month %d-%d", year, month)
	}
	scope, err := ParseScope(rawScope)
	if err != nil {
		return nil, err
	}
	if scope == "" {
		scope = ScopePublic
		if viewerID != "" {
			scope = ScopeMine
		}
	}
	if scope == ScopeMine && viewerID == "" {
		return nil, ErrViewerRequired
	}
	if scope == ScopeAll && viewerID == "" {
		scope = ScopePublic
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	query := scopedQuery(scope, viewerID, from, from.AddDate(0, 1, 0))
	return s.countMonth(ctx, from, scope, query)
}

// GetCalendarStats is GetCalendar for a "YYYY-MM" month with filters.
// Anonymous viewers are downgraded to ScopePublic instead of failing.
func (s *Service) GetCalendarStats(ctx context.Context, viewerID, month, rawScope string, filters Filters) (*Month, error) {
	from, err := time.Parse(monthLayout, strings.TrimSpace(month))
	if err != nil {
		return nil, ErrInvalidMonth.WithMessage("invalid month %q, expected YYYY-MM", month)
	}
	scope, err := resolveScope(rawScope, viewerID)
	if err != nil {
		return nil, err
	}

	query := scopedQuery(scope, viewerID, from, from.AddDate(0, 1, 0))
	if !applyFilters(&query, filters) {
		return emptyMonth(from, scope), nil
	}
	return s.countMonth(ctx, from, scope, query)
}

// GetSessionsByDay applies the GetCalendarStats scope rules to one UTC day.
func (s *Service) GetSessionsByDay(ctx context.Context, viewerID, date, rawScope string, filters Filters) (*Day, error) {
	from, err := time.Parse(dayLayout, strings.TrimSpace(date))
	if err != nil {
		return nil, ErrInvalidDate.WithMessage("invalid date %q, expected YYYY-MM-DD", date)
	}
	scope, err := resolveScope(rawScope, viewerID)
	if err != nil {
		return nil, err
	}

	day := &Day{Date: DayKey(from), Scope: scope, Sessions: []session.Session{}}
	query := scopedQuery(scope, viewerID, from, from.AddDate(0, 0, 1))
	if !applyFilters(&query, filters) {
		return day, nil
	}

	sessions, err := s.repo.ListSessions(ctx, query)
	if err != nil {
		return nil, err
	}
	day.Sessions = append(day.Sessions, sessions...)
	return day, nil
}

func (s *Service) countMonth(ctx context.Context, from time.Time, scope Scope, query Query) (*Month, error) {
	sessions, err := s.repo.ListSessions(ctx, query)
	if err != nil {
		return nil, err
	}

	result := emptyMonth(from, scope)
	for _, item := range sessions {
		result.Days[DayKey(item.Date)]++
		result.Total++
	}
	return result, nil
}

func emptyMonth(from time.Time, scope Scope) *Month {
	return &Month{
		Year:  from.Year(),
		Month: from.Month(),
		Scope: scope,
		Days:  make(map[string]int),
	}
}

// resolveScope parses rawScope and downgrades anything that needs a viewer
// to ScopePublic when there is none.
func resolveScope(rawScope, viewerID string) (Scope, error) {
	scope, err := ParseScope(rawScope)
	if err != nil {
		return "", err
	}
	if scope == "" {
		scope = ScopeAll
	}
	if viewerID == "" && scope != ScopePublic {
		scope = ScopePublic
	}
	return scope, nil
}

func scopedQuery(scope Scope, viewerID string, from, to time.Time) Query {
	query := Query{From: from, To: to}
	switch scope {
	case ScopeMine:
		query.ParticipantID = viewerID
	case ScopePublic:
		query.IncludePublic = true
	case ScopeAll:
		query.ParticipantID = viewerID
		query.IncludePublic = true
	}
	return query
}

// applyFilters narrows query in place. It reports false when the date
// filters leave an empty range.
func applyFilters(query *Query, filters Filters) bool {
	query.System = strings.TrimSpace(filters.System)
	query.Search = strings.TrimSpace(filters.Query)

	if !filters.DateFrom.IsZero() {
		from := startOfDay(filters.DateFrom)
		if from.After(query.From) {
			query.From = from
		}
	}
	if !filters.DateTo.IsZero() {
		to := startOfDay(filters.DateTo).AddDate(0, 0, 1)
		if to.Before(query.To) {
			query.To = to
		}
	}
	return query.From.Before(query.To)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
