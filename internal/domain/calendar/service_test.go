package calendar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quest-scheduler-go/internal/domain/apperr"
	"quest-scheduler-go/internal/domain/campaign"
	"quest-scheduler-go/internal/domain/session"
)

type fakeRepo struct {
	sessions     []session.Session
	participants map[string][]string
	systems      map[string]string
	queries      []Query
}

func (f *fakeRepo) ListSessions(ctx context.Context, query Query) ([]session.Session, error) {
	f.queries = append(f.queries, query)
	var result []session.Session
	for _, item := range f.sessions {
		if item.Date.Before(query.From) || !item.Date.Before(query.To) {
			continue
		}
		visible := false
		if query.IncludePublic && item.Visibility != campaign.VisibilityPrivate {
			visible = true
		}
		if query.ParticipantID != "" {
			for _, userID := range f.participants[item.ID] {
				if userID == query.ParticipantID {
					visible = true
				}
			}
		}
		if !visible {
			continue
		}
		if query.System != "" {
			if item.CampaignID == nil || f.systems[*item.CampaignID] != query.System {
				continue
			}
		}
		if query.Search != "" && !strings.Contains(strings.ToLower(item.Title), strings.ToLower(query.Search)) {
			continue
		}
		result = append(result, item)
	}
	return result, nil
}

func strPtr(s string) *string { return &s }

func newFixture() *fakeRepo {
	march := func(day, hour int) time.Time {
		return time.Date(2030, time.March, day, hour, 0, 0, 0, time.UTC)
	}
	return &fakeRepo{
		sessions: []session.Session{
			{ID: "s1", Title: "Dragon Heist", Date: march(3, 18), Visibility: campaign.VisibilityPublic, CampaignID: strPtr("c1")},
			{ID: "s2", Title: "Curse of Strahd", Date: march(3, 20), Visibility: campaign.VisibilityLinkOnly},
			{ID: "s3", Title: "Private table", Date: march(10, 19), Visibility: campaign.VisibilityPrivate},
			// 23:30 UTC still belongs to the 31st regardless of server zone.
			{ID: "s4", Title: "Late game", Date: march(31, 23).Add(30 * time.Minute), Visibility: campaign.VisibilityPublic},
			{ID: "s5", Title: "April game", Date: time.Date(2030, time.April, 1, 10, 0, 0, 0, time.UTC), Visibility: campaign.VisibilityPublic},
		},
		participants: map[string][]string{
			"s1": {"gm"},
			"s3": {"gm", "u1"},
		},
		systems: map[string]string{"c1": "D&D 5e"},
	}
}

func TestParseScopeAcceptsBothVocabularies(t *testing.T) {
	cases := map[string]Scope{
		"user": ScopeMine, "MY": ScopeMine,
		"global": ScopePublic, "PUBLIC": ScopePublic,
		"search": ScopeAll, "all": ScopeAll,
		"": "",
	}
	for raw, want := range cases {
		got, err := ParseScope(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %q, got %q", raw, want, got)
		}
	}
	if _, err := ParseScope("friends"); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
}

func TestGetCalendarPublicScope(t *testing.T) {
	svc := NewService(newFixture())

	month, err := svc.GetCalendar(context.Background(), "", 2030, 3, "global")
	if err != nil {
		t.Fatalf("get calendar: %v", err)
	}
	if month.Total != 3 {
		t.Fatalf("expected 3 public sessions, got %d", month.Total)
	}
	if month.Days["2030-03-03"] != 2 {
		t.Fatalf("expected 2 sessions on 2030-03-03, got %d", month.Days["2030-03-03"])
	}
	if month.Days["2030-03-31"] != 1 {
		t.Fatalf("expected late session keyed on 2030-03-31, got %v", month.Days)
	}
	if _, ok := month.Days["2030-03-10"]; ok {
		t.Fatalf("private session must not be counted in public scope")
	}
}

func TestGetCalendarUserScopeRequiresViewer(t *testing.T) {
	svc := NewService(newFixture())

	_, err := svc.GetCalendar(context.Background(), "", 2030, 3, "user")
	if apperr.KindOf(err) != apperr.KindAccessDenied {
		t.Fatalf("expected access denied, got %v", err)
	}
}

func TestGetCalendarUserScope(t *testing.T) {
	svc := NewService(newFixture())

	month, err := svc.GetCalendar(context.Background(), "u1", 2030, 3, "MY")
	if err != nil {
		t.Fatalf("get calendar: %v", err)
	}
	if month.Total != 1 || month.Days["2030-03-10"] != 1 {
		t.Fatalf("expected only the private session, got %v", month.Days)
	}
}

func TestGetCalendarRejectsInvalidMonth(t *testing.T) {
	svc := NewService(newFixture())

	if _, err := svc.GetCalendar(context.Background(), "u1", 2030, 13, "MY"); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestGetCalendarStatsAnonymousUserScopeDowngrades(t *testing.T) {
	repo := newFixture()
	svc := NewService(repo)

	month, err := svc.GetCalendarStats(context.Background(), "", "2030-03", "user", Filters{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if month.Scope != ScopePublic {
		t.Fatalf("expected scope PUBLIC, got %s", month.Scope)
	}
	if month.Total != 3 {
		t.Fatalf("expected 3 public or link-only sessions, got %d", month.Total)
	}
	last := repo.queries[len(repo.queries)-1]
	if last.ParticipantID != "" || !last.IncludePublic {
		t.Fatalf("expected public-only query, got %+v", last)
	}
}

func TestGetCalendarStatsAllScopeUnionsMineAndPublic(t *testing.T) {
	svc := NewService(newFixture())

	month, err := svc.GetCalendarStats(context.Background(), "u1", "2030-03", "search", Filters{})
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if month.Total != 4 {
		t.Fatalf("expected 4 sessions, got %d", month.Total)
	}
}

func TestGetCalendarStatsFilters(t *testing.T) {
	svc := NewService(newFixture())

	month, err := svc.GetCalendarStats(context.Background(), "u1", "2030-03", "ALL", Filters{System: "D&D 5e"})
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if month.Total != 1 || month.Days["2030-03-03"] != 1 {
		t.Fatalf("expected only the D&D session, got %v", month.Days)
	}

	month, err = svc.GetCalendarStats(context.Background(), "u1", "2030-03", "ALL", Filters{
		DateFrom: time.Date(2030, time.March, 4, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2030, time.March, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if month.Total != 2 {
		t.Fatalf("expected sessions on the 10th and 31st, got %v", month.Days)
	}

	month, err = svc.GetCalendarStats(context.Background(), "u1", "2030-03", "ALL", Filters{Query: "strahd"})
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if month.Total != 1 {
		t.Fatalf("expected one text match, got %v", month.Days)
	}
}

func TestGetCalendarStatsEmptyDateRangeSkipsRepository(t *testing.T) {
	repo := newFixture()
	svc := NewService(repo)

	month, err := svc.GetCalendarStats(context.Background(), "u1", "2030-03", "ALL", Filters{
		DateFrom: time.Date(2030, time.May, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if month.Total != 0 || len(repo.queries) != 0 {
		t.Fatalf("expected empty result without a query, got %d sessions and %d queries", month.Total, len(repo.queries))
	}
}

func TestGetCalendarStatsRejectsBadMonth(t *testing.T) {
	svc := NewService(newFixture())

	if _, err := svc.GetCalendarStats(context.Background(), "", "March", "", Filters{}); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestGetSessionsByDay(t *testing.T) {
	svc := NewService(newFixture())

	day, err := svc.GetSessionsByDay(context.Background(), "", "2030-03-03", "ALL", Filters{})
	if err != nil {
		t.Fatalf("get day: %v", err)
	}
	if day.Scope != ScopePublic {
		t.Fatalf("expected anonymous ALL to downgrade to PUBLIC, got %s", day.Scope)
	}
	if len(day.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(day.Sessions))
	}

	day, err = svc.GetSessionsByDay(context.Background(), "u1", "2030-03-10", "user", Filters{})
	if err != nil {
		t.Fatalf("get day: %v", err)
	}
	if len(day.Sessions) != 1 || day.Sessions[0].ID != "s3" {
		t.Fatalf("expected the private session, got %+v", day.Sessions)
	}

	if _, err := svc.GetSessionsByDay(context.Background(), "u1", "2030-3-10", "", Filters{}); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}
