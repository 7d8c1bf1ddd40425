package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	calendardomain "quest-scheduler-go/internal/domain/calendar"
	campaigndomain "quest-scheduler-go/internal/domain/campaign"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	return NewPostgres(db), mock
}

func march() (time.Time, time.Time) {
	from := time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

func TestListSessionsParticipantOrPublic(t *testing.T) {
	repo, mock := newMockRepo(t)
	from, to := march()
	mock.ExpectQuery(`SELECT sessions\.\* FROM "sessions" WHERE \(sessions\.date >= \$1 AND sessions\.date < \$2\) AND \(sessions\.visibility <> \$3 OR \(?EXISTS \(SELECT 1 FROM session_participants sp WHERE sp\.session_id = sessions\.id AND sp\.user_id = \$4\)\)?\) ORDER BY sessions\.date asc`).
		WithArgs(from, to, campaigndomain.VisibilityPrivate, "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "date", "visibility"}).
			AddRow("s1", "Session Zero", from.Add(19*time.Hour), "PUBLIC").
			AddRow("s2", "Curse of Strahd", from.AddDate(0, 0, 3), "PRIVATE"))

	sessions, err := repo.ListSessions(context.Background(), calendardomain.Query{From: from, To: to, ParticipantID: "u1", IncludePublic: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "s1" || sessions[1].ID != "s2" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListSessionsSystemAndSearch(t *testing.T) {
	repo, mock := newMockRepo(t)
	from, to := march()
	pattern := `%100\%%`
	mock.ExpectQuery(`SELECT sessions\.\* FROM "sessions" join campaigns on campaigns\.id = sessions\.campaign_id WHERE \(sessions\.date >= \$1 AND sessions\.date < \$2\) AND \(?EXISTS \(SELECT 1 FROM session_participants sp WHERE sp\.session_id = sessions\.id AND sp\.user_id = \$3\)\)? AND LOWER\(campaigns\.system\) = LOWER\(\$4\) AND \(?\(sessions\.title ILIKE \$5 ESCAPE '\\' OR sessions\.description ILIKE \$6 ESCAPE '\\'\)\)? ORDER BY sessions\.date asc`).
		WithArgs(from, to, "u1", "D&D 5e", pattern, pattern).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	sessions, err := repo.ListSessions(context.Background(), calendardomain.Query{
		From: from, To: to, ParticipantID: "u1", System: "D&D 5e", Search: "100%",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions, got %+v", sessions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListSessionsWithoutScopeSkipsQuery(t *testing.T) {
	repo, mock := newMockRepo(t)
	from, to := march()

	sessions, err := repo.ListSessions(context.Background(), calendardomain.Query{From: from, To: to})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if sessions == nil || len(sessions) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", sessions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
