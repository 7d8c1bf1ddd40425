package calendar

import (
	"context"

	"quest-scheduler-go/internal/domain/session"
)

type Repository interface {
	// ListSessions returns matching sessions ordered by date.
	ListSessions(ctx context.Context, query Query) ([]session.Session, error)
}
