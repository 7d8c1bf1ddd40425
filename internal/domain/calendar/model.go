package calendar

import (
	"strings"
	"time"

	"quest-scheduler-go/internal/domain/session"
)

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

// Scope selects which sessions a calendar view counts.
type Scope string

const (
	// ScopeMine covers sessions the viewer participates in.
	ScopeMine Scope = "MY"
	// ScopePublic covers sessions with PUBLIC or LINK_ONLY visibility.
	ScopePublic Scope = "PUBLIC"
	// ScopeAll is the union of ScopeMine and ScopePublic.
	ScopeAll Scope = "ALL"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeMine, ScopePublic, ScopeAll:
		return true
	}
	return false
}

// ParseScope accepts both vocabularies: user/global/search and MY/PUBLIC/ALL.
// An empty value yields "" so callers can pick their own default.
func ParseScope(value string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return "", nil
	case "user", "my":
		return ScopeMine, nil
	case "global", "public":
		return ScopePublic, nil
	case "search", "all":
		return ScopeAll, nil
	}
	return "", ErrInvalidScope.WithMessage("invalid calendar scope %q", value)
}

// Filters narrow a calendar view. Zero values mean no filter. DateTo is
// inclusive of the whole day.
type Filters struct {
	System   string
	DateFrom time.Time
	DateTo   time.Time
	Query    string
}

// Query is what the repository evaluates. Sessions match when their date is
// in [From, To) and they satisfy at least one of the enabled visibility arms.
type Query struct {
	From time.Time
	To   time.Time

	// ParticipantID enables the "viewer participates" arm when not empty.
	ParticipantID string
	// IncludePublic enables the PUBLIC/LINK_ONLY arm.
	IncludePublic bool

	System string
	Search string
}

// Month is a per-day session count for one calendar month.
type Month struct {
	Year  int
	Month time.Month
	Scope Scope
	Days  map[string]int
	Total int
}

// Day lists the sessions of one calendar day.
type Day struct {
	Date     string
	Scope    Scope
	Sessions []session.Session
}

// DayKey formats t as a UTC calendar day.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}
