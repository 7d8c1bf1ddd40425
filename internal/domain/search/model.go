package search

import (
	"strings"
	"time"

	"quest-scheduler-go/internal/domain/campaign"
	"quest-scheduler-go/internal/domain/session"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

type CampaignSort string

const (
	CampaignSortNewest  CampaignSort = "newest"
	CampaignSortPopular CampaignSort = "popular"
	CampaignSortTitle   CampaignSort = "title"
)

func ParseCampaignSort(value string) (CampaignSort, error) {
	switch s := CampaignSort(strings.ToLower(strings.TrimSpace(value))); s {
	case "":
		return CampaignSortNewest, nil
	case CampaignSortNewest, CampaignSortPopular, CampaignSortTitle:
		return s, nil
	}
	return "", ErrInvalidSort.WithMessage("invalid campaign sort %q", value)
}

type SessionSort string

const (
	SessionSortDate   SessionSort = "date"
	SessionSortNewest SessionSort = "newest"
	SessionSortPrice  SessionSort = "price"
)

func ParseSessionSort(value string) (SessionSort, error) {
	switch s := SessionSort(strings.ToLower(strings.TrimSpace(value))); s {
	case "":
		return SessionSortDate, nil
	case SessionSortDate, SessionSortNewest, SessionSortPrice:
		return s, nil
	}
	return "", ErrInvalidSort.WithMessage("invalid session sort %q", value)
}

// CampaignParams is the caller-facing campaign search.
type CampaignParams struct {
	Query  string
	System string
	Limit  int
	Offset int
	Sort   CampaignSort
}

// SessionParams is the caller-facing session search. Nil pointers and zero
// times mean no filter.
type SessionParams struct {
	Query             string
	System            string
	DateFrom          time.Time
	DateTo            time.Time
	MinPrice          *float64
	MaxPrice          *float64
	HasAvailableSlots bool
	OneShot           *bool
	Limit             int
	Offset            int
	Sort              SessionSort
}

// CampaignFilter is evaluated by the repository. Limit 0 disables paging.
type CampaignFilter struct {
	Visibility campaign.Visibility
	Query      string
	System     string
	Sort       CampaignSort
	Limit      int
	Offset     int
}

// SessionFilter is evaluated by the repository. Limit 0 disables paging.
type SessionFilter struct {
	Visibility campaign.Visibility
	Statuses   []session.Status
	Query      string
	System     string
	DateFrom   time.Time
	DateTo     time.Time
	MinPrice   *float64
	MaxPrice   *float64
	OneShot    *bool
	Sort       SessionSort
	Limit      int
	Offset     int
}

type CampaignHit struct {
	Campaign    campaign.Campaign
	MemberCount int64
}

// PlayerCount is a session's player tally. Seated counts every PLAYER that
// holds a seat, the same number JoinSession checks against MaxPlayers.
type PlayerCount struct {
	Confirmed int64
	Seated    int64
}

type SessionHit struct {
	Session          session.Session
	ConfirmedPlayers int64
	AvailableSlots   int
}

type Page[T any] struct {
	Items   []T
	Total   int64
	Limit   int
	Offset  int
	HasMore bool
}
