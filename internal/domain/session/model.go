package session

import (
	"time"

	"quest-scheduler-go/internal/domain/access"
	"quest-scheduler-go/internal/domain/campaign"
)

type Status string

const (
	StatusPlanned  Status = "PLANNED"
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
	StatusCanceled Status = "CANCELED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusActive, StatusFinished, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further status change is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinished, StatusCanceled:
		return true
	case StatusPlanned, StatusActive:
		return false
	}
	return false
}

func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if !s.Valid() {
		return "", ErrInvalidStatus.WithMessage("invalid session status %q", value)
	}
	return s, nil
}

// CanAdvance reports whether from -> to is a legal forward progression.
// Cancellation is a separate operation and is not covered here.
func CanAdvance(from, to Status) bool {
	switch from {
	case StatusPlanned:
		return to == StatusActive || to == StatusFinished
	case StatusActive:
		return to == StatusFinished
	case StatusFinished, StatusCanceled:
		return false
	}
	return false
}

type ParticipantStatus string

const (
	ParticipantPending   ParticipantStatus = "PENDING"
	ParticipantConfirmed ParticipantStatus = "CONFIRMED"
	ParticipantDeclined  ParticipantStatus = "DECLINED"
	ParticipantAttended  ParticipantStatus = "ATTENDED"
	ParticipantNoShow    ParticipantStatus = "NO_SHOW"
)

func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantPending, ParticipantConfirmed, ParticipantDeclined, ParticipantAttended, ParticipantNoShow:
		return true
	}
	return false
}

// IsResult reports statuses that record what happened at a finished game.
func (s ParticipantStatus) IsResult() bool {
	return s == ParticipantAttended || s == ParticipantNoShow
}

// IsPlanning reports statuses that only make sense before a game is over.
func (s ParticipantStatus) IsPlanning() bool {
	return s == ParticipantPending || s == ParticipantConfirmed
}

func ParseParticipantStatus(value string) (ParticipantStatus, error) {
	s := ParticipantStatus(value)
	if !s.Valid() {
		return "", ErrInvalidParticipantStatus.WithMessage("invalid participant status %q", value)
	}
	return s, nil
}

type Session struct {
	ID          string              `gorm:"type:uuid;primaryKey"`
	Title       string              `gorm:"not null"`
	Description string              `gorm:"not null;default:''"`
	Date        time.Time           `gorm:"not null;index"`
	Duration    int                 `gorm:"not null"`
	MaxPlayers  int                 `gorm:"not null"`
	Price       float64             `gorm:"type:numeric(10,2);not null;default:0"`
	Status      Status              `gorm:"type:varchar(16);not null;index"`
	Visibility  campaign.Visibility `gorm:"type:varchar(16);not null"`
	CampaignID  *string             `gorm:"type:uuid;index"`
	CreatorID   string              `gorm:"not null;index"`
	SeriesID    *string             `gorm:"type:uuid;index"`
	CreatedAt   time.Time           `gorm:"autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime"`
}

// EndsAt is the instant the session is scheduled to finish.
func (s Session) EndsAt() time.Time {
	return s.Date.Add(time.Duration(s.Duration) * time.Minute)
}

func (s Session) IsOneShot() bool {
	return s.CampaignID == nil
}

type Participant struct {
	ID        string            `gorm:"type:uuid;primaryKey"`
	SessionID string            `gorm:"type:uuid;not null;uniqueIndex:idx_session_participants_pair"`
	UserID    string            `gorm:"not null;uniqueIndex:idx_session_participants_pair"`
	Role      access.Role       `gorm:"type:varchar(16);not null"`
	Status    ParticipantStatus `gorm:"type:varchar(16);not null"`
	IsGuest   bool              `gorm:"not null;default:false"`
	JoinedAt  time.Time         `gorm:"autoCreateTime"`
}

func (Participant) TableName() string { return "session_participants" }

// HoldsSeat reports whether the participant counts against MaxPlayers.
// The GM never does, and a DECLINED player gives the seat back.
func (p Participant) HoldsSeat() bool {
	return p.Role == access.RolePlayer && p.Status != ParticipantDeclined
}

type Frequency string

const (
	FrequencyWeekly   Frequency = "WEEKLY"
	FrequencyBiweekly Frequency = "BIWEEKLY"
	FrequencyMonthly  Frequency = "MONTHLY"
)

const (
	minOccurrences = 2
	maxOccurrences = 26
)

// Recurrence expands one session into Count occurrences.
type Recurrence struct {
	Frequency Frequency
	Count     int
}

func (r Recurrence) validate() error {
	switch r.Frequency {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
	default:
		return ErrInvalidRecurrence.WithMessage("invalid recurrence frequency %q", r.Frequency)
	}
	if r.Count < minOccurrences || r.Count > maxOccurrences {
		return ErrInvalidRecurrence.WithMessage("recurrence count must be between %d and %d", minOccurrences, maxOccurrences)
	}
	return nil
}

// occurrence returns the start of the i-th occurrence, counting from zero.
func (r Recurrence) occurrence(first time.Time, i int) time.Time {
	switch r.Frequency {
	case FrequencyBiweekly:
		return first.AddDate(0, 0, 14*i)
	case FrequencyMonthly:
		return first.AddDate(0, i, 0)
	case FrequencyWeekly:
		return first.AddDate(0, 0, 7*i)
	}
	return first
}

type CreateSessionInput struct {
	CreatorID   string
	Title       string
	Description string
	Date        time.Time
	Duration    int
	MaxPlayers  int
	Price       float64
	Visibility  campaign.Visibility
	CampaignID  *string
}

type UpdateSessionInput struct {
	SessionID    string
	ActingUserID string
	Title        *string
	Description  *string
	Date         *time.Time
	Duration     *int
	MaxPlayers   *int
	Price        *float64
	Visibility   *campaign.Visibility
	Status       *Status
}

// ListFilter narrows ListMySessions. Zero values mean no filter.
type ListFilter struct {
	Status Status
	Role   access.Role
}

// Attendance is a session seen from one of its participants.
type Attendance struct {
	Session     Session
	Participant Participant
}

type Details struct {
	Session        Session
	ViewerRole     access.Role
	Participants   []Participant
	PlayerCount    int
	AvailableSlots int
}

// Advanced is the result of one AdvanceStatuses pass.
type Advanced struct {
	Started  int
	Finished int
}
