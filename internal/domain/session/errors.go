package session

import "quest-scheduler-go/internal/domain/apperr"

var (
	ErrSessionNotFound     = apperr.New(apperr.KindNotFound, "session_not_found", "session not found")
	ErrParticipantNotFound = apperr.New(apperr.KindNotFound, "participant_not_found", "participant not found")

	ErrSessionAccessDenied = apperr.New(apperr.KindAccessDenied, "session_access_denied", "session is private")
	ErrNotGM               = apperr.New(apperr.KindAccessDenied, "not_session_gm", "only the session GM can do this")

	ErrSessionTerminal     = apperr.New(apperr.KindInvalidState, "session_terminal", "session is already finished or canceled")
	ErrSessionNotJoinable  = apperr.New(apperr.KindInvalidState, "session_not_joinable", "session is not open for joining")
	ErrSessionStarted      = apperr.New(apperr.KindInvalidState, "session_already_started", "session start time has passed")
	ErrSessionInProgress   = apperr.New(apperr.KindInvalidState, "session_in_progress", "cannot leave a session in progress")
	ErrGMCannotLeave       = apperr.New(apperr.KindInvalidState, "gm_cannot_leave", "the GM must cancel or delete the session instead of leaving")
	ErrCannotRemoveGM      = apperr.New(apperr.KindInvalidState, "cannot_remove_gm", "the GM cannot be removed from the session")
	ErrInvalidTransition   = apperr.New(apperr.KindInvalidState, "invalid_status_transition", "invalid session status transition")
	ErrStatusNotAllowed    = apperr.New(apperr.KindInvalidState, "participant_status_not_allowed", "participant status not allowed for the session status")
	ErrCapacityBelowRoster = apperr.New(apperr.KindInvalidState, "max_players_below_roster", "max players cannot be lower than the current number of players")

	ErrSessionFull = apperr.New(apperr.KindCapacityExceeded, "session_full", "session is full")

	ErrAlreadyJoined = apperr.New(apperr.KindDuplicate, "already_joined", "already joined this session")

	ErrTitleRequired            = apperr.New(apperr.KindValidation, "title_required", "title is required")
	ErrInvalidStatus            = apperr.New(apperr.KindValidation, "invalid_status", "invalid session status")
	ErrInvalidParticipantStatus = apperr.New(apperr.KindValidation, "invalid_participant_status", "invalid participant status")
	ErrInvalidSchedule          = apperr.New(apperr.KindValidation, "invalid_schedule", "invalid session date or duration")
	ErrInvalidCapacity          = apperr.New(apperr.KindValidation, "invalid_max_players", "max players must be between 1 and 100")
	ErrInvalidPrice             = apperr.New(apperr.KindValidation, "invalid_price", "price must not be negative")
	ErrInvalidVisibility        = apperr.New(apperr.KindValidation, "invalid_visibility", "invalid visibility")
	ErrInvalidRecurrence        = apperr.New(apperr.KindValidation, "invalid_recurrence", "invalid recurrence")
)
