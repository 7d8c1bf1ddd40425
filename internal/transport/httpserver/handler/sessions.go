package handler

import (
	"net/http"
	"strings"
	"time"

	"quest-scheduler-go/internal/domain/access"
	campaigndomain "quest-scheduler-go/internal/domain/campaign"
	sessiondomain "quest-scheduler-go/internal/domain/session"
)

type recurrenceRequest struct {
	Frequency string `json:"frequency"`
	Count     int    `json:"count"`
}

type createSessionRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Date        time.Time          `json:"date"`
	Duration    int                `json:"duration"`
	MaxPlayers  int                `json:"max_players"`
	Price       float64            `json:"price"`
	Visibility  string             `json:"visibility"`
	CampaignID  *string            `json:"campaign_id"`
	Recurrence  *recurrenceRequest `json:"recurrence"`
}

type updateSessionRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Duration    *int       `json:"duration"`
	MaxPlayers  *int       `json:"max_players"`
	Price       *float64   `json:"price"`
	Visibility  *string    `json:"visibility"`
	Status      *string    `json:"status"`
}

type joinSessionRequest struct {
	IsGuest bool `json:"is_guest"`
}

type updateParticipantRequest struct {
	Status string `json:"status"`
}

type sessionResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Duration    int       `json:"duration"`
	MaxPlayers  int       `json:"max_players"`
	Price       float64   `json:"price"`
	Status      string    `json:"status"`
	Visibility  string    `json:"visibility"`
	CampaignID  *string   `json:"campaign_id"`
	CreatorID   string    `json:"creator_id"`
	SeriesID    *string   `json:"series_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type sessionDetailsResponse struct {
	Session        sessionResponse       `json:"session"`
	ViewerRole     string                `json:"viewer_role"`
	Participants   []participantResponse `json:"participants"`
	PlayerCount    int                   `json:"player_count"`
	AvailableSlots int                   `json:"available_slots"`
}

type participantResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	IsGuest   bool      `json:"is_guest"`
	JoinedAt  time.Time `json:"joined_at"`
}

type attendanceResponse struct {
	Session sessionResponse `json:"session"`
	Role    string          `json:"role"`
	Status  string          `json:"status"`
}

func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	input := sessiondomain.CreateSessionInput{
		CreatorID:   userID,
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Duration:    req.Duration,
		MaxPlayers:  req.MaxPlayers,
		Price:       req.Price,
		Visibility:  campaigndomain.Visibility(strings.ToUpper(strings.TrimSpace(req.Visibility))),
		CampaignID:  req.CampaignID,
	}

	if req.Recurrence == nil {
		created, err := h.Sessions.CreateSession(r.Context(), input)
		if err != nil {
			h.fail(w, "sessions.create", err, "user_id", userID)
			return
		}
		writeJSON(w, http.StatusCreated, toSessionResponse(created))
		return
	}

	series, err := h.Sessions.CreateRecurringSessions(r.Context(), input, sessiondomain.Recurrence{
		Frequency: sessiondomain.Frequency(strings.ToUpper(strings.TrimSpace(req.Recurrence.Frequency))),
		Count:     req.Recurrence.Count,
	})
	if err != nil {
		h.fail(w, "sessions.create_recurring", err, "user_id", userID)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponses(series))
}

func (h *Handlers) ListMySessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	filter := sessiondomain.ListFilter{
		Status: sessiondomain.Status(strings.ToUpper(strings.TrimSpace(query.Get("status")))),
		Role:   access.Role(strings.ToUpper(strings.TrimSpace(query.Get("role")))),
	}

	attendances, err := h.Sessions.ListMySessions(r.Context(), userID, filter)
	if err != nil {
		h.fail(w, "sessions.list_mine", err, "user_id", userID)
		return
	}

	response := make([]attendanceResponse, 0, len(attendances))
	for _, attendance := range attendances {
		response = append(response, attendanceResponse{
			Session: toSessionResponse(&attendance.Session),
			Role:    string(attendance.Participant.Role),
			Status:  string(attendance.Participant.Status),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) ListCampaignSessions(w http.ResponseWriter, r *http.Request) {
	campaignID := pathParam(r, "id")
	viewer := viewerID(r)

	sessions, err := h.Sessions.ListCampaignSessions(r.Context(), campaignID, viewer)
	if err != nil {
		h.fail(w, "sessions.list_campaign", err, "campaign_id", campaignID, "viewer_id", viewer)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponses(sessions))
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := pathParam(r, "id")
	viewer := viewerID(r)

	details, err := h.Sessions.GetSession(r.Context(), sessionID, viewer)
	if err != nil {
		h.fail(w, "sessions.get", err, "session_id", sessionID, "viewer_id", viewer)
		return
	}

	writeJSON(w, http.StatusOK, sessionDetailsResponse{
		Session:        toSessionResponse(&details.Session),
		ViewerRole:     details.ViewerRole.String(),
		Participants:   toParticipantResponses(details.Participants),
		PlayerCount:    details.PlayerCount,
		AvailableSlots: details.AvailableSlots,
	})
}

func (h *Handlers) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID := pathParam(r, "id")

	input := sessiondomain.UpdateSessionInput{
		SessionID:    sessionID,
		ActingUserID: userID,
		Title:        req.Title,
		Description:  req.Description,
		Date:         req.Date,
		Duration:     req.Duration,
		MaxPlayers:   req.MaxPlayers,
		Price:        req.Price,
	}
	if req.Visibility != nil {
		visibility := campaigndomain.Visibility(strings.ToUpper(strings.TrimSpace(*req.Visibility)))
		input.Visibility = &visibility
	}
	if req.Status != nil {
		status := sessiondomain.Status(strings.ToUpper(strings.TrimSpace(*req.Status)))
		input.Status = &status
	}

	updated, err := h.Sessions.UpdateSession(r.Context(), input)
	if err != nil {
		h.fail(w, "sessions.update", err, "session_id", sessionID, "user_id", userID)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(updated))
}

func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID := pathParam(r, "id")

	if err := h.Sessions.DeleteSession(r.Context(), sessionID, userID); err != nil {
		h.fail(w, "sessions.delete", err, "session_id", sessionID, "user_id", userID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CancelSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID := pathParam(r, "id")

	canceled, err := h.Sessions.CancelSession(r.Context(), sessionID, userID)
	if err != nil {
		h.fail(w, "sessions.cancel", err, "session_id", sessionID, "user_id", userID)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(canceled))
}

func (h *Handlers) JoinSession(w http.ResponseWriter, r *http.Request) {
	var req joinSessionRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID := pathParam(r, "id")

	participant, err := h.Sessions.JoinSession(r.Context(), sessionID, userID, req.IsGuest)
	if err != nil {
		h.fail(w, "sessions.join", err, "session_id", sessionID, "user_id", userID)
		return
	}
	writeJSON(w, http.StatusCreated, toParticipantResponse(participant))
}

func (h *Handlers) LeaveSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID := pathParam(r, "id")

	if err := h.Sessions.LeaveSession(r.Context(), sessionID, userID); err != nil {
		h.fail(w, "sessions.leave", err, "session_id", sessionID, "user_id", userID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListParticipants(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID := pathParam(r, "id")

	participants, err := h.Sessions.ListParticipants(r.Context(), sessionID, userID)
	if err != nil {
		h.fail(w, "sessions.list_participants", err, "session_id", sessionID, "user_id", userID)
		return
	}
	writeJSON(w, http.StatusOK, toParticipantResponses(participants))
}

func (h *Handlers) UpdateParticipantStatus(w http.ResponseWriter, r *http.Request) {
	var req updateParticipantRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID := pathParam(r, "id")
	targetID := pathParam(r, "user_id")

	status, err := sessiondomain.ParseParticipantStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err != nil {
		h.fail(w, "sessions.update_participant", err, "session_id", sessionID, "user_id", userID)
		return
	}

	participant, err := h.Sessions.UpdateParticipantStatus(r.Context(), sessionID, userID, targetID, status)
	if err != nil {
		h.fail(w, "sessions.update_participant", err, "session_id", sessionID, "actor_id", userID, "participant_id", targetID)
		return
	}
	writeJSON(w, http.StatusOK, toParticipantResponse(participant))
}

func (h *Handlers) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID := pathParam(r, "id")
	targetID := pathParam(r, "user_id")

	if err := h.Sessions.RemoveParticipant(r.Context(), sessionID, userID, targetID); err != nil {
		h.fail(w, "sessions.remove_participant", err, "session_id", sessionID, "actor_id", userID, "participant_id", targetID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toSessionResponse(s *sessiondomain.Session) sessionResponse {
	return sessionResponse{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Date:        s.Date,
		Duration:    s.Duration,
		MaxPlayers:  s.MaxPlayers,
		Price:       s.Price,
		Status:      string(s.Status),
		Visibility:  string(s.Visibility),
		CampaignID:  s.CampaignID,
		CreatorID:   s.CreatorID,
		SeriesID:    s.SeriesID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func toSessionResponses(sessions []sessiondomain.Session) []sessionResponse {
	response := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		response = append(response, toSessionResponse(&s))
	}
	return response
}

func toParticipantResponse(p *sessiondomain.Participant) participantResponse {
	return participantResponse{
		ID:        p.ID,
		SessionID: p.SessionID,
		UserID:    p.UserID,
		Role:      string(p.Role),
		Status:    string(p.Status),
		IsGuest:   p.IsGuest,
		JoinedAt:  p.JoinedAt,
	}
}

func toParticipantResponses(participants []sessiondomain.Participant) []participantResponse {
	response := make([]participantResponse, 0, len(participants))
	for _, p := range participants {
		response = append(response, toParticipantResponse(&p))
	}
	return response
}
