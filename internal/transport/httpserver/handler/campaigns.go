package handler

import (
	"net/http"
	"strings"
	"time"

	"quest-scheduler-go/internal/domain/access"
	campaigndomain "quest-scheduler-go/internal/domain/campaign"
)

type createCampaignRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	System      string `json:"system"`
	Visibility  string `json:"visibility"`
}

type updateCampaignRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	System      *string `json:"system"`
	Visibility  *string `json:"visibility"`
}

type joinByCodeRequest struct {
	Code string `json:"code"`
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type updateMemberRoleRequest struct {
	Role string `json:"role"`
}

type submitJoinRequestRequest struct {
	Message string `json:"message"`
}

type reviewJoinRequestRequest struct {
	Role string `json:"role"`
}

type campaignResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	System      string    `json:"system"`
	Visibility  string    `json:"visibility"`
	InviteCode  *string   `json:"invite_code,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type campaignDetailsResponse struct {
	Campaign        campaignResponse      `json:"campaign"`
	ViewerRole      string                `json:"viewer_role"`
	MemberCount     int64                 `json:"member_count"`
	PendingRequests []joinRequestResponse `json:"pending_requests,omitempty"`
}

type membershipResponse struct {
	Campaign campaignResponse `json:"campaign"`
	Role     string           `json:"role"`
}

type memberResponse struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	UserID     string    `json:"user_id"`
	Role       string    `json:"role"`
	JoinedAt   time.Time `json:"joined_at"`
}

type joinRequestResponse struct {
	ID         string     `json:"id"`
	CampaignID string     `json:"campaign_id"`
	UserID     string     `json:"user_id"`
	Status     string     `json:"status"`
	Message    string     `json:"message"`
	ReviewedAt *time.Time `json:"reviewed_at"`
	ReviewedBy *string    `json:"reviewed_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

type joinOutcomeResponse struct {
	Joined  bool                 `json:"joined"`
	Member  *memberResponse      `json:"member,omitempty"`
	Request *joinRequestResponse `json:"request,omitempty"`
}

type inviteCodeResponse struct {
	InviteCode string `json:"invite_code"`
}

func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.Campaigns.CreateCampaign(r.Context(), campaigndomain.CreateCampaignInput{
		OwnerID:     userID,
		Title:       req.Title,
		Description: req.Description,
		System:      req.System,
		Visibility:  campaigndomain.Visibility(strings.ToUpper(strings.TrimSpace(req.Visibility))),
	})
	if err != nil {
		h.fail(w, "campaigns.create", err, "user_id", userID)
		return
	}

	writeJSON(w, http.StatusCreated, toCampaignResponse(result))
}

func (h *Handlers) ListMyCampaigns(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	filter, err := campaigndomain.ParseRoleFilter(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("role"))))
	if err != nil {
		h.fail(w, "campaigns.list_mine", err, "user_id", userID)
		return
	}

	memberships, err := h.Campaigns.ListMyCampaigns(r.Context(), userID, filter)
	if err != nil {
		h.fail(w, "campaigns.list_mine", err, "user_id", userID)
		return
	}

	response := make([]membershipResponse, 0, len(memberships))
	for _, membership := range memberships {
		response = append(response, membershipResponse{
			Campaign: toCampaignResponse(&membership.Campaign),
			Role:     membership.Role.String(),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := pathParam(r, "id")
	viewer := viewerID(r)

	details, err := h.Campaigns.GetCampaign(r.Context(), campaignID, viewer)
	if err != nil {
		h.fail(w, "campaigns.get", err, "campaign_id", campaignID, "viewer_id", viewer)
		return
	}

	response := campaignDetailsResponse{
		Campaign:    toCampaignResponse(&details.Campaign),
		ViewerRole:  details.ViewerRole.String(),
		MemberCount: details.MemberCount,
	}
	for _, request := range details.PendingRequests {
		response.PendingRequests = append(response.PendingRequests, toJoinRequestResponse(&request))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var req updateCampaignRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	campaignID := pathParam(r, "id")

	input := campaigndomain.UpdateCampaignInput{
		CampaignID:   campaignID,
		ActingUserID: userID,
		Title:        req.Title,
		Description:  req.Description,
		System:       req.System,
	}
	if req.Visibility != nil {
		visibility := campaigndomain.Visibility(strings.ToUpper(strings.TrimSpace(*req.Visibility)))
		input.Visibility = &visibility
	}

	result, err := h.Campaigns.UpdateCampaign(r.Context(), input)
	if err != nil {
		h.fail(w, "campaigns.update", err, "campaign_id", campaignID, "user_id", userID)
		return
	}
	writeJSON(w, http.StatusOK, toCampaignResponse(result))
}

func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	campaignID := pathParam(r, "id")

	if err := h.Campaigns.DeleteCampaign(r.Context(), campaignID, userID); err != nil {
		h.fail(w, "campaigns.delete", err, "campaign_id", campaignID, "user_id", userID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListCampaignMembers(w http.ResponseWriter, r *http.Request) {
	campaignID := pathParam(r, "id")
	viewer := viewerID(r)

	members, err := h.Campaigns.ListMembers(r.Context(), campaignID, viewer)
	if err != nil {
		h.fail(w, "campaigns.list_members", err, "campaign_id", campaignID, "viewer_id", viewer)
		return
	}

	response := make([]memberResponse, 0, len(members))
	for _, member := range members {
		response = append(response, toMemberResponse(&member))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) AddCampaignMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		invalidRequest(w, "user_id is required")
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	campaignID := pathParam(r, "id")

	role := access.RolePlayer
	if req.Role != "" {
		role = access.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	}

	member, err := h.Campaigns.AddMember(r.Context(), campaignID, userID, req.UserID, role)
	if err != nil {
		h.fail(w, "campaigns.add_member", err, "campaign_id", campaignID, "actor_id", userID, "member_id", req.UserID)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberResponse(member))
}

func (h *Handlers) RemoveCampaignMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	campaignID := pathParam(r, "id")
	memberID := pathParam(r, "user_id")
	if memberID == "" {
		invalidRequest(w, "user_id is required")
		return
	}

	if err := h.Campaigns.RemoveMember(r.Context(), campaignID, userID, memberID); err != nil {
		h.fail(w, "campaigns.remove_member", err, "campaign_id", campaignID, "actor_id", userID, "member_id", memberID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) UpdateCampaignMemberRole(w http.ResponseWriter, r *http.Request) {
	var req updateMemberRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	campaignID := pathParam(r, "id")
	memberID := pathParam(r, "user_id")
	role := access.Role(strings.ToUpper(strings.TrimSpace(req.Role)))

	member, err := h.Campaigns.UpdateMemberRole(r.Context(), campaignID, userID, memberID, role)
	if err != nil {
		h.fail(w, "campaigns.update_member_role", err, "campaign_id", campaignID, "actor_id", userID, "member_id", memberID, "role", req.Role)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

func (h *Handlers) LeaveCampaign(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	campaignID := pathParam(r, "id")

	if err := h.Campaigns.LeaveCampaign(r.Context(), campaignID, userID); err != nil {
		h.fail(w, "campaigns.leave", err, "campaign_id", campaignID, "user_id", userID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) RegenerateInviteCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	campaignID := pathParam(r, "id")

	code, err := h.Campaigns.RegenerateInviteCode(r.Context(), campaignID, userID)
	if err != nil {
		h.fail(w, "campaigns.regenerate_invite", err, "campaign_id", campaignID, "user_id", userID)
		return
	}
	writeJSON(w, http.StatusOK, inviteCodeResponse{InviteCode: code})
}

func (h *Handlers) JoinCampaignByCode(w http.ResponseWriter, r *http.Request) {
	var req joinByCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		invalidRequest(w, "code is required")
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	member, err := h.Campaigns.JoinByInviteCode(r.Context(), req.Code, userID)
	if err != nil {
		h.fail(w, "campaigns.join_by_code", err, "user_id", userID)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

func (h *Handlers) SubmitJoinRequest(w http.ResponseWriter, r *http.Request) {
	var req submitJoinRequestRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	campaignID := pathParam(r, "id")

	outcome, err := h.Campaigns.SubmitJoinRequest(r.Context(), campaignID, userID, req.Message)
	if err != nil {
		h.fail(w, "join_requests.submit", err, "campaign_id", campaignID, "user_id", userID)
		return
	}

	response := joinOutcomeResponse{Joined: outcome.Joined()}
	status := http.StatusAccepted
	if outcome.Member != nil {
		member := toMemberResponse(outcome.Member)
		response.Member = &member
		status = http.StatusCreated
	}
	if outcome.Request != nil {
		request := toJoinRequestResponse(outcome.Request)
		response.Request = &request
	}
	writeJSON(w, status, response)
}

func (h *Handlers) ListJoinRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	campaignID := pathParam(r, "id")
	status := campaigndomain.JoinRequestStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))

	requests, err := h.Campaigns.ListJoinRequests(r.Context(), campaignID, userID, status)
	if err != nil {
		h.fail(w, "join_requests.list", err, "campaign_id", campaignID, "user_id", userID)
		return
	}

	response := make([]joinRequestResponse, 0, len(requests))
	for _, request := range requests {
		response = append(response, toJoinRequestResponse(&request))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) ApproveJoinRequest(w http.ResponseWriter, r *http.Request) {
	var req reviewJoinRequestRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	requestID := pathParam(r, "id")
	role := access.Role(strings.ToUpper(strings.TrimSpace(req.Role)))

	member, err := h.Campaigns.ApproveJoinRequest(r.Context(), requestID, userID, role)
	if err != nil {
		h.fail(w, "join_requests.approve", err, "request_id", requestID, "user_id", userID)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

func (h *Handlers) RejectJoinRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	requestID := pathParam(r, "id")

	request, err := h.Campaigns.RejectJoinRequest(r.Context(), requestID, userID)
	if err != nil {
		h.fail(w, "join_requests.reject", err, "request_id", requestID, "user_id", userID)
		return
	}
	writeJSON(w, http.StatusOK, toJoinRequestResponse(request))
}

func toCampaignResponse(c *campaigndomain.Campaign) campaignResponse {
	return campaignResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		System:      c.System,
		Visibility:  string(c.Visibility),
		InviteCode:  c.InviteCode,
		OwnerID:     c.OwnerID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toMemberResponse(m *campaigndomain.Member) memberResponse {
	return memberResponse{
		ID:         m.ID,
		CampaignID: m.CampaignID,
		UserID:     m.UserID,
		Role:       string(m.Role),
		JoinedAt:   m.JoinedAt,
	}
}

func toJoinRequestResponse(r *campaigndomain.JoinRequest) joinRequestResponse {
	return joinRequestResponse{
		ID:         r.ID,
		CampaignID: r.CampaignID,
		UserID:     r.UserID,
		Status:     string(r.Status),
		Message:    r.Message,
		ReviewedAt: r.ReviewedAt,
		ReviewedBy: r.ReviewedBy,
		CreatedAt:  r.CreatedAt,
	}
}
