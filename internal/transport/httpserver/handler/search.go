package handler

import (
	"net/http"
	"strings"

	searchdomain "quest-scheduler-go/internal/domain/search"
)

type campaignHitResponse struct {
	campaignResponse
	MemberCount int64 `json:"member_count"`
}

type sessionHitResponse struct {
	sessionResponse
	ConfirmedPlayers int64 `json:"confirmed_players"`
	AvailableSlots   int   `json:"available_slots"`
}

type pageResponse[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

func (h *Handlers) SearchCampaigns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, offset, ok := pagingParams(w, r)
	if !ok {
		return
	}
	sort, err := searchdomain.ParseCampaignSort(query.Get("sort"))
	if err != nil {
		h.fail(w, "campaigns.search", err)
		return
	}

	page, err := h.Search.SearchCampaigns(r.Context(), searchdomain.CampaignParams{
		Query:  strings.TrimSpace(query.Get("q")),
		System: strings.TrimSpace(query.Get("system")),
		Limit:  limit,
		Offset: offset,
		Sort:   sort,
	})
	if err != nil {
		h.fail(w, "campaigns.search", err)
		return
	}

	items := make([]campaignHitResponse, 0, len(page.Items))
	for _, hit := range page.Items {
		items = append(items, campaignHitResponse{
			campaignResponse: toCampaignResponse(&hit.Campaign),
			MemberCount:      hit.MemberCount,
		})
	}
	writeJSON(w, http.StatusOK, toPageResponse(page, items))
}

func (h *Handlers) SearchSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, offset, ok := pagingParams(w, r)
	if !ok {
		return
	}
	sort, err := searchdomain.ParseSessionSort(query.Get("sort"))
	if err != nil {
		h.fail(w, "sessions.search", err)
		return
	}

	params := searchdomain.SessionParams{
		Query:  strings.TrimSpace(query.Get("q")),
		System: strings.TrimSpace(query.Get("system")),
		Limit:  limit,
		Offset: offset,
		Sort:   sort,
	}
	if params.DateFrom, err = parseTimeParam(query.Get("date_from"), false); err != nil {
		invalidRequest(w, "invalid date_from")
		return
	}
	if params.DateTo, err = parseTimeParam(query.Get("date_to"), true); err != nil {
		invalidRequest(w, "invalid date_to")
		return
	}
	if params.MinPrice, err = parseFloatParam(query.Get("min_price")); err != nil {
		invalidRequest(w, "invalid min_price")
		return
	}
	if params.MaxPrice, err = parseFloatParam(query.Get("max_price")); err != nil {
		invalidRequest(w, "invalid max_price")
		return
	}
	if params.OneShot, err = parseBoolParam(query.Get("one_shot")); err != nil {
		invalidRequest(w, "invalid one_shot")
		return
	}
	hasSlots, err := parseBoolParam(query.Get("has_available_slots"))
	if err != nil {
		invalidRequest(w, "invalid has_available_slots")
		return
	}
	params.HasAvailableSlots = hasSlots != nil && *hasSlots

	page, err := h.Search.SearchSessions(r.Context(), params)
	if err != nil {
		h.fail(w, "sessions.search", err)
		return
	}

	items := make([]sessionHitResponse, 0, len(page.Items))
	for _, hit := range page.Items {
		items = append(items, sessionHitResponse{
			sessionResponse:  toSessionResponse(&hit.Session),
			ConfirmedPlayers: hit.ConfirmedPlayers,
			AvailableSlots:   hit.AvailableSlots,
		})
	}
	writeJSON(w, http.StatusOK, toPageResponse(page, items))
}

func pagingParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	query := r.URL.Query()
	limit, err := parseIntParam(query.Get("limit"), searchdomain.DefaultLimit)
	if err != nil {
		invalidRequest(w, "invalid limit")
		return 0, 0, false
	}
	offset, err := parseIntParam(query.Get("offset"), 0)
	if err != nil {
		invalidRequest(w, "invalid offset")
		return 0, 0, false
	}
	return limit, offset, true
}

func toPageResponse[T, R any](page *searchdomain.Page[T], items []R) pageResponse[R] {
	return pageResponse[R]{
		Items:   items,
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: page.HasMore,
	}
}
