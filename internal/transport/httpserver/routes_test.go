package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quest-scheduler-go/internal/config"
	calendardomain "quest-scheduler-go/internal/domain/calendar"
	campaigndomain "quest-scheduler-go/internal/domain/campaign"
	"quest-scheduler-go/internal/domain/notify"
	searchdomain "quest-scheduler-go/internal/domain/search"
	sessiondomain "quest-scheduler-go/internal/domain/session"
	"quest-scheduler-go/internal/repository/inmemory"
	"quest-scheduler-go/internal/transport/httpserver/handler"
	"quest-scheduler-go/pkg/logger"
)

const testSecret = "routes-test-secret"

type harness struct {
	server   *httptest.Server
	notifier *notify.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := inmemory.NewStore()
	recorder := &notify.Recorder{}
	log := logger.Nop()

	campaigns := campaigndomain.NewService(inmemory.NewCampaignRepository(store),
		campaigndomain.WithNotifier(recorder), campaigndomain.WithLogger(log))
	sessions := sessiondomain.NewService(inmemory.NewSessionRepository(store),
		sessiondomain.WithNotifier(recorder), sessiondomain.WithLogger(log))
	calendar := calendardomain.NewService(inmemory.NewCalendarRepository(store))
	search := searchdomain.NewService(inmemory.NewSearchRepository(store))

	cfg := config.Config{
		RequestTimeout: 5 * time.Second,
		Auth:           config.AuthConfig{JWTSecret: testSecret},
	}
	router := NewRouter(cfg, handler.New(campaigns, sessions, calendar, search, log), nil, log)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &harness{server: server, notifier: recorder}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (h *harness) do(t *testing.T, method, path, userID string, payload any) (int, map[string]any) {
	t.Helper()
	status, body := h.raw(t, method, path, userID, payload)
	if len(bytes.TrimSpace(body)) == 0 {
		return status, nil
	}
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded), "body: %s", body)
	return status, decoded
}

func (h *harness) list(t *testing.T, method, path, userID string) (int, []map[string]any) {
	t.Helper()
	status, body := h.raw(t, method, path, userID, nil)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded), "body: %s", body)
	return status, decoded
}

func (h *harness) raw(t *testing.T, method, path, userID string, payload any) (int, []byte) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, h.server.URL+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	resp, err := h.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out.Bytes()
}

func errorCode(body map[string]any) string {
	envelope, _ := body["error"].(map[string]any)
	code, _ := envelope["code"].(string)
	return code
}

func futureDate(days int) string {
	return time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour).Truncate(time.Minute).Format(time.RFC3339)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	status, body := h.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)
	status, body := h.do(t, http.MethodPost, "/api/campaigns", "", map[string]any{"title": "Saga"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid_token", errorCode(body))

	status, body = h.do(t, http.MethodGet, "/api/auth/me", "alice", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["id"])
}

func TestInvalidJSONBody(t *testing.T) {
	h := newHarness(t)
	status, body := h.do(t, http.MethodPost, "/api/campaigns", "alice", map[string]any{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_json", errorCode(body))
}

func TestPrivateCampaignJoinRequestFlow(t *testing.T) {
	h := newHarness(t)

	status, created := h.do(t, http.MethodPost, "/api/campaigns", "owner", map[string]any{
		"title": "Curse of Strahd", "system": "D&D 5e", "visibility": "private",
	})
	require.Equal(t, http.StatusCreated, status)
	campaignID := created["id"].(string)
	assert.Equal(t, "PRIVATE", created["visibility"])

	status, body := h.do(t, http.MethodGet, "/api/campaigns/"+campaignID, "", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, campaigndomain.ErrCampaignAccessDenied.Code, errorCode(body))

	status, outcome := h.do(t, http.MethodPost, "/api/campaigns/"+campaignID+"/join-requests", "player", map[string]any{"message": "let me in"})
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, false, outcome["joined"])
	requestID := outcome["request"].(map[string]any)["id"].(string)
	require.Len(t, h.notifier.JoinRequests, 1)

	status, body = h.do(t, http.MethodPost, "/api/campaigns/"+campaignID+"/join-requests", "player", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, campaigndomain.ErrJoinRequestExists.Code, errorCode(body))

	status, body = h.do(t, http.MethodPost, "/api/join-requests/"+requestID+"/approve", "player", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, member := h.do(t, http.MethodPost, "/api/join-requests/"+requestID+"/approve", "owner", map[string]any{"role": "gm"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "GM", member["role"])

	status, details := h.do(t, http.MethodGet, "/api/campaigns/"+campaignID, "player", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "GM", details["viewer_role"])
	assert.EqualValues(t, 2, details["member_count"])

	status, mine := h.list(t, http.MethodGet, "/api/campaigns?role=member", "player")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, mine, 1)
	assert.Equal(t, "GM", mine[0]["role"])

	status, body = h.do(t, http.MethodDelete, "/api/campaigns/"+campaignID+"/members/owner", "player", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, campaigndomain.ErrCannotRemoveOwner.Code, errorCode(body))
}

func TestLinkOnlyInviteCode(t *testing.T) {
	h := newHarness(t)

	status, created := h.do(t, http.MethodPost, "/api/campaigns", "owner", map[string]any{
		"title": "Blades in the Dark", "visibility": "LINK_ONLY",
	})
	require.Equal(t, http.StatusCreated, status)
	campaignID := created["id"].(string)
	code, _ := created["invite_code"].(string)
	require.Len(t, code, 16)

	status, regenerated := h.do(t, http.MethodPost, "/api/campaigns/"+campaignID+"/invite-code", "owner", nil)
	require.Equal(t, http.StatusOK, status)
	newCode := regenerated["invite_code"].(string)
	assert.NotEqual(t, code, newCode)

	status, body := h.do(t, http.MethodPost, "/api/campaigns/join", "player", map[string]any{"code": code})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, campaigndomain.ErrInviteCodeNotFound.Code, errorCode(body))

	status, member := h.do(t, http.MethodPost, "/api/campaigns/join", "player", map[string]any{"code": newCode})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PLAYER", member["role"])

	status, details := h.do(t, http.MethodGet, "/api/campaigns/"+campaignID, "player", nil)
	require.Equal(t, http.StatusOK, status)
	_, hasCode := details["campaign"].(map[string]any)["invite_code"]
	assert.False(t, hasCode, "players must not see the invite code")
}

func TestSessionCapacityAndCancel(t *testing.T) {
	h := newHarness(t)

	status, created := h.do(t, http.MethodPost, "/api/sessions", "gm", map[string]any{
		"title": "One-shot", "date": futureDate(3), "max_players": 1, "price": 10,
	})
	require.Equal(t, http.StatusCreated, status)
	sessionID := created["id"].(string)
	assert.EqualValues(t, 180, created["duration"])

	status, joined := h.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/join", "p1", nil)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "CONFIRMED", joined["status"])

	status, body := h.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/join", "p2", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, sessiondomain.ErrSessionFull.Code, errorCode(body))

	status, body = h.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/join", "p1", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, sessiondomain.ErrAlreadyJoined.Code, errorCode(body))

	status, details := h.do(t, http.MethodGet, "/api/sessions/"+sessionID, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, details["player_count"])
	assert.EqualValues(t, 0, details["available_slots"])

	status, body = h.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/cancel", "p1", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, sessiondomain.ErrNotGM.Code, errorCode(body))

	status, canceled := h.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/cancel", "gm", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "CANCELED", canceled["status"])
	require.Len(t, h.notifier.Canceled, 1)
	assert.Equal(t, []string{"p1"}, h.notifier.Canceled[0].ParticipantIDs)
	require.Len(t, h.notifier.Refunds, 1)

	status, body = h.do(t, http.MethodPatch, "/api/sessions/"+sessionID, "gm", map[string]any{"status": "ACTIVE"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, sessiondomain.ErrSessionTerminal.Code, errorCode(body))
}

func TestRecurringSessionsAndMySessions(t *testing.T) {
	h := newHarness(t)

	status, raw := h.raw(t, http.MethodPost, "/api/sessions", "gm", map[string]any{
		"title": "Weekly", "date": futureDate(2), "max_players": 4,
		"recurrence": map[string]any{"frequency": "weekly", "count": 3},
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	var series []map[string]any
	require.NoError(t, json.Unmarshal(raw, &series))
	require.Len(t, series, 3)
	assert.Equal(t, series[0]["series_id"], series[2]["series_id"])

	status, mine := h.list(t, http.MethodGet, "/api/sessions?role=GM&status=planned", "gm")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, mine, 3)

	status, body := h.do(t, http.MethodGet, "/api/sessions?role=OWNER", "gm", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, errorCode(body))
}

func TestCalendarScopes(t *testing.T) {
	h := newHarness(t)

	date := time.Now().UTC().AddDate(0, 0, 2)
	status, _ := h.do(t, http.MethodPost, "/api/sessions", "gm", map[string]any{
		"title": "Public", "date": date.Format(time.RFC3339), "max_players": 4,
	})
	require.Equal(t, http.StatusCreated, status)
	status, _ = h.do(t, http.MethodPost, "/api/sessions", "gm", map[string]any{
		"title": "Secret", "date": date.Format(time.RFC3339), "max_players": 4, "visibility": "PRIVATE",
	})
	require.Equal(t, http.StatusCreated, status)

	path := fmt.Sprintf("/api/sessions/calendar?year=%d&month=%d", date.Year(), int(date.Month()))

	status, body := h.do(t, http.MethodGet, path+"&scope=user", "", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, calendardomain.ErrViewerRequired.Code, errorCode(body))

	status, month := h.do(t, http.MethodGet, path+"&scope=global", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, month["total"])

	status, month = h.do(t, http.MethodGet, path, "gm", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "MY", month["scope"])
	assert.EqualValues(t, 2, month["total"])

	status, day := h.do(t, http.MethodGet, "/api/sessions/calendar/day?scope=user&date="+date.Format("2006-01-02"), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PUBLIC", day["scope"])
	assert.Len(t, day["sessions"], 1)

	status, stats := h.do(t, http.MethodGet, "/api/sessions/calendar/stats?q=secret&month="+date.Format("2006-01"), "gm", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, stats["total"])
}

func TestSearchSessionsPaging(t *testing.T) {
	h := newHarness(t)
	for i := range 3 {
		status, _ := h.do(t, http.MethodPost, "/api/sessions", "gm", map[string]any{
			"title": fmt.Sprintf("Game %d", i), "date": futureDate(i + 1), "max_players": 2, "price": float64(i * 5),
		})
		require.Equal(t, http.StatusCreated, status)
	}

	status, page := h.do(t, http.MethodGet, "/api/sessions/search?limit=2&sort=date", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, page["total"])
	assert.Equal(t, true, page["has_more"])
	assert.Len(t, page["items"], 2)

	status, page = h.do(t, http.MethodGet, "/api/sessions/search?min_price=5", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, page["total"])

	status, body := h.do(t, http.MethodGet, "/api/sessions/search?min_price=10&max_price=1", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, searchdomain.ErrInvalidPriceRange.Code, errorCode(body))

	status, body = h.do(t, http.MethodGet, "/api/campaigns/search?sort=loudest", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, searchdomain.ErrInvalidSort.Code, errorCode(body))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodGet, "/api/health", "", nil)

	status, body := h.raw(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "quest_scheduler_http_requests_total")
}
