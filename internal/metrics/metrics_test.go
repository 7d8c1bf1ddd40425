package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestInstrumentHandlerLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil))
	}

	body := scrape(t)
	if !strings.Contains(body, `quest_scheduler_http_requests_total{method="GET",route="/api/sessions/{id}",status="404"}`) {
		t.Fatalf("expected request counter labelled by route pattern")
	}
	if strings.Contains(body, `route="/api/sessions/a"`) {
		t.Fatalf("raw path leaked into labels")
	}
}

func TestHandlerExposesDomainCounters(t *testing.T) {
	RecordStatusAdvances(2, 1)
	RecordNotification("session_canceled", true)

	body := scrape(t)
	for _, want := range []string{
		`quest_scheduler_sessions_status_advances_total{to="ACTIVE"}`,
		`quest_scheduler_notifications_published_total{event="session_canceled",success="true"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %s", want)
		}
	}
}

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
	return rec.Body.String()
}
