package handler

import (
	"net/http"
	"strings"
	"time"

	calendardomain "quest-scheduler-go/internal/domain/calendar"
)

type calendarMonthResponse struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Scope string         `json:"scope"`
	Days  map[string]int `json:"days"`
	Total int            `json:"total"`
}

type calendarDayResponse struct {
	Date     string            `json:"date"`
	Scope    string            `json:"scope"`
	Sessions []sessionResponse `json:"sessions"`
}

// GetCalendar defaults year and month to the current UTC month.
func (h *Handlers) GetCalendar(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	now := time.Now().UTC()
	year, err := parseIntParam(query.Get("year"), now.Year())
	if err != nil {
		invalidRequest(w, "invalid year")
		return
	}
	month, err := parseIntParam(query.Get("month"), int(now.Month()))
	if err != nil {
		invalidRequest(w, "invalid month")
		return
	}
	viewer := viewerID(r)

	result, err := h.Calendar.GetCalendar(r.Context(), viewer, year, month, query.Get("scope"))
	if err != nil {
		h.fail(w, "calendar.get", err, "viewer_id", viewer, "year", year, "month", month)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarMonthResponse(result))
}

func (h *Handlers) GetCalendarStats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters, ok := calendarFilters(w, r)
	if !ok {
		return
	}
	viewer := viewerID(r)
	month := strings.TrimSpace(query.Get("month"))
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}

	result, err := h.Calendar.GetCalendarStats(r.Context(), viewer, month, query.Get("scope"), filters)
	if err != nil {
		h.fail(w, "calendar.stats", err, "viewer_id", viewer, "month", month)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarMonthResponse(result))
}

func (h *Handlers) GetSessionsByDay(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	date := strings.TrimSpace(query.Get("date"))
	if date == "" {
		invalidRequest(w, "date is required")
		return
	}
	filters, ok := calendarFilters(w, r)
	if !ok {
		return
	}
	viewer := viewerID(r)

	result, err := h.Calendar.GetSessionsByDay(r.Context(), viewer, date, query.Get("scope"), filters)
	if err != nil {
		h.fail(w, "calendar.day", err, "viewer_id", viewer, "date", date)
		return
	}
	writeJSON(w, http.StatusOK, calendarDayResponse{
		Date:     result.Date,
		Scope:    string(result.Scope),
		Sessions: toSessionResponses(result.Sessions),
	})
}

func calendarFilters(w http.ResponseWriter, r *http.Request) (calendardomain.Filters, bool) {
	query := r.URL.Query()
	from, err := parseDateParam(query.Get("date_from"))
	if err != nil {
		invalidRequest(w, "invalid date_from")
		return calendardomain.Filters{}, false
	}
	to, err := parseDateParam(query.Get("date_to"))
	if err != nil {
		invalidRequest(w, "invalid date_to")
		return calendardomain.Filters{}, false
	}
	return calendardomain.Filters{
		System:   strings.TrimSpace(query.Get("system")),
		DateFrom: from,
		DateTo:   to,
		Query:    strings.TrimSpace(query.Get("q")),
	}, true
}

func toCalendarMonthResponse(m *calendardomain.Month) calendarMonthResponse {
	return calendarMonthResponse{
		Year:  m.Year,
		Month: int(m.Month),
		Scope: string(m.Scope),
		Days:  m.Days,
		Total: m.Total,
	}
}
