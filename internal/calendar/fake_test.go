package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// fakeCalendarAPI serves the subset of the Calendar v3 REST API the client uses.
type fakeCalendarAPI struct {
	mu        sync.Mutex
	events    map[string][]*calendar.Event // calendar id -> events
	deleted   map[string]bool
	nextID    int
	requests  []*http.Request
	queries   []url.Values
	failWith  int
	freeBusy  map[string]*calendar.FreeBusyCalendar
	lastQuery *calendar.FreeBusyRequest
}

func newFakeCalendarAPI() *fakeCalendarAPI {
	return &fakeCalendarAPI{
		events:   make(map[string][]*calendar.Event),
		deleted:  make(map[string]bool),
		freeBusy: make(map[string]*calendar.FreeBusyCalendar),
	}
}

// start returns a Client talking to the fake.
func (f *fakeCalendarAPI) start(t *testing.T, opts ...Option) *Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /calendars/{cal}/events", f.list)
	mux.HandleFunc("POST /calendars/{cal}/events", f.insert)
	mux.HandleFunc("GET /calendars/{cal}/events/{id}", f.get)
	mux.HandleFunc("PUT /calendars/{cal}/events/{id}", f.update)
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", f.delete)
	mux.HandleFunc("POST /freeBusy", f.queryFreeBusy)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r)
		f.queries = append(f.queries, r.URL.Query())
		failWith := f.failWith
		f.mu.Unlock()

		if failWith != 0 {
			writeAPIError(w, failWith, http.StatusText(failWith))
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	svc, err := calendar.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return NewFromService(svc, opts...)
}

func (f *fakeCalendarAPI) add(calendarID string, event *calendar.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[calendarID] = append(f.events[calendarID], event)
}

func (f *fakeCalendarAPI) lastQueryValues() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func (f *fakeCalendarAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeCalendarAPI) find(calendarID, id string) (int, *calendar.Event) {
	for i, e := range f.events[calendarID] {
		if e.Id == id {
			return i, e
		}
	}
	return -1, nil
}

func (f *fakeCalendarAPI) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := r.URL.Query()
	var timeMin, timeMax time.Time
	if v := q.Get("timeMin"); v != "" {
		timeMin, _ = time.Parse(time.RFC3339, v)
	}
	if v := q.Get("timeMax"); v != "" {
		timeMax, _ = time.Parse(time.RFC3339, v)
	}

	var items []*calendar.Event
	for _, e := range f.events[r.PathValue("cal")] {
		span := eventTimeRange(e)
		if !timeMin.IsZero() && !span.End.After(timeMin) {
			continue
		}
		if !timeMax.IsZero() && !span.Start.Before(timeMax) {
			continue
		}
		items = append(items, e)
	}
	writeJSON(w, &calendar.Events{Items: items})
}

func (f *fakeCalendarAPI) get(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, e := f.find(r.PathValue("cal"), r.PathValue("id"))
	if e == nil {
		writeAPIError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, e)
}

func (f *fakeCalendarAPI) insert(w http.ResponseWriter, r *http.Request) {
	var e calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	e.Id = fmt.Sprintf("evt%d", f.nextID)
	e.Status = "confirmed"
	e.HtmlLink = "https://calendar.google.com/event?eid=" + e.Id
	if r.URL.Query().Get("conferenceDataVersion") == "1" && e.ConferenceData != nil && e.ConferenceData.CreateRequest != nil {
		e.ConferenceData = &calendar.ConferenceData{
			ConferenceId: "abc-defg-hij",
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: e.ConferenceData.CreateRequest.RequestId,
				Status:    &calendar.ConferenceRequestStatus{StatusCode: "success"},
			},
			EntryPoints: []*calendar.EntryPoint{
				{EntryPointType: "video", Uri: "https://meet.google.com/abc-defg-hij"},
				{EntryPointType: "phone", Uri: "tel:+1-555-0100", Label: "+1 555-0100", Pin: "123456", RegionCode: "US"},
			},
		}
	}
	f.events[r.PathValue("cal")] = append(f.events[r.PathValue("cal")], &e)
	writeJSON(w, &e)
}

func (f *fakeCalendarAPI) update(w http.ResponseWriter, r *http.Request) {
	var e calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cal, id := r.PathValue("cal"), r.PathValue("id")
	i, _ := f.find(cal, id)
	if i < 0 {
		writeAPIError(w, http.StatusNotFound, "Not Found")
		return
	}
	e.Id = id
	f.events[cal][i] = &e
	writeJSON(w, &e)
}

func (f *fakeCalendarAPI) delete(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cal, id := r.PathValue("cal"), r.PathValue("id")
	i, _ := f.find(cal, id)
	if i < 0 {
		if f.deleted[id] {
			writeAPIError(w, http.StatusGone, "Resource has been deleted")
			return
		}
		writeAPIError(w, http.StatusNotFound, "Not Found")
		return
	}
	f.events[cal] = append(f.events[cal][:i], f.events[cal][i+1:]...)
	f.deleted[id] = true
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeCalendarAPI) queryFreeBusy(w http.ResponseWriter, r *http.Request) {
	var req calendar.FreeBusyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastQuery = &req
	resp := &calendar.FreeBusyResponse{
		TimeMin:   req.TimeMin,
		TimeMax:   req.TimeMax,
		Calendars: make(map[string]calendar.FreeBusyCalendar),
	}
	for _, item := range req.Items {
		if cal, ok := f.freeBusy[item.Id]; ok {
			resp.Calendars[item.Id] = *cal
		} else {
			resp.Calendars[item.Id] = calendar.FreeBusyCalendar{
				Errors: []*calendar.Error{{Domain: "global", Reason: "notFound"}},
			}
		}
	}
	writeJSON(w, resp)
}

func timedEvent(id, summary, start, end string) *calendar.Event {
	return &calendar.Event{
		Id:      id,
		Summary: summary,
		Status:  "confirmed",
		Start:   &calendar.EventDateTime{DateTime: start},
		End:     &calendar.EventDateTime{DateTime: end},
	}
}

func conferenced(e *calendar.Event) *calendar.Event {
	e.ConferenceData = &calendar.ConferenceData{
		ConferenceId: "conf-" + e.Id,
		EntryPoints: []*calendar.EntryPoint{
			{EntryPointType: "video", Uri: "https://meet.google.com/" + e.Id},
		},
	}
	return e
}
