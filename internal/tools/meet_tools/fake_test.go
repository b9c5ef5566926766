package meet_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/meetmcp/internal/calendar"
	"github.com/teemow/meetmcp/internal/google"
	"github.com/teemow/meetmcp/internal/server"
)

// calendarAPI fakes the primary calendar of the Calendar v3 REST API.
type calendarAPI struct {
	mu       sync.Mutex
	events   []*gcal.Event
	nextID   int
	requests int
	failWith int
}

func (f *calendarAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /calendars/{cal}/events", f.list)
	mux.HandleFunc("POST /calendars/{cal}/events", f.insert)
	mux.HandleFunc("GET /calendars/{cal}/events/{id}", f.get)
	mux.HandleFunc("PUT /calendars/{cal}/events/{id}", f.update)
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", f.delete)
	mux.HandleFunc("POST /freeBusy", f.freeBusy)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests++
		failWith := f.failWith
		f.mu.Unlock()
		if failWith != 0 {
			writeAPIError(w, failWith, http.StatusText(failWith))
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (f *calendarAPI) add(e *gcal.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *calendarAPI) event(id string) *gcal.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Id == id {
			return e
		}
	}
	return nil
}

func (f *calendarAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *calendarAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *calendarAPI) setFailure(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = code
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

func eventWindow(e *gcal.Event) (time.Time, time.Time) {
	start, _ := time.Parse(time.RFC3339, e.Start.DateTime)
	end, _ := time.Parse(time.RFC3339, e.End.DateTime)
	return start, end
}

func (f *calendarAPI) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := r.URL.Query()
	timeMin, _ := time.Parse(time.RFC3339, q.Get("timeMin"))
	timeMax, _ := time.Parse(time.RFC3339, q.Get("timeMax"))

	var items []*gcal.Event
	for _, e := range f.events {
		start, end := eventWindow(e)
		if !timeMin.IsZero() && !end.After(timeMin) {
			continue
		}
		if !timeMax.IsZero() && !start.Before(timeMax) {
			continue
		}
		items = append(items, e)
	}
	writeJSON(w, &gcal.Events{Items: items})
}

func (f *calendarAPI) get(w http.ResponseWriter, r *http.Request) {
	e := f.event(r.PathValue("id"))
	if e == nil {
		writeAPIError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, e)
}

func (f *calendarAPI) insert(w http.ResponseWriter, r *http.Request) {
	var e gcal.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	e.Id = fmt.Sprintf("created%d", f.nextID)
	e.Status = "confirmed"
	if e.ConferenceData != nil && e.ConferenceData.CreateRequest != nil {
		e.ConferenceData = &gcal.ConferenceData{
			ConferenceId: "abc-defg-hij",
			EntryPoints: []*gcal.EntryPoint{
				{EntryPointType: "video", Uri: "https://meet.google.com/abc-defg-hij"},
			},
		}
	}
	f.events = append(f.events, &e)
	writeJSON(w, &e)
}

func (f *calendarAPI) update(w http.ResponseWriter, r *http.Request) {
	var e gcal.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i, existing := range f.events {
		if existing.Id == r.PathValue("id") {
			e.Id = existing.Id
			f.events[i] = &e
			writeJSON(w, &e)
			return
		}
	}
	writeAPIError(w, http.StatusNotFound, "Not Found")
}

func (f *calendarAPI) delete(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, e := range f.events {
		if e.Id == r.PathValue("id") {
			f.events = append(f.events[:i], f.events[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeAPIError(w, http.StatusNotFound, "Not Found")
}

func (f *calendarAPI) freeBusy(w http.ResponseWriter, r *http.Request) {
	var req gcal.FreeBusyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	resp := &gcal.FreeBusyResponse{Calendars: make(map[string]gcal.FreeBusyCalendar)}
	for _, item := range req.Items {
		if item.Id != calendar.PrimaryCalendar {
			resp.Calendars[item.Id] = gcal.FreeBusyCalendar{
				Errors: []*gcal.Error{{Domain: "global", Reason: "notFound"}},
			}
			continue
		}
		var busy []*gcal.TimePeriod
		for _, e := range f.events {
			busy = append(busy, &gcal.TimePeriod{Start: e.Start.DateTime, End: e.End.DateTime})
		}
		resp.Calendars[item.Id] = gcal.FreeBusyCalendar{Busy: busy}
	}
	writeJSON(w, resp)
}

func meetEvent(id, summary, start, end string) *gcal.Event {
	return &gcal.Event{
		Id:      id,
		Summary: summary,
		Status:  "confirmed",
		Start:   &gcal.EventDateTime{DateTime: start},
		End:     &gcal.EventDateTime{DateTime: end},
		Attendees: []*gcal.EventAttendee{
			{Email: "a@example.com", ResponseStatus: "accepted"},
		},
		ConferenceData: &gcal.ConferenceData{
			ConferenceId: "conf-" + id,
			EntryPoints: []*gcal.EntryPoint{
				{EntryPointType: "video", Uri: "https://meet.google.com/" + id},
			},
		},
	}
}

func plainEvent(id, summary, start, end string) *gcal.Event {
	e := meetEvent(id, summary, start, end)
	e.ConferenceData = nil
	return e
}

type failingAuthorizer struct {
	calls int
}

func (a *failingAuthorizer) Run(context.Context, bool) (*google.CredentialBundle, error) {
	a.calls++
	return nil, fmt.Errorf("authorization timed out")
}

type harness struct {
	api        *calendarAPI
	sc         *server.ServerContext
	mcp        *mcpserver.MCPServer
	authorizer *failingAuthorizer
	builds     int
}

// newHarness registers the tools against a fake Calendar API. When
// authenticated is false no token is stored and authorization fails.
func newHarness(t *testing.T, readOnly, authenticated bool) *harness {
	t.Helper()

	h := &harness{api: &calendarAPI{}, authorizer: &failingAuthorizer{}}
	srv := httptest.NewServer(h.api.handler())
	t.Cleanup(srv.Close)

	store := google.NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	if authenticated {
		require.NoError(t, store.Save(&google.CredentialBundle{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiryDate:   time.Now().Add(time.Hour).UnixMilli(),
		}))
	}

	factory := func(ctx context.Context, _ oauth2.TokenSource) (*calendar.Client, error) {
		h.builds++
		svc, err := gcal.NewService(ctx, option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
		if err != nil {
			return nil, err
		}
		return calendar.NewFromService(svc), nil
	}

	sc, err := server.NewServerContext(context.Background(), server.Config{
		Registration: &google.ClientRegistration{ClientID: "client", RedirectURIs: []string{"http://localhost"}},
		Store:        store,
		Authorizer:   h.authorizer,
		ReadOnly:     readOnly,
	}, server.WithClientFactory(factory))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	h.sc = sc

	h.mcp = mcpserver.NewMCPServer("meetmcp-test", "0.0.0", mcpserver.WithToolCapabilities(false))
	require.NoError(t, RegisterMeetTools(h.mcp, sc, readOnly))
	return h
}

// call invokes a registered tool through its instrumented handler.
func (h *harness) call(t *testing.T, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool, ok := h.mcp.ListTools()[name]
	require.True(t, ok, "tool %s not registered", name)

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "handlers report failures as tool errors")
	require.NotNil(t, result)
	return result
}
