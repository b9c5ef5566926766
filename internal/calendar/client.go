package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/meetmcp/internal/instrumentation"
	"github.com/teemow/meetmcp/internal/logging"
)

const (
	// PrimaryCalendar is the operator's own calendar.
	PrimaryCalendar = "primary"

	// DefaultMaxResults is the page size of ListMeetings.
	DefaultMaxResults = 10

	sendUpdatesAll     = "all"
	conferenceTypeMeet = "hangoutsMeet"
	conflictPageSize   = 250
)

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records every API call.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClock overrides the clock used for ListMeetings defaults.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a Calendar client authorized by ts.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts ...Option) (*Client, error) {
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return NewFromService(svc, opts...), nil
}

// NewFromService wraps an existing service.
func NewFromService(svc *calendar.Service, opts ...Option) *Client {
	c := &Client{
		svc:    svc,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithComponent(c.logger, "calendar")
	return c
}

// NewRequestID returns a conference request id. ULIDs minted in the same
// millisecond still differ in their random component.
func NewRequestID() string {
	return ulid.Make().String()
}

// observe wraps one API call in a span and records its outcome.
func (c *Client) observe(ctx context.Context, operation, meetingID string, call func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, operation,
		attribute.String(instrumentation.SpanAttrMeetingID, meetingID))
	defer span.End()

	err := call(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
		c.logger.Debug("calendar call failed", logging.Operation(operation), logging.MeetingID(meetingID), logging.Err(err))
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, status, time.Since(start))
	return err
}

// ListMeetings returns upcoming events that carry conference data, ordered by
// start time.
func (c *Client) ListMeetings(ctx context.Context, opts ListOptions) ([]Meeting, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.TimeMin.IsZero() {
		opts.TimeMin = c.now()
	}

	var events *calendar.Events
	err := c.observe(ctx, instrumentation.OperationList, "", func(ctx context.Context) error {
		call := c.svc.Events.List(PrimaryCalendar).
			TimeMin(opts.TimeMin.Format(time.RFC3339)).
			MaxResults(opts.MaxResults).
			SingleEvents(true).
			OrderBy("startTime")
		if !opts.TimeMax.IsZero() {
			call = call.TimeMax(opts.TimeMax.Format(time.RFC3339))
		}

		var err error
		events, err = call.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, providerError("list meetings", err)
	}

	meetings := make([]Meeting, 0, len(events.Items))
	for _, event := range events.Items {
		if hasConference(event) {
			meetings = append(meetings, toMeeting(event))
		}
	}
	return meetings, nil
}

// GetMeeting fetches one event. An event without conference data yields
// ErrNotConferenced.
func (c *Client) GetMeeting(ctx context.Context, id string) (*Meeting, error) {
	event, err := c.getEvent(ctx, id)
	if err != nil {
		return nil, providerError("get meeting", err)
	}
	if !hasConference(event) {
		return nil, fmt.Errorf("%w: %s", ErrNotConferenced, id)
	}
	m := toMeeting(event)
	return &m, nil
}

func (c *Client) getEvent(ctx context.Context, id string) (*calendar.Event, error) {
	var event *calendar.Event
	err := c.observe(ctx, instrumentation.OperationGet, id, func(ctx context.Context) error {
		var err error
		event, err = c.svc.Events.Get(PrimaryCalendar, id).Context(ctx).Do()
		return err
	})
	return event, err
}

// CreateMeeting creates an event with a new Google Meet conference and
// notifies all attendees.
func (c *Client) CreateMeeting(ctx context.Context, input MeetingInput) (*Meeting, error) {
	if !input.End.After(input.Start) {
		return nil, ErrInvalidTimeRange
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start:       eventDateTime(input.Start),
		End:         eventDateTime(input.End),
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: NewRequestID(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: conferenceTypeMeet,
				},
			},
		},
	}
	if len(input.Attendees) > 0 {
		event.Attendees = toAttendees(input.Attendees)
	}

	var created *calendar.Event
	err := c.observe(ctx, instrumentation.OperationCreate, "", func(ctx context.Context) error {
		var err error
		created, err = c.svc.Events.Insert(PrimaryCalendar, event).
			ConferenceDataVersion(1).
			SendUpdates(sendUpdatesAll).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, providerError("create meeting", err)
	}

	c.logger.Info("meeting created", logging.MeetingID(created.Id))
	m := toMeeting(created)
	return &m, nil
}

// UpdateMeeting applies the set fields of update to an existing event and
// notifies all attendees.
func (c *Client) UpdateMeeting(ctx context.Context, id string, update MeetingUpdate) (*Meeting, error) {
	existing, err := c.getEvent(ctx, id)
	if err != nil {
		return nil, providerError("update meeting", err)
	}

	if update.Summary != nil {
		existing.Summary = *update.Summary
	}
	if update.Description != nil {
		existing.Description = *update.Description
	}
	if update.Start != nil {
		existing.Start = eventDateTime(*update.Start)
	}
	if update.End != nil {
		existing.End = eventDateTime(*update.End)
	}
	if update.Attendees != nil {
		existing.Attendees = toAttendees(update.Attendees)
	}

	var updated *calendar.Event
	err = c.observe(ctx, instrumentation.OperationUpdate, id, func(ctx context.Context) error {
		var err error
		updated, err = c.svc.Events.Update(PrimaryCalendar, id, existing).
			ConferenceDataVersion(1).
			SendUpdates(sendUpdatesAll).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, providerError("update meeting", err)
	}

	c.logger.Info("meeting updated", logging.MeetingID(id))
	m := toMeeting(updated)
	return &m, nil
}

// DeleteMeeting deletes an event and notifies attendees of the cancellation.
// Deleting an already deleted event returns the provider's not-found error.
func (c *Client) DeleteMeeting(ctx context.Context, id string) error {
	err := c.observe(ctx, instrumentation.OperationDelete, id, func(ctx context.Context) error {
		return c.svc.Events.Delete(PrimaryCalendar, id).
			SendUpdates(sendUpdatesAll).
			Context(ctx).
			Do()
	})
	if err != nil {
		return providerError("delete meeting", err)
	}

	c.logger.Info("meeting deleted", logging.MeetingID(id))
	return nil
}

// CheckTimeConflicts returns the events on calendars overlapping
// [start, end). Cancelled events are ignored and an empty calendars list
// means the primary calendar.
func (c *Client) CheckTimeConflicts(ctx context.Context, start, end time.Time, calendars []string) ([]Conflict, error) {
	if !end.After(start) {
		return nil, ErrInvalidTimeRange
	}
	if len(calendars) == 0 {
		calendars = []string{PrimaryCalendar}
	}

	var conflicts []Conflict
	for _, calendarID := range calendars {
		err := c.observe(ctx, instrumentation.OperationList, "", func(ctx context.Context) error {
			call := c.svc.Events.List(calendarID).
				TimeMin(start.Format(time.RFC3339)).
				TimeMax(end.Format(time.RFC3339)).
				SingleEvents(true).
				OrderBy("startTime").
				MaxResults(conflictPageSize)

			return call.Pages(ctx, func(page *calendar.Events) error {
				for _, event := range page.Items {
					if event.Status == "cancelled" {
						continue
					}
					span := eventTimeRange(event)
					if span.Overlaps(start, end) {
						conflicts = append(conflicts, toConflict(calendarID, event, span))
					}
				}
				return nil
			})
		})
		if err != nil {
			return nil, providerError("check conflicts on "+calendarID, err)
		}
	}
	return conflicts, nil
}

// CheckAvailability reports whether [start, end) is free on all calendars.
func (c *Client) CheckAvailability(ctx context.Context, start, end time.Time, calendars []string) (*Availability, error) {
	conflicts, err := c.CheckTimeConflicts(ctx, start, end, calendars)
	if err != nil {
		return nil, err
	}
	return &Availability{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// GetFreeBusy returns busy intervals per calendar, in the order requested.
func (c *Client) GetFreeBusy(ctx context.Context, start, end time.Time, calendars []string) ([]FreeBusyInfo, error) {
	if !end.After(start) {
		return nil, ErrInvalidTimeRange
	}
	if len(calendars) == 0 {
		calendars = []string{PrimaryCalendar}
	}

	items := make([]*calendar.FreeBusyRequestItem, len(calendars))
	for i, id := range calendars {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}
	query := &calendar.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   items,
	}

	var result *calendar.FreeBusyResponse
	err := c.observe(ctx, instrumentation.OperationFreeBusy, "", func(ctx context.Context) error {
		var err error
		result, err = c.svc.Freebusy.Query(query).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, providerError("query free/busy", err)
	}

	infos := make([]FreeBusyInfo, 0, len(calendars))
	for _, id := range calendars {
		info := FreeBusyInfo{Calendar: id}
		if cal, ok := result.Calendars[id]; ok {
			for _, busy := range cal.Busy {
				s, _ := time.Parse(time.RFC3339, busy.Start)
				e, _ := time.Parse(time.RFC3339, busy.End)
				info.Busy = append(info.Busy, TimeRange{Start: s, End: e})
			}
			for _, apiErr := range cal.Errors {
				info.Errors = append(info.Errors, apiErr.Reason)
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}
