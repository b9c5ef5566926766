package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// Meeting is a calendar event that carries conference data.
type Meeting struct {
	ID           string
	Title        string
	Description  string
	Location     string
	Start        time.Time
	End          time.Time
	Status       string
	HTMLLink     string
	Creator      string
	Organizer    string
	MeetLink     string
	ConferenceID string
	DialIn       *DialIn
	Attendees    []Attendee
}

// DialIn is the phone entry point of a conference.
type DialIn struct {
	URI        string
	Label      string
	PIN        string
	RegionCode string
}

// Attendee represents information about an event attendee
type Attendee struct {
	Email          string
	DisplayName    string
	ResponseStatus string // "needsAction", "declined", "tentative", "accepted"
	Optional       bool
	Organizer      bool
}

// ListOptions bounds ListMeetings. Zero values mean 10 results starting now
// with no upper bound.
type ListOptions struct {
	MaxResults int64
	TimeMin    time.Time
	TimeMax    time.Time
}

// MeetingInput describes a meeting to create.
type MeetingInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// MeetingUpdate lists the fields to change. Nil pointers leave the field
// untouched; a non-nil Attendees slice, even an empty one, replaces the list.
type MeetingUpdate struct {
	Summary     *string
	Description *string
	Start       *time.Time
	End         *time.Time
	Attendees   []string
}

// Conflict is an existing event overlapping a requested window.
type Conflict struct {
	CalendarID string
	EventID    string
	Summary    string
	Start      time.Time
	End        time.Time
}

// Availability is the result of an availability check.
type Availability struct {
	Available bool
	Conflicts []Conflict
}

// FreeBusyInfo represents availability information for a calendar
type FreeBusyInfo struct {
	Calendar string
	Busy     []TimeRange
	Errors   []string
}

// TimeRange represents a time range
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the half-open ranges [Start, End) and
// [start, end) intersect. Touching ranges do not overlap.
func (r TimeRange) Overlaps(start, end time.Time) bool {
	return r.Start.Before(end) && start.Before(r.End)
}

// parseEventTime reads either the timed or the all-day form.
func parseEventTime(dt *calendar.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t
		}
	}
	if dt.Date != "" {
		if t, err := time.Parse(time.DateOnly, dt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

func eventTimeRange(event *calendar.Event) TimeRange {
	return TimeRange{Start: parseEventTime(event.Start), End: parseEventTime(event.End)}
}

func hasConference(event *calendar.Event) bool {
	return event != nil && event.ConferenceData != nil
}

// toMeeting converts a Google Calendar event to a Meeting.
func toMeeting(event *calendar.Event) Meeting {
	if event == nil {
		return Meeting{}
	}

	span := eventTimeRange(event)
	m := Meeting{
		ID:          event.Id,
		Title:       event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Start:       span.Start,
		End:         span.End,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
	}

	if event.Creator != nil {
		m.Creator = event.Creator.Email
	}
	if event.Organizer != nil {
		m.Organizer = event.Organizer.Email
	}

	for _, att := range event.Attendees {
		m.Attendees = append(m.Attendees, Attendee{
			Email:          att.Email,
			DisplayName:    att.DisplayName,
			ResponseStatus: att.ResponseStatus,
			Optional:       att.Optional,
			Organizer:      att.Organizer,
		})
	}

	if cd := event.ConferenceData; cd != nil {
		m.ConferenceID = cd.ConferenceId
		for _, ep := range cd.EntryPoints {
			switch ep.EntryPointType {
			case "video":
				if m.MeetLink == "" {
					m.MeetLink = ep.Uri
				}
			case "phone":
				if m.DialIn == nil {
					m.DialIn = &DialIn{
						URI:        ep.Uri,
						Label:      ep.Label,
						PIN:        ep.Pin,
						RegionCode: ep.RegionCode,
					}
				}
			}
		}
	}
	if m.MeetLink == "" {
		m.MeetLink = event.HangoutLink
	}

	return m
}

func toConflict(calendarID string, event *calendar.Event, span TimeRange) Conflict {
	return Conflict{
		CalendarID: calendarID,
		EventID:    event.Id,
		Summary:    event.Summary,
		Start:      span.Start,
		End:        span.End,
	}
}

func eventDateTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{DateTime: t.Format(time.RFC3339)}
}

func toAttendees(emails []string) []*calendar.EventAttendee {
	attendees := make([]*calendar.EventAttendee, 0, len(emails))
	for _, email := range emails {
		attendees = append(attendees, &calendar.EventAttendee{Email: email})
	}
	return attendees
}
