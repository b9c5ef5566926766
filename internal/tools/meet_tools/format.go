package meet_tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/teemow/meetmcp/internal/calendar"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}

func formatMeetingList(meetings []calendar.Meeting) string {
	if len(meetings) == 0 {
		return "No upcoming meetings with Google Meet found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d meetings:\n\n", len(meetings))
	for i, m := range meetings {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Title)
		fmt.Fprintf(&b, "   ID: %s\n", m.ID)
		fmt.Fprintf(&b, "   Start: %s\n", formatTime(m.Start))
		fmt.Fprintf(&b, "   End: %s\n", formatTime(m.End))
		if m.MeetLink != "" {
			fmt.Fprintf(&b, "   Meet: %s\n", m.MeetLink)
		}
		if len(m.Attendees) > 0 {
			fmt.Fprintf(&b, "   Attendees: %d\n", len(m.Attendees))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatMeeting(m *calendar.Meeting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting: %s\n", m.Title)
	fmt.Fprintf(&b, "ID: %s\n", m.ID)
	fmt.Fprintf(&b, "Start: %s\n", formatTime(m.Start))
	fmt.Fprintf(&b, "End: %s\n", formatTime(m.End))
	if m.Status != "" {
		fmt.Fprintf(&b, "Status: %s\n", m.Status)
	}
	if m.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", m.Description)
	}
	if m.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", m.Location)
	}
	if m.Organizer != "" {
		fmt.Fprintf(&b, "Organizer: %s\n", m.Organizer)
	}
	if m.MeetLink != "" {
		fmt.Fprintf(&b, "Google Meet: %s\n", m.MeetLink)
	}
	if m.ConferenceID != "" {
		fmt.Fprintf(&b, "Conference ID: %s\n", m.ConferenceID)
	}
	if d := m.DialIn; d != nil {
		line := d.Label
		if line == "" {
			line = strings.TrimPrefix(d.URI, "tel:")
		}
		if d.RegionCode != "" {
			line += " (" + d.RegionCode + ")"
		}
		fmt.Fprintf(&b, "Dial-in: %s\n", line)
		if d.PIN != "" {
			fmt.Fprintf(&b, "PIN: %s\n", d.PIN)
		}
	}
	if m.HTMLLink != "" {
		fmt.Fprintf(&b, "Calendar: %s\n", m.HTMLLink)
	}

	if len(m.Attendees) > 0 {
		fmt.Fprintf(&b, "\nAttendees (%d):\n", len(m.Attendees))
		for _, att := range m.Attendees {
			fmt.Fprintf(&b, "  - %s", att.Email)
			if att.ResponseStatus != "" {
				fmt.Fprintf(&b, " (%s)", att.ResponseStatus)
			}
			if att.DisplayName != "" {
				fmt.Fprintf(&b, " - %s", att.DisplayName)
			}
			if att.Optional {
				b.WriteString(" [optional]")
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatConflicts(conflicts []calendar.Conflict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Conflicts (%d):\n", len(conflicts))
	for _, c := range conflicts {
		title := c.Summary
		if title == "" {
			title = "(busy)"
		}
		fmt.Fprintf(&b, "  - %s: %s to %s [calendar: %s, id: %s]\n",
			title, formatTime(c.Start), formatTime(c.End), c.CalendarID, c.EventID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAvailability(start, end time.Time, a *calendar.Availability) string {
	window := fmt.Sprintf("%s to %s", formatTime(start), formatTime(end))
	if a.Available {
		return fmt.Sprintf("Available: no conflicts between %s.", window)
	}
	return fmt.Sprintf("Not available between %s.\n\n%s", window, formatConflicts(a.Conflicts))
}

func formatFreeBusy(start, end time.Time, infos []calendar.FreeBusyInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Free/busy from %s to %s:\n", formatTime(start), formatTime(end))
	for _, info := range infos {
		fmt.Fprintf(&b, "\n%s:\n", info.Calendar)
		for _, reason := range info.Errors {
			fmt.Fprintf(&b, "  error: %s\n", reason)
		}
		if len(info.Busy) == 0 && len(info.Errors) == 0 {
			b.WriteString("  free for the whole window\n")
		}
		for _, busy := range info.Busy {
			fmt.Fprintf(&b, "  busy %s to %s\n", formatTime(busy.Start), formatTime(busy.End))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
