package google

import (
	calendar "google.golang.org/api/calendar/v3"
)

// CalendarScopes are requested during authorization.
// Full calendar access covers creating, updating and deleting meetings;
// the events scope is listed so narrower grants still read correctly.
var CalendarScopes = []string{
	calendar.CalendarScope,
	calendar.CalendarEventsScope,
}
