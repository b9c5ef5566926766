// Package meet_tools provides the MCP tools for Google Meet meetings, which
// are Google Calendar events carrying conference data.
//
// Available tools:
//
// Read:
//   - list_meetings - Upcoming meetings, ordered by start time
//   - get_meeting - One meeting with join link and dial-in
//   - check_availability - Overlapping events for a time window
//   - get_free_busy - Busy intervals per calendar
//
// Write (not registered in read-only mode):
//   - create_meeting - New event with a Meet conference; check_conflicts refuses overlaps
//   - update_meeting - Partial update; omitted fields stay as they are
//   - delete_meeting - Delete and notify attendees
//
// Timestamps are RFC 3339. attendees and calendars take an array of strings
// or a comma-separated string.
//
// The first call authorizes with Google when no usable token is stored,
// which opens the consent page in a browser and blocks until the user
// finishes or the flow times out.
package meet_tools
