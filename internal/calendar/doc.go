// Package calendar wraps the Google Calendar API for Google Meet meetings.
//
// A meeting is a calendar event on the primary calendar that carries
// conference data. The Client lists, reads, creates, updates and deletes
// such meetings, checks a time window for conflicting events across
// calendars, and queries free/busy information. Every API failure is
// returned as a *ProviderError; nothing is retried.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, tokenSource)
//	if err != nil {
//	    return err
//	}
//
//	meetings, err := client.ListMeetings(ctx, calendar.ListOptions{MaxResults: 5})
//	if err != nil {
//	    return err
//	}
package calendar
