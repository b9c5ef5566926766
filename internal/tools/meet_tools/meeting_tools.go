package meet_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/meetmcp/internal/calendar"
	"github.com/teemow/meetmcp/internal/server"
	"github.com/teemow/meetmcp/internal/tools/common"
)

func listMeetingsTool() mcp.Tool {
	return mcp.NewTool(ToolListMeetings,
		mcp.WithDescription("List upcoming Google Meet meetings from the primary calendar, ordered by start time"),
		mcp.WithNumber(common.ArgMaxResults,
			mcp.Description("Maximum number of meetings to return (default: 10)"),
		),
		mcp.WithString(common.ArgTimeMin,
			mcp.Description("Only meetings ending after this time (RFC3339, default: now)"),
		),
		mcp.WithString(common.ArgTimeMax,
			mcp.Description("Only meetings starting before this time (RFC3339)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func getMeetingTool() mcp.Tool {
	return mcp.NewTool(ToolGetMeeting,
		mcp.WithDescription("Get the details of a Google Meet meeting, including its join link and dial-in"),
		mcp.WithString(common.ArgMeetingID,
			mcp.Required(),
			mcp.Description("The calendar event ID of the meeting"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func createMeetingTool() mcp.Tool {
	return mcp.NewTool(ToolCreateMeeting,
		mcp.WithDescription("Create a calendar event with a new Google Meet conference and invite the attendees"),
		mcp.WithString(common.ArgSummary,
			mcp.Required(),
			mcp.Description("Meeting title"),
		),
		mcp.WithString(common.ArgStartTime,
			mcp.Required(),
			mcp.Description("Start time (RFC3339, e.g. '2025-01-15T14:00:00Z')"),
		),
		mcp.WithString(common.ArgEndTime,
			mcp.Required(),
			mcp.Description("End time (RFC3339, e.g. '2025-01-15T15:00:00Z')"),
		),
		mcp.WithString(common.ArgDescription,
			mcp.Description("Meeting description"),
		),
		mcp.WithArray(common.ArgAttendees,
			mcp.Description("Attendee email addresses (array or comma-separated string)"),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean(common.ArgCheckConflicts,
			mcp.Description("Refuse to create the meeting when it overlaps existing events (default: false)"),
		),
	)
}

func updateMeetingTool() mcp.Tool {
	return mcp.NewTool(ToolUpdateMeeting,
		mcp.WithDescription("Update a Google Meet meeting. Only the fields given are changed; attendees are notified"),
		mcp.WithString(common.ArgMeetingID,
			mcp.Required(),
			mcp.Description("The calendar event ID of the meeting"),
		),
		mcp.WithString(common.ArgSummary,
			mcp.Description("New title"),
		),
		mcp.WithString(common.ArgDescription,
			mcp.Description("New description"),
		),
		mcp.WithString(common.ArgStartTime,
			mcp.Description("New start time (RFC3339)"),
		),
		mcp.WithString(common.ArgEndTime,
			mcp.Description("New end time (RFC3339)"),
		),
		mcp.WithArray(common.ArgAttendees,
			mcp.Description("Replacement attendee list (array or comma-separated string)"),
			mcp.WithStringItems(),
		),
	)
}

func deleteMeetingTool() mcp.Tool {
	return mcp.NewTool(ToolDeleteMeeting,
		mcp.WithDescription("Delete a Google Meet meeting and notify the attendees of the cancellation"),
		mcp.WithString(common.ArgMeetingID,
			mcp.Required(),
			mcp.Description("The calendar event ID of the meeting"),
		),
		mcp.WithDestructiveHintAnnotation(true),
	)
}

func handleListMeetings(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	maxResults, err := common.OptionalPositiveInt(args, common.ArgMaxResults, calendar.DefaultMaxResults)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timeMin, err := common.OptionalTime(args, common.ArgTimeMin)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timeMax, err := common.OptionalTime(args, common.ArgTimeMax)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := calendar.ListOptions{MaxResults: maxResults}
	if timeMin != nil {
		opts.TimeMin = *timeMin
	}
	if timeMax != nil {
		opts.TimeMax = *timeMax
	}

	client, errResult := getCalendarClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	meetings, err := client.ListMeetings(ctx, opts)
	if err != nil {
		return providerResult(sc, "list meetings", err), nil
	}

	return mcp.NewToolResultText(formatMeetingList(meetings)), nil
}

func handleGetMeeting(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	id, err := common.RequiredString(request.GetArguments(), common.ArgMeetingID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getCalendarClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	meeting, err := client.GetMeeting(ctx, id)
	if err != nil {
		return providerResult(sc, "get meeting", err), nil
	}

	return mcp.NewToolResultText(formatMeeting(meeting)), nil
}

func handleCreateMeeting(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	summary, err := common.RequiredString(args, common.ArgSummary)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := common.RequiredTime(args, common.ArgStartTime)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := common.RequiredTime(args, common.ArgEndTime)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description, err := common.OptionalString(args, common.ArgDescription)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	attendees, err := common.ParseStringList(args[common.ArgAttendees], common.ArgAttendees)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	checkConflicts, err := common.OptionalBool(args, common.ArgCheckConflicts, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !end.After(start) {
		return mcp.NewToolResultError(fmt.Sprintf("%s must be after %s", common.ArgEndTime, common.ArgStartTime)), nil
	}

	client, errResult := getCalendarClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	if checkConflicts {
		conflicts, err := client.CheckTimeConflicts(ctx, start, end, nil)
		if err != nil {
			return providerResult(sc, "check for conflicts", err), nil
		}
		if len(conflicts) > 0 {
			return mcp.NewToolResultError("Meeting not created because it overlaps existing events.\n\n" + formatConflicts(conflicts)), nil
		}
	}

	input := calendar.MeetingInput{
		Summary:   summary,
		Start:     start,
		End:       end,
		Attendees: attendees,
	}
	if description != nil {
		input.Description = *description
	}

	meeting, err := client.CreateMeeting(ctx, input)
	if err != nil {
		return providerResult(sc, "create meeting", err), nil
	}

	return mcp.NewToolResultText("Meeting created.\n\n" + formatMeeting(meeting)), nil
}

func handleUpdateMeeting(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	id, err := common.RequiredString(args, common.ArgMeetingID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var update calendar.MeetingUpdate
	if update.Summary, err = common.OptionalString(args, common.ArgSummary); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if update.Description, err = common.OptionalString(args, common.ArgDescription); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if update.Start, err = common.OptionalTime(args, common.ArgStartTime); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if update.End, err = common.OptionalTime(args, common.ArgEndTime); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if raw, ok := args[common.ArgAttendees]; ok && raw != nil {
		attendees, err := common.ParseStringList(raw, common.ArgAttendees)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		// An explicit empty list clears the attendees.
		update.Attendees = append([]string{}, attendees...)
	}
	if update.Start != nil && update.End != nil && !update.End.After(*update.Start) {
		return mcp.NewToolResultError(fmt.Sprintf("%s must be after %s", common.ArgEndTime, common.ArgStartTime)), nil
	}

	client, errResult := getCalendarClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	meeting, err := client.UpdateMeeting(ctx, id, update)
	if err != nil {
		return providerResult(sc, "update meeting", err), nil
	}

	return mcp.NewToolResultText("Meeting updated.\n\n" + formatMeeting(meeting)), nil
}

func handleDeleteMeeting(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	id, err := common.RequiredString(request.GetArguments(), common.ArgMeetingID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getCalendarClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	if err := client.DeleteMeeting(ctx, id); err != nil {
		return providerResult(sc, "delete meeting", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Meeting %s deleted. Attendees have been notified.", id)), nil
}
