package meet_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/meetmcp/internal/server"
	"github.com/teemow/meetmcp/internal/tools/common"
)

func checkAvailabilityTool() mcp.Tool {
	return mcp.NewTool(ToolCheckAvailability,
		mcp.WithDescription("Check whether a time window is free across one or more calendars and list any overlapping events"),
		mcp.WithString(common.ArgStartTime,
			mcp.Required(),
			mcp.Description("Window start (RFC3339)"),
		),
		mcp.WithString(common.ArgEndTime,
			mcp.Required(),
			mcp.Description("Window end (RFC3339)"),
		),
		mcp.WithArray(common.ArgCalendars,
			mcp.Description("Calendar IDs to check (array or comma-separated string, default: primary)"),
			mcp.WithStringItems(),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func getFreeBusyTool() mcp.Tool {
	return mcp.NewTool(ToolGetFreeBusy,
		mcp.WithDescription("Get busy intervals for calendars without event details"),
		mcp.WithString(common.ArgStartTime,
			mcp.Required(),
			mcp.Description("Window start (RFC3339)"),
		),
		mcp.WithString(common.ArgEndTime,
			mcp.Required(),
			mcp.Description("Window end (RFC3339)"),
		),
		mcp.WithArray(common.ArgCalendars,
			mcp.Description("Calendar IDs or email addresses (array or comma-separated string, default: primary)"),
			mcp.WithStringItems(),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

type window struct {
	start, end time.Time
	calendars  []string
}

func parseWindow(args map[string]interface{}) (window, error) {
	var w window
	var err error
	if w.start, err = common.RequiredTime(args, common.ArgStartTime); err != nil {
		return w, err
	}
	if w.end, err = common.RequiredTime(args, common.ArgEndTime); err != nil {
		return w, err
	}
	if !w.end.After(w.start) {
		return w, fmt.Errorf("%s must be after %s", common.ArgEndTime, common.ArgStartTime)
	}
	if w.calendars, err = common.ParseStringList(args[common.ArgCalendars], common.ArgCalendars); err != nil {
		return w, err
	}
	return w, nil
}

func handleCheckAvailability(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	w, err := parseWindow(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getCalendarClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	availability, err := client.CheckAvailability(ctx, w.start, w.end, w.calendars)
	if err != nil {
		return providerResult(sc, "check availability", err), nil
	}

	return mcp.NewToolResultText(formatAvailability(w.start, w.end, availability)), nil
}

func handleGetFreeBusy(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	w, err := parseWindow(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getCalendarClient(ctx, sc)
	if errResult != nil {
		return errResult, nil
	}

	info, err := client.GetFreeBusy(ctx, w.start, w.end, w.calendars)
	if err != nil {
		return providerResult(sc, "get free/busy", err), nil
	}

	return mcp.NewToolResultText(formatFreeBusy(w.start, w.end, info)), nil
}
