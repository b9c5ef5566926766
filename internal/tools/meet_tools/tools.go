package meet_tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetmcp/internal/calendar"
	"github.com/teemow/meetmcp/internal/instrumentation"
	"github.com/teemow/meetmcp/internal/server"
	"github.com/teemow/meetmcp/internal/tools/common"
)

// Tool names.
const (
	ToolListMeetings      = "list_meetings"
	ToolGetMeeting        = "get_meeting"
	ToolCreateMeeting     = "create_meeting"
	ToolUpdateMeeting     = "update_meeting"
	ToolDeleteMeeting     = "delete_meeting"
	ToolCheckAvailability = "check_availability"
	ToolGetFreeBusy       = "get_free_busy"
)

type toolHandler func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error)

// RegisterMeetTools registers all meeting tools with the MCP server.
// In read-only mode only the tools that do not change the calendar are added.
func RegisterMeetTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if s == nil || sc == nil {
		return fmt.Errorf("MCP server and server context are required")
	}

	add := func(tool mcp.Tool, operation string, handler toolHandler) {
		s.AddTool(tool, common.InstrumentedToolHandlerWithService(tool.Name, instrumentation.ServiceCalendar, operation, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handler(ctx, request, sc)
			}))
	}

	add(listMeetingsTool(), instrumentation.OperationList, handleListMeetings)
	add(getMeetingTool(), instrumentation.OperationGet, handleGetMeeting)
	add(checkAvailabilityTool(), instrumentation.OperationList, handleCheckAvailability)
	add(getFreeBusyTool(), instrumentation.OperationFreeBusy, handleGetFreeBusy)

	if !readOnly {
		add(createMeetingTool(), instrumentation.OperationCreate, handleCreateMeeting)
		add(updateMeetingTool(), instrumentation.OperationUpdate, handleUpdateMeeting)
		add(deleteMeetingTool(), instrumentation.OperationDelete, handleDeleteMeeting)
	}

	return nil
}

// getCalendarClient authenticates on first use. A failed flow becomes a tool
// error the assistant can show to the user.
func getCalendarClient(ctx context.Context, sc *server.ServerContext) (*calendar.Client, *mcp.CallToolResult) {
	client, err := sc.CalendarClient(ctx)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf(`Not authorized to access Google Calendar: %v

Retry the tool to start a new authorization in the browser, or run "meetmcp auth" in a terminal.
If no browser opened, look for the consent URL in the server log.`, err))
	}
	return client, nil
}

// providerResult turns a gateway error into a tool error, adding a hint for
// token and credential problems. Rejected tokens drop the cached client so
// the next call authorizes again.
func providerResult(sc *server.ServerContext, action string, err error) *mcp.CallToolResult {
	if errors.Is(err, calendar.ErrNotConferenced) {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: the event exists but has no Google Meet conference", action))
	}
	if errors.Is(err, calendar.ErrInvalidTimeRange) {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
	}

	msg := fmt.Sprintf("Failed to %s: %v", action, err)
	var pe *calendar.ProviderError
	if errors.As(err, &pe) {
		if pe.StatusCode() == http.StatusUnauthorized {
			sc.ResetCalendarClient()
		}
		if hint := pe.Hint(); hint != "" {
			msg += "\n\nHint: " + hint
		}
	}
	return mcp.NewToolResultError(msg)
}
