package common

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Tool argument names shared across the meeting tools.
const (
	ArgMeetingID      = "meeting_id"
	ArgSummary        = "summary"
	ArgDescription    = "description"
	ArgStartTime      = "start_time"
	ArgEndTime        = "end_time"
	ArgAttendees      = "attendees"
	ArgCalendars      = "calendars"
	ArgCheckConflicts = "check_conflicts"
	ArgMaxResults     = "max_results"
	ArgTimeMin        = "time_min"
	ArgTimeMax        = "time_max"
)

// ParseStringList accepts an array of strings, a JSON array encoded as a
// string, or a comma-separated string. A missing argument yields nil.
// Entries are trimmed; blank entries in a comma list are skipped.
func ParseStringList(param interface{}, paramName string) ([]string, error) {
	switch v := param.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "[") {
			var items []string
			if err := json.Unmarshal([]byte(s), &items); err != nil {
				return nil, fmt.Errorf("%s must be a JSON array of strings: %w", paramName, err)
			}
			return cleanList(items, paramName)
		}
		var result []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
		return result, nil
	case []interface{}:
		items := make([]string, 0, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			items = append(items, str)
		}
		return cleanList(items, paramName)
	case []string:
		return cleanList(v, paramName)
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}
}

func cleanList(items []string, paramName string) ([]string, error) {
	result := make([]string, 0, len(items))
	for i, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
		}
		result = append(result, item)
	}
	return result, nil
}

// RequiredString returns a non-empty string argument.
func RequiredString(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", fmt.Errorf("%s is required", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", name)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s cannot be empty", name)
	}
	return s, nil
}

// OptionalString returns nil when the argument is absent, so callers can
// tell "not given" from "set to empty".
func OptionalString(args map[string]interface{}, name string) (*string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a string", name)
	}
	return &s, nil
}

// RequiredTime parses an RFC 3339 timestamp argument.
func RequiredTime(args map[string]interface{}, name string) (time.Time, error) {
	s, err := RequiredString(args, name)
	if err != nil {
		return time.Time{}, err
	}
	return parseTime(s, name)
}

// OptionalTime returns nil when the argument is absent or empty.
func OptionalTime(args map[string]interface{}, name string) (*time.Time, error) {
	s, err := OptionalString(args, name)
	if err != nil || s == nil || strings.TrimSpace(*s) == "" {
		return nil, err
	}
	t, err := parseTime(*s, name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseTime(s, name string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be an RFC 3339 timestamp such as 2025-01-15T10:00:00Z: %w", name, err)
	}
	return t, nil
}

// OptionalBool reads a boolean argument, also accepting "true"/"false" strings.
func OptionalBool(args map[string]interface{}, name string, def bool) (bool, error) {
	switch v := args[name].(type) {
	case nil:
		return def, nil
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("%s must be a boolean", name)
}

// OptionalPositiveInt reads a whole number >= 1. JSON numbers arrive as float64.
func OptionalPositiveInt(args map[string]interface{}, name string, def int64) (int64, error) {
	var f float64
	switch v := args[name].(type) {
	case nil:
		return def, nil
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}
	if f != math.Trunc(f) || f < 1 {
		return 0, fmt.Errorf("%s must be a positive whole number", name)
	}
	return int64(f), nil
}
