package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseScheduleArgs splits "<cron expr> on|off" into the expression and the
// enabled flag. The expression itself is checked by the scheduler.
func ParseScheduleArgs(args string) (string, bool, error) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		return "", false, fmt.Errorf("usage: /schedule <cron expr> on|off")
	}

	var enabled bool
	switch strings.ToLower(parts[len(parts)-1]) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return "", false, fmt.Errorf("last argument must be on or off, got %q", parts[len(parts)-1])
	}
	return strings.Join(parts[:len(parts)-1], " "), enabled, nil
}

// ParseCategoryArgs extracts a category name and search query separated by "|".
func ParseCategoryArgs(args string) (string, string, error) {
	name, query, ok := strings.Cut(args, "|")
	if !ok {
		return "", "", fmt.Errorf("usage: /addcat <name> | <search query>")
	}
	name, query = strings.TrimSpace(name), strings.TrimSpace(query)
	if name == "" || query == "" {
		return "", "", fmt.Errorf("name and search query are required")
	}
	return name, query, nil
}

// ParseIDArg extracts a category ID from a command argument string.
func ParseIDArg(args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", fmt.Errorf("category ID is required")
	}
	return fields[0], nil
}

// ParsePageArg parses an optional page number; empty means the first page.
func ParsePageArg(args string) (int, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(s)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("invalid page %q", s)
	}
	return page, nil
}
