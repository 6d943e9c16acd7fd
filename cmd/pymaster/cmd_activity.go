package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/NgTruc2025/python-ntt/internal/events"
)

// cmdActivity prints recent generation activity from the daemon's log
func cmdActivity(args []string) error {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("limit must be a positive number: %s", args[0])
		}
		limit = n
	}

	var result struct {
		Events []events.Event `json:"events"`
	}
	err := call(http.MethodGet, "/v1/activity?limit="+strconv.Itoa(limit), nil, &result)
	if statusOf(err) == http.StatusNotFound {
		fmt.Println("Activity log is disabled (set events.backend: sqlite in config.yaml)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get activity: %w", err)
	}

	if len(result.Events) == 0 {
		fmt.Println("No activity yet.")
		return nil
	}
	for _, ev := range result.Events {
		fmt.Printf("%s  %-20s %-9s tab=%s\n", ev.At.Local().Format("2006-01-02 15:04:05"), ev.Type, ev.Outcome, ev.TabID)
	}
	return nil
}
