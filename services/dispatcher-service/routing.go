package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"campus-maintenance-system/pkg/events"
)

const defaultTeam = "General Facilities"

var teamsByCategory = map[string]string{
	"electrical": "Electrical Maintenance",
	"plumbing":   "Plumbing & Water",
	"hvac":       "HVAC",
	"cleaning":   "Custodial Services",
	"furniture":  "Carpentry",
	"carpentry":  "Carpentry",
	"it":         "IT Services",
	"network":    "IT Services",
}

// TeamFor maps a report category to the crew that handles it.
func TeamFor(category string) string {
	if team, ok := teamsByCategory[strings.ToLower(strings.TrimSpace(category))]; ok {
		return team
	}
	return defaultTeam
}

type Routing struct {
	ReportID string
	Team     string
	Priority string
	Where    string
}

func route(body []byte) (Routing, error) {
	var ev events.ReportEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return Routing{}, fmt.Errorf("parse report event: %w", err)
	}
	if ev.ID == "" {
		return Routing{}, fmt.Errorf("report event without id")
	}

	where := strings.TrimSpace(strings.Join(nonEmpty(ev.Building, ev.Room, ev.Location), " / "))
	return Routing{
		ReportID: ev.ID,
		Team:     TeamFor(ev.Category),
		Priority: ev.Priority,
		Where:    where,
	}, nil
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return out
}

func logRouting(r Routing) {
	log.Printf("[ROUTING] Report %s forwarded to %s (priority: %s, location: %s)", r.ReportID, r.Team, r.Priority, r.Where)
}
