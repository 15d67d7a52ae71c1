package main

import (
	"encoding/json"
	"testing"

	"campus-maintenance-system/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamFor(t *testing.T) {
	cases := map[string]string{
		"Electrical": "Electrical Maintenance",
		"plumbing":   "Plumbing & Water",
		" HVAC ":     "HVAC",
		"Cleaning":   "Custodial Services",
		"Furniture":  "Carpentry",
		"IT":         "IT Services",
		"Network":    "IT Services",
		"Landscape":  "General Facilities",
		"":           "General Facilities",
	}
	for category, team := range cases {
		assert.Equal(t, team, TeamFor(category), category)
	}
}

func TestRouteParsesReportEvent(t *testing.T) {
	body, err := json.Marshal(events.ReportEvent{
		ID:       "r1",
		Category: "Electrical",
		Building: "W2",
		Room:     "101",
		Priority: "High",
	})
	require.NoError(t, err)

	r, err := route(body)
	require.NoError(t, err)
	assert.Equal(t, Routing{ReportID: "r1", Team: "Electrical Maintenance", Priority: "High", Where: "W2 / 101"}, r)

	_, err = route([]byte("not json"))
	assert.Error(t, err)

	_, err = route([]byte(`{"category":"Electrical"}`))
	assert.Error(t, err)
}
