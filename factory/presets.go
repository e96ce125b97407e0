/*
presets.go - Ready-made site definitions

PURPOSE:
  Provides JSON site definitions for common setups. These are
  convenience builders for demos and tests; real deployments load a
  site file instead.

AVAILABLE PRESETS:
  DemoSiteJSON:    Two instruments, one quantised hourly and one run on
                   a weighted shift cycle, with a small roster and rates
  MinimalSiteJSON: One resource with a single open policy

USAGE:
  site, err := factory.ParseSite(factory.DemoSiteJSON())

SEE ALSO:
  - config.go: the JSON schema these builders emit
*/
package factory

import "encoding/json"

// DemoSiteJSON returns a JSON site with one hourly instrument and one
// shift-run instrument.
func DemoSiteJSON() string {
	sj := SiteJSON{
		Zone: "UTC",
		Resources: []ResourceJSON{
			{
				ID:   "confocal-1",
				Name: "Confocal Microscope 1",
				Policies: []PolicyJSON{
					{
						Name:        "staff-extended",
						AppliesTo:   "staff",
						WindowStart: "07:00",
						WindowEnd:   "22:00",
						Quantum:     "30m",
					},
					{
						Name:            "standard",
						AppliesTo:       "user",
						Weekdays:        []string{"mon", "tue", "wed", "thu", "fri"},
						WindowStart:     "09:00",
						WindowEnd:       "17:00",
						Quantum:         "1h",
						ImmutableWindow: "24h",
						MaxForward:      "720h",
						Quota:           "40h",
					},
				},
			},
			{
				ID:   "sequencer-1",
				Name: "Sequencer 1",
				Shifts: []ShiftJSON{
					{Name: "day", Start: "09:00", End: "18:00", Weighting: 1},
					{Name: "evening", Start: "18:00", End: "23:00", Weighting: 0.75},
					{Name: "night", Start: "23:00", End: "09:00", Weighting: 0.5},
				},
				Policies: []PolicyJSON{
					{
						Name:        "shift-run",
						AppliesTo:   "user",
						WindowStart: "00:00",
						WindowEnd:   "24:00",
						Quantum:     "1h",
						MaxForward:  "2160h",
						UseShifts:   true,
					},
				},
			},
		},
		Users: []UserJSON{
			{Resource: "confocal-1", User: "alice", Role: "user"},
			{Resource: "confocal-1", User: "bob", Role: "staff"},
			{Resource: "confocal-1", User: "carol", Role: "admin"},
			{Resource: "confocal-1", User: "dave", Role: "user", UserHold: true},
			{Resource: "sequencer-1", User: "alice", Role: "user"},
			{Resource: "sequencer-1", User: "carol", Role: "admin"},
		},
		Rates: []RateJSON{
			{Resource: "confocal-1", PerShift: "12.50"},
			{Resource: "sequencer-1", PerShift: "150"},
			{Resource: "sequencer-1", Subject: "alice", PerShift: "100"},
		},
	}
	b, _ := json.MarshalIndent(sj, "", "  ")
	return string(b)
}

// MinimalSiteJSON returns a JSON site with a single resource and one
// open policy, handy as a test fixture.
func MinimalSiteJSON(resourceID, quantum string) string {
	sj := SiteJSON{
		Resources: []ResourceJSON{
			{
				ID: resourceID,
				Policies: []PolicyJSON{
					{
						Name:        "open",
						WindowStart: "00:00",
						WindowEnd:   "24:00",
						Quantum:     quantum,
					},
				},
			},
		},
	}
	b, _ := json.MarshalIndent(sj, "", "  ")
	return string(b)
}
