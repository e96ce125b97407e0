/*
Package factory provides JSON to Go site configuration conversion.

PURPOSE:
  Converts JSON site definitions into booking.Resource values, a user
  roster and a rate table. This enables policy configuration without
  code changes - lab managers can define resources and policies in
  JSON, and the factory creates the proper Go structs.

WHY JSON?
  - Non-developers can modify policies
  - Easy integration with admin UI
  - Version control for site definitions

JSON SCHEMA:
  {
    "zone": "Europe/London",
    "resources": [
      {
        "id": "confocal-1",
        "name": "Confocal Microscope 1",
        "shifts": [
          {"name": "day", "start": "09:00", "end": "18:00", "weighting": 1}
        ],
        "policies": [
          {
            "name": "standard",
            "applies_to": "user",
            "weekdays": ["mon", "tue", "wed", "thu", "fri"],
            "window_start": "09:00",
            "window_end": "17:00",
            "quantum": "1h",
            "max_forward": "720h",
            "quota": "40h"
          }
        ]
      }
    ],
    "users": [
      {"resource": "confocal-1", "user": "alice", "role": "user"}
    ],
    "rates": [
      {"resource": "confocal-1", "per_shift": "12.50"},
      {"resource": "confocal-1", "subject": "alice", "per_shift": "8"}
    ]
  }

KEY FEATURES:
  - Validates the structure before any resource is built
  - Sets sensible defaults (UTC zone, all-week policies, user role)
  - Shift schedules must tile a whole day so shift accounting works
  - Rate rows without a subject become the resource default

USAGE:
  site, err := factory.LoadSite("site.json")
  eng, err := booking.New(booking.Config{
    Store:     store,
    Roster:    site.Roster,
    Rates:     site.MemoryRates(),
    Resources: site.Resources,
    Zone:      site.Zone,
  })

SEE ALSO:
  - booking/policy.go: Policy type definition
  - booking/shift.go: ShiftSchedule semantics
  - factory/presets.go: ready-made site definitions
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/booking/store"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SiteJSON is the JSON representation of a whole site.
type SiteJSON struct {
	Zone      string         `json:"zone,omitempty"`
	Resources []ResourceJSON `json:"resources"`
	Users     []UserJSON     `json:"users,omitempty"`
	Rates     []RateJSON     `json:"rates,omitempty"`
}

// ResourceJSON is the JSON representation of one bookable resource.
type ResourceJSON struct {
	ID       string       `json:"id"`
	Name     string       `json:"name,omitempty"`
	Shifts   []ShiftJSON  `json:"shifts,omitempty"`
	Policies []PolicyJSON `json:"policies"`
}

// ShiftJSON is one named span of the resource's daily cycle.
type ShiftJSON struct {
	Name      string  `json:"name"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Weighting float64 `json:"weighting,omitempty"`
}

// PolicyJSON is the JSON representation of a booking policy.
type PolicyJSON struct {
	Name            string   `json:"name"`
	AppliesTo       string   `json:"applies_to,omitempty"`
	Booker          string   `json:"booker,omitempty"`
	Weekdays        []string `json:"weekdays,omitempty"`
	WindowStart     string   `json:"window_start"`
	WindowEnd       string   `json:"window_end"`
	Quantum         string   `json:"quantum"`
	ImmutableWindow string   `json:"immutable_window,omitempty"`
	MaxForward      string   `json:"max_forward,omitempty"`
	Quota           string   `json:"quota,omitempty"`
	UseShifts       bool     `json:"use_shifts,omitempty"`
}

// UserJSON is one roster row granting a user access to a resource.
type UserJSON struct {
	Resource  string `json:"resource"`
	User      string `json:"user"`
	Role      string `json:"role,omitempty"`
	UserHold  bool   `json:"user_hold,omitempty"`
	AdminHold bool   `json:"admin_hold,omitempty"`
}

// RateJSON is one per-shift rate row. An empty subject sets the
// resource default.
type RateJSON struct {
	Resource string `json:"resource"`
	Subject  string `json:"subject,omitempty"`
	PerShift string `json:"per_shift"`
}

// =============================================================================
// PARSED SITE
// =============================================================================

// RateRow is a parsed rate entry, ready to seed whichever rate table
// the caller runs.
type RateRow struct {
	Resource booking.ResourceID
	Subject  booking.UserID
	PerShift decimal.Decimal
}

// Site is a fully parsed and validated site definition.
type Site struct {
	Zone      *time.Location
	Resources []booking.Resource
	Roster    *store.Roster
	Rates     []RateRow
}

// MemoryRates builds an in-memory rate table from the parsed rows.
func (s *Site) MemoryRates() *store.Rates {
	rates := store.NewRates()
	for _, row := range s.Rates {
		if row.Subject == "" {
			rates.SetDefault(row.Resource, row.PerShift)
		} else {
			rates.Set(row.Resource, row.Subject, row.PerShift)
		}
	}
	return rates
}

// LoadSite reads and parses a site definition file.
func LoadSite(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site config: %w", err)
	}
	return ParseSite(string(data))
}

// ParseSite parses a JSON site definition.
func ParseSite(jsonStr string) (*Site, error) {
	var sj SiteJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return nil, fmt.Errorf("failed to parse site JSON: %w", err)
	}
	return FromJSON(sj)
}

// FromJSON converts SiteJSON into a validated Site.
func FromJSON(sj SiteJSON) (*Site, error) {
	zone := time.UTC
	if sj.Zone != "" {
		var err error
		zone, err = time.LoadLocation(sj.Zone)
		if err != nil {
			return nil, fmt.Errorf("unknown zone %q: %w", sj.Zone, err)
		}
	}

	if len(sj.Resources) == 0 {
		return nil, fmt.Errorf("site has no resources")
	}

	site := &Site{
		Zone:   zone,
		Roster: store.NewRoster(),
	}

	seen := make(map[string]bool, len(sj.Resources))
	for _, rj := range sj.Resources {
		if rj.ID == "" {
			return nil, fmt.Errorf("resource with empty id")
		}
		if seen[rj.ID] {
			return nil, fmt.Errorf("duplicate resource id %q", rj.ID)
		}
		seen[rj.ID] = true

		res, err := parseResource(rj)
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", rj.ID, err)
		}
		site.Resources = append(site.Resources, res)
	}

	for _, uj := range sj.Users {
		if !seen[uj.Resource] {
			return nil, fmt.Errorf("user %q references unknown resource %q", uj.User, uj.Resource)
		}
		if uj.User == "" {
			return nil, fmt.Errorf("roster row on %q with empty user", uj.Resource)
		}
		role := booking.RoleUser
		if uj.Role != "" {
			var err error
			role, err = parseRole(uj.Role)
			if err != nil {
				return nil, fmt.Errorf("user %q: %w", uj.User, err)
			}
		}
		site.Roster.Put(booking.UserListEntry{
			Resource:  booking.ResourceID(uj.Resource),
			User:      booking.UserID(uj.User),
			Role:      role,
			UserHold:  uj.UserHold,
			AdminHold: uj.AdminHold,
		})
	}

	for _, tj := range sj.Rates {
		if !seen[tj.Resource] {
			return nil, fmt.Errorf("rate row references unknown resource %q", tj.Resource)
		}
		rate, err := decimal.NewFromString(tj.PerShift)
		if err != nil {
			return nil, fmt.Errorf("rate for %q: malformed per_shift %q", tj.Resource, tj.PerShift)
		}
		if rate.IsNegative() {
			return nil, fmt.Errorf("rate for %q: negative per_shift %q", tj.Resource, tj.PerShift)
		}
		site.Rates = append(site.Rates, RateRow{
			Resource: booking.ResourceID(tj.Resource),
			Subject:  booking.UserID(tj.Subject),
			PerShift: rate,
		})
	}

	return site, nil
}

// =============================================================================
// RESOURCE PARSING
// =============================================================================

func parseResource(rj ResourceJSON) (booking.Resource, error) {
	res := booking.Resource{
		ID:   booking.ResourceID(rj.ID),
		Name: rj.Name,
	}
	if res.Name == "" {
		res.Name = rj.ID
	}

	shifts, err := parseShifts(rj.Shifts)
	if err != nil {
		return res, err
	}
	res.Shifts = shifts

	if len(rj.Policies) == 0 {
		return res, fmt.Errorf("no policies")
	}
	names := make(map[string]bool, len(rj.Policies))
	for _, pj := range rj.Policies {
		if pj.Name == "" {
			return res, fmt.Errorf("policy with empty name")
		}
		if names[pj.Name] {
			return res, fmt.Errorf("duplicate policy name %q", pj.Name)
		}
		names[pj.Name] = true

		p, err := parsePolicy(pj)
		if err != nil {
			return res, fmt.Errorf("policy %q: %w", pj.Name, err)
		}
		if p.UseShifts && len(res.Shifts) == 0 {
			return res, fmt.Errorf("policy %q uses shifts but resource has none", pj.Name)
		}
		res.Policies = append(res.Policies, p)
	}

	return res, nil
}

// parseShifts validates that the shifts tile a whole day in order, so
// that shift walks can chain from any starting shift.
func parseShifts(sjs []ShiftJSON) (booking.ShiftSchedule, error) {
	if len(sjs) == 0 {
		return nil, nil
	}

	var schedule booking.ShiftSchedule
	var total time.Duration
	for _, sj := range sjs {
		if sj.Name == "" {
			return nil, fmt.Errorf("shift with empty name")
		}
		start, err := booking.ParseClock(sj.Start)
		if err != nil {
			return nil, fmt.Errorf("shift %q: bad start: %w", sj.Name, err)
		}
		end, err := booking.ParseClock(sj.End)
		if err != nil {
			return nil, fmt.Errorf("shift %q: bad end: %w", sj.Name, err)
		}
		weighting := sj.Weighting
		if weighting == 0 {
			weighting = 1
		}
		if weighting < 0 {
			return nil, fmt.Errorf("shift %q: negative weighting", sj.Name)
		}
		shift := booking.Shift{Name: sj.Name, Start: start, End: end, Weighting: weighting}
		total += shift.Span()
		schedule = append(schedule, shift)
	}

	for i, shift := range schedule {
		next := schedule[(i+1)%len(schedule)]
		if shift.End != next.Start {
			return nil, fmt.Errorf("shift %q ends at %s but %q starts at %s",
				shift.Name, shift.End, next.Name, next.Start)
		}
	}
	if total != 24*time.Hour {
		return nil, fmt.Errorf("shifts cover %s, want 24h", total)
	}

	return schedule, nil
}

// =============================================================================
// POLICY PARSING
// =============================================================================

func parsePolicy(pj PolicyJSON) (booking.Policy, error) {
	p := booking.Policy{
		Name:      pj.Name,
		UseShifts: pj.UseShifts,
		Weekdays:  booking.AllWeek(),
	}

	var err error
	if pj.AppliesTo != "" {
		p.AppliesToRole, err = parseRole(pj.AppliesTo)
		if err != nil {
			return p, fmt.Errorf("applies_to: %w", err)
		}
	}
	if pj.Booker != "" {
		p.BookerRole, err = parseRole(pj.Booker)
		if err != nil {
			return p, fmt.Errorf("booker: %w", err)
		}
	}

	if len(pj.Weekdays) > 0 {
		p.Weekdays, err = parseWeekdays(pj.Weekdays)
		if err != nil {
			return p, err
		}
	}

	p.WindowStart, err = booking.ParseClock(pj.WindowStart)
	if err != nil {
		return p, fmt.Errorf("bad window_start: %w", err)
	}
	p.WindowEnd, err = booking.ParseClock(pj.WindowEnd)
	if err != nil {
		return p, fmt.Errorf("bad window_end: %w", err)
	}
	if p.WindowEnd < p.WindowStart {
		return p, fmt.Errorf("window_end %s before window_start %s", p.WindowEnd, p.WindowStart)
	}

	p.Quantum, err = time.ParseDuration(pj.Quantum)
	if err != nil {
		return p, fmt.Errorf("bad quantum: %w", err)
	}
	if p.Quantum <= 0 {
		return p, fmt.Errorf("quantum must be positive, got %s", p.Quantum)
	}

	p.ImmutableWindow, err = optionalDuration(pj.ImmutableWindow, "immutable_window")
	if err != nil {
		return p, err
	}
	p.MaxForward, err = optionalDuration(pj.MaxForward, "max_forward")
	if err != nil {
		return p, err
	}
	if p.MaxForward != nil && *p.MaxForward <= 0 {
		return p, fmt.Errorf("max_forward must be positive, got %s", *p.MaxForward)
	}
	p.Quota, err = optionalDuration(pj.Quota, "quota")
	if err != nil {
		return p, err
	}
	if p.Quota != nil && *p.Quota <= 0 {
		return p, fmt.Errorf("quota must be positive, got %s", *p.Quota)
	}

	return p, nil
}

// optionalDuration parses an omitted field to nil. ImmutableWindow may
// legitimately be negative (advance notice), so signs are checked by
// the caller.
func optionalDuration(s, field string) (*time.Duration, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("bad %s: %w", field, err)
	}
	return &d, nil
}

func parseRole(s string) (booking.Role, error) {
	switch strings.ToLower(s) {
	case "none":
		return booking.RoleNone, nil
	case "user":
		return booking.RoleUser, nil
	case "staff":
		return booking.RoleStaff, nil
	case "admin":
		return booking.RoleAdmin, nil
	default:
		return booking.RoleNone, fmt.Errorf("unknown role %q", s)
	}
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func parseWeekdays(names []string) ([7]bool, error) {
	var mask [7]bool
	for _, name := range names {
		day, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return mask, fmt.Errorf("unknown weekday %q", name)
		}
		mask[day] = true
	}
	return mask, nil
}
