package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/derekprior/tourney/internal/tournament"
)

const minutesPerDay = 24 * 60

// BuildSlots enumerates every (date, start, venue) unit between r.Start and
// r.End inclusive. Starts step by the match duration from the day start and
// stop at the last start whose match still ends inside the window. Slots are
// ordered by date, start, then venue id, and indexed in that order.
func BuildSlots(r tournament.DateRange, cfg tournament.ScheduleConfig, venues []tournament.Venue) ([]tournament.Slot, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(venues) == 0 {
		return nil, fmt.Errorf("%w: at least one venue is required", tournament.ErrConfiguration)
	}
	if cfg.DayEnd > minutesPerDay {
		return nil, fmt.Errorf("%w: day end %s is past midnight", tournament.ErrConfiguration, cfg.DayEnd)
	}

	ordered := make([]tournament.Venue, len(venues))
	copy(ordered, venues)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].ID == ordered[i-1].ID {
			return nil, fmt.Errorf("%w: venue id %d is used by %q and %q",
				tournament.ErrConfiguration, ordered[i].ID, ordered[i-1].Name, ordered[i].Name)
		}
	}

	duration := tournament.Clock(cfg.MatchMinutes())
	perDay := cfg.SlotsPerDay()
	days := r.Days()

	slots := make([]tournament.Slot, 0, days*perDay*len(ordered))
	for day := range days {
		d := r.Start.AddDate(0, 0, day)
		for ti := range perDay {
			start := cfg.DayStart + tournament.Clock(ti)*duration
			for _, v := range ordered {
				slots = append(slots, tournament.Slot{
					Index:     len(slots),
					Day:       day,
					TimeIndex: ti,
					Date:      d,
					Start:     start,
					End:       start + duration,
					Venue:     v,
				})
			}
		}
	}
	return slots, nil
}

// SlotKey identifies a bookable unit independently of its index.
type SlotKey struct {
	Date    time.Time
	Start   tournament.Clock
	VenueID int
}

func keyOf(d time.Time, start tournament.Clock, venueID int) SlotKey {
	y, m, day := d.Date()
	return SlotKey{Date: time.Date(y, m, day, 0, 0, 0, 0, time.UTC), Start: start, VenueID: venueID}
}

// Occupancy returns the set of units already taken by existing matches.
func Occupancy(matches []tournament.ScheduledMatch) map[SlotKey]bool {
	occupied := make(map[SlotKey]bool, len(matches))
	for _, m := range matches {
		occupied[keyOf(m.Date, m.Start, m.Venue.ID)] = true
	}
	return occupied
}

// ExcludeOccupied drops slots that collide with an occupied unit and
// re-indexes the survivors so Index stays contiguous.
func ExcludeOccupied(slots []tournament.Slot, occupied map[SlotKey]bool) []tournament.Slot {
	free := make([]tournament.Slot, 0, len(slots))
	for _, s := range slots {
		if occupied[keyOf(s.Date, s.Start, s.Venue.ID)] {
			continue
		}
		s.Index = len(free)
		free = append(free, s)
	}
	return free
}

// SortMatches orders scheduled matches by date, start time, then venue id.
func SortMatches(matches []tournament.ScheduledMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Venue.ID < b.Venue.ID
	})
}
