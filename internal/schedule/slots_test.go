package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/derekprior/tourney/internal/tournament"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func testRange(days int) tournament.DateRange {
	start := date(2026, 3, 2)
	return tournament.DateRange{Start: start, End: start.AddDate(0, 0, days-1)}
}

func testConfig() tournament.ScheduleConfig {
	return tournament.ScheduleConfig{
		DayStart:   tournament.NewClock(8, 0),
		DayEnd:     tournament.NewClock(12, 0),
		MatchHours: 2,
		RestDays:   0,
	}
}

func testVenues() []tournament.Venue {
	// Deliberately out of id order.
	return []tournament.Venue{{ID: 2, Name: "Cancha Norte"}, {ID: 1, Name: "Coliseo"}}
}

func TestBuildSlots(t *testing.T) {
	slots, err := BuildSlots(testRange(3), testConfig(), testVenues())
	if err != nil {
		t.Fatalf("BuildSlots error: %v", err)
	}

	t.Run("one slot per day, start and venue", func(t *testing.T) {
		// 3 days × 2 starts × 2 venues
		if len(slots) != 12 {
			t.Fatalf("slots = %d, want 12", len(slots))
		}
	})

	t.Run("starts step by match duration", func(t *testing.T) {
		first, second := slots[0], slots[2]
		if first.Start.String() != "08:00" || first.End.String() != "10:00" {
			t.Errorf("first slot = %s-%s, want 08:00-10:00", first.Start, first.End)
		}
		if second.Start.String() != "10:00" || second.TimeIndex != 1 {
			t.Errorf("second start = %s (index %d), want 10:00 (index 1)", second.Start, second.TimeIndex)
		}
	})

	t.Run("last match ends inside the window", func(t *testing.T) {
		for _, s := range slots {
			if s.End > testConfig().DayEnd {
				t.Errorf("slot %d ends at %s, after day end", s.Index, s.End)
			}
		}
	})

	t.Run("ordered by date, start, venue id", func(t *testing.T) {
		for i, s := range slots {
			if s.Index != i {
				t.Errorf("slot %d has index %d", i, s.Index)
			}
			if i == 0 {
				continue
			}
			prev := slots[i-1]
			if s.Day < prev.Day {
				t.Errorf("slot %d day %d before slot %d day %d", i, s.Day, i-1, prev.Day)
			}
			if s.Day == prev.Day && s.Start == prev.Start && s.Venue.ID <= prev.Venue.ID {
				t.Errorf("slot %d venue %d not after venue %d", i, s.Venue.ID, prev.Venue.ID)
			}
		}
		if slots[0].Venue.ID != 1 {
			t.Errorf("first venue = %d, want 1", slots[0].Venue.ID)
		}
	})

	t.Run("day offsets match dates", func(t *testing.T) {
		last := slots[len(slots)-1]
		if last.Day != 2 || !last.Date.Equal(date(2026, 3, 4)) {
			t.Errorf("last slot day %d date %s", last.Day, last.Date.Format("2006-01-02"))
		}
	})
}

func TestBuildSlotsAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("no tz database: %v", err)
	}
	r := tournament.DateRange{
		Start: time.Date(2026, 3, 2, 0, 0, 0, 0, loc),
		End:   time.Date(2026, 3, 9, 0, 0, 0, 0, loc),
	}
	venues := []tournament.Venue{{ID: 1, Name: "Coliseo"}}
	slots, err := BuildSlots(r, testConfig(), venues)
	if err != nil {
		t.Fatalf("BuildSlots error: %v", err)
	}
	// 8 days × 2 starts
	if len(slots) != 16 {
		t.Fatalf("slots = %d, want 16", len(slots))
	}
	last := slots[len(slots)-1]
	if last.Day != 7 || last.Date.Day() != 9 {
		t.Errorf("last slot day %d date %s, want day 7 on 2026-03-09", last.Day, last.Date.Format("2006-01-02"))
	}
}

func TestBuildSlotsErrors(t *testing.T) {
	inverted := tournament.DateRange{Start: date(2026, 3, 5), End: date(2026, 3, 1)}
	short := testConfig()
	short.DayEnd = tournament.NewClock(9, 0)
	late := testConfig()
	late.DayEnd = tournament.NewClock(26, 0)

	tests := []struct {
		name   string
		r      tournament.DateRange
		cfg    tournament.ScheduleConfig
		venues []tournament.Venue
	}{
		{"inverted range", inverted, testConfig(), testVenues()},
		{"window shorter than a match", testRange(3), short, testVenues()},
		{"no venues", testRange(3), testConfig(), nil},
		{"day end past midnight", testRange(3), late, testVenues()},
		{"repeated venue id", testRange(3), testConfig(), append(testVenues(), tournament.Venue{ID: 1, Name: "Gimnasio"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildSlots(tt.r, tt.cfg, tt.venues); !errors.Is(err, tournament.ErrConfiguration) {
				t.Errorf("error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestExcludeOccupied(t *testing.T) {
	slots, _ := BuildSlots(testRange(2), testConfig(), testVenues())
	existing := []tournament.ScheduledMatch{
		{Date: date(2026, 3, 2), Start: tournament.NewClock(8, 0), Venue: tournament.Venue{ID: 1}},
		{Date: date(2026, 3, 3), Start: tournament.NewClock(10, 0), Venue: tournament.Venue{ID: 2}},
		// Outside the slot range; ignored.
		{Date: date(2026, 4, 1), Start: tournament.NewClock(8, 0), Venue: tournament.Venue{ID: 1}},
	}

	free := ExcludeOccupied(slots, Occupancy(existing))
	if len(free) != len(slots)-2 {
		t.Fatalf("free slots = %d, want %d", len(free), len(slots)-2)
	}
	occupied := Occupancy(existing)
	for i, s := range free {
		if s.Index != i {
			t.Errorf("free slot %d has index %d", i, s.Index)
		}
		if occupied[keyOf(s.Date, s.Start, s.Venue.ID)] {
			t.Errorf("occupied slot %s %s venue %d survived", s.Date.Format("2006-01-02"), s.Start, s.Venue.ID)
		}
	}
}

func TestSortMatches(t *testing.T) {
	matches := []tournament.ScheduledMatch{
		{Date: date(2026, 3, 3), Start: tournament.NewClock(8, 0), Venue: tournament.Venue{ID: 1}},
		{Date: date(2026, 3, 2), Start: tournament.NewClock(10, 0), Venue: tournament.Venue{ID: 2}},
		{Date: date(2026, 3, 2), Start: tournament.NewClock(10, 0), Venue: tournament.Venue{ID: 1}},
		{Date: date(2026, 3, 2), Start: tournament.NewClock(8, 0), Venue: tournament.Venue{ID: 2}},
	}
	SortMatches(matches)

	want := []struct{ day, start, venue int }{{2, 8, 2}, {2, 10, 1}, {2, 10, 2}, {3, 8, 1}}
	for i, w := range want {
		m := matches[i]
		if m.Date.Day() != w.day || m.Start.Hour() != w.start || m.Venue.ID != w.venue {
			t.Errorf("match %d = day %d %s venue %d", i, m.Date.Day(), m.Start, m.Venue.ID)
		}
	}
}
