package tournament

import (
	"fmt"
	"time"
)

// Venue is a court or field where matches are played.
type Venue struct {
	ID   int
	Name string
}

// ScheduleConfig describes the daily playing window and spacing rules.
type ScheduleConfig struct {
	DayStart   Clock
	DayEnd     Clock
	MatchHours int
	RestDays   int // full days required between two matches of one team
}

// MatchMinutes is the length of one match in minutes.
func (c ScheduleConfig) MatchMinutes() int {
	return c.MatchHours * 60
}

// SlotsPerDay is how many back-to-back matches fit into the daily window.
func (c ScheduleConfig) SlotsPerDay() int {
	if c.MatchMinutes() <= 0 || c.DayEnd <= c.DayStart {
		return 0
	}
	return int(c.DayEnd-c.DayStart) / c.MatchMinutes()
}

// Validate checks that the window fits at least one match.
func (c ScheduleConfig) Validate() error {
	if c.MatchHours <= 0 {
		return fmt.Errorf("%w: match duration must be positive, got %d hours", ErrConfiguration, c.MatchHours)
	}
	if c.RestDays < 0 {
		return fmt.Errorf("%w: rest days must not be negative, got %d", ErrConfiguration, c.RestDays)
	}
	if c.DayEnd <= c.DayStart {
		return fmt.Errorf("%w: day end %s must be after day start %s", ErrConfiguration, c.DayEnd, c.DayStart)
	}
	if c.SlotsPerDay() == 0 {
		return fmt.Errorf("%w: window %s-%s is shorter than one %d-hour match",
			ErrConfiguration, c.DayStart, c.DayEnd, c.MatchHours)
	}
	return nil
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate rejects inverted ranges.
func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: championship end %s is before start %s",
			ErrConfiguration, r.End.Format("2006-01-02"), r.Start.Format("2006-01-02"))
	}
	return nil
}

// Days returns the number of calendar days covered by the range.
func (r DateRange) Days() int {
	return DaysBetween(r.Start, r.End) + 1
}

// DaysBetween counts the calendar days from one date to another, ignoring
// the time of day and any DST shift in between.
func DaysBetween(from, to time.Time) int {
	midnight := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return int(midnight(to).Sub(midnight(from)) / (24 * time.Hour))
}

// Slot is one bookable (date, start, venue) unit.
type Slot struct {
	Index     int
	Day       int // days since the first day of the slot range
	TimeIndex int
	Date      time.Time
	Start     Clock
	End       Clock
	Venue     Venue
}

// Phase is one layer of the tournament.
type Phase string

const (
	PhaseGroup        Phase = "group"
	PhaseQuarterfinal Phase = "quarterfinal"
	PhaseSemifinal    Phase = "semifinal"
	PhaseFinal        Phase = "final"
	PhaseThirdPlace   Phase = "third_place"
)

// MatchDefinition is an abstract match before it is bound to a slot.
type MatchDefinition struct {
	ID      int
	Code    string // referenced by "Winner <code>" / "Loser <code>"
	Phase   Phase
	Series  string
	Round   string
	Home    Participant
	Away    Participant
	Playoff bool
}

// Teams returns the resolved teams playing in the match.
func (m MatchDefinition) Teams() []Team {
	var teams []Team
	for _, p := range []Participant{m.Home, m.Away} {
		if t, ok := p.Team(); ok {
			teams = append(teams, t)
		}
	}
	return teams
}

// Involves reports whether the team plays in the match.
func (m MatchDefinition) Involves(teamID int) bool {
	return m.Home.Is(teamID) || m.Away.Is(teamID)
}

// MatchState is the lifecycle state of a scheduled match.
type MatchState string

const (
	StateScheduled MatchState = "scheduled"
	StateFinalized MatchState = "finalized"
)

// ScheduledMatch is a match bound to a date, time and venue, plus its outcome.
type ScheduledMatch struct {
	MatchDefinition
	Date      time.Time
	Start     Clock
	End       Clock
	Venue     Venue
	HomeScore *int
	AwayScore *int
	WinnerID  *int
	State     MatchState
}

// Finalized reports whether a final result has been registered.
func (m ScheduledMatch) Finalized() bool {
	return m.State == StateFinalized
}

// HasScores reports whether both scores are recorded.
func (m ScheduledMatch) HasScores() bool {
	return m.HomeScore != nil && m.AwayScore != nil
}

// Winner returns the winning team of a finalized match. An explicit winner id
// takes precedence over the scores; a draw has no winner.
func (m ScheduledMatch) Winner() (Team, bool) {
	if !m.Finalized() {
		return Team{}, false
	}
	home, homeOK := m.Home.Team()
	away, awayOK := m.Away.Team()
	if !homeOK || !awayOK {
		return Team{}, false
	}
	if m.WinnerID != nil {
		switch *m.WinnerID {
		case home.ID:
			return home, true
		case away.ID:
			return away, true
		}
	}
	if !m.HasScores() || *m.HomeScore == *m.AwayScore {
		return Team{}, false
	}
	if *m.HomeScore > *m.AwayScore {
		return home, true
	}
	return away, true
}

// Loser returns the losing team of a finalized match.
func (m ScheduledMatch) Loser() (Team, bool) {
	winner, ok := m.Winner()
	if !ok {
		return Team{}, false
	}
	for _, t := range m.Teams() {
		if t.ID != winner.ID {
			return t, true
		}
	}
	return Team{}, false
}

// TeamStanding is a derived summary of one team's group results.
type TeamStanding struct {
	Team         Team
	Series       string
	Played       int
	Points       int
	Wins         int
	Draws        int
	Losses       int
	GoalsFor     int
	GoalsAgainst int
}

func (s TeamStanding) GoalDiff() int {
	return s.GoalsFor - s.GoalsAgainst
}
