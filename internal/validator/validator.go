package validator

import (
	"fmt"
	"sort"
	"time"

	"github.com/derekprior/tourney/internal/config"
	"github.com/derekprior/tourney/internal/excel"
	"github.com/derekprior/tourney/internal/tournament"
)

// Violation represents a constraint violation found during validation.
type Violation struct {
	Code    string // match code; empty for tournament-wide findings
	Type    string // "error" or "warning"
	Message string
}

// Validate reads a schedule workbook and checks it against the config rules.
func Validate(cfg *config.Config, path string) ([]Violation, error) {
	matches, err := excel.ReadMatches(path)
	if err != nil {
		return nil, fmt.Errorf("reading matches: %w", err)
	}
	return Check(cfg, matches), nil
}

// Check runs every rule over an in-memory calendar.
func Check(cfg *config.Config, matches []tournament.ScheduledMatch) []Violation {
	var violations []Violation

	// Hard constraints
	violations = append(violations, checkSlotConflicts(matches)...)
	violations = append(violations, checkWindow(cfg, matches)...)
	violations = append(violations, checkRestDays(cfg, matches)...)
	violations = append(violations, checkPhaseOrder(matches)...)
	violations = append(violations, checkResults(matches)...)

	// Fixture completeness
	violations = append(violations, checkRoundRobin(cfg, matches)...)
	return violations
}

func errorf(code, format string, args ...interface{}) Violation {
	return Violation{Code: code, Type: "error", Message: fmt.Sprintf(format, args...)}
}

func warnf(code, format string, args ...interface{}) Violation {
	return Violation{Code: code, Type: "warning", Message: fmt.Sprintf(format, args...)}
}

func day(t time.Time) string { return t.Format("2006-01-02") }

func checkSlotConflicts(matches []tournament.ScheduledMatch) []Violation {
	type slotKey struct {
		date  string
		start tournament.Clock
		venue int
	}
	seen := make(map[slotKey]string)
	var violations []Violation
	for _, m := range matches {
		key := slotKey{day(m.Date), m.Start, m.Venue.ID}
		if prev, ok := seen[key]; ok {
			violations = append(violations, errorf(m.Code,
				"%s shares %s %s at %s with %s", m.Code, key.date, m.Start, m.Venue.Name, prev))
			continue
		}
		seen[key] = m.Code
	}
	return violations
}

func checkWindow(cfg *config.Config, matches []tournament.ScheduledMatch) []Violation {
	r := cfg.Range()
	sc := cfg.ScheduleConfig()
	venues := make(map[int]bool)
	for _, v := range cfg.Venues {
		venues[v.ID] = true
	}

	var violations []Violation
	for _, m := range matches {
		if m.Date.Before(r.Start) || m.Date.After(r.End) {
			violations = append(violations, errorf(m.Code,
				"%s is on %s, outside the championship %s to %s", m.Code, day(m.Date), day(r.Start), day(r.End)))
		}
		offset := int(m.Start - sc.DayStart)
		if m.Start < sc.DayStart || m.Start+tournament.Clock(sc.MatchMinutes()) > sc.DayEnd {
			violations = append(violations, errorf(m.Code,
				"%s starts at %s, outside the %s-%s window", m.Code, m.Start, sc.DayStart, sc.DayEnd))
		} else if offset%sc.MatchMinutes() != 0 {
			violations = append(violations, warnf(m.Code,
				"%s starts at %s, off the %d-hour slot grid", m.Code, m.Start, sc.MatchHours))
		}
		if m.End-m.Start != tournament.Clock(sc.MatchMinutes()) {
			violations = append(violations, warnf(m.Code,
				"%s runs %s-%s, expected %d hours", m.Code, m.Start, m.End, sc.MatchHours))
		}
		if !venues[m.Venue.ID] {
			violations = append(violations, errorf(m.Code,
				"%s uses unknown venue %d (%s)", m.Code, m.Venue.ID, m.Venue.Name))
		}
	}
	return violations
}

// checkRestDays requires RestDays full days between two matches of a team,
// which also rules out two matches on one day.
func checkRestDays(cfg *config.Config, matches []tournament.ScheduledMatch) []Violation {
	type game struct {
		date time.Time
		code string
	}
	byTeam := make(map[int][]game)
	names := make(map[int]string)
	for _, m := range matches {
		for _, t := range m.Teams() {
			byTeam[t.ID] = append(byTeam[t.ID], game{m.Date, m.Code})
			names[t.ID] = t.Name
		}
	}

	ids := make([]int, 0, len(byTeam))
	for id := range byTeam {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rest := cfg.Schedule.RestDays
	var violations []Violation
	for _, id := range ids {
		games := byTeam[id]
		sort.SliceStable(games, func(i, j int) bool { return games[i].date.Before(games[j].date) })
		for i := 1; i < len(games); i++ {
			gap := tournament.DaysBetween(games[i-1].date, games[i].date)
			if gap == 0 {
				violations = append(violations, errorf(games[i].code,
					"%s plays %s and %s on %s", names[id], games[i-1].code, games[i].code, day(games[i].date)))
			} else if gap-1 < rest {
				violations = append(violations, errorf(games[i].code,
					"%s has %d rest days between %s and %s, needs %d", names[id], gap-1, games[i-1].code, games[i].code, rest))
			}
		}
	}
	return violations
}

func phaseRank(p tournament.Phase) int {
	switch p {
	case tournament.PhaseGroup:
		return 0
	case tournament.PhaseQuarterfinal:
		return 1
	case tournament.PhaseSemifinal:
		return 2
	default:
		return 3
	}
}

// checkPhaseOrder requires every match of a phase to be played on a later
// day than all matches of the phases before it.
func checkPhaseOrder(matches []tournament.ScheduledMatch) []Violation {
	last := make(map[int]time.Time)
	for _, m := range matches {
		r := phaseRank(m.Phase)
		if d, ok := last[r]; !ok || m.Date.After(d) {
			last[r] = m.Date
		}
	}

	var violations []Violation
	for _, m := range matches {
		r := phaseRank(m.Phase)
		for earlier := 0; earlier < r; earlier++ {
			d, ok := last[earlier]
			if ok && !m.Date.After(d) {
				violations = append(violations, errorf(m.Code,
					"%s (%s) on %s is not after the last %s match on %s",
					m.Code, m.Phase, day(m.Date), rankName(earlier), day(d)))
				break
			}
		}
	}
	return violations
}

func rankName(r int) string {
	switch r {
	case 0:
		return "group"
	case 1:
		return "quarterfinal"
	default:
		return "semifinal"
	}
}

func checkResults(matches []tournament.ScheduledMatch) []Violation {
	var violations []Violation
	for _, m := range matches {
		if !m.Finalized() {
			if m.HasScores() {
				violations = append(violations, warnf(m.Code, "%s has scores but is not finalized", m.Code))
			}
			continue
		}
		if !m.Home.IsResolved() || !m.Away.IsResolved() {
			violations = append(violations, errorf(m.Code,
				"%s is finalized but %s vs %s is not resolved", m.Code, m.Home.Name(), m.Away.Name()))
			continue
		}
		if m.Playoff {
			if _, ok := m.Winner(); !ok {
				violations = append(violations, errorf(m.Code, "playoff match %s has no winner", m.Code))
			}
		}
		if m.WinnerID != nil && !m.Involves(*m.WinnerID) {
			violations = append(violations, errorf(m.Code,
				"%s names winner %d, who does not play in it", m.Code, *m.WinnerID))
		}
	}
	return violations
}

// checkRoundRobin verifies that every pair within a series meets exactly once
// and that every configured team has group matches.
func checkRoundRobin(cfg *config.Config, matches []tournament.ScheduledMatch) []Violation {
	type pair struct{ a, b int }
	members := make(map[string]map[int]string)
	played := make(map[string]map[pair]string)
	var violations []Violation

	for _, m := range matches {
		if m.Phase != tournament.PhaseGroup {
			continue
		}
		teams := m.Teams()
		if len(teams) != 2 {
			violations = append(violations, errorf(m.Code, "group match %s has unresolved participants", m.Code))
			continue
		}
		if members[m.Series] == nil {
			members[m.Series] = make(map[int]string)
			played[m.Series] = make(map[pair]string)
		}
		for _, t := range teams {
			members[m.Series][t.ID] = t.Name
		}
		p := pair{teams[0].ID, teams[1].ID}
		if p.a > p.b {
			p.a, p.b = p.b, p.a
		}
		if prev, ok := played[m.Series][p]; ok {
			violations = append(violations, errorf(m.Code,
				"%s repeats %s: %s vs %s", m.Code, prev, teams[0].Name, teams[1].Name))
			continue
		}
		played[m.Series][p] = m.Code
	}

	labels := make([]string, 0, len(members))
	for label := range members {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		ids := make([]int, 0, len(members[label]))
		for id := range members[label] {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				if _, ok := played[label][pair{ids[i], ids[j]}]; !ok {
					violations = append(violations, warnf("",
						"%s: %s and %s never meet", label, members[label][ids[i]], members[label][ids[j]]))
				}
			}
		}
	}

	if len(members) > 0 {
		inGroup := make(map[int]bool)
		for _, m := range members {
			for id := range m {
				inGroup[id] = true
			}
		}
		for _, t := range cfg.Teams {
			if !inGroup[t.ID] {
				violations = append(violations, warnf("", "%s has no group matches", t.Name))
			}
		}
		if s, err := tournament.ResolveStructure(len(cfg.Teams)); err == nil && s.Series != len(members) {
			violations = append(violations, warnf("",
				"%d teams should play in %d series, found %d", len(cfg.Teams), s.Series, len(members)))
		}
	}
	return violations
}
