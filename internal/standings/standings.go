package standings

import (
	"sort"
	"strings"

	"github.com/derekprior/tourney/internal/tournament"
)

// DefaultSeries groups standings of group matches that carry no series label.
const DefaultSeries = "General"

const (
	pointsWin  = 3
	pointsDraw = 1
)

// Compute derives per-series standings from group matches. Every resolved
// team that appears in a group match is listed, even before it has a
// result. Goals count once both scores are recorded; points and the
// win/draw/loss record count only for finalized matches.
func Compute(matches []tournament.ScheduledMatch) map[string][]tournament.TeamStanding {
	rows := make(map[int]*tournament.TeamStanding)
	var order []int

	row := func(team tournament.Team, series string) *tournament.TeamStanding {
		if s, ok := rows[team.ID]; ok {
			return s
		}
		s := &tournament.TeamStanding{Team: team, Series: series}
		rows[team.ID] = s
		order = append(order, team.ID)
		return s
	}

	for _, m := range matches {
		if m.Phase != tournament.PhaseGroup {
			continue
		}
		series := m.Series
		if series == "" {
			series = DefaultSeries
		}

		home, homeOK := m.Home.Team()
		away, awayOK := m.Away.Team()
		var hs, as *tournament.TeamStanding
		if homeOK {
			hs = row(home, series)
		}
		if awayOK {
			as = row(away, series)
		}
		if !m.HasScores() {
			continue
		}
		hg, ag := *m.HomeScore, *m.AwayScore
		if hs != nil {
			hs.GoalsFor += hg
			hs.GoalsAgainst += ag
		}
		if as != nil {
			as.GoalsFor += ag
			as.GoalsAgainst += hg
		}

		if !m.Finalized() || hs == nil || as == nil {
			continue
		}
		hs.Played++
		as.Played++
		switch {
		case hg == ag:
			hs.Draws++
			as.Draws++
			hs.Points += pointsDraw
			as.Points += pointsDraw
		case hg > ag:
			hs.Wins++
			as.Losses++
			hs.Points += pointsWin
		default:
			as.Wins++
			hs.Losses++
			as.Points += pointsWin
		}
	}

	bySeries := make(map[string][]tournament.TeamStanding)
	for _, id := range order {
		s := rows[id]
		bySeries[s.Series] = append(bySeries[s.Series], *s)
	}
	for _, table := range bySeries {
		Sort(table)
	}
	return bySeries
}

// Sort orders standings by points, goal difference, goals for and wins,
// all descending, then by case-insensitive name and id.
func Sort(rows []tournament.TeamStanding) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDiff() != b.GoalDiff() {
			return a.GoalDiff() > b.GoalDiff()
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		an, bn := strings.ToLower(a.Team.Name), strings.ToLower(b.Team.Name)
		if an != bn {
			return an < bn
		}
		return a.Team.ID < b.Team.ID
	})
}

// Global merges every series into one ranking with the standings order.
func Global(bySeries map[string][]tournament.TeamStanding) []tournament.TeamStanding {
	var all []tournament.TeamStanding
	for _, label := range seriesLabels(bySeries) {
		all = append(all, bySeries[label]...)
	}
	Sort(all)
	return all
}

// Table is one series' standings.
type Table struct {
	Series string
	Rows   []tournament.TeamStanding
}

// Tables lists the series tables ordered by series label.
func Tables(bySeries map[string][]tournament.TeamStanding) []Table {
	labels := seriesLabels(bySeries)
	tables := make([]Table, 0, len(labels))
	for _, label := range labels {
		tables = append(tables, Table{Series: label, Rows: bySeries[label]})
	}
	return tables
}

func seriesLabels(bySeries map[string][]tournament.TeamStanding) []string {
	labels := make([]string, 0, len(bySeries))
	for label := range bySeries {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
