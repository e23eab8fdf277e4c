package fixture

import (
	"fmt"

	"github.com/derekprior/tourney/internal/tournament"
)

// Series is one round-robin group.
type Series struct {
	Key   string // "A", "B", ...
	Label string // "Series A"
	Teams []tournament.Team
}

// Pairing is one home/away fixture inside a round.
type Pairing struct {
	Home tournament.Team
	Away tournament.Team
}

// AssignSeries deals teams into series by index modulo the series count,
// keeping the input order inside each series. Callers sort teams first.
func AssignSeries(teams []tournament.Team, seriesCount int) []Series {
	if seriesCount < 1 {
		seriesCount = 1
	}
	series := make([]Series, seriesCount)
	for i := range series {
		series[i] = Series{Key: tournament.SeriesKey(i), Label: tournament.SeriesLabel(i)}
	}
	for i, team := range teams {
		s := &series[i%seriesCount]
		s.Teams = append(s.Teams, team)
	}
	return series
}

// RoundRobin pairs every team with every other team once using the circle
// method. The first team stays fixed while the rest rotate. Odd-sized groups
// get a bye that is dropped from the output, so a team sits out each round.
func RoundRobin(teams []tournament.Team) [][]Pairing {
	n := len(teams)
	if n < 2 {
		return nil
	}

	// -1 marks the bye.
	order := make([]int, n, n+1)
	for i := range order {
		order[i] = i
	}
	if n%2 == 1 {
		order = append(order, -1)
		n++
	}

	half := n / 2
	rounds := make([][]Pairing, 0, n-1)
	for range n - 1 {
		pairs := make([]Pairing, 0, half)
		for i := 0; i < half; i++ {
			home, away := order[i], order[n-1-i]
			if home < 0 || away < 0 {
				continue
			}
			pairs = append(pairs, Pairing{Home: teams[home], Away: teams[away]})
		}
		rounds = append(rounds, pairs)

		// Rotate everything but the fixed first position one step clockwise.
		rotated := make([]int, 0, n)
		rotated = append(rotated, order[0], order[n-1])
		rotated = append(rotated, order[1:n-1]...)
		order = rotated
	}
	return rounds
}

// GroupMatches generates the group-stage definitions for every series.
// IDs are assigned sequentially from firstID.
func GroupMatches(series []Series, firstID int) []tournament.MatchDefinition {
	var matches []tournament.MatchDefinition
	id := firstID
	for _, s := range series {
		for round, pairs := range RoundRobin(s.Teams) {
			for _, p := range pairs {
				matches = append(matches, tournament.MatchDefinition{
					ID:     id,
					Code:   fmt.Sprintf("GRP-%s-%d-%d", s.Key, round+1, id),
					Phase:  tournament.PhaseGroup,
					Series: s.Label,
					Round:  fmt.Sprintf("Ronda %d", round+1),
					Home:   tournament.Resolved(p.Home),
					Away:   tournament.Resolved(p.Away),
				})
				id++
			}
		}
	}
	return matches
}
