package fixture

import (
	"fmt"
	"strings"

	"github.com/derekprior/tourney/internal/tournament"
)

const (
	firstPlacePrefix  = "1° "
	secondPlacePrefix = "2° "
	wildcardPrefix    = "Clasificado #"
	winnerPrefix      = "Winner "
	loserPrefix       = "Loser "

	CodeFinal      = "FINAL"
	CodeThirdPlace = "THIRD"
)

// FirstPlace is the seed label of a series winner ("1° Series A").
func FirstPlace(seriesLabel string) string { return firstPlacePrefix + seriesLabel }

// SecondPlace is the seed label of a series runner-up.
func SecondPlace(seriesLabel string) string { return secondPlacePrefix + seriesLabel }

// Wildcard is the seed label of the k-th best remaining team overall.
func Wildcard(k int) string { return fmt.Sprintf("%s%d", wildcardPrefix, k) }

// WinnerOf is the placeholder for the winner of the match with the given code.
func WinnerOf(code string) string { return winnerPrefix + code }

// LoserOf is the placeholder for the loser of the match with the given code.
func LoserOf(code string) string { return loserPrefix + code }

// SeedKind classifies a placeholder label.
type SeedKind int

const (
	SeedUnknown SeedKind = iota
	SeedFirstPlace
	SeedSecondPlace
	SeedWildcard
	SeedWinner
	SeedLoser
)

// ParseSeed splits a placeholder label into its kind and argument: the series
// label for place seeds, the rank for wildcards, or the match code for
// winner/loser references.
func ParseSeed(label string) (SeedKind, string) {
	label = strings.TrimSpace(label)
	switch {
	case strings.HasPrefix(label, firstPlacePrefix):
		return SeedFirstPlace, strings.TrimSpace(strings.TrimPrefix(label, firstPlacePrefix))
	case strings.HasPrefix(label, secondPlacePrefix):
		return SeedSecondPlace, strings.TrimSpace(strings.TrimPrefix(label, secondPlacePrefix))
	case strings.HasPrefix(strings.ToLower(label), strings.ToLower(wildcardPrefix)):
		return SeedWildcard, strings.TrimSpace(label[len(wildcardPrefix):])
	case strings.HasPrefix(label, winnerPrefix):
		return SeedWinner, strings.TrimSpace(strings.TrimPrefix(label, winnerPrefix))
	case strings.HasPrefix(label, loserPrefix):
		return SeedLoser, strings.TrimSpace(strings.TrimPrefix(label, loserPrefix))
	}
	return SeedUnknown, label
}

// SeedLabels lists the bracket entry labels in seed order: every series
// winner, then runners-up, then wildcards from the global ranking until total
// slots are filled.
func SeedLabels(seriesLabels []string, total int) []string {
	seeds := make([]string, 0, total)
	for _, s := range seriesLabels {
		seeds = append(seeds, FirstPlace(s))
	}
	for _, s := range seriesLabels {
		if len(seeds) >= total {
			break
		}
		seeds = append(seeds, SecondPlace(s))
	}
	for k := 1; len(seeds) < total; k++ {
		seeds = append(seeds, Wildcard(k))
	}
	return seeds[:total]
}

type bracketSlot struct {
	code  string
	phase tournament.Phase
	round string
	home  string
	away  string
}

// Bracket builds the playoff skeleton for 4 or 8 teams. Every participant is
// a placeholder; seeds are resolved later from standings and results. A
// playoff size of zero yields no matches.
func Bracket(playoffTeams int, seriesLabels []string, firstID int) []tournament.MatchDefinition {
	var slots []bracketSlot
	switch playoffTeams {
	case 4:
		seeds := SeedLabels(seriesLabels, 4)
		slots = []bracketSlot{
			{"SF1", tournament.PhaseSemifinal, "Semifinal 1", seeds[0], seeds[3]},
			{"SF2", tournament.PhaseSemifinal, "Semifinal 2", seeds[1], seeds[2]},
		}
	case 8:
		seeds := SeedLabels(seriesLabels, 8)
		slots = []bracketSlot{
			{"QF1", tournament.PhaseQuarterfinal, "Quarterfinal 1", seeds[0], seeds[7]},
			{"QF2", tournament.PhaseQuarterfinal, "Quarterfinal 2", seeds[3], seeds[4]},
			{"QF3", tournament.PhaseQuarterfinal, "Quarterfinal 3", seeds[1], seeds[6]},
			{"QF4", tournament.PhaseQuarterfinal, "Quarterfinal 4", seeds[2], seeds[5]},
			{"SF1", tournament.PhaseSemifinal, "Semifinal 1", WinnerOf("QF1"), WinnerOf("QF4")},
			{"SF2", tournament.PhaseSemifinal, "Semifinal 2", WinnerOf("QF2"), WinnerOf("QF3")},
		}
	default:
		return nil
	}
	slots = append(slots,
		bracketSlot{CodeFinal, tournament.PhaseFinal, "Final", WinnerOf("SF1"), WinnerOf("SF2")},
		bracketSlot{CodeThirdPlace, tournament.PhaseThirdPlace, "Third place", LoserOf("SF1"), LoserOf("SF2")},
	)

	matches := make([]tournament.MatchDefinition, 0, len(slots))
	for i, s := range slots {
		matches = append(matches, tournament.MatchDefinition{
			ID:      firstID + i,
			Code:    s.code,
			Phase:   s.phase,
			Round:   s.round,
			Home:    tournament.Placeholder(s.home),
			Away:    tournament.Placeholder(s.away),
			Playoff: true,
		})
	}
	return matches
}

// BuildMatches generates every definition of the tournament: group matches
// first, then the bracket, with contiguous IDs starting at zero. The output
// is deterministic for a given team order.
func BuildMatches(structure tournament.Structure, series []Series) []tournament.MatchDefinition {
	matches := GroupMatches(series, 0)
	labels := make([]string, len(series))
	for i, s := range series {
		labels[i] = s.Label
	}
	return append(matches, Bracket(structure.PlayoffTeams, labels, len(matches))...)
}
