package tournament

import "fmt"

const (
	MinTeams = 2
	MaxTeams = 25
)

// Structure is the tournament shape derived from the team count.
type Structure struct {
	Series       int
	PlayoffTeams int // 0, 4 or 8
}

// ResolveStructure maps a team count onto series and playoff size.
func ResolveStructure(teamCount int) (Structure, error) {
	switch {
	case teamCount >= 2 && teamCount <= 7:
		return Structure{Series: 1, PlayoffTeams: 0}, nil
	case teamCount >= 8 && teamCount <= 11:
		return Structure{Series: 2, PlayoffTeams: 4}, nil
	case teamCount >= 12 && teamCount <= 15:
		return Structure{Series: 3, PlayoffTeams: 8}, nil
	case teamCount >= 16 && teamCount <= 19:
		return Structure{Series: 4, PlayoffTeams: 8}, nil
	case teamCount >= 20 && teamCount <= 25:
		return Structure{Series: 5, PlayoffTeams: 8}, nil
	}
	return Structure{}, fmt.Errorf("%w: automatic scheduling supports %d to %d teams, got %d",
		ErrCapacity, MinTeams, MaxTeams, teamCount)
}

const seriesLetters = "ABCDE"

// SeriesKey is the short key of the i-th series ("A", "B", ...). Past the
// fifth series it falls back to the 1-based number.
func SeriesKey(i int) string {
	if i < len(seriesLetters) {
		return string(seriesLetters[i])
	}
	return fmt.Sprintf("%d", i+1)
}

// SeriesLabel is the display label of the i-th series ("Series A").
func SeriesLabel(i int) string {
	return "Series " + SeriesKey(i)
}

// StageSequence returns the fixed order in which phases are played.
func StageSequence(playoffTeams int) []Phase {
	switch playoffTeams {
	case 4:
		return []Phase{PhaseGroup, PhaseSemifinal, PhaseFinal, PhaseThirdPlace}
	case 8:
		return []Phase{PhaseGroup, PhaseQuarterfinal, PhaseSemifinal, PhaseFinal, PhaseThirdPlace}
	default:
		return []Phase{PhaseGroup, PhaseFinal}
	}
}
