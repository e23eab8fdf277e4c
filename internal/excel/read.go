package excel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/derekprior/tourney/internal/config"
	"github.com/derekprior/tourney/internal/tournament"
)

// ReadMatches opens a workbook written by Generate and returns its matches,
// including any scores entered by hand.
func ReadMatches(path string) ([]tournament.ScheduledMatch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return ReadMatchesFrom(f)
}

// RowError locates a malformed row of the Matches sheet.
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d, %s: %v", MatchesSheet, e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ReadMatchesFrom reads the Matches sheet of an open workbook.
func ReadMatchesFrom(f *excelize.File) ([]tournament.ScheduledMatch, error) {
	rows, err := f.GetRows(MatchesSheet)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", MatchesSheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", MatchesSheet)
	}

	index := make(map[string]int)
	for i, h := range rows[0] {
		index[strings.TrimSpace(h)] = i
	}
	for _, name := range matchColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%s has no %q column", MatchesSheet, name)
		}
	}

	var matches []tournament.ScheduledMatch
	for i, row := range rows[1:] {
		r := rowReader{row: row, index: index, number: i + 2}
		if r.blank() {
			continue
		}
		m, err := r.match()
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

type rowReader struct {
	row    []string
	index  map[string]int
	number int
}

func (r rowReader) get(column string) string {
	i := r.index[column]
	if i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

func (r rowReader) blank() bool {
	for _, v := range r.row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (r rowReader) fail(column string, err error) error {
	return &RowError{Row: r.number, Column: column, Err: err}
}

func (r rowReader) integer(column string) (int, error) {
	n, err := strconv.Atoi(r.get(column))
	if err != nil {
		return 0, r.fail(column, fmt.Errorf("want a whole number, got %q", r.get(column)))
	}
	return n, nil
}

func (r rowReader) optionalInt(column string) (*int, error) {
	if r.get(column) == "" {
		return nil, nil
	}
	n, err := r.integer(column)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r rowReader) clock(column string) (tournament.Clock, error) {
	c, err := tournament.ParseClock(r.get(column))
	if err != nil {
		return 0, r.fail(column, err)
	}
	return c, nil
}

func (r rowReader) participant(idColumn, nameColumn string) (tournament.Participant, error) {
	name := r.get(nameColumn)
	if r.get(idColumn) == "" {
		if name == "" {
			return tournament.Participant{}, r.fail(nameColumn, fmt.Errorf("missing participant"))
		}
		return tournament.Placeholder(name), nil
	}
	id, err := r.integer(idColumn)
	if err != nil {
		return tournament.Participant{}, err
	}
	return tournament.Resolved(tournament.Team{ID: id, Name: name}), nil
}

func (r rowReader) match() (tournament.ScheduledMatch, error) {
	var (
		m   tournament.ScheduledMatch
		err error
	)
	if m.ID, err = r.integer("Match ID"); err != nil {
		return m, err
	}
	m.Code = r.get("Code")
	m.Phase = tournament.Phase(strings.ToLower(r.get("Phase")))
	switch m.Phase {
	case tournament.PhaseGroup, tournament.PhaseQuarterfinal, tournament.PhaseSemifinal,
		tournament.PhaseFinal, tournament.PhaseThirdPlace:
	default:
		return m, r.fail("Phase", fmt.Errorf("unknown phase %q", r.get("Phase")))
	}
	m.Playoff = m.Phase != tournament.PhaseGroup
	m.Series = r.get("Series")
	m.Round = r.get("Round")

	if m.Date, err = time.Parse(dateLayout, r.get("Date")); err != nil {
		return m, r.fail("Date", fmt.Errorf("invalid date %q", r.get("Date")))
	}
	if m.Start, err = r.clock("Start"); err != nil {
		return m, err
	}
	if m.End, err = r.clock("End"); err != nil {
		return m, err
	}
	if m.Venue.ID, err = r.integer("Venue ID"); err != nil {
		return m, err
	}
	m.Venue.Name = r.get("Venue")

	if m.Home, err = r.participant("Home ID", "Home"); err != nil {
		return m, err
	}
	if m.Away, err = r.participant("Away ID", "Away"); err != nil {
		return m, err
	}
	if m.HomeScore, err = r.optionalInt("Home Score"); err != nil {
		return m, err
	}
	if m.AwayScore, err = r.optionalInt("Away Score"); err != nil {
		return m, err
	}
	if m.WinnerID, err = r.optionalInt("Winner ID"); err != nil {
		return m, err
	}

	switch state := tournament.MatchState(strings.ToLower(r.get("State"))); state {
	case tournament.StateFinalized:
		if !m.HasScores() && m.WinnerID == nil {
			return m, r.fail("State", fmt.Errorf("finalized match %s has no result", m.Code))
		}
		m.State = state
	case tournament.StateScheduled, "":
		m.State = tournament.StateScheduled
	default:
		return m, r.fail("State", fmt.Errorf("unknown state %q", r.get("State")))
	}
	return m, nil
}

// Rewrite regenerates every derived sheet of a workbook from its Matches
// sheet, keeping any results entered by hand.
func Rewrite(cfg *config.Config, path string) error {
	matches, err := ReadMatches(path)
	if err != nil {
		return err
	}
	f, err := Generate(cfg, matches)
	if err != nil {
		return err
	}
	return f.SaveAs(path)
}
