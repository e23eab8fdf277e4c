package excel

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/derekprior/tourney/internal/config"
	"github.com/derekprior/tourney/internal/standings"
	"github.com/derekprior/tourney/internal/tournament"
)

// Sheet names.
const (
	MatchesSheet   = "Matches"
	MasterSheet    = "Master Schedule"
	StandingsSheet = "Standings"
)

// matchColumns is the header of the Matches sheet. ReadMatches locates
// columns by these names, so the order may be changed by hand.
var matchColumns = []string{
	"Match ID", "Code", "Phase", "Series", "Round",
	"Date", "Start", "End", "Venue ID", "Venue",
	"Home ID", "Home", "Away ID", "Away",
	"Home Score", "Away Score", "Winner ID", "State",
}

const dateLayout = "2006-01-02"

// Generate creates a workbook with the match data sheet, the master grid,
// the standings and one sheet per team.
func Generate(cfg *config.Config, matches []tournament.ScheduledMatch) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetDefaultFont("Arial")

	sorted := append([]tournament.ScheduledMatch(nil), matches...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Venue.ID < b.Venue.ID
	})

	st := newStyles(f)
	if err := writeMatchesSheet(f, st, sorted); err != nil {
		return nil, fmt.Errorf("writing matches sheet: %w", err)
	}
	if err := writeMasterSheet(f, st, cfg.TournamentVenues(), sorted); err != nil {
		return nil, fmt.Errorf("writing master sheet: %w", err)
	}
	if err := writeStandingsSheet(f, st, sorted); err != nil {
		return nil, fmt.Errorf("writing standings sheet: %w", err)
	}
	if err := writeTeamSheets(f, st, cfg.TournamentTeams(), sorted); err != nil {
		return nil, fmt.Errorf("writing team sheets: %w", err)
	}

	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(MasterSheet); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

type styles struct {
	header      int
	cell        int
	centered    int
	placeholder int
	title       int
}

func newStyles(f *excelize.File) styles {
	var s styles
	s.header, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 12, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	s.cell, _ = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 12, Family: "Arial"},
	})
	s.centered, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 12, Family: "Arial"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	s.placeholder, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 12, Family: "Arial", Italic: true, Color: "#808080"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	s.title, _ = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Family: "Arial"},
	})
	return s
}

func writeHeader(f *excelize.File, sheet string, row int, headers []string, style int) error {
	for i, h := range headers {
		if err := f.SetCellValue(sheet, cellRef(i+1, row), h); err != nil {
			return err
		}
	}
	if style != 0 && len(headers) > 0 {
		return f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(headers), row), style)
	}
	return nil
}

func writeMatchesSheet(f *excelize.File, st styles, matches []tournament.ScheduledMatch) error {
	sheet := MatchesSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := writeHeader(f, sheet, 1, matchColumns, st.header); err != nil {
		return err
	}

	for i, m := range matches {
		row := []interface{}{
			m.ID, m.Code, string(m.Phase), m.Series, m.Round,
			m.Date.Format(dateLayout), m.Start.String(), m.End.String(), m.Venue.ID, m.Venue.Name,
			participantID(m.Home), m.Home.Name(), participantID(m.Away), m.Away.Name(),
			optional(m.HomeScore), optional(m.AwayScore), optional(m.WinnerID), string(m.State),
		}
		if err := f.SetSheetRow(sheet, cellRef(1, i+2), &row); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}
	for i, h := range matchColumns {
		width := float64(len(h) + 4)
		if h == "Home" || h == "Away" || h == "Venue" {
			width = 22
		}
		f.SetColWidth(sheet, colLetter(i+1), colLetter(i+1), width)
	}
	return nil
}

func participantID(p tournament.Participant) interface{} {
	if t, ok := p.Team(); ok {
		return t.ID
	}
	return ""
}

func optional(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

// writeMasterSheet lays the calendar out as one row per (date, start) and one
// column per venue.
func writeMasterSheet(f *excelize.File, st styles, venues []tournament.Venue, matches []tournament.ScheduledMatch) error {
	sheet := MasterSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	venues = append([]tournament.Venue(nil), venues...)
	sort.Slice(venues, func(i, j int) bool { return venues[i].ID < venues[j].ID })
	venueCol := make(map[int]int, len(venues))
	headers := []string{"Date", "Day", "Time"}
	for i, v := range venues {
		venueCol[v.ID] = 4 + i
		headers = append(headers, v.Name)
	}
	// Matches at venues no longer configured still get a column.
	for _, m := range matches {
		if _, ok := venueCol[m.Venue.ID]; !ok {
			venueCol[m.Venue.ID] = len(headers) + 1
			headers = append(headers, m.Venue.Name)
		}
	}
	if err := writeHeader(f, sheet, 1, headers, st.header); err != nil {
		return err
	}

	type rowKey struct {
		date  time.Time
		start tournament.Clock
	}
	rows := make(map[rowKey]int)
	next := 2
	for _, m := range matches {
		key := rowKey{m.Date, m.Start}
		row, ok := rows[key]
		if !ok {
			row = next
			rows[key] = row
			next++
			f.SetCellValue(sheet, cellRef(1, row), m.Date.Format("01/02/2006"))
			f.SetCellValue(sheet, cellRef(2, row), m.Date.Weekday().String())
			f.SetCellValue(sheet, cellRef(3, row), m.Start.String())
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(3, row), st.cell)
		}

		col := venueCol[m.Venue.ID]
		cell := cellRef(col, row)
		f.SetCellValue(sheet, cell, matchCell(m))
		style := st.centered
		if !m.Home.IsResolved() || !m.Away.IsResolved() {
			style = st.placeholder
		}
		f.SetCellStyle(sheet, cell, cell, style)
	}

	f.SetColWidth(sheet, "A", "A", 14)
	f.SetColWidth(sheet, "B", "B", 12)
	f.SetColWidth(sheet, "C", "C", 8)
	if len(headers) > 3 {
		f.SetColWidth(sheet, colLetter(4), colLetter(len(headers)), 34)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	})
}

// matchCell renders "Home vs Away", with the score once one is recorded.
func matchCell(m tournament.ScheduledMatch) string {
	text := fmt.Sprintf("%s vs %s", m.Home.Name(), m.Away.Name())
	if m.HasScores() {
		text = fmt.Sprintf("%s %d - %d %s", m.Home.Name(), *m.HomeScore, *m.AwayScore, m.Away.Name())
	}
	return text
}

func writeStandingsSheet(f *excelize.File, st styles, matches []tournament.ScheduledMatch) error {
	sheet := StandingsSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"#", "Team", "Played", "Won", "Drawn", "Lost", "GF", "GA", "GD", "Points"}

	row := 1
	for _, table := range standings.Tables(standings.Compute(matches)) {
		f.SetCellValue(sheet, cellRef(1, row), table.Series)
		f.SetCellStyle(sheet, cellRef(1, row), cellRef(1, row), st.title)
		row++
		if err := writeHeader(f, sheet, row, headers, st.header); err != nil {
			return err
		}
		row++
		for i, s := range table.Rows {
			values := []interface{}{
				i + 1, s.Team.Name, s.Played, s.Wins, s.Draws, s.Losses,
				s.GoalsFor, s.GoalsAgainst, s.GoalDiff(), s.Points,
			}
			if err := f.SetSheetRow(sheet, cellRef(1, row), &values); err != nil {
				return err
			}
			row++
		}
		row++
	}

	f.SetColWidth(sheet, "A", "A", 6)
	f.SetColWidth(sheet, "B", "B", 24)
	f.SetColWidth(sheet, "C", "J", 9)
	return nil
}

func writeTeamSheets(f *excelize.File, st styles, teams []tournament.Team, matches []tournament.ScheduledMatch) error {
	sorted := append([]tournament.Team(nil), teams...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	used := map[string]bool{MatchesSheet: true, MasterSheet: true, StandingsSheet: true}
	headers := []string{"Date", "Day", "Time", "Venue", "Phase", "Opponent", "Home/Away", "Result"}
	for _, team := range sorted {
		sheet := sheetName(team.Name, used)
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		if err := writeHeader(f, sheet, 1, headers, st.header); err != nil {
			return err
		}

		row := 2
		for _, m := range matches {
			if !m.Involves(team.ID) {
				continue
			}
			opponent, side := m.Away, "Home"
			if m.Away.Is(team.ID) {
				opponent, side = m.Home, "Away"
			}
			values := []interface{}{
				m.Date.Format("01/02/2006"), m.Date.Weekday().String(), m.Start.String(),
				m.Venue.Name, phaseLabel(m), opponent.Name(), side, teamResult(m, team.ID),
			}
			if err := f.SetSheetRow(sheet, cellRef(1, row), &values); err != nil {
				return err
			}
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(headers), row), st.cell)
			row++
		}

		f.SetColWidth(sheet, "A", "C", 12)
		f.SetColWidth(sheet, "D", "F", 22)
		f.SetColWidth(sheet, "G", "H", 12)
	}
	return nil
}

func phaseLabel(m tournament.ScheduledMatch) string {
	if m.Phase == tournament.PhaseGroup {
		return fmt.Sprintf("%s, %s", m.Series, m.Round)
	}
	return m.Round
}

// teamResult is "W 3-1", "D 2-2" or "L 0-1" from the team's side, or empty
// while the match is unplayed.
func teamResult(m tournament.ScheduledMatch, teamID int) string {
	if !m.Finalized() || !m.HasScores() {
		return ""
	}
	own, other := *m.HomeScore, *m.AwayScore
	if m.Away.Is(teamID) {
		own, other = other, own
	}
	mark := "D"
	if w, ok := m.Winner(); ok {
		mark = "L"
		if w.ID == teamID {
			mark = "W"
		}
	}
	return fmt.Sprintf("%s %d-%d", mark, own, other)
}

// sheetName trims a team name to a valid, unused sheet name.
func sheetName(name string, used map[string]bool) string {
	clean := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			r = '-'
		}
		clean = append(clean, r)
	}
	if len(clean) > 31 {
		clean = clean[:31]
	}
	base := string(clean)
	candidate := base
	for n := 2; used[candidate]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		trimmed := []rune(base)
		if len(trimmed)+len(suffix) > 31 {
			trimmed = trimmed[:31-len(suffix)]
		}
		candidate = string(trimmed) + suffix
	}
	used[candidate] = true
	return candidate
}

func cellRef(col, row int) string {
	ref, _ := excelize.CoordinatesToCellName(col, row)
	return ref
}

func colLetter(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}
