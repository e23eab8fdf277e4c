package stage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/derekprior/tourney/internal/schedule"
	"github.com/derekprior/tourney/internal/tournament"
)

func intPtr(v int) *int { return &v }

func testTeams(n int) []tournament.Team {
	teams := make([]tournament.Team, n)
	for i := range teams {
		teams[i] = tournament.Team{ID: i + 1, Name: fmt.Sprintf("Team %02d", i+1)}
	}
	return teams
}

func testEvent(n int) EventContext {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return EventContext{
		Teams:  testTeams(n),
		Venues: []tournament.Venue{{ID: 1, Name: "Coliseo"}, {ID: 2, Name: "Cancha Norte"}},
		Range:  tournament.DateRange{Start: start, End: start.AddDate(0, 0, 29)},
		Config: tournament.ScheduleConfig{
			DayStart:   tournament.NewClock(8, 0),
			DayEnd:     tournament.NewClock(18, 0),
			MatchHours: 2,
			RestDays:   0,
		},
	}
}

func testEngine() *Engine {
	return New(&schedule.Solver{Workers: 2, TimeBudget: 20 * time.Second}, nil)
}

// finalize records a 1-0 win for the team with the lower id in every match.
func finalize(matches []tournament.ScheduledMatch) []tournament.ScheduledMatch {
	out := make([]tournament.ScheduledMatch, len(matches))
	for i, m := range matches {
		home, _ := m.Home.Team()
		away, _ := m.Away.Team()
		if home.ID < away.ID {
			m.HomeScore, m.AwayScore = intPtr(1), intPtr(0)
		} else {
			m.HomeScore, m.AwayScore = intPtr(0), intPtr(1)
		}
		m.State = tournament.StateFinalized
		out[i] = m
	}
	return out
}

func teamIDs(m tournament.ScheduledMatch) (int, int) {
	home, _ := m.Home.Team()
	away, _ := m.Away.Team()
	return home.ID, away.ID
}

func lastDate(matches []tournament.ScheduledMatch) time.Time {
	var last time.Time
	for _, m := range matches {
		if m.Date.After(last) {
			last = m.Date
		}
	}
	return last
}

func firstDate(matches []tournament.ScheduledMatch) time.Time {
	first := matches[0].Date
	for _, m := range matches {
		if m.Date.Before(first) {
			first = m.Date
		}
	}
	return first
}

func TestTenTeamTournament(t *testing.T) {
	engine := testEngine()
	ev := testEvent(10)
	ctx := context.Background()

	group, meta, err := engine.GenerateNextStage(ctx, ev)
	if err != nil {
		t.Fatalf("group stage error: %v", err)
	}
	// Two series of five: ten matches each.
	if len(group) != 20 {
		t.Fatalf("group matches = %d, want 20", len(group))
	}
	// Nothing else is due until the group is played.
	if meta.NextStage != "" || meta.HasResults || len(meta.CompletedPhases) != 0 {
		t.Errorf("meta after group = %+v", meta)
	}
	for _, m := range group {
		if m.Phase != tournament.PhaseGroup || m.State != tournament.StateScheduled {
			t.Errorf("%s: phase %s state %s", m.Code, m.Phase, m.State)
		}
	}

	t.Run("semifinals wait for the group to finish", func(t *testing.T) {
		partial := finalize(group[:10])
		partial = append(partial, group[10:]...)
		ev := ev
		ev.Matches = partial
		matches, _, err := engine.GenerateNextStage(ctx, ev)
		if !errors.Is(err, tournament.ErrPhaseNotReady) || len(matches) != 0 {
			t.Errorf("GenerateNextStage = %d matches, %v; want none and ErrPhaseNotReady", len(matches), err)
		}
	})

	played := finalize(group)
	ev.Matches = played
	semis, meta, err := engine.GenerateNextStage(ctx, ev)
	if err != nil {
		t.Fatalf("semifinal stage error: %v", err)
	}
	if len(semis) != 2 {
		t.Fatalf("semifinals = %d, want 2", len(semis))
	}
	if len(meta.CompletedPhases) != 1 || meta.CompletedPhases[0] != tournament.PhaseGroup || !meta.HasResults {
		t.Errorf("meta after semifinals = %+v", meta)
	}
	bySeed := make(map[string]tournament.ScheduledMatch)
	for _, m := range semis {
		bySeed[m.Code] = m
	}
	// Series A is 1,3,5,7,9 and Series B 2,4,6,8,10; lower ids win.
	if h, a := teamIDs(bySeed["SF1"]); h != 1 || a != 4 {
		t.Errorf("SF1 = %d vs %d, want 1 vs 4", h, a)
	}
	if h, a := teamIDs(bySeed["SF2"]); h != 2 || a != 3 {
		t.Errorf("SF2 = %d vs %d, want 2 vs 3", h, a)
	}
	if !firstDate(semis).After(lastDate(played)) {
		t.Errorf("semifinals start %s, not after the group ends %s",
			firstDate(semis).Format("2006-01-02"), lastDate(played).Format("2006-01-02"))
	}

	ev.Matches = append(played, finalize(semis)...)
	finals, _, err := engine.GenerateNextStage(ctx, ev)
	if err != nil {
		t.Fatalf("final stage error: %v", err)
	}
	if len(finals) != 2 {
		t.Fatalf("final stage matches = %d, want final and third place", len(finals))
	}
	for _, m := range finals {
		h, a := teamIDs(m)
		switch m.Phase {
		case tournament.PhaseFinal:
			if h != 1 || a != 2 {
				t.Errorf("final = %d vs %d, want 1 vs 2", h, a)
			}
		case tournament.PhaseThirdPlace:
			if h != 4 || a != 3 {
				t.Errorf("third place = %d vs %d, want 4 vs 3", h, a)
			}
		default:
			t.Errorf("unexpected phase %s", m.Phase)
		}
	}

	ev.Matches = append(ev.Matches, finalize(finals)...)
	done, meta, err := engine.GenerateNextStage(ctx, ev)
	if !errors.Is(err, tournament.ErrNoPendingStage) || len(done) != 0 {
		t.Errorf("after the final = %d matches, %v; want ErrNoPendingStage", len(done), err)
	}
	if meta.NextStage != "" || len(meta.CompletedPhases) != 4 {
		t.Errorf("final meta = %+v", meta)
	}
}

// checkRest fails when a team plays twice within restDays days.
func checkRest(t *testing.T, matches []tournament.ScheduledMatch, restDays int) {
	t.Helper()
	byTeam := make(map[int][]tournament.ScheduledMatch)
	for _, m := range matches {
		for _, team := range m.Teams() {
			byTeam[team.ID] = append(byTeam[team.ID], m)
		}
	}
	for id, games := range byTeam {
		sort.Slice(games, func(i, j int) bool { return games[i].Date.Before(games[j].Date) })
		for i := 1; i < len(games); i++ {
			if gap := tournament.DaysBetween(games[i-1].Date, games[i].Date); gap <= restDays {
				t.Errorf("team %d plays %s and %s %d days apart", id, games[i-1].Code, games[i].Code, gap)
			}
		}
	}
}

func TestTwelveTeamTournament(t *testing.T) {
	engine := testEngine()
	ev := testEvent(12)
	ev.Config.RestDays = 1
	ctx := context.Background()

	group, _, err := engine.GenerateNextStage(ctx, ev)
	if err != nil {
		t.Fatalf("group stage error: %v", err)
	}
	// Three series of four: six matches each.
	if len(group) != 18 {
		t.Fatalf("group matches = %d, want 18", len(group))
	}
	played := finalize(group)

	t.Run("no room left after the group", func(t *testing.T) {
		ev := ev
		ev.Matches = played
		ev.Range.End = lastDate(played).AddDate(0, 0, 1)
		_, _, err := engine.GenerateNextStage(ctx, ev)
		if !errors.Is(err, tournament.ErrInsufficientSlots) {
			t.Errorf("error = %v, want ErrInsufficientSlots", err)
		}
	})

	ev.Matches = played
	quarters, meta, err := engine.GenerateNextStage(ctx, ev)
	if err != nil {
		t.Fatalf("quarterfinal stage error: %v", err)
	}
	if len(quarters) != 4 || len(meta.CompletedPhases) != 1 || meta.CompletedPhases[0] != tournament.PhaseGroup {
		t.Fatalf("quarterfinals = %d, meta %+v", len(quarters), meta)
	}
	// Series A is 1,4,7,10, B 2,5,8,11 and C 3,6,9,12; lower ids win. The
	// place seeds are 1-6 and the thirds 7, 8 and 9 tie, so the wildcards
	// are 7 and 8 by name.
	want := map[string][2]int{"QF1": {1, 8}, "QF2": {4, 5}, "QF3": {2, 7}, "QF4": {3, 6}}
	for _, m := range quarters {
		if m.Phase != tournament.PhaseQuarterfinal {
			t.Errorf("%s: phase %s", m.Code, m.Phase)
		}
		if h, a := teamIDs(m); h != want[m.Code][0] || a != want[m.Code][1] {
			t.Errorf("%s = %d vs %d, want %d vs %d", m.Code, h, a, want[m.Code][0], want[m.Code][1])
		}
	}
	if first := firstDate(quarters); tournament.DaysBetween(lastDate(played), first) < 2 {
		t.Errorf("quarterfinals start %s, group ends %s", first.Format("2006-01-02"), lastDate(played).Format("2006-01-02"))
	}

	played = append(played, finalize(quarters)...)
	ev.Matches = played
	semis, _, err := engine.GenerateNextStage(ctx, ev)
	if err != nil {
		t.Fatalf("semifinal stage error: %v", err)
	}
	if len(semis) != 2 {
		t.Fatalf("semifinals = %d, want 2", len(semis))
	}
	for _, m := range semis {
		h, a := teamIDs(m)
		switch m.Code {
		case "SF1":
			if h != 1 || a != 3 {
				t.Errorf("SF1 = %d vs %d, want winners of QF1 and QF4, 1 vs 3", h, a)
			}
		case "SF2":
			if h != 4 || a != 2 {
				t.Errorf("SF2 = %d vs %d, want winners of QF2 and QF3, 4 vs 2", h, a)
			}
		default:
			t.Errorf("unexpected match %s", m.Code)
		}
	}

	played = append(played, finalize(semis)...)
	ev.Matches = played
	finals, _, err := engine.GenerateNextStage(ctx, ev)
	if err != nil {
		t.Fatalf("final stage error: %v", err)
	}
	played = append(played, finalize(finals)...)
	checkRest(t, played, ev.Config.RestDays)
}

func TestNoPlayoffFinal(t *testing.T) {
	engine := testEngine()
	ev := testEvent(4)
	ctx := context.Background()

	group, _, err := engine.GenerateNextStage(ctx, ev)
	if err != nil {
		t.Fatalf("group stage error: %v", err)
	}
	ev.Matches = finalize(group)

	final, _, err := engine.GenerateNextStage(ctx, ev)
	if err != nil {
		t.Fatalf("final error: %v", err)
	}
	if len(final) != 1 || final[0].Phase != tournament.PhaseFinal {
		t.Fatalf("final stage = %+v, want one final", final)
	}
	if h, a := teamIDs(final[0]); h != 1 || a != 2 {
		t.Errorf("final = %d vs %d, want the top two 1 vs 2", h, a)
	}
}

func TestGenerateFullSchedule(t *testing.T) {
	ev := testEvent(8)
	req := FullRequest{Teams: ev.Teams, Venues: ev.Venues, Range: ev.Range, Config: ev.Config}

	t.Run("group only", func(t *testing.T) {
		matches, err := testEngine().GenerateFullSchedule(context.Background(), req)
		if err != nil {
			t.Fatalf("GenerateFullSchedule error: %v", err)
		}
		// Two series of four: six matches each.
		if len(matches) != 12 {
			t.Errorf("matches = %d, want 12", len(matches))
		}
	})

	t.Run("provisional bracket after the group", func(t *testing.T) {
		req := req
		req.IncludePlayoffs = true
		matches, err := testEngine().GenerateFullSchedule(context.Background(), req)
		if err != nil {
			t.Fatalf("GenerateFullSchedule error: %v", err)
		}
		if len(matches) != 16 {
			t.Fatalf("matches = %d, want 16", len(matches))
		}
		var lastGroup, firstPlayoff time.Time
		for _, m := range matches {
			if m.Playoff {
				if firstPlayoff.IsZero() || m.Date.Before(firstPlayoff) {
					firstPlayoff = m.Date
				}
				if m.Home.IsResolved() {
					t.Errorf("%s has a resolved team before the group is played", m.Code)
				}
			} else if m.Date.After(lastGroup) {
				lastGroup = m.Date
			}
		}
		if !firstPlayoff.After(lastGroup) {
			t.Errorf("playoff starts %s before the group ends %s",
				firstPlayoff.Format("2006-01-02"), lastGroup.Format("2006-01-02"))
		}
	})

	t.Run("provisional bracket keeps the rest days", func(t *testing.T) {
		req := req
		req.IncludePlayoffs = true
		req.Config.RestDays = 1
		matches, err := testEngine().GenerateFullSchedule(context.Background(), req)
		if err != nil {
			t.Fatalf("GenerateFullSchedule error: %v", err)
		}
		last := make(map[tournament.Phase]time.Time)
		first := make(map[tournament.Phase]time.Time)
		for _, m := range matches {
			p := m.Phase
			if p == tournament.PhaseThirdPlace {
				p = tournament.PhaseFinal
			}
			if m.Date.After(last[p]) {
				last[p] = m.Date
			}
			if f, ok := first[p]; !ok || m.Date.Before(f) {
				first[p] = m.Date
			}
		}
		if gap := tournament.DaysBetween(last[tournament.PhaseGroup], first[tournament.PhaseSemifinal]); gap < 2 {
			t.Errorf("semifinals %d days after the group, want at least 2", gap)
		}
		if gap := tournament.DaysBetween(last[tournament.PhaseSemifinal], first[tournament.PhaseFinal]); gap < 2 {
			t.Errorf("final %d days after the semifinals, want at least 2", gap)
		}
		checkRest(t, matches, 1)
	})

	t.Run("too few teams", func(t *testing.T) {
		req := req
		req.Teams = testTeams(1)
		if _, err := testEngine().GenerateFullSchedule(context.Background(), req); !errors.Is(err, tournament.ErrCapacity) {
			t.Errorf("error = %v, want ErrCapacity", err)
		}
	})

	t.Run("too few slots", func(t *testing.T) {
		req := req
		req.Range.End = req.Range.Start
		req.Venues = req.Venues[:1]
		if _, err := testEngine().GenerateFullSchedule(context.Background(), req); !errors.Is(err, tournament.ErrInsufficientSlots) {
			t.Errorf("error = %v, want ErrInsufficientSlots", err)
		}
	})
}

func TestNextStage(t *testing.T) {
	four := tournament.Structure{Series: 2, PlayoffTeams: 4}
	group := tournament.ScheduledMatch{MatchDefinition: tournament.MatchDefinition{Phase: tournament.PhaseGroup}}
	doneGroup := group
	doneGroup.State = tournament.StateFinalized
	semi := tournament.ScheduledMatch{MatchDefinition: tournament.MatchDefinition{Phase: tournament.PhaseSemifinal}}

	tests := []struct {
		name    string
		matches []tournament.ScheduledMatch
		want    tournament.Phase
		ok      bool
	}{
		{"nothing scheduled", nil, tournament.PhaseGroup, true},
		{"group in progress", []tournament.ScheduledMatch{doneGroup, group}, "", false},
		{"group complete", []tournament.ScheduledMatch{doneGroup, doneGroup}, tournament.PhaseSemifinal, true},
		{"semifinals in progress", []tournament.ScheduledMatch{doneGroup, semi}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextStage(four, tt.matches)
			if got != tt.want || ok != tt.ok {
				t.Errorf("NextStage = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPhaseComplete(t *testing.T) {
	final := tournament.ScheduledMatch{
		MatchDefinition: tournament.MatchDefinition{Phase: tournament.PhaseFinal},
		State:           tournament.StateFinalized,
	}
	third := tournament.ScheduledMatch{MatchDefinition: tournament.MatchDefinition{Phase: tournament.PhaseThirdPlace}}

	if PhaseComplete(tournament.PhaseGroup, nil) {
		t.Error("a phase without matches is complete")
	}
	if PhaseComplete(tournament.PhaseFinal, []tournament.ScheduledMatch{final, third}) {
		t.Error("final complete while third place is unfinished")
	}
	third.State = tournament.StateFinalized
	if !PhaseComplete(tournament.PhaseThirdPlace, []tournament.ScheduledMatch{final, third}) {
		t.Error("final unit not complete with both matches finalized")
	}
}

func TestRefresh(t *testing.T) {
	condors := tournament.Team{ID: 1, Name: "Condors"}
	pumas := tournament.Team{ID: 2, Name: "Pumas"}
	group := tournament.ScheduledMatch{
		MatchDefinition: tournament.MatchDefinition{
			Phase: tournament.PhaseGroup, Series: "Series A",
			Home: tournament.Resolved(condors), Away: tournament.Resolved(pumas),
		},
		HomeScore: intPtr(3), AwayScore: intPtr(1),
		State: tournament.StateFinalized,
	}
	final := tournament.ScheduledMatch{
		MatchDefinition: tournament.MatchDefinition{
			Code: "FINAL", Phase: tournament.PhaseFinal, Playoff: true,
			Home: tournament.Placeholder("1° Series A"), Away: tournament.Placeholder("2° Series A"),
		},
		State: tournament.StateScheduled,
	}

	out := Refresh([]tournament.ScheduledMatch{group, final})
	if h, a := teamIDs(out[1]); h != 1 || a != 2 {
		t.Errorf("refreshed final = %s vs %s", out[1].Home.Name(), out[1].Away.Name())
	}

	group.State = tournament.StateScheduled
	out = Refresh([]tournament.ScheduledMatch{group, final})
	if out[1].Home.IsResolved() {
		t.Error("seed resolved while the group is unfinished")
	}
}
