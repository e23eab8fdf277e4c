package stage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/derekprior/tourney/internal/fixture"
	"github.com/derekprior/tourney/internal/schedule"
	"github.com/derekprior/tourney/internal/standings"
	"github.com/derekprior/tourney/internal/tournament"
)

// Engine generates tournament calendars. It keeps no state between calls;
// callers serialize requests for the same tournament.
type Engine struct {
	solver *schedule.Solver
	logger *slog.Logger
}

// New constructs an Engine. A nil solver uses the solver defaults and a nil
// logger discards output.
func New(solver *schedule.Solver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if solver == nil {
		solver = &schedule.Solver{}
	}
	if solver.Logger == nil {
		s := *solver
		s.Logger = logger
		solver = &s
	}
	return &Engine{solver: solver, logger: logger}
}

// FullRequest asks for a calendar of the whole group phase.
type FullRequest struct {
	Teams  []tournament.Team
	Venues []tournament.Venue
	Range  tournament.DateRange
	Config tournament.ScheduleConfig

	// IncludePlayoffs also books the bracket with placeholder participants
	// after the last group day.
	IncludePlayoffs bool
}

// EventContext is a snapshot of a tournament for incremental scheduling.
type EventContext struct {
	Teams   []tournament.Team
	Venues  []tournament.Venue
	Range   tournament.DateRange
	Config  tournament.ScheduleConfig
	Matches []tournament.ScheduledMatch // already scheduled, with results
}

// sortTeams orders teams by case-insensitive name, then id, so generated
// fixtures and IDs are deterministic.
func sortTeams(teams []tournament.Team) []tournament.Team {
	sorted := make([]tournament.Team, len(teams))
	copy(sorted, teams)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := strings.ToLower(sorted[i].Name), strings.ToLower(sorted[j].Name)
		if a != b {
			return a < b
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// GenerateFullSchedule schedules every group match in one solve.
func (e *Engine) GenerateFullSchedule(ctx context.Context, req FullRequest) ([]tournament.ScheduledMatch, error) {
	teams := sortTeams(req.Teams)
	structure, err := tournament.ResolveStructure(len(teams))
	if err != nil {
		return nil, err
	}
	series := fixture.AssignSeries(teams, structure.Series)

	var defs []tournament.MatchDefinition
	if req.IncludePlayoffs {
		defs = fixture.BuildMatches(structure, series)
	} else {
		defs = fixture.GroupMatches(series, 0)
	}

	slots, err := schedule.BuildSlots(req.Range, req.Config, req.Venues)
	if err != nil {
		return nil, err
	}
	e.logger.Info("generating full schedule",
		"teams", len(teams),
		"series", structure.Series,
		"playoff_teams", structure.PlayoffTeams,
		"matches", len(defs),
		"slots", len(slots),
	)

	res, err := e.solver.Solve(ctx, defs, slots, req.Config.RestDays)
	if err != nil {
		return nil, err
	}
	return toScheduled(res), nil
}

// GenerateNextStage schedules the next phase that is due. When nothing can be
// scheduled it returns no matches together with the meta and
// ErrPhaseNotReady (the current phase is still being played or its results
// do not decide the next one yet) or ErrNoPendingStage.
func (e *Engine) GenerateNextStage(ctx context.Context, ev EventContext) ([]tournament.ScheduledMatch, StageMeta, error) {
	teams := sortTeams(ev.Teams)
	structure, err := tournament.ResolveStructure(len(teams))
	if err != nil {
		return nil, StageMeta{}, err
	}
	existing := Refresh(ev.Matches)
	meta := Meta(structure, existing)

	next, ok := NextStage(structure, existing)
	if !ok {
		if Finished(structure, existing) {
			return nil, meta, fmt.Errorf("%w: all %d phases are scheduled and played",
				tournament.ErrNoPendingStage, len(schedulable(structure)))
		}
		return nil, meta, fmt.Errorf("%w: %d matches still without a final result",
			tournament.ErrPhaseNotReady, countUnfinished(existing))
	}

	defs, err := e.stageDefinitions(structure, teams, next, existing)
	if err != nil {
		return nil, meta, err
	}

	start, err := stageStart(ev, existing)
	if err != nil {
		return nil, meta, err
	}
	slots, err := schedule.BuildSlots(tournament.DateRange{Start: start, End: ev.Range.End}, ev.Config, ev.Venues)
	if err != nil {
		return nil, meta, err
	}
	slots = schedule.ExcludeOccupied(slots, schedule.Occupancy(existing))

	e.logger.Info("generating stage",
		"phase", next,
		"matches", len(defs),
		"slots", len(slots),
		"start", start.Format("2006-01-02"),
	)
	res, err := e.solver.Solve(ctx, defs, slots, ev.Config.RestDays)
	if err != nil {
		return nil, meta, err
	}

	scheduled := toScheduled(res)
	all := append(append([]tournament.ScheduledMatch(nil), existing...), scheduled...)
	return scheduled, Meta(structure, all), nil
}

// stageDefinitions builds and seeds the definitions of one phase. Every
// participant of a playoff phase must resolve to a team.
func (e *Engine) stageDefinitions(structure tournament.Structure, teams []tournament.Team, next tournament.Phase, existing []tournament.ScheduledMatch) ([]tournament.MatchDefinition, error) {
	all := fixture.BuildMatches(structure, fixture.AssignSeries(teams, structure.Series))
	var defs []tournament.MatchDefinition
	for _, d := range all {
		if d.Phase == next || (next == tournament.PhaseFinal && d.Phase == tournament.PhaseThirdPlace) {
			defs = append(defs, d)
		}
	}
	if next == tournament.PhaseGroup {
		return defs, nil
	}

	bySeries := standings.Compute(existing)
	global := standings.Global(bySeries)
	if next == tournament.PhaseFinal && len(defs) == 0 {
		// Without a bracket the two best teams overall meet in the final.
		if len(global) < 2 {
			return nil, fmt.Errorf("%w: a final needs two ranked teams, have %d", tournament.ErrPhaseNotReady, len(global))
		}
		return []tournament.MatchDefinition{{
			ID:      len(all),
			Code:    fixture.CodeFinal,
			Phase:   tournament.PhaseFinal,
			Round:   "Final",
			Home:    tournament.Resolved(global[0].Team),
			Away:    tournament.Resolved(global[1].Team),
			Playoff: true,
		}}, nil
	}

	r := standings.NewResolver(bySeries, global)
	r.Record(existing)
	defs = r.ResolveMatches(defs)
	for _, d := range defs {
		for _, p := range []tournament.Participant{d.Home, d.Away} {
			if !p.IsResolved() {
				return nil, fmt.Errorf("%w: %s of %s cannot be resolved yet", tournament.ErrPhaseNotReady, p.Name(), d.Code)
			}
		}
	}
	return defs, nil
}

// stageStart is the first day a new stage may use: the championship start,
// or the day after the rest period following the last existing match.
func stageStart(ev EventContext, existing []tournament.ScheduledMatch) (time.Time, error) {
	start := ev.Range.Start
	for _, m := range existing {
		earliest := m.Date.AddDate(0, 0, ev.Config.RestDays+1)
		if earliest.After(start) {
			start = earliest
		}
	}
	if start.After(ev.Range.End) {
		return time.Time{}, fmt.Errorf("%w: next stage cannot start before %s, after the championship ends on %s",
			tournament.ErrInsufficientSlots, start.Format("2006-01-02"), ev.Range.End.Format("2006-01-02"))
	}
	return start, nil
}

func countUnfinished(matches []tournament.ScheduledMatch) int {
	n := 0
	for _, m := range matches {
		if !m.Finalized() {
			n++
		}
	}
	return n
}

func toScheduled(res *schedule.Result) []tournament.ScheduledMatch {
	out := make([]tournament.ScheduledMatch, 0, len(res.Assignments))
	for _, a := range res.Assignments {
		out = append(out, tournament.ScheduledMatch{
			MatchDefinition: a.Match,
			Date:            a.Slot.Date,
			Start:           a.Slot.Start,
			End:             a.Slot.End,
			Venue:           a.Slot.Venue,
			State:           tournament.StateScheduled,
		})
	}
	schedule.SortMatches(out)
	return out
}

// Standings returns the series tables and the global ranking.
func (e *Engine) Standings(matches []tournament.ScheduledMatch) ([]standings.Table, []tournament.TeamStanding) {
	bySeries := standings.Compute(matches)
	return standings.Tables(bySeries), standings.Global(bySeries)
}
