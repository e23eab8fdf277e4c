// Package stage decides which phase of a tournament is due next and drives
// fixture generation, seeding and the solver to schedule it.
package stage

import (
	"github.com/derekprior/tourney/internal/standings"
	"github.com/derekprior/tourney/internal/tournament"
)

// ResolveStructure maps a team count onto series and playoff size.
func ResolveStructure(teamCount int) (tournament.Structure, error) {
	return tournament.ResolveStructure(teamCount)
}

// StageMeta summarizes where a tournament stands.
type StageMeta struct {
	NextStage       tournament.Phase // empty when nothing can be scheduled now
	CompletedPhases []tournament.Phase
	HasResults      bool
}

// unit returns the phases scheduled and completed together with p. The
// final and the third-place match form one unit.
func unit(p tournament.Phase) []tournament.Phase {
	if p == tournament.PhaseFinal || p == tournament.PhaseThirdPlace {
		return []tournament.Phase{tournament.PhaseFinal, tournament.PhaseThirdPlace}
	}
	return []tournament.Phase{p}
}

func inUnit(p tournament.Phase, m tournament.ScheduledMatch) bool {
	for _, u := range unit(p) {
		if m.Phase == u {
			return true
		}
	}
	return false
}

// PhaseComplete reports whether the phase has matches and all of them are
// finalized. Final and third place are judged together.
func PhaseComplete(p tournament.Phase, matches []tournament.ScheduledMatch) bool {
	found := false
	for _, m := range matches {
		if !inUnit(p, m) {
			continue
		}
		if !m.Finalized() {
			return false
		}
		found = true
	}
	return found
}

func hasPhase(p tournament.Phase, matches []tournament.ScheduledMatch) bool {
	for _, m := range matches {
		if inUnit(p, m) {
			return true
		}
	}
	return false
}

// schedulable lists the phases in order with third place folded into the
// final.
func schedulable(structure tournament.Structure) []tournament.Phase {
	var phases []tournament.Phase
	for _, p := range tournament.StageSequence(structure.PlayoffTeams) {
		if p != tournament.PhaseThirdPlace {
			phases = append(phases, p)
		}
	}
	return phases
}

// NextStage returns the first phase with no matches yet, provided the phase
// before it is complete. It returns false when the current phase is still
// being played or every phase is already scheduled.
func NextStage(structure tournament.Structure, matches []tournament.ScheduledMatch) (tournament.Phase, bool) {
	phases := schedulable(structure)
	for i, p := range phases {
		if hasPhase(p, matches) {
			continue
		}
		if i == 0 || PhaseComplete(phases[i-1], matches) {
			return p, true
		}
		return "", false
	}
	return "", false
}

// Finished reports whether every phase has been scheduled and played.
func Finished(structure tournament.Structure, matches []tournament.ScheduledMatch) bool {
	for _, p := range schedulable(structure) {
		if !PhaseComplete(p, matches) {
			return false
		}
	}
	return true
}

// Meta describes the next stage, the completed phases in sequence order and
// whether any result has been registered.
func Meta(structure tournament.Structure, matches []tournament.ScheduledMatch) StageMeta {
	var meta StageMeta
	meta.NextStage, _ = NextStage(structure, matches)
	for _, p := range tournament.StageSequence(structure.PlayoffTeams) {
		if PhaseComplete(p, matches) {
			meta.CompletedPhases = append(meta.CompletedPhases, p)
		}
	}
	for _, m := range matches {
		if m.Finalized() {
			meta.HasResults = true
			break
		}
	}
	return meta
}

// Refresh fills in placeholders of unfinished matches that the results so
// far determine. Bracket seeds are resolved only once the group phase is
// complete; "Winner"/"Loser" labels as soon as the referenced match is
// decided. The input is not modified.
func Refresh(matches []tournament.ScheduledMatch) []tournament.ScheduledMatch {
	out := standings.Propagate(matches)
	if !PhaseComplete(tournament.PhaseGroup, out) {
		return out
	}

	bySeries := standings.Compute(out)
	r := standings.NewResolver(bySeries, standings.Global(bySeries))
	r.Record(out)

	var (
		idx  []int
		defs []tournament.MatchDefinition
	)
	for i, m := range out {
		if m.Finalized() || m.Phase == tournament.PhaseGroup {
			continue
		}
		idx = append(idx, i)
		defs = append(defs, m.MatchDefinition)
	}
	for k, d := range r.ResolveMatches(defs) {
		out[idx[k]].MatchDefinition = d
	}
	return out
}
