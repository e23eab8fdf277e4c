package standings

import (
	"sort"
	"strconv"

	"github.com/derekprior/tourney/internal/fixture"
	"github.com/derekprior/tourney/internal/tournament"
)

type result struct {
	winner, loser tournament.Team
	hasLoser      bool
}

// Resolver turns bracket placeholders into teams. A team is handed out for
// at most one seed label; asking for the same label again returns the same
// team.
type Resolver struct {
	bySeries map[string][]tournament.TeamStanding
	global   []tournament.TeamStanding
	results  map[string]result
	consumed map[int]bool
	wild     map[int]bool
	resolved map[string]tournament.Team
}

// NewResolver builds a resolver over the given standings.
func NewResolver(bySeries map[string][]tournament.TeamStanding, global []tournament.TeamStanding) *Resolver {
	return &Resolver{
		bySeries: bySeries,
		global:   global,
		results:  make(map[string]result),
		consumed: make(map[int]bool),
		wild:     make(map[int]bool),
		resolved: make(map[string]tournament.Team),
	}
}

// Record registers the outcome of every finalized match with a decisive
// result, keyed by match code, for "Winner"/"Loser" labels.
func (r *Resolver) Record(matches []tournament.ScheduledMatch) {
	for _, m := range matches {
		if m.Code == "" {
			continue
		}
		w, ok := m.Winner()
		if !ok {
			continue
		}
		l, hasLoser := m.Loser()
		r.results[m.Code] = result{winner: w, loser: l, hasLoser: hasLoser}
	}
}

// Resolve returns the team a seed label stands for, or false if standings
// or results cannot determine it yet.
func (r *Resolver) Resolve(label string) (tournament.Team, bool) {
	if t, ok := r.resolved[label]; ok {
		return t, true
	}

	var (
		team tournament.Team
		ok   bool
	)
	kind, arg := fixture.ParseSeed(label)
	switch kind {
	case fixture.SeedFirstPlace:
		team, ok = r.place(arg, 0)
	case fixture.SeedSecondPlace:
		team, ok = r.place(arg, 1)
	case fixture.SeedWildcard:
		team, ok = r.wildcard(arg)
	case fixture.SeedWinner:
		var res result
		res, ok = r.results[arg]
		team = res.winner
	case fixture.SeedLoser:
		var res result
		res, ok = r.results[arg]
		team = res.loser
		ok = ok && res.hasLoser
	}
	if !ok {
		return tournament.Team{}, false
	}
	r.consumed[team.ID] = true
	if kind == fixture.SeedWildcard {
		r.wild[team.ID] = true
	}
	r.resolved[label] = team
	return team, true
}

func (r *Resolver) place(series string, pos int) (tournament.Team, bool) {
	table := r.bySeries[series]
	if pos >= len(table) || r.consumed[table[pos].Team.ID] {
		return tournament.Team{}, false
	}
	return table[pos].Team, true
}

// wildcard picks the k-th best team of the global ranking among those not
// taken by a place seed. Teams taken by another wildcard still count towards
// k, so "Clasificado #2" is the second best non-qualifier whether or not #1
// resolved first.
func (r *Resolver) wildcard(arg string) (tournament.Team, bool) {
	k, err := strconv.Atoi(arg)
	if err != nil || k < 1 {
		return tournament.Team{}, false
	}
	for _, s := range r.global {
		if r.consumed[s.Team.ID] && !r.wild[s.Team.ID] {
			continue
		}
		k--
		if k == 0 {
			if r.consumed[s.Team.ID] {
				return tournament.Team{}, false
			}
			return s.Team, true
		}
	}
	return tournament.Team{}, false
}

// ResolveMatches fills in every placeholder the resolver can determine.
// Placeholders are resolved in seed order (series winners, runners-up, then
// wildcards by rank) so wildcards only see teams that did not qualify
// directly, whatever the bracket position.
func (r *Resolver) ResolveMatches(defs []tournament.MatchDefinition) []tournament.MatchDefinition {
	var labels []string
	seen := make(map[string]bool)
	for _, d := range defs {
		for _, p := range []tournament.Participant{d.Home, d.Away} {
			if l := p.Label(); l != "" && !seen[l] {
				seen[l] = true
				labels = append(labels, l)
			}
		}
	}
	sort.SliceStable(labels, func(i, j int) bool { return seedOrder(labels[i]) < seedOrder(labels[j]) })
	for _, l := range labels {
		r.Resolve(l)
	}

	out := make([]tournament.MatchDefinition, len(defs))
	for i, d := range defs {
		d.Home = r.participant(d.Home)
		d.Away = r.participant(d.Away)
		out[i] = d
	}
	return out
}

func (r *Resolver) participant(p tournament.Participant) tournament.Participant {
	if p.IsResolved() {
		return p
	}
	if t, ok := r.Resolve(p.Label()); ok {
		return tournament.Resolved(t)
	}
	return p
}

func seedOrder(label string) int {
	kind, arg := fixture.ParseSeed(label)
	switch kind {
	case fixture.SeedFirstPlace:
		return 0
	case fixture.SeedSecondPlace:
		return 1
	case fixture.SeedWildcard:
		k, err := strconv.Atoi(arg)
		if err != nil {
			return 1 << 20
		}
		return 2 + k
	}
	return 1 << 21
}

// Propagate replaces "Winner X"/"Loser X" placeholders in not yet finalized
// matches with the outcome of the finalized match coded X. The input is not
// modified.
func Propagate(matches []tournament.ScheduledMatch) []tournament.ScheduledMatch {
	r := NewResolver(nil, nil)
	r.Record(matches)

	out := make([]tournament.ScheduledMatch, len(matches))
	for i, m := range matches {
		if !m.Finalized() {
			m.Home = r.bracketParticipant(m.Home)
			m.Away = r.bracketParticipant(m.Away)
		}
		out[i] = m
	}
	return out
}

func (r *Resolver) bracketParticipant(p tournament.Participant) tournament.Participant {
	if p.IsResolved() {
		return p
	}
	kind, _ := fixture.ParseSeed(p.Label())
	if kind != fixture.SeedWinner && kind != fixture.SeedLoser {
		return p
	}
	if t, ok := r.Resolve(p.Label()); ok {
		return tournament.Resolved(t)
	}
	return p
}
