package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/derekprior/tourney/internal/tournament"
)

const (
	DefaultTimeBudget = 30 * time.Second
	DefaultNodeLimit  = 250_000
	maxDefaultWorkers = 8

	// ctx is polled every checkEvery search nodes.
	checkEvery = 1024
)

// Assignment pairs a match with the slot it was placed in.
type Assignment struct {
	Match tournament.MatchDefinition
	Slot  tournament.Slot
}

// Result is a solved schedule.
type Result struct {
	Assignments []Assignment // ordered by slot index
	LastDay     int          // latest slot Day used
	Optimal     bool         // every shorter horizon was proven infeasible
}

// Solver places match definitions onto slots. The zero value is usable and
// applies the defaults.
type Solver struct {
	TimeBudget time.Duration
	Workers    int
	NodeLimit  int // per horizon, before moving on to a longer one
	Logger     *slog.Logger
}

func (s *Solver) timeBudget() time.Duration {
	if s == nil || s.TimeBudget <= 0 {
		return DefaultTimeBudget
	}
	return s.TimeBudget
}

func (s *Solver) workers() int {
	if s == nil || s.Workers <= 0 {
		return min(runtime.NumCPU(), maxDefaultWorkers)
	}
	return s.Workers
}

func (s *Solver) nodeLimit() int {
	if s == nil || s.NodeLimit <= 0 {
		return DefaultNodeLimit
	}
	return s.NodeLimit
}

func (s *Solver) logger() *slog.Logger {
	if s == nil || s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

// Solve assigns every match to exactly one slot such that no slot is used
// twice, no real team plays twice at the same day and time, two matches of
// a team are more than restDays days apart, and matches of a later phase
// start more than restDays days after every match of an earlier phase, so
// bracket placeholders keep their rest once they resolve. It minimizes the
// last day used.
//
// Horizons are tried from the shortest that could possibly fit, each raced
// by parallel workers. A horizon whose search exceeds the node limit is
// skipped and the result is then flagged as not proven optimal.
func (s *Solver) Solve(ctx context.Context, matches []tournament.MatchDefinition, slots []tournament.Slot, restDays int) (*Result, error) {
	if len(matches) == 0 {
		return &Result{Optimal: true}, nil
	}
	if len(slots) < len(matches) {
		return nil, fmt.Errorf("%w: %d matches but only %d slots", tournament.ErrInsufficientSlots, len(matches), len(slots))
	}
	if restDays < 0 {
		return nil, fmt.Errorf("%w: rest days must not be negative, got %d", tournament.ErrConfiguration, restDays)
	}

	log := s.logger()
	budget := s.timeBudget()
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	p := newProblem(matches, slots, restDays)
	first := p.lowerBound()
	if first < 0 {
		return nil, fmt.Errorf("%w: %d matches need more days than the %d available", tournament.ErrInfeasible, len(matches), len(p.dayValues))
	}

	proven := true
	var found []int
	for horizon := first; horizon < len(p.dayValues) && found == nil; horizon++ {
		days, out := s.race(ctx, p, horizon+1, s.nodeLimit())
		switch out {
		case outcomeFound:
			found = days
		case outcomeExhausted:
			log.Debug("horizon infeasible", "last_day", p.dayValues[horizon])
		case outcomeAborted:
			if ctx.Err() != nil {
				return nil, s.budgetError(ctx, budget, len(matches))
			}
			proven = false
			log.Debug("horizon skipped", "last_day", p.dayValues[horizon], "node_limit", s.nodeLimit())
		}
	}

	if found == nil && !proven {
		// Every horizon ran out of nodes; search the full range without a
		// node limit until the time budget runs out.
		days, out := s.race(ctx, p, len(p.dayValues), 0)
		switch out {
		case outcomeFound:
			found = days
		case outcomeAborted:
			return nil, s.budgetError(ctx, budget, len(matches))
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %d matches cannot be placed in %d slots over %d days with %d rest days",
			tournament.ErrInfeasible, len(matches), len(slots), len(p.dayValues), restDays)
	}

	result := p.result(found)
	result.Optimal = proven
	log.Info("schedule solved",
		"matches", len(matches),
		"slots", len(slots),
		"last_day", result.LastDay,
		"optimal", result.Optimal,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return result, nil
}

func (s *Solver) budgetError(ctx context.Context, budget time.Duration, matches int) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: no schedule for %d matches found within %s", tournament.ErrInfeasible, matches, budget)
	}
	return ctx.Err()
}

var errSettled = errors.New("horizon settled")

// race runs the workers on one horizon. The first worker to find a schedule
// or to exhaust the search space settles the horizon and stops the others.
func (s *Solver) race(ctx context.Context, p *problem, horizon, nodeLimit int) ([]int, outcome) {
	var (
		mu      sync.Mutex
		settled bool
		days    []int
		result  = outcomeAborted
	)

	g, gctx := errgroup.WithContext(ctx)
	for w := range s.workers() {
		g.Go(func() error {
			sr := newSearch(p, horizon, nodeLimit, w)
			assigned, out := sr.run(gctx)
			if out == outcomeAborted {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			if !settled {
				settled = true
				days = assigned
				result = out
			}
			return errSettled
		})
	}
	_ = g.Wait()
	return days, result
}

type outcome int

const (
	outcomeFound outcome = iota
	outcomeExhausted
	outcomeAborted
)

// rankOf orders phases for the sequencing constraint. Final and third place
// share a rank.
func rankOf(m tournament.MatchDefinition) int {
	switch m.Phase {
	case tournament.PhaseQuarterfinal:
		return 1
	case tournament.PhaseSemifinal:
		return 2
	case tournament.PhaseFinal, tournament.PhaseThirdPlace:
		return 3
	}
	if m.Playoff {
		return 3
	}
	return 0
}

const rankCount = 4

// problem is the immutable part of a solve shared by all workers. Matches
// are assigned to day positions; slots inside a day are handed out once the
// days are fixed.
type problem struct {
	matches   []tournament.MatchDefinition
	rest      int
	dayValues []int               // distinct slot days, ascending
	daySlots  [][]tournament.Slot // slots per day position, by index
	neighbors [][]int             // matches sharing a real team
	rank      []int
	windowLo  []int // day positions within rest days of each position
	windowHi  []int
}

func newProblem(matches []tournament.MatchDefinition, slots []tournament.Slot, rest int) *problem {
	ordered := make([]tournament.Slot, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	p := &problem{matches: matches, rest: rest}
	pos := make(map[int]int)
	for _, sl := range ordered {
		if _, ok := pos[sl.Day]; !ok {
			pos[sl.Day] = -1
			p.dayValues = append(p.dayValues, sl.Day)
		}
	}
	sort.Ints(p.dayValues)
	for i, d := range p.dayValues {
		pos[d] = i
	}
	p.daySlots = make([][]tournament.Slot, len(p.dayValues))
	for _, sl := range ordered {
		i := pos[sl.Day]
		p.daySlots[i] = append(p.daySlots[i], sl)
	}

	byTeam := make(map[int][]int)
	p.rank = make([]int, len(matches))
	for i, m := range matches {
		p.rank[i] = rankOf(m)
		for _, t := range m.Teams() {
			byTeam[t.ID] = append(byTeam[t.ID], i)
		}
	}
	p.neighbors = make([][]int, len(matches))
	for _, ms := range byTeam {
		for _, a := range ms {
			for _, b := range ms {
				if a != b {
					p.neighbors[a] = append(p.neighbors[a], b)
				}
			}
		}
	}

	p.windowLo = make([]int, len(p.dayValues))
	p.windowHi = make([]int, len(p.dayValues))
	for i, d := range p.dayValues {
		lo, hi := i, i
		for lo > 0 && d-p.dayValues[lo-1] <= rest {
			lo--
		}
		for hi < len(p.dayValues)-1 && p.dayValues[hi+1]-d <= rest {
			hi++
		}
		p.windowLo[i], p.windowHi[i] = lo, hi
	}
	return p
}

// lowerBound returns the first day position that could end a feasible
// schedule, or -1 if even the full range cannot: enough total capacity,
// and enough spread for the busiest team.
func (p *problem) lowerBound() int {
	perTeam := make(map[int]int)
	busiest := 0
	for _, m := range p.matches {
		for _, t := range m.Teams() {
			perTeam[t.ID]++
			busiest = max(busiest, perTeam[t.ID])
		}
	}
	span := 0
	if busiest > 0 {
		span = (busiest - 1) * (p.rest + 1)
	}

	capacity := 0
	for i, d := range p.dayValues {
		capacity += len(p.daySlots[i])
		if capacity >= len(p.matches) && d-p.dayValues[0] >= span {
			return i
		}
	}
	return -1
}

// result maps day positions to concrete slots, taking each day's slots in
// index order for its matches in id order.
func (p *problem) result(days []int) *Result {
	byDay := make([][]int, len(p.dayValues))
	for i, d := range days {
		byDay[d] = append(byDay[d], i)
	}

	res := &Result{}
	for d, ms := range byDay {
		sort.SliceStable(ms, func(a, b int) bool { return p.matches[ms[a]].ID < p.matches[ms[b]].ID })
		for k, i := range ms {
			res.Assignments = append(res.Assignments, Assignment{Match: p.matches[i], Slot: p.daySlots[d][k]})
			res.LastDay = max(res.LastDay, p.dayValues[d])
		}
	}
	sort.SliceStable(res.Assignments, func(a, b int) bool {
		return res.Assignments[a].Slot.Index < res.Assignments[b].Slot.Index
	})
	return res
}

// search is one worker's backtracking state. Worker 0 is deterministic;
// the others break ties and order values randomly.
type search struct {
	p         *problem
	horizon   int // usable day positions
	nodeLimit int // 0 means unlimited
	nodes     int
	rng       *rand.Rand
	ctx       context.Context

	assign  []int     // day position per match, -1 while unassigned
	used    []int     // matches placed per day position
	blocked [][]int32 // reasons a match cannot use a day position
	minDay  [rankCount]int
	maxDay  [rankCount]int
}

func newSearch(p *problem, horizon, nodeLimit, worker int) *search {
	s := &search{
		p:         p,
		horizon:   horizon,
		nodeLimit: nodeLimit,
		assign:    make([]int, len(p.matches)),
		used:      make([]int, len(p.dayValues)),
		blocked:   make([][]int32, len(p.matches)),
	}
	if worker > 0 {
		s.rng = rand.New(rand.NewSource(int64(42 + worker)))
	}
	for i := range s.assign {
		s.assign[i] = -1
		s.blocked[i] = make([]int32, len(p.dayValues))
	}
	for r := range rankCount {
		s.minDay[r] = len(p.dayValues)
		s.maxDay[r] = -1
	}
	return s
}

func (s *search) run(ctx context.Context) ([]int, outcome) {
	s.ctx = ctx
	out := s.solve(0)
	if out != outcomeFound {
		return nil, out
	}
	days := make([]int, len(s.assign))
	copy(days, s.assign)
	return days, outcomeFound
}

func (s *search) solve(depth int) outcome {
	if depth == len(s.assign) {
		return outcomeFound
	}
	s.nodes++
	if s.nodeLimit > 0 && s.nodes > s.nodeLimit {
		return outcomeAborted
	}
	if s.nodes%checkEvery == 0 && s.ctx.Err() != nil {
		return outcomeAborted
	}

	lo, hi := s.rankWindows()
	i := s.pickMatch(lo, hi)
	if i < 0 {
		return outcomeExhausted
	}
	values := s.candidates(i, lo[s.p.rank[i]], hi[s.p.rank[i]])
	if s.rng != nil {
		s.rng.Shuffle(len(values), func(a, b int) { values[a], values[b] = values[b], values[a] })
	}

	for _, d := range values {
		r := s.p.rank[i]
		oldMin, oldMax := s.minDay[r], s.maxDay[r]
		s.place(i, d)
		s.minDay[r], s.maxDay[r] = min(oldMin, d), max(oldMax, d)

		if out := s.solve(depth + 1); out != outcomeExhausted {
			return out
		}

		s.unplace(i, d)
		s.minDay[r], s.maxDay[r] = oldMin, oldMax
	}
	return outcomeExhausted
}

// rankWindows returns, per rank, the inclusive range of day positions still
// compatible with the matches already placed in other ranks, keeping a rest
// gap between ranks.
func (s *search) rankWindows() (lo, hi [rankCount]int) {
	for r := range rankCount {
		lo[r], hi[r] = 0, s.horizon-1
		for o := range rankCount {
			switch {
			case o < r && s.maxDay[o] >= 0:
				lo[r] = max(lo[r], s.p.windowHi[s.maxDay[o]]+1)
			case o > r && s.minDay[o] < len(s.p.dayValues):
				hi[r] = min(hi[r], s.p.windowLo[s.minDay[o]]-1)
			}
		}
	}
	return lo, hi
}

func (s *search) open(i, d int) bool {
	return s.blocked[i][d] == 0 && s.used[d] < len(s.p.daySlots[d])
}

// pickMatch returns the unassigned match with the fewest open days, or -1
// when some unassigned match has none left.
func (s *search) pickMatch(lo, hi [rankCount]int) int {
	best, bestSize, bestDegree := -1, 0, 0
	ties := 0
	for i, day := range s.assign {
		if day >= 0 {
			continue
		}
		r := s.p.rank[i]
		size := 0
		for d := lo[r]; d <= hi[r]; d++ {
			if s.open(i, d) {
				size++
			}
		}
		if size == 0 {
			return -1
		}
		degree := len(s.p.neighbors[i])
		switch {
		case best < 0 || size < bestSize || (size == bestSize && degree > bestDegree):
			best, bestSize, bestDegree = i, size, degree
			ties = 1
		case size == bestSize && degree == bestDegree && s.rng != nil:
			// Reservoir sampling over equally constrained matches.
			ties++
			if s.rng.Intn(ties) == 0 {
				best = i
			}
		}
	}
	return best
}

func (s *search) candidates(i, lo, hi int) []int {
	var values []int
	for d := lo; d <= hi; d++ {
		if s.open(i, d) {
			values = append(values, d)
		}
	}
	return values
}

func (s *search) place(i, d int) {
	s.assign[i] = d
	s.used[d]++
	for _, j := range s.p.neighbors[i] {
		for e := s.p.windowLo[d]; e <= s.p.windowHi[d]; e++ {
			s.blocked[j][e]++
		}
	}
}

func (s *search) unplace(i, d int) {
	for _, j := range s.p.neighbors[i] {
		for e := s.p.windowLo[d]; e <= s.p.windowHi[d]; e++ {
			s.blocked[j][e]--
		}
	}
	s.used[d]--
	s.assign[i] = -1
}
