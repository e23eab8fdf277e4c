package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/derekprior/tourney/internal/schedule"
	"github.com/derekprior/tourney/internal/tournament"
)

// Date is a wrapper around time.Time for YAML date parsing.
type Date struct {
	Time time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse("2006-01-02", value.Value)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", value.Value, err)
	}
	d.Time = t
	return nil
}

// Duration parses Go duration strings such as "30s" or "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

type Championship struct {
	StartDate Date `yaml:"start_date"`
	EndDate   Date `yaml:"end_date"`
}

type Schedule struct {
	DayStart           tournament.Clock `yaml:"day_start"`
	DayEnd             tournament.Clock `yaml:"day_end"`
	MatchDurationHours int              `yaml:"match_duration_hours"`
	RestDays           int              `yaml:"rest_days"`
}

type Venue struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

type Team struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

type Solver struct {
	TimeBudget Duration `yaml:"time_budget"`
	Workers    int      `yaml:"workers"`
	NodeLimit  int      `yaml:"node_limit"`
}

type Config struct {
	Championship Championship `yaml:"championship"`
	Schedule     Schedule     `yaml:"schedule"`
	Venues       []Venue      `yaml:"venues"`
	Teams        []Team       `yaml:"teams"`
	Solver       Solver       `yaml:"solver"`
	LogLevel     string       `yaml:"log_level"`
}

// Range returns the championship dates.
func (c *Config) Range() tournament.DateRange {
	return tournament.DateRange{Start: c.Championship.StartDate.Time, End: c.Championship.EndDate.Time}
}

// ScheduleConfig returns the daily window and spacing rules.
func (c *Config) ScheduleConfig() tournament.ScheduleConfig {
	return tournament.ScheduleConfig{
		DayStart:   c.Schedule.DayStart,
		DayEnd:     c.Schedule.DayEnd,
		MatchHours: c.Schedule.MatchDurationHours,
		RestDays:   c.Schedule.RestDays,
	}
}

// TournamentTeams returns the configured teams in file order.
func (c *Config) TournamentTeams() []tournament.Team {
	teams := make([]tournament.Team, len(c.Teams))
	for i, t := range c.Teams {
		teams[i] = tournament.Team{ID: t.ID, Name: t.Name}
	}
	return teams
}

// TournamentVenues returns the configured venues in file order.
func (c *Config) TournamentVenues() []tournament.Venue {
	venues := make([]tournament.Venue, len(c.Venues))
	for i, v := range c.Venues {
		venues[i] = tournament.Venue{ID: v.ID, Name: v.Name}
	}
	return venues
}

// NewSolver builds a solver from the solver section. Zero values keep the
// solver defaults.
func (c *Config) NewSolver(logger *slog.Logger) *schedule.Solver {
	return &schedule.Solver{
		TimeBudget: c.Solver.TimeBudget.Duration,
		Workers:    c.Solver.Workers,
		NodeLimit:  c.Solver.NodeLimit,
		Logger:     logger,
	}
}

// Level parses log_level; unknown or empty values mean info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LoadFromBytes parses YAML bytes into a Config and validates it.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

// Environment variables that override the file.
const (
	EnvTimeBudget = "TOURNEY_SOLVER_TIME_BUDGET"
	EnvWorkers    = "TOURNEY_SOLVER_WORKERS"
	EnvLogLevel   = "TOURNEY_LOG_LEVEL"
)

// ApplyEnv overlays solver and logging settings from the environment.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvTimeBudget)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", EnvTimeBudget, v, err)
		}
		c.Solver.TimeBudget = Duration{d}
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkers)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%s: want a positive integer, got %q", EnvWorkers, v)
		}
		c.Solver.Workers = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	return nil
}

func (c *Config) validate() error {
	if err := c.Range().Validate(); err != nil {
		return err
	}
	if err := c.ScheduleConfig().Validate(); err != nil {
		return err
	}

	if len(c.Venues) == 0 {
		return fmt.Errorf("at least one venue is required")
	}
	venueIDs := make(map[int]string)
	for _, v := range c.Venues {
		if prev, ok := venueIDs[v.ID]; ok {
			return fmt.Errorf("venue id %d is used by both %q and %q", v.ID, prev, v.Name)
		}
		venueIDs[v.ID] = v.Name
	}

	if len(c.Teams) == 0 {
		return fmt.Errorf("at least one team is required")
	}
	teamIDs := make(map[int]string)
	names := make(map[string]bool)
	for _, t := range c.Teams {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("team %d has no name", t.ID)
		}
		if prev, ok := teamIDs[t.ID]; ok {
			return fmt.Errorf("team id %d is used by both %q and %q", t.ID, prev, t.Name)
		}
		teamIDs[t.ID] = t.Name
		key := strings.ToLower(t.Name)
		if names[key] {
			return fmt.Errorf("team %q appears more than once", t.Name)
		}
		names[key] = true
	}

	if c.Solver.Workers < 0 || c.Solver.NodeLimit < 0 || c.Solver.TimeBudget.Duration < 0 {
		return fmt.Errorf("solver settings must not be negative")
	}
	return nil
}
