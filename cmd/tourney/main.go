package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/derekprior/tourney/internal/config"
	"github.com/derekprior/tourney/internal/excel"
	"github.com/derekprior/tourney/internal/stage"
	"github.com/derekprior/tourney/internal/tournament"
	"github.com/derekprior/tourney/internal/validator"
)

const defaultConfigFile = "config.yaml"

func resolveConfigPath(configFlag string) (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	}
	return "", fmt.Errorf("no config file found. Either create %s in the current directory or pass --config", defaultConfigFile)
}

// app holds what every command needs once the config is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *stage.Engine
}

func load(configFlag, levelFlag string) (*app, error) {
	configPath, err := resolveConfigPath(configFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if levelFlag != "" {
		cfg.LogLevel = levelFlag
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	return &app{
		cfg:    cfg,
		logger: logger,
		engine: stage.New(cfg.NewSolver(logger), logger),
	}, nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠ reading .env: %s\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "tourney",
		Short: "Tournament scheduler with bracket propagation",
	}

	var (
		configFile string
		logLevel   string
	)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: config.yaml in current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides the config)")

	var initOutputPath string
	initCmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a starter config.yaml in the current directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(initOutputPath)
		},
	}
	initCmd.Flags().StringVarP(&initOutputPath, "output", "o", defaultConfigFile, "Output path for the config file")

	structureCmd := &cobra.Command{
		Use:          "structure <teams>",
		Short:        "Show the series and playoff layout for a team count",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStructure(args[0])
		},
	}

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate, advance and validate schedules",
	}

	var (
		outputFile      string
		includePlayoffs bool
	)
	generateCmd := &cobra.Command{
		Use:          "generate",
		Short:        "Generate the group phase calendar from a config file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(configFile, logLevel)
			if err != nil {
				return err
			}
			return a.runGenerate(ctx, outputFile, includePlayoffs)
		},
	}
	generateCmd.Flags().StringVarP(&outputFile, "output", "o", "schedule.xlsx", "Output Excel file path")
	generateCmd.Flags().BoolVar(&includePlayoffs, "playoffs", false, "Also book the playoff bracket with placeholder teams")

	var nextOutput string
	nextCmd := &cobra.Command{
		Use:          "next <schedule.xlsx>",
		Short:        "Schedule the next phase once the current one has results",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(configFile, logLevel)
			if err != nil {
				return err
			}
			out := nextOutput
			if out == "" {
				out = args[0]
			}
			return a.runNext(ctx, args[0], out)
		},
	}
	nextCmd.Flags().StringVarP(&nextOutput, "output", "o", "", "Output Excel file path (default: overwrite the input)")

	validateCmd := &cobra.Command{
		Use:          "validate <schedule.xlsx>",
		Short:        "Validate a schedule against config rules",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(configFile, logLevel)
			if err != nil {
				return err
			}
			return a.runValidate(args[0])
		},
	}

	standingsCmd := &cobra.Command{
		Use:          "standings <schedule.xlsx>",
		Short:        "Print series standings from recorded results",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(configFile, logLevel)
			if err != nil {
				return err
			}
			return a.runStandings(args[0])
		},
	}

	scheduleCmd.AddCommand(generateCmd, nextCmd, validateCmd)
	rootCmd.AddCommand(initCmd, structureCmd, scheduleCmd, standingsCmd)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func runInit(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use -o to write elsewhere", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("✓ Created %s\n", outputPath)
	return nil
}

const configTemplate = `# Tournament Configuration
# ========================
# This file defines the parameters for generating a championship calendar.

# Championship dates. Both days are playable.
championship:
  start_date: "2026-03-02"
  end_date: "2026-03-29"

# Daily playing window. Matches run back to back from day_start; a match
# that would end after day_end is not scheduled. Times use 24-hour format.
#
# rest_days is the number of full days a team rests between two matches.
# 0 still allows at most one match per team per day.
schedule:
  day_start: "09:00"
  day_end: "19:00"
  match_duration_hours: 2
  rest_days: 1

# Venues where matches can be played. IDs must be unique.
venues:
  - id: 1
    name: Coliseo Municipal
  - id: 2
    name: Cancha Norte

# Registered teams. The team count decides the format:
#    2-7   one series, final between the two best teams
#    8-11  two series, semifinals
#   12-25  three to five series, quarterfinals
# Team names must be unique, ignoring case.
teams:
  - {id: 1, name: Aguilas}
  - {id: 2, name: Condores}
  - {id: 3, name: Halcones}
  - {id: 4, name: Jaguares}
  - {id: 5, name: Lobos}
  - {id: 6, name: Pumas}
  - {id: 7, name: Tiburones}
  - {id: 8, name: Zorros}

# Solver limits. The search stops at the first calendar that ends on the
# earliest possible day, or when the time budget runs out.
# TOURNEY_SOLVER_TIME_BUDGET and TOURNEY_SOLVER_WORKERS override these.
solver:
  time_budget: 30s
  workers: 4

# debug, info, warn or error. TOURNEY_LOG_LEVEL overrides it.
log_level: info
`

func runStructure(arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("team count must be a number, got %q", arg)
	}
	s, err := stage.ResolveStructure(n)
	if err != nil {
		return err
	}

	fmt.Printf("%d teams\n", n)
	fmt.Printf("  Series:        %d\n", s.Series)
	fmt.Printf("  Playoff teams: %d\n", s.PlayoffTeams)
	var phases []string
	for _, p := range tournament.StageSequence(s.PlayoffTeams) {
		phases = append(phases, string(p))
	}
	fmt.Printf("  Phases:        %s\n", strings.Join(phases, " → "))
	return nil
}

func (a *app) runGenerate(ctx context.Context, outputPath string, includePlayoffs bool) error {
	fmt.Printf("Scheduling %d teams from %s to %s...\n", len(a.cfg.Teams),
		a.cfg.Range().Start.Format("2006-01-02"), a.cfg.Range().End.Format("2006-01-02"))

	matches, err := a.engine.GenerateFullSchedule(ctx, stage.FullRequest{
		Teams:           a.cfg.TournamentTeams(),
		Venues:          a.cfg.TournamentVenues(),
		Range:           a.cfg.Range(),
		Config:          a.cfg.ScheduleConfig(),
		IncludePlayoffs: includePlayoffs,
	})
	if err != nil {
		return fmt.Errorf("scheduling: %w", err)
	}
	if len(matches) > 0 {
		fmt.Printf("✓ %d matches scheduled, last on %s\n", len(matches), matches[len(matches)-1].Date.Format("2006-01-02"))
	}

	return a.save(matches, outputPath)
}

func (a *app) runNext(ctx context.Context, inputPath, outputPath string) error {
	existing, err := excel.ReadMatches(inputPath)
	if err != nil {
		return fmt.Errorf("reading schedule: %w", err)
	}
	a.logger.Debug("read schedule", "path", inputPath, "matches", len(existing))

	scheduled, meta, err := a.engine.GenerateNextStage(ctx, stage.EventContext{
		Teams:   a.cfg.TournamentTeams(),
		Venues:  a.cfg.TournamentVenues(),
		Range:   a.cfg.Range(),
		Config:  a.cfg.ScheduleConfig(),
		Matches: existing,
	})
	printMeta(meta)
	switch {
	case errors.Is(err, tournament.ErrNoPendingStage):
		fmt.Println("✓ Tournament complete")
		return nil
	case errors.Is(err, tournament.ErrPhaseNotReady):
		fmt.Printf("⚠ %s\n", err)
		return nil
	case err != nil:
		return fmt.Errorf("scheduling: %w", err)
	}

	if len(scheduled) > 0 {
		fmt.Printf("✓ %d %s matches scheduled\n", len(scheduled), scheduled[0].Phase)
	}
	all := append(stage.Refresh(existing), scheduled...)
	return a.save(all, outputPath)
}

func printMeta(meta stage.StageMeta) {
	var done []string
	for _, p := range meta.CompletedPhases {
		done = append(done, string(p))
	}
	if len(done) == 0 {
		done = []string{"none"}
	}
	fmt.Printf("Completed phases: %s\n", strings.Join(done, ", "))
	if meta.NextStage != "" {
		fmt.Printf("Next phase:       %s\n", meta.NextStage)
	}
}

func (a *app) save(matches []tournament.ScheduledMatch, outputPath string) error {
	f, err := excel.Generate(a.cfg, matches)
	if err != nil {
		return fmt.Errorf("generating Excel: %w", err)
	}
	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	fmt.Printf("\n✓ Schedule saved to %s\n", outputPath)
	return nil
}

func (a *app) runValidate(schedulePath string) error {
	violations, err := validator.Validate(a.cfg, schedulePath)
	if err != nil {
		return fmt.Errorf("validating: %w", err)
	}

	errs := 0
	warnings := 0
	for _, v := range violations {
		switch v.Type {
		case "error":
			errs++
			fmt.Printf("✗ Rule violation: %s\n", v.Message)
		case "warning":
			warnings++
			fmt.Printf("⚠ Warning: %s\n", v.Message)
		}
	}

	fmt.Printf("\nValidation complete: %d rule violations, %d warnings\n", errs, warnings)

	// Regenerate derived sheets from the Matches sheet
	if err := excel.Rewrite(a.cfg, schedulePath); err != nil {
		return fmt.Errorf("updating sheets: %w", err)
	}
	fmt.Printf("✓ Sheets updated in %s\n", schedulePath)

	if errs > 0 {
		return fmt.Errorf("%d constraint violations found", errs)
	}
	return nil
}

func (a *app) runStandings(schedulePath string) error {
	matches, err := excel.ReadMatches(schedulePath)
	if err != nil {
		return fmt.Errorf("reading schedule: %w", err)
	}

	tables, global := a.engine.Standings(matches)
	for _, table := range tables {
		fmt.Printf("\n%s\n", table.Series)
		fmt.Printf("  %2s %-20s %3s %3s %3s %3s %4s %4s %4s %4s\n",
			"#", "Team", "P", "W", "D", "L", "GF", "GA", "GD", "Pts")
		for i, s := range table.Rows {
			fmt.Printf("  %2d %-20s %3d %3d %3d %3d %4d %4d %4d %4d\n",
				i+1, s.Team.Name, s.Played, s.Wins, s.Draws, s.Losses,
				s.GoalsFor, s.GoalsAgainst, s.GoalDiff(), s.Points)
		}
	}
	if len(tables) > 1 {
		fmt.Println("\nOverall")
		for i, s := range global {
			fmt.Printf("  %2d %-20s %4d pts  %+d\n", i+1, s.Team.Name, s.Points, s.GoalDiff())
		}
	}
	return nil
}
