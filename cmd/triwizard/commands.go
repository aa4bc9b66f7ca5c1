package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"triwizard/internal/devtools"
	"triwizard/internal/script"
	"triwizard/internal/state"
	"triwizard/internal/telemetry"

	"github.com/dustin/go-humanize"
	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

func simulateCmd(f *flags) *cobra.Command {
	var (
		scenario string
		record   string
		report   string
		realtime bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a scripted run without a terminal UI",
		Long: `Replays a named scenario against the built-in (or --script) challenge on a
virtual clock. The same --seed always produces the same run. With --realtime
the run waits out every delay on the wall clock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			sc, err := script.NewLoader().Load(cfg.ScriptPath)
			if err != nil {
				return fmt.Errorf("load script: %w", err)
			}
			logger, err := telemetry.NewJSONLogger(cfg.LogPath, cfg.Debug)
			if err != nil {
				return fmt.Errorf("open log: %w", err)
			}
			defer logger.Close()

			m := devtools.NewManager()
			scen, err := m.Resolve(scenario)
			if err != nil {
				return err
			}

			var out io.Writer
			switch record {
			case "":
			case "-":
				out = cmd.OutOrStdout()
			default:
				file, err := os.Create(record)
				if err != nil {
					return fmt.Errorf("open recording: %w", err)
				}
				defer file.Close()
				out = file
			}

			opts := devtools.RunOptions{Seed: cfg.Seed, Script: &sc, Out: out, Logger: logger, Realtime: realtime}
			if !cfg.NoHistory {
				store, err := openStore(cmd.Context(), cfg.HistoryPath())
				if err != nil {
					return err
				}
				defer store.Close()
				opts.Store = store
			}

			rep, runErr := m.Run(cmd.Context(), scen, opts)
			if report != "" {
				if err := devtools.WriteReport(report, rep); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			}
			if record != "-" {
				printReport(cmd.OutOrStdout(), rep)
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&scenario, "scenario", "speedrun", fmt.Sprintf("scenario to replay %v", devtools.NewManager().Names()))
	cmd.Flags().StringVar(&record, "record", "", "write every view update as JSON lines to this file (- for stdout)")
	cmd.Flags().StringVar(&report, "report", "", "write the run report as JSON to this file")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "play at wall-clock speed instead of skipping ahead")
	return cmd
}

func printReport(w io.Writer, rep devtools.Report) {
	fmt.Fprintf(w, "scenario  %s (seed %d)\n", rep.Scenario, rep.Seed)
	fmt.Fprintf(w, "reached   %s after %s of game time\n", rep.Reached, rep.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "attempts  %s\n", humanize.Comma(int64(rep.Attempts)))
	if rep.Uploads > 0 {
		fmt.Fprintf(w, "uploads   %s\n", humanize.Comma(int64(rep.Uploads)))
		fmt.Fprintf(w, "score     %s%% (%s)\n", humanize.FtoaWithDigits(rep.Score, 1), rep.Tier)
	}
	fmt.Fprintf(w, "frames    %s\n", humanize.Comma(int64(rep.Lines)))
}

func statsCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()

			sum, err := store.GetSummary(cmd.Context())
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			w := cmd.OutOrStdout()
			if sum.Sessions == 0 {
				fmt.Fprintln(w, "No runs yet. Start one with `triwizard play`.")
				return nil
			}
			fmt.Fprintf(w, "runs          %s\n", humanize.Comma(int64(sum.Sessions)))
			fmt.Fprintf(w, "champions     %s\n", humanize.Comma(int64(sum.Champions)))
			fmt.Fprintf(w, "attempts      %s\n", humanize.Comma(int64(sum.Attempts)))
			fmt.Fprintf(w, "uploads       %s\n", humanize.Comma(int64(sum.Uploads)))
			fmt.Fprintf(w, "best score    %s%%\n", humanize.FtoaWithDigits(sum.BestScore, 1))
			if !sum.LastPlayed.IsZero() {
				fmt.Fprintf(w, "last played   %s\n", humanize.Time(sum.LastPlayed))
			}

			last, err := store.GetLastSession(cmd.Context())
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			if last != nil {
				status := "left at " + last.Reached
				if last.Completed {
					status = "completed"
				}
				fmt.Fprintf(w, "last run      %s, %s attempts\n", status, humanize.Comma(int64(last.Attempts)))
			}
			return nil
		},
	}
}

func openStore(ctx context.Context, path string) (*state.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	store, err := state.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

func scriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Inspect challenge scripts",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate <file>",
			Short: "Check a script YAML file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sc, err := script.NewLoader().Load(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok: %q with %d riddles and %d problems\n",
					sc.Title, len(sc.Dialogue.Riddles), len(sc.Gate.Problems))
				return nil
			},
		},
		&cobra.Command{
			Use:   "dump",
			Short: "Print the built-in script",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return script.DumpDefault(cmd.OutOrStdout())
			},
		},
	)
	return cmd
}

func manCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:    "man",
		Short:  "Print the manual page",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := mcobra.NewManPage(1, root)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), page.Build(roff.NewDocument()))
			return err
		},
	}
}
