// Command triwizard plays the GenAisis Triwizard Challenge in the terminal.
//
// Usage:
//
//	triwizard                 # play
//	triwizard simulate        # replay a scripted run headlessly
//	triwizard stats           # show run history
//	triwizard script dump     # print the built-in script
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"triwizard/internal/app"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	dataDir   string
	logPath   string
	debug     bool
	script    string
	seed      uint64
	ascii     bool
	noHistory bool
	style     string
	motion    string
}

func rootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "triwizard",
		Short:         "Play the GenAisis Triwizard Challenge",
		Long:          "A riddle duel with a wise guide, three coding trials and a simulated model battle, all in the terminal.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return play(cmd, &f)
		},
	}

	bindFlags(cmd, &f)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "play",
			Short: "Play the challenge (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return play(cmd, &f)
			},
		},
		simulateCmd(&f),
		statsCmd(&f),
		scriptCmd(),
		manCmd(cmd),
	)
	return cmd
}

func bindFlags(cmd *cobra.Command, f *flags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.dataDir, "data-dir", "", "directory for the run history (default: the XDG data dir)")
	pf.StringVar(&f.logPath, "log", "", "write JSON logs to this file")
	pf.BoolVar(&f.debug, "debug", false, "log debug events")
	pf.StringVar(&f.script, "script", "", "play a custom script YAML instead of the built-in one")
	pf.Uint64Var(&f.seed, "seed", 0, "seed for response jitter and scores (0 picks one)")
	pf.BoolVar(&f.ascii, "ascii", false, "draw with ASCII only")
	pf.BoolVar(&f.noHistory, "no-history", false, "do not record this run")
	pf.StringVar(&f.style, "style", "great_hall", "color theme: great_hall, parchment, retro_terminal, twilight")
	pf.StringVar(&f.motion, "motion", "full", "animation level: full, reduced, off")
}

// loadConfig resolves flags over TRIWIZARD_* variables over defaults.
func loadConfig(cmd *cobra.Command, f *flags) (app.Config, error) {
	cfg := app.DefaultConfig()
	if err := app.LoadEnv(&cfg); err != nil {
		return cfg, err
	}
	changed := cmd.Flags().Changed
	if changed("data-dir") {
		cfg.DataDir = f.dataDir
	}
	if changed("log") {
		cfg.LogPath = f.logPath
	}
	if changed("debug") {
		cfg.Debug = f.debug
	}
	if changed("script") {
		cfg.ScriptPath = f.script
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("ascii") {
		cfg.ASCIIOnly = f.ascii
	}
	if changed("no-history") {
		cfg.NoHistory = f.noHistory
	}
	if changed("style") {
		cfg.UI.StyleVariant = f.style
	}
	if changed("motion") {
		cfg.UI.MotionLevel = f.motion
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func play(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(cmd.Context())
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		return a.Run(gctx)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			a.Stop()
		case <-done:
		}
		return nil
	})
	return g.Wait()
}
