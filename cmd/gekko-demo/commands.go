package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	gekko "github.com/gekko3d/gekko-app"
	"github.com/gekko3d/gekko-app/config"
	"github.com/gekko3d/gekko-app/luasys"
)

type rootOptions struct {
	ConfigPath string
	Verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "gekko-demo",
		Short:         "Demo application for the gekko app runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newScheduleCommand(opts))

	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var exitAfter uint64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the demo app and run it until it exits",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildDemoApp(ctx, opts, exitAfter)
			if err != nil {
				return err
			}
			return app.Run()
		},
	}
	cmd.Flags().Uint64Var(&exitAfter, "exit-after", 0, "raise AppExit after this many frames (0 = never)")
	return cmd
}

func newScheduleCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Print the demo app's stages and system order",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildDemoApp(cmd.Context(), opts, 0)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), app.DescribeSchedule())
			return err
		},
	}
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg := config.Defaults()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return nil, err
		}
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func buildDemoApp(ctx context.Context, opts *rootOptions, exitAfter uint64) (*gekko.App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	b := gekko.NewAppBuilder().
		WithContext(ctx).
		AddPlugin(gekko.ConfigPlugin{Config: cfg})
	if cfg.Scripts.Dir != "" {
		b.AddPlugin(luasys.Plugin{Dir: cfg.Scripts.Dir})
	}

	b.AddResource(&heartbeat{Every: 60})
	b.AddStartupSystem(gekko.System(announceSystem).Label("announce"))
	b.UseSystem(
		gekko.System(heartbeatSystem).
			InStage(gekko.PostUpdate).
			Label("heartbeat"),
	)
	if exitAfter > 0 {
		b.AddResource(&exitLimit{Frames: exitAfter})
		b.UseSystem(
			gekko.System(exitAfterSystem).
				InStage(gekko.Last).
				Label("exit_after"),
		)
	}

	return b.Build()
}
