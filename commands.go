package main

import (
	"codeberg.org/miketth/keylamp/pkg/config"
	"codeberg.org/miketth/keylamp/pkg/palette"
	"context"
	"errors"
	"fmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
)

type globalFlags struct {
	configPath    string
	debug         bool
	metricsListen string
}

type app struct {
	flags globalFlags
	cfg   *config.Config
	log   *zap.SugaredLogger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "keylamp",
		Short:         "Show the active keyboard layout on a serial-attached lamp",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.report(runBridge(cmd.Context(), a.cfg, a.log))
		},
	}

	root.PersistentFlags().StringVarP(&a.flags.configPath, "config", "c", "", "path to config.toml (default $XDG_CONFIG_HOME/keylamp/config.toml)")
	root.PersistentFlags().BoolVar(&a.flags.debug, "debug", false, "enable debug logging")
	root.Flags().StringVar(&a.flags.metricsListen, "metrics-listen", "", "address for the Prometheus /metrics endpoint")

	root.AddCommand(a.newProbeCmd(), a.newPaletteCmd())

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	path := a.flags.configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}

	if cmd.Flags().Changed("debug") {
		cfg.Debug = a.flags.debug
	}
	if f := cmd.Flags().Lookup("metrics-listen"); f != nil && f.Changed {
		cfg.Metrics.Listen = a.flags.metricsListen
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return fmt.Errorf("create logger: %w", err)
	}

	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) report(err error) error {
	if err != nil {
		a.log.Errorw("keylamp failed", "error", err)
	}
	_ = a.log.Sync()
	return err
}

func (a *app) newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Look for the lamp and print its device path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ch, ok := newProber(a.cfg, a.log).FindDevice(ctx)
			if !ok {
				return a.report(errors.New("no lamp found"))
			}
			defer ch.Close()

			fmt.Fprintln(cmd.OutOrStdout(), ch.Path())
			return nil
		},
	}
}

func (a *app) newPaletteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "palette",
		Short: "Inspect or edit the sqlite layout palette",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print every layout and its color",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.report(a.listPalette(cmd.Context(), cmd))
			},
		},
		&cobra.Command{
			Use:   "set <layout> <color>",
			Short: "Assign a color (name or digit) to a layout",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				color, err := palette.ParseColor(args[1])
				if err != nil {
					return a.report(err)
				}
				return a.report(a.editPalette(cmd.Context(), func(ctx context.Context, s paletteEditor) error {
					return s.Set(ctx, args[0], color)
				}))
			},
		},
		&cobra.Command{
			Use:   "unset <layout>",
			Short: "Remove a layout so its events are ignored",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.report(a.editPalette(cmd.Context(), func(ctx context.Context, s paletteEditor) error {
					return s.Delete(ctx, args[0])
				}))
			},
		},
	)

	return cmd
}

type paletteEditor interface {
	Set(ctx context.Context, layout string, color palette.Color) error
	Delete(ctx context.Context, layout string) error
}

func (a *app) editPalette(ctx context.Context, edit func(context.Context, paletteEditor) error) error {
	store, err := openStore(a.cfg, a.log)
	if err != nil {
		return err
	}
	defer store.Close()

	return edit(ctx, store)
}

func (a *app) listPalette(ctx context.Context, cmd *cobra.Command) error {
	store, err := openStore(a.cfg, a.log)
	if err != nil {
		return err
	}
	defer store.Close()
	a.log.Debugw("listing palette", "schema", store.SchemaVersion())

	entries, err := store.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LAYOUT\tCOLOR\tCODE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%c\n", e.Layout, e.Color, byte(e.Color))
	}
	return w.Flush()
}
