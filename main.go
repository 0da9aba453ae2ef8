package main

import (
	"codeberg.org/miketth/keylamp/pkg/config"
	"codeberg.org/miketth/keylamp/pkg/inputsource"
	"codeberg.org/miketth/keylamp/pkg/keylamp"
	"codeberg.org/miketth/keylamp/pkg/metrics"
	"codeberg.org/miketth/keylamp/pkg/palette"
	"codeberg.org/miketth/keylamp/pkg/palette/sqlite"
	"codeberg.org/miketth/keylamp/pkg/serialport"
	"codeberg.org/miketth/keylamp/pkg/xkblayouts"
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func runBridge(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	precondition := keylamp.RequireEnv("HOME")
	if err := precondition(); err != nil {
		return fmt.Errorf("%w: %w", keylamp.ErrPrecondition, err)
	}

	colors, err := openPalette(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open palette: %w", err)
	}

	prober := newProber(cfg, log)

	sup := keylamp.NewSupervisor(keylamp.Options{
		Finder: keylamp.DeviceFinderFunc(func(ctx context.Context) (keylamp.Indicator, bool) {
			ch, ok := prober.FindDevice(ctx)
			if !ok {
				return nil, false
			}
			return ch, true
		}),
		Connector: keylamp.SourceConnectorFunc(func(ctx context.Context) (keylamp.LayoutSource, error) {
			client, err := inputsource.Connect(ctx, cfg.BusPolicy(), log.Named("bus"))
			if err != nil {
				return nil, err
			}
			return client, nil
		}),
		Palette:      colors,
		Idle:         cfg.Idle(),
		Off:          cfg.Off(),
		Precondition: precondition,
		Names:        loadLayoutNames(cfg.XKB.Rules, log),
		Hooks: keylamp.Hooks{
			Ready:    func() { notifySystemd(log, "READY=1", "STATUS=Following keyboard layout changes") },
			Stopping: func() { notifySystemd(log, "STOPPING=1") },
		},
	}, log.Named("supervisor"))

	auxCtx, cancelAux := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := metrics.Serve(auxCtx, cfg.Metrics.Listen, log.Named("metrics")); err != nil {
			log.Warnw("metrics endpoint stopped", "error", err)
		}
	}()

	go func() {
		defer wg.Done()
		err := systemdWatchdogLoop(auxCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warnw("systemd watchdog stopped", "error", err)
		}
	}()

	log.Info("started keylamp")
	err = sup.Run(ctx)

	cancelAux()
	wg.Wait()

	if err != nil {
		return err
	}

	log.Info("stopped keylamp")
	return nil
}

func newProber(cfg *config.Config, log *zap.SugaredLogger) *serialport.Prober {
	return serialport.NewProber(
		serialport.ListSerial(cfg.Serial.Prefixes),
		serialport.OpenSerial(cfg.Serial.Baud),
		cfg.Probe(),
		log.Named("serial"),
	)
}

func openPalette(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (palette.Palette, error) {
	if cfg.Palette.Store == config.StoreMemory {
		return palette.NewMemory(cfg.Colors()), nil
	}

	store, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	colors, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load palette: %w", err)
	}

	return colors, nil
}

func openStore(cfg *config.Config, log *zap.SugaredLogger) (*sqlite.Store, error) {
	path := cfg.Palette.Database
	if path == "" {
		var err error
		path, err = config.DefaultDatabasePath()
		if err != nil {
			return nil, err
		}
	}

	store, err := sqlite.NewStore(path, log.Named("palette"))
	if err != nil {
		return nil, fmt.Errorf("open palette store %s: %w", path, err)
	}

	return store, nil
}

// loadLayoutNames is optional decoration for log lines; a missing rules file
// only costs the human-readable names.
func loadLayoutNames(path string, log *zap.SugaredLogger) keylamp.LayoutNamer {
	if path == "" {
		return nil
	}

	registry, err := xkblayouts.Load(path)
	if err != nil {
		log.Debugw("layout names unavailable", "path", path, "error", err)
		return nil
	}

	return registry
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	loggerConfig := zap.NewDevelopmentConfig()

	loggerConfig.OutputPaths = []string{"stdout"}
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger.Sugar(), nil
}
