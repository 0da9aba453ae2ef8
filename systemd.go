package main

import (
	"context"
	"fmt"
	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"
	"strings"
	"time"
)

func notifySystemd(log *zap.SugaredLogger, states ...string) {
	supported, err := daemon.SdNotify(false, strings.Join(states, "\n"))
	if err != nil {
		log.Debugw("notify systemd", "error", err)
		return
	}
	if !supported {
		log.Debug("not running under systemd notify")
	}
}

func systemdWatchdogLoop(ctx context.Context) error {
	t, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return fmt.Errorf("check watchdog: %w", err)
	}
	// if watchdog is not enabled, we don't need to notify it
	if t == 0 {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-time.After(t / 2):
			_, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			if err != nil {
				return fmt.Errorf("notify watchdog: %w", err)
			}
		}
	}
}
