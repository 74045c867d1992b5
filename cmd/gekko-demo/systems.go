package main

import (
	gekko "github.com/gekko3d/gekko-app"
	"github.com/gekko3d/gekko-app/config"
)

type heartbeat struct {
	Every uint64
}

type exitLimit struct {
	Frames uint64
}

func announceSystem(cfg *config.Config, log *gekko.DefaultLogger) {
	log.Infof("%s starting (runner=%s, wait=%s)", cfg.App.Name, cfg.Runner.Mode, cfg.Runner.Wait)
}

func heartbeatSystem(t *gekko.Time, hb *heartbeat, log *gekko.DefaultLogger) {
	if hb.Every == 0 || t.Frame%hb.Every != 0 {
		return
	}
	log.Infof("frame %d, elapsed %s, dt %s", t.Frame, t.Elapsed(), t.Dt)
}

func exitAfterSystem(t *gekko.Time, limit *exitLimit, cmd *gekko.Commands) {
	if t.Frame >= limit.Frames {
		cmd.Exit("exit-after")
	}
}
