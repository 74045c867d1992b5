package gekko

import (
	"fmt"

	"github.com/gekko3d/gekko-app/config"
)

// DefaultPlugins is the usual set: console logging, Time and a loop runner.
func DefaultPlugins() PluginGroup {
	return PluginGroup{
		GroupName: "gekko.DefaultPlugins",
		Plugins: []Plugin{
			LoggingPlugin{Level: "info", Format: "console"},
			TimePlugin{},
			ScheduleRunnerPlugin{Mode: RunModeLoop},
		},
	}
}

// ConfigPlugin applies a loaded config: logging, Time and the runner.
type ConfigPlugin struct {
	Config *config.Config
}

func (p ConfigPlugin) Build(b *AppBuilder) {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		b.Fail(fmt.Errorf("config plugin: %w", err))
		return
	}

	mode, err := ParseRunMode(cfg.Runner.Mode)
	if err != nil {
		b.Fail(fmt.Errorf("config plugin: %w", err))
		return
	}

	b.AddPlugin(LoggingPlugin{
		Prefix: cfg.App.Name,
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	b.RequirePlugin(TimePlugin{})
	b.AddPlugin(ScheduleRunnerPlugin{
		Mode:     mode,
		Wait:     cfg.Runner.Wait,
		MaxTicks: cfg.Runner.MaxTicks,
	})
	b.AddResource(cfg)
}
