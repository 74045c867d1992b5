package gekko

import (
	"fmt"
	"time"
)

// Runner drives an assembled App. It owns the App for as long as it runs and
// must call App.Update to make progress.
type Runner func(app *App) error

// RunOnce runs a single pass.
func RunOnce(app *App) error {
	return app.Update()
}

// RunLoop calls Update until a pass raises AppExit, a system fails or the
// App's context is done. A non-zero wait paces passes to at most one per
// wait.
func RunLoop(wait time.Duration) Runner {
	return loopRunner(DefaultSchedule, wait, 0)
}

// runnerState is the default runner's state machine.
type runnerState int

const (
	running runnerState = iota
	exiting
)

// exitWatcher reads AppExit events after each pass.
type exitWatcher struct {
	reader EventReader[AppExit]
}

func (w *exitWatcher) check(app *App) (AppExit, bool) {
	exits := Resource[Events[AppExit]](app.world)
	if exits == nil {
		return AppExit{}, false
	}
	return w.reader.Latest(exits)
}

func loopRunner(schedule string, wait time.Duration, maxTicks uint64) Runner {
	return func(app *App) error {
		log := app.Logger()
		watcher := &exitWatcher{}
		ctx := app.Context()

		state := running
		for state == running {
			start := time.Now()
			if err := app.RunSchedule(schedule); err != nil {
				return err
			}

			if exit, ok := watcher.check(app); ok {
				log.Infof("app %s: exit requested after %d ticks: %s", app.id, app.ticks, exit.Reason)
				state = exiting
				continue
			}
			if maxTicks > 0 && app.ticks >= maxTicks {
				log.Infof("app %s: reached max ticks (%d)", app.id, maxTicks)
				state = exiting
				continue
			}

			if ctx.Err() != nil {
				log.Infof("app %s: context done after %d ticks", app.id, app.ticks)
				state = exiting
				continue
			}
			if elapsed := time.Since(start); wait > elapsed {
				timer := time.NewTimer(wait - elapsed)
				select {
				case <-ctx.Done():
					state = exiting
				case <-timer.C:
				}
				timer.Stop()
			}
		}
		return nil
	}
}

// HostLoop is an event loop owned by someone else, such as a window system.
// Loop calls tick once per host frame and stops when tick returns false.
type HostLoop interface {
	Loop(tick func() bool) error
}

// HostLoopFunc adapts a function to HostLoop.
type HostLoopFunc func(tick func() bool) error

func (f HostLoopFunc) Loop(tick func() bool) error { return f(tick) }

// HostRunner hands the App to host. Each host frame runs one pass; the host
// is told to stop once a pass raises AppExit or fails.
func HostRunner(host HostLoop) Runner {
	return func(app *App) error {
		watcher := &exitWatcher{}
		var updateErr error

		tick := func() bool {
			if err := app.Update(); err != nil {
				updateErr = err
				return false
			}
			if exit, ok := watcher.check(app); ok {
				app.Logger().Infof("app %s: exit requested after %d ticks: %s", app.id, app.ticks, exit.Reason)
				return false
			}
			return true
		}

		if err := host.Loop(tick); err != nil {
			return fmt.Errorf("host loop: %w", err)
		}
		return updateErr
	}
}

// RunMode selects the runner ScheduleRunnerPlugin installs.
type RunMode int

const (
	RunModeLoop RunMode = iota
	RunModeOnce
)

func ParseRunMode(s string) (RunMode, error) {
	switch s {
	case "", "loop":
		return RunModeLoop, nil
	case "once":
		return RunModeOnce, nil
	default:
		return 0, fmt.Errorf("unknown run mode %q", s)
	}
}

// ScheduleRunnerPlugin installs a runner driving one schedule: a single
// pass or a paced loop. Schedule defaults to DefaultSchedule.
type ScheduleRunnerPlugin struct {
	Mode     RunMode
	Wait     time.Duration
	MaxTicks uint64
	Schedule string
}

func (p ScheduleRunnerPlugin) target() string {
	if p.Schedule == "" {
		return DefaultSchedule
	}
	return p.Schedule
}

// Name keeps one runner plugin per schedule.
func (p ScheduleRunnerPlugin) Name() string {
	if target := p.target(); target != DefaultSchedule {
		return fmt.Sprintf("gekko.ScheduleRunnerPlugin[%s]", target)
	}
	return "gekko.ScheduleRunnerPlugin"
}

func (p ScheduleRunnerPlugin) Build(b *AppBuilder) {
	target := p.target()
	if !b.HasSchedule(target) {
		b.Fail(fmt.Errorf("schedule runner: %w: %q", ErrUnknownSchedule, target))
		return
	}
	switch p.Mode {
	case RunModeOnce:
		b.SetRunner(func(app *App) error { return app.RunSchedule(target) })
	default:
		b.SetRunner(loopRunner(target, p.Wait, p.MaxTicks))
	}
}
