package gekko

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultSchedule is the main schedule. Update runs it and the default
// runner drives it.
const DefaultSchedule = "main"

// App owns the World, the named schedules, the startup schedule, the set of
// applied plugins and the Runner. Apps are assembled with an AppBuilder.
type App struct {
	id       uuid.UUID
	ctx      context.Context
	world    *World
	schedule *Schedule
	startup  *Schedule
	runner   Runner

	schedules     map[string]*Schedule
	scheduleOrder []string

	// plugins counts builds per name; explicit marks names passed to
	// AddPlugin rather than pulled in as a dependency.
	plugins     map[string]int
	explicit    map[string]bool
	pluginOrder []string

	shutdownHooks []func()
	pending       []pendingCommand

	startupDone bool
	ticks       uint64
}

func newApp() *App {
	main := NewSchedule(DefaultSchedule)
	return &App{
		id:            uuid.New(),
		ctx:           context.Background(),
		world:         NewWorld(),
		schedule:      main,
		startup:       NewSchedule("startup"),
		runner:        RunLoop(0),
		schedules:     map[string]*Schedule{DefaultSchedule: main},
		scheduleOrder: []string{DefaultSchedule},
		plugins:       make(map[string]int),
		explicit:      make(map[string]bool),
	}
}

// ID identifies this App instance in logs.
func (app *App) ID() uuid.UUID { return app.id }

func (app *App) World() *World { return app.world }

// Schedule returns the main schedule.
func (app *App) Schedule() *Schedule { return app.schedule }

// ScheduleNamed looks up a schedule added with AddSchedule, or the main one.
func (app *App) ScheduleNamed(name string) (*Schedule, bool) {
	sched, ok := app.schedules[name]
	return sched, ok
}

// ScheduleNames returns the schedule names in creation order, main first.
func (app *App) ScheduleNames() []string {
	return append([]string(nil), app.scheduleOrder...)
}

func (app *App) StartupSchedule() *Schedule { return app.startup }

// Context is the context runners watch between passes.
func (app *App) Context() context.Context { return app.ctx }

// Ticks returns the number of schedule passes started so far.
func (app *App) Ticks() uint64 { return app.ticks }

// Plugins returns the names of the applied plugins in application order.
func (app *App) Plugins() []string {
	return append([]string(nil), app.pluginOrder...)
}

// Update runs the main schedule once. The startup schedule runs before the
// first pass. A system error stops the pass and is returned; panics are not
// recovered.
func (app *App) Update() error {
	return app.RunSchedule(DefaultSchedule)
}

// RunSchedule runs the named schedule once, running the startup schedule
// first if no pass has happened yet.
func (app *App) RunSchedule(name string) error {
	sched, ok := app.schedules[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSchedule, name)
	}
	if !app.startupDone {
		app.startupDone = true
		if err := app.startup.run(app); err != nil {
			return fmt.Errorf("startup: %w", err)
		}
	}

	app.ticks++
	return sched.run(app)
}

// Run hands the App to its Runner and runs the shutdown hooks once the
// runner returns. An App can only be run once.
func (app *App) Run() error {
	runner := app.runner
	if runner == nil {
		return fmt.Errorf("app %s: already run", app.id)
	}
	app.runner = nil
	defer app.shutdown()

	log := app.Logger()
	log.Debugf("app %s: runner starting", app.id)
	err := runner(app)
	if err != nil {
		log.Errorf("app %s: runner stopped after %d ticks: %v", app.id, app.ticks, err)
		return err
	}
	log.Debugf("app %s: runner stopped after %d ticks", app.id, app.ticks)
	return nil
}

func (app *App) shutdown() {
	for i := len(app.shutdownHooks) - 1; i >= 0; i-- {
		app.shutdownHooks[i]()
	}
	app.shutdownHooks = nil
}

// DescribeSchedule renders the startup schedule followed by every named
// schedule in creation order.
func (app *App) DescribeSchedule() string {
	var sb strings.Builder
	sb.WriteString(app.startup.String())
	for _, name := range app.scheduleOrder {
		sb.WriteString(app.schedules[name].String())
	}
	return sb.String()
}
