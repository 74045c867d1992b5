package gekko

import (
	"context"
	"fmt"
)

// AppBuilder assembles an App. The first configuration error is kept and
// every later call becomes a no-op; Build and Run return that error.
// Build and Run consume the builder.
type AppBuilder struct {
	app      *App
	err      error
	consumed bool

	// events registers the rotation of each AddEvent type in schedules
	// created later by AddSchedule.
	events []eventHook
}

var defaultStages = []string{EventUpdate, First, PreUpdate, Update, PostUpdate, Last}

// NewAppBuilder returns a builder with the default main and startup stages
// and the AppExit event registered.
func NewAppBuilder() *AppBuilder {
	b := EmptyAppBuilder()
	b.addDefaultStages(DefaultSchedule)
	b.AddStartupStage(Startup, NewStage(StageRunAlways))
	b.AddStartupStage(PostStartup, NewStage(StageRunAlways))
	return AddEvent[AppExit](b)
}

func (b *AppBuilder) addDefaultStages(schedule string) {
	for _, name := range defaultStages {
		b.AddStageToSchedule(schedule, name, NewStage(StageRunAlways))
	}
}

// EmptyAppBuilder returns a builder with no stages and no events.
func EmptyAppBuilder() *AppBuilder {
	return &AppBuilder{app: newApp()}
}

func (b *AppBuilder) usable() bool {
	if b.consumed {
		panic(ErrBuilderConsumed)
	}
	return b.err == nil
}

// Fail records err as the builder's configuration error unless one is
// already recorded. Plugins use it to abort assembly.
func (b *AppBuilder) Fail(err error) *AppBuilder {
	if b.consumed {
		panic(ErrBuilderConsumed)
	}
	if err != nil && b.err == nil {
		b.err = err
		b.Logger().Errorf("app configuration failed: %v", err)
	}
	return b
}

// Err returns the recorded configuration error.
func (b *AppBuilder) Err() error { return b.err }

// World gives plugins access to the World being assembled.
func (b *AppBuilder) World() *World { return b.app.world }

// AddResource inserts resources into the World. A later resource of the
// same type replaces an earlier one.
func (b *AppBuilder) AddResource(resources ...any) *AppBuilder {
	if !b.usable() {
		return b
	}
	for _, r := range resources {
		b.app.world.InsertResource(r)
	}
	return b
}

// InitResource inserts a zero T unless the World already has one. If *T
// implements FromWorld it is called on the new value.
func InitResource[T any](b *AppBuilder) *AppBuilder {
	if !b.usable() || HasResource[T](b.app.world) {
		return b
	}
	r := new(T)
	if fw, ok := any(r).(FromWorld); ok {
		fw.FromWorld(b.app.world)
	}
	b.app.world.InsertResource(r)
	return b
}

// AddSchedule creates a named schedule with the default stages and the
// events registered so far, and adds runner targeting it. The App has a
// single runner, so the last ScheduleRunnerPlugin added decides which
// schedule Run drives.
func (b *AppBuilder) AddSchedule(name string, runner ScheduleRunnerPlugin) *AppBuilder {
	if !b.usable() {
		return b
	}
	if _, ok := b.app.schedules[name]; ok {
		return b.Fail(fmt.Errorf("%w: %q", ErrDuplicateSchedule, name))
	}
	b.app.schedules[name] = NewSchedule(name)
	b.app.scheduleOrder = append(b.app.scheduleOrder, name)
	b.addDefaultStages(name)
	for _, hook := range b.events {
		hook.register(b, name)
	}

	runner.Schedule = name
	return b.AddPlugin(runner)
}

// HasSchedule reports whether a schedule named name exists.
func (b *AppBuilder) HasSchedule(name string) bool {
	_, ok := b.app.schedules[name]
	return ok
}

func (b *AppBuilder) scheduleNamed(name string) (*Schedule, bool) {
	sched, ok := b.app.schedules[name]
	if !ok {
		b.Fail(fmt.Errorf("%w: %q", ErrUnknownSchedule, name))
	}
	return sched, ok
}

func (b *AppBuilder) AddStage(name string, stage *Stage) *AppBuilder {
	return b.AddStageToSchedule(DefaultSchedule, name, stage)
}

func (b *AppBuilder) AddStageToSchedule(schedule, name string, stage *Stage) *AppBuilder {
	if !b.usable() {
		return b
	}
	sched, ok := b.scheduleNamed(schedule)
	if !ok {
		return b
	}
	return b.Fail(sched.AddStage(name, stage))
}

func (b *AppBuilder) AddStageAfter(anchor, name string, stage *Stage) *AppBuilder {
	if !b.usable() {
		return b
	}
	return b.Fail(b.app.schedule.AddStageAfter(anchor, name, stage))
}

func (b *AppBuilder) AddStageBefore(anchor, name string, stage *Stage) *AppBuilder {
	if !b.usable() {
		return b
	}
	return b.Fail(b.app.schedule.AddStageBefore(anchor, name, stage))
}

func (b *AppBuilder) AddStartupStage(name string, stage *Stage) *AppBuilder {
	if !b.usable() {
		return b
	}
	return b.Fail(b.app.startup.AddStage(name, stage))
}

// AddSystem adds a system to Update. system is a function or the result of
// System(fn).
func (b *AppBuilder) AddSystem(system any) *AppBuilder {
	return b.AddSystemToStage(Update, system)
}

func (b *AppBuilder) AddSystems(systems ...any) *AppBuilder {
	for _, s := range systems {
		b.AddSystem(s)
	}
	return b
}

func (b *AppBuilder) AddSystemToStage(stage string, system any) *AppBuilder {
	return b.addSystem(b.app.schedule, describe(system).InStage(stage), false)
}

// AddSystemToStageFront puts the system ahead of those already in stage.
func (b *AppBuilder) AddSystemToStageFront(stage string, system any) *AppBuilder {
	return b.addSystem(b.app.schedule, describe(system).InStage(stage), true)
}

// AddSystemToSchedule adds a system to a named schedule, in Update unless
// the system was described with InStage.
func (b *AppBuilder) AddSystemToSchedule(schedule string, system any) *AppBuilder {
	if !b.usable() {
		return b
	}
	sched, ok := b.scheduleNamed(schedule)
	if !ok {
		return b
	}
	return b.addSystem(sched, describe(system), false)
}

func (b *AppBuilder) AddSystemToStageOnSchedule(schedule, stage string, system any) *AppBuilder {
	if !b.usable() {
		return b
	}
	sched, ok := b.scheduleNamed(schedule)
	if !ok {
		return b
	}
	return b.addSystem(sched, describe(system).InStage(stage), false)
}

// AddStartupSystem adds a system to the Startup stage of the startup
// schedule, which runs once before the first main pass.
func (b *AppBuilder) AddStartupSystem(system any) *AppBuilder {
	return b.AddStartupSystemToStage(Startup, system)
}

func (b *AppBuilder) AddStartupSystemToStage(stage string, system any) *AppBuilder {
	return b.addSystem(b.app.startup, describe(system).InStage(stage), false)
}

// UseSystem adds a system described with System(fn) to its stage.
func (b *AppBuilder) UseSystem(system systemScheduleBuilder) *AppBuilder {
	return b.addSystem(b.app.schedule, system, false)
}

func (b *AppBuilder) addSystem(sched *Schedule, system systemScheduleBuilder, front bool) *AppBuilder {
	if !b.usable() {
		return b
	}
	entry, err := system.entry()
	if err != nil {
		return b.Fail(err)
	}
	return b.Fail(sched.addSystem(system.inStage, entry, front))
}

func describe(system any) systemScheduleBuilder {
	if sched, ok := system.(systemScheduleBuilder); ok {
		return sched
	}
	return System(system)
}

// SetRunner replaces the runner Run hands the App to.
func (b *AppBuilder) SetRunner(runner Runner) *AppBuilder {
	if !b.usable() {
		return b
	}
	if runner == nil {
		return b.Fail(fmt.Errorf("nil runner"))
	}
	b.app.runner = runner
	return b
}

// WithContext sets the context runners watch between passes.
func (b *AppBuilder) WithContext(ctx context.Context) *AppBuilder {
	if !b.usable() {
		return b
	}
	b.app.ctx = ctx
	return b
}

// AddShutdownHook registers fn to run after the runner returns. Hooks run
// in reverse registration order.
func (b *AppBuilder) AddShutdownHook(fn func()) *AppBuilder {
	if !b.usable() {
		return b
	}
	b.app.shutdownHooks = append(b.app.shutdownHooks, fn)
	return b
}

// Build resolves system order in every stage of every schedule and returns
// the App. On error the shutdown hooks registered so far run before Build
// returns. The builder cannot be used afterwards.
func (b *AppBuilder) Build() (*App, error) {
	if b.consumed {
		panic(ErrBuilderConsumed)
	}
	b.consumed = true

	app := b.app
	if err := b.resolve(app); err != nil {
		// The App will never run, so release what plugins acquired.
		app.shutdown()
		return nil, err
	}
	return app, nil
}

func (b *AppBuilder) resolve(app *App) error {
	if b.err != nil {
		return b.err
	}
	if err := app.startup.resolve(); err != nil {
		return err
	}
	for _, name := range app.scheduleOrder {
		if err := app.schedules[name].resolve(); err != nil {
			return err
		}
	}
	return nil
}

func (b *AppBuilder) MustBuild() *App {
	app, err := b.Build()
	if err != nil {
		panic(err)
	}
	return app
}

// Run builds the App and hands it to the runner.
func (b *AppBuilder) Run() error {
	app, err := b.Build()
	if err != nil {
		return err
	}
	return app.Run()
}
