package gekko

import (
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"strings"
)

type systemFn any

type systemScheduleBuilder struct {
	system  systemFn
	inStage string
	label   string
	before  []string
	after   []string
}

// System wraps a system function so it can be placed with InStage, named
// with Label and ordered with Before/After. Systems go to Update unless told
// otherwise.
func System(system systemFn) systemScheduleBuilder {
	return systemScheduleBuilder{
		system:  system,
		inStage: Update,
	}
}

func (sched systemScheduleBuilder) InStage(stage string) systemScheduleBuilder {
	sched.inStage = stage
	return sched
}

func (sched systemScheduleBuilder) Label(label string) systemScheduleBuilder {
	sched.label = label
	return sched
}

// Before makes the system run before every system carrying one of labels.
func (sched systemScheduleBuilder) Before(labels ...string) systemScheduleBuilder {
	sched.before = append(slices.Clone(sched.before), labels...)
	return sched
}

// After makes the system run after every system carrying one of labels.
func (sched systemScheduleBuilder) After(labels ...string) systemScheduleBuilder {
	sched.after = append(slices.Clone(sched.after), labels...)
	return sched
}

func (sched systemScheduleBuilder) entry() (*systemEntry, error) {
	bound, err := bindSystem(sched.system)
	if err != nil {
		return nil, err
	}

	e := &systemEntry{
		label:    sched.label,
		explicit: sched.label != "",
		before:   sched.before,
		after:    sched.after,
		system:   bound,
	}
	if !e.explicit {
		e.label = bound.name
	}
	return e, nil
}

// Local is per-system state. A *Local[T] parameter gets the same value on
// every call of that system and is never shared with other systems.
type Local[T any] struct {
	Value T
}

func (*Local[T]) systemLocal() {}

type systemLocal interface {
	systemLocal()
}

type paramKind int

const (
	paramResource paramKind = iota
	paramWorld
	paramCommands
	paramLocal
)

type systemParam struct {
	kind  paramKind
	t     reflect.Type // pointed-to type
	local reflect.Value
}

type boundSystem struct {
	name       string
	fn         reflect.Value
	params     []systemParam
	returnsErr bool
}

var (
	typeOfWorld       = reflect.TypeOf(World{})
	typeOfCommands    = reflect.TypeOf(Commands{})
	typeOfError       = reflect.TypeOf((*error)(nil)).Elem()
	typeOfSystemLocal = reflect.TypeOf((*systemLocal)(nil)).Elem()
)

func bindSystem(system systemFn) (*boundSystem, error) {
	if system == nil {
		return nil, fmt.Errorf("%w: nil system", ErrInvalidSystem)
	}
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)
	if systemType.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %s is not a function", ErrInvalidSystem, systemType)
	}
	if systemValue.IsNil() {
		return nil, fmt.Errorf("%w: nil %s", ErrInvalidSystem, systemType)
	}

	bound := &boundSystem{
		name: funcName(systemValue),
		fn:   systemValue,
	}

	switch {
	case systemType.NumOut() == 0:
	case systemType.NumOut() == 1 && systemType.Out(0) == typeOfError:
		bound.returnsErr = true
	default:
		return nil, fmt.Errorf("%w: %s must return nothing or error, got %s", ErrInvalidSystem, bound.name, systemType)
	}
	if systemType.IsVariadic() {
		return nil, fmt.Errorf("%w: %s is variadic", ErrInvalidSystem, bound.name)
	}

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			return nil, fmt.Errorf("%w: %s parameter %d (%s) is not a pointer", ErrInvalidSystem, bound.name, i, argType)
		}

		p := systemParam{t: argType.Elem()}
		switch {
		case p.t == typeOfWorld:
			p.kind = paramWorld
		case p.t == typeOfCommands:
			p.kind = paramCommands
		case argType.Implements(typeOfSystemLocal):
			p.kind = paramLocal
			p.local = reflect.New(p.t)
		default:
			p.kind = paramResource
		}
		bound.params = append(bound.params, p)
	}
	return bound, nil
}

func (s *boundSystem) call(app *App) error {
	args := make([]reflect.Value, len(s.params))
	for i, p := range s.params {
		switch p.kind {
		case paramWorld:
			args[i] = reflect.ValueOf(app.world)
		case paramCommands:
			args[i] = reflect.ValueOf(app.Commands())
		case paramLocal:
			args[i] = p.local
		default:
			resource, ok := app.world.resourceOf(p.t)
			if !ok {
				return fmt.Errorf("%w: %s needs *%s", ErrMissingResource, s.name, p.t)
			}
			args[i] = reflect.ValueOf(resource)
		}
	}

	out := s.fn.Call(args)
	if s.returnsErr && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// funcName returns the runtime name of fn with the import path cut back to
// its last element, e.g. "gekko-app.timeSystem". The name depends on how the
// package was built: a func in a command is "main.f" in the binary but
// "<dir>.f" under go test, so systems that need a stable name get a Label.
func funcName(fn reflect.Value) string {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return fn.Type().String()
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
