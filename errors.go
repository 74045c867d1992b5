package gekko

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors. They are raised while an App is being assembled and
// are returned from AppBuilder.Build and AppBuilder.Run.
var (
	ErrUnknownStage         = errors.New("unknown stage")
	ErrDuplicateStage       = errors.New("stage already exists")
	ErrUnknownSchedule      = errors.New("unknown schedule")
	ErrDuplicateSchedule    = errors.New("schedule already exists")
	ErrDuplicatePlugin      = errors.New("plugin already added")
	ErrOrderCycle           = errors.New("system ordering cycle")
	ErrUnknownSystemLabel   = errors.New("unknown system label")
	ErrDuplicateSystemLabel = errors.New("duplicate system label")
	ErrInvalidSystem        = errors.New("invalid system")
	ErrPluginLoad           = errors.New("plugin load failed")
	ErrBuilderConsumed      = errors.New("app builder already consumed")
)

// ErrMissingResource is returned from App.Update when a system asks for a
// resource the World does not hold.
var ErrMissingResource = errors.New("missing resource")

// CycleError reports the systems of a stage whose before/after constraints
// form a cycle.
type CycleError struct {
	Stage string
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s in stage %q: %s", ErrOrderCycle, e.Stage, strings.Join(e.Cycle, " -> "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrOrderCycle
}
