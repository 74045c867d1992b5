package gekko

import (
	"fmt"
	"slices"
	"strings"
)

// Default stage names. NewAppBuilder creates the main stages in this order
// and the startup stages in the startup schedule. EventUpdate comes first so
// event buffers rotate before any other system of the pass runs.
const (
	EventUpdate = "EventUpdate"
	First       = "First"
	PreUpdate   = "PreUpdate"
	Update      = "Update"
	PostUpdate  = "PostUpdate"
	Last        = "Last"

	Startup     = "Startup"
	PostStartup = "PostStartup"
)

// RunPolicy decides on which passes a stage runs.
type RunPolicy int

const (
	StageRunAlways RunPolicy = iota
	StageRunOnce
)

func (p RunPolicy) String() string {
	switch p {
	case StageRunAlways:
		return "always"
	case StageRunOnce:
		return "once"
	default:
		return fmt.Sprintf("RunPolicy(%d)", int(p))
	}
}

type systemEntry struct {
	label    string
	explicit bool
	before   []string
	after    []string
	system   *boundSystem
}

// Stage is an ordered group of systems. Systems run in insertion order
// unless before/after constraints say otherwise.
type Stage struct {
	name    string
	policy  RunPolicy
	systems []*systemEntry
	order   []*systemEntry
	dirty   bool
	ran     bool
}

func NewStage(policy RunPolicy) *Stage {
	return &Stage{policy: policy, dirty: true}
}

func (s *Stage) Name() string      { return s.name }
func (s *Stage) Policy() RunPolicy { return s.policy }
func (s *Stage) SystemCount() int  { return len(s.systems) }

func (s *Stage) addSystem(entry *systemEntry, front bool) error {
	if entry.explicit {
		for _, e := range s.systems {
			if e.explicit && e.label == entry.label {
				return fmt.Errorf("%w: %q in stage %q", ErrDuplicateSystemLabel, entry.label, s.name)
			}
		}
	}

	if front {
		s.systems = slices.Insert(s.systems, 0, entry)
	} else {
		s.systems = append(s.systems, entry)
	}
	s.dirty = true
	return nil
}

// resolve orders the systems with Kahn's algorithm. Among ready systems the
// one added first goes first, so unconstrained systems keep insertion order.
func (s *Stage) resolve() error {
	if !s.dirty {
		return nil
	}

	n := len(s.systems)
	byLabel := make(map[string][]int, n)
	for i, e := range s.systems {
		byLabel[e.label] = append(byLabel[e.label], i)
	}

	succ := make([][]int, n)
	pred := make([][]int, n)
	indeg := make([]int, n)
	edge := func(from, to int) {
		succ[from] = append(succ[from], to)
		pred[to] = append(pred[to], from)
		indeg[to]++
	}

	for i, e := range s.systems {
		for _, l := range e.before {
			targets, ok := byLabel[l]
			if !ok {
				return fmt.Errorf("%w: %q (before) referenced by %q in stage %q", ErrUnknownSystemLabel, l, e.label, s.name)
			}
			for _, j := range targets {
				edge(i, j)
			}
		}
		for _, l := range e.after {
			targets, ok := byLabel[l]
			if !ok {
				return fmt.Errorf("%w: %q (after) referenced by %q in stage %q", ErrUnknownSystemLabel, l, e.label, s.name)
			}
			for _, j := range targets {
				edge(j, i)
			}
		}
	}

	var ready []int
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]*systemEntry, 0, n)
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		order = append(order, s.systems[i])

		for _, j := range succ[i] {
			indeg[j]--
			if indeg[j] == 0 {
				at, _ := slices.BinarySearch(ready, j)
				ready = slices.Insert(ready, at, j)
			}
		}
	}

	if len(order) < n {
		return &CycleError{Stage: s.name, Cycle: s.findCycle(pred, indeg)}
	}

	s.order = order
	s.dirty = false
	return nil
}

// findCycle walks unresolved predecessors until a system repeats. Every
// system left over by Kahn's algorithm has at least one such predecessor.
func (s *Stage) findCycle(pred [][]int, indeg []int) []string {
	cur := slices.IndexFunc(indeg, func(d int) bool { return d > 0 })
	seen := make(map[int]int)
	var path []int
	for {
		if at, ok := seen[cur]; ok {
			path = path[at:]
			break
		}
		seen[cur] = len(path)
		path = append(path, cur)
		for _, p := range pred[cur] {
			if indeg[p] > 0 {
				cur = p
				break
			}
		}
	}

	// path follows "runs after" links; report it in execution direction.
	slices.Reverse(path)
	labels := make([]string, 0, len(path)+1)
	for _, i := range path {
		labels = append(labels, s.systems[i].label)
	}
	return append(labels, labels[0])
}

func (s *Stage) run(app *App) error {
	if s.policy == StageRunOnce && s.ran {
		return nil
	}
	s.ran = true

	for _, e := range s.order {
		if err := e.system.call(app); err != nil {
			// The pass failed; nothing it queued is applied.
			app.pending = app.pending[:0]
			return fmt.Errorf("stage %s: system %s: %w", s.name, e.label, err)
		}
	}
	app.FlushCommands()
	return nil
}

// Labels returns the system labels in resolved order, or in insertion order
// if the stage has not been resolved yet.
func (s *Stage) Labels() []string {
	src := s.order
	if s.dirty {
		src = s.systems
	}
	labels := make([]string, len(src))
	for i, e := range src {
		labels[i] = e.label
	}
	return labels
}

// Schedule is an ordered list of uniquely named stages.
type Schedule struct {
	name   string
	stages []*Stage
}

func NewSchedule(name string) *Schedule {
	return &Schedule{name: name}
}

func (sched *Schedule) Name() string { return sched.name }

func (sched *Schedule) stageIndex(name string) int {
	return slices.IndexFunc(sched.stages, func(s *Stage) bool { return s.name == name })
}

func (sched *Schedule) Stage(name string) (*Stage, bool) {
	if i := sched.stageIndex(name); i >= 0 {
		return sched.stages[i], true
	}
	return nil, false
}

func (sched *Schedule) StageNames() []string {
	names := make([]string, len(sched.stages))
	for i, s := range sched.stages {
		names[i] = s.name
	}
	return names
}

func (sched *Schedule) AddStage(name string, stage *Stage) error {
	return sched.insertStage(len(sched.stages), name, stage)
}

func (sched *Schedule) AddStageAfter(anchor, name string, stage *Stage) error {
	i := sched.stageIndex(anchor)
	if i < 0 {
		return fmt.Errorf("%w: anchor %q for %q in schedule %q", ErrUnknownStage, anchor, name, sched.name)
	}
	return sched.insertStage(i+1, name, stage)
}

func (sched *Schedule) AddStageBefore(anchor, name string, stage *Stage) error {
	i := sched.stageIndex(anchor)
	if i < 0 {
		return fmt.Errorf("%w: anchor %q for %q in schedule %q", ErrUnknownStage, anchor, name, sched.name)
	}
	return sched.insertStage(i, name, stage)
}

func (sched *Schedule) insertStage(at int, name string, stage *Stage) error {
	if sched.stageIndex(name) >= 0 {
		return fmt.Errorf("%w: %q in schedule %q", ErrDuplicateStage, name, sched.name)
	}
	if stage == nil {
		stage = NewStage(StageRunAlways)
	}
	stage.name = name
	sched.stages = slices.Insert(sched.stages, at, stage)
	return nil
}

func (sched *Schedule) addSystem(stageName string, entry *systemEntry, front bool) error {
	stage, ok := sched.Stage(stageName)
	if !ok {
		return fmt.Errorf("%w: %q (system %q) in schedule %q", ErrUnknownStage, stageName, entry.label, sched.name)
	}
	return stage.addSystem(entry, front)
}

// hasSystem reports whether any stage holds a system labelled label.
func (sched *Schedule) hasSystem(label string) bool {
	for _, s := range sched.stages {
		for _, e := range s.systems {
			if e.label == label {
				return true
			}
		}
	}
	return false
}

func (sched *Schedule) resolve() error {
	for _, s := range sched.stages {
		if err := s.resolve(); err != nil {
			return err
		}
	}
	return nil
}

func (sched *Schedule) run(app *App) error {
	for _, s := range sched.stages {
		if err := s.run(app); err != nil {
			return err
		}
	}
	return nil
}

// String renders the stage order and the resolved system order.
func (sched *Schedule) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "schedule %s\n", sched.name)
	for _, s := range sched.stages {
		fmt.Fprintf(&sb, "  %s (%s)\n", s.name, s.policy)
		for _, l := range s.Labels() {
			fmt.Fprintf(&sb, "    - %s\n", l)
		}
	}
	return sb.String()
}
