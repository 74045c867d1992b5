package gekko

import "fmt"

// AppExit asks the runner to stop after the current pass.
type AppExit struct {
	Reason string
}

// Events is a double-buffered queue of T. Sent events land in the current
// buffer. Update runs at the start of every pass, in EventUpdate, and drops
// the previous buffer before making the current one previous. An event sent
// in pass N is readable for the rest of pass N and all of pass N+1, so every
// system gets one chance to read it wherever its stage sits.
type Events[T any] struct {
	previous      []T
	current       []T
	previousStart int // id of previous[0]
	currentStart  int // id of current[0]
	count         int // id the next event will get
}

func (e *Events[T]) Send(event T) {
	e.current = append(e.current, event)
	e.count++
}

func (e *Events[T]) SendBatch(events ...T) {
	for _, ev := range events {
		e.Send(ev)
	}
}

// Update rotates the buffers.
func (e *Events[T]) Update() {
	clear(e.previous)
	e.previous, e.current = e.current, e.previous[:0]
	e.previousStart = e.currentStart
	e.currentStart = e.count
}

// Iter returns every event in the readable window, oldest first.
func (e *Events[T]) Iter() []T {
	out := make([]T, 0, len(e.previous)+len(e.current))
	out = append(out, e.previous...)
	return append(out, e.current...)
}

func (e *Events[T]) Len() int {
	return len(e.previous) + len(e.current)
}

func (e *Events[T]) IsEmpty() bool {
	return e.Len() == 0
}

// Clear drops every buffered event. Readers will not see them.
func (e *Events[T]) Clear() {
	clear(e.previous)
	clear(e.current)
	e.previous = e.previous[:0]
	e.current = e.current[:0]
	e.previousStart = e.count
	e.currentStart = e.count
}

// Drain returns the readable window and clears it.
func (e *Events[T]) Drain() []T {
	out := e.Iter()
	e.Clear()
	return out
}

// at returns the event with the given id, if it is still buffered.
func (e *Events[T]) at(id int) (T, bool) {
	var zero T
	switch {
	case id >= e.currentStart && id < e.count:
		return e.current[id-e.currentStart], true
	case id >= e.previousStart && id < e.currentStart:
		return e.previous[id-e.previousStart], true
	}
	return zero, false
}

func eventUpdateSystem[T any](events *Events[T]) {
	events.Update()
}

// EventReader tracks what one consumer has already read from an Events[T].
// Declared as a system parameter it is a per-system local.
type EventReader[T any] struct {
	last int
}

func (*EventReader[T]) systemLocal() {}

// Read returns the events this reader has not seen yet, oldest first.
func (r *EventReader[T]) Read(events *Events[T]) []T {
	start := max(r.last, events.previousStart)
	out := make([]T, 0, events.count-start)
	for id := start; id < events.count; id++ {
		if ev, ok := events.at(id); ok {
			out = append(out, ev)
		}
	}
	r.last = events.count
	return out
}

// Latest returns the newest unread event and marks everything as read.
func (r *EventReader[T]) Latest(events *Events[T]) (T, bool) {
	var zero T
	if r.last >= events.count || events.count == events.previousStart {
		r.last = events.count
		return zero, false
	}
	r.last = events.count
	return events.at(events.count - 1)
}

// AddEvent registers Events[T] as a resource and schedules its rotation in
// the EventUpdate stage of every schedule, including those added later.
// Registering the same T again is a no-op.
func AddEvent[T any](b *AppBuilder) *AppBuilder {
	if !b.usable() {
		return b
	}
	label := eventUpdateLabel[T]()
	for _, hook := range b.events {
		if hook.label == label {
			return b
		}
	}
	for _, name := range b.app.scheduleOrder {
		addEvent[T](b, name, EventUpdate)
	}
	b.events = append(b.events, eventHook{
		label: label,
		register: func(b *AppBuilder, schedule string) {
			addEvent[T](b, schedule, EventUpdate)
		},
	})
	return b
}

// AddEventToStage registers Events[T] with its rotation in stage of the
// main schedule.
func AddEventToStage[T any](b *AppBuilder, stage string) *AppBuilder {
	return addEvent[T](b, DefaultSchedule, stage)
}

// AddEventToSchedule registers Events[T] with its rotation in the
// EventUpdate stage of one schedule only.
func AddEventToSchedule[T any](b *AppBuilder, schedule string) *AppBuilder {
	return addEvent[T](b, schedule, EventUpdate)
}

type eventHook struct {
	label    string
	register func(b *AppBuilder, schedule string)
}

// addEvent is idempotent per schedule: a rotation already present in any
// stage of the schedule is kept.
func addEvent[T any](b *AppBuilder, schedule, stage string) *AppBuilder {
	if !b.usable() {
		return b
	}
	sched, ok := b.scheduleNamed(schedule)
	if !ok {
		return b
	}
	label := eventUpdateLabel[T]()
	if sched.hasSystem(label) {
		return b
	}
	if !HasResource[Events[T]](b.app.world) {
		b.app.world.InsertResource(&Events[T]{})
	}
	return b.addSystem(sched, System(eventUpdateSystem[T]).InStage(stage).Label(label), false)
}

func eventUpdateLabel[T any]() string {
	return fmt.Sprintf("events_update[%s]", typeOf[T]())
}
