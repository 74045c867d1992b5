package gekko

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop() {}

func stageWith(t *testing.T, systems ...systemScheduleBuilder) *Stage {
	t.Helper()
	stage := NewStage(StageRunAlways)
	stage.name = "test"
	for _, s := range systems {
		entry, err := s.entry()
		require.NoError(t, err)
		require.NoError(t, stage.addSystem(entry, false))
	}
	return stage
}

func labelled(label string) systemScheduleBuilder {
	return System(noop).Label(label)
}

func TestStage_InsertionOrderWithoutConstraints(t *testing.T) {
	for n := 1; n <= 8; n++ {
		var systems []systemScheduleBuilder
		var want []string
		for i := 0; i < n; i++ {
			label := fmt.Sprintf("s%d", i)
			systems = append(systems, labelled(label))
			want = append(want, label)
		}

		stage := stageWith(t, systems...)
		require.NoError(t, stage.resolve())
		assert.Equal(t, want, stage.Labels(), "n=%d", n)
	}
}

func TestStage_BeforeAfter(t *testing.T) {
	stage := stageWith(t,
		labelled("render").After("physics"),
		labelled("physics").After("input"),
		labelled("input"),
	)
	require.NoError(t, stage.resolve())
	assert.Equal(t, []string{"input", "physics", "render"}, stage.Labels())

	stage = stageWith(t,
		labelled("a"),
		labelled("b"),
		labelled("c").Before("a"),
	)
	require.NoError(t, stage.resolve())
	assert.Equal(t, []string{"b", "c", "a"}, stage.Labels())
}

func TestStage_ReadySystemsKeepInsertionOrder(t *testing.T) {
	stage := stageWith(t,
		labelled("a"),
		labelled("b"),
		labelled("c"),
		labelled("d").Before("a"),
	)
	require.NoError(t, stage.resolve())
	assert.Equal(t, []string{"b", "c", "d", "a"}, stage.Labels())
}

func labelOf(t *testing.T, s systemScheduleBuilder) string {
	t.Helper()
	e, err := s.entry()
	require.NoError(t, err)
	return e.label
}

func TestStage_ConstraintTargetsEveryMatchingLabel(t *testing.T) {
	implicit := labelOf(t, System(noop))
	stage := stageWith(t,
		System(noop),
		System(noop),
		labelled("first").Before(implicit),
		labelled("last").After(implicit),
	)
	require.NoError(t, stage.resolve())
	assert.Equal(t, []string{"first", implicit, implicit, "last"}, stage.Labels())
}

func TestStage_CycleRejected(t *testing.T) {
	stage := stageWith(t,
		labelled("a").Before("b"),
		labelled("b").Before("a"),
	)

	err := stage.resolve()
	require.ErrorIs(t, err, ErrOrderCycle)

	var cycle *CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, "test", cycle.Stage)
	assert.Equal(t, []string{"b", "a", "b"}, cycle.Cycle)
	assert.Contains(t, err.Error(), "b -> a -> b")
}

func TestStage_ThreeSystemCycle(t *testing.T) {
	stage := stageWith(t,
		labelled("a").After("c"),
		labelled("b").After("a"),
		labelled("c").After("b"),
		labelled("free"),
	)

	var cycle *CycleError
	require.ErrorAs(t, stage.resolve(), &cycle)
	assert.Equal(t, []string{"b", "c", "a", "b"}, cycle.Cycle)
}

func TestStage_SelfCycle(t *testing.T) {
	stage := stageWith(t, labelled("a").Before("a"))

	var cycle *CycleError
	require.ErrorAs(t, stage.resolve(), &cycle)
	assert.Equal(t, []string{"a", "a"}, cycle.Cycle)
}

func TestStage_UnknownLabel(t *testing.T) {
	stage := stageWith(t, labelled("a").After("ghost"))

	err := stage.resolve()
	require.ErrorIs(t, err, ErrUnknownSystemLabel)
	assert.Contains(t, err.Error(), `"ghost"`)
}

func TestStage_DuplicateExplicitLabel(t *testing.T) {
	stage := stageWith(t, labelled("a"))
	entry, err := labelled("a").entry()
	require.NoError(t, err)

	assert.ErrorIs(t, stage.addSystem(entry, false), ErrDuplicateSystemLabel)
}

func TestStage_AddFront(t *testing.T) {
	stage := stageWith(t, labelled("a"), labelled("b"))
	entry, err := labelled("front").entry()
	require.NoError(t, err)
	require.NoError(t, stage.addSystem(entry, true))

	require.NoError(t, stage.resolve())
	assert.Equal(t, []string{"front", "a", "b"}, stage.Labels())
}

func TestStage_ResolveAfterAdd(t *testing.T) {
	stage := stageWith(t, labelled("a"))
	require.NoError(t, stage.resolve())

	entry, err := labelled("b").Before("a").entry()
	require.NoError(t, err)
	require.NoError(t, stage.addSystem(entry, false))
	require.NoError(t, stage.resolve())
	assert.Equal(t, []string{"b", "a"}, stage.Labels())
}

func TestBuild_CycleError(t *testing.T) {
	_, err := NewAppBuilder().
		UseSystem(labelled("a").After("b")).
		UseSystem(labelled("b").After("a")).
		Build()
	assert.ErrorIs(t, err, ErrOrderCycle)
}

func TestBuild_DuplicateLabel(t *testing.T) {
	_, err := NewAppBuilder().
		UseSystem(labelled("a")).
		UseSystem(labelled("a")).
		Build()
	assert.ErrorIs(t, err, ErrDuplicateSystemLabel)

	// Labels are scoped to their stage.
	_, err = NewAppBuilder().
		UseSystem(labelled("a")).
		UseSystem(labelled("a").InStage(PostUpdate)).
		Build()
	assert.NoError(t, err)
}

func TestBuild_ConstraintsDoNotCrossStages(t *testing.T) {
	_, err := NewAppBuilder().
		UseSystem(labelled("a")).
		UseSystem(labelled("b").InStage(PostUpdate).After("a")).
		Build()
	assert.ErrorIs(t, err, ErrUnknownSystemLabel)
}

func TestSchedule_Stages(t *testing.T) {
	sched := NewSchedule("main")
	require.NoError(t, sched.AddStage("a", nil))
	require.NoError(t, sched.AddStage("c", nil))
	require.NoError(t, sched.AddStageAfter("a", "b", nil))
	require.NoError(t, sched.AddStageBefore("a", "start", NewStage(StageRunOnce)))

	assert.Equal(t, []string{"start", "a", "b", "c"}, sched.StageNames())

	start, ok := sched.Stage("start")
	require.True(t, ok)
	assert.Equal(t, StageRunOnce, start.Policy())
	assert.Equal(t, "start", start.Name())

	assert.ErrorIs(t, sched.AddStage("b", nil), ErrDuplicateStage)
	assert.ErrorIs(t, sched.AddStageAfter("missing", "x", nil), ErrUnknownStage)
	assert.Equal(t, []string{"start", "a", "b", "c"}, sched.StageNames())
}

func TestSchedule_String(t *testing.T) {
	sched := NewSchedule("main")
	require.NoError(t, sched.AddStage("Update", nil))
	require.NoError(t, sched.AddStage("Once", NewStage(StageRunOnce)))

	for _, s := range []systemScheduleBuilder{labelled("move"), labelled("input").Before("move")} {
		entry, err := s.entry()
		require.NoError(t, err)
		require.NoError(t, sched.addSystem("Update", entry, false))
	}
	require.NoError(t, sched.resolve())

	want := "schedule main\n" +
		"  Update (always)\n" +
		"    - input\n" +
		"    - move\n" +
		"  Once (once)\n"
	assert.Equal(t, want, sched.String())
}

func TestRunPolicy_String(t *testing.T) {
	assert.Equal(t, "always", StageRunAlways.String())
	assert.Equal(t, "once", StageRunOnce.String())
	assert.Equal(t, "RunPolicy(7)", RunPolicy(7).String())
}
