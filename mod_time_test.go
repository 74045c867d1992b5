package gekko

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSystem(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	tm := &Time{Startup: start, Time: start, now: func() time.Time { return now }}

	now = start.Add(16 * time.Millisecond)
	timeSystem(tm)
	assert.Equal(t, uint64(1), tm.Frame)
	assert.Equal(t, 16*time.Millisecond, tm.Dt)

	now = now.Add(20 * time.Millisecond)
	timeSystem(tm)
	assert.Equal(t, uint64(2), tm.Frame)
	assert.Equal(t, 20*time.Millisecond, tm.Dt)
	assert.Equal(t, 36*time.Millisecond, tm.Elapsed())
}

func TestTimePlugin(t *testing.T) {
	var frames []uint64
	app := NewAppBuilder().
		AddPlugin(TimePlugin{}).
		AddSystem(func(tm *Time) { frames = append(frames, tm.Frame) }).
		MustBuild()

	for i := 0; i < 3; i++ {
		require.NoError(t, app.Update())
	}
	assert.Equal(t, []uint64{1, 2, 3}, frames)

	first, _ := app.Schedule().Stage(First)
	assert.Equal(t, []string{"time"}, first.Labels())
}
