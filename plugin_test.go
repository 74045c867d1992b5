package gekko

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type buildCounts map[string]int

type sharedPlugin struct {
	counts buildCounts
}

func (p sharedPlugin) Build(b *AppBuilder) {
	p.counts["shared"]++
	b.AddResource(NewMockResource1("shared"))
}

type requiringPlugin struct {
	name   string
	counts buildCounts
}

func (p requiringPlugin) Name() string { return p.name }

func (p requiringPlugin) Build(b *AppBuilder) {
	b.RequirePlugin(sharedPlugin{counts: p.counts})
	p.counts[p.name]++
}

type dependingPlugin struct {
	counts buildCounts
}

func (p dependingPlugin) Dependencies() []Plugin {
	return []Plugin{sharedPlugin{counts: p.counts}}
}

func (p dependingPlugin) Build(b *AppBuilder) {
	if !HasResource[MockResource1](b.World()) {
		b.Fail(assert.AnError)
	}
	p.counts["depending"]++
}

type repeatablePlugin struct {
	counts buildCounts
}

func (p repeatablePlugin) IsUnique() bool { return false }

func (p repeatablePlugin) Build(b *AppBuilder) { p.counts["repeatable"]++ }

func TestAddPlugin_DuplicateUniqueRejected(t *testing.T) {
	_, err := NewAppBuilder().
		AddPlugin(TimePlugin{}).
		AddPlugin(TimePlugin{}).
		Build()
	require.ErrorIs(t, err, ErrDuplicatePlugin)
	assert.Contains(t, err.Error(), "gekko.TimePlugin")

	_, err = NewAppBuilder().
		AddPlugin(&MockPlugin{}).
		AddPlugin(&MockPlugin{}).
		Build()
	assert.ErrorIs(t, err, ErrDuplicatePlugin, "pointer plugins share their type's identity")
}

func TestRequirePlugin_SharedDependencyBuiltOnce(t *testing.T) {
	counts := buildCounts{}
	app, err := NewAppBuilder().
		AddPlugin(requiringPlugin{name: "a", counts: counts}).
		AddPlugin(requiringPlugin{name: "b", counts: counts}).
		AddPlugin(dependingPlugin{counts: counts}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, buildCounts{"shared": 1, "a": 1, "b": 1, "depending": 1}, counts)
	assert.Equal(t, []string{"a", "gekko.sharedPlugin", "b", "gekko.dependingPlugin"}, app.Plugins())
}

func TestDependencies_BuiltBeforeDependent(t *testing.T) {
	counts := buildCounts{}
	_, err := NewAppBuilder().AddPlugin(dependingPlugin{counts: counts}).Build()
	require.NoError(t, err)
	assert.Equal(t, 1, counts["shared"])
}

type timeUserPlugin struct{}

func (timeUserPlugin) Dependencies() []Plugin { return []Plugin{TimePlugin{}} }

func (timeUserPlugin) Build(b *AppBuilder) {}

func TestAddPlugin_OrderIndependentOfDependencies(t *testing.T) {
	orders := map[string][]Plugin{
		"dependency first": {timeUserPlugin{}, DefaultPlugins()},
		"group first":      {DefaultPlugins(), timeUserPlugin{}},
	}
	for name, plugins := range orders {
		t.Run(name, func(t *testing.T) {
			app, err := NewAppBuilder().AddPlugins(plugins...).Build()
			require.NoError(t, err)

			first, _ := app.Schedule().Stage(First)
			assert.Equal(t, []string{"time"}, first.Labels(), "TimePlugin should be built once")
		})
	}

	_, err := NewAppBuilder().
		AddPlugin(timeUserPlugin{}).
		AddPlugin(TimePlugin{}).
		AddPlugin(TimePlugin{}).
		Build()
	assert.ErrorIs(t, err, ErrDuplicatePlugin, "a second explicit add is still rejected")
}

func TestAddPlugin_NonUnique(t *testing.T) {
	counts := buildCounts{}
	app := NewAppBuilder().
		AddPlugin(repeatablePlugin{counts: counts}).
		AddPlugin(repeatablePlugin{counts: counts}).
		MustBuild()

	assert.Equal(t, 2, counts["repeatable"])
	assert.Len(t, app.Plugins(), 2)
}

func TestPluginFunc(t *testing.T) {
	calls := 0
	fn := PluginFunc(func(b *AppBuilder) { calls++ })

	_, err := NewAppBuilder().AddPlugin(fn).AddPlugin(fn).Build()
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPluginGroup(t *testing.T) {
	counts := buildCounts{}
	group := PluginGroup{
		GroupName: "test.Group",
		Plugins: []Plugin{
			requiringPlugin{name: "a", counts: counts},
			&MockPlugin{},
		},
	}

	b := NewAppBuilder().AddPlugin(group)
	assert.True(t, b.HasPlugin("test.Group"))
	assert.True(t, b.HasPlugin("a"))
	assert.True(t, b.HasPlugin("gekko.MockPlugin"))
	_, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "gekko.PluginGroup", PluginName(PluginGroup{}))
}

func TestPluginsAddingPlugins(t *testing.T) {
	inner := &MockPlugin{}
	outer := PluginFunc(func(b *AppBuilder) { b.AddPlugin(inner) })

	_, err := NewAppBuilder().AddPlugin(outer).Build()
	require.NoError(t, err)
	assert.Equal(t, 1, inner.installed)
}

func TestAddPlugin_Nil(t *testing.T) {
	_, err := NewAppBuilder().AddPlugin(nil).Build()
	assert.Error(t, err)
}

func TestDefaultPlugins(t *testing.T) {
	app := NewAppBuilder().AddPlugin(DefaultPlugins()).MustBuild()

	assert.True(t, HasResource[Time](app.World()))
	assert.True(t, HasResource[DefaultLogger](app.World()))
	assert.Equal(t, []string{
		"gekko.DefaultPlugins",
		"gekko.LoggingPlugin",
		"gekko.TimePlugin",
		"gekko.ScheduleRunnerPlugin",
	}, app.Plugins())
}

func TestLoadPlugin_MissingFile(t *testing.T) {
	_, err := NewAppBuilder().
		LoadPlugin(filepath.Join(t.TempDir(), "missing.so")).
		Build()
	require.ErrorIs(t, err, ErrPluginLoad)
	assert.Contains(t, err.Error(), "missing.so")
}
