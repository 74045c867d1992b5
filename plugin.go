package gekko

import (
	"fmt"
	"reflect"
)

// Plugin configures an App while it is being assembled. Build runs once per
// registration, synchronously, and may add resources, stages, systems and
// other plugins.
//
// A plugin is identified by its Name method if it has one, otherwise by its
// type. Plugins are unique unless they implement IsUnique returning false.
// A plugin implementing Dependencies has those plugins required before its
// own Build runs.
type Plugin interface {
	Build(b *AppBuilder)
}

type namedPlugin interface {
	Name() string
}

type uniquePlugin interface {
	IsUnique() bool
}

type dependentPlugin interface {
	Dependencies() []Plugin
}

// PluginFunc adapts a function to Plugin. Each PluginFunc may be added any
// number of times.
type PluginFunc func(b *AppBuilder)

func (f PluginFunc) Build(b *AppBuilder) { f(b) }
func (f PluginFunc) IsUnique() bool      { return false }
func (f PluginFunc) Name() string        { return funcName(reflect.ValueOf(f)) }

// PluginName returns the identity the plugin registry uses for p.
func PluginName(p Plugin) string {
	if n, ok := p.(namedPlugin); ok {
		return n.Name()
	}
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

func isUniquePlugin(p Plugin) bool {
	if u, ok := p.(uniquePlugin); ok {
		return u.IsUnique()
	}
	return true
}

// AddPlugin builds p into the App. Adding a unique plugin twice is a
// configuration error; use RequirePlugin for shared dependencies. A unique
// plugin already pulled in by RequirePlugin or Dependencies is not built
// again, so the order plugins are added in does not matter.
func (b *AppBuilder) AddPlugin(p Plugin) *AppBuilder {
	if !b.usable() {
		return b
	}
	if p == nil {
		return b.Fail(fmt.Errorf("nil plugin"))
	}

	name := PluginName(p)
	if isUniquePlugin(p) && b.app.plugins[name] > 0 {
		if b.app.explicit[name] {
			return b.Fail(fmt.Errorf("%w: %s", ErrDuplicatePlugin, name))
		}
		b.app.explicit[name] = true
		b.Logger().Debugf("plugin %s already required, not built again", name)
		return b
	}
	b.app.explicit[name] = true
	return b.buildPlugin(name, p)
}

// AddPlugins adds each plugin in order.
func (b *AppBuilder) AddPlugins(plugins ...Plugin) *AppBuilder {
	for _, p := range plugins {
		b.AddPlugin(p)
	}
	return b
}

// RequirePlugin builds p unless a plugin with the same identity was already
// added. Plugins call it for the plugins they depend on.
func (b *AppBuilder) RequirePlugin(p Plugin) *AppBuilder {
	if !b.usable() {
		return b
	}
	if p == nil {
		return b.Fail(fmt.Errorf("nil plugin"))
	}

	name := PluginName(p)
	if b.app.plugins[name] > 0 {
		return b
	}
	return b.buildPlugin(name, p)
}

// HasPlugin reports whether a plugin with this identity was added.
func (b *AppBuilder) HasPlugin(name string) bool {
	return b.app.plugins[name] > 0
}

func (b *AppBuilder) buildPlugin(name string, p Plugin) *AppBuilder {
	// Recorded before Build so a dependency cycle between plugins ends
	// instead of recursing.
	b.app.plugins[name]++
	b.app.pluginOrder = append(b.app.pluginOrder, name)

	if d, ok := p.(dependentPlugin); ok {
		for _, dep := range d.Dependencies() {
			b.RequirePlugin(dep)
		}
	}
	if !b.usable() {
		return b
	}

	b.Logger().Debugf("added plugin: %s", name)
	p.Build(b)
	return b
}

// PluginGroup adds several plugins as one.
type PluginGroup struct {
	GroupName string
	Plugins   []Plugin
}

func (g PluginGroup) Name() string {
	if g.GroupName != "" {
		return g.GroupName
	}
	return "gekko.PluginGroup"
}

func (g PluginGroup) Build(b *AppBuilder) {
	b.AddPlugins(g.Plugins...)
}
