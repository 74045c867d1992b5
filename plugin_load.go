package gekko

import (
	"fmt"
	goplugin "plugin"
)

// NewPluginSymbol is the symbol LoadPlugin looks up in a shared object. It
// must have type func() Plugin.
const NewPluginSymbol = "NewPlugin"

// LoadPlugin opens a Go plugin built with -buildmode=plugin and adds the
// Plugin returned by its NewPlugin function.
func (b *AppBuilder) LoadPlugin(path string) *AppBuilder {
	if !b.usable() {
		return b
	}

	lib, err := goplugin.Open(path)
	if err != nil {
		return b.Fail(fmt.Errorf("%w: %s: %v", ErrPluginLoad, path, err))
	}
	sym, err := lib.Lookup(NewPluginSymbol)
	if err != nil {
		return b.Fail(fmt.Errorf("%w: %s: %v", ErrPluginLoad, path, err))
	}
	ctor, ok := sym.(func() Plugin)
	if !ok {
		return b.Fail(fmt.Errorf("%w: %s: %s has type %T, want func() Plugin", ErrPluginLoad, path, NewPluginSymbol, sym))
	}

	b.Logger().Debugf("loaded plugin from %s", path)
	return b.AddPlugin(ctor())
}
