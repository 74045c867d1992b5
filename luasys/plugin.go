// Package luasys lets Lua scripts register systems.
//
// A script calls gekko.system(stage, label, fn[, opts]) while it is loaded.
// fn is then called on every pass of that stage with the current frame
// number. opts may hold "before" and "after" label lists. Inside a system
// gekko.exit(reason) requests AppExit and gekko.log(msg) writes to the App
// logger.
package luasys

import (
	"fmt"
	"path/filepath"
	"slices"

	lua "github.com/yuin/gopher-lua"

	gekko "github.com/gekko3d/gekko-app"
)

// Plugin loads every *.lua file in Dir (lexical order), then each entry of
// Sources (ordered by name). All scripts share one Lua VM, closed on
// shutdown.
type Plugin struct {
	Dir     string
	Sources map[string]string
}

func (p Plugin) Name() string { return "luasys.Plugin" }

func (p Plugin) Dependencies() []gekko.Plugin {
	return []gekko.Plugin{gekko.TimePlugin{}}
}

type registration struct {
	stage  string
	label  string
	fn     *lua.LFunction
	before []string
	after  []string
}

type host struct {
	vm            *lua.LState
	log           gekko.Logger
	cmd           *gekko.Commands
	registrations []registration
}

func (p Plugin) Build(b *gekko.AppBuilder) {
	vm := lua.NewState()
	h := &host{vm: vm, log: b.Logger()}
	h.openModule()

	if err := p.load(vm); err != nil {
		closeVM(vm)
		b.Fail(fmt.Errorf("luasys: %w", err))
		return
	}

	for _, r := range h.registrations {
		b.UseSystem(
			gekko.System(h.system(r)).
				InStage(r.stage).
				Label(r.label).
				Before(r.before...).
				After(r.after...),
		)
	}
	if b.Err() != nil {
		// No shutdown hook will run for an App that is never built.
		closeVM(vm)
		return
	}
	h.log.Debugf("luasys: registered %d lua systems", len(h.registrations))
	b.AddShutdownHook(func() { closeVM(vm) })
}

var closeVM = func(vm *lua.LState) { vm.Close() }

func (p Plugin) load(vm *lua.LState) error {
	if p.Dir != "" {
		files, err := filepath.Glob(filepath.Join(p.Dir, "*.lua"))
		if err != nil {
			return fmt.Errorf("list scripts in %s: %w", p.Dir, err)
		}
		for _, f := range files {
			if err := vm.DoFile(f); err != nil {
				return fmt.Errorf("load %s: %w", f, err)
			}
		}
	}

	names := make([]string, 0, len(p.Sources))
	for name := range p.Sources {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := vm.DoString(p.Sources[name]); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func (h *host) openModule() {
	mod := h.vm.NewTable()
	h.vm.SetFuncs(mod, map[string]lua.LGFunction{
		"system": h.luaSystem,
		"exit":   h.luaExit,
		"log":    h.luaLog,
	})
	for _, stage := range []string{gekko.EventUpdate, gekko.First, gekko.PreUpdate, gekko.Update, gekko.PostUpdate, gekko.Last} {
		mod.RawSetString(stage, lua.LString(stage))
	}
	h.vm.SetGlobal("gekko", mod)
}

// gekko.system(stage, label, fn[, {before = {...}, after = {...}}])
func (h *host) luaSystem(L *lua.LState) int {
	r := registration{
		stage: L.CheckString(1),
		label: L.CheckString(2),
		fn:    L.CheckFunction(3),
	}
	if opts := L.OptTable(4, nil); opts != nil {
		r.before = stringList(opts.RawGetString("before"))
		r.after = stringList(opts.RawGetString("after"))
	}
	h.registrations = append(h.registrations, r)
	return 0
}

func (h *host) luaExit(L *lua.LState) int {
	if h.cmd == nil {
		L.RaiseError("gekko.exit called outside a system")
		return 0
	}
	h.cmd.Exit(L.OptString(1, "lua"))
	return 0
}

func (h *host) luaLog(L *lua.LState) int {
	h.log.Infof("lua: %s", L.CheckString(1))
	return 0
}

func (h *host) system(r registration) func(*gekko.Time, *gekko.Commands) error {
	return func(t *gekko.Time, cmd *gekko.Commands) error {
		h.cmd = cmd
		defer func() { h.cmd = nil }()

		return h.vm.CallByParam(lua.P{
			Fn:      r.fn,
			NRet:    0,
			Protect: true,
		}, lua.LNumber(t.Frame))
	}
}

func stringList(v lua.LValue) []string {
	switch v := v.(type) {
	case lua.LString:
		return []string{string(v)}
	case *lua.LTable:
		out := make([]string, 0, v.Len())
		for i := 1; i <= v.Len(); i++ {
			out = append(out, v.RawGetInt(i).String())
		}
		return out
	}
	return nil
}
