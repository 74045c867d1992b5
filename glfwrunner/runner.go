// Package glfwrunner drives an App from a GLFW window's event loop: one pass
// per polled frame until the window closes or a pass raises AppExit.
package glfwrunner

import (
	"fmt"
	"runtime"
	"slices"

	"github.com/go-gl/glfw/v3.3/glfw"

	gekko "github.com/gekko3d/gekko-app"
)

// WindowState is inserted into the World before the first pass.
type WindowState struct {
	Window *glfw.Window
	Width  int
	Height int
	Title  string
}

// Plugin opens a window, samples its Input every pass and installs a
// HostRunner bound to it.
type Plugin struct {
	Width  int
	Height int
	Title  string

	// Keys lists the keys Input tracks. Empty means DefaultKeys.
	Keys []glfw.Key
	// ExitOnEscape raises AppExit when Escape is pressed.
	ExitOnEscape bool
}

func (p Plugin) Name() string { return "glfwrunner.Plugin" }

func (p Plugin) Build(b *gekko.AppBuilder) {
	if p.Width <= 0 {
		p.Width = 1280
	}
	if p.Height <= 0 {
		p.Height = 720
	}
	if p.Title == "" {
		p.Title = "Gekko"
	}

	keys := p.Keys
	if p.ExitOnEscape && len(keys) > 0 && !slices.Contains(keys, glfw.KeyEscape) {
		keys = append(slices.Clone(keys), glfw.KeyEscape)
	}
	input := newInput(keys)

	b.AddResource(input)
	b.UseSystem(
		gekko.System(windowSizeSystem).
			InStage(gekko.PreUpdate).
			Label("glfw_window_size"),
	)
	b.UseSystem(
		gekko.System(inputSystem).
			InStage(gekko.PreUpdate).
			Label("glfw_input").
			After("glfw_window_size"),
	)
	if p.ExitOnEscape {
		b.UseSystem(
			gekko.System(escapeExitSystem).
				InStage(gekko.PreUpdate).
				Label("glfw_escape_exit").
				After("glfw_input"),
		)
	}
	b.SetRunner(gekko.HostRunner(&windowLoop{plugin: p, world: b.World(), input: input}))
}

type windowLoop struct {
	plugin Plugin
	world  *gekko.World
	input  *Input
}

func (l *windowLoop) Loop(tick func() bool) error {
	// GLFW calls must come from the main thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(l.plugin.Width, l.plugin.Height, l.plugin.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("glfw create window: %w", err)
	}
	defer win.Destroy()

	win.SetCharCallback(func(_ *glfw.Window, char rune) {
		l.input.pending = append(l.input.pending, char)
	})

	l.world.InsertResource(&WindowState{
		Window: win,
		Width:  l.plugin.Width,
		Height: l.plugin.Height,
		Title:  l.plugin.Title,
	})

	for !win.ShouldClose() {
		glfw.PollEvents()
		if !tick() {
			break
		}
	}
	return nil
}

func windowSizeSystem(ws *WindowState) {
	ws.Width, ws.Height = ws.Window.GetSize()
}
