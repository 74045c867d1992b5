package glfwrunner

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	gekko "github.com/gekko3d/gekko-app"
)

// DefaultKeys are watched when Plugin.Keys is empty.
var DefaultKeys = []glfw.Key{
	glfw.KeyW, glfw.KeyA, glfw.KeyS, glfw.KeyD,
	glfw.KeyUp, glfw.KeyDown, glfw.KeyLeft, glfw.KeyRight,
	glfw.KeySpace, glfw.KeyEnter, glfw.KeyEscape, glfw.KeyTab,
	glfw.KeyLeftShift, glfw.KeyLeftControl,
}

// Button is the state of one key or mouse button for the current pass.
type Button struct {
	Pressed      bool
	JustPressed  bool
	JustReleased bool
}

func (b *Button) set(down bool) {
	b.JustPressed = down && !b.Pressed
	b.JustReleased = !down && b.Pressed
	b.Pressed = down
}

// Input is sampled from the window in PreUpdate.
type Input struct {
	keys  map[glfw.Key]*Button
	Mouse [3]Button // left, right, middle

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64

	// Chars holds the text typed since the previous pass.
	Chars   []rune
	pending []rune
}

func newInput(keys []glfw.Key) *Input {
	if len(keys) == 0 {
		keys = DefaultKeys
	}
	in := &Input{keys: make(map[glfw.Key]*Button, len(keys))}
	for _, k := range keys {
		in.keys[k] = &Button{}
	}
	return in
}

// Key returns the state of a watched key. Unwatched keys are never pressed.
func (in *Input) Key(k glfw.Key) Button {
	if b, ok := in.keys[k]; ok {
		return *b
	}
	return Button{}
}

var mouseButtons = [3]glfw.MouseButton{glfw.MouseButtonLeft, glfw.MouseButtonRight, glfw.MouseButtonMiddle}

func inputSystem(ws *WindowState, in *Input) {
	win := ws.Window
	for k, b := range in.keys {
		b.set(win.GetKey(k) == glfw.Press)
	}
	for i, mb := range mouseButtons {
		in.Mouse[i].set(win.GetMouseButton(mb) == glfw.Press)
	}

	x, y := win.GetCursorPos()
	in.MouseDeltaX, in.MouseDeltaY = x-in.MouseX, y-in.MouseY
	in.MouseX, in.MouseY = x, y

	in.Chars = append(in.Chars[:0], in.pending...)
	in.pending = in.pending[:0]
}

func escapeExitSystem(in *Input, cmd *gekko.Commands) {
	if in.Key(glfw.KeyEscape).JustPressed {
		cmd.Exit("escape")
	}
}
