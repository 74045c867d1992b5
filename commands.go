package gekko

import "reflect"

// Commands buffers World changes requested by a system. The buffer is
// flushed when the current stage finishes, so systems later in the same
// stage still see the World as it was.
type Commands struct {
	app *App
}

type pendingCommand struct {
	insert any
	remove reflect.Type
	exit   *AppExit
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

func (cmd *Commands) InsertResource(resources ...any) *Commands {
	for _, r := range resources {
		cmd.app.pending = append(cmd.app.pending, pendingCommand{insert: r})
	}
	return cmd
}

// RemoveResource queues removal of the resource of the same type as
// resource (a value or a pointer).
func (cmd *Commands) RemoveResource(resource any) *Commands {
	t := reflect.TypeOf(resource)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	cmd.app.pending = append(cmd.app.pending, pendingCommand{remove: t})
	return cmd
}

// Exit queues an AppExit event.
func (cmd *Commands) Exit(reason string) *Commands {
	cmd.app.pending = append(cmd.app.pending, pendingCommand{exit: &AppExit{Reason: reason}})
	return cmd
}

func (app *App) FlushCommands() {
	if len(app.pending) == 0 {
		return
	}

	for _, c := range app.pending {
		switch {
		case c.insert != nil:
			app.world.InsertResource(c.insert)
		case c.remove != nil:
			app.world.removeResourceOf(c.remove)
		case c.exit != nil:
			exits := Resource[Events[AppExit]](app.world)
			if exits == nil {
				app.Logger().Warnf("exit requested (%s) but AppExit events are not registered", c.exit.Reason)
				continue
			}
			exits.Send(*c.exit)
		}
	}
	app.pending = app.pending[:0]
}
