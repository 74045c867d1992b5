package gekko

import (
	"fmt"
	"reflect"
)

// World holds the singleton resources systems run against. Values are keyed
// by their non-pointer type and always stored behind a pointer so systems
// can mutate them in place.
type World struct {
	resources map[reflect.Type]any
}

func NewWorld() *World {
	return &World{
		resources: make(map[reflect.Type]any),
	}
}

// InsertResource stores resource, replacing any previous value of the same
// type. Non-pointer values are copied into a fresh allocation.
func (w *World) InsertResource(resource any) {
	if resource == nil {
		panic("nil resource")
	}

	value := reflect.ValueOf(resource)
	if value.Kind() != reflect.Pointer {
		ptr := reflect.New(value.Type())
		ptr.Elem().Set(value)
		value = ptr
	} else if value.IsNil() {
		panic(fmt.Sprintf("nil %s resource", value.Type()))
	}

	w.resources[value.Type().Elem()] = value.Interface()
}

// resourceOf returns the stored pointer for the resource type t (non-pointer).
func (w *World) resourceOf(t reflect.Type) (any, bool) {
	r, ok := w.resources[t]
	return r, ok
}

func (w *World) removeResourceOf(t reflect.Type) {
	delete(w.resources, t)
}

// Len returns the number of resources held.
func (w *World) Len() int {
	return len(w.resources)
}

// Resource returns the World's *T, or nil if there is none.
func Resource[T any](w *World) *T {
	r, ok := w.resourceOf(typeOf[T]())
	if !ok {
		return nil
	}
	return r.(*T)
}

func HasResource[T any](w *World) bool {
	_, ok := w.resourceOf(typeOf[T]())
	return ok
}

func RemoveResource[T any](w *World) {
	w.removeResourceOf(typeOf[T]())
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// FromWorld is implemented by resources that initialise themselves from
// other resources. See InitResource.
type FromWorld interface {
	FromWorld(w *World)
}
