// Package lifecycle brings the long-lived pieces of the process up in
// dependency order and down in reverse: the run journal before the
// controller, the controller before the API server, tracing last out.
package lifecycle

import "context"

// Component is one managed piece of the process. Start is called once per
// process run; Stop receives a deadline and should finish in-flight work
// inside it.
type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Name identifies the component in logs and errors
	Name() string
}

// Funcs adapts a pair of functions to the Component interface. Nil
// functions are no-ops, which keeps wrapping types that only need
// teardown terse. Only *Funcs satisfies Component; the manager tracks
// components as map keys and a value with func fields is not hashable.
type Funcs struct {
	Component string
	OnStart   func(ctx context.Context) error
	OnStop    func(ctx context.Context) error
}

// Start runs OnStart when set
func (f *Funcs) Start(ctx context.Context) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(ctx)
}

// Stop runs OnStop when set
func (f *Funcs) Stop(ctx context.Context) error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop(ctx)
}

// Name returns the component name
func (f *Funcs) Name() string { return f.Component }
