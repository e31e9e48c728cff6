package document

import (
	"github.com/mandelsoft/logging"

	"github.com/mandelsoft/fxengine/pkg/functions"
	"github.com/mandelsoft/fxengine/pkg/scheduler"
)

type options struct {
	workers    int
	maxPasses  int
	lctx       logging.Context
	functions  *functions.Registry
	autoRecalc bool
	trigger    func(d *Document)
}

type Option func(o *options)

// WithWorkers sets the number of goroutines evaluating a
// level of the dependency graph.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func WithMaxPasses(n int) Option {
	return func(o *options) {
		o.maxPasses = n
	}
}

// WithLogger sets the logging context used for the document.
func WithLogger(ctx logging.Context) Option {
	return func(o *options) {
		o.lctx = ctx
	}
}

// WithFunctions sets the function library.
func WithFunctions(r *functions.Registry) Option {
	return func(o *options) {
		o.functions = r
	}
}

// WithAutoRecalc controls whether mutations trigger a synchronous
// recalculation (default). Without it, the trigger function is called
// after mutations making the document dirty, and the owner is
// responsible to call Recalculate.
func WithAutoRecalc(b bool, trigger ...func(d *Document)) Option {
	return func(o *options) {
		o.autoRecalc = b
		if len(trigger) > 0 {
			o.trigger = trigger[0]
		}
	}
}

func defaultOptions() *options {
	return &options{
		workers:    1,
		maxPasses:  scheduler.DefaultMaxPasses,
		lctx:       logging.DefaultContext(),
		autoRecalc: true,
	}
}
