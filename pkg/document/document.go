// Package document provides the session context of the formula engine.
//
// A Document owns the grid data, the other-formula registry, the
// dependency graph, the scheduler and the change handlers. There is no
// global state, several documents may be used side by side.
//
// Mutations are queued and applied by whoever gets the document lock
// first. All mutations found in the queue are applied in one dirty
// marking phase followed by one recalculation. Change events are
// delivered after the recalculation, outside of the document lock.
package document

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mandelsoft/logging"

	"github.com/mandelsoft/fxengine/pkg/events"
	"github.com/mandelsoft/fxengine/pkg/functions"
	"github.com/mandelsoft/fxengine/pkg/graph"
	"github.com/mandelsoft/fxengine/pkg/grid"
	"github.com/mandelsoft/fxengine/pkg/otherformula"
	"github.com/mandelsoft/fxengine/pkg/scheduler"
	"github.com/mandelsoft/fxengine/pkg/utils"
)

var ErrDisposed = fmt.Errorf("document disposed")

type Document struct {
	lock sync.RWMutex
	log  logging.UnboundLogger

	name string
	id   string

	workbook  *grid.Workbook
	formulas  *otherformula.Registry
	graph     *graph.Graph
	scheduler *scheduler.Scheduler
	functions *functions.Registry
	events    *events.Registry

	autoRecalc bool
	trigger    func(d *Document)
	disposed   bool

	qlock sync.Mutex
	queue []*operation
}

func New(name string, opts ...Option) *Document {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	d := &Document{
		name:       name,
		id:         uuid.NewString(),
		workbook:   grid.New(),
		formulas:   otherformula.New(),
		graph:      graph.New(),
		functions:  utils.OptionalDefaulted(functions.NewDefaultRegistry(), o.functions),
		autoRecalc: o.autoRecalc,
		trigger:    o.trigger,
		scheduler:  scheduler.New(scheduler.WithWorkers(o.workers), scheduler.WithMaxPasses(o.maxPasses)),
	}
	d.log = logging.DynamicLogger(o.lctx, REALM, logging.NewAttribute("document", name))
	d.events = events.NewRegistry(d)
	d.formulas.AddListener(&listener{d})
	d.log.Debug("created document {{name}} (session {{session}})", "name", name, "session", d.id)
	return d
}

func (d *Document) Name() string {
	return d.name
}

// SessionId is the unique id of the document instance.
func (d *Document) SessionId() string {
	return d.id
}

// Evaluations returns the number of formula evaluations done so far.
func (d *Document) Evaluations() int64 {
	return d.scheduler.Evaluations()
}

func (d *Document) Dirty() bool {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.graph.HasDirty()
}

////////////////////////////////////////////////////////////////////////////////

type operation struct {
	name  string
	apply func() error
	err   error
}

func op(name string, apply func() error) *operation {
	return &operation{name: name, apply: apply}
}

func (d *Document) enqueue(ops ...*operation) {
	d.qlock.Lock()
	defer d.qlock.Unlock()
	d.queue = append(d.queue, ops...)
}

func (d *Document) drain() []*operation {
	d.qlock.Lock()
	defer d.qlock.Unlock()
	ops := d.queue
	d.queue = nil
	return ops
}

// submit queues operations and processes the queue. When it returns,
// the operations are applied, possibly by a concurrent caller.
func (d *Document) submit(ops ...*operation) error {
	d.enqueue(ops...)
	err := d.process(context.Background(), d.autoRecalc, nil)
	errs := []error{err}
	for _, o := range ops {
		errs = append(errs, o.err)
	}
	return errors.Join(errs...)
}

// process applies the queued operations, executes the optional
// function f and recalculates the document if requested.
func (d *Document) process(ctx context.Context, recalc bool, f func() error) error {
	var changes []events.ChangeEvent

	err := func() error {
		d.lock.Lock()
		defer d.lock.Unlock()

		if d.disposed {
			for _, o := range d.drain() {
				o.err = ErrDisposed
			}
			return ErrDisposed
		}

		ops := d.drain()
		for _, o := range ops {
			o.err = o.apply()
			if o.err != nil {
				d.log.Info("operation {{operation}} failed: {{error}}", "operation", o.name, "error", o.err)
			} else {
				d.log.Trace("applied {{operation}}", "operation", o.name)
			}
		}
		if f != nil {
			if err := f(); err != nil {
				return err
			}
		}
		if !recalc {
			return nil
		}
		var err error
		changes, err = d.recalculate(ctx)
		return err
	}()

	if len(changes) > 0 {
		d.events.TriggerEvent(changes...)
	}
	if !recalc && d.trigger != nil && d.Dirty() {
		d.trigger(d)
	}
	return err
}

// Recalculate applies pending mutations and runs evaluation passes
// until the document is clean.
func (d *Document) Recalculate(ctx context.Context) error {
	return d.process(ctx, true, nil)
}

func (d *Document) recalculate(ctx context.Context) ([]events.ChangeEvent, error) {
	if !d.graph.HasDirty() {
		return nil, nil
	}
	result, err := d.scheduler.Recalculate(ctx, d.graph, d.workbook.Snapshot())
	if err != nil {
		d.log.Error("recalculation failed: {{error}}", "error", err)
	}
	if result == nil {
		return nil, err
	}
	d.log.Debug("recalculated: {{evaluated}} evaluated, {{changed}} changed, {{cycles}} cyclic",
		"evaluated", len(result.Evaluated), "changed", len(result.Changed), "cycles", len(result.Cycles))

	var changes []events.ChangeEvent
	seen := map[graph.NodeId]struct{}{}
	for _, id := range result.Changed {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		n, ok := d.graph.Node(id)
		if !ok || n.State() == graph.Dirty {
			continue
		}
		if c, ok := id.Cell(); ok {
			d.workbook.SetComputed(c, n.Formula().String(), n.Value())
		}
		changes = append(changes, changeEvent(n))
	}
	return changes, err
}

func changeEvent(n *graph.Node) events.ChangeEvent {
	id := n.Id()
	return events.ChangeEvent{
		Unit:      id.Unit,
		Sub:       id.Sub,
		FormulaId: id.Name,
		Cell:      id.Kind == graph.CellNode,
		Value:     n.Value(),
	}
}

// Dispose clears the registry, the graph and all handlers.
// Further mutations fail with ErrDisposed.
func (d *Document) Dispose() {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.disposed = true
	d.formulas.Dispose()
	d.graph = graph.New()
	d.workbook = grid.New()
	d.events.Clear()
	d.log.Debug("disposed document {{name}}", "name", d.name)
}
