// Package events provides the registry for change handlers.
//
// Handlers are registered for a unit and an optional list of sub
// components (sheets). An empty unit matches all units, an empty
// sub component all sub components of the unit. Handlers registered
// with current=true first get the current state provided by a Lister,
// events arriving meanwhile are queued and delivered afterwards.
package events

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/mandelsoft/fxengine/pkg/utils"
	"github.com/mandelsoft/fxengine/pkg/value"
)

// ChangeEvent reports a changed result of a formula node.
// For cell formulas FormulaId is the A1 address of the cell.
type ChangeEvent struct {
	Unit      string
	Sub       string
	FormulaId string
	Cell      bool
	Value     value.Value
}

type eventKey struct {
	unit, sub, id string
	cell          bool
}

func (e ChangeEvent) key() eventKey {
	return eventKey{e.Unit, e.Sub, e.FormulaId, e.Cell}
}

func (e ChangeEvent) String() string {
	sep := "@"
	if e.Cell {
		sep = "!"
	}
	return fmt.Sprintf("[%s]%s%s%s=%s", e.Unit, e.Sub, sep, e.FormulaId, e.Value)
}

type event struct {
	Unit      string         `json:"unit"`
	Sub       string         `json:"sub"`
	FormulaId string         `json:"formulaId"`
	Cell      bool           `json:"cell,omitempty"`
	Value     *value.Encoded `json:"value"`
}

func (e ChangeEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(event{e.Unit, e.Sub, e.FormulaId, e.Cell, value.Encode(e.Value)})
}

func (e *ChangeEvent) UnmarshalJSON(data []byte) error {
	var ev event
	err := json.Unmarshal(data, &ev)
	if err != nil {
		return err
	}
	v, err := ev.Value.Decode()
	if err != nil {
		return err
	}
	*e = ChangeEvent{ev.Unit, ev.Sub, ev.FormulaId, ev.Cell, v}
	return nil
}

type Handler interface {
	HandleEvent(ChangeEvent)
}

type HandlerFunc func(ChangeEvent)

func (f HandlerFunc) HandleEvent(e ChangeEvent) {
	f(e)
}

// Lister provides the current state for a handler registration.
// The atomic function must be called while the listed state
// is consistent, it activates the registration.
type Lister interface {
	ListEvents(unit, sub string, atomic func()) []ChangeEvent
}

type Registration interface {
	Unregister()
}

type handlers []*wrapper
type subs map[string]handlers

type Registry struct {
	lock   sync.Mutex
	units  map[string]subs
	lister Lister
}

func NewRegistry(l Lister) *Registry {
	return &Registry{
		units:  map[string]subs{},
		lister: l,
	}
}

// RegisterHandler registers a handler for the given unit and sub components.
// The returned Sync is done after the rampup with the current state.
func (r *Registry) RegisterHandler(h Handler, current bool, unit string, sub ...string) (Registration, utils.Sync) {
	s, d := utils.NewSyncPoint()
	if len(sub) == 0 {
		sub = []string{""}
	}
	reg := &registration{registry: r, unit: unit, subs: slices.Clone(sub), wrapper: newWrapper(h)}
	if current && r.lister != nil {
		go func() {
			r.register(reg, true)
			d.Done()
		}()
	} else {
		r.register(reg, false)
		d.Done()
	}
	return reg, s
}

func (r *Registry) register(reg *registration, current bool) {
	var list []ChangeEvent
	for _, sub := range reg.subs {
		atomic := func() {
			r.lock.Lock()
			defer r.lock.Unlock()
			m := r.units[reg.unit]
			if m == nil {
				m = subs{}
				r.units[reg.unit] = m
			}
			if !slices.Contains(m[sub], reg.wrapper) {
				m[sub] = append(m[sub], reg.wrapper)
			}
		}
		if current {
			list = append(list, r.lister.ListEvents(reg.unit, sub, atomic)...)
		} else {
			atomic()
		}
	}
	reg.wrapper.Rampup(list)
}

func (r *Registry) unregister(reg *registration) {
	r.lock.Lock()
	defer r.lock.Unlock()

	m := r.units[reg.unit]
	if m == nil {
		return
	}
	for _, sub := range reg.subs {
		list := m[sub]
		if i := slices.Index(list, reg.wrapper); i >= 0 {
			list = slices.Delete(list, i, i+1)
		}
		if len(list) > 0 {
			m[sub] = list
		} else {
			delete(m, sub)
		}
	}
	if len(m) == 0 {
		delete(r.units, reg.unit)
	}
}

func (r *Registry) getHandlers(e ChangeEvent) []*wrapper {
	r.lock.Lock()
	defer r.lock.Unlock()

	var result handlers
	for _, unit := range []string{"", e.Unit} {
		m := r.units[unit]
		if len(m) == 0 {
			continue
		}
		if e.Sub != "" {
			result = appendUnique(result, m[e.Sub]...)
		}
		result = appendUnique(result, m[""]...)
		if e.Unit == "" {
			break
		}
	}
	return result
}

func appendUnique(list handlers, add ...*wrapper) handlers {
	for _, w := range add {
		if !slices.Contains(list, w) {
			list = append(list, w)
		}
	}
	return list
}

// Len returns the number of active handler registrations.
func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	set := map[*wrapper]struct{}{}
	for _, m := range r.units {
		for _, list := range m {
			for _, w := range list {
				set[w] = struct{}{}
			}
		}
	}
	return len(set)
}

// TriggerEvent delivers events to the matching handlers in the given order.
func (r *Registry) TriggerEvent(events ...ChangeEvent) {
	for _, e := range events {
		for _, h := range r.getHandlers(e) {
			h.HandleEvent(e)
		}
	}
}

// Clear removes all handler registrations.
func (r *Registry) Clear() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.units = map[string]subs{}
}

type registration struct {
	registry *Registry
	unit     string
	subs     []string
	wrapper  *wrapper
}

func (r *registration) Unregister() {
	r.registry.unregister(r)
}

// wrapper handles the rampup of a handler.
// It queues new events until the events for the current
// state are delivered.
type wrapper struct {
	lock    sync.Mutex
	rampup  bool
	queue   []ChangeEvent
	handler Handler
}

var _ Handler = (*wrapper)(nil)

func newWrapper(h Handler) *wrapper {
	return &wrapper{
		handler: h,
		rampup:  true,
	}
}

func (w *wrapper) Rampup(events []ChangeEvent) {
	w.lock.Lock()
	defer w.lock.Unlock()

	current := map[eventKey]value.Value{}
	for _, e := range events {
		current[e.key()] = e.Value
		w.handler.HandleEvent(e)
	}
	for _, e := range w.queue {
		// queued events already covered by the current state are dropped
		// until the node reports a different value.
		k := e.key()
		if v, ok := current[k]; ok {
			if value.Equal(v, e.Value) {
				continue
			}
			delete(current, k)
		}
		w.handler.HandleEvent(e)
	}
	w.rampup = false
	w.queue = nil
}

func (w *wrapper) HandleEvent(e ChangeEvent) {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.rampup {
		w.queue = append(w.queue, e)
	} else {
		w.handler.HandleEvent(e)
	}
}
