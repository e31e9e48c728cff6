// Package otherformula keeps formulas registered outside of cells,
// for example by conditional formatting or data validation. Items
// are addressed by unit, sub component (sheet) and formula id.
package otherformula

import (
	"fmt"
	"sync"

	"github.com/mandelsoft/fxengine/pkg/utils"
)

type SearchParam struct {
	UnitId         string `json:"unitId"`
	SubComponentId string `json:"subUnitId"`
	FormulaId      string `json:"formulaId"`
}

func NewSearchParam(unit, sub, id string) SearchParam {
	return SearchParam{UnitId: unit, SubComponentId: sub, FormulaId: id}
}

func (p SearchParam) String() string {
	return fmt.Sprintf("%s/%s/%s", p.UnitId, p.SubComponentId, p.FormulaId)
}

// Item is a registered formula. The payload is opaque to the
// registry and handed back to the owner of the formula.
type Item struct {
	Formula string      `json:"formula"`
	Payload interface{} `json:"payload,omitempty"`
}

// Listener is notified about registry changes. An error returned
// by FormulaRegistered is returned by Register.
type Listener interface {
	FormulaRegistered(p SearchParam, item Item) error
	FormulaRemoved(p SearchParam)
}

// Data is the three level storage unit -> sub component -> formula id.
type Data map[string]map[string]map[string]Item

// Registry is scoped to a document.
type Registry struct {
	lock      sync.RWMutex
	data      Data
	listeners []Listener
}

func New() *Registry {
	return &Registry{data: Data{}}
}

func (r *Registry) AddListener(l Listener) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *Registry) getListeners() []Listener {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return append([]Listener(nil), r.listeners...)
}

// Register adds or replaces an item. Missing levels are created,
// existing ones are kept. If a listener rejects the item, the
// previous state is restored.
func (r *Registry) Register(p SearchParam, item Item) error {
	r.lock.Lock()
	subs := r.data[p.UnitId]
	if subs == nil {
		subs = map[string]map[string]Item{}
		r.data[p.UnitId] = subs
	}
	items := subs[p.SubComponentId]
	if items == nil {
		items = map[string]Item{}
		subs[p.SubComponentId] = items
	}
	prev, existing := items[p.FormulaId]
	items[p.FormulaId] = item
	r.lock.Unlock()

	for _, l := range r.getListeners() {
		if err := l.FormulaRegistered(p, item); err != nil {
			r.restore(p, prev, existing)
			return fmt.Errorf("formula %s: %w", p, err)
		}
	}
	return nil
}

func (r *Registry) restore(p SearchParam, prev Item, existing bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	items := r.data[p.UnitId][p.SubComponentId]
	if items == nil {
		return
	}
	if existing {
		items[p.FormulaId] = prev
	} else {
		delete(items, p.FormulaId)
	}
}

// Remove removes an item, removing an absent item is a no-op.
func (r *Registry) Remove(p SearchParam) {
	r.lock.Lock()
	items := r.data[p.UnitId][p.SubComponentId]
	_, ok := items[p.FormulaId]
	if ok {
		delete(items, p.FormulaId)
	}
	r.lock.Unlock()

	if ok {
		for _, l := range r.getListeners() {
			l.FormulaRemoved(p)
		}
	}
}

// RemoveSub removes all items of a sub component.
func (r *Registry) RemoveSub(unit, sub string) {
	for _, id := range r.formulaIds(unit, sub) {
		r.Remove(NewSearchParam(unit, sub, id))
	}
}

// RemoveUnit removes all items of a unit.
func (r *Registry) RemoveUnit(unit string) {
	r.lock.RLock()
	subs := utils.OrderedMapKeys(r.data[unit])
	r.lock.RUnlock()
	for _, s := range subs {
		r.RemoveSub(unit, s)
	}
}

func (r *Registry) formulaIds(unit, sub string) []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return utils.OrderedMapKeys(r.data[unit][sub])
}

func (r *Registry) Get(p SearchParam) (Item, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	item, ok := r.data[p.UnitId][p.SubComponentId][p.FormulaId]
	return item, ok
}

func (r *Registry) Has(p SearchParam) bool {
	_, ok := r.Get(p)
	return ok
}

// List returns all search params in a deterministic order.
func (r *Registry) List() []SearchParam {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var result []SearchParam
	for _, u := range utils.OrderedMapKeys(r.data) {
		for _, s := range utils.OrderedMapKeys(r.data[u]) {
			for _, id := range utils.OrderedMapKeys(r.data[u][s]) {
				result = append(result, NewSearchParam(u, s, id))
			}
		}
	}
	return result
}

// Data returns a copy of the complete storage.
func (r *Registry) Data() Data {
	r.lock.RLock()
	defer r.lock.RUnlock()

	result := Data{}
	for u, subs := range r.data {
		c := map[string]map[string]Item{}
		for s, items := range subs {
			c[s] = utils.TransformMap(items, func(k string, v Item) (string, Item) { return k, v })
		}
		result[u] = c
	}
	return result
}

// Dispose removes all items without notifying listeners.
func (r *Registry) Dispose() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.data = Data{}
	r.listeners = nil
}
