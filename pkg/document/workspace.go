package document

import (
	"fmt"
	"sync"

	"github.com/mandelsoft/fxengine/pkg/utils"
)

var ErrExists = fmt.Errorf("document already exists")

// Workspace is a set of named documents.
type Workspace struct {
	lock      sync.RWMutex
	documents map[string]*Document
}

func NewWorkspace() *Workspace {
	return &Workspace{documents: map[string]*Document{}}
}

func (w *Workspace) Add(d *Document) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if _, ok := w.documents[d.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrExists, d.Name())
	}
	w.documents[d.Name()] = d
	return nil
}

func (w *Workspace) GetDocument(name string) (*Document, bool) {
	w.lock.RLock()
	defer w.lock.RUnlock()
	d, ok := w.documents[name]
	return d, ok
}

// Remove removes and disposes a document.
func (w *Workspace) Remove(name string) bool {
	w.lock.Lock()
	d, ok := w.documents[name]
	delete(w.documents, name)
	w.lock.Unlock()
	if ok {
		d.Dispose()
	}
	return ok
}

// Names returns the sorted document names.
func (w *Workspace) Names() []string {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return utils.OrderedMapKeys(w.documents)
}
