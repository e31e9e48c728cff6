package watch

import (
	"fmt"

	"github.com/mandelsoft/fxengine/pkg/document"
	"github.com/mandelsoft/fxengine/pkg/events"
)

var ErrUnknownDocument = fmt.Errorf("unknown document")

// Request is the registration request for change events of a document.
// An empty unit matches all units, no subs match all sub components.
type Request struct {
	Document string   `json:"document"`
	Unit     string   `json:"unit,omitempty"`
	Subs     []string `json:"subs,omitempty"`
	// Current requests the current state before the changes.
	Current bool `json:"current,omitempty"`
}

type Documents interface {
	GetDocument(name string) (*document.Document, bool)
}

// DocumentRegistry registers watch handlers for change events
// of the documents of a workspace.
type DocumentRegistry struct {
	documents Documents
}

var _ Registry[Request, events.ChangeEvent] = (*DocumentRegistry)(nil)

func NewDocumentRegistry(docs Documents) *DocumentRegistry {
	return &DocumentRegistry{docs}
}

func (r *DocumentRegistry) RegisterWatchHandler(req Request, h EventHandler[events.ChangeEvent]) (Registration, error) {
	doc, ok := r.documents.GetDocument(req.Document)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownDocument, req.Document)
	}
	reg, _ := doc.Subscribe(events.HandlerFunc(h.HandleEvent), req.Current, req.Unit, req.Subs...)
	return reg, nil
}

// DocumentHandler provides the watch endpoint for change events.
func DocumentHandler(docs Documents) *RequestHandler[Request, events.ChangeEvent] {
	return WatchHttpHandler[Request, events.ChangeEvent](NewDocumentRegistry(docs))
}
