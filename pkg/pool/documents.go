package pool

import (
	"context"
	"errors"

	"github.com/mandelsoft/logging"

	"github.com/mandelsoft/fxengine/pkg/document"
	"github.com/mandelsoft/fxengine/pkg/scheduler"
)

// Documents provides documents by name.
type Documents interface {
	GetDocument(name string) (*document.Document, bool)
}

// RecalculationAction recalculates the document with the name of
// the processed key.
func RecalculationAction(docs Documents) Action {
	return ActionFunc(func(ctx context.Context, log logging.Logger, key string) Status {
		doc, ok := docs.GetDocument(key)
		if !ok {
			log.Debug("document {{key}} not found")
			return StatusCompleted().Stop()
		}
		err := doc.Recalculate(ctx)
		switch {
		case err == nil:
			log.Debug("document {{key}} recalculated", "evaluations", doc.Evaluations())
			return StatusCompleted()
		case errors.Is(err, document.ErrDisposed):
			return StatusCompleted().Stop()
		case errors.Is(err, scheduler.ErrNotConverged), errors.Is(err, scheduler.ErrEvaluation):
			return StatusCompleted(err)
		case ctx.Err() != nil:
			return StatusCompleted().Stop()
		default:
			return StatusFailed(err)
		}
	})
}

// Trigger provides a document trigger enqueuing dirty documents.
// It is intended for document.WithAutoRecalc(false, ...).
func Trigger(p *Pool) func(d *document.Document) {
	return func(d *document.Document) {
		p.Enqueue(d.Name())
	}
}
