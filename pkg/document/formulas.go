package document

import (
	"github.com/mandelsoft/fxengine/pkg/graph"
	"github.com/mandelsoft/fxengine/pkg/otherformula"
	"github.com/mandelsoft/fxengine/pkg/utils"
)

// FormulaReader is the read access to the other-formula registry.
type FormulaReader interface {
	Get(p otherformula.SearchParam) (otherformula.Item, bool)
	Has(p otherformula.SearchParam) bool
	List() []otherformula.SearchParam
	Data() otherformula.Data
}

// Formulas provides read access to the other formulas of the document.
// Mutations must use RegisterFormula and RemoveFormula.
func (d *Document) Formulas() FormulaReader {
	return d.formulas
}

// RegisterFormula registers an other formula. Parse and compile
// errors are returned and leave the registry unchanged.
func (d *Document) RegisterFormula(unit, sub, id, src string, payload ...interface{}) error {
	return d.submit(d.registerFormulaOp(otherformula.NewSearchParam(unit, sub, id), src, utils.Optional(payload...)))
}

// RemoveFormula removes an other formula, readers get #REF!.
func (d *Document) RemoveFormula(unit, sub, id string) error {
	return d.submit(d.removeFormulaOp(otherformula.NewSearchParam(unit, sub, id)))
}

func (d *Document) registerFormulaOp(p otherformula.SearchParam, src string, payload interface{}) *operation {
	return op("register formula "+p.String(), func() error {
		return d.formulas.Register(p, otherformula.Item{Formula: src, Payload: payload})
	})
}

func (d *Document) removeFormulaOp(p otherformula.SearchParam) *operation {
	return op("remove formula "+p.String(), func() error {
		d.formulas.Remove(p)
		return nil
	})
}

// listener maps registry changes to graph nodes. The registry is only
// modified by document operations, so the listener is always called
// with the document lock held.
type listener struct {
	doc *Document
}

var _ otherformula.Listener = (*listener)(nil)

func (l *listener) FormulaRegistered(p otherformula.SearchParam, item otherformula.Item) error {
	f, prog, err := l.doc.compile(p.UnitId, p.SubComponentId, item.Formula)
	if err != nil {
		return err
	}
	_, err = l.doc.graph.SetNode(graph.OtherId(p.UnitId, p.SubComponentId, p.FormulaId), f, prog)
	return err
}

func (l *listener) FormulaRemoved(p otherformula.SearchParam) {
	l.doc.graph.RemoveNode(graph.OtherId(p.UnitId, p.SubComponentId, p.FormulaId))
}
