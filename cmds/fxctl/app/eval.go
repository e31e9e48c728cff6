package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/spf13/cobra"

	"github.com/mandelsoft/fxengine/pkg/ctxutil"
	"github.com/mandelsoft/fxengine/pkg/document"
	"github.com/mandelsoft/fxengine/pkg/events"
	"github.com/mandelsoft/fxengine/pkg/otherformula"
	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/snapshot"
	"github.com/mandelsoft/fxengine/pkg/utils"
)

type Eval struct {
	cmd *cobra.Command

	mainopts *Options
	output   string
	unit     string
	sheet    string
	save     bool
	timeout  time.Duration
}

func NewEval(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <workbook> {<address>} <options>",
		Short: "evaluate a workbook file",
		Long: `
Evaluate the formulas of a workbook file and print the values of the given
cell ([unit]Sheet!A1) or other formula ([unit]Sheet!@id) addresses. Without
addresses the values of all formulas are printed.

If a snapshot directory is configured, the last snapshot of the workbook
is restored and only formulas with changed inputs are evaluated.
`,
		Args: cobra.MinimumNArgs(1),
	}
	TweakCommand(cmd)

	c := &Eval{
		cmd:      cmd,
		mainopts: opts,
	}
	c.cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(cmd.Context(), args) }
	flags := cmd.Flags()
	flags.StringVarP(&c.output, "output", "o", "", "output format (text, json, yaml)")
	flags.StringVarP(&c.unit, "unit", "u", "", "default unit for addresses")
	flags.StringVarP(&c.sheet, "sheet", "", "", "default sheet for addresses")
	flags.BoolVarP(&c.save, "save", "", true, "save snapshot after evaluation")
	flags.DurationVarP(&c.timeout, "timeout", "t", 0, "evaluation timeout")
	return cmd
}

func (c *Eval) Run(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		ctx = ctxutil.TimeoutContext(ctx, c.timeout)
		defer ctxutil.Cancel(ctx)
	}
	doc, err := LoadDocument(ctx, c.mainopts, args[0])
	if err != nil {
		return err
	}

	var entries []Entry
	if len(args) == 1 {
		entries = utils.TransformSlice(doc.ListEvents("", "", func() {}), func(e events.ChangeEvent) Entry {
			return Entry{Address: address(e), Value: e.Value}
		})
	} else {
		for _, a := range args[1:] {
			r, err := ParseAddress(a, c.unit, c.sheet)
			if err != nil {
				return err
			}
			e := Entry{Address: r.Address()}
			switch x := r.(type) {
			case reference.CellRef:
				e.Value, err = doc.Value(x.Unit, x.Sheet, x.A1())
				if err != nil {
					return err
				}
			case reference.FormulaRef:
				v, ok := doc.FormulaValue(otherformula.NewSearchParam(x.Unit, x.Sheet, x.FormulaId))
				if !ok {
					return fmt.Errorf("formula %s not found", a)
				}
				e.Value = v
			}
			entries = append(entries, e)
		}
	}

	if c.save {
		if err := SaveSnapshot(c.mainopts, doc); err != nil {
			return err
		}
	}
	return Output(c.cmd.OutOrStdout(), c.output, entries)
}

func address(e events.ChangeEvent) string {
	if e.Cell {
		row, col, _ := reference.ParseCell(e.FormulaId)
		return reference.NewCellRef(e.Unit, e.Sub, row, col).Address()
	}
	return reference.FormulaRef{Unit: e.Unit, Sheet: e.Sub, FormulaId: e.FormulaId}.Address()
}

// LoadDocument loads a workbook into a new document and brings it up to
// date. A stored snapshot is used to avoid evaluations.
func LoadDocument(ctx context.Context, opts *Options, path string, docopts ...document.Option) (*document.Document, error) {
	name := DocumentName(path)
	docopts = append([]document.Option{document.WithWorkers(opts.workers), document.WithAutoRecalc(false)}, docopts...)
	doc := document.New(name, docopts...)
	if err := doc.LoadFile(path, opts.fs); err != nil {
		return nil, err
	}

	store, err := opts.GetStore()
	if err != nil {
		return nil, err
	}
	if store != nil {
		snap, err := store.Load(name)
		switch {
		case err == nil:
			r, err := snapshot.Restore(ctx, doc, snap)
			if err != nil {
				return nil, err
			}
			log.Info("restored {{restored}} values of {{document}}, {{outdated}} outdated",
				"document", name, "restored", len(r.Restored), "outdated", len(r.Outdated))
		case !errors.Is(err, vfs.ErrNotExist):
			return nil, err
		}
	}
	if err := doc.Recalculate(ctx); err != nil {
		return nil, err
	}
	log.Info("evaluated {{document}} with {{evaluations}} evaluations", "document", name, "evaluations", doc.Evaluations())
	return doc, nil
}

// SaveSnapshot saves the snapshot of a document, if a snapshot
// directory is configured.
func SaveSnapshot(opts *Options, doc *document.Document) error {
	store, err := opts.GetStore()
	if err != nil || store == nil {
		return err
	}
	snap, err := snapshot.Capture(doc)
	if err != nil {
		return err
	}
	return store.Save(snap)
}
