package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mandelsoft/fxengine/pkg/api"
	"github.com/mandelsoft/fxengine/pkg/reference"
)

type Set struct {
	cmd *cobra.Command

	mainopts *Options
	unit     string
	sheet    string
	remove   bool
}

func NewSet(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <document> <address> [<input>] <options>",
		Short: "set cells or other formulas on a server",
		Long: `
Set the input of a cell ([unit]Sheet!A1) or the source of an other formula
([unit]Sheet!@id) of a served document. Input starting with = is a formula.
Without input (or with --remove) the cell is cleared or the formula removed.
`,
		Args: cobra.RangeArgs(2, 3),
	}
	TweakCommand(cmd)

	c := &Set{
		cmd:      cmd,
		mainopts: opts,
	}
	c.cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(cmd.Context(), args) }
	flags := cmd.Flags()
	flags.StringVarP(&c.unit, "unit", "u", "", "default unit for addresses")
	flags.StringVarP(&c.sheet, "sheet", "", "", "default sheet for addresses")
	flags.BoolVarP(&c.remove, "remove", "r", false, "clear cell or remove formula")
	return cmd
}

func (c *Set) Run(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(args) == 3 && c.remove {
		return fmt.Errorf("no input possible for --remove")
	}
	remove := len(args) == 2

	r, err := ParseAddress(args[1], c.unit, c.sheet)
	if err != nil {
		return err
	}
	client := api.NewClient(c.mainopts.GetAPIURL())
	switch x := r.(type) {
	case reference.CellRef:
		if remove {
			return client.ClearCell(ctx, args[0], x.Unit, x.Sheet, x.A1())
		}
		return client.SetInput(ctx, args[0], x.Unit, x.Sheet, x.A1(), args[2])
	case reference.FormulaRef:
		if remove {
			return client.RemoveFormula(ctx, args[0], x.Unit, x.Sheet, x.FormulaId)
		}
		return client.RegisterFormula(ctx, args[0], x.Unit, x.Sheet, x.FormulaId, args[2])
	}
	return nil
}
