package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mandelsoft/fxengine/pkg/api"
	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/value"
)

type Get struct {
	cmd *cobra.Command

	mainopts *Options
	output   string
	unit     string
	sheet    string
}

func NewGet(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <document> {<address>} <options>",
		Short: "get values from a server",
		Long: `
Get the values of cells ([unit]Sheet!A1) or other formulas ([unit]Sheet!@id)
of a served document. Without arguments the served documents are listed.
`,
	}
	TweakCommand(cmd)

	c := &Get{
		cmd:      cmd,
		mainopts: opts,
	}
	c.cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(cmd.Context(), args) }
	flags := cmd.Flags()
	flags.StringVarP(&c.output, "output", "o", "", "output format (text, json, yaml)")
	flags.StringVarP(&c.unit, "unit", "u", "", "default unit for addresses")
	flags.StringVarP(&c.sheet, "sheet", "", "", "default sheet for addresses")
	return cmd
}

func (c *Get) Run(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := api.NewClient(c.mainopts.GetAPIURL())

	if len(args) == 0 {
		list, err := client.Documents(ctx)
		if err != nil {
			return err
		}
		for _, n := range list {
			fmt.Fprintln(c.cmd.OutOrStdout(), n)
		}
		return nil
	}

	var entries []Entry
	for _, a := range args[1:] {
		r, err := ParseAddress(a, c.unit, c.sheet)
		if err != nil {
			return err
		}
		var v value.Value
		switch x := r.(type) {
		case reference.CellRef:
			v, err = client.Value(ctx, args[0], x.Unit, x.Sheet, x.A1())
		case reference.FormulaRef:
			v, err = client.FormulaValue(ctx, args[0], x.Unit, x.Sheet, x.FormulaId)
		}
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Address: r.Address(), Value: v})
	}
	return Output(c.cmd.OutOrStdout(), c.output, entries)
}
