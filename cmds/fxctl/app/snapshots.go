package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mandelsoft/fxengine/pkg/graph"
	"github.com/mandelsoft/fxengine/pkg/value"
)

type Snapshots struct {
	cmd *cobra.Command

	mainopts *Options
	output   string
	delete   bool
}

func NewSnapshots(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots {<document>} <options>",
		Short: "show stored snapshots",
		Long: `
Without arguments the documents with a stored snapshot are listed.
Otherwise the stored values of the formulas of the given documents
are shown, or the snapshots are deleted with --delete.
`,
	}
	TweakCommand(cmd)

	c := &Snapshots{
		cmd:      cmd,
		mainopts: opts,
	}
	c.cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(cmd.Context(), args) }
	flags := cmd.Flags()
	flags.StringVarP(&c.output, "output", "o", "", "output format (text, json, yaml)")
	flags.BoolVarP(&c.delete, "delete", "d", false, "delete snapshots")
	return cmd
}

func (c *Snapshots) Run(ctx context.Context, args []string) error {
	store, err := c.mainopts.GetStore()
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("no snapshot directory configured")
	}

	out := c.cmd.OutOrStdout()
	if len(args) == 0 {
		list, err := store.List()
		if err != nil {
			return err
		}
		for _, n := range list {
			fmt.Fprintln(out, n)
		}
		return nil
	}

	if c.delete {
		for _, n := range args {
			if err := store.Delete(n); err != nil {
				return err
			}
			log.Info("deleted snapshot {{document}}", "document", n)
		}
		return nil
	}

	var entries []Entry
	for _, n := range args {
		snap, err := store.Load(n)
		if err != nil {
			return err
		}
		for _, ns := range snap.Nodes {
			var v value.Value = value.Blank{}
			if ns.Value != nil {
				v, err = ns.Value.Decode()
				if err != nil {
					return fmt.Errorf("snapshot %s: %s: %w", n, ns.Id, err)
				}
			}
			entries = append(entries, Entry{Address: nodeAddress(ns.Id), Value: v})
		}
	}
	return Output(out, c.output, entries)
}

func nodeAddress(id graph.NodeId) string {
	if c, ok := id.Cell(); ok {
		return c.Address()
	}
	if r, ok := id.FormulaRef(); ok {
		return r.Address()
	}
	return id.String()
}
