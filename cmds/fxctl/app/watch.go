package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mandelsoft/fxengine/pkg/events"
	"github.com/mandelsoft/fxengine/pkg/watch"
)

type Watch struct {
	cmd *cobra.Command

	mainopts *Options
	unit     string
	subs     []string
	current  bool
}

func NewWatch(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <document> <options>",
		Short: "watch change events of a served document",
		Long: `
Print the change events of a served document until the command
is interrupted or the server closes the connection.
`,
		Args: cobra.ExactArgs(1),
	}
	TweakCommand(cmd)

	c := &Watch{
		cmd:      cmd,
		mainopts: opts,
	}
	c.cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(cmd.Context(), args) }
	flags := cmd.Flags()
	flags.StringVarP(&c.unit, "unit", "u", "", "unit to watch (default all)")
	flags.StringSliceVarP(&c.subs, "sub", "", nil, "sub components to watch (default all)")
	flags.BoolVarP(&c.current, "current", "c", false, "start with current state")
	return cmd
}

func (c *Watch) Run(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	url, err := c.mainopts.GetWatchURL()
	if err != nil {
		return err
	}
	client := watch.NewClient[watch.Request, events.ChangeEvent](url)
	req := watch.Request{
		Document: args[0],
		Unit:     c.unit,
		Subs:     c.subs,
		Current:  c.current,
	}

	out := c.cmd.OutOrStdout()
	done, err := client.Register(ctx, req, events.HandlerFunc(func(e events.ChangeEvent) {
		fmt.Fprintln(out, e)
	}))
	if err != nil {
		return err
	}
	log.Debug("watching {{document}}", "document", args[0])
	return done.Wait()
}
