package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mandelsoft/logging"
	"github.com/spf13/cobra"

	"github.com/mandelsoft/fxengine/pkg/api"
	"github.com/mandelsoft/fxengine/pkg/document"
	"github.com/mandelsoft/fxengine/pkg/healthz"
	"github.com/mandelsoft/fxengine/pkg/pool"
	"github.com/mandelsoft/fxengine/pkg/server"
	"github.com/mandelsoft/fxengine/pkg/service"
	"github.com/mandelsoft/fxengine/pkg/watch"
)

type Serve struct {
	cmd *cobra.Command

	mainopts *Options
	port     int
	poolsize int
	period   time.Duration
}

func NewServe(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve {<workbook>} <options>",
		Short: "serve workbook files",
		Long: `
Load workbook files and serve them. Every file provides a document
named like the file without extension. The server provides

  /api/       access to cells and formulas of the documents
  /watch      websocket feed for change events
  /healthz    health of the recalculation pool
  /snapshots/ stored snapshots (if a snapshot directory is configured)

Mutations are recalculated in the background. On shutdown the snapshots
of all documents are saved.
`,
	}
	TweakCommand(cmd)

	c := &Serve{
		cmd:      cmd,
		mainopts: opts,
	}
	c.cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(cmd.Context(), args) }
	flags := cmd.Flags()
	flags.IntVarP(&c.port, "port", "p", 8080, "server port")
	flags.IntVarP(&c.poolsize, "pool-size", "", 2, "number of recalculation workers")
	flags.DurationVarP(&c.period, "period", "", 0, "periodic recalculation")
	return cmd
}

func (c *Serve) Run(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := c.mainopts.GetStore()
	if err != nil {
		return err
	}

	ws := document.NewWorkspace()
	p := pool.New(logging.DefaultContext(), "recalculation", c.poolsize, c.period, pool.RecalculationAction(ws))
	for _, path := range args {
		doc, err := LoadDocument(ctx, c.mainopts, path, document.WithAutoRecalc(false, pool.Trigger(p)))
		if err != nil {
			return err
		}
		if err := ws.Add(doc); err != nil {
			return err
		}
	}

	srv := server.NewServer(c.port)
	api.New(ws, store, "/api").RegisterHandler(srv)
	watcher := watch.DocumentHandler(ws)
	srv.Handle("/watch", watcher)
	srv.Handle("/healthz", healthz.Default)
	if store != nil {
		dir, err := server.NewDirectoryHandlerFor(c.mainopts.snapshots, "/snapshots", c.mainopts.fs)
		if err != nil {
			return err
		}
		dir.RegisterHandler(srv)
	}

	services := service.New(ctx)
	for _, s := range []service.Service{p, srv} {
		if err := services.Add(s); err != nil {
			return err
		}
	}
	err = services.Start()
	if err != nil {
		return err
	}
	log.Info("serving {{documents}} on port {{port}}", "documents", ws.Names(), "port", srv.Port())

	<-services.Context().Done()
	watcher.Close()
	err = services.Wait()

	for _, name := range ws.Names() {
		doc, _ := ws.GetDocument(name)
		if serr := SaveSnapshot(c.mainopts, doc); serr != nil {
			log.LogError(serr, "cannot save snapshot for {{document}}", "document", name)
		}
	}
	return err
}
