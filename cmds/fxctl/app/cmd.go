package app

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mandelsoft/logging"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/spf13/cobra"

	"github.com/mandelsoft/fxengine/pkg/snapshot"
	"github.com/mandelsoft/fxengine/pkg/utils"
)

type Options struct {
	server    string
	snapshots string
	workers   int
	level     string
	fs        vfs.FileSystem
}

func (o *Options) GetURL() string {
	a := o.server
	if !strings.HasPrefix(a, "http://") && !strings.HasPrefix(a, "https://") {
		a = "http://" + a
	}
	return strings.TrimSuffix(a, "/")
}

func (o *Options) GetAPIURL() string {
	return o.GetURL() + "/api/"
}

func (o *Options) GetWatchURL() (string, error) {
	u, err := url.Parse(o.GetURL())
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/watch", scheme, u.Host), nil
}

// GetStore returns the configured snapshot store, or nil.
func (o *Options) GetStore() (*snapshot.Store, error) {
	if o.snapshots == "" {
		return nil, nil
	}
	return snapshot.NewStore(o.snapshots, o.fs)
}

func (o *Options) setupLogging() error {
	l, err := logging.ParseLevel(o.level)
	if err != nil {
		return fmt.Errorf("invalid log level %q", o.level)
	}
	logging.DefaultContext().AddRule(logging.NewConditionRule(l, logging.NewRealmPrefix("fxengine")))
	return nil
}

func New(fss ...vfs.FileSystem) *cobra.Command {
	opts := &Options{
		fs:      utils.OptionalDefaulted(vfs.FileSystem(osfs.OsFs), fss...),
		level:   "warn",
		workers: 1,
	}

	cfg := GetConfig(opts.fs)
	opts.server = *cfg.Server
	if cfg.Snapshots != nil {
		opts.snapshots = *cfg.Snapshots
	}
	if cfg.Workers != nil {
		opts.workers = *cfg.Workers
	}
	if cfg.LogLevel != nil {
		opts.level = *cfg.LogLevel
	}

	maincmd := &cobra.Command{
		Use:   "fxctl <options> <cmd> <args>",
		Short: "evaluate and serve formula workbooks",
		Long: `
This command evaluates workbook files with the formula engine,
serves them for remote access and watches their changes.
`,
		TraverseChildren: true,
		SilenceUsage:     true,
		SilenceErrors:    true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setupLogging()
		},
	}

	flags := maincmd.PersistentFlags()
	flags.StringVarP(&opts.server, "server", "s", opts.server, "formula engine server")
	flags.StringVarP(&opts.snapshots, "snapshots", "S", opts.snapshots, "snapshot directory")
	flags.IntVarP(&opts.workers, "workers", "w", opts.workers, "number of evaluation workers")
	flags.StringVarP(&opts.level, "log-level", "L", opts.level, "log level")

	maincmd.AddCommand(NewEval(opts))
	maincmd.AddCommand(NewServe(opts))
	maincmd.AddCommand(NewGet(opts))
	maincmd.AddCommand(NewSet(opts))
	maincmd.AddCommand(NewWatch(opts))
	maincmd.AddCommand(NewSnapshots(opts))
	return maincmd
}
