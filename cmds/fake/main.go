package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"github.com/mandelsoft/fxengine/cmds/fake/random"
	"github.com/mandelsoft/fxengine/pkg/document"
)

func Error(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}

func main() {
	var cfg random.Config
	var seed int64
	var output string
	var eval bool
	var workers int

	flags := pflag.NewFlagSet("fake", pflag.ExitOnError)

	flags.IntVarP(&cfg.Units, "units", "u", 1, "number of units")
	flags.IntVarP(&cfg.Sheets, "sheets", "s", 2, "number of sheets per unit")
	flags.IntVarP(&cfg.Rows, "rows", "r", 100, "number of rows per sheet")
	flags.IntVarP(&cfg.Cols, "cols", "c", 10, "number of columns per sheet")
	flags.IntVarP(&cfg.Formulas, "formulas", "f", 3, "number of other formulas per sheet")
	flags.Int64VarP(&seed, "seed", "", time.Now().UnixNano(), "random seed")
	flags.StringVarP(&output, "output", "o", "", "output file (default stdout)")
	flags.BoolVarP(&eval, "eval", "e", false, "evaluate the generated workbook")
	flags.IntVarP(&workers, "workers", "w", 4, "number of evaluation workers")

	err := flags.Parse(os.Args[1:])
	if err != nil {
		Error("invalid arguments: %s", err)
	}

	log.Info("generating workbook with seed {{seed}}", "seed", seed)
	spec := random.Generate(seed, cfg)

	data, err := yaml.Marshal(spec)
	if err != nil {
		Error("cannot marshal workbook: %s", err)
	}
	if output == "" {
		os.Stdout.Write(data)
	} else {
		err = vfs.WriteFile(osfs.OsFs, output, data, 0o644)
		if err != nil {
			Error("cannot write %s: %s", output, err)
		}
	}

	if eval {
		doc := document.New("fake", document.WithWorkers(workers), document.WithAutoRecalc(false))
		start := time.Now()
		if err := doc.Load(spec); err != nil {
			Error("cannot load workbook: %s", err)
		}
		if err := doc.Recalculate(context.Background()); err != nil {
			Error("evaluation failed: %s", err)
		}
		log.Info("evaluated {{evaluations}} formulas in {{duration}}", "evaluations", doc.Evaluations(), "duration", time.Since(start).String())
	}
}
