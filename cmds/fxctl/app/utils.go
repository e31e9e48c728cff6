package app

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/utils"
	"github.com/mandelsoft/fxengine/pkg/value"
)

func TweakCommand(cmd *cobra.Command) {
	cmd.SilenceUsage = true
	cmd.DisableFlagsInUseLine = true
}

// DocumentName derives the document name from a workbook file name.
func DocumentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseAddress parses a cell ([unit]Sheet!A1) or other formula
// ([unit]Sheet!@id) address.
func ParseAddress(s, unit, sheet string) (reference.Ref, error) {
	r, err := reference.ParseA1(s, unit, sheet)
	if err != nil {
		return nil, err
	}
	switch x := r.(type) {
	case reference.CellRef:
		if x.Sheet == "" {
			return nil, fmt.Errorf("sheet required for %q", s)
		}
	case reference.FormulaRef:
		if x.Sheet == "" {
			return nil, fmt.Errorf("sub component required for %q", s)
		}
	default:
		return nil, fmt.Errorf("cell or formula address required instead of %q", s)
	}
	return r, nil
}

type Entry struct {
	Address string
	Value   value.Value
}

type entry struct {
	Address string         `json:"address"`
	Value   *value.Encoded `json:"value"`
}

type Items[E any] struct {
	Items []E `json:"items"`
}

// Output writes the entries in the given format.
func Output(w io.Writer, format string, entries []Entry) error {
	switch format {
	case "", "text":
		width := len("ADDRESS")
		for _, e := range entries {
			width = max(width, len(e.Address))
		}
		fmt.Fprintf(w, "%-*s VALUE\n", width, "ADDRESS")
		for _, e := range entries {
			fmt.Fprintf(w, "%-*s %s\n", width, e.Address, e.Value)
		}
		return nil
	case "json":
		data, err := json.Marshal(&Items[entry]{encode(entries)})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case "yaml":
		data, err := yaml.Marshal(&Items[entry]{encode(entries)})
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func encode(entries []Entry) []entry {
	return utils.TransformSlice(entries, func(e Entry) entry {
		return entry{e.Address, value.Encode(e.Value)}
	})
}
