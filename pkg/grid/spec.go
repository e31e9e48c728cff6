package grid

import (
	"fmt"
	"strings"

	"github.com/drone/envsubst"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"sigs.k8s.io/yaml"

	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/utils"
	"github.com/mandelsoft/fxengine/pkg/value"
)

// Spec is the file format of a workbook.
//
//	units:
//	  doc1:
//	    sheets:
//	      Sheet1:
//	        rows: 100
//	        cols: 10
//	        cells:
//	          A1: 5
//	          A2: "=A1*2"
//	        formulas:
//	          total: "=SUM(A1:A2)"
type Spec struct {
	Units map[string]UnitSpec `json:"units,omitempty"`
}

type UnitSpec struct {
	Sheets map[string]SheetSpec `json:"sheets,omitempty"`
}

type SheetSpec struct {
	Rows  int                    `json:"rows,omitempty"`
	Cols  int                    `json:"cols,omitempty"`
	Cells map[string]interface{} `json:"cells,omitempty"`
	// Formulas are the other-formula items of the sheet.
	Formulas map[string]string `json:"formulas,omitempty"`
}

// Parse parses a workbook spec. Environment variables
// (${VAR}) are substituted before the document is parsed.
func Parse(data []byte) (*Spec, error) {
	s, err := envsubst.EvalEnv(string(data))
	if err != nil {
		return nil, err
	}
	var spec Spec
	err = yaml.Unmarshal([]byte(s), &spec)
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

func Load(path string, fss ...vfs.FileSystem) (*Spec, error) {
	fs := utils.OptionalDefaulted(vfs.FileSystem(osfs.OsFs), fss...)
	data, err := vfs.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// RawCell converts a cell spec entry into raw cell content.
// Text starting with "=" is a formula.
func RawCell(v interface{}) (reference.CellRaw, error) {
	switch x := v.(type) {
	case nil:
		return reference.CellRaw{Value: value.Blank{}}, nil
	case string:
		if strings.HasPrefix(x, "=") {
			return reference.CellRaw{Formula: x}, nil
		}
		return reference.CellRaw{Value: value.Literal(x)}, nil
	case float64:
		return reference.CellRaw{Value: value.Number(x)}, nil
	case int:
		return reference.CellRaw{Value: value.Number(x)}, nil
	case bool:
		return reference.CellRaw{Value: value.Boolean(x)}, nil
	default:
		return reference.CellRaw{}, fmt.Errorf("unsupported cell content type %T", v)
	}
}

// Apply creates the units, sheets and cells of the spec.
// Formula cells are only stored with their source, evaluating
// them is up to the caller.
func (w *Workbook) Apply(spec *Spec) error {
	for _, un := range utils.OrderedMapKeys(spec.Units) {
		u := spec.Units[un]
		w.AddUnit(un)
		for _, sn := range utils.OrderedMapKeys(u.Sheets) {
			s := u.Sheets[sn]
			w.AddSheet(un, sn, s.Rows, s.Cols)
			for _, a1 := range utils.OrderedMapKeys(s.Cells) {
				row, col, err := reference.ParseCell(a1)
				if err != nil {
					return fmt.Errorf("unit %q sheet %q: %w", un, sn, err)
				}
				raw, err := RawCell(s.Cells[a1])
				if err != nil {
					return fmt.Errorf("unit %q sheet %q cell %s: %w", un, sn, a1, err)
				}
				err = w.SetCell(reference.NewCellRef(un, sn, row, col), raw)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}
