package grid_test

import (
	"errors"
	"os"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/fxengine/pkg/testutils"

	me "github.com/mandelsoft/fxengine/pkg/grid"
	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/value"
)

const workbook = `
units:
  doc1:
    sheets:
      Sheet1:
        rows: 20
        cols: 4
        cells:
          A1: 5
          A2: "=A1*2"
          B1: "${FX_TEST_TEXT}"
          B2: true
          B3: "12"
        formulas:
          fx1: "=A2+1"
      Sheet2: {}
`

var _ = Describe("workbook", func() {
	var wb *me.Workbook
	a1 := reference.NewCellRef("doc", "S1", 0, 0)

	BeforeEach(func() {
		wb = me.New()
		wb.AddSheet("doc", "S1", 10, 5)
	})

	It("defaults bounds", func() {
		wb.AddSheet("doc", "S2", 0, 0)
		rows, cols := wb.Snapshot().Bounds("doc", "S2")
		Expect(rows).To(Equal(me.DefaultRows))
		Expect(cols).To(Equal(me.DefaultCols))
	})

	It("sets and clears cells", func() {
		MustBeSuccessful(wb.SetCell(a1, reference.CellRaw{Value: value.Number(1)}))
		raw, ok := wb.Cell(a1)
		Expect(ok).To(BeTrue())
		Expect(raw).To(Equal(reference.CellRaw{Value: value.Number(1)}))
		MustBeSuccessful(wb.ClearCell(a1))
		_, ok = wb.Cell(a1)
		Expect(ok).To(BeFalse())
	})

	It("rejects unknown locations", func() {
		err := wb.SetCell(reference.NewCellRef("doc", "S9", 0, 0), reference.CellRaw{})
		Expect(errors.Is(err, me.ErrNotFound)).To(BeTrue())
		err = wb.SetCell(reference.NewCellRef("doc", "S1", 10, 0), reference.CellRaw{})
		Expect(errors.Is(err, me.ErrOutOfBounds)).To(BeTrue())
	})

	It("keeps snapshots stable", func() {
		MustBeSuccessful(wb.SetCell(a1, reference.CellRaw{Value: value.Number(1)}))
		s1 := wb.Snapshot()
		Expect(wb.Snapshot()).To(BeIdenticalTo(s1))

		MustBeSuccessful(wb.SetCell(a1, reference.CellRaw{Value: value.Number(2)}))
		s2 := wb.Snapshot()
		Expect(s2).NotTo(BeIdenticalTo(s1))
		Expect(s2.Version()).To(BeNumerically(">", s1.Version()))

		raw, _ := s1.ReadCell("doc", "S1", 0, 0)
		Expect(raw.Value).To(Equal(value.Number(1)))
		raw, _ = s2.ReadCell("doc", "S1", 0, 0)
		Expect(raw.Value).To(Equal(value.Number(2)))
	})

	It("stores computed values of formula cells only", func() {
		MustBeSuccessful(wb.SetCell(a1, reference.CellRaw{Formula: "=1+1"}))
		wb.SetComputed(a1, "=1+1", value.Number(2))
		raw, _ := wb.Cell(a1)
		Expect(raw).To(Equal(reference.CellRaw{Formula: "=1+1", Value: value.Number(2)}))
		wb.SetComputed(a1, "=2+2", value.Number(4))
		raw, _ = wb.Cell(a1)
		Expect(raw).To(Equal(reference.CellRaw{Formula: "=1+1", Value: value.Number(2)}))
	})

	It("removes sheets and units", func() {
		Expect(wb.RemoveSheet("doc", "S1")).To(BeTrue())
		Expect(wb.RemoveSheet("doc", "S1")).To(BeFalse())
		Expect(wb.Snapshot().HasUnit("doc")).To(BeTrue())
		Expect(wb.Snapshot().HasSheet("doc", "S1")).To(BeFalse())
		Expect(wb.RemoveUnit("doc")).To(BeTrue())
		Expect(wb.Snapshot().HasUnit("doc")).To(BeFalse())
	})

	It("reads ranges", func() {
		MustBeSuccessful(wb.SetCell(reference.NewCellRef("doc", "S1", 1, 1), reference.CellRaw{Value: value.Text("x")}))
		cells := Must(wb.Snapshot().ReadRange("doc", "S1", reference.NewRangeRef("doc", "S1", 0, 0, 1, 1)))
		Expect(cells).To(Equal([][]reference.CellRaw{{{}, {}}, {{}, {Value: value.Text("x")}}}))
		_, err := wb.Snapshot().ReadRange("doc", "S1", reference.NewRangeRef("doc", "S1", 0, 0, 10, 1))
		Expect(errors.Is(err, me.ErrOutOfBounds)).To(BeTrue())
	})

	Context("spec", func() {
		BeforeEach(func() {
			os.Setenv("FX_TEST_TEXT", "hello")
		})
		AfterEach(func() {
			os.Unsetenv("FX_TEST_TEXT")
		})

		It("loads a workbook file", func() {
			fs := memoryfs.New()
			MustBeSuccessful(vfs.WriteFile(fs, "/wb.yaml", []byte(workbook), 0o600))
			spec := Must(me.Load("/wb.yaml", fs))
			Expect(spec.Units["doc1"].Sheets["Sheet1"].Formulas).To(Equal(map[string]string{"fx1": "=A2+1"}))

			wb := me.New()
			MustBeSuccessful(wb.Apply(spec))
			s := wb.Snapshot()
			Expect(s.Units()).To(Equal([]string{"doc1"}))
			Expect(s.Sheets("doc1")).To(Equal([]string{"Sheet1", "Sheet2"}))
			Expect(s.Cells("doc1", "Sheet1")).To(Equal([]me.Cell{
				{reference.NewCellRef("doc1", "Sheet1", 0, 0), reference.CellRaw{Value: value.Number(5)}},
				{reference.NewCellRef("doc1", "Sheet1", 0, 1), reference.CellRaw{Value: value.Text("hello")}},
				{reference.NewCellRef("doc1", "Sheet1", 1, 0), reference.CellRaw{Formula: "=A1*2"}},
				{reference.NewCellRef("doc1", "Sheet1", 1, 1), reference.CellRaw{Value: value.Boolean(true)}},
				{reference.NewCellRef("doc1", "Sheet1", 2, 1), reference.CellRaw{Value: value.Number(12)}},
			}))
		})

		It("rejects invalid cell names", func() {
			spec := Must(me.Parse([]byte("units: {doc: {sheets: {S: {cells: {A0: 1}}}}}")))
			Expect(me.New().Apply(spec)).NotTo(Succeed())
		})
	})
})
