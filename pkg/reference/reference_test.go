package reference_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/fxengine/pkg/testutils"

	"github.com/mandelsoft/fxengine/pkg/grid"
	me "github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/value"
)

type overlay struct {
	cells    map[me.CellRef]value.Value
	formulas map[me.FormulaRef]value.Value
}

func (o *overlay) CellValue(c me.CellRef) (value.Value, bool) {
	v, ok := o.cells[c]
	return v, ok
}

func (o *overlay) FormulaValue(r me.FormulaRef) (value.Value, bool) {
	v, ok := o.formulas[r]
	return v, ok
}

var _ = Describe("references", func() {
	Context("A1 notation", func() {
		It("converts columns", func() {
			Expect(me.ColumnName(0)).To(Equal("A"))
			Expect(me.ColumnName(25)).To(Equal("Z"))
			Expect(me.ColumnName(26)).To(Equal("AA"))
			Expect(me.ColumnName(701)).To(Equal("ZZ"))
			Expect(me.ColumnName(702)).To(Equal("AAA"))
			for _, c := range []int{0, 1, 25, 26, 27, 701, 702, 16383} {
				i, ok := me.ColumnIndex(me.ColumnName(c))
				Expect(ok).To(BeTrue())
				Expect(i).To(Equal(c))
			}
			_, ok := me.ColumnIndex("A1")
			Expect(ok).To(BeFalse())
		})

		It("parses cells", func() {
			row, col, err := me.ParseCell("B3")
			Expect(err).To(Succeed())
			Expect(row).To(Equal(2))
			Expect(col).To(Equal(1))
			row, col, err = me.ParseCell("$c$10")
			Expect(err).To(Succeed())
			Expect(row).To(Equal(9))
			Expect(col).To(Equal(2))
		})

		It("rejects invalid cells", func() {
			for _, s := range []string{"", "A", "1", "A0", "A-1", "A+1", "1A"} {
				_, _, err := me.ParseCell(s)
				Expect(err).To(HaveOccurred(), s)
			}
		})

		It("parses qualified addresses", func() {
			Expect(me.ParseA1("B3", "doc", "S1")).To(Equal(me.NewCellRef("doc", "S1", 2, 1)))
			Expect(me.ParseA1("Sheet2!B3", "doc", "S1")).To(Equal(me.NewCellRef("doc", "Sheet2", 2, 1)))
			Expect(me.ParseA1("[other]'my sheet'!B3", "doc", "S1")).To(Equal(me.NewCellRef("other", "my sheet", 2, 1)))
			Expect(me.ParseA1("B3:A1", "doc", "S1")).To(Equal(me.NewRangeRef("doc", "S1", 0, 0, 2, 1)))
			Expect(me.ParseA1("@fx1", "doc", "S1")).To(Equal(me.FormulaRef{Unit: "doc", Sheet: "S1", FormulaId: "fx1"}))
		})

		It("formats addresses", func() {
			c := me.NewCellRef("doc", "my sheet", 2, 1)
			Expect(c.Address()).To(Equal("[doc]'my sheet'!B3"))
			Expect(c.Format("doc", "my sheet")).To(Equal("B3"))
			Expect(c.Format("doc", "S1")).To(Equal("'my sheet'!B3"))
			Expect(c.Format("x", "my sheet")).To(Equal("[doc]'my sheet'!B3"))
			Expect(me.NewRangeRef("doc", "S1", 0, 0, 1, 1).Format("doc", "S1")).To(Equal("A1:B2"))
			Expect(me.QuoteSheet("it's")).To(Equal("'it''s'"))
			Expect(me.UnquoteSheet("'it''s'")).To(Equal("it's"))
		})
	})

	Context("ranges", func() {
		r := me.NewRangeRef("doc", "S1", 1, 1, 3, 2)

		It("contains cells", func() {
			Expect(me.Contains(r, me.NewCellRef("doc", "S1", 1, 1))).To(BeTrue())
			Expect(me.Contains(r, me.NewCellRef("doc", "S1", 3, 2))).To(BeTrue())
			Expect(me.Contains(r, me.NewCellRef("doc", "S1", 4, 2))).To(BeFalse())
			Expect(me.Contains(r, me.NewCellRef("doc", "S2", 1, 1))).To(BeFalse())
		})

		It("overlaps", func() {
			Expect(me.Overlaps(r, me.NewRangeRef("doc", "S1", 3, 2, 5, 5))).To(BeTrue())
			Expect(me.Overlaps(r, me.NewRangeRef("doc", "S1", 4, 0, 5, 5))).To(BeFalse())
		})
	})

	Context("resolver", func() {
		var wb *grid.Workbook
		var values *overlay

		BeforeEach(func() {
			wb = grid.New()
			wb.AddSheet("doc", "S1", 10, 5)
			MustBeSuccessful(wb.SetCell(me.NewCellRef("doc", "S1", 0, 0), me.CellRaw{Value: value.Number(5)}))
			MustBeSuccessful(wb.SetCell(me.NewCellRef("doc", "S1", 1, 0), me.CellRaw{Formula: "=A1*2", Value: value.Number(1)}))
			values = &overlay{
				cells:    map[me.CellRef]value.Value{},
				formulas: map[me.FormulaRef]value.Value{},
			}
		})

		It("reads cells", func() {
			r := me.NewResolver(wb.Snapshot(), values)
			Expect(r.Resolve(me.NewCellRef("doc", "S1", 0, 0))).To(Equal(value.Number(5)))
			Expect(r.Resolve(me.NewCellRef("doc", "S1", 4, 4))).To(Equal(value.Blank{}))
			Expect(r.Resolve(value.Number(3))).To(Equal(value.Number(3)))
		})

		It("prefers current formula results", func() {
			r := me.NewResolver(wb.Snapshot(), values)
			Expect(r.Resolve(me.NewCellRef("doc", "S1", 1, 0))).To(Equal(value.Number(1)))
			values.cells[me.NewCellRef("doc", "S1", 1, 0)] = value.Number(10)
			Expect(r.Resolve(me.NewCellRef("doc", "S1", 1, 0))).To(Equal(value.Number(10)))
		})

		It("reads ranges", func() {
			values.cells[me.NewCellRef("doc", "S1", 1, 0)] = value.Number(10)
			r := me.NewResolver(wb.Snapshot(), values)
			v := r.Resolve(me.NewRangeRef("doc", "S1", 0, 0, 2, 0))
			Expect(v.String()).To(Equal("{5;10;}"))
			Expect(r.Resolve(me.NewRangeRef("doc", "S1", 0, 0, 0, 0))).To(Equal(value.Number(5)))
		})

		It("reports invalid references", func() {
			r := me.NewResolver(wb.Snapshot(), values)
			Expect(r.Resolve(me.NewCellRef("doc", "S2", 0, 0))).To(Equal(value.ErrorRef))
			Expect(r.Resolve(me.NewCellRef("none", "S1", 0, 0))).To(Equal(value.ErrorRef))
			Expect(r.Resolve(me.NewCellRef("doc", "S1", 10, 0))).To(Equal(value.ErrorRef))
			Expect(r.Resolve(me.NewRangeRef("doc", "S1", 0, 0, 0, 5))).To(Equal(value.ErrorRef))
			Expect(r.Resolve(me.FormulaRef{Unit: "doc", Sheet: "S1", FormulaId: "fx"})).To(Equal(value.ErrorRef))
		})

		It("reads formula results", func() {
			ref := me.FormulaRef{Unit: "doc", Sheet: "S1", FormulaId: "fx"}
			values.formulas[ref] = value.Text("x")
			r := me.NewResolver(wb.Snapshot(), values)
			Expect(r.Resolve(ref)).To(Equal(value.Text("x")))
			values.formulas[ref] = nil
			Expect(r.Resolve(ref)).To(Equal(value.Blank{}))
		})

		It("does not see later modifications", func() {
			r := me.NewResolver(wb.Snapshot(), values)
			MustBeSuccessful(wb.SetCell(me.NewCellRef("doc", "S1", 0, 0), me.CellRaw{Value: value.Number(6)}))
			Expect(r.Resolve(me.NewCellRef("doc", "S1", 0, 0))).To(Equal(value.Number(5)))
			Expect(me.NewResolver(wb.Snapshot(), values).Resolve(me.NewCellRef("doc", "S1", 0, 0))).To(Equal(value.Number(6)))
		})
	})
})
