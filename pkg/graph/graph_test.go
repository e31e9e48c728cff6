package graph_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/fxengine/pkg/testutils"

	"github.com/mandelsoft/fxengine/pkg/expression"
	me "github.com/mandelsoft/fxengine/pkg/graph"
	"github.com/mandelsoft/fxengine/pkg/reference"
	"github.com/mandelsoft/fxengine/pkg/value"
)

func cell(a1 string) reference.CellRef {
	r, c, err := reference.ParseCell(a1)
	ExpectWithOffset(1, err).To(Succeed())
	return reference.NewCellRef("doc", "S1", r, c)
}

func cellId(a1 string) me.NodeId {
	return me.CellId(cell(a1))
}

var _ = Describe("dependency graph", func() {
	var g *me.Graph

	add := func(id me.NodeId, src string) *me.Node {
		f := Must(expression.Parse(src, id.Unit, id.Sub))
		return Must(g.AddNode(id, f, nil))
	}

	node := func(id me.NodeId) *me.Node {
		n, ok := g.Node(id)
		ExpectWithOffset(1, ok).To(BeTrue())
		return n
	}

	clean := func() {
		for _, n := range g.Nodes() {
			g.Commit(n.Id(), value.Number(0))
		}
		ExpectWithOffset(1, g.HasDirty()).To(BeFalse())
	}

	BeforeEach(func() {
		g = me.New()
	})

	It("formats node ids", func() {
		Expect(cellId("B3").String()).To(Equal("cell:doc/S1/B3"))
		Expect(me.OtherId("doc", "S1", "fx1").String()).To(Equal("other:doc/S1/fx1"))
		c, ok := cellId("B3").Cell()
		Expect(ok).To(BeTrue())
		Expect(c).To(Equal(cell("B3")))
		_, ok = me.OtherId("doc", "S1", "fx1").Cell()
		Expect(ok).To(BeFalse())
	})

	It("links existing formula cells", func() {
		add(cellId("A1"), "=1")
		add(cellId("B1"), "=A1+1")
		Expect(node(cellId("B1")).Reads()).To(ConsistOf(cellId("A1")))
		Expect(node(cellId("A1")).ReadBy()).To(ConsistOf(cellId("B1")))
		Expect(g.Check()).To(Succeed())
	})

	It("links pending readers when the target appears", func() {
		add(cellId("B1"), "=A1+1")
		Expect(node(cellId("B1")).Reads()).To(BeEmpty())
		clean()

		add(cellId("A1"), "=1")
		Expect(node(cellId("B1")).Reads()).To(ConsistOf(cellId("A1")))
		Expect(node(cellId("B1")).State()).To(Equal(me.Dirty))
		Expect(g.Check()).To(Succeed())
	})

	It("links other formulas", func() {
		fx := me.OtherId("doc", "S1", "fx1")
		add(fx, "=B1*2")
		add(cellId("C1"), "=@fx1+1")
		add(cellId("B1"), "=3")
		Expect(node(fx).Reads()).To(ConsistOf(cellId("B1")))
		Expect(node(cellId("C1")).Reads()).To(ConsistOf(fx))
		Expect(node(fx).ReadBy()).To(ConsistOf(cellId("C1")))
		Expect(g.Check()).To(Succeed())
	})

	It("links range readers", func() {
		add(cellId("A2"), "=1")
		add(cellId("C1"), "=SUM(A1:A3)")
		add(cellId("A3"), "=2")
		add(cellId("B2"), "=3")
		Expect(node(cellId("C1")).Reads()).To(ConsistOf(cellId("A2"), cellId("A3")))
		Expect(g.CellReaders(cell("A1")).UnsortedList()).To(ConsistOf(cellId("C1")))
		Expect(g.CellReaders(cell("B1")).Len()).To(Equal(0))
	})

	It("relinks on formula update", func() {
		add(cellId("A1"), "=1")
		add(cellId("A2"), "=2")
		add(cellId("B1"), "=A1")
		f := Must(expression.Parse("=A2", "doc", "S1"))
		MustBeSuccessful(g.SetNodeFormula(cellId("B1"), f, nil))
		Expect(node(cellId("B1")).Reads()).To(ConsistOf(cellId("A2")))
		Expect(node(cellId("A1")).ReadBy()).To(BeEmpty())
		Expect(g.CellReaders(cell("A1")).Len()).To(Equal(0))
		Expect(g.Check()).To(Succeed())
	})

	It("rejects duplicates and unknown nodes", func() {
		add(cellId("A1"), "=1")
		f := Must(expression.Parse("=2", "doc", "S1"))
		_, err := g.AddNode(cellId("A1"), f, nil)
		Expect(errors.Is(err, me.ErrExists)).To(BeTrue())
		Expect(errors.Is(g.SetNodeFormula(cellId("Z9"), f, nil), me.ErrNotFound)).To(BeTrue())
	})

	It("unlinks and dirties readers on removal", func() {
		add(cellId("A1"), "=1")
		add(cellId("B1"), "=A1")
		clean()

		Expect(g.RemoveNode(cellId("A1"))).To(BeTrue())
		Expect(g.RemoveNode(cellId("A1"))).To(BeFalse())
		Expect(node(cellId("B1")).Reads()).To(BeEmpty())
		Expect(node(cellId("B1")).State()).To(Equal(me.Dirty))
		Expect(node(cellId("B1")).Forced()).To(BeTrue())
		Expect(g.Check()).To(Succeed())

		add(cellId("A1"), "=5")
		Expect(node(cellId("B1")).Reads()).To(ConsistOf(cellId("A1")))
	})

	It("marks transitive readers dirty", func() {
		add(cellId("A1"), "=1")
		add(cellId("B1"), "=A1")
		add(cellId("C1"), "=B1")
		add(cellId("D1"), "=7")
		clean()

		g.MarkDirty(cellId("A1"))
		Expect(me.Ids(g.Dirty())).To(Equal([]me.NodeId{cellId("A1"), cellId("B1"), cellId("C1")}))
		Expect(node(cellId("A1")).Forced()).To(BeTrue())
		Expect(node(cellId("B1")).Forced()).To(BeFalse())
	})

	It("handles raw cell edits", func() {
		add(cellId("B1"), "=A1")
		add(cellId("C1"), "=SUM(A1:A4)")
		add(cellId("D1"), "=C1")
		add(cellId("E1"), "=1")
		clean()

		g.MarkCellDirty(cell("A2"))
		Expect(me.Ids(g.Dirty())).To(Equal([]me.NodeId{cellId("C1"), cellId("D1")}))
		Expect(node(cellId("C1")).Forced()).To(BeTrue())
	})

	It("terminates on cycles", func() {
		add(cellId("A1"), "=B1")
		add(cellId("B1"), "=A1")
		add(cellId("C1"), "=C1")
		clean()
		g.MarkDirty(cellId("A1"), cellId("C1"))
		Expect(me.Ids(g.Dirty())).To(Equal([]me.NodeId{cellId("A1"), cellId("B1"), cellId("C1")}))
		Expect(node(cellId("C1")).ReadsNode(cellId("C1"))).To(BeTrue())
	})

	It("removes sheets", func() {
		add(cellId("A1"), "=1")
		add(me.OtherId("doc", "S1", "fx1"), "=A1")
		other := me.CellId(reference.NewCellRef("doc", "S2", 0, 0))
		f := Must(expression.Parse("=S1!A2+S1!A1", "doc", "S2"))
		Must(g.AddNode(other, f, nil))
		clean()

		removed := g.RemoveSheet("doc", "S1")
		Expect(removed).To(ConsistOf(cellId("A1"), me.OtherId("doc", "S1", "fx1")))
		Expect(g.Len()).To(Equal(1))
		Expect(node(other).State()).To(Equal(me.Dirty))
		Expect(g.Check()).To(Succeed())
	})

	It("commits values", func() {
		add(cellId("A1"), "=1")
		Expect(g.Commit(cellId("A1"), value.Number(1))).To(BeTrue())
		Expect(g.Commit(cellId("A1"), value.Number(1))).To(BeFalse())
		Expect(node(cellId("A1")).State()).To(Equal(me.Clean))
		Expect(g.Commit(cellId("A1"), value.ErrorDiv0)).To(BeTrue())
		Expect(node(cellId("A1")).State()).To(Equal(me.Error))

		v, ok := g.CellValue(cell("A1"))
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(value.ErrorDiv0))
		_, ok = g.FormulaValue(reference.FormulaRef{Unit: "doc", Sheet: "S1", FormulaId: "none"})
		Expect(ok).To(BeFalse())
	})

	It("detects corruption", func() {
		add(cellId("A1"), "=1")
		MustBeSuccessful(g.Link(cellId("A1"), cellId("Z9")))
		Expect(errors.Is(g.Check(), me.ErrCorrupted)).To(BeTrue())
	})
})
