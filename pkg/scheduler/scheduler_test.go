package scheduler_test

import (
	"context"
	"errors"

	"github.com/mandelsoft/logging"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/fxengine/pkg/testutils"

	"github.com/mandelsoft/fxengine/pkg/expression"
	"github.com/mandelsoft/fxengine/pkg/functions"
	"github.com/mandelsoft/fxengine/pkg/graph"
	"github.com/mandelsoft/fxengine/pkg/grid"
	"github.com/mandelsoft/fxengine/pkg/reference"
	me "github.com/mandelsoft/fxengine/pkg/scheduler"
	"github.com/mandelsoft/fxengine/pkg/value"
)

func cell(a1 string) reference.CellRef {
	r, c, err := reference.ParseCell(a1)
	ExpectWithOffset(1, err).To(Succeed())
	return reference.NewCellRef("doc", "S1", r, c)
}

func id(a1 string) graph.NodeId {
	return graph.CellId(cell(a1))
}

var fx1 = graph.OtherId("doc", "S1", "fx1")

var _ = Describe("scheduler", func() {
	var wb *grid.Workbook
	var g *graph.Graph
	var registry *functions.Registry
	var sched *me.Scheduler
	ctx := context.Background()

	compile := func(n graph.NodeId, src string) (*expression.Formula, functions.Program) {
		f := Must(expression.Parse(src, n.Unit, n.Sub))
		return f, Must(registry.Compile(f.Root))
	}

	formula := func(a1, src string) {
		MustBeSuccessful(wb.SetCell(cell(a1), reference.CellRaw{Formula: src}))
		f, p := compile(id(a1), src)
		Must(g.SetNode(id(a1), f, p))
	}

	other := func(n graph.NodeId, src string) {
		f, p := compile(n, src)
		Must(g.SetNode(n, f, p))
	}

	raw := func(a1 string, v value.Value) {
		MustBeSuccessful(wb.SetCell(cell(a1), reference.CellRaw{Value: v}))
		g.MarkCellDirty(cell(a1))
	}

	run := func() *me.PassResult {
		return Must(sched.Run(ctx, g, wb.Snapshot()))
	}

	get := func(n graph.NodeId) value.Value {
		node, ok := g.Node(n)
		ExpectWithOffset(1, ok).To(BeTrue())
		return node.Value()
	}

	BeforeEach(func() {
		logging.DefaultContext().AddRule(logging.NewConditionRule(logging.DebugLevel, logging.NewRealmPrefix("fxengine")))
		wb = grid.New()
		wb.AddSheet("doc", "S1", 20, 10)
		g = graph.New()
		registry = functions.NewDefaultRegistry()
		sched = me.New()
	})

	It("evaluates in dependency order", func() {
		formula("C1", "=B1+1")
		formula("B1", "=A1+1")
		formula("A1", "=1")

		r := run()
		Expect(r.Evaluated).To(Equal([]graph.NodeId{id("A1"), id("B1"), id("C1")}))
		Expect(r.Levels).To(Equal(3))
		Expect(get(id("C1"))).To(Equal(value.Number(3)))
		Expect(g.HasDirty()).To(BeFalse())
		Expect(g.Check()).To(Succeed())
	})

	It("orders a level by registration sequence", func() {
		formula("B1", "=2")
		formula("A1", "=1")
		formula("C1", "=A1+B1")

		r := run()
		Expect(r.Evaluated).To(Equal([]graph.NodeId{id("B1"), id("A1"), id("C1")}))
		Expect(r.Levels).To(Equal(2))
	})

	It("is idempotent", func() {
		formula("A1", "=1")
		formula("B1", "=A1*2")
		run()
		count := sched.Evaluations()

		r := run()
		Expect(r.Empty()).To(BeTrue())
		Expect(sched.Evaluations()).To(Equal(count))
	})

	It("recomputes readers of raw cells", func() {
		raw("A1", value.Number(5))
		formula("B1", "=A1*2")
		formula("C1", "=B1+1")
		formula("D1", "=7")
		run()
		Expect(get(id("C1"))).To(Equal(value.Number(11)))

		raw("A1", value.Number(6))
		r := run()
		Expect(r.Evaluated).To(Equal([]graph.NodeId{id("B1"), id("C1")}))
		Expect(r.Changed).To(Equal([]graph.NodeId{id("B1"), id("C1")}))
		Expect(get(id("C1"))).To(Equal(value.Number(13)))
	})

	It("recomputes range readers", func() {
		raw("A1", value.Number(1))
		raw("A2", value.Number(2))
		formula("B1", "=SUM(A1:A3)")
		run()
		Expect(get(id("B1"))).To(Equal(value.Number(3)))

		raw("A3", value.Number(4))
		run()
		Expect(get(id("B1"))).To(Equal(value.Number(7)))
	})

	It("suppresses unchanged values", func() {
		raw("A1", value.Number(5))
		formula("B1", "=IF(A1>0,1,0)")
		formula("C1", "=B1*10")
		run()
		count := sched.Evaluations()

		raw("A1", value.Number(6))
		r := run()
		Expect(r.Evaluated).To(Equal([]graph.NodeId{id("B1")}))
		Expect(r.Skipped).To(Equal([]graph.NodeId{id("C1")}))
		Expect(r.Changed).To(BeEmpty())
		Expect(sched.Evaluations()).To(Equal(count + 1))
		Expect(g.HasDirty()).To(BeFalse())
	})

	It("detects cycles", func() {
		formula("A1", "=B1")
		formula("B1", "=A1")
		formula("C1", "=A1+1")
		formula("D1", "=D1")
		formula("E1", "=1")

		r := run()
		Expect(r.Cycles).To(ConsistOf(id("A1"), id("B1"), id("D1")))
		Expect(r.Evaluated).To(Equal([]graph.NodeId{id("C1"), id("E1")}))
		Expect(get(id("A1"))).To(Equal(value.ErrorCycle))
		Expect(get(id("D1"))).To(Equal(value.ErrorCycle))
		Expect(get(id("C1"))).To(Equal(value.ErrorCycle))
		Expect(get(id("E1"))).To(Equal(value.Number(1)))

		n, _ := g.Node(id("A1"))
		Expect(n.State()).To(Equal(graph.Clean))
		n, _ = g.Node(id("C1"))
		Expect(n.State()).To(Equal(graph.Error))
		Expect(g.HasDirty()).To(BeFalse())
	})

	It("resolves a broken cycle", func() {
		formula("A1", "=B1")
		formula("B1", "=A1")
		run()

		formula("B1", "=2")
		Must(sched.Recalculate(ctx, g, wb.Snapshot()))
		Expect(get(id("A1"))).To(Equal(value.Number(2)))
	})

	It("evaluates other formulas", func() {
		raw("A1", value.Number(4))
		other(fx1, "=A1*2")
		formula("B1", "=@fx1+1")
		run()
		Expect(get(fx1)).To(Equal(value.Number(8)))
		Expect(get(id("B1"))).To(Equal(value.Number(9)))
	})

	It("evaluates levels in parallel", func() {
		sched = me.New(me.WithWorkers(4))
		for _, a1 := range []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8"} {
			formula(a1, "=1+1")
		}
		formula("B1", "=SUM(A1:A8)")

		r := run()
		Expect(r.Levels).To(Equal(2))
		Expect(r.Evaluated).To(HaveLen(9))
		Expect(r.Evaluated[8]).To(Equal(id("B1")))
		Expect(get(id("B1"))).To(Equal(value.Number(16)))
		Expect(sched.Workers()).To(Equal(4))
	})

	It("aborts on cancellation", func() {
		formula("A1", "=1")
		formula("B1", "=A1")
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		r, err := sched.Run(cctx, g, wb.Snapshot())
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(r.Aborted).To(BeTrue())
		Expect(sched.Evaluations()).To(Equal(int64(0)))
		Expect(graph.Ids(g.Dirty())).To(Equal([]graph.NodeId{id("A1"), id("B1")}))
	})

	It("keeps committed changes across an aborted pass", func() {
		raw("A1", value.Number(5))
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		f, p := compile(id("B1"), "=A1*2")
		Must(g.AddNode(id("B1"), f, functions.ProgramFunc(func(c *functions.Context) value.Value {
			if get(id("C1")) != nil {
				cancel()
			}
			return p.Eval(c)
		})))
		formula("C1", "=B1+1")
		run()
		Expect(get(id("C1"))).To(Equal(value.Number(11)))

		raw("A1", value.Number(6))
		r, err := sched.Run(cctx, g, wb.Snapshot())
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(r.Aborted).To(BeTrue())
		Expect(get(id("B1"))).To(Equal(value.Number(12)))
		Expect(graph.Ids(g.Dirty())).To(Equal([]graph.NodeId{id("C1")}))

		Must(sched.Recalculate(ctx, g, wb.Snapshot()))
		Expect(get(id("C1"))).To(Equal(value.Number(13)))
		Expect(g.HasDirty()).To(BeFalse())
	})

	It("keeps committed changes across a failed pass", func() {
		raw("A1", value.Number(5))
		formula("B1", "=A1*2")
		fail := false
		f, p := compile(id("C1"), "=B1+1")
		Must(g.AddNode(id("C1"), f, p))
		f, p = compile(id("D1"), "=B1+C1")
		Must(g.AddNode(id("D1"), f, functions.ProgramFunc(func(c *functions.Context) value.Value {
			if fail {
				panic("boom")
			}
			return p.Eval(c)
		})))
		run()
		Expect(get(id("D1"))).To(Equal(value.Number(21)))

		fail = true
		raw("A1", value.Number(6))
		_, err := sched.Run(ctx, g, wb.Snapshot())
		Expect(errors.Is(err, me.ErrEvaluation)).To(BeTrue())
		Expect(get(id("C1"))).To(Equal(value.Number(13)))

		fail = false
		Must(sched.Recalculate(ctx, g, wb.Snapshot()))
		Expect(get(id("D1"))).To(Equal(value.Number(25)))
	})

	It("reports corruption", func() {
		formula("A1", "=1")
		MustBeSuccessful(g.Link(id("A1"), id("Z9")))

		_, err := sched.Run(ctx, g, wb.Snapshot())
		Expect(errors.Is(err, graph.ErrCorrupted)).To(BeTrue())
	})

	It("converts panics into faults", func() {
		f := Must(expression.Parse("=1", "doc", "S1"))
		Must(g.AddNode(id("A1"), f, functions.ProgramFunc(func(*functions.Context) value.Value {
			panic("boom")
		})))

		_, err := sched.Run(ctx, g, wb.Snapshot())
		Expect(errors.Is(err, me.ErrEvaluation)).To(BeTrue())
		n, _ := g.Node(id("A1"))
		Expect(n.State()).To(Equal(graph.Dirty))
	})
})
