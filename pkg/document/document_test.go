package document_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/mandelsoft/logging"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/fxengine/pkg/testutils"

	me "github.com/mandelsoft/fxengine/pkg/document"
	"github.com/mandelsoft/fxengine/pkg/events"
	"github.com/mandelsoft/fxengine/pkg/functions"
	"github.com/mandelsoft/fxengine/pkg/otherformula"
	"github.com/mandelsoft/fxengine/pkg/value"
)

type recorder struct {
	lock   sync.Mutex
	events []string
}

func (r *recorder) HandleEvent(e events.ChangeEvent) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, e.String())
}

func (r *recorder) Events() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) Reset() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = nil
}

var _ = Describe("document", func() {
	var doc *me.Document

	get := func(a1 string) value.Value {
		return Must(doc.Value("doc", "S1", a1))
	}

	fx := func(id string) value.Value {
		v, ok := doc.FormulaValue(otherformula.NewSearchParam("doc", "S1", id))
		ExpectWithOffset(1, ok).To(BeTrue())
		return v
	}

	BeforeEach(func() {
		lctx := logging.DefaultContext()
		lctx.AddRule(logging.NewConditionRule(logging.DebugLevel, logging.NewRealmPrefix("fxengine")))
		doc = me.New("test", me.WithLogger(lctx))
		MustBeSuccessful(doc.AddSheet("doc", "S1", 20, 10))
	})

	It("has a session id", func() {
		Expect(doc.Name()).To(Equal("test"))
		Expect(doc.SessionId()).NotTo(BeEmpty())
		Expect(me.New("test").SessionId()).NotTo(Equal(doc.SessionId()))
	})

	It("evaluates formula chains", func() {
		MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(5)))
		MustBeSuccessful(doc.SetFormula("doc", "S1", "B1", "=A1*2"))
		MustBeSuccessful(doc.SetFormula("doc", "S1", "C1", "=B1+A1"))
		Expect(get("B1")).To(Equal(value.Number(10)))
		Expect(get("C1")).To(Equal(value.Number(15)))

		MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(1)))
		Expect(get("C1")).To(Equal(value.Number(3)))
		Expect(doc.Dirty()).To(BeFalse())
	})

	It("reads raw and missing cells", func() {
		MustBeSuccessful(doc.SetInput("doc", "S1", "A1", "hello"))
		MustBeSuccessful(doc.SetInput("doc", "S1", "A2", "12"))
		Expect(get("A1")).To(Equal(value.Text("hello")))
		Expect(get("A2")).To(Equal(value.Number(12)))
		Expect(get("A3")).To(Equal(value.Blank{}))
		Expect(Must(doc.Value("doc", "S9", "A1"))).To(Equal(value.ErrorRef))
		_, err := doc.Value("doc", "S1", "1A")
		Expect(err).To(HaveOccurred())
	})

	It("replaces formulas by values and back", func() {
		MustBeSuccessful(doc.SetInput("doc", "S1", "A1", "=2+3"))
		MustBeSuccessful(doc.SetFormula("doc", "S1", "B1", "=A1*2"))
		Expect(get("B1")).To(Equal(value.Number(10)))

		MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(1)))
		Expect(get("B1")).To(Equal(value.Number(2)))

		MustBeSuccessful(doc.SetFormula("doc", "S1", "A1", "=7"))
		Expect(get("B1")).To(Equal(value.Number(14)))

		MustBeSuccessful(doc.ClearCell("doc", "S1", "A1"))
		Expect(get("A1")).To(Equal(value.Blank{}))
		Expect(get("B1")).To(Equal(value.Number(0)))
	})

	It("rejects invalid formulas", func() {
		MustBeSuccessful(doc.SetFormula("doc", "S1", "A1", "=1"))
		Expect(doc.SetFormula("doc", "S1", "A1", "=1+")).To(HaveOccurred())
		err := doc.SetFormula("doc", "S1", "A1", "=NOSUCH(1)")
		Expect(errors.Is(err, functions.ErrUnknownFunction)).To(BeTrue())
		err = doc.SetFormula("doc", "S1", "A1", "=ABS(1,2)")
		Expect(errors.Is(err, functions.ErrArity)).To(BeTrue())
		Expect(get("A1")).To(Equal(value.Number(1)))
	})

	It("handles locations outside of the grid", func() {
		Expect(doc.SetCell("doc", "S1", "Z99", value.Number(1))).To(HaveOccurred())
		Expect(doc.SetFormula("doc", "S2", "A1", "=1")).To(HaveOccurred())
		MustBeSuccessful(doc.SetFormula("doc", "S1", "A1", "=S2!A1+1"))
		Expect(get("A1")).To(Equal(value.ErrorRef))

		MustBeSuccessful(doc.AddSheet("doc", "S2", 5, 5))
		Expect(get("A1")).To(Equal(value.Number(1)))
	})

	Context("other formulas", func() {
		It("evaluates other formulas", func() {
			MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(5)))
			MustBeSuccessful(doc.RegisterFormula("doc", "S1", "fx1", "=A1*2", "payload"))
			MustBeSuccessful(doc.SetFormula("doc", "S1", "B1", "=@fx1+1"))
			Expect(fx("fx1")).To(Equal(value.Number(10)))
			Expect(get("B1")).To(Equal(value.Number(11)))

			item, ok := doc.Formulas().Get(otherformula.NewSearchParam("doc", "S1", "fx1"))
			Expect(ok).To(BeTrue())
			Expect(item).To(Equal(otherformula.Item{Formula: "=A1*2", Payload: "payload"}))
		})

		It("links formulas registered later", func() {
			MustBeSuccessful(doc.SetFormula("doc", "S1", "B1", "=@fx1+1"))
			Expect(get("B1")).To(Equal(value.ErrorRef))
			MustBeSuccessful(doc.RegisterFormula("doc", "S1", "fx1", "=41"))
			Expect(get("B1")).To(Equal(value.Number(42)))

			MustBeSuccessful(doc.RemoveFormula("doc", "S1", "fx1"))
			Expect(get("B1")).To(Equal(value.ErrorRef))
			MustBeSuccessful(doc.RemoveFormula("doc", "S1", "fx1"))
		})

		It("rejects invalid formulas", func() {
			err := doc.RegisterFormula("doc", "S1", "fx1", "=SUM(")
			Expect(err).To(HaveOccurred())
			Expect(doc.Formulas().Has(otherformula.NewSearchParam("doc", "S1", "fx1"))).To(BeFalse())

			MustBeSuccessful(doc.RegisterFormula("doc", "S1", "fx1", "=1"))
			Expect(doc.RegisterFormula("doc", "S1", "fx1", "=FOO()")).To(HaveOccurred())
			item, _ := doc.Formulas().Get(otherformula.NewSearchParam("doc", "S1", "fx1"))
			Expect(item.Formula).To(Equal("=1"))
			Expect(fx("fx1")).To(Equal(value.Number(1)))
		})
	})

	Context("change events", func() {
		var rec *recorder

		BeforeEach(func() {
			rec = &recorder{}
		})

		It("notifies a changed formula exactly once", func() {
			MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(5)))
			MustBeSuccessful(doc.RegisterFormula("doc", "S1", "fx1", "=A1*2"))
			MustBeSuccessful(doc.RegisterFormula("doc", "S1", "fx2", "=IF(@fx1>0,1,0)"))
			doc.Subscribe(rec, false, "doc")

			MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(10)))
			Expect(rec.Events()).To(Equal([]string{"[doc]S1@fx1=20"}))
		})

		It("does not notify unchanged results", func() {
			MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(5)))
			MustBeSuccessful(doc.SetFormula("doc", "S1", "B1", "=IF(A1>0,1,0)"))
			MustBeSuccessful(doc.SetFormula("doc", "S1", "C1", "=B1*10"))
			doc.Subscribe(rec, false, "")

			MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(7)))
			Expect(rec.Events()).To(BeEmpty())
			MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(-1)))
			Expect(rec.Events()).To(Equal([]string{"[doc]S1!B1=0", "[doc]S1!C1=0"}))
		})

		It("notifies error values", func() {
			MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(1)))
			MustBeSuccessful(doc.RegisterFormula("doc", "S1", "fx1", "=1/A1"))
			doc.Subscribe(rec, false, "doc", "S1")
			MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(0)))
			Expect(rec.Events()).To(Equal([]string{"[doc]S1@fx1=#DIV/0!"}))
		})

		It("filters by sub component", func() {
			MustBeSuccessful(doc.AddSheet("doc", "S2", 5, 5))
			doc.Subscribe(rec, false, "doc", "S2")
			MustBeSuccessful(doc.SetFormula("doc", "S1", "A1", "=1"))
			MustBeSuccessful(doc.SetFormula("doc", "S2", "A1", "=S1!A1+1"))
			Expect(rec.Events()).To(Equal([]string{"[doc]S2!A1=2"}))
		})

		It("rams up with current values", func() {
			MustBeSuccessful(doc.SetFormula("doc", "S1", "A1", "=1"))
			MustBeSuccessful(doc.RegisterFormula("doc", "S1", "fx1", "=A1+1"))
			_, s := doc.Subscribe(rec, true, "doc")
			Expect(s.Wait(context.Background())).To(BeTrue())
			Expect(rec.Events()).To(Equal([]string{"[doc]S1!A1=1", "[doc]S1@fx1=2"}))
		})

		It("unsubscribes", func() {
			reg, _ := doc.Subscribe(rec, false, "")
			reg.Unregister()
			MustBeSuccessful(doc.SetFormula("doc", "S1", "A1", "=1"))
			Expect(rec.Events()).To(BeEmpty())
		})

		It("reports cycles", func() {
			doc.Subscribe(rec, false, "")
			MustBeSuccessful(doc.Batch(func(b *me.Batch) error {
				MustBeSuccessful(b.SetFormula("doc", "S1", "A1", "=B1"))
				return b.SetFormula("doc", "S1", "B1", "=A1")
			}))
			Expect(get("A1")).To(Equal(value.ErrorCycle))
			Expect(rec.Events()).To(ConsistOf("[doc]S1!A1=#CYCLE!", "[doc]S1!B1=#CYCLE!"))

			rec.Reset()
			MustBeSuccessful(doc.SetCell("doc", "S1", "B1", value.Number(3)))
			Expect(get("A1")).To(Equal(value.Number(3)))
			Expect(rec.Events()).To(Equal([]string{"[doc]S1!A1=3"}))
		})
	})

	Context("batches", func() {
		It("recalculates once", func() {
			MustBeSuccessful(doc.SetFormula("doc", "S1", "B1", "=A1+A2"))
			count := doc.Evaluations()
			MustBeSuccessful(doc.Batch(func(b *me.Batch) error {
				MustBeSuccessful(b.SetCell("doc", "S1", "A1", value.Number(1)))
				MustBeSuccessful(b.SetCell("doc", "S1", "A2", value.Number(2)))
				Expect(b.Len()).To(Equal(2))
				return nil
			}))
			Expect(doc.Evaluations()).To(Equal(count + 1))
			Expect(get("B1")).To(Equal(value.Number(3)))
		})

		It("applies nothing on failure", func() {
			err := doc.Batch(func(b *me.Batch) error {
				MustBeSuccessful(b.SetCell("doc", "S1", "A1", value.Number(1)))
				return b.SetFormula("doc", "S1", "A2", "=(")
			})
			Expect(err).To(HaveOccurred())
			Expect(get("A1")).To(Equal(value.Blank{}))
		})

		It("coalesces concurrent mutations", func() {
			MustBeSuccessful(doc.SetFormula("doc", "S1", "B1", "=SUM(A1:A10)"))
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					MustBeSuccessful(doc.SetCell("doc", "S1", fmt.Sprintf("A%d", i+1), value.Number(float64(i+1))))
				}()
			}
			wg.Wait()
			Expect(get("B1")).To(Equal(value.Number(55)))
		})
	})

	Context("structure", func() {
		BeforeEach(func() {
			MustBeSuccessful(doc.AddSheet("doc", "S2", 5, 5))
			MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(4)))
			MustBeSuccessful(doc.RegisterFormula("doc", "S1", "fx1", "=A1"))
			MustBeSuccessful(doc.SetFormula("doc", "S2", "A1", "=S1!A1*2"))
			MustBeSuccessful(doc.SetFormula("doc", "S2", "A2", "=S1!@fx1"))
			Expect(Must(doc.Value("doc", "S2", "A1"))).To(Equal(value.Number(8)))
			Expect(Must(doc.Value("doc", "S2", "A2"))).To(Equal(value.Number(4)))
		})

		It("removes sheets", func() {
			MustBeSuccessful(doc.RemoveSheet("doc", "S1"))
			Expect(Must(doc.Value("doc", "S2", "A1"))).To(Equal(value.ErrorRef))
			Expect(Must(doc.Value("doc", "S2", "A2"))).To(Equal(value.ErrorRef))
			Expect(doc.Formulas().List()).To(BeEmpty())
		})

		It("removes units", func() {
			MustBeSuccessful(doc.RemoveUnit("doc"))
			Expect(Must(doc.Value("doc", "S2", "A1"))).To(Equal(value.ErrorRef))
			Expect(doc.Formulas().List()).To(BeEmpty())
		})
	})

	It("recalculates on demand", func() {
		triggered := 0
		doc = me.New("manual", me.WithAutoRecalc(false, func(*me.Document) { triggered++ }))
		MustBeSuccessful(doc.AddSheet("doc", "S1", 5, 5))
		MustBeSuccessful(doc.SetFormula("doc", "S1", "A1", "=1+1"))
		Expect(triggered).To(Equal(1))
		Expect(doc.Dirty()).To(BeTrue())
		Expect(get("A1")).To(Equal(value.Blank{}))

		MustBeSuccessful(doc.Recalculate(context.Background()))
		Expect(get("A1")).To(Equal(value.Number(2)))
		Expect(doc.Dirty()).To(BeFalse())
	})

	It("evaluates with parallel workers", func() {
		doc = me.New("parallel", me.WithWorkers(4))
		MustBeSuccessful(doc.Batch(func(b *me.Batch) error {
			MustBeSuccessful(b.AddSheet("doc", "S1", 30, 5))
			for i := 1; i <= 20; i++ {
				MustBeSuccessful(b.SetFormula("doc", "S1", fmt.Sprintf("A%d", i), fmt.Sprintf("=%d*2", i)))
			}
			return b.SetFormula("doc", "S1", "B1", "=SUM(A1:A20)")
		}))
		Expect(get("B1")).To(Equal(value.Number(420)))
	})

	It("loads workbook files", func() {
		fs := memoryfs.New()
		MustBeSuccessful(vfs.WriteFile(fs, "/wb.yaml", []byte(`
units:
  doc:
    sheets:
      S1:
        rows: 10
        cols: 5
        cells:
          A1: ${FX_DOC_VALUE}
          A2: "=A1*2"
          A3: text
        formulas:
          total: "=A1+A2"
`), os.ModePerm))
		os.Setenv("FX_DOC_VALUE", "21")
		defer os.Unsetenv("FX_DOC_VALUE")

		doc = me.New("loaded")
		MustBeSuccessful(doc.LoadFile("/wb.yaml", fs))
		Expect(get("A2")).To(Equal(value.Number(42)))
		Expect(get("A3")).To(Equal(value.Text("text")))
		Expect(fx("total")).To(Equal(value.Number(63)))
	})

	It("is disposed", func() {
		MustBeSuccessful(doc.RegisterFormula("doc", "S1", "fx1", "=1"))
		doc.Dispose()
		Expect(errors.Is(doc.SetCell("doc", "S1", "A1", value.Number(1)), me.ErrDisposed)).To(BeTrue())
		Expect(doc.Formulas().List()).To(BeEmpty())
		_, ok := doc.FormulaValue(otherformula.NewSearchParam("doc", "S1", "fx1"))
		Expect(ok).To(BeFalse())
	})
})
