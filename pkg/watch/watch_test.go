package watch_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/fxengine/pkg/testutils"

	"github.com/mandelsoft/fxengine/pkg/ctxutil"
	"github.com/mandelsoft/fxengine/pkg/document"
	"github.com/mandelsoft/fxengine/pkg/events"
	"github.com/mandelsoft/fxengine/pkg/value"
	me "github.com/mandelsoft/fxengine/pkg/watch"
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

var _ = Describe("watch", func() {
	var ctx context.Context
	var doc *document.Document
	var handler *me.RequestHandler[me.Request, events.ChangeEvent]
	var srv *httptest.Server
	var client *me.Client[me.Request, events.ChangeEvent]

	BeforeEach(func() {
		ctx = ctxutil.CancelContext(context.Background())
		ws := document.NewWorkspace()
		doc = document.New("book")
		MustBeSuccessful(ws.Add(doc))
		MustBeSuccessful(doc.AddSheet("doc", "S1", 10, 5))
		MustBeSuccessful(doc.AddSheet("doc", "S2", 10, 5))
		MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(1)))
		MustBeSuccessful(doc.SetFormula("doc", "S1", "B1", "=A1+1"))
		MustBeSuccessful(doc.SetFormula("doc", "S2", "B1", "=S1!A1*10"))

		handler = me.DocumentHandler(ws)
		srv = httptest.NewServer(handler)
		client = me.NewClient[me.Request, events.ChangeEvent]("ws" + strings.TrimPrefix(srv.URL, "http"))
	})

	AfterEach(func() {
		ctxutil.Cancel(ctx)
		handler.Close()
		srv.Close()
	})

	It("streams change events", func() {
		r := &recorder{}
		done := Must(client.Register(ctx, me.Request{Document: "book", Unit: "doc", Subs: []string{"S1"}}, r))
		Eventually(handler.Len).Should(Equal(1))

		MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(5)))
		Eventually(r.Events).Should(Equal([]string{"[doc]S1!B1=6"}))

		ctxutil.Cancel(ctx)
		MustBeSuccessful(done.Wait())
		Eventually(handler.Len).Should(Equal(0))
	})

	It("delivers the current state", func() {
		r := &recorder{}
		Must(client.Register(ctx, me.Request{Document: "book", Current: true}, r))
		Eventually(r.Events).Should(ConsistOf("[doc]S1!B1=2", "[doc]S2!B1=10"))
	})

	It("rejects unknown documents", func() {
		r := &recorder{}
		done := Must(client.Register(ctx, me.Request{Document: "other"}, r))
		Expect(done.Wait()).To(MatchError(ContainSubstring("unknown document")))
		Expect(r.Events()).To(BeEmpty())
	})

	It("closes connections", func() {
		r := &recorder{}
		done := Must(client.Register(ctx, me.Request{Document: "book"}, r))
		Eventually(handler.Len).Should(Equal(1))

		MustBeSuccessful(handler.Close())
		MustBeSuccessful(done.Wait())
		Expect(handler.Len()).To(Equal(0))

		MustBeSuccessful(doc.SetCell("doc", "S1", "A1", value.Number(5)))
		Expect(r.Events()).To(BeEmpty())
	})
})
