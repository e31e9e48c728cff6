package document_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/mandelsoft/fxengine/pkg/testutils"

	me "github.com/mandelsoft/fxengine/pkg/document"
)

var _ = Describe("workspace", func() {
	It("manages documents", func() {
		ws := me.NewWorkspace()
		a := me.New("a")
		MustBeSuccessful(ws.Add(me.New("b")))
		MustBeSuccessful(ws.Add(a))
		Expect(errors.Is(ws.Add(me.New("a")), me.ErrExists)).To(BeTrue())
		Expect(ws.Names()).To(Equal([]string{"a", "b"}))

		d, ok := ws.GetDocument("a")
		Expect(ok).To(BeTrue())
		Expect(d).To(BeIdenticalTo(a))

		Expect(ws.Remove("a")).To(BeTrue())
		Expect(ws.Remove("a")).To(BeFalse())
		Expect(ws.Names()).To(Equal([]string{"b"}))
		Expect(a.AddSheet("doc", "S1", 1, 1)).To(MatchError(me.ErrDisposed))
	})
})
