// Package api provides HTTP access to the documents of a workspace.
//
//	GET    <prefix>                                           list documents
//	GET    <prefix><doc>/cells/<unit>/<sheet>/<cell>          cell value
//	PUT    <prefix><doc>/cells/<unit>/<sheet>/<cell>          set cell input
//	DELETE <prefix><doc>/cells/<unit>/<sheet>/<cell>          clear cell
//	GET    <prefix><doc>/formulas/<unit>/<sub>/<id>           other formula value
//	PUT    <prefix><doc>/formulas/<unit>/<sub>/<id>           register other formula
//	DELETE <prefix><doc>/formulas/<unit>/<sub>/<id>           remove other formula
//	POST   <prefix><doc>/recalculate                          synchronous recalculation
//	POST   <prefix><doc>/snapshot                             store a snapshot
//
// Mutations are answered with 202 (Accepted), the recalculation may
// take place asynchronously.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mandelsoft/fxengine/pkg/document"
	"github.com/mandelsoft/fxengine/pkg/otherformula"
	"github.com/mandelsoft/fxengine/pkg/server"
	"github.com/mandelsoft/fxengine/pkg/snapshot"
	"github.com/mandelsoft/fxengine/pkg/value"
)

type Workspace interface {
	GetDocument(name string) (*document.Document, bool)
	Names() []string
}

type DocumentAccess struct {
	workspace Workspace
	store     *snapshot.Store
	prefix    string
	mux       *http.ServeMux
}

var _ http.Handler = (*DocumentAccess)(nil)

// New provides the access handler. Without a snapshot store
// snapshot requests are rejected.
func New(ws Workspace, store *snapshot.Store, prefix string) *DocumentAccess {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	a := &DocumentAccess{
		workspace: ws,
		store:     store,
		prefix:    prefix,
		mux:       http.NewServeMux(),
	}
	cells := prefix + "{doc}/cells/{unit}/{sheet}/{cell}"
	formulas := prefix + "{doc}/formulas/{unit}/{sub}/{id}"

	a.mux.HandleFunc("GET "+prefix+"{$}", a.list)
	a.mux.HandleFunc("GET "+cells, a.document(a.getCell))
	a.mux.HandleFunc("PUT "+cells, a.document(a.setCell))
	a.mux.HandleFunc("DELETE "+cells, a.document(a.clearCell))
	a.mux.HandleFunc("GET "+formulas, a.document(a.getFormula))
	a.mux.HandleFunc("PUT "+formulas, a.document(a.setFormula))
	a.mux.HandleFunc("DELETE "+formulas, a.document(a.removeFormula))
	a.mux.HandleFunc("POST "+prefix+"{doc}/recalculate", a.document(a.recalculate))
	a.mux.HandleFunc("POST "+prefix+"{doc}/snapshot", a.document(a.snapshot))
	return a
}

func (a *DocumentAccess) RegisterHandler(srv *server.Server) {
	srv.Handle(a.prefix, a)
}

func (a *DocumentAccess) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	log.Debug("{{method}} {{url}}", "method", req.Method, "url", req.URL.String())
	a.mux.ServeHTTP(w, req)
}

type handler func(w http.ResponseWriter, req *http.Request, doc *document.Document)

func (a *DocumentAccess) document(h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		name := req.PathValue("doc")
		doc, ok := a.workspace.GetDocument(name)
		if !ok {
			respondError(w, http.StatusNotFound, "document %q not found", name)
			return
		}
		h(w, req, doc)
	}
}

func (a *DocumentAccess) list(w http.ResponseWriter, req *http.Request) {
	respond(w, http.StatusOK, &Items{Items: a.workspace.Names()})
}

func (a *DocumentAccess) getCell(w http.ResponseWriter, req *http.Request, doc *document.Document) {
	v, err := doc.Value(req.PathValue("unit"), req.PathValue("sheet"), req.PathValue("cell"))
	if err != nil {
		respondMutationError(w, err)
		return
	}
	respond(w, http.StatusOK, &Value{value.Encode(v)})
}

func (a *DocumentAccess) setCell(w http.ResponseWriter, req *http.Request, doc *document.Document) {
	var in Input
	if !decode(w, req, &in) {
		return
	}
	err := doc.SetInput(req.PathValue("unit"), req.PathValue("sheet"), req.PathValue("cell"), in.Input)
	if err != nil {
		respondMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *DocumentAccess) clearCell(w http.ResponseWriter, req *http.Request, doc *document.Document) {
	err := doc.ClearCell(req.PathValue("unit"), req.PathValue("sheet"), req.PathValue("cell"))
	if err != nil {
		respondMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *DocumentAccess) getFormula(w http.ResponseWriter, req *http.Request, doc *document.Document) {
	p := otherformula.NewSearchParam(req.PathValue("unit"), req.PathValue("sub"), req.PathValue("id"))
	v, ok := doc.FormulaValue(p)
	if !ok {
		respondError(w, http.StatusNotFound, "formula %s not found", p)
		return
	}
	respond(w, http.StatusOK, &Value{value.Encode(v)})
}

func (a *DocumentAccess) setFormula(w http.ResponseWriter, req *http.Request, doc *document.Document) {
	var src Source
	if !decode(w, req, &src) {
		return
	}
	err := doc.RegisterFormula(req.PathValue("unit"), req.PathValue("sub"), req.PathValue("id"), src.Source)
	if err != nil {
		respondMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *DocumentAccess) removeFormula(w http.ResponseWriter, req *http.Request, doc *document.Document) {
	err := doc.RemoveFormula(req.PathValue("unit"), req.PathValue("sub"), req.PathValue("id"))
	if err != nil {
		respondMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *DocumentAccess) recalculate(w http.ResponseWriter, req *http.Request, doc *document.Document) {
	err := doc.Recalculate(req.Context())
	if err != nil {
		respondMutationError(w, err)
		return
	}
	respond(w, http.StatusOK, &Recalculation{Evaluations: doc.Evaluations()})
}

func (a *DocumentAccess) snapshot(w http.ResponseWriter, req *http.Request, doc *document.Document) {
	if a.store == nil {
		respondError(w, http.StatusNotImplemented, "no snapshot store configured")
		return
	}
	snap, err := snapshot.Capture(doc)
	if err == nil {
		err = a.store.Save(snap)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "%s", err)
		return
	}
	respond(w, http.StatusCreated, &Items{Items: []string{snap.Document}})
}

////////////////////////////////////////////////////////////////////////////////

func decode(w http.ResponseWriter, req *http.Request, o interface{}) bool {
	t := req.Header.Get("Content-Type")
	if t != "" && t != "application/json" {
		respondError(w, http.StatusUnsupportedMediaType, "unsupported content type %q", t)
		return false
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "%s", err)
		return false
	}
	err = json.Unmarshal(data, o)
	if err != nil {
		respondError(w, http.StatusBadRequest, "%s", err)
		return false
	}
	return true
}

func respondMutationError(w http.ResponseWriter, err error) {
	if errors.Is(err, document.ErrDisposed) {
		respondError(w, http.StatusGone, "%s", err)
		return
	}
	respondError(w, http.StatusBadRequest, "%s", err)
}
