// Package watch provides a websocket endpoint streaming events.
//
// A client opens a websocket connection and sends a JSON registration
// request as first text message. Afterwards the server sends every
// matching event as JSON text message until the connection is closed.
package watch

import (
	"encoding/json"
	"net"
	"net/http"
	"slices"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

type EventHandler[E any] interface {
	HandleEvent(e E)
}

// Registration is an active handler registration.
type Registration interface {
	Unregister()
}

type Registry[R any, E any] interface {
	RegisterWatchHandler(r R, h EventHandler[E]) (Registration, error)
}

func WatchHttpHandler[R, E any](r Registry[R, E]) *RequestHandler[R, E] {
	return &RequestHandler[R, E]{registry: r}
}

type RequestHandler[R, E any] struct {
	lock        sync.Mutex
	registry    Registry[R, E]
	connections []*handler[R, E]
}

var _ http.Handler = (*RequestHandler[any, any])(nil)

// Close closes all open watch connections.
func (h *RequestHandler[R, E]) Close() error {
	h.lock.Lock()
	conns := slices.Clone(h.connections)
	h.lock.Unlock()

	for _, c := range conns {
		c.Close()
	}
	return nil
}

// Len returns the number of open watch connections.
func (h *RequestHandler[R, E]) Len() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.connections)
}

func (h *RequestHandler[R, E]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Debug("new watch request from {{remote}}", "remote", r.RemoteAddr)
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.LogError(err, "upgrading watch request")
		return
	}

	msg, op, err := wsutil.ReadClientData(conn)
	if err != nil {
		log.LogError(err, "reading registration request")
		reject(conn, err.Error())
		return
	}
	if op != ws.OpText {
		reject(conn, "text registration request required")
		return
	}

	var req R
	err = json.Unmarshal(msg, &req)
	if err != nil {
		log.LogError(err, "decoding registration request")
		reject(conn, err.Error())
		return
	}

	c := &handler[R, E]{rhandler: h, conn: conn, req: req}
	reg, err := h.registry.RegisterWatchHandler(req, c)
	if err != nil {
		log.LogError(err, "registering watch handler")
		reject(conn, err.Error())
		return
	}

	// the initial events may already have failed and closed the connection
	c.lock.Lock()
	closed := c.closed
	if !closed {
		c.registration = reg
		h.addHandler(c)
	}
	c.lock.Unlock()
	if closed {
		reg.Unregister()
		return
	}
	go c.read()
}

func reject(conn net.Conn, msg string) {
	wsutil.WriteServerMessage(conn, ws.OpText, (&Error{msg}).Data())
	conn.Close()
}

func (h *RequestHandler[R, E]) addHandler(c *handler[R, E]) {
	log.Debug("registered watch handler for {{request}}", "request", c.req)
	h.lock.Lock()
	defer h.lock.Unlock()
	h.connections = append(h.connections, c)
}

func (h *RequestHandler[R, E]) removeHandler(c *handler[R, E]) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.connections = slices.DeleteFunc(h.connections, func(e *handler[R, E]) bool { return e == c })
}

////////////////////////////////////////////////////////////////////////////////

type handler[R, E any] struct {
	lock         sync.Mutex
	rhandler     *RequestHandler[R, E]
	conn         net.Conn
	req          R
	registration Registration
	closed       bool
}

// read consumes client frames until the connection is closed.
func (h *handler[R, E]) read() {
	for {
		_, _, err := wsutil.ReadClientData(h.conn)
		if err != nil {
			if !IsErrClosed(err) {
				log.LogError(err, "reading watch connection")
			}
			h.Close()
			return
		}
	}
}

func (h *handler[R, E]) HandleEvent(e E) {
	data, err := json.Marshal(e)
	if err != nil {
		log.LogError(err, "cannot marshal event")
		return
	}

	h.lock.Lock()
	if h.closed {
		h.lock.Unlock()
		return
	}
	err = wsutil.WriteServerMessage(h.conn, ws.OpText, data)
	h.lock.Unlock()

	if err != nil {
		log.LogError(err, "cannot send event -> closing connection")
		h.Close()
	}
}

func (h *handler[R, E]) Close() error {
	h.lock.Lock()
	if h.closed {
		h.lock.Unlock()
		return nil
	}
	h.closed = true
	reg := h.registration
	h.lock.Unlock()

	log.Debug("closing watch connection for {{request}}", "request", h.req)
	if reg != nil {
		reg.Unregister()
	}
	h.rhandler.removeHandler(h)
	return h.conn.Close()
}

type Error struct {
	Error string `json:"error"`
}

func (e *Error) Data() []byte {
	data, _ := json.Marshal(e)
	return data
}
