package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/mandelsoft/fxengine/pkg/service"
	"github.com/mandelsoft/fxengine/pkg/utils"
)

type Client[R, E any] struct {
	dialer ws.Dialer
	url    string
}

func NewClient[R, E any](url string, dialer ...ws.Dialer) *Client[R, E] {
	return &Client[R, E]{
		dialer: utils.OptionalDefaulted(ws.DefaultDialer, dialer...),
		url:    url,
	}
}

func (c *Client[R, E]) Dial(ctx context.Context) (net.Conn, error) {
	conn, _, _, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Client[R, E]) RequestWatch(conn net.Conn, req R) (*Watch[E], error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	err = wsutil.WriteClientMessage(conn, ws.OpText, data)
	if err != nil {
		return nil, err
	}
	return &Watch[E]{conn: conn}, nil
}

func (c *Client[R, E]) Watch(ctx context.Context, req R) (*Watch[E], error) {
	conn, err := c.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return c.RequestWatch(conn, req)
}

// Register passes all received events to the handler until the context
// is canceled or the connection is closed by the server.
func (c *Client[R, E]) Register(ctx context.Context, req R, h EventHandler[E]) (service.Syncher, error) {
	w, err := c.Watch(ctx, req)
	if err != nil {
		return nil, err
	}

	done := service.SyncTrigger()
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			w.Close()
		case <-stop:
		}
	}()

	go func() {
		defer close(stop)
		for {
			events, err := w.Receive()
			if err != nil {
				w.Close()
				if IsErrClosed(err) || ctx.Err() != nil {
					done.Trigger()
				} else {
					done.Trigger(err)
				}
				return
			}
			for _, e := range events {
				h.HandleEvent(e)
			}
		}
	}()
	return done, nil
}

////////////////////////////////////////////////////////////////////////////////

type Watch[E any] struct {
	conn net.Conn
}

// Receive returns the next events. An error message of the
// server is returned as error.
func (w *Watch[E]) Receive() ([]E, error) {
	msgs, err := wsutil.ReadServerMessage(w.conn, nil)
	if err != nil {
		return nil, err
	}

	var events []E
	for _, m := range msgs {
		if m.OpCode != ws.OpText && m.OpCode != ws.OpBinary {
			continue
		}
		var msg Error
		if json.Unmarshal(m.Payload, &msg) == nil && msg.Error != "" {
			return nil, fmt.Errorf("watch rejected: %s", msg.Error)
		}
		var evt E
		err := json.Unmarshal(m.Payload, &evt)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, nil
}

func (w *Watch[E]) Close() error {
	return w.conn.Close()
}
