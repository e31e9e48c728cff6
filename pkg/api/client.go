package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mandelsoft/fxengine/pkg/value"
)

// Client accesses the documents of a server.
type Client struct {
	client *http.Client
	base   string
}

// NewClient provides a client for the API at the given base url
// (for example http://localhost:8080/api/).
func NewClient(base string, client ...*http.Client) *Client {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	c := http.DefaultClient
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	}
	return &Client{client: c, base: base}
}

func (c *Client) path(elems ...string) string {
	for i, e := range elems {
		elems[i] = url.PathEscape(e)
	}
	return c.base + strings.Join(elems, "/")
}

func (c *Client) do(ctx context.Context, method, u string, body interface{}, result interface{}) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := ResponseData(resp)
	if err != nil {
		return err
	}
	if result != nil {
		return json.Unmarshal(data, result)
	}
	return nil
}

func (c *Client) Documents(ctx context.Context) ([]string, error) {
	var items Items
	err := c.do(ctx, http.MethodGet, c.base, nil, &items)
	return items.Items, err
}

func (c *Client) Value(ctx context.Context, doc, unit, sheet, cell string) (value.Value, error) {
	var v Value
	err := c.do(ctx, http.MethodGet, c.path(doc, "cells", unit, sheet, cell), nil, &v)
	if err != nil {
		return nil, err
	}
	return v.Value.Decode()
}

func (c *Client) SetInput(ctx context.Context, doc, unit, sheet, cell, input string) error {
	return c.do(ctx, http.MethodPut, c.path(doc, "cells", unit, sheet, cell), &Input{input}, nil)
}

func (c *Client) ClearCell(ctx context.Context, doc, unit, sheet, cell string) error {
	return c.do(ctx, http.MethodDelete, c.path(doc, "cells", unit, sheet, cell), nil, nil)
}

func (c *Client) FormulaValue(ctx context.Context, doc, unit, sub, id string) (value.Value, error) {
	var v Value
	err := c.do(ctx, http.MethodGet, c.path(doc, "formulas", unit, sub, id), nil, &v)
	if err != nil {
		return nil, err
	}
	return v.Value.Decode()
}

func (c *Client) RegisterFormula(ctx context.Context, doc, unit, sub, id, src string) error {
	return c.do(ctx, http.MethodPut, c.path(doc, "formulas", unit, sub, id), &Source{src}, nil)
}

func (c *Client) RemoveFormula(ctx context.Context, doc, unit, sub, id string) error {
	return c.do(ctx, http.MethodDelete, c.path(doc, "formulas", unit, sub, id), nil, nil)
}

// Recalculate recalculates a document and returns the number
// of evaluations done so far.
func (c *Client) Recalculate(ctx context.Context, doc string) (int64, error) {
	var r Recalculation
	err := c.do(ctx, http.MethodPost, c.path(doc, "recalculate"), nil, &r)
	return r.Evaluations, err
}

func (c *Client) Snapshot(ctx context.Context, doc string) error {
	return c.do(ctx, http.MethodPost, c.path(doc, "snapshot"), nil, nil)
}

// ResponseData returns the body of a successful response, or
// the error reported by the server.
func ResponseData(r *http.Response) ([]byte, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return data, nil
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("request failed with status %s", r.Status)
	}
	var msg Error
	err = json.Unmarshal(data, &msg)
	if err != nil || msg.Error == "" {
		return nil, fmt.Errorf("request failed with status %s", r.Status)
	}
	return nil, fmt.Errorf("%s", msg.Error)
}
