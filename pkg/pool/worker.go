/*
 * SPDX-FileCopyrightText: 2019 SAP SE or an SAP affiliate company and Gardener contributors
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package pool

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mandelsoft/logging"
)

var ErrPanic = fmt.Errorf("action panicked")

// worker is a single go routine synchronously working
// on keys provided by the pool's workqueue.
type worker struct {
	logging.UnboundLogger
	pool *Pool
}

func newWorker(p *Pool, number int) *worker {
	return &worker{
		UnboundLogger: logging.DynamicLogger(p.lctx,
			logging.NewName(fmt.Sprintf("worker %d", number)),
			logging.NewAttribute("worker", strconv.Itoa(number)),
		),
		pool: p,
	}
}

func (w *worker) run(ctx context.Context) {
	w.Debug("starting worker")
	for w.processNextWorkItem(ctx) {
	}
	w.Debug("exit worker")
}

func catch(f func() Status) (result Status) {
	defer func() {
		if r := recover(); r != nil {
			result = StatusFailed(fmt.Errorf("%w: %v", ErrPanic, r))
		}
	}()
	return f()
}

func (w *worker) processNextWorkItem(ctx context.Context) bool {
	obj, shutdown := w.pool.queue.Get()
	if shutdown {
		return false
	}
	defer w.pool.queue.Done(obj)
	w.pool.health.Tick(w.pool.Key())

	key, ok := obj.(string)
	if !ok {
		if _, ok := obj.(tickItem); ok {
			w.pool.queue.AddAfter(obj, tick)
		} else {
			w.Error("unexpected work item {{item}}", "item", fmt.Sprintf("%#v", obj))
		}
		w.pool.queue.Forget(obj)
		return true
	}

	log := w.WithValues("key", key)
	log.Debug("processing {{key}}")
	status := catch(func() Status { return w.pool.action.Process(ctx, log, key) })
	log.Trace("processed {{key}}: {{status}}", "status", status.String())

	switch {
	case status.IsDelayed():
		log.Warn("add rate limited because of problem", "problem", status.Error.Error())
		w.pool.queue.AddRateLimited(obj)
	case status.IsFailed():
		log.LogError(status.Error, "processing failed, wait for new change")
		w.pool.queue.Forget(obj)
	case status.MustBeRepeated():
		log.Debug("redo {{key}}")
		w.pool.queue.Add(obj)
	default:
		w.pool.queue.Forget(obj)
		reschedule := status.Interval
		if reschedule < 0 {
			reschedule = w.pool.Period()
		}
		if reschedule > 0 {
			log.Debug("reschedule {{key}}", "delay", reschedule.String())
			w.pool.queue.AddAfter(obj, reschedule)
		}
	}
	return true
}

