// Package pool provides a worker pool processing string keys.
//
// Keys are queued in a rate limiting work queue. A key enqueued several
// times before it is processed is processed only once, and a key is never
// processed by two workers at the same time.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mandelsoft/logging"
	"k8s.io/client-go/util/workqueue"

	"github.com/mandelsoft/fxengine/pkg/healthz"
	"github.com/mandelsoft/fxengine/pkg/service"
)

var REALM = logging.DefineRealm("fxengine/pool", "background worker pool")

// Action processes a key.
type Action interface {
	Process(ctx context.Context, log logging.Logger, key string) Status
}

type ActionFunc func(ctx context.Context, log logging.Logger, key string) Status

func (f ActionFunc) Process(ctx context.Context, log logging.Logger, key string) Status {
	return f(ctx, log, key)
}

type tickItem struct{}

const tick = 30 * time.Second

type Pool struct {
	logging.UnboundLogger
	name   string
	size   int
	period time.Duration
	lctx   logging.AttributionContext
	queue  workqueue.RateLimitingInterface
	action Action
	health *healthz.Checks

	lock    sync.Mutex
	started bool
}

var _ service.Service = (*Pool)(nil)

// New creates a pool with size workers. With a period >0 successfully
// processed keys are processed again after this period.
func New(lctxp logging.AttributionContextProvider, name string, size int, period time.Duration, a Action) *Pool {
	lctx := lctxp.AttributionContext().WithContext(REALM, logging.NewAttribute("pool", name))
	p := &Pool{
		UnboundLogger: logging.DynamicLogger(lctx),
		name:          name,
		size:          max(size, 1),
		period:        period,
		lctx:          lctx,
		queue: workqueue.NewRateLimitingQueueWithConfig(workqueue.DefaultControllerRateLimiter(), workqueue.RateLimitingQueueConfig{
			Name: name,
		}),
		action: a,
		health: healthz.Default,
	}
	if p.period != 0 {
		p.Info("created pool {{name}}", "name", p.name, "size", p.size, "resync period", p.period.String())
	} else {
		p.Info("created pool {{name}}", "name", p.name, "size", p.size)
	}
	return p
}

// WithHealthChecks sets the health checks ticked by the pool workers.
func (p *Pool) WithHealthChecks(c *healthz.Checks) *Pool {
	p.health = c
	return p
}

func (p *Pool) Name() string {
	return p.name
}

func (p *Pool) Period() time.Duration {
	return p.period
}

func (p *Pool) Key() string {
	return fmt.Sprintf("pool %s", p.name)
}

func (p *Pool) QueueLength() int {
	return p.queue.Len()
}

// Start starts the workers. They run until the context is canceled.
func (p *Pool) Start(ctx context.Context) (service.Syncher, service.Syncher, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.started {
		return nil, nil, fmt.Errorf("pool %s already started", p.name)
	}
	p.started = true

	ready := service.SyncTrigger()
	done := service.SyncTrigger()
	go func() {
		p.run(ctx, ready)
		done.Trigger()
	}()
	return ready, done, nil
}

func (p *Pool) run(ctx context.Context, ready service.Trigger) {
	p.Info("starting worker pool {{name}}", "name", p.name, "workers", p.size)
	period := p.period
	if period == 0 {
		period = tick
	}
	p.health.Start(p.Key(), period)

	// the tick keeps the health check alive for an empty queue
	p.queue.AddAfter(tickItem{}, period)

	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			newWorker(p, n).run(ctx)
		}(i)
	}
	ready.Trigger()

	<-ctx.Done()
	p.queue.ShutDown()
	p.Info("waiting for pool workers of {{name}} to shutdown", "name", p.name)
	wg.Wait()
	p.health.End(p.Key())
	p.Info("pool {{name}} stopped", "name", p.name)
}

func (p *Pool) Enqueue(key string) {
	p.queue.Add(key)
}
