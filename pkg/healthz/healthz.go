// Package healthz keeps track of the liveness of background services.
// Every service reports ticks for a key. A key is unhealthy, if there was
// no tick for three times the announced period.
package healthz

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/mandelsoft/logging"

	"github.com/mandelsoft/fxengine/pkg/utils"
)

var REALM = logging.DefineRealm("fxengine/healthz", "health monitoring of background services")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

type check struct {
	last    time.Time
	timeout time.Duration
}

type Checks struct {
	lock   sync.Mutex
	now    func() time.Time
	checks map[string]*check
}

func New() *Checks {
	return &Checks{checks: map[string]*check{}, now: time.Now}
}

// Start announces a key, which will be ticked at least once
// per period.
func (c *Checks) Start(key string, period time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.checks[key] = &check{c.now(), 3 * period}
}

func (c *Checks) Tick(key string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	e := c.checks[key]
	if e == nil {
		log.Warn("tick for unknown health check {{key}}", "key", key)
		return
	}
	e.last = c.now()
}

func (c *Checks) End(key string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.checks, key)
}

type Status struct {
	Key     string    `json:"key"`
	Last    time.Time `json:"last"`
	Healthy bool      `json:"healthy"`
}

type Report struct {
	Healthy bool     `json:"healthy"`
	Checks  []Status `json:"checks,omitempty"`
}

func (c *Checks) Report() Report {
	c.lock.Lock()
	defer c.lock.Unlock()

	r := Report{Healthy: true}
	now := c.now()
	for _, key := range utils.OrderedMapKeys(c.checks) {
		e := c.checks[key]
		s := Status{Key: key, Last: e.last, Healthy: !e.last.Before(now.Add(-e.timeout))}
		if !s.Healthy {
			log.Warn("outdated health check {{key}}", "key", key, "delay", now.Sub(e.last).String())
			r.Healthy = false
		}
		r.Checks = append(r.Checks, s)
	}
	return r
}

func (c *Checks) IsHealthy() bool {
	return c.Report().Healthy
}

// ServeHTTP responds with status 200, if all checks are healthy,
// and with 500 otherwise. The body is the JSON report.
func (c *Checks) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := c.Report()
	w.Header().Set("Content-Type", "application/json")
	if report.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusInternalServerError)
	}
	data, err := json.Marshal(report)
	if err != nil {
		log.LogError(err, "cannot marshal health report")
		return
	}
	w.Write(data)
}

////////////////////////////////////////////////////////////////////////////////

var Default = New()

func Start(key string, period time.Duration) { Default.Start(key, period) }
func Tick(key string)                        { Default.Tick(key) }
func End(key string)                         { Default.End(key) }
func IsHealthy() bool                        { return Default.IsHealthy() }
