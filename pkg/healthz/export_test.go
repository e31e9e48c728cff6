package healthz

import (
	"time"
)

func (c *Checks) SetClock(now func() time.Time) {
	c.now = now
}
