package pool

import (
	"fmt"
	"time"

	"github.com/mandelsoft/fxengine/pkg/utils"
)

// Status is the outcome of processing a key.
//
//	Completed Error  handling
//	true      nil    done, reschedule according to Interval
//	true      err    temporary problem, re-add rate-limited
//	false     nil    incomplete, re-add immediately
//	false     err    permanent problem, drop until the next enqueue
type Status struct {
	Completed bool
	Error     error

	// Interval is the reschedule of a succeeded key.
	// A negative interval uses the pool period, 0 disables
	// the reschedule.
	Interval time.Duration
}

func StatusCompleted(err ...error) Status {
	return Status{Completed: true, Error: utils.Optional(err...), Interval: -1}
}

func StatusFailed(err error) Status {
	return Status{Error: err, Interval: -1}
}

func StatusRedo() Status {
	return Status{Interval: -1}
}

func (s Status) IsSucceeded() bool    { return s.Completed && s.Error == nil }
func (s Status) IsDelayed() bool      { return s.Completed && s.Error != nil }
func (s Status) IsFailed() bool       { return !s.Completed && s.Error != nil }
func (s Status) MustBeRepeated() bool { return !s.Completed && s.Error == nil }

// RescheduleAfter requests a reschedule after the given duration,
// an earlier requested reschedule is kept.
func (s Status) RescheduleAfter(d time.Duration) Status {
	if s.Interval < 0 || d < s.Interval {
		s.Interval = d
	}
	return s
}

// Stop disables the reschedule.
func (s Status) Stop() Status {
	s.Interval = 0
	return s
}

func (s Status) String() string {
	switch {
	case s.IsSucceeded():
		return "succeeded"
	case s.IsDelayed():
		return fmt.Sprintf("delayed: %s", s.Error)
	case s.IsFailed():
		return fmt.Sprintf("failed: %s", s.Error)
	default:
		return "redo"
	}
}
