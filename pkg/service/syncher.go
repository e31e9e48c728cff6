package service

import (
	"errors"
	"sync"
)

// Syncher is used to wait for a service state.
type Syncher interface {
	Wait() error
}

// Trigger is a Syncher, which is fulfilled by calling Trigger.
type Trigger interface {
	Syncher
	Trigger(errs ...error)
}

type trigger struct {
	once sync.Once
	done chan struct{}
	err  error
}

func SyncTrigger() Trigger {
	return &trigger{done: make(chan struct{})}
}

func (t *trigger) Trigger(errs ...error) {
	t.once.Do(func() {
		t.err = errors.Join(errs...)
		close(t.done)
	})
}

func (t *trigger) Wait() error {
	<-t.done
	return t.err
}
