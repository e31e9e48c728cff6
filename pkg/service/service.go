// Package service runs a set of long running background services
// sharing one cancelable context.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mandelsoft/logging"

	"github.com/mandelsoft/fxengine/pkg/ctxutil"
)

var REALM = logging.DefineRealm("fxengine/service", "background services")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

// Service is a background service. Start must not block. The ready
// syncher signals that the service is able to serve requests, the
// done syncher that the service is finished. A nil ready syncher is
// treated as immediately ready.
type Service interface {
	Start(ctx context.Context) (ready Syncher, done Syncher, err error)
}

type Services struct {
	lock     sync.Mutex
	ctx      context.Context
	services []Service
	started  bool
	wg       sync.WaitGroup
	errs     []error
}

func New(ctx context.Context) *Services {
	return &Services{
		ctx: ctxutil.CancelContext(ctx),
	}
}

// Context is the context passed to the services. Canceling it
// stops all services.
func (s *Services) Context() context.Context {
	return s.ctx
}

// Add adds a service. If the services are already started, the service
// is started immediately and Add waits for it to get ready.
func (s *Services) Add(svc Service) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.services = append(s.services, svc)
	if !s.started {
		return nil
	}
	return s.startServices(svc)
}

// Start starts all added services and waits until all of them are ready.
// If a service fails to start all services are canceled.
func (s *Services) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.started {
		return nil
	}
	s.started = true
	return s.startServices(s.services...)
}

func (s *Services) startServices(list ...Service) error {
	var ready []Syncher
	for _, svc := range list {
		r, err := s.start(svc)
		if err != nil {
			return err
		}
		if r != nil {
			ready = append(ready, r)
		}
	}

	for _, r := range ready {
		err := r.Wait()
		if err != nil {
			ctxutil.Cancel(s.ctx)
			return err
		}
	}
	return nil
}

func (s *Services) start(svc Service) (Syncher, error) {
	log.Debug("starting service {{service}}", "service", fmt.Sprintf("%T", svc))
	ready, done, err := svc.Start(s.ctx)
	if err == nil && done == nil {
		err = fmt.Errorf("service does not provide a done syncher")
	}
	if err != nil {
		ctxutil.Cancel(s.ctx)
		return nil, fmt.Errorf("service %T: %w", svc, err)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := done.Wait()
		if err != nil {
			log.LogError(err, "service {{service}} failed", "service", fmt.Sprintf("%T", svc))
			s.lock.Lock()
			s.errs = append(s.errs, err)
			s.lock.Unlock()
		}
	}()
	return ready, nil
}

// Cancel stops all services.
func (s *Services) Cancel() {
	ctxutil.Cancel(s.ctx)
}

// Wait waits until all started services are finished.
func (s *Services) Wait() error {
	s.wg.Wait()
	s.lock.Lock()
	defer s.lock.Unlock()
	return errors.Join(s.errs...)
}
