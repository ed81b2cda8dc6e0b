package host

import (
	"context"
	"sync"
)

// taskSet runs short background jobs that are cancelled together and awaited
// on close. Each job also gets its own cancel func.
type taskSet struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func newTaskSet(parent context.Context) *taskSet {
	ctx, cancel := context.WithCancel(parent)
	return &taskSet{ctx: ctx, cancel: cancel}
}

// Go starts fn unless the set is closed. The returned func cancels only fn.
func (s *taskSet) Go(fn func(ctx context.Context)) (context.CancelFunc, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}, false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	go func() {
		defer s.wg.Done()
		defer cancel()
		fn(ctx)
	}()
	return cancel, true
}

// Close cancels every running job and waits for all of them to return.
func (s *taskSet) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// Wait blocks until the jobs started so far have returned.
func (s *taskSet) Wait() {
	s.wg.Wait()
}
