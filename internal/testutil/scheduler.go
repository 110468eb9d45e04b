package testutil

import "sync"

// Scheduler runs every task on its own goroutine and keeps the task errors.
//
// Unlike errgroup.Group it never stops at the first error, so tests can
// assert on every fault.
type Scheduler struct {
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
	n    int
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Go implements flow.Scheduler.
func (s *Scheduler) Go(task func() error) {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := task(); err != nil {
			s.mu.Lock()
			s.errs = append(s.errs, err)
			s.mu.Unlock()
		}
	}()
}

// Wait blocks until every task has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Errors returns the errors returned by finished tasks.
func (s *Scheduler) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

// Tasks returns how many tasks were scheduled.
func (s *Scheduler) Tasks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
