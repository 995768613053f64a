package buffer

import (
	"sync"
	"time"
)

// scheduler runs flushes on a ticker and on size-trigger signals from writers.
type scheduler struct {
	interval time.Duration
	flush    func()

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newScheduler(interval time.Duration, flush func()) *scheduler {
	return &scheduler{
		interval: interval,
		flush:    flush,
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (s *scheduler) start() {
	s.wg.Add(1)
	go s.loop()
}

// loop flushes on tick or kick until stop is called.
func (s *scheduler) loop() {
	defer s.wg.Done()

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			s.flush()
		case <-s.kick:
			s.flush()
		case <-s.done:
			return
		}
	}
}

// trigger requests a flush without blocking. Signals coalesce while one is
// already queued.
func (s *scheduler) trigger() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// stop ends the loop and waits for an in-flight flush to return.
func (s *scheduler) stop() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}
