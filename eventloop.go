package pushz

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Eventloop is a single-threaded cooperative scheduler. Streams connected to
// each other are driven from one loop goroutine; timers and blocking work
// complete by posting a task back to it.
//
// When to use:
//   - Suppliers that wait for I/O before producing (file or database runs)
//   - Rate limiting and deadlines
//   - Any pipeline that mixes synchronous operators with off-loop work
//
// Example:
//
//	loop := pushz.NewEventloop().WithWorkers(4)
//
//	sorter := pushz.NewSorter(storage, key, cmp.Compare[int], false, 1024)
//	loop.Post(func() {
//		pushz.StreamTo(input, sorter.Input())
//		pushz.StreamTo(sorter.Output(), output)
//	})
//	loop.Run()
//
// Post is safe to call from any goroutine. Everything else, including
// Schedule and the cancel funcs it returns, belongs to the loop goroutine.
type Eventloop struct { //nolint:govet // logical field grouping preferred over memory optimization
	mu      sync.Mutex
	tasks   queue[func()]
	pending int
	wake    chan struct{}

	clock   Clock
	logger  *slog.Logger
	workers int64
	sem     *semaphore.Weighted

	tick uint64
}

// NewEventloop creates an event loop.
//
// Default configuration:
//   - Clock: RealClock
//   - Workers: 8 concurrent Submit jobs
//   - Logger: slog.Default()
func NewEventloop() *Eventloop {
	return &Eventloop{
		wake:    make(chan struct{}, 1),
		clock:   RealClock,
		logger:  slog.Default(),
		workers: 8,
		sem:     semaphore.NewWeighted(8),
	}
}

// WithClock sets the clock used for Schedule.
func (l *Eventloop) WithClock(clock Clock) *Eventloop {
	l.clock = clock
	return l
}

// WithLogger sets the logger.
func (l *Eventloop) WithLogger(logger *slog.Logger) *Eventloop {
	l.logger = logger
	return l
}

// WithWorkers bounds the number of Submit jobs running at once.
func (l *Eventloop) WithWorkers(n int) *Eventloop {
	if n < 1 {
		n = 1
	}
	l.workers = int64(n)
	l.sem = semaphore.NewWeighted(l.workers)
	return l
}

// Clock returns the loop's clock.
func (l *Eventloop) Clock() Clock {
	return l.clock
}

// Tick returns the number of tasks run so far. Two calls returning the same
// value happened in the same scheduling turn.
func (l *Eventloop) Tick() uint64 {
	return l.tick
}

// Post enqueues fn to run on the loop.
func (l *Eventloop) Post(fn func()) {
	l.mu.Lock()
	l.tasks.push(fn)
	l.mu.Unlock()
	l.signal()
}

// Schedule runs fn on the loop after d. The returned func cancels it if it has
// not fired yet.
func (l *Eventloop) Schedule(d time.Duration, fn func()) (cancel func()) {
	cancelled := false
	l.hold()
	timer := l.clock.AfterFunc(d, func() {
		l.release(func() {
			if !cancelled {
				fn()
			}
		})
	})
	return func() {
		if cancelled {
			return
		}
		cancelled = true
		if timer.Stop() {
			l.release(nil)
		}
	}
}

// Run executes tasks until the loop is idle: nothing is queued and no timer
// or submitted job is outstanding.
func (l *Eventloop) Run() {
	for {
		if l.RunPending() > 0 {
			continue
		}
		l.mu.Lock()
		idle := l.tasks.len() == 0 && l.pending == 0
		l.mu.Unlock()
		if idle {
			l.logger.Debug("eventloop idle", "tick", l.tick)
			return
		}
		<-l.wake
	}
}

// RunPending executes the tasks queued so far, including any they enqueue,
// without waiting for timers or submitted jobs. It returns the number of
// tasks run.
func (l *Eventloop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		if l.tasks.len() == 0 {
			l.mu.Unlock()
			return n
		}
		task := l.tasks.pop()
		l.mu.Unlock()
		l.tick++
		n++
		task()
	}
}

// Pending returns the number of outstanding timers and submitted jobs.
func (l *Eventloop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

func (l *Eventloop) hold() {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()
}

// release drops one outstanding hold and, in the same critical section,
// enqueues fn so Run never observes a gap between the two.
func (l *Eventloop) release(fn func()) {
	l.mu.Lock()
	l.pending--
	if fn != nil {
		l.tasks.push(fn)
	}
	l.mu.Unlock()
	l.signal()
}

func (l *Eventloop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Submit runs fn on a worker goroutine and completes the returned promise on
// the loop. At most WithWorkers jobs run at once; a panic in fn becomes the
// promise's error.
func Submit[T any](l *Eventloop, fn func() (T, error)) *Promise[T] {
	p := NewPromise[T]()
	l.hold()
	go func() {
		var (
			value T
			err   error
		)
		if err = l.sem.Acquire(context.Background(), 1); err == nil {
			value, err = runRecovered(fn)
			l.sem.Release(1)
		}
		l.release(func() {
			p.Complete(value, err)
		})
	}()
	return p
}

func runRecovered[T any](fn func() (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return fn()
}
