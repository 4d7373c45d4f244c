package pushz

import (
	"log/slog"
	"slices"
)

// SorterStorage persists the sorted runs a Sorter spills. Run ids are
// assigned by the sorter and are unique per sorter.
type SorterStorage[T any] interface {
	// Write returns a consumer that stores one run. The run is durable once
	// the consumer acknowledges.
	Write(runID int) Consumer[T]

	// Read returns a supplier streaming a stored run in write order.
	Read(runID int) Supplier[T]

	// Cleanup removes the given runs.
	Cleanup(runIDs []int) *Promise[struct{}]
}

// SorterConfig configures a Sorter.
type SorterConfig struct {
	// ItemsInMemory is the batch size that triggers a spill. Values below 1
	// spill every item.
	ItemsInMemory int `yaml:"items_in_memory"`

	// Deduplicate keeps only the first item seen for every key.
	Deduplicate bool `yaml:"deduplicate"`

	// MergeBufferSize is the per-run look-ahead of the final merge.
	MergeBufferSize int `yaml:"merge_buffer_size"`

	// Name is used in logs, metrics and errors.
	Name string `yaml:"name"`
}

// Sorter is an external merge sort. Items are batched in memory; every full
// batch is sorted and spilled as one run through a SorterStorage. When the
// input ends, all runs and the in-memory remainder are merged through a
// Reducer into the output.
//
// When to use:
//   - Sorting streams larger than memory
//   - Consolidating unsorted records before a key-ordered merge
//   - Deduplicating by key
//
// Example:
//
//	storage := pushz.NewMemoryStorage[Event]()
//	sorter := pushz.NewSorter(storage, Event.ID, cmp.Compare[string], true, 100_000)
//
//	pushz.StreamTo(events, sorter.Input())
//	pushz.StreamTo(sorter.Output(), sink)
//
// The input stays suspended while a spill is being written. A failure in
// any write, read or the merge closes the input, the output and all
// in-flight streams with that error. Runs are cleaned up after the output
// ends either way; a failing cleanup is logged and otherwise ignored.
type Sorter[K, T any] struct { //nolint:govet // logical field grouping preferred over memory optimization
	storage SorterStorage[T]
	keyFn   func(T) K
	cmp     func(K, K) int
	config  SorterConfig
	logger  *slog.Logger
	metrics *Metrics

	input  *sorterInput[K, T]
	output Supplier[T]
	merged *Promise[Supplier[T]]

	batch   []T
	runs    []int
	writers map[int]Consumer[T]
	nextRun int

	inputEnded bool
	merging    bool
	done       bool
	cleaned    bool
}

// NewSorter creates a sorter spilling every itemsInMemory items to storage.
func NewSorter[K, T any](storage SorterStorage[T], keyFn func(T) K, cmp func(K, K) int, deduplicate bool, itemsInMemory int) *Sorter[K, T] {
	return NewSorterWithConfig(storage, keyFn, cmp, SorterConfig{
		ItemsInMemory: itemsInMemory,
		Deduplicate:   deduplicate,
	})
}

// NewSorterWithConfig creates a sorter from config.
func NewSorterWithConfig[K, T any](storage SorterStorage[T], keyFn func(T) K, cmp func(K, K) int, config SorterConfig) *Sorter[K, T] {
	if config.ItemsInMemory < 1 {
		config.ItemsInMemory = 1
	}
	if config.MergeBufferSize < 1 {
		config.MergeBufferSize = 1
	}
	if config.Name == "" {
		config.Name = "sorter"
	}
	s := &Sorter[K, T]{
		storage: storage,
		keyFn:   keyFn,
		cmp:     cmp,
		config:  config,
		logger:  slog.Default(),
		writers: make(map[int]Consumer[T]),
		merged:  NewPromise[Supplier[T]](),
	}
	s.input = &sorterInput[K, T]{s: s}
	s.input.BaseConsumer = NewBaseConsumer[T](s.input)
	s.input.acceptor = NewAcceptor(s.accept)
	s.output = OfPromise(s.merged)
	s.output.EndOfStream().OnComplete(func(_ struct{}, err error) {
		if err != nil {
			s.fail(err)
		} else {
			s.done = true
			// Non-empty only when the output was closed before the merge
			// started, with spills still in flight.
			for id, w := range s.writers {
				delete(s.writers, id)
				w.CloseWithError(ErrClosed)
			}
			s.input.Acknowledge()
		}
		s.cleanup()
	})
	return s
}

// WithLogger sets the logger.
func (s *Sorter[K, T]) WithLogger(logger *slog.Logger) *Sorter[K, T] {
	s.logger = logger
	return s
}

// WithMetrics records spilled runs and failures on m.
func (s *Sorter[K, T]) WithMetrics(m *Metrics) *Sorter[K, T] {
	s.metrics = m
	return s
}

// Name returns the sorter name.
func (s *Sorter[K, T]) Name() string {
	return s.config.Name
}

// Input returns the consumer receiving unsorted items.
func (s *Sorter[K, T]) Input() Consumer[T] {
	return s.input
}

// Output returns the sorted supplier. It starts producing once the input has
// ended and every spill is durable.
func (s *Sorter[K, T]) Output() Supplier[T] {
	return s.output
}

// Runs returns the ids of the runs spilled so far.
func (s *Sorter[K, T]) Runs() []int {
	return slices.Clone(s.runs)
}

func (s *Sorter[K, T]) compare(a, b T) int {
	return s.cmp(s.keyFn(a), s.keyFn(b))
}

func (s *Sorter[K, T]) accept(item T) {
	if s.done {
		return
	}
	s.batch = append(s.batch, item)
	if len(s.batch) >= s.config.ItemsInMemory {
		s.spill()
	}
}

func (s *Sorter[K, T]) spill() {
	batch := s.batch
	s.batch = nil
	slices.SortStableFunc(batch, s.compare)

	id := s.nextRun
	s.nextRun++
	s.runs = append(s.runs, id)
	writer := s.storage.Write(id)
	s.writers[id] = writer
	s.metrics.runSpilled(s.config.Name, len(batch))
	s.logger.Debug("sorter spilling run", "name", s.config.Name, "run", id, "items", len(batch))

	s.input.Suspend()
	StreamTo(OfSlice(batch), writer).OnComplete(func(_ struct{}, err error) {
		delete(s.writers, id)
		if err != nil {
			s.fail(err)
			return
		}
		if s.done || len(s.writers) > 0 {
			return
		}
		if s.inputEnded {
			s.merge()
			return
		}
		s.input.Resume(s.input.acceptor)
	})
}

func (s *Sorter[K, T]) merge() {
	if s.done || s.merging || !s.inputEnded || len(s.writers) > 0 {
		return
	}
	s.merging = true
	remainder := s.batch
	s.batch = nil
	slices.SortStableFunc(remainder, s.compare)
	s.logger.Debug("sorter merging", "name", s.config.Name, "runs", len(s.runs), "in_memory", len(remainder))

	if len(s.runs) == 0 && !s.config.Deduplicate {
		s.merged.Resolve(OfSlice(remainder))
		return
	}
	if s.config.Deduplicate {
		s.merged.Resolve(mergeRuns(s, remainder, MergeDistinct[K, T]()))
	} else {
		s.merged.Resolve(mergeRuns(s, remainder, MergeSort[K, T]()))
	}
}

func mergeRuns[K, T, A any](s *Sorter[K, T], remainder []T, strategy ReducerStrategy[K, T, T, A]) Supplier[T] {
	r := NewReducer[K, T, A](s.cmp).
		WithName(s.config.Name + "-merge").
		WithBufferSize(s.config.MergeBufferSize).
		WithLogger(s.logger).
		WithMetrics(s.metrics)
	inputs := make([]Consumer[T], 0, len(s.runs)+1)
	for range s.runs {
		inputs = append(inputs, AddInput(r, s.keyFn, strategy))
	}
	rest := AddInput(r, s.keyFn, strategy)
	for i, id := range s.runs {
		StreamTo(s.storage.Read(id), inputs[i])
	}
	StreamTo(OfSlice(remainder), rest)
	return r.Output()
}

func (s *Sorter[K, T]) fail(err error) {
	if s.done {
		return
	}
	s.done = true
	s.logger.Debug("sorter failed", "name", s.config.Name, "error", err)
	s.metrics.streamFailed(s.config.Name)
	s.batch = nil
	for id, w := range s.writers {
		delete(s.writers, id)
		w.CloseWithError(err)
	}
	s.merged.Reject(err)
	s.input.CloseWithError(err)
	s.output.CloseWithError(err)
	s.cleanup()
}

func (s *Sorter[K, T]) cleanup() {
	if s.cleaned || len(s.runs) == 0 {
		return
	}
	s.cleaned = true
	runs := slices.Clone(s.runs)
	s.storage.Cleanup(runs).OnComplete(func(_ struct{}, err error) {
		if err != nil {
			s.logger.Warn("sorter cleanup failed", "name", s.config.Name, "runs", len(runs), "error", err)
		}
	})
}

type sorterInput[K, T any] struct {
	*BaseConsumer[T]
	s        *Sorter[K, T]
	acceptor Acceptor[T]
}

func (in *sorterInput[K, T]) OnStarted() {
	if len(in.s.writers) == 0 {
		in.Resume(in.acceptor)
	}
}

// The input is acknowledged when the sorted output ends.
func (in *sorterInput[K, T]) OnEndOfStream() {
	in.s.inputEnded = true
	in.s.merge()
}

func (in *sorterInput[K, T]) OnError(err error) {
	in.s.fail(err)
}
