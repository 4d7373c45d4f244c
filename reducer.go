package pushz

import (
	"container/heap"
	"fmt"
	"log/slog"
)

// Reducer merges N key-ordered inputs into one key-ordered output, folding
// every item that shares a key into a single accumulator per key group.
//
// Each input must be non-decreasing by key. The reducer keeps a small
// look-ahead buffer per input and always takes the smallest pending key;
// inputs holding an equal key feed the same accumulator before the group is
// completed. A group completes once every live input has a buffered item
// with a larger key, or has ended.
//
// When to use:
//   - Merging sorted runs (see Sorter)
//   - Combining partial aggregates keyed by the same dimension
//   - Deduplicating several sorted sources
//
// Example:
//
//	r := pushz.NewReducer[int, Pair, Pair](cmp.Compare[int])
//	for _, src := range sources {
//		in := pushz.AddInput(r, Pair.Key, sumByKey)
//		pushz.StreamTo(src, in)
//	}
//	pushz.StreamTo(r.Output(), pushz.ToList[Pair]())
//
// Any input failure, strategy panic or output failure closes the output and
// every input with the same error. Inputs are acknowledged once the output
// has ended. All inputs must be added before the output is bound.
type Reducer[K, O, A any] struct { //nolint:govet // logical field grouping preferred over memory optimization
	cmp        func(K, K) int
	bufferSize int
	name       string
	logger     *slog.Logger
	metrics    *Metrics

	output *reducerOutput[K, O, A]
	inputs []mergeInput[K, O, A]
	ready  mergeHeap[K, O, A]

	awaiting int
	live     int

	hasGroup  bool
	groupKey  K
	groupAcc  A
	lastInput mergeInput[K, O, A]

	producing        bool
	produceRequested bool
	done             bool
}

// NewReducer creates a reducer ordering keys with cmp.
//
// Default configuration:
//   - Buffer size: 1 item per input
//   - Name: "reducer"
func NewReducer[K, O, A any](cmp func(K, K) int) *Reducer[K, O, A] {
	r := &Reducer[K, O, A]{
		cmp:        cmp,
		bufferSize: 1,
		name:       "reducer",
		logger:     slog.Default(),
	}
	r.ready.cmp = cmp
	r.output = &reducerOutput[K, O, A]{r: r}
	r.output.BaseSupplier = NewBaseSupplier[O](r.output)
	return r
}

// WithBufferSize sets how many items each input may buffer before it is
// suspended.
func (r *Reducer[K, O, A]) WithBufferSize(n int) *Reducer[K, O, A] {
	if n < 1 {
		n = 1
	}
	r.bufferSize = n
	return r
}

// WithName sets a custom name used in logs, metrics and errors.
func (r *Reducer[K, O, A]) WithName(name string) *Reducer[K, O, A] {
	r.name = name
	return r
}

// WithLogger sets the logger.
func (r *Reducer[K, O, A]) WithLogger(logger *slog.Logger) *Reducer[K, O, A] {
	r.logger = logger
	return r
}

// WithMetrics records completed key groups and failures on m.
func (r *Reducer[K, O, A]) WithMetrics(m *Metrics) *Reducer[K, O, A] {
	r.metrics = m
	return r
}

// Name returns the reducer name.
func (r *Reducer[K, O, A]) Name() string {
	return r.name
}

// Output returns the merged supplier.
func (r *Reducer[K, O, A]) Output() Supplier[O] {
	return r.output
}

// Inputs returns the number of inputs added so far.
func (r *Reducer[K, O, A]) Inputs() int {
	return len(r.inputs)
}

// AddInput registers a new input of r. keyFn extracts the merge key from
// each item and strategy folds items of this input into the group
// accumulator.
func AddInput[K, I, O, A any](r *Reducer[K, O, A], keyFn func(I) K, strategy ReducerStrategy[K, I, O, A]) Consumer[I] {
	in := &reducerInput[K, I, O, A]{
		r:        r,
		index:    len(r.inputs),
		keyFn:    keyFn,
		strategy: strategy,
	}
	in.BaseConsumer = NewBaseConsumer[I](in)
	in.acceptor = NewAcceptor(in.accept)
	r.inputs = append(r.inputs, in)
	r.awaiting++
	r.live++
	return in
}

// produce drains inputs into the output while every live input has a
// buffered item. Reentrant calls are folded into the running loop.
func (r *Reducer[K, O, A]) produce() {
	if r.producing {
		r.produceRequested = true
		return
	}
	r.producing = true
	defer func() {
		r.producing = false
		if rec := recover(); rec != nil {
			r.fail(newStreamError(RealClock, r.groupKey, recovered(rec), r.name))
		}
	}()
	for {
		r.produceRequested = false
		r.step()
		if !r.produceRequested || r.done {
			return
		}
	}
}

func (r *Reducer[K, O, A]) step() {
	for !r.done && r.output.IsReady() && r.awaiting == 0 && r.ready.Len() > 0 {
		in := r.ready.items[0]
		key := in.headKey()
		if r.hasGroup && r.cmp(key, r.groupKey) == 0 {
			r.groupAcc = in.next(key, r.groupAcc)
		} else {
			r.completeGroup()
			r.hasGroup = true
			r.groupKey = key
			r.groupAcc = in.first(key)
		}
		r.lastInput = in
		if in.buffered() == 0 {
			heap.Pop(&r.ready)
			if !in.isEnded() {
				r.awaiting++
			}
		} else {
			heap.Fix(&r.ready, 0)
		}
		in.wake()
	}
	if !r.done && r.live == 0 && r.ready.Len() == 0 {
		r.completeGroup()
		r.logger.Debug("reducer finished", "name", r.name, "inputs", len(r.inputs))
		r.output.SendEndOfStream()
	}
}

func (r *Reducer[K, O, A]) completeGroup() {
	if !r.hasGroup {
		return
	}
	r.hasGroup = false
	acc := r.groupAcc
	var zero A
	r.groupAcc = zero
	r.lastInput.complete(r.groupKey, acc)
	r.metrics.groupCompleted(r.name)
}

// fail closes every input before the output, so the output's cleanup does
// not acknowledge inputs that should see the error.
func (r *Reducer[K, O, A]) fail(err error) {
	if r.done {
		return
	}
	r.done = true
	r.logger.Debug("reducer failed", "name", r.name, "error", err)
	r.metrics.streamFailed(r.name)
	for _, in := range r.inputs {
		in.close(err)
	}
	r.output.CloseWithError(err)
}

type reducerOutput[K, O, A any] struct {
	*BaseSupplier[O]
	r *Reducer[K, O, A]
}

func (o *reducerOutput[K, O, A]) OnResumed() {
	o.r.produce()
}

func (o *reducerOutput[K, O, A]) OnError(err error) {
	o.r.fail(err)
}

func (o *reducerOutput[K, O, A]) OnCleanup() {
	o.r.done = true
	for _, in := range o.r.inputs {
		in.close(nil)
	}
}

// mergeInput is the part of a reducer input that does not depend on its
// item type.
type mergeInput[K, O, A any] interface {
	position() int
	headKey() K
	buffered() int
	isEnded() bool
	first(key K) A
	next(key K, acc A) A
	complete(key K, acc A)
	wake()
	close(err error)
}

type keyed[K, I any] struct {
	key  K
	item I
}

type reducerInput[K, I, O, A any] struct {
	*BaseConsumer[I]
	r        *Reducer[K, O, A]
	index    int
	keyFn    func(I) K
	strategy ReducerStrategy[K, I, O, A]
	acceptor Acceptor[I]
	pending  queue[keyed[K, I]]
	ended    bool
}

func (in *reducerInput[K, I, O, A]) OnStarted() {
	in.Resume(in.acceptor)
}

// Inputs are acknowledged when the output ends, not on their own
// end-of-stream.
func (in *reducerInput[K, I, O, A]) OnEndOfStream() {
	in.ended = true
	in.r.live--
	if in.pending.len() == 0 {
		in.r.awaiting--
	}
	in.r.produce()
}

func (in *reducerInput[K, I, O, A]) OnError(err error) {
	in.r.fail(err)
}

func (in *reducerInput[K, I, O, A]) accept(item I) {
	r := in.r
	if r.done {
		return
	}
	key := in.keyFn(item)
	in.pending.push(keyed[K, I]{key: key, item: item})
	if in.pending.len() == 1 {
		r.awaiting--
		heap.Push(&r.ready, mergeInput[K, O, A](in))
	}
	if in.pending.len() >= r.bufferSize {
		in.Suspend()
	}
	r.produce()
}

func (in *reducerInput[K, I, O, A]) position() int { return in.index }

func (in *reducerInput[K, I, O, A]) headKey() K { return in.pending.peek().key }

func (in *reducerInput[K, I, O, A]) buffered() int { return in.pending.len() }

func (in *reducerInput[K, I, O, A]) isEnded() bool { return in.ended }

func (in *reducerInput[K, I, O, A]) first(key K) A {
	return in.strategy.OnFirstItem(in.r.output, key, in.pending.pop().item)
}

func (in *reducerInput[K, I, O, A]) next(key K, acc A) A {
	return in.strategy.OnNextItem(in.r.output, key, in.pending.pop().item, acc)
}

func (in *reducerInput[K, I, O, A]) complete(key K, acc A) {
	in.strategy.OnComplete(in.r.output, key, acc)
}

func (in *reducerInput[K, I, O, A]) wake() {
	if !in.ended && in.pending.len() < in.r.bufferSize {
		in.Resume(in.acceptor)
	}
}

func (in *reducerInput[K, I, O, A]) close(err error) {
	in.CloseWithError(err)
}

func (in *reducerInput[K, I, O, A]) String() string {
	return fmt.Sprintf("%s[%d]", in.r.name, in.index)
}

// mergeHeap orders inputs by their head key, then by input position.
type mergeHeap[K, O, A any] struct {
	items []mergeInput[K, O, A]
	cmp   func(K, K) int
}

func (h *mergeHeap[K, O, A]) Len() int { return len(h.items) }

func (h *mergeHeap[K, O, A]) Less(i, j int) bool {
	if c := h.cmp(h.items[i].headKey(), h.items[j].headKey()); c != 0 {
		return c < 0
	}
	return h.items[i].position() < h.items[j].position()
}

func (h *mergeHeap[K, O, A]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *mergeHeap[K, O, A]) Push(x any) { h.items = append(h.items, x.(mergeInput[K, O, A])) }

func (h *mergeHeap[K, O, A]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}
