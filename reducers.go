package pushz

// Sender is the emitting side of a supplier, handed to reducer strategies.
type Sender[T any] interface {
	Send(item T)
}

// ReducerStrategy folds the items of one key group into an accumulator and
// emits the result. OnFirstItem starts a group, OnNextItem folds every other
// item with the same key (from any input) and OnComplete emits zero or more
// outputs when the group is done.
type ReducerStrategy[K, I, O, A any] interface {
	OnFirstItem(out Sender[O], key K, item I) A
	OnNextItem(out Sender[O], key K, item I, acc A) A
	OnComplete(out Sender[O], key K, acc A)
}

// ReducerFuncs adapts plain functions to ReducerStrategy. A nil
// OnNextItemFunc keeps the accumulator unchanged and a nil OnCompleteFunc
// emits nothing.
type ReducerFuncs[K, I, O, A any] struct {
	OnFirstItemFunc func(out Sender[O], key K, item I) A
	OnNextItemFunc  func(out Sender[O], key K, item I, acc A) A
	OnCompleteFunc  func(out Sender[O], key K, acc A)
}

func (f ReducerFuncs[K, I, O, A]) OnFirstItem(out Sender[O], key K, item I) A {
	return f.OnFirstItemFunc(out, key, item)
}

func (f ReducerFuncs[K, I, O, A]) OnNextItem(out Sender[O], key K, item I, acc A) A {
	if f.OnNextItemFunc == nil {
		return acc
	}
	return f.OnNextItemFunc(out, key, item, acc)
}

func (f ReducerFuncs[K, I, O, A]) OnComplete(out Sender[O], key K, acc A) {
	if f.OnCompleteFunc != nil {
		f.OnCompleteFunc(out, key, acc)
	}
}

type mergeDistinct[K, T any] struct{}

// MergeDistinct emits the first item of every key group and drops the rest.
// Ties between inputs resolve to the input added first.
func MergeDistinct[K, T any]() ReducerStrategy[K, T, T, T] {
	return mergeDistinct[K, T]{}
}

// Deduplicate is MergeDistinct.
func Deduplicate[K, T any]() ReducerStrategy[K, T, T, T] {
	return MergeDistinct[K, T]()
}

func (mergeDistinct[K, T]) OnFirstItem(_ Sender[T], _ K, item T) T { return item }

func (mergeDistinct[K, T]) OnNextItem(_ Sender[T], _ K, _ T, acc T) T { return acc }

func (mergeDistinct[K, T]) OnComplete(out Sender[T], _ K, acc T) { out.Send(acc) }

type mergeSort[K, T any] struct{}

// MergeSort passes every item through in key order. Items with equal keys
// keep input order.
func MergeSort[K, T any]() ReducerStrategy[K, T, T, struct{}] {
	return mergeSort[K, T]{}
}

func (mergeSort[K, T]) OnFirstItem(out Sender[T], _ K, item T) struct{} {
	out.Send(item)
	return struct{}{}
}

func (mergeSort[K, T]) OnNextItem(out Sender[T], _ K, item T, _ struct{}) struct{} {
	out.Send(item)
	return struct{}{}
}

func (mergeSort[K, T]) OnComplete(Sender[T], K, struct{}) {}

// ToAccumulator builds a strategy from a per-group accumulator: create
// returns a fresh accumulator for key, accumulate folds an item into it and
// the accumulator itself is emitted when the group completes.
func ToAccumulator[K, I, A any](create func(key K) A, accumulate func(acc A, item I) A) ReducerStrategy[K, I, A, A] {
	return ReducerFuncs[K, I, A, A]{
		OnFirstItemFunc: func(_ Sender[A], key K, item I) A {
			return accumulate(create(key), item)
		},
		OnNextItemFunc: func(_ Sender[A], _ K, item I, acc A) A {
			return accumulate(acc, item)
		},
		OnCompleteFunc: func(out Sender[A], _ K, acc A) {
			out.Send(acc)
		},
	}
}

// Combine builds a strategy that merges equal-key items pairwise with fn and
// emits the merged item.
func Combine[K, T any](fn func(a, b T) T) ReducerStrategy[K, T, T, T] {
	return ReducerFuncs[K, T, T, T]{
		OnFirstItemFunc: func(_ Sender[T], _ K, item T) T {
			return item
		},
		OnNextItemFunc: func(_ Sender[T], _ K, item T, acc T) T {
			return fn(acc, item)
		},
		OnCompleteFunc: func(out Sender[T], _ K, acc T) {
			out.Send(acc)
		},
	}
}
