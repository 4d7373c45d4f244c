package pushz

import "fmt"

// MemoryStorage is a SorterStorage keeping runs in memory. It is useful for
// tests and for bounding sort buffers by item count rather than memory.
type MemoryStorage[T any] struct {
	runs map[int][]T
}

// NewMemoryStorage creates an empty in-memory run store.
func NewMemoryStorage[T any]() *MemoryStorage[T] {
	return &MemoryStorage[T]{runs: make(map[int][]T)}
}

// Write returns a consumer collecting run runID. The run becomes readable
// once the consumer acknowledges.
func (m *MemoryStorage[T]) Write(runID int) Consumer[T] {
	list := ToList[T]()
	list.Result().OnResult(func(items []T) {
		m.runs[runID] = items
	})
	return list
}

// Read streams run runID, or fails with ErrRunNotFound.
func (m *MemoryStorage[T]) Read(runID int) Supplier[T] {
	items, ok := m.runs[runID]
	if !ok {
		return ClosingWithError[T](fmt.Errorf("run %d: %w", runID, ErrRunNotFound))
	}
	return OfSlice(items)
}

// Cleanup drops the given runs.
func (m *MemoryStorage[T]) Cleanup(runIDs []int) *Promise[struct{}] {
	for _, id := range runIDs {
		delete(m.runs, id)
	}
	return Done()
}

// Len returns the number of stored runs.
func (m *MemoryStorage[T]) Len() int {
	return len(m.runs)
}
