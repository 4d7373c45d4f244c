package pushz

// queue is a ring-buffer FIFO of pending items. Its capacity follows the
// peak length, not the number of items that ever passed through it.
type queue[T any] struct {
	items []T
	head  int
	size  int
}

func (q *queue[T]) push(item T) {
	if q.size == len(q.items) {
		q.grow()
	}
	q.items[(q.head+q.size)%len(q.items)] = item
	q.size++
}

func (q *queue[T]) grow() {
	n := 2 * len(q.items)
	if n == 0 {
		n = 4
	}
	items := make([]T, n)
	k := copy(items, q.items[q.head:])
	copy(items[k:], q.items[:q.head])
	q.items = items
	q.head = 0
}

func (q *queue[T]) pop() T {
	var zero T
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.size--
	if q.size == 0 {
		q.head = 0
	}
	return item
}

func (q *queue[T]) peek() T {
	return q.items[q.head]
}

func (q *queue[T]) len() int {
	return q.size
}

func (q *queue[T]) cap() int {
	return len(q.items)
}

func (q *queue[T]) clear() {
	clear(q.items)
	q.head = 0
	q.size = 0
}
