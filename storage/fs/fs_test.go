package fs

import (
	"cmp"
	"errors"
	"math"
	"math/rand"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/pushz"
	"github.com/zoobzio/pushz/storage"
)

func newTestStorage[T any](t *testing.T, loop *pushz.Eventloop, codec storage.Codec[T], cfg Config) *Storage[T] {
	t.Helper()
	cfg.Dir = t.TempDir()
	s, err := New(loop, codec, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// stream connects supplier to consumer on loop and runs it to idle.
func stream[T any](loop *pushz.Eventloop, supplier pushz.Supplier[T], consumer pushz.Consumer[T]) *pushz.Promise[struct{}] {
	var done *pushz.Promise[struct{}]
	loop.Post(func() {
		done = pushz.StreamTo(supplier, consumer)
	})
	loop.Run()
	return done
}

func sequence(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestNew(t *testing.T) {
	s, err := New(pushz.NewEventloop(), storage.JSON[int]{}, Config{Dir: t.TempDir()})
	require.NoError(t, err)

	assert.DirExists(t, s.Dir())
	assert.Equal(t, DefaultConfig().BufferSize, s.config.BufferSize)
	assert.Equal(t, DefaultConfig().ReadBatch, s.config.ReadBatch)

	require.NoError(t, s.Close())
	assert.NoDirExists(t, s.Dir())
}

func TestStorage_WriteThenRead(t *testing.T) {
	tests := []struct {
		name  string
		items int
		cfg   Config
	}{
		{"empty run", 0, Config{BufferSize: 4, ReadBatch: 4}},
		{"partial batch", 3, Config{BufferSize: 4, ReadBatch: 4}},
		{"exact batches", 8, Config{BufferSize: 4, ReadBatch: 2}},
		{"many batches", 1000, Config{BufferSize: 7, ReadBatch: 13}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop := pushz.NewEventloop()
			s := newTestStorage[int](t, loop, storage.Gob[int]{}, tt.cfg)
			want := sequence(tt.items)

			done := stream(loop, pushz.OfSlice(want), s.Write(1))
			require.NoError(t, done.Err())
			require.True(t, done.IsResult())
			assert.FileExists(t, s.path(1))

			list := pushz.ToList[int]()
			done = stream(loop, s.Read(1), pushz.Consumer[int](list))
			require.NoError(t, done.Err())
			assert.Equal(t, len(want), len(list.List()))
			if len(want) > 0 {
				assert.Equal(t, want, list.List())
			}
		})
	}
}

func TestStorage_ReadMissingRun(t *testing.T) {
	loop := pushz.NewEventloop()
	s := newTestStorage[int](t, loop, storage.JSON[int]{}, Config{})

	done := stream(loop, s.Read(7), pushz.Consumer[int](pushz.ToList[int]()))

	assert.ErrorIs(t, done.Err(), pushz.ErrRunNotFound)
}

func TestStorage_FailedWriteRemovesRun(t *testing.T) {
	boom := errors.New("boom")
	loop := pushz.NewEventloop()
	s := newTestStorage[int](t, loop, storage.JSON[int]{}, Config{BufferSize: 2})

	input := pushz.Concat(pushz.Of(1, 2, 3, 4, 5), pushz.ClosingWithError[int](boom))
	done := stream(loop, input, s.Write(2))

	assert.ErrorIs(t, done.Err(), boom)
	assert.NoFileExists(t, s.path(2))
}

func TestStorage_OversizedRecordFailsWrite(t *testing.T) {
	loop := pushz.NewEventloop()
	s := newTestStorage[string](t, loop, storage.JSON[string]{}, Config{MaxRecordSize: 16})

	done := stream(loop, pushz.Of("short", strings.Repeat("x", 64)), s.Write(4))

	require.ErrorIs(t, done.Err(), storage.ErrFrameTooLarge)
	assert.NoFileExists(t, s.path(4))
}

func TestStorage_EncodeFailure(t *testing.T) {
	loop := pushz.NewEventloop()
	s := newTestStorage[float64](t, loop, storage.JSON[float64]{}, Config{})

	done := stream(loop, pushz.Of(1.5, math.NaN()), s.Write(3))

	assert.ErrorContains(t, done.Err(), "unsupported value")
	assert.NoFileExists(t, s.path(3))
}

func TestStorage_CloseWhileOpening(t *testing.T) {
	boom := errors.New("boom")
	loop := pushz.NewEventloop()
	s := newTestStorage[int](t, loop, storage.JSON[int]{}, Config{})

	w := s.Write(4)
	var done *pushz.Promise[struct{}]
	loop.Post(func() {
		done = pushz.StreamTo(pushz.Of(1, 2), w)
		w.CloseWithError(boom)
	})
	loop.Run()

	assert.ErrorIs(t, done.Err(), boom)
	assert.NoFileExists(t, s.path(4))
}

func TestStorage_Cleanup(t *testing.T) {
	loop := pushz.NewEventloop()
	s := newTestStorage[int](t, loop, storage.JSON[int]{}, Config{})

	for id := 0; id < 3; id++ {
		require.NoError(t, stream(loop, pushz.Of(id), s.Write(id)).Err())
	}

	var cleaned *pushz.Promise[struct{}]
	loop.Post(func() {
		cleaned = s.Cleanup([]int{0, 1, 2, 99})
	})
	loop.Run()

	require.NoError(t, cleaned.Err())
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStorage_Sorter(t *testing.T) {
	loop := pushz.NewEventloop().WithWorkers(4)
	s := newTestStorage[int](t, loop, storage.JSON[int]{}, Config{BufferSize: 16, ReadBatch: 8})

	rng := rand.New(rand.NewSource(7))
	input := rng.Perm(2000)
	sorter := pushz.NewSorter[int, int](s, func(v int) int { return v / 2 }, cmp.Compare[int], false, 150)

	list := pushz.ToList[int]()
	var done *pushz.Promise[struct{}]
	loop.Post(func() {
		pushz.StreamTo(pushz.OfSlice(input), sorter.Input())
		done = pushz.StreamTo(sorter.Output(), pushz.Consumer[int](list))
	})
	loop.Run()

	require.NoError(t, done.Err())
	require.Len(t, list.List(), 2000)
	assert.True(t, slices.IsSortedFunc(list.List(), func(a, b int) int { return cmp.Compare(a/2, b/2) }))
	assert.Len(t, sorter.Runs(), 13)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "runs should be cleaned up after the output ends")
}
