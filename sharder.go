package pushz

import (
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
)

// errNoOutputs closes a sharder that received an item before any output was
// registered.
var errNoOutputs = errors.New("pushz: sharder has no outputs")

// HashPartition returns a partition function hashing key(item) with FNV-1a.
// Items with the same key always land in the same shard.
func HashPartition[T any](key func(T) string) func(T) int {
	return func(item T) int {
		h := fnv.New32a()
		h.Write([]byte(key(item)))
		return int(h.Sum32() & math.MaxInt32)
	}
}

// Sharder routes each item of one input to exactly one of N outputs.
// The output is partition(item) mod N; negative results are normalized.
//
// All outputs share the input's flow control: the input is suspended as soon
// as any output is suspended, and resumed only when every output is ready.
// A failure on the input or on any output closes everything with that error.
//
// Example:
//
//	sharder := pushz.NewSharder(pushz.HashPartition(func(o Order) string {
//		return o.CustomerID
//	}))
//	for i := range workers {
//		pushz.StreamTo(sharder.NewOutput(), workers[i])
//	}
//	pushz.StreamTo(orders, sharder.Input())
//
// Outputs must be registered before the input is bound. The input is
// acknowledged once every output has ended.
type Sharder[T any] struct { //nolint:govet // logical field grouping preferred over memory optimization
	partition func(T) int
	name      string
	logger    *slog.Logger
	metrics   *Metrics

	input   *sharderInput[T]
	outputs []*shardOutput[T]

	notReady int
	ended    int
	done     bool

	totalItems int64
	itemCounts []int64
}

// NewSharder creates a sharder using partition to pick an output.
//
// Default configuration:
//   - Name: "sharder"
func NewSharder[T any](partition func(T) int) *Sharder[T] {
	s := &Sharder[T]{
		partition: partition,
		name:      "sharder",
		logger:    slog.Default(),
	}
	s.input = &sharderInput[T]{s: s}
	s.input.BaseConsumer = NewBaseConsumer[T](s.input)
	s.input.acceptor = NewAcceptor(s.accept)
	return s
}

// WithName sets a custom name used in logs, metrics and errors.
func (s *Sharder[T]) WithName(name string) *Sharder[T] {
	s.name = name
	return s
}

// WithLogger sets the logger.
func (s *Sharder[T]) WithLogger(logger *slog.Logger) *Sharder[T] {
	s.logger = logger
	return s
}

// WithMetrics records per-shard item counts and failures on m.
func (s *Sharder[T]) WithMetrics(m *Metrics) *Sharder[T] {
	s.metrics = m
	return s
}

// Name returns the sharder name.
func (s *Sharder[T]) Name() string {
	return s.name
}

// Input returns the consumer receiving items to route.
func (s *Sharder[T]) Input() Consumer[T] {
	return s.input
}

// NewOutput registers and returns the next output.
func (s *Sharder[T]) NewOutput() Supplier[T] {
	out := &shardOutput[T]{s: s, index: len(s.outputs)}
	out.BaseSupplier = NewBaseSupplier[T](out)
	s.outputs = append(s.outputs, out)
	s.itemCounts = append(s.itemCounts, 0)
	s.notReady++
	out.EndOfStream().OnComplete(func(_ struct{}, err error) {
		if err != nil {
			s.fail(err)
			return
		}
		s.ended++
		if s.ended == len(s.outputs) {
			s.input.Acknowledge()
		}
	})
	return out
}

// Stats returns routing statistics.
func (s *Sharder[T]) Stats() ShardStats {
	return ShardStats{
		TotalItems:    s.totalItems,
		NumShards:     len(s.outputs),
		ItemsPerShard: append([]int64(nil), s.itemCounts...),
	}
}

func (s *Sharder[T]) shardOf(item T) (shard int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	n := len(s.outputs)
	if n == 0 {
		return 0, errNoOutputs
	}
	shard = s.partition(item) % n
	if shard < 0 {
		shard += n
	}
	return shard, nil
}

func (s *Sharder[T]) accept(item T) {
	if s.done {
		return
	}
	shard, err := s.shardOf(item)
	if err != nil {
		s.fail(NewStreamError(item, err, s.name))
		return
	}
	s.totalItems++
	s.itemCounts[shard]++
	s.metrics.shardItem(s.name, shard)
	s.outputs[shard].Send(item)
}

func (s *Sharder[T]) sync() {
	if !s.done && s.notReady == 0 {
		s.input.Resume(s.input.acceptor)
	}
}

func (s *Sharder[T]) fail(err error) {
	if s.done {
		return
	}
	s.done = true
	s.logger.Debug("sharder failed", "name", s.name, "error", err)
	s.metrics.streamFailed(s.name)
	s.input.CloseWithError(err)
	for _, out := range s.outputs {
		out.CloseWithError(err)
	}
}

type sharderInput[T any] struct {
	*BaseConsumer[T]
	s        *Sharder[T]
	acceptor Acceptor[T]
}

func (in *sharderInput[T]) OnStarted() {
	in.s.sync()
}

// The input is acknowledged once every output has ended.
func (in *sharderInput[T]) OnEndOfStream() {
	if len(in.s.outputs) == 0 {
		in.Acknowledge()
		return
	}
	for _, out := range in.s.outputs {
		out.SendEndOfStream()
	}
}

func (in *sharderInput[T]) OnError(err error) {
	in.s.fail(err)
}

type shardOutput[T any] struct {
	*BaseSupplier[T]
	s     *Sharder[T]
	index int
	ready bool
}

func (o *shardOutput[T]) OnResumed() {
	if !o.ready {
		o.ready = true
		o.s.notReady--
	}
	o.s.sync()
}

func (o *shardOutput[T]) OnSuspended() {
	if o.ready {
		o.ready = false
		o.s.notReady++
		o.s.input.Suspend()
	}
}

func (o *shardOutput[T]) OnError(err error) {
	o.s.fail(err)
}

// A closed output no longer holds the others back.
func (o *shardOutput[T]) OnCleanup() {
	if !o.ready {
		o.ready = true
		o.s.notReady--
		o.s.sync()
	}
}

// ShardStats contains statistics about shard distribution.
type ShardStats struct { //nolint:govet // logical field grouping preferred over memory optimization
	TotalItems    int64   // Total items routed
	NumShards     int     // Number of outputs
	ItemsPerShard []int64 // Items routed to each output
}

// DistributionBalance returns the coefficient of variation of the per-shard
// counts: 0 for a perfectly even spread, higher for more skew.
func (s ShardStats) DistributionBalance() float64 {
	if s.TotalItems == 0 || s.NumShards == 0 {
		return 0
	}
	mean := float64(s.TotalItems) / float64(s.NumShards)
	var sum float64
	for _, count := range s.ItemsPerShard {
		d := float64(count) - mean
		sum += d * d
	}
	return math.Sqrt(sum/float64(s.NumShards)) / mean
}

// String returns a string representation of the statistics.
func (s ShardStats) String() string {
	return fmt.Sprintf("ShardStats{Total: %d, Shards: %d, Balance: %.2f}",
		s.TotalItems, s.NumShards, s.DistributionBalance())
}
