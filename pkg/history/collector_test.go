package history

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paystream-io/paystream/pkg/ledger"
)

type fakeEventSource struct {
	mu       sync.Mutex
	chunks   [][2]uint64
	events   map[[2]uint64][]ledger.LifecycleEvent
	failFrom map[uint64]bool
}

func (f *fakeEventSource) FilterEvents(_ context.Context, kind ledger.EventKind, fromBlock, toBlock uint64, _ *common.Address) ([]ledger.LifecycleEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFrom[fromBlock] {
		return nil, errors.New("rpc: query returned more than 10000 results")
	}
	if kind == ledger.KindCreated {
		f.chunks = append(f.chunks, [2]uint64{fromBlock, toBlock})
	}
	var out []ledger.LifecycleEvent
	for _, ev := range f.events[[2]uint64{fromBlock, toBlock}] {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out, nil
}

type fakeTimestamps struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTimestamps) BlockTimestamp(_ context.Context, blockNumber uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return blockNumber + 1000, nil
}

func newTestCollector(source EventSource, ts TimestampSource) *Collector {
	logger := zap.NewNop()
	return NewCollector(logger, source, NewResolver(logger, ts))
}

func TestCollectSplitsRangeIntoChunks(t *testing.T) {
	source := &fakeEventSource{events: map[[2]uint64][]ledger.LifecycleEvent{}}

	newTestCollector(source, &fakeTimestamps{}).Collect(context.Background(), 0, 20000, nil)

	require.Equal(t, [][2]uint64{{0, 8999}, {9000, 17999}, {18000, 20000}}, source.chunks)
}

func TestCollectSurvivesChunkFailure(t *testing.T) {
	first := createdEvent(1, 100, 60)
	first.BlockNumber = 5
	third := executedEvent(1, 100)
	third.BlockNumber = 18005
	source := &fakeEventSource{
		events: map[[2]uint64][]ledger.LifecycleEvent{
			{0, 8999}:      {first},
			{18000, 20000}: {third},
		},
		failFrom: map[uint64]bool{9000: true},
	}

	events := newTestCollector(source, &fakeTimestamps{}).Collect(context.Background(), 0, 20000, nil)

	require.Len(t, events, 2)
	require.Equal(t, ledger.KindCreated, events[0].Kind)
	require.Equal(t, ledger.KindExecuted, events[1].Kind)
}

func TestCollectStampsTimestamps(t *testing.T) {
	created := createdEvent(1, 100, 60)
	created.BlockNumber = 10
	executed := executedEvent(1, 100)
	executed.BlockNumber = 10
	second := executedEvent(1, 100)
	second.BlockNumber = 42
	timestamps := &fakeTimestamps{}
	source := &fakeEventSource{
		events: map[[2]uint64][]ledger.LifecycleEvent{
			// a range shorter than one chunk is clamped to toBlock
			{0, 100}: {created, executed, second},
		},
	}

	events := newTestCollector(source, timestamps).Collect(context.Background(), 0, 100, nil)

	require.Len(t, events, 3)
	for _, ev := range events {
		require.Equal(t, ev.BlockNumber+1000, ev.Timestamp)
	}
	// two distinct blocks, one lookup each
	require.Equal(t, 2, timestamps.calls)
}
