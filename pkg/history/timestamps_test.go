package history

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingTimestamps struct {
	mu      sync.Mutex
	calls   map[uint64]int
	failing map[uint64]bool
}

func (c *countingTimestamps) BlockTimestamp(_ context.Context, blockNumber uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[uint64]int{}
	}
	c.calls[blockNumber]++
	if c.failing[blockNumber] {
		return 0, errors.New("header not found")
	}
	return blockNumber * 10, nil
}

func TestResolveCachesAcrossRuns(t *testing.T) {
	source := &countingTimestamps{}
	resolver := NewResolver(zap.NewNop(), source)

	first := resolver.Resolve(context.Background(), []uint64{5, 6})
	second := resolver.Resolve(context.Background(), []uint64{5, 6, 7})

	require.Equal(t, map[uint64]uint64{5: 50, 6: 60}, first)
	require.Equal(t, map[uint64]uint64{5: 50, 6: 60, 7: 70}, second)
	require.Equal(t, 1, source.calls[5])
	require.Equal(t, 1, source.calls[6])
	require.Equal(t, 1, source.calls[7])
}

func TestResolveLeavesFailedBlocksOut(t *testing.T) {
	source := &countingTimestamps{failing: map[uint64]bool{6: true}}
	resolver := NewResolver(zap.NewNop(), source)

	resolved := resolver.Resolve(context.Background(), []uint64{5, 6})

	require.Equal(t, map[uint64]uint64{5: 50}, resolved)
}
