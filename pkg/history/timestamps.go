package history

import (
	"context"

	"github.com/puzpuzpuz/xsync/v2"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/paystream-io/paystream/pkg/cache"
)

// TimestampSource resolves a block number to its unix timestamp.
type TimestampSource interface {
	BlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error)
}

// Resolver resolves block timestamps in batches. Every block is fetched at
// most once per batch and blocks are immutable, so resolved timestamps are
// kept in an LRU cache across indexer runs.
type Resolver struct {
	logger *zap.Logger
	source TimestampSource
	cache  cache.Cache[uint64, uint64]
}

func NewResolver(logger *zap.Logger, source TimestampSource) *Resolver {
	return &Resolver{
		logger: logger,
		source: source,
		cache:  cache.NewLRUCache[uint64, uint64](100000, "block_timestamps"),
	}
}

// Resolve returns a timestamp per block number. Blocks whose fetch fails are
// logged and left out of the result.
func (r *Resolver) Resolve(ctx context.Context, blockNumbers []uint64) map[uint64]uint64 {
	timestamps := make(map[uint64]uint64, len(blockNumbers))
	var misses []uint64
	for _, blockNumber := range blockNumbers {
		if ts, ok := r.cache.Get(blockNumber); ok {
			timestamps[blockNumber] = ts
			continue
		}
		misses = append(misses, blockNumber)
	}
	resolved := xsync.NewIntegerMapOf[uint64, uint64]()
	iter.ForEach(misses, func(blockNumber *uint64) {
		ts, err := r.source.BlockTimestamp(ctx, *blockNumber)
		if err != nil {
			r.logger.Warn("failed to resolve block timestamp", zap.Uint64("block", *blockNumber), zap.Error(err))
			return
		}
		resolved.Store(*blockNumber, ts)
	})
	resolved.Range(func(blockNumber, ts uint64) bool {
		r.cache.Set(blockNumber, ts)
		timestamps[blockNumber] = ts
		return true
	})
	return timestamps
}
