package history

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/paystream-io/paystream/pkg/ledger"
)

// defaultChunkSize stays below the block-range limit most public RPC
// providers enforce on eth_getLogs.
const defaultChunkSize = 9000

// EventSource fetches decoded lifecycle events for one kind in a block range.
type EventSource interface {
	FilterEvents(ctx context.Context, kind ledger.EventKind, fromBlock, toBlock uint64, owner *common.Address) ([]ledger.LifecycleEvent, error)
}

// Collector walks a block range in fixed-size chunks and gathers every
// lifecycle event the contract emitted in it.
type Collector struct {
	logger     *zap.Logger
	source     EventSource
	timestamps *Resolver
	chunkSize  uint64
}

func NewCollector(logger *zap.Logger, source EventSource, timestamps *Resolver) *Collector {
	return &Collector{
		logger:     logger,
		source:     source,
		timestamps: timestamps,
		chunkSize:  defaultChunkSize,
	}
}

// Collect fetches all event kinds for every chunk of [fromBlock, toBlock] and
// stamps block timestamps onto the result. Chunks are processed in increasing
// block order so created events precede later activity of the same payment.
// Within a chunk the kinds are fetched concurrently. A chunk whose fetch
// fails is skipped; the scan continues with the next chunk.
func (c *Collector) Collect(ctx context.Context, fromBlock, toBlock uint64, owner *common.Address) []ledger.LifecycleEvent {
	var events []ledger.LifecycleEvent
	for start := fromBlock; start <= toBlock; start += c.chunkSize {
		end := start + c.chunkSize - 1
		if end > toBlock {
			end = toBlock
		}
		byKind, err := iter.MapErr(ledger.FilterKinds, func(kind *ledger.EventKind) ([]ledger.LifecycleEvent, error) {
			return c.source.FilterEvents(ctx, *kind, start, end, owner)
		})
		if err != nil {
			c.logger.Error("failed to fetch chunk, skipping",
				zap.Uint64("from", start),
				zap.Uint64("to", end),
				zap.Error(err))
			continue
		}
		for _, kindEvents := range byKind {
			events = append(events, kindEvents...)
		}
	}
	c.stamp(ctx, events)
	return events
}

func (c *Collector) stamp(ctx context.Context, events []ledger.LifecycleEvent) {
	blocks := make(map[uint64]struct{}, len(events))
	for _, ev := range events {
		blocks[ev.BlockNumber] = struct{}{}
	}
	timestamps := c.timestamps.Resolve(ctx, maps.Keys(blocks))
	for i := range events {
		events[i].Timestamp = timestamps[events[i].BlockNumber]
	}
}
