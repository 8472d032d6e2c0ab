package history

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/paystream-io/paystream/pkg/ledger"
)

// Source is the ledger surface the indexer consumes. *ledger.Client
// implements it.
type Source interface {
	EventSource
	TimestampSource
	SnapshotSource
	Head(ctx context.Context) (uint64, error)
}

// History is the indexer's output: the flat event timeline, newest first,
// and one aggregate per payment, newest first.
type History struct {
	Events     []ledger.LifecycleEvent `json:"events"`
	Aggregates []Aggregate             `json:"aggregates"`
}

// Indexer rebuilds payment lifecycles from the contract's event log.
// It keeps no state between calls; every invocation re-derives everything
// from the chain.
type Indexer struct {
	logger     *zap.Logger
	collector  *Collector
	reconciler *Reconciler
	source     Source
	startBlock uint64
}

func NewIndexer(logger *zap.Logger, source Source, startBlock uint64) *Indexer {
	return &Indexer{
		logger:     logger,
		collector:  NewCollector(logger, source, NewResolver(logger, source)),
		reconciler: NewReconciler(logger, source),
		source:     source,
		startBlock: startBlock,
	}
}

// History scans the chain from the contract's deployment block to the current
// head and replays every lifecycle event into aggregates. An optional owner
// narrows the scan to payments created by that address. The result is best
// effort: failed chunks or snapshot fetches reduce it, only a head that
// cannot be resolved at all fails the run.
func (idx *Indexer) History(ctx context.Context, owner *common.Address) (History, error) {
	head, err := idx.source.Head(ctx)
	if err != nil {
		return History{}, fmt.Errorf("resolve chain head: %w", err)
	}
	events := idx.collector.Collect(ctx, idx.startBlock, head, owner)
	aggregates := Fold(events)
	idx.reconciler.Reconcile(ctx, aggregates)

	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp > events[j].Timestamp
		}
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber > events[j].BlockNumber
		}
		return events[i].LogIndex > events[j].LogIndex
	})

	list := make([]Aggregate, 0, len(aggregates))
	for _, agg := range maps.Values(aggregates) {
		list = append(list, *agg)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt > list[j].CreatedAt
		}
		return list[i].PaymentID > list[j].PaymentID
	})

	return History{Events: events, Aggregates: list}, nil
}
