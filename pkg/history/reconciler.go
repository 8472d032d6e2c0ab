package history

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/paystream-io/paystream/pkg/ledger"
)

// SnapshotSource fetches the current contract state of one payment.
type SnapshotSource interface {
	Payment(ctx context.Context, id uint64) (ledger.PaymentSnapshot, error)
}

// Reconciler overlays current contract state onto event-derived aggregates
// and derives each payment's termination status.
type Reconciler struct {
	logger    *zap.Logger
	snapshots SnapshotSource
	now       func() time.Time
}

func NewReconciler(logger *zap.Logger, snapshots SnapshotSource) *Reconciler {
	return &Reconciler{
		logger:    logger,
		snapshots: snapshots,
		now:       time.Now,
	}
}

// Reconcile enriches every aggregate in place. Snapshot fetches run
// concurrently; each payment is an independent read. Aggregates already
// deleted by a cancel event are left untouched. A failed fetch keeps the
// event-derived fields and is logged.
func (r *Reconciler) Reconcile(ctx context.Context, aggregates map[uint64]*Aggregate) {
	iter.ForEach(maps.Values(aggregates), func(aggregate **Aggregate) {
		agg := *aggregate
		if agg.Status == StatusDeleted {
			return
		}
		snap, err := r.snapshots.Payment(ctx, agg.PaymentID)
		if err != nil {
			r.logger.Warn("failed to fetch payment snapshot", zap.Uint64("payment", agg.PaymentID), zap.Error(err))
			return
		}
		agg.Description = snap.Description
		agg.Recipient = snap.Recipient
		agg.Amount = snap.Amount
		agg.Token = snap.Token
		agg.Interval = snap.Interval
		agg.Status, agg.TerminatedAt = classify(snap, uint64(r.now().Unix()))
	})
}

// classify derives the termination status from the current snapshot.
// Priority: an inactive payment past its end date completed; an inactive
// payment with both balances drained is treated as deleted even without a
// cancel event, since the contract zeroes balances on deletion. That last
// rule is a heuristic: a payment that naturally exhausted its funds without
// an end date looks identical.
func classify(snap ledger.PaymentSnapshot, now uint64) (Status, uint64) {
	switch {
	case snap.Active:
		return StatusActive, 0
	case snap.EndDate > 0 && now >= snap.EndDate:
		return StatusCompleted, snap.EndDate
	case snap.NativeBalance.Sign() == 0 && snap.TokenBalance.Sign() == 0:
		return StatusDeleted, 0
	default:
		return StatusActive, 0
	}
}
