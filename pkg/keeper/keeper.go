package keeper

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/paystream-io/paystream/pkg/ledger"
)

// Ledger is the contract surface the keeper consumes. *ledger.Client
// implements it.
type Ledger interface {
	PaymentCount(ctx context.Context) (uint64, error)
	Payment(ctx context.Context, id uint64) (ledger.PaymentSnapshot, error)
	EstimateExecution(ctx context.Context, id uint64) (uint64, error)
	ExecutePayment(ctx context.Context, id uint64, gasLimit uint64) (*types.Transaction, error)
	WaitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// The gas estimate is buffered so a state change between estimation and
// inclusion does not leave the execution out of gas.
const (
	gasSafetyNumerator   = 125
	gasSafetyDenominator = 100
)

const (
	defaultTickInterval        = 10 * time.Second
	defaultConfirmationTimeout = 2 * time.Minute
)

// Keeper scans all scheduled payments on a fixed cadence and submits an
// execution transaction for every payment that is due and funded. It holds
// no state of its own: every tick is a pure function of contract state and
// wall clock, so a restart just starts scanning again.
type Keeper struct {
	logger         *zap.Logger
	ledger         Ledger
	tickInterval   time.Duration
	confirmTimeout time.Duration
	now            func() time.Time
}

type Options struct {
	tickInterval   time.Duration
	confirmTimeout time.Duration
	now            func() time.Time
}

type Option func(o *Options)

func WithTickInterval(d time.Duration) Option {
	return func(o *Options) {
		o.tickInterval = d
	}
}

func WithConfirmationTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.confirmTimeout = d
	}
}

// WithClock replaces the wall clock, used in tests.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.now = now
	}
}

func New(logger *zap.Logger, ldgr Ledger, opts ...Option) *Keeper {
	o := &Options{
		tickInterval:   defaultTickInterval,
		confirmTimeout: defaultConfirmationTimeout,
		now:            time.Now,
	}
	for i := range opts {
		opts[i](o)
	}
	return &Keeper{
		logger:         logger,
		ledger:         ldgr,
		tickInterval:   o.tickInterval,
		confirmTimeout: o.confirmTimeout,
		now:            o.now,
	}
}

// Failure records one payment that could not be executed during a tick.
type Failure struct {
	PaymentID uint64 `json:"id"`
	Reason    string `json:"reason"`
}

type tickSummary struct {
	Scanned  int
	Due      int
	Executed int
	Failures []Failure
}

// Run ticks until ctx is cancelled. The next tick starts only after the
// previous one fully finished, so ticks never overlap.
func (k *Keeper) Run(ctx context.Context) {
	for {
		started := k.now()
		summary := k.tick(ctx)
		k.logger.Info("tick finished",
			zap.Time("tick", started),
			zap.Int("scanned", summary.Scanned),
			zap.Int("due", summary.Due),
			zap.Int("executed", summary.Executed),
			zap.Any("failures", summary.Failures))
		select {
		case <-ctx.Done():
			return
		case <-time.After(k.tickInterval):
		}
	}
}

type paymentState int

const (
	stateSkipped paymentState = iota
	stateWaiting
	stateDue
)

// classify evaluates one snapshot against the wall clock. There is no
// per-payment state machine between ticks; the contract is the only durable
// state.
func classify(snap ledger.PaymentSnapshot, now uint64) paymentState {
	if snap.Active {
		if snap.NextExecution <= now {
			return stateDue
		}
		return stateWaiting
	}
	if snap.NativeBalance.Sign() == 0 && snap.TokenBalance.Sign() == 0 {
		return stateSkipped
	}
	return stateWaiting
}

func (k *Keeper) tick(ctx context.Context) tickSummary {
	timer := prometheus.NewTimer(tickDuration)
	defer timer.ObserveDuration()
	defer ticksTotal.Inc()

	var summary tickSummary
	count, err := k.ledger.PaymentCount(ctx)
	if err != nil {
		k.logger.Error("failed to read payment count", zap.Error(err))
		return summary
	}
	now := uint64(k.now().Unix())
	for id := uint64(1); id <= count; id++ {
		summary.Scanned++
		snap, err := k.ledger.Payment(ctx, id)
		if err != nil {
			failuresTotal.WithLabelValues("fetch").Inc()
			summary.Failures = append(summary.Failures, Failure{PaymentID: id, Reason: fmt.Sprintf("fetch snapshot: %v", err)})
			continue
		}
		if classify(snap, now) != stateDue {
			continue
		}
		summary.Due++
		if snap.ExecutableBalance().Cmp(snap.Amount) < 0 {
			underfundedTotal.Inc()
			k.logger.Info("due payment is underfunded, skipping",
				zap.Uint64("payment", id),
				zap.String("balance", snap.ExecutableBalance().String()),
				zap.String("amount", snap.Amount.String()))
			continue
		}
		if err := k.execute(ctx, id); err != nil {
			summary.Failures = append(summary.Failures, Failure{PaymentID: id, Reason: err.Error()})
			continue
		}
		summary.Executed++
	}
	return summary
}

// execute runs the two-phase protocol: a dry-run estimate first, then the
// real submission with a buffered gas limit. Estimation and submission
// failures are distinct, both isolated to this payment and this tick.
func (k *Keeper) execute(ctx context.Context, id uint64) error {
	estimate, err := k.ledger.EstimateExecution(ctx, id)
	if err != nil {
		failuresTotal.WithLabelValues("estimate").Inc()
		return fmt.Errorf("estimate: %w", err)
	}
	gasLimit := estimate * gasSafetyNumerator / gasSafetyDenominator
	tx, err := k.ledger.ExecutePayment(ctx, id, gasLimit)
	if err != nil {
		failuresTotal.WithLabelValues("submit").Inc()
		return fmt.Errorf("submit: %w", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, k.confirmTimeout)
	defer cancel()
	receipt, err := k.ledger.WaitConfirmed(waitCtx, tx)
	if err != nil {
		failuresTotal.WithLabelValues("confirm").Inc()
		return fmt.Errorf("confirm: %w", err)
	}
	executionsTotal.Inc()
	k.logger.Info("payment executed",
		zap.Uint64("payment", id),
		zap.Stringer("tx", tx.Hash()),
		zap.Uint64("gas_used", receipt.GasUsed))
	return nil
}
