package history

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/paystream-io/paystream/pkg/ledger"
)

// Status is the derived termination status of a payment. It is recomputed on
// every run, never stored.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDeleted   Status = "deleted"
)

// Aggregate is the replayed lifecycle of one scheduled payment.
type Aggregate struct {
	PaymentID       uint64                  `json:"payment_id"`
	Description     string                  `json:"description"`
	Owner           common.Address          `json:"owner"`
	Recipient       common.Address          `json:"recipient"`
	Amount          *big.Int                `json:"amount"`
	Token           common.Address          `json:"token"`
	Interval        uint64                  `json:"interval"`
	CreatedAt       uint64                  `json:"created_at"`
	TerminatedAt    uint64                  `json:"terminated_at,omitempty"`
	Status          Status                  `json:"status"`
	TotalExecutions int                     `json:"total_executions"`
	TotalPaid       *big.Int                `json:"total_paid"`
	Events          []ledger.LifecycleEvent `json:"events"`
}

type foldState struct {
	aggregates map[uint64]*Aggregate
}

// foldHandlers dispatches one event kind to its fold rule. Adding a lifecycle
// event type means adding one entry here.
var foldHandlers = map[ledger.EventKind]func(*foldState, ledger.LifecycleEvent){
	ledger.KindCreated:   foldCreated,
	ledger.KindExecuted:  foldExecuted,
	ledger.KindCancelled: foldCancelled,
	ledger.KindPaused:    foldAppend,
	ledger.KindResumed:   foldAppend,
	ledger.KindToppedUp:  foldAppend,
	ledger.KindWithdrawn: foldAppend,
}

// Fold replays events in the order collected into per-payment aggregates.
// The fold is pure: the same event list always yields the same result.
// Events whose payment was never created in this fold (possible when an owner
// filter excluded the create) contribute no aggregate; they stay visible in
// the flat event list the indexer returns.
func Fold(events []ledger.LifecycleEvent) map[uint64]*Aggregate {
	s := &foldState{aggregates: make(map[uint64]*Aggregate)}
	for _, ev := range events {
		handle, ok := foldHandlers[ev.Kind]
		if !ok {
			continue
		}
		handle(s, ev)
	}
	return s.aggregates
}

func foldCreated(s *foldState, ev ledger.LifecycleEvent) {
	if _, ok := s.aggregates[ev.PaymentID]; ok {
		// duplicate create, keep the first
		return
	}
	s.aggregates[ev.PaymentID] = &Aggregate{
		PaymentID: ev.PaymentID,
		Owner:     ev.Owner,
		Recipient: ev.Counterparty,
		Amount:    ev.Amount,
		Token:     ev.Token,
		Interval:  ev.Interval,
		CreatedAt: ev.Timestamp,
		Status:    StatusActive,
		TotalPaid: new(big.Int),
		Events:    []ledger.LifecycleEvent{ev},
	}
}

func foldExecuted(s *foldState, ev ledger.LifecycleEvent) {
	agg, ok := s.aggregates[ev.PaymentID]
	if !ok {
		return
	}
	agg.TotalExecutions++
	agg.TotalPaid = new(big.Int).Add(agg.TotalPaid, ev.Amount)
	agg.Events = append(agg.Events, ev)
}

func foldCancelled(s *foldState, ev ledger.LifecycleEvent) {
	agg, ok := s.aggregates[ev.PaymentID]
	if !ok {
		return
	}
	// A cancel event is authoritative: no reconciliation may downgrade it.
	agg.Status = StatusDeleted
	agg.TerminatedAt = ev.Timestamp
	agg.Events = append(agg.Events, ev)
}

func foldAppend(s *foldState, ev ledger.LifecycleEvent) {
	agg, ok := s.aggregates[ev.PaymentID]
	if !ok {
		return
	}
	agg.Events = append(agg.Events, ev)
}
