package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind identifies one lifecycle event type of a scheduled payment.
type EventKind string

const (
	KindCreated   EventKind = "created"
	KindExecuted  EventKind = "executed"
	KindCancelled EventKind = "cancelled"
	KindPaused    EventKind = "paused"
	KindResumed   EventKind = "resumed"
	KindToppedUp  EventKind = "topped-up"
	KindWithdrawn EventKind = "withdrawn"

	// KindStatusChanged is a filter-level kind: the contract emits a single
	// status log which decodes to either KindPaused or KindResumed.
	KindStatusChanged EventKind = "status-changed"
)

// FilterKinds are the kinds accepted by FilterEvents, in the order the
// collector fetches them within a chunk.
var FilterKinds = []EventKind{
	KindCreated,
	KindExecuted,
	KindCancelled,
	KindStatusChanged,
	KindToppedUp,
	KindWithdrawn,
}

// PaymentSnapshot is the current contract state of one scheduled payment.
// The contract is the only writer; every read returns a fresh copy.
type PaymentSnapshot struct {
	ID            uint64
	Owner         common.Address
	Recipient     common.Address
	Amount        *big.Int
	Token         common.Address // zero address means the chain's native coin
	Interval      uint64         // seconds between executions
	NextExecution uint64         // unix seconds
	Active        bool
	Description   string
	NativeBalance *big.Int
	TokenBalance  *big.Int
	EndDate       uint64 // unix seconds, 0 means no end date
}

// UsesNativeToken reports whether the payment pays out the chain's native coin.
func (s PaymentSnapshot) UsesNativeToken() bool {
	return s.Token == (common.Address{})
}

// ExecutableBalance returns the balance the next execution will be debited from.
func (s PaymentSnapshot) ExecutableBalance() *big.Int {
	if s.UsesNativeToken() {
		return s.NativeBalance
	}
	return s.TokenBalance
}

// LifecycleEvent is one decoded log entry of the scheduler contract.
// Events are immutable; Timestamp is stamped after collection by the
// block timestamp resolver.
type LifecycleEvent struct {
	PaymentID    uint64         `json:"payment_id"`
	Kind         EventKind      `json:"kind"`
	TxHash       common.Hash    `json:"tx_hash"`
	BlockNumber  uint64         `json:"block_number"`
	LogIndex     uint           `json:"log_index"`
	Timestamp    uint64         `json:"timestamp"`
	Owner        common.Address `json:"owner,omitempty"`        // created, cancelled
	Counterparty common.Address `json:"counterparty,omitempty"` // created, executed: recipient
	Token        common.Address `json:"token,omitempty"`
	Amount       *big.Int       `json:"amount,omitempty"`
	Interval     uint64         `json:"interval,omitempty"` // created only
	Active       bool           `json:"active,omitempty"`   // paused, resumed
}
