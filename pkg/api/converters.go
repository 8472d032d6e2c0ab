package api

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/paystream-io/paystream/pkg/history"
	"github.com/paystream-io/paystream/pkg/ledger"
)

// nativeDecimals is the native coin's precision. Token precision is owned by
// token metadata services, so token amounts are returned raw.
const nativeDecimals = 18

type eventResponse struct {
	PaymentID    uint64 `json:"payment_id"`
	Kind         string `json:"kind"`
	TxHash       string `json:"tx_hash"`
	BlockNumber  uint64 `json:"block_number"`
	Timestamp    uint64 `json:"timestamp"`
	Owner        string `json:"owner,omitempty"`
	Counterparty string `json:"counterparty,omitempty"`
	Token        string `json:"token,omitempty"`
	Amount       string `json:"amount,omitempty"`
	Interval     uint64 `json:"interval,omitempty"`
}

type aggregateResponse struct {
	PaymentID       uint64          `json:"payment_id"`
	Description     string          `json:"description"`
	Owner           string          `json:"owner"`
	Recipient       string          `json:"recipient"`
	Amount          string          `json:"amount"`
	AmountUnits     string          `json:"amount_units,omitempty"`
	Token           string          `json:"token,omitempty"`
	Interval        uint64          `json:"interval"`
	CreatedAt       uint64          `json:"created_at"`
	TerminatedAt    uint64          `json:"terminated_at,omitempty"`
	Status          string          `json:"status"`
	TotalExecutions int             `json:"total_executions"`
	TotalPaid       string          `json:"total_paid"`
	TotalPaidUnits  string          `json:"total_paid_units,omitempty"`
	Events          []eventResponse `json:"events"`
}

type historyResponse struct {
	Events     []eventResponse     `json:"events"`
	Aggregates []aggregateResponse `json:"aggregates"`
}

type snapshotResponse struct {
	PaymentID     uint64 `json:"payment_id"`
	Owner         string `json:"owner"`
	Recipient     string `json:"recipient"`
	Amount        string `json:"amount"`
	Token         string `json:"token,omitempty"`
	Interval      uint64 `json:"interval"`
	NextExecution uint64 `json:"next_execution"`
	Active        bool   `json:"active"`
	Description   string `json:"description"`
	NativeBalance string `json:"native_balance"`
	TokenBalance  string `json:"token_balance"`
	EndDate       uint64 `json:"end_date,omitempty"`
}

func convertHistory(h history.History) historyResponse {
	out := historyResponse{
		Events:     make([]eventResponse, 0, len(h.Events)),
		Aggregates: make([]aggregateResponse, 0, len(h.Aggregates)),
	}
	for _, ev := range h.Events {
		out.Events = append(out.Events, convertEvent(ev))
	}
	for _, agg := range h.Aggregates {
		out.Aggregates = append(out.Aggregates, convertAggregate(agg))
	}
	return out
}

func convertEvent(ev ledger.LifecycleEvent) eventResponse {
	res := eventResponse{
		PaymentID:   ev.PaymentID,
		Kind:        string(ev.Kind),
		TxHash:      ev.TxHash.Hex(),
		BlockNumber: ev.BlockNumber,
		Timestamp:   ev.Timestamp,
		Interval:    ev.Interval,
	}
	if ev.Amount != nil {
		res.Amount = ev.Amount.String()
	}
	if !isZeroAddress(ev.Owner) {
		res.Owner = ev.Owner.Hex()
	}
	if !isZeroAddress(ev.Counterparty) {
		res.Counterparty = ev.Counterparty.Hex()
	}
	if !isZeroAddress(ev.Token) {
		res.Token = ev.Token.Hex()
	}
	return res
}

func convertAggregate(agg history.Aggregate) aggregateResponse {
	res := aggregateResponse{
		PaymentID:       agg.PaymentID,
		Description:     agg.Description,
		Owner:           agg.Owner.Hex(),
		Recipient:       agg.Recipient.Hex(),
		Interval:        agg.Interval,
		CreatedAt:       agg.CreatedAt,
		TerminatedAt:    agg.TerminatedAt,
		Status:          string(agg.Status),
		TotalExecutions: agg.TotalExecutions,
		Events:          make([]eventResponse, 0, len(agg.Events)),
	}
	native := isZeroAddress(agg.Token)
	if !native {
		res.Token = agg.Token.Hex()
	}
	if agg.Amount != nil {
		res.Amount = agg.Amount.String()
		if native {
			res.AmountUnits = nativeUnits(agg.Amount)
		}
	}
	if agg.TotalPaid != nil {
		res.TotalPaid = agg.TotalPaid.String()
		if native {
			res.TotalPaidUnits = nativeUnits(agg.TotalPaid)
		}
	}
	for _, ev := range agg.Events {
		res.Events = append(res.Events, convertEvent(ev))
	}
	return res
}

func convertSnapshot(snap ledger.PaymentSnapshot) snapshotResponse {
	res := snapshotResponse{
		PaymentID:     snap.ID,
		Owner:         snap.Owner.Hex(),
		Recipient:     snap.Recipient.Hex(),
		Interval:      snap.Interval,
		NextExecution: snap.NextExecution,
		Active:        snap.Active,
		Description:   snap.Description,
		EndDate:       snap.EndDate,
	}
	if snap.Amount != nil {
		res.Amount = snap.Amount.String()
	}
	if snap.NativeBalance != nil {
		res.NativeBalance = snap.NativeBalance.String()
	}
	if snap.TokenBalance != nil {
		res.TokenBalance = snap.TokenBalance.String()
	}
	if !snap.UsesNativeToken() {
		res.Token = snap.Token.Hex()
	}
	return res
}

func nativeUnits(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -nativeDecimals).String()
}

func isZeroAddress(a [20]byte) bool {
	return a == [20]byte{}
}
