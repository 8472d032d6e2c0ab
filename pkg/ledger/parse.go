package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// decodeEvent turns a raw contract log of the given filter kind into a
// LifecycleEvent. The timestamp is left unset; the collector stamps it later.
func decodeEvent(kind EventKind, lg types.Log) (LifecycleEvent, error) {
	name := kindEvents[kind]
	if len(lg.Topics) < 2 {
		return LifecycleEvent{}, fmt.Errorf("log of %v has no payment id topic", name)
	}
	ev := LifecycleEvent{
		PaymentID:   new(big.Int).SetBytes(lg.Topics[1].Bytes()).Uint64(),
		Kind:        kind,
		TxHash:      lg.TxHash,
		BlockNumber: lg.BlockNumber,
		LogIndex:    lg.Index,
	}
	vals, err := contractABI.Unpack(name, lg.Data)
	if err != nil {
		return LifecycleEvent{}, fmt.Errorf("unpack %v: %w", name, err)
	}
	switch kind {
	case KindCreated:
		if len(lg.Topics) < 3 {
			return LifecycleEvent{}, fmt.Errorf("log of %v has no owner topic", name)
		}
		ev.Owner = common.BytesToAddress(lg.Topics[2].Bytes())
		ev.Counterparty = vals[0].(common.Address)
		ev.Token = vals[1].(common.Address)
		ev.Amount = vals[2].(*big.Int)
		ev.Interval = vals[3].(*big.Int).Uint64()
	case KindExecuted:
		ev.Counterparty = vals[0].(common.Address)
		ev.Amount = vals[1].(*big.Int)
	case KindCancelled:
		ev.Owner = vals[0].(common.Address)
	case KindStatusChanged:
		ev.Active = vals[0].(bool)
		if ev.Active {
			ev.Kind = KindResumed
		} else {
			ev.Kind = KindPaused
		}
	case KindToppedUp, KindWithdrawn:
		ev.Token = vals[0].(common.Address)
		ev.Amount = vals[1].(*big.Int)
	default:
		return LifecycleEvent{}, fmt.Errorf("unknown event kind %q", kind)
	}
	return ev, nil
}
