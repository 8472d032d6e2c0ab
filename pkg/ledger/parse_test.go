package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func packEventData(t *testing.T, name string, args ...interface{}) []byte {
	t.Helper()
	data, err := contractABI.Events[name].Inputs.NonIndexed().Pack(args...)
	require.NoError(t, err)
	return data
}

func TestDecodeCreatedEvent(t *testing.T) {
	owner := common.HexToAddress("0x000000000000000000000000000000000000000A")
	recipient := common.HexToAddress("0x000000000000000000000000000000000000000B")
	token := common.HexToAddress("0x00000000000000000000000000000000000000EE")
	lg := types.Log{
		Topics: []common.Hash{
			contractABI.Events["PaymentScheduled"].ID,
			common.BigToHash(big.NewInt(7)),
			common.BytesToHash(owner.Bytes()),
		},
		Data:        packEventData(t, "PaymentScheduled", recipient, token, big.NewInt(100), big.NewInt(3600)),
		BlockNumber: 12,
		TxHash:      common.HexToHash("0x01"),
		Index:       3,
	}

	ev, err := decodeEvent(KindCreated, lg)

	require.NoError(t, err)
	require.Equal(t, uint64(7), ev.PaymentID)
	require.Equal(t, KindCreated, ev.Kind)
	require.Equal(t, owner, ev.Owner)
	require.Equal(t, recipient, ev.Counterparty)
	require.Equal(t, token, ev.Token)
	require.Equal(t, big.NewInt(100), ev.Amount)
	require.Equal(t, uint64(3600), ev.Interval)
	require.Equal(t, uint64(12), ev.BlockNumber)
	require.Equal(t, uint(3), ev.LogIndex)
}

func TestDecodeExecutedEvent(t *testing.T) {
	recipient := common.HexToAddress("0x000000000000000000000000000000000000000B")
	lg := types.Log{
		Topics: []common.Hash{
			contractABI.Events["PaymentExecuted"].ID,
			common.BigToHash(big.NewInt(7)),
		},
		Data: packEventData(t, "PaymentExecuted", recipient, big.NewInt(100), big.NewInt(1700003600)),
	}

	ev, err := decodeEvent(KindExecuted, lg)

	require.NoError(t, err)
	require.Equal(t, KindExecuted, ev.Kind)
	require.Equal(t, recipient, ev.Counterparty)
	require.Equal(t, big.NewInt(100), ev.Amount)
}

func TestDecodeStatusChangedSplitsPausedAndResumed(t *testing.T) {
	makeLog := func(active bool) types.Log {
		return types.Log{
			Topics: []common.Hash{
				contractABI.Events["PaymentStatusChanged"].ID,
				common.BigToHash(big.NewInt(9)),
			},
			Data: packEventData(t, "PaymentStatusChanged", active),
		}
	}

	paused, err := decodeEvent(KindStatusChanged, makeLog(false))
	require.NoError(t, err)
	require.Equal(t, KindPaused, paused.Kind)

	resumed, err := decodeEvent(KindStatusChanged, makeLog(true))
	require.NoError(t, err)
	require.Equal(t, KindResumed, resumed.Kind)
	require.True(t, resumed.Active)
}

func TestDecodeRejectsLogWithoutIDTopic(t *testing.T) {
	lg := types.Log{Topics: []common.Hash{contractABI.Events["PaymentCancelled"].ID}}

	_, err := decodeEvent(KindCancelled, lg)

	require.Error(t, err)
}
