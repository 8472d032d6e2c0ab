package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/avast/retry-go"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Client talks to the PaymentScheduler contract over a JSON-RPC endpoint.
// All reads are retried a few times before the error is reported; writes are
// submitted exactly once.
type Client struct {
	logger   *zap.Logger
	eth      *ethclient.Client
	contract common.Address
	chainID  *big.Int
	key      *ecdsa.PrivateKey
	sender   common.Address
}

type Options struct {
	key *ecdsa.PrivateKey
}

type Option func(o *Options)

// WithKeeperKey configures the key used to sign execution transactions.
// Without it the client is read-only.
func WithKeeperKey(key *ecdsa.PrivateKey) Option {
	return func(o *Options) {
		o.key = key
	}
}

func NewClient(ctx context.Context, logger *zap.Logger, rpcURL string, contract common.Address, opts ...Option) (*Client, error) {
	o := &Options{}
	for i := range opts {
		opts[i](o)
	}
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %v: %w", rpcURL, err)
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve chain id: %w", err)
	}
	c := &Client{
		logger:   logger,
		eth:      eth,
		contract: contract,
		chainID:  chainID,
		key:      o.key,
	}
	if o.key != nil {
		c.sender = crypto.PubkeyToAddress(o.key.PublicKey)
	}
	return c, nil
}

// Head returns the latest block number.
func (c *Client) Head(ctx context.Context) (uint64, error) {
	var head uint64
	err := retry.Do(func() error {
		var err error
		head, err = c.eth.BlockNumber(ctx)
		return err
	}, retry.Attempts(10), retry.Delay(10*time.Millisecond))
	return head, err
}

// PaymentCount returns the contract's running payment counter. Ids are
// assigned from 1 up to and including this value.
func (c *Client) PaymentCount(ctx context.Context) (uint64, error) {
	out, err := c.call(ctx, "paymentCount")
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

// Payment returns the current contract state of one scheduled payment.
func (c *Client) Payment(ctx context.Context, id uint64) (PaymentSnapshot, error) {
	out, err := c.call(ctx, "getPayment", new(big.Int).SetUint64(id))
	if err != nil {
		return PaymentSnapshot{}, err
	}
	return PaymentSnapshot{
		ID:            id,
		Owner:         out[0].(common.Address),
		Recipient:     out[1].(common.Address),
		Amount:        out[2].(*big.Int),
		Token:         out[3].(common.Address),
		Interval:      out[4].(*big.Int).Uint64(),
		NextExecution: out[5].(*big.Int).Uint64(),
		Active:        out[6].(bool),
		Description:   out[7].(string),
		NativeBalance: out[8].(*big.Int),
		TokenBalance:  out[9].(*big.Int),
		EndDate:       out[10].(*big.Int).Uint64(),
	}, nil
}

// FilterEvents fetches and decodes all logs of one kind in [fromBlock, toBlock].
// For the created kind an optional owner narrows the query at the topic level;
// other kinds do not index the owner and are returned unfiltered.
func (c *Client) FilterEvents(ctx context.Context, kind EventKind, fromBlock, toBlock uint64, owner *common.Address) ([]LifecycleEvent, error) {
	name, ok := kindEvents[kind]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	topics := [][]common.Hash{{contractABI.Events[name].ID}}
	if owner != nil && kind == KindCreated {
		topics = append(topics, nil, []common.Hash{common.BytesToHash(owner.Bytes())})
	}
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.contract},
		Topics:    topics,
	}
	var logs []types.Log
	err := retry.Do(func() error {
		var err error
		logs, err = c.eth.FilterLogs(ctx, query)
		return err
	}, retry.Attempts(10), retry.Delay(10*time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("filter %v logs: %w", kind, err)
	}
	events := make([]LifecycleEvent, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		ev, err := decodeEvent(kind, lg)
		if err != nil {
			c.logger.Warn("skipping undecodable log",
				zap.Stringer("tx", lg.TxHash),
				zap.Uint64("block", lg.BlockNumber),
				zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// BlockTimestamp returns the unix timestamp of the given block.
func (c *Client) BlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	var header *types.Header
	err := retry.Do(func() error {
		var err error
		header, err = c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
		return err
	}, retry.Attempts(10), retry.Delay(10*time.Millisecond))
	if err != nil {
		return 0, err
	}
	return header.Time, nil
}

// EstimateExecution dry-runs executePayment(id) and returns the gas estimate.
// A revert during estimation surfaces the contract's revert reason.
func (c *Client) EstimateExecution(ctx context.Context, id uint64) (uint64, error) {
	if c.key == nil {
		return 0, errors.New("keeper key not configured")
	}
	data, err := contractABI.Pack("executePayment", new(big.Int).SetUint64(id))
	if err != nil {
		return 0, err
	}
	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.sender,
		To:   &c.contract,
		Data: data,
	})
	if err != nil {
		return 0, errors.New(revertReason(err))
	}
	return gas, nil
}

// ExecutePayment signs and submits executePayment(id) with the given gas limit.
func (c *Client) ExecutePayment(ctx context.Context, id uint64, gasLimit uint64) (*types.Transaction, error) {
	if c.key == nil {
		return nil, errors.New("keeper key not configured")
	}
	data, err := contractABI.Pack("executePayment", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	nonce, err := c.eth.PendingNonceAt(ctx, c.sender)
	if err != nil {
		return nil, fmt.Errorf("resolve nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve gas price: %w", err)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, errors.New(revertReason(err))
	}
	return signed, nil
}

// WaitConfirmed blocks until the transaction is mined. A reverted transaction
// is replayed as a call at its block to recover the revert reason.
func (c *Client) WaitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, fmt.Errorf("transaction %v reverted: %v", tx.Hash(), c.replayRevert(ctx, tx, receipt.BlockNumber))
	}
	return receipt, nil
}

func (c *Client) replayRevert(ctx context.Context, tx *types.Transaction, blockNumber *big.Int) string {
	msg := ethereum.CallMsg{
		From:     c.sender,
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}
	_, err := c.eth.CallContract(ctx, msg, blockNumber)
	if err == nil {
		return "reason unavailable"
	}
	return revertReason(err)
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	var raw []byte
	err = retry.Do(func() error {
		var err error
		raw, err = c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
		return err
	}, retry.Attempts(10), retry.Delay(10*time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("call %v: %w", method, err)
	}
	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %v result: %w", method, err)
	}
	return out, nil
}

// revertReason extracts the contract's revert string from an RPC error.
// Falls back to the raw error message when no revert data is attached.
func revertReason(err error) string {
	var dataErr interface{ ErrorData() interface{} }
	if errors.As(err, &dataErr) {
		if encoded, ok := dataErr.ErrorData().(string); ok {
			if data, decodeErr := hexutil.Decode(encoded); decodeErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason
				}
			}
		}
	}
	return err.Error()
}
