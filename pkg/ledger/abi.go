package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// schedulerABI covers the subset of the PaymentScheduler contract the keeper
// and the indexer consume: the two read methods, the execute method and the
// six lifecycle event types.
const schedulerABI = `[
  {"type":"function","name":"paymentCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getPayment","stateMutability":"view","inputs":[{"name":"paymentId","type":"uint256"}],"outputs":[
    {"name":"owner","type":"address"},
    {"name":"recipient","type":"address"},
    {"name":"amount","type":"uint256"},
    {"name":"token","type":"address"},
    {"name":"interval","type":"uint256"},
    {"name":"nextExecution","type":"uint256"},
    {"name":"active","type":"bool"},
    {"name":"description","type":"string"},
    {"name":"nativeBalance","type":"uint256"},
    {"name":"tokenBalance","type":"uint256"},
    {"name":"endDate","type":"uint256"}]},
  {"type":"function","name":"executePayment","stateMutability":"nonpayable","inputs":[{"name":"paymentId","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"PaymentScheduled","inputs":[
    {"name":"paymentId","type":"uint256","indexed":true},
    {"name":"owner","type":"address","indexed":true},
    {"name":"recipient","type":"address","indexed":false},
    {"name":"token","type":"address","indexed":false},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"interval","type":"uint256","indexed":false}]},
  {"type":"event","name":"PaymentExecuted","inputs":[
    {"name":"paymentId","type":"uint256","indexed":true},
    {"name":"recipient","type":"address","indexed":false},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"nextExecution","type":"uint256","indexed":false}]},
  {"type":"event","name":"PaymentCancelled","inputs":[
    {"name":"paymentId","type":"uint256","indexed":true},
    {"name":"owner","type":"address","indexed":false}]},
  {"type":"event","name":"PaymentStatusChanged","inputs":[
    {"name":"paymentId","type":"uint256","indexed":true},
    {"name":"active","type":"bool","indexed":false}]},
  {"type":"event","name":"PaymentFunded","inputs":[
    {"name":"paymentId","type":"uint256","indexed":true},
    {"name":"token","type":"address","indexed":false},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"FundsWithdrawn","inputs":[
    {"name":"paymentId","type":"uint256","indexed":true},
    {"name":"token","type":"address","indexed":false},
    {"name":"amount","type":"uint256","indexed":false}]}
]`

// kindEvents maps a filter kind to the contract event it is fetched from.
var kindEvents = map[EventKind]string{
	KindCreated:       "PaymentScheduled",
	KindExecuted:      "PaymentExecuted",
	KindCancelled:     "PaymentCancelled",
	KindStatusChanged: "PaymentStatusChanged",
	KindToppedUp:      "PaymentFunded",
	KindWithdrawn:     "FundsWithdrawn",
}

func mustParseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(schedulerABI))
	if err != nil {
		panic(err)
	}
	return parsed
}

var contractABI = mustParseABI()
