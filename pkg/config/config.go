package config

import (
	"crypto/ecdsa"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type Config struct {
	API struct {
		Port int `env:"PORT" envDefault:"8081"`
	}
	App struct {
		LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`
		MetricsPort int    `env:"METRICS_PORT" envDefault:"9010"`
	}
	Ledger struct {
		RPCURL          string         `env:"RPC_URL,required"`
		ContractAddress common.Address `env:"CONTRACT_ADDRESS,required"`
		// StartBlock is the block the scheduler contract was deployed at.
		// Scanning earlier blocks is wasted work.
		StartBlock uint64 `env:"START_BLOCK" envDefault:"0"`
	}
	Keeper struct {
		PrivateKey          PrivateKey    `env:"KEEPER_PRIVATE_KEY"`
		TickInterval        time.Duration `env:"TICK_INTERVAL" envDefault:"10s"`
		ConfirmationTimeout time.Duration `env:"CONFIRMATION_TIMEOUT" envDefault:"2m"`
	}
}

// PrivateKey is a hex-encoded secp256k1 key in the environment.
type PrivateKey struct {
	key *ecdsa.PrivateKey
}

func (k *PrivateKey) UnmarshalText(text []byte) error {
	parsed, err := crypto.HexToECDSA(strings.TrimPrefix(string(text), "0x"))
	if err != nil {
		return err
	}
	k.key = parsed
	return nil
}

// ECDSA returns the parsed key, nil when the variable was not set.
func (k PrivateKey) ECDSA() *ecdsa.PrivateKey {
	return k.key
}

func Load() Config {
	var c Config
	if err := env.ParseWithFuncs(&c, map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(common.Address{}): func(v string) (interface{}, error) {
			if !common.IsHexAddress(v) {
				return nil, fmt.Errorf("not a hex address: %v", v)
			}
			return common.HexToAddress(v), nil
		}}); err != nil {
		log.Panicf("[‼️  Config parsing failed] %+v\n", err)
	}

	return c
}
