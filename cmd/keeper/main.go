package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/paystream-io/paystream/pkg/app"
	"github.com/paystream-io/paystream/pkg/config"
	"github.com/paystream-io/paystream/pkg/keeper"
	"github.com/paystream-io/paystream/pkg/ledger"
)

func main() {
	cfg := config.Load()
	log := app.Logger(cfg.App.LogLevel)

	key := cfg.Keeper.PrivateKey.ECDSA()
	if key == nil {
		log.Fatal("KEEPER_PRIVATE_KEY is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := ledger.NewClient(ctx, log, cfg.Ledger.RPCURL, cfg.Ledger.ContractAddress,
		ledger.WithKeeperKey(key))
	if err != nil {
		log.Fatal("ledger client init", zap.Error(err))
	}

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(fmt.Sprintf(":%v", cfg.App.MetricsPort), nil); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server", zap.Error(err))
		}
	}()

	k := keeper.New(log, client,
		keeper.WithTickInterval(cfg.Keeper.TickInterval),
		keeper.WithConfirmationTimeout(cfg.Keeper.ConfirmationTimeout))
	k.Run(ctx)
}
