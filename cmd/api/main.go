package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paystream-io/paystream/pkg/api"
	"github.com/paystream-io/paystream/pkg/app"
	"github.com/paystream-io/paystream/pkg/config"
	"github.com/paystream-io/paystream/pkg/history"
	"github.com/paystream-io/paystream/pkg/ledger"
)

func main() {
	cfg := config.Load()
	log := app.Logger(cfg.App.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := ledger.NewClient(ctx, log, cfg.Ledger.RPCURL, cfg.Ledger.ContractAddress)
	if err != nil {
		log.Fatal("ledger client init", zap.Error(err))
	}

	idx := history.NewIndexer(log, client, cfg.Ledger.StartBlock)
	h := api.NewHandler(log, idx, client)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	h.Register(router)

	httpServer := http.Server{
		Addr:    fmt.Sprintf(":%v", cfg.API.Port),
		Handler: router,
	}
	go func() {
		<-ctx.Done()
		if err := httpServer.Shutdown(context.Background()); err != nil {
			log.Error("server shutdown", zap.Error(err))
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("listen and serve", zap.Error(err))
	}
}
