package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paystream-io/paystream/internal/g"
	"github.com/paystream-io/paystream/pkg/history"
	"github.com/paystream-io/paystream/pkg/ledger"
)

type indexer interface {
	History(ctx context.Context, owner *common.Address) (history.History, error)
}

type snapshots interface {
	Payment(ctx context.Context, id uint64) (ledger.PaymentSnapshot, error)
	Head(ctx context.Context) (uint64, error)
}

// Handler serves the pull-only read API. Every request re-derives its answer
// from the chain; nothing is cached here.
type Handler struct {
	logger    *zap.Logger
	indexer   indexer
	snapshots snapshots
}

func NewHandler(logger *zap.Logger, idx indexer, snaps snapshots) *Handler {
	return &Handler{
		logger:    logger,
		indexer:   idx,
		snapshots: snaps,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	v1 := r.Group("/v1")
	v1.GET("/history", h.history)
	v1.GET("/payments/:id", h.payment)
}

func (h *Handler) health(c *gin.Context) {
	head, err := h.snapshots.Head(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unreachable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "head": head})
}

func (h *Handler) history(c *gin.Context) {
	var owner *common.Address
	if raw := c.Query("owner"); raw != "" {
		if !common.IsHexAddress(raw) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "owner is not a hex address"})
			return
		}
		owner = g.Pointer(common.HexToAddress(raw))
	}
	hist, err := h.indexer.History(c.Request.Context(), owner)
	if err != nil {
		h.logger.Error("history run failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, convertHistory(hist))
}

func (h *Handler) payment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}
	snap, err := h.snapshots.Payment(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, convertSnapshot(snap))
}
