package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/chainledger/internal/chain"
	"go.uber.org/zap"
)

// AdminSecretHeader carries the shared secret required by the tamper endpoint
// when one is configured.
const AdminSecretHeader = "X-Admin-Secret"

// Ledger is the subset of *chain.Ledger the handlers need.
type Ledger interface {
	Append(ctx context.Context, payload string) (chain.Block, error)
	All(ctx context.Context) ([]chain.Block, error)
	Get(ctx context.Context, seq int64) (chain.Block, bool, error)
	Len(ctx context.Context) (int, error)
	Tip(ctx context.Context) (string, error)
	Corrupt(ctx context.Context, seq int64, payload string) (chain.Block, bool, error)
}

// Auditor verifies the whole chain.
type Auditor interface {
	Audit(ctx context.Context) (chain.Result, error)
}

// TamperConfig controls the demonstration-only tamper endpoint.
type TamperConfig struct {
	Enabled     bool
	AdminSecret string // empty = no secret required
}

// BlockHandler exposes the block ledger over HTTP.
type BlockHandler struct {
	ledger  Ledger
	auditor Auditor
	tamper  TamperConfig
	logger  *zap.Logger
}

// NewBlockHandler creates a new BlockHandler.
func NewBlockHandler(ledger Ledger, auditor Auditor, tamper TamperConfig, logger *zap.Logger) *BlockHandler {
	return &BlockHandler{ledger: ledger, auditor: auditor, tamper: tamper, logger: logger}
}

// Register mounts the block routes on the given router group.
func (h *BlockHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/chain", h.Overview)

	b := rg.Group("/blocks")
	{
		b.POST("", h.Create)
		b.GET("", h.List)
		b.GET("/verify", h.Verify)
		b.GET("/:id", h.Get)
		b.PUT("/:id", h.Tamper)
	}
}

type blockRequest struct {
	Data string `json:"data" binding:"required"`
}

// Create handles POST /blocks — appends a new block holding the request data.
func (h *BlockHandler) Create(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data is required"})
		return
	}

	block, err := h.ledger.Append(c.Request.Context(), req.Data)
	if err != nil {
		if errors.Is(err, chain.ErrPayloadTooLong) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("append block", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to append block"})
		return
	}

	c.JSON(http.StatusCreated, block)
}

// List handles GET /blocks — returns every block in sequence order.
func (h *BlockHandler) List(c *gin.Context) {
	blocks, err := h.ledger.All(c.Request.Context())
	if err != nil {
		h.logger.Error("list blocks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list blocks"})
		return
	}
	if blocks == nil {
		blocks = []chain.Block{}
	}
	c.JSON(http.StatusOK, blocks)
}

// Get handles GET /blocks/:id — returns a single block.
func (h *BlockHandler) Get(c *gin.Context) {
	seq, ok := parseID(c)
	if !ok {
		return
	}

	block, found, err := h.ledger.Get(c.Request.Context(), seq)
	if err != nil {
		h.logger.Error("get block", zap.Int64("id", seq), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query block"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
		return
	}
	c.JSON(http.StatusOK, block)
}

// Verify handles GET /blocks/verify — walks the full chain and reports every
// integrity violation. An invalid chain is still a 200: the report is the answer.
func (h *BlockHandler) Verify(c *gin.Context) {
	res, err := h.auditor.Audit(c.Request.Context())
	if err != nil {
		h.logger.Error("audit chain", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read chain"})
		return
	}

	RecordAudit(res.Valid)
	if !res.Valid {
		h.logger.Warn("chain integrity check failed",
			zap.Int("total_blocks", res.TotalBlocks),
			zap.Strings("errors", res.Errors),
		)
	}
	c.JSON(http.StatusOK, res)
}

// Tamper handles PUT /blocks/:id — overwrites a block's data without
// recomputing its hash, so that Verify has something to find.
func (h *BlockHandler) Tamper(c *gin.Context) {
	if !h.tamper.Enabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "tampering is disabled on this server"})
		return
	}
	if h.tamper.AdminSecret != "" {
		got := c.GetHeader(AdminSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.tamper.AdminSecret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin secret"})
			return
		}
	}

	seq, ok := parseID(c)
	if !ok {
		return
	}
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data is required"})
		return
	}

	block, found, err := h.ledger.Corrupt(c.Request.Context(), seq, req.Data)
	if err != nil {
		if errors.Is(err, chain.ErrPayloadTooLong) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("tamper block", zap.Int64("id", seq), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to modify block"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
		return
	}

	RecordTamper()
	h.logger.Warn("block tampered via API",
		zap.Int64("id", seq),
		zap.String("client_ip", c.ClientIP()),
	)
	c.JSON(http.StatusOK, block)
}

// Overview handles GET /chain — returns the chain length and current tip hash.
func (h *BlockHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.ledger.Len(ctx)
	if err != nil {
		h.logger.Error("ledger Len", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query chain"})
		return
	}

	tip, err := h.ledger.Tip(ctx)
	if err != nil {
		h.logger.Error("ledger Tip", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query chain tip"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"blocks": count,
		"tip":    tip,
	})
}

// parseID reads the :id path parameter, writing a 400 if it is not a positive integer.
func parseID(c *gin.Context) (int64, bool) {
	seq, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || seq < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return seq, true
}
