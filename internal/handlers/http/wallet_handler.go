package http

import (
	"context"
	"net/http"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	"giftcast/internal/core/services"
	"giftcast/pkg/validation"

	"github.com/gin-gonic/gin"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// WalletHandler serves the caller's own wallet. Mutations honour an
// Idempotency-Key header when the wallet service replays keyed retries.
type WalletHandler struct {
	wallets ports.WalletService
}

func NewWalletHandler(wallets ports.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

func (h *WalletHandler) SetupRoutes(api *gin.RouterGroup) {
	wallet := api.Group("/wallet")
	{
		wallet.GET("", h.GetWallet)
		wallet.POST("/purchases", h.BuyCoins)
		wallet.POST("/gifts", h.SendGift)
		wallet.POST("/withdrawals", h.Withdraw)
	}
}

func (h *WalletHandler) GetWallet(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	wallet, err := h.wallets.GetOrCreateWallet(c.Request.Context(), id.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

func (h *WalletHandler) BuyCoins(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		PackageID string `json:"package_id"`
	}
	if !bindJSON(c, &req) {
		return
	}

	wallet, err := h.wallets.BuyCoins(keyedContext(c), id.UserID, req.PackageID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

func (h *WalletHandler) SendGift(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		ToUserID domain.UserID `json:"to_user_id"`
		GiftID   string        `json:"gift_id"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.ToUserID == "" {
		invalid(c, "to_user_id is required")
		return
	}

	receipt, err := h.wallets.SendGift(keyedContext(c), id.UserID, req.ToUserID, req.GiftID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipt": receipt})
}

func (h *WalletHandler) Withdraw(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		Amount string `json:"amount"`
		Method string `json:"method"`
	}
	if !bindJSON(c, &req) {
		return
	}
	amount, err := validation.ParseMoney(req.Amount)
	if err != nil {
		invalid(c, "%v", err)
		return
	}

	wallet, err := h.wallets.Withdraw(keyedContext(c), id.UserID, amount, req.Method)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

func keyedContext(c *gin.Context) context.Context {
	return services.WithIdempotencyKey(c.Request.Context(), c.GetHeader(HeaderIdempotencyKey))
}
