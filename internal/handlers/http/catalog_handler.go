package http

import (
	"net/http"

	"giftcast/internal/core/ports"
	"giftcast/internal/core/services"

	"github.com/gin-gonic/gin"
)

// ActivitySource exposes in-process activity counters.
type ActivitySource interface {
	Counters() services.ActivityCounters
}

type CatalogHandler struct {
	wallets  ports.WalletService
	activity ActivitySource
}

// NewCatalogHandler serves the static catalogs and ledger stats. activity
// may be nil.
func NewCatalogHandler(wallets ports.WalletService, activity ActivitySource) *CatalogHandler {
	return &CatalogHandler{wallets: wallets, activity: activity}
}

func (h *CatalogHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/catalog/gifts", h.ListGifts)
	api.GET("/catalog/packages", h.ListPackages)
	api.GET("/stats", h.Stats)
}

func (h *CatalogHandler) ListGifts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"gifts": h.wallets.ListGifts()})
}

func (h *CatalogHandler) ListPackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"packages": h.wallets.ListPackages()})
}

func (h *CatalogHandler) Stats(c *gin.Context) {
	stats, err := h.wallets.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	body := gin.H{"ledger": stats}
	if h.activity != nil {
		body["activity"] = h.activity.Counters()
	}
	c.JSON(http.StatusOK, body)
}
