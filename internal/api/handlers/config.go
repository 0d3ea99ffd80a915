package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/greenbasket/orderapi/internal/pricing"
)

// PublicConfig exposes the delivery charges so clients can render
// estimates. The server remains the authority at checkout; these values
// are display hints only.
func PublicConfig(delivery *pricing.ConfigSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := delivery.Current()

		c.JSON(http.StatusOK, gin.H{
			"delivery": gin.H{
				"fee":                   cfg.FlatFee,
				"freeDeliveryThreshold": cfg.FreeDeliveryThreshold,
				"giftWrapCharge":        cfg.GiftWrapCharge,
			},
		})
	}
}
