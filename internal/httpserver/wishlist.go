package httpserver

import (
	"github.com/gin-gonic/gin"
)

type wishlistItemRequest struct {
	CustomerID string `json:"customerId" binding:"required"`
	ProductID  string `json:"productId" binding:"required"`
}

type wishlistSyncRequest struct {
	CustomerID string `json:"customerId" binding:"required"`
}

func (h *handlers) addToWishlist(c *gin.Context) {
	var req wishlistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "customerId and productId are required")
		return
	}
	ids, err := h.deps.Wishlist.Add(c.Request.Context(), req.CustomerID, req.ProductID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, gin.H{"productIds": ids})
}

func (h *handlers) removeFromWishlist(c *gin.Context) {
	var req wishlistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "customerId and productId are required")
		return
	}
	ids, err := h.deps.Wishlist.Remove(c.Request.Context(), req.CustomerID, req.ProductID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, gin.H{"productIds": ids})
}

func (h *handlers) syncWishlist(c *gin.Context) {
	var req wishlistSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "customerId is required")
		return
	}
	ids, err := h.deps.Wishlist.Sync(c.Request.Context(), req.CustomerID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, gin.H{"productIds": ids})
}
