package httpserver

import (
	"strconv"

	"github.com/gin-gonic/gin"
	profilesvc "luminix/internal/service/profile"
)

func (h *handlers) getProfile(c *gin.Context) {
	claims, _ := sessionClaims(c)
	p, err := h.deps.Profiles.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, gin.H{"profile": p, "needsPhone": !p.HasPhone()})
}

func (h *handlers) updateProfile(c *gin.Context) {
	claims, _ := sessionClaims(c)
	var req profilesvc.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid profile payload")
		return
	}
	p, err := h.deps.Profiles.UpdateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, gin.H{"profile": p, "needsPhone": !p.HasPhone()})
}

func (h *handlers) listOrders(c *gin.Context) {
	claims, _ := sessionClaims(c)
	email := claims.Email
	if email == "" {
		p, err := h.deps.Profiles.GetProfile(c.Request.Context(), claims.UserID)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		email = p.Email
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	orders, err := h.deps.OrderList.ListByEmail(c.Request.Context(), email, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	writeJSON(c, gin.H{"orders": orders})
}
