package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"luminix/internal/domain"
	cartsvc "luminix/internal/service/cart"
)

const (
	cartHeader     = "X-Cart-Id"
	cartCookie     = "luminix_cart"
	cartCookieLife = 30 * 24 * time.Hour
)

// cookieIDs keeps the cart handle in a cookie, with the header as a fallback for
// clients that cannot store cookies. The last saved id wins, so one response
// sets the cookie at most once.
type cookieIDs struct {
	c      *gin.Context
	secure bool
	saved  string
}

func (s *cookieIDs) Load() string {
	if s.saved != "" {
		return s.saved
	}
	if v, err := s.c.Cookie(cartCookie); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(s.c.GetHeader(cartHeader))
}

func (s *cookieIDs) Save(id string) {
	if id == s.saved {
		return
	}
	s.saved = id
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(cartCookie, id, int(cartCookieLife/time.Second), "/", "", s.secure, true)
	s.c.Header(cartHeader, id)
}

type addLineRequest struct {
	MerchandiseID string `json:"merchandiseId" binding:"required"`
	Quantity      int    `json:"quantity"`
}

type updateLineRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *handlers) cartSession(c *gin.Context) *cartsvc.Synchronizer {
	claims, _ := sessionClaims(c)
	return h.deps.Carts.Session(&cookieIDs{c: c, secure: h.deps.SecureCookies}, claims.UserID)
}

func (h *handlers) getCart(c *gin.Context) {
	sess := h.cartSession(c)
	h.writeCart(c, sess, sess.Resolve(c.Request.Context()))
}

func (h *handlers) addCartLine(c *gin.Context) {
	var req addLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "merchandiseId is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	sess := h.cartSession(c)
	h.writeCart(c, sess, sess.AddItem(c.Request.Context(), req.MerchandiseID, req.Quantity))
}

func (h *handlers) updateCartLine(c *gin.Context) {
	var req updateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quantity is required")
		return
	}
	sess := h.cartSession(c)
	h.writeCart(c, sess, sess.UpdateItem(c.Request.Context(), c.Param("lineId"), *req.Quantity))
}

func (h *handlers) removeCartLine(c *gin.Context) {
	sess := h.cartSession(c)
	h.writeCart(c, sess, sess.RemoveItem(c.Request.Context(), c.Param("lineId")))
}

// writeCart reports platform failures in-band so the storefront keeps showing
// the last known cart. Only bad input is a 400.
func (h *handlers) writeCart(c *gin.Context, sess *cartsvc.Synchronizer, res cartsvc.Result) {
	if res.Err != nil && errors.Is(res.Err, domain.ErrValidation) {
		writeError(c, h.logger, res.Err)
		return
	}
	payload := gin.H{
		"cart":        res.Cart,
		"checkoutUrl": sess.CheckoutURL(),
		"openCart":    res.OpenPanel,
	}
	if res.Err != nil {
		_, payload["error"] = statusFor(res.Err)
		payload["success"] = false
		c.JSON(http.StatusOK, payload)
		return
	}
	writeJSON(c, payload)
}
