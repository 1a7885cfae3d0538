package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"luminix/internal/domain"
	authsvc "luminix/internal/service/auth"
	cartsvc "luminix/internal/service/cart"
	ordersvc "luminix/internal/service/order"
	profilesvc "luminix/internal/service/profile"
	"luminix/internal/session"
)

type orderIngestor interface {
	Ingest(ctx context.Context, body []byte, signature string) (ordersvc.Result, error)
}

type orderLister interface {
	ListByEmail(ctx context.Context, email string, limit int) ([]domain.Order, error)
}

type authService interface {
	SendCode(ctx context.Context, in authsvc.SendCodeInput) error
	VerifyCode(ctx context.Context, email, code string) (*domain.Customer, error)
}

type profileService interface {
	EnsureProfile(ctx context.Context, in profilesvc.EnsureInput) (profilesvc.EnsureResult, error)
	CreateProfile(ctx context.Context, in profilesvc.CreateInput) (*domain.Profile, error)
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, id string, in profilesvc.UpdateInput) (*domain.Profile, error)
}

type wishlistService interface {
	Add(ctx context.Context, customerID, productID string) ([]string, error)
	Remove(ctx context.Context, customerID, productID string) ([]string, error)
	Sync(ctx context.Context, customerID string) ([]string, error)
}

type cartSessions interface {
	Session(ids cartsvc.IDStore, userID string) *cartsvc.Synchronizer
}

type sessionVerifier interface {
	Verify(raw string) (session.Claims, error)
}

// ConfigCheck reports domain.ErrConfig when a route's secrets are missing.
type ConfigCheck func() error

// Deps groups the services the HTTP layer calls.
type Deps struct {
	Orders    orderIngestor
	OrderList orderLister
	Auth      authService
	Profiles  profileService
	Wishlist  wishlistService
	Carts     cartSessions
	Sessions  sessionVerifier

	StorefrontReady ConfigCheck
	AdminReady      ConfigCheck

	AllowedOrigins []string
	SecureCookies  bool
}

func (d Deps) validate() error {
	switch {
	case d.Orders == nil:
		return errors.New("httpserver: order ingestor is required")
	case d.Auth == nil:
		return errors.New("httpserver: auth service is required")
	case d.Profiles == nil:
		return errors.New("httpserver: profile service is required")
	case d.Wishlist == nil:
		return errors.New("httpserver: wishlist service is required")
	case d.Carts == nil:
		return errors.New("httpserver: cart service is required")
	case d.Sessions == nil:
		return errors.New("httpserver: session verifier is required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db pinger, deps Deps) (*gin.Engine, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery(), requestID())
	if c := corsMiddleware(deps.AllowedOrigins); c != nil {
		router.Use(c)
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db, deps))

	h := &handlers{deps: deps, logger: logger}

	router.POST("/webhooks/orders", h.ingestOrder)

	auth := router.Group("/auth")
	auth.POST("/send-code", requireConfig(logger, deps.AdminReady), h.sendCode)
	auth.POST("/verify-code", requireConfig(logger, deps.AdminReady), h.verifyCode)
	auth.POST("/create-profile", h.createProfile)
	auth.POST("/oauth-callback", h.oauthCallback)

	me := router.Group("", requireSession(deps.Sessions, logger))
	me.GET("/profile", h.getProfile)
	me.PUT("/profile", h.updateProfile)
	if deps.OrderList != nil {
		me.GET("/orders", h.listOrders)
	}

	wishlist := router.Group("/wishlist", requireConfig(logger, deps.AdminReady))
	wishlist.POST("/add", h.addToWishlist)
	wishlist.POST("/remove", h.removeFromWishlist)
	wishlist.POST("/sync", h.syncWishlist)

	cart := router.Group("/cart", requireConfig(logger, deps.StorefrontReady), optionalSession(deps.Sessions, logger))
	cart.GET("", h.getCart)
	cart.POST("/lines", h.addCartLine)
	cart.PATCH("/lines/:lineId", h.updateCartLine)
	cart.DELETE("/lines/:lineId", h.removeCartLine)

	return router, nil
}

type handlers struct {
	deps   Deps
	logger *log.Logger
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return nil
	}
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", cartHeader},
		ExposeHeaders:    []string{cartHeader, requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}
