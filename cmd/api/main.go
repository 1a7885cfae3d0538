package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"luminix/internal/commerce"
	"luminix/internal/config"
	"luminix/internal/db"
	"luminix/internal/httpserver"
	"luminix/internal/identity"
	"luminix/internal/mail"
	cartrepo "luminix/internal/repository/cart"
	orderrepo "luminix/internal/repository/order"
	profilerepo "luminix/internal/repository/profile"
	authsvc "luminix/internal/service/auth"
	cartsvc "luminix/internal/service/cart"
	ordersvc "luminix/internal/service/order"
	profilesvc "luminix/internal/service/profile"
	wishlistsvc "luminix/internal/service/wishlist"
	"luminix/internal/session"
	"luminix/internal/verification"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	// Routes that need the platform are gated by the config checks below, so a
	// missing domain only disables them.
	platform, err := commerce.New(commerce.Config{
		Domain:          cfg.Commerce.Domain,
		APIVersion:      cfg.Commerce.APIVersion,
		StorefrontToken: cfg.Commerce.StorefrontToken,
		AdminToken:      cfg.Commerce.AdminToken,
		Timeout:         cfg.Commerce.Timeout,
	}, logger)
	if err != nil {
		logger.Printf("commerce client disabled: %v", err)
	}

	var codes verification.Store
	switch cfg.Verification.Backend {
	case "postgres":
		codes = verification.NewPostgresStore(dbpool, verification.WithTTL(cfg.Verification.TTL))
	default:
		codes = verification.NewMemoryStore(verification.WithTTL(cfg.Verification.TTL))
	}
	go verification.NewSweeper(codes, cfg.Verification.SweepInterval, logger).Run(ctx)

	mailer := mail.New(mail.Config{
		Broker:   cfg.Mail.Broker,
		Topic:    cfg.Mail.Topic,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		LogCodes: cfg.Mail.LogCodes,
	}, logger)
	defer func() {
		if err := mailer.Close(); err != nil {
			logger.Printf("close mail publisher: %v", err)
		}
	}()

	profileRepo := profilerepo.NewPostgres(dbpool, logger)
	profileService := profilesvc.New(profileRepo, nil, logger)
	if idc := identity.New(cfg.Auth.URL, cfg.Auth.ServiceKey, cfg.Commerce.Timeout); idc != nil {
		profileService = profilesvc.New(profileRepo, idc, logger)
	}
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Orders:          ordersvc.New(orderRepo, cfg.Webhook.Secret, logger),
		OrderList:       orderRepo,
		Auth:            authsvc.New(codes, platform, mailer, cfg.Verification.TTL, logger),
		Profiles:        profileService,
		Wishlist:        wishlistsvc.New(platform, logger),
		Carts:           cartsvc.New(platform, cartRepo, logger),
		Sessions:        session.NewVerifier(cfg.Auth.JWTSecret),
		StorefrontReady: cfg.Commerce.RequireCommerce,
		AdminReady:      cfg.Commerce.RequireAdmin,
		AllowedOrigins:  cfg.AllowedOrigins,
		SecureCookies:   cfg.SecureCookies,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
