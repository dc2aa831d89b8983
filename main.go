package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"kavyalok/auth"
	"kavyalok/cache"
	"kavyalok/config"
	"kavyalok/database"
	"kavyalok/database/memory"
	"kavyalok/handlers"
	"kavyalok/logger"
	"kavyalok/mail"
	"kavyalok/media"
	"kavyalok/payments"
	"kavyalok/push"
	"kavyalok/realtime"
	"kavyalok/routes"
	"kavyalok/services"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Log

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	log.Info("Starting Kavyalok API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== STORE =====
	var (
		store services.Store
		ping  func(context.Context) error
		mongo *database.Store
	)
	switch cfg.Store {
	case "memory":
		log.Warn("Using the in-memory store; data is lost on restart")
		store = memory.New()
	default:
		s, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MongoDB")
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Fatal("Failed to create MongoDB indexes")
		}
		log.Info("MongoDB connected")
		store, ping, mongo = s, s.Ping, s
	}

	// ===== CACHE =====
	var feedCache cache.Cache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, serving listings uncached")
		} else {
			defer rc.Close()
			feedCache = rc
			log.WithField("ttl", cfg.CacheTTL).Info("Redis cache connected")
		}
	}

	// ===== IDENTITY =====
	var (
		verifier auth.Verifier
		accounts *services.AccountService
	)
	switch cfg.AuthProvider {
	case "local":
		verifier = auth.NewJWTVerifier(cfg.JWTSecret)
	default:
		fv, err := auth.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialise Firebase auth")
		}
		verifier = fv
	}

	// ===== MEDIA / MAIL / PAYMENTS / PUSH =====
	var uploader media.Uploader = media.Disabled{}
	if cfg.CloudinaryURL != "" {
		cld, err := media.NewCloudinary(cfg.CloudinaryURL, "kavyalok")
		if err != nil {
			log.WithError(err).Fatal("Invalid CLOUDINARY_URL")
		}
		uploader = cld
	} else {
		log.Warn("CLOUDINARY_URL not set, image uploads are disabled")
	}

	var mailer mail.Mailer = mail.Noop{}
	switch cfg.MailProvider {
	case "resend":
		mailer = mail.NewResend(cfg.ResendAPIKey, cfg.MailFrom)
	case "smtp":
		mailer = mail.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	}

	var payu *payments.PayU
	if cfg.PayUKey != "" {
		payu = payments.NewPayU(cfg.PayUKey, cfg.PayUSalt, cfg.PayUBaseURL, cfg.PayUCallback)
	}

	hub := realtime.NewHub()
	go hub.Run(ctx)
	channels := []services.LiveChannel{hub}

	var sender *push.Sender
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		sender = push.NewSender(store, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
		channels = append(channels, sender)
	} else {
		log.Warn("VAPID keys not set, web push is disabled (run cmd/genvapid)")
	}

	// ===== SERVICES =====
	feed := services.NewFeedService(store, feedCache, cfg.CacheTTL)
	notifications := services.NewNotificationService(store, channels...)
	comments := services.NewCommentService(store, store, store)
	users := services.NewUserService(store, feed, uploader, mailer)
	if cfg.AuthProvider == "local" {
		accounts = services.NewAccountService(users, auth.NewIssuer(cfg.JWTSecret))
	}

	pages := services.PaymentPages{Success: cfg.PayUSuccessURL, Failure: cfg.PayUFailureURL}

	h := &handlers.Handler{
		Feed:          feed,
		Posts:         services.NewPostService(store, store, comments, uploader),
		Comments:      comments,
		Interactions:  services.NewInteractionService(store, store, notifications, feedCache, cfg.CacheTTL),
		Notifications: notifications,
		Users:         users,
		Accounts:      accounts,
		Competitions:  services.NewCompetitionService(store, store, payu, pages, mailer),
		PushStore:     store,
		Push:          sender,
		Ping:          ping,
	}

	// ===== GIN MODE =====
	if cfg.GinMode == gin.ReleaseMode || cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := routes.SetupRouter(h, verifier, hub, routes.Options{
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server error")
		}
	}()

	// ===== GRACEFUL SHUTDOWN =====
	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Forced shutdown")
	}
	notifications.Wait()
	if mongo != nil {
		if err := mongo.Disconnect(shutdownCtx); err != nil {
			log.WithError(err).Error("MongoDB disconnect failed")
		}
	}
	log.Info("Server stopped")
}
