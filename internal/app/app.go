package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/juanesgit/validadorPagos/internal/config"
	"github.com/juanesgit/validadorPagos/internal/handlers"
	"github.com/juanesgit/validadorPagos/internal/repositories"
	"github.com/juanesgit/validadorPagos/internal/routes"
	"github.com/juanesgit/validadorPagos/internal/services"
	"github.com/juanesgit/validadorPagos/internal/storage"
)

func Run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("abrir base de datos: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping base de datos: %w", err)
	}
	if err := repositories.EnsureSchema(ctx, db); err != nil {
		return err
	}

	// === Repos ===
	sessionRepo := repositories.NewSessionRepository(db)
	verifiedRepo := repositories.NewVerifiedUserRepository(db)
	whitelistRepo := repositories.NewWhitelistRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)

	// === Services ===
	tg, err := services.NewTelegramService(cfg.Telegram.Token, log)
	if err != nil {
		return err
	}
	evidenceStore, err := storage.NewLocalStore(cfg.Evidence.Dir)
	if err != nil {
		return err
	}

	verification := services.NewVerificationService(
		verifiedRepo,
		whitelistRepo,
		cfg.Verification.TTLMinutes,
		cfg.Verification.DefaultCountryCode,
		log,
	)
	intake := services.NewIntakeService(
		tg,
		evidenceStore,
		paymentRepo,
		sessionRepo,
		verification,
		cfg.Evidence.MaxMB,
		log,
	)

	var notifier *services.EmailService
	if cfg.Email.Enabled() {
		notifier = services.NewEmailService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
			cfg.Email.TreasuryTo,
			log,
		)
	}

	conversation := services.NewConversationService(
		sessionRepo,
		paymentRepo,
		verification,
		intake,
		tg,
		notifier,
		log,
	)
	review := services.NewReviewService(paymentRepo, tg, log)

	// === Handlers ===
	webhookHandler := handlers.NewWebhookHandler(conversation, log)
	reviewHandler := handlers.NewReviewHandler(review, cfg.Evidence.Dir)

	// === Gin ===
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	routes.SetupRoutes(router, webhookHandler, reviewHandler, cfg.Review.JWTSecret)

	if cfg.Telegram.PublicBaseURL != "" {
		if err := tg.SetWebhook(cfg.Telegram.PublicBaseURL + "/telegram/webhook"); err != nil {
			log.Error().Err(err).Msg("no se pudo registrar el webhook")
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("servidor iniciado")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// drenar updates en vuelo antes de soltar la DB
		webhookHandler.Drain()
		return nil
	})
	return g.Wait()
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
