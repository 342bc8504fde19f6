package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mzalewski/secadmin-api/internal/config"
	"github.com/mzalewski/secadmin-api/internal/email"
	auditHandler "github.com/mzalewski/secadmin-api/internal/handler/audit"
	authHandler "github.com/mzalewski/secadmin-api/internal/handler/auth"
	contentHandler "github.com/mzalewski/secadmin-api/internal/handler/content"
	healthHandler "github.com/mzalewski/secadmin-api/internal/handler/health"
	policyHandler "github.com/mzalewski/secadmin-api/internal/handler/policy"
	userHandler "github.com/mzalewski/secadmin-api/internal/handler/user"
	"github.com/mzalewski/secadmin-api/internal/middleware"
	"github.com/mzalewski/secadmin-api/internal/repository/postgres"
	"github.com/mzalewski/secadmin-api/internal/repository/redisstore"
	"github.com/mzalewski/secadmin-api/internal/router"
	auditService "github.com/mzalewski/secadmin-api/internal/service/audit"
	authService "github.com/mzalewski/secadmin-api/internal/service/auth"
	policyService "github.com/mzalewski/secadmin-api/internal/service/policy"
	sessionService "github.com/mzalewski/secadmin-api/internal/service/session"
	userService "github.com/mzalewski/secadmin-api/internal/service/user"
	"github.com/mzalewski/secadmin-api/pkg/logger"
	"github.com/mzalewski/secadmin-api/pkg/metrics"
	"github.com/mzalewski/secadmin-api/pkg/recaptcha"
	"github.com/mzalewski/secadmin-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redisstore.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	policyRepo := postgres.NewPolicyRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	sessionStore := redisstore.NewSessionStore(redisClient)
	challengeStore := redisstore.NewChallengeStore(redisClient)

	// Services
	m := metrics.NewMetrics("secadmin")
	hasher := security.NewBcryptHasher(0)
	emailSvc := email.NewService(cfg.SMTP)
	policySvc := policyService.NewService(policyRepo)
	auditSvc := auditService.NewService(auditRepo, policySvc, appLogger, m)
	sessionSvc := sessionService.NewService(
		sessionStore,
		cfg.Session.Secret,
		time.Duration(cfg.Session.DefaultTTLHours)*time.Hour,
	)
	authSvc := authService.NewService(
		userRepo,
		challengeStore,
		policySvc,
		auditSvc,
		hasher,
		sessionSvc,
		emailSvc,
		m,
		appLogger,
		time.Duration(cfg.Session.ChallengeTTLSeconds)*time.Second,
	)
	userSvc := userService.NewService(
		userRepo,
		policySvc,
		auditSvc,
		hasher,
		emailSvc,
		m,
		appLogger,
		cfg.Content.MasterKey,
	)

	// The seeded admin signs in with the bootstrap password and is forced
	// through a password change on first use.
	if cfg.Bootstrap.AdminPassword != "" {
		if err := userSvc.EnsureAdmin(context.Background(), cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("failed to seed admin account")
		}
	}

	// Middleware and handlers
	middleware.RegisterValidators()
	sessionMW := middleware.NewSessionMiddleware(sessionSvc, userRepo, policySvc, auditSvc, m)
	captcha := recaptcha.NewVerifier(cfg.Recaptcha.Secret)

	authH := authHandler.NewHandler(authSvc, userSvc, sessionSvc, auditSvc, captcha)
	userH := userHandler.NewHandler(userSvc)
	policyH := policyHandler.NewHandler(policySvc, auditSvc)
	auditH := auditHandler.NewHandler(auditSvc)
	contentH := contentHandler.NewHandler(userSvc)
	healthH := healthHandler.NewHandler(db, redisClient)

	r := router.NewRouter(sessionMW, authH, userH, policyH, auditH, contentH, healthH, router.Config{
		LoginRatePerMinute: 30,
		LoginRateBurst:     10,
		MetricsPrefix:      "secadmin_http",
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
}
