package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/cgsmith/user-service/internal/captcha"
	"github.com/cgsmith/user-service/internal/config"
	"github.com/cgsmith/user-service/internal/handler"
	"github.com/cgsmith/user-service/internal/mailer"
	"github.com/cgsmith/user-service/internal/oauth"
	"github.com/cgsmith/user-service/internal/repository"
	"github.com/cgsmith/user-service/internal/service"
	"github.com/cgsmith/user-service/internal/utils"
	"github.com/cgsmith/user-service/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

type handlers struct {
	auth         *handler.AuthHandler
	registration *handler.RegistrationHandler
	recovery     *handler.RecoveryHandler
	settings     *handler.SettingsHandler
	twoFactor    *handler.TwoFactorHandler
	sessions     *handler.SessionHandler
	social       *handler.SocialHandler
	gdpr         *handler.GDPRHandler
	admin        *handler.AdminHandler
	maintenance  *handler.MaintenanceHandler
}

func NewApp(infra Infrastructure, cfg *config.Config) *App {
	store := repository.NewStore(infra.Postgres())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.Registration.RememberFor.Duration,
	)

	blacklistService := service.NewTokenBlacklistService(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis())
	pendingStore := service.NewPendingTwoFactorStore(infra.Redis(), cfg.TwoFactor.PendingTTL.Duration)
	healthChecker := NewHealthChecker(infra)
	hooks := service.NewHooks()

	var captchaVerifier service.Captcha
	if cfg.Captcha.Enabled {
		captchaVerifier = captcha.New(cfg.Captcha.Secret, cfg.Captcha.VerifyURL)
	}

	mailSender := mailer.New(cfg.SMTP, infra.Logger())
	tokenService := service.NewTokenService(store)

	sessionService := service.NewSessionService(store, cfg)
	twoFactorService := service.NewTwoFactorService(store, cfg)

	registrationService := service.NewRegistrationService(
		store, tokenService, mailSender, captchaVerifier, hooks, cfg, infra.Logger())
	recoveryService := service.NewRecoveryService(
		store, tokenService, mailSender, captchaVerifier, cfg, infra.Logger())
	authService := service.NewAuthService(
		store, jwtManager, blacklistService, pendingStore, twoFactorService, sessionService, cfg, infra.Logger())
	socialService := service.NewSocialService(
		store, jwtManager, sessionService, oauthClients(cfg), hooks, cfg, infra.Logger())
	accountService := service.NewAccountService(
		store, tokenService, mailSender, cfg, infra.Logger())
	adminService := service.NewUserAdminService(
		store, tokenService, mailSender, hooks, cfg, infra.Logger())
	gdprService := service.NewGDPRService(
		store, sessionService, socialService, hooks, cfg, infra.Logger())
	maintenanceService := service.NewMaintenanceService(store, tokenService, infra.Logger())

	secureCookies := cfg.Env == "production"

	h := handlers{
		auth:         handler.NewAuthHandler(authService, accountService, cfg),
		registration: handler.NewRegistrationHandler(registrationService),
		recovery:     handler.NewRecoveryHandler(recoveryService),
		settings:     handler.NewSettingsHandler(accountService),
		twoFactor:    handler.NewTwoFactorHandler(twoFactorService),
		sessions:     handler.NewSessionHandler(sessionService, authService, cfg),
		social:       handler.NewSocialHandler(socialService, secureCookies),
		gdpr:         handler.NewGDPRHandler(gdprService),
		admin:        handler.NewAdminHandler(adminService),
		maintenance:  handler.NewMaintenanceHandler(maintenanceService),
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("user-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, h, authService, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}
}

// oauthClients builds a client per configured provider. Providers with no
// client id stay out of the map and read as unknown to callers.
func oauthClients(cfg *config.Config) map[string]service.OAuthClient {
	clients := make(map[string]service.OAuthClient)
	for provider, providerCfg := range map[string]config.SocialProviderConfig{
		"google": cfg.Social.Google,
		"github": cfg.Social.GitHub,
	} {
		client := oauth.New(provider, providerCfg)
		if client.Enabled() {
			clients[provider] = client
		}
	}
	return clients
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	h handlers,
	authService service.AuthService,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	rateLimit := handler.RateLimitMiddleware(
		rateLimiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.IPBasedKey)
	authRequired := handler.AuthMiddleware(authService)
	adminOnly := handler.AdminMiddleware(cfg.Security.Admins)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", rateLimit, h.registration.Register)
			auth.POST("/confirm", h.registration.Confirm)
			auth.POST("/resend-confirmation", rateLimit, h.registration.ResendConfirmation)
			auth.POST("/login", rateLimit, h.auth.Login)
			auth.POST("/login/2fa", rateLimit, h.auth.TwoFactorLogin)
			auth.POST("/refresh", h.auth.Refresh)
			auth.POST("/logout", authRequired, h.auth.Logout)
			auth.GET("/me", authRequired, h.auth.GetMe)
		}

		recovery := api.Group("/recovery")
		{
			recovery.POST("", rateLimit, h.recovery.Request)
			recovery.GET("/validate", h.recovery.ValidateToken)
			recovery.POST("/reset", h.recovery.Reset)
		}

		api.POST("/password-strength", h.settings.PasswordStrength)

		settings := api.Group("/settings")
		{
			settings.PUT("/profile", authRequired, h.settings.UpdateProfile)
			settings.PUT("/password", authRequired, h.settings.ChangePassword)
			settings.POST("/email", authRequired, h.settings.ChangeEmail)
			settings.POST("/confirm-email", h.settings.ConfirmEmail)

			twoFactor := settings.Group("/2fa", authRequired)
			{
				twoFactor.POST("/setup", h.twoFactor.Setup)
				twoFactor.POST("/enable", h.twoFactor.Enable)
				twoFactor.POST("/disable", h.twoFactor.Disable)
				twoFactor.POST("/backup-codes", h.twoFactor.RegenerateBackupCodes)
			}
		}

		sessions := api.Group("/sessions", authRequired)
		{
			sessions.GET("", h.sessions.List)
			sessions.DELETE("", h.sessions.TerminateOthers)
			sessions.DELETE("/:id", h.sessions.Terminate)
		}

		social := api.Group("/social")
		{
			social.GET("/:provider/authorize", h.social.Authorize)
			social.GET("/:provider/callback", h.social.Callback)
			social.POST("/:provider/connect", authRequired, h.social.Connect)
			social.GET("", authRequired, h.social.List)
			social.DELETE("/:id", authRequired, h.social.Disconnect)
		}

		gdpr := api.Group("/gdpr", authRequired)
		{
			gdpr.POST("/consent", h.gdpr.Consent)
			gdpr.GET("/export", h.gdpr.Export)
			gdpr.POST("/delete", h.gdpr.Delete)
		}

		admin := api.Group("/admin", authRequired, adminOnly)
		{
			admin.POST("/users", h.admin.CreateUser)
			admin.GET("/users/:id", h.admin.GetUser)
			admin.PUT("/users/:id/block", h.admin.SetBlocked)
			admin.POST("/users/:id/confirm", h.admin.ForceConfirm)
			admin.POST("/users/:id/resend-password", h.admin.ResendPassword)
			admin.DELETE("/users/:id", h.admin.DeleteUser)
			admin.GET("/users/:id/impersonate", h.admin.Impersonate)
			admin.POST("/maintenance/sweep", h.maintenance.Sweep)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
