package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"courtbook/api/internal/config"
	"courtbook/api/internal/mailer"
	"courtbook/api/internal/middleware"
	"courtbook/api/internal/models"
	"courtbook/api/internal/repository"
	"courtbook/api/internal/service"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	otpService  *service.OTPService
	audit       *service.AuditRecorder
	db          *pgxpool.Pool
	cache       *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, mail mailer.Mailer, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	rateLimitRepo := repository.NewRateLimitRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	audit := service.NewAuditRecorder(auditRepo, log)
	auth := service.NewAuthService(userRepo, sessionRepo, audit, cfg, log)
	otp := service.NewOTPService(userRepo, otpRepo, rateLimitRepo, mail, audit, cfg, log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: auth,
		otpService:  otp,
		audit:       audit,
		db:          db,
		cache:       cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/signup", h.Signup)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)

		otp := auth.Group("/otp")
		otp.Use(middleware.ThrottleByIP(h.cache, h.cfg.OTP.ThrottlePerMinute, h.log))
		otp.POST("/generate", h.GenerateOTP)
		otp.POST("/verify", h.VerifyOTP)
		otp.GET("/status", h.OTPStatus)

		protected := v1.Group("/auth")
		protected.Use(middleware.Auth(h.authService))
		protected.GET("/me", h.Me)
	}

	admin := v1.Group("/admin")
	admin.Use(
		middleware.Auth(h.authService),
		middleware.RequireRoles(models.UserRoleAdmin),
	)
	admin.GET("/audit", h.ListAuditEntries)
	admin.POST("/users/:id/revoke-sessions", h.RevokeUserSessions)
}

func (h HandlerSet) clientContext(c *gin.Context) service.ClientContext {
	return service.ClientContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}
