package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/wellnest/wellnest-api/internal/config"
	"github.com/wellnest/wellnest-api/internal/handler"
	"github.com/wellnest/wellnest-api/internal/middleware"
	"github.com/wellnest/wellnest-api/internal/model"
	"github.com/wellnest/wellnest-api/internal/repository"
	"github.com/wellnest/wellnest-api/internal/service"
	"github.com/wellnest/wellnest-api/internal/ws"
	"github.com/wellnest/wellnest-api/migrations"
	"github.com/wellnest/wellnest-api/pkg/auth"
	"github.com/wellnest/wellnest-api/pkg/logger"
	"github.com/wellnest/wellnest-api/pkg/mailer"
	"github.com/wellnest/wellnest-api/pkg/notification"
	"github.com/wellnest/wellnest-api/pkg/storage"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           WellNest API
// @version         1.0
// @description     Wellness booking API: OTP auth, experts, appointments, realtime call signaling.

// @contact.name   API Support
// @contact.email  support@wellnest.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const (
	otpCleanupInterval = time.Hour
	// kept past the one hour send window so rate limiting still sees them
	otpRetention = 24 * time.Hour
)

func main() {
	// ==================== Config & Logging ====================
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.WithField("env", cfg.App.Env).Info("starting WellNest API")

	// ==================== Database (PostgreSQL) ====================
	gormLevel := gormlogger.Info
	if cfg.App.IsProduction() {
		gormLevel = gormlogger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	log.Info("connected to PostgreSQL")

	// ==================== Migrations ====================
	if err := migrations.Run(cfg.DB.URL(), log); err != nil {
		log.WithError(err).Warn("migration failed, falling back to AutoMigrate")
		if err := db.AutoMigrate(
			&model.User{},
			&model.UserDevice{},
			&model.OTPCode{},
			&model.Expert{},
			&model.Appointment{},
		); err != nil {
			log.WithError(err).Fatal("failed to migrate database")
		}
	}

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("failed to connect to Redis")
	}
	log.Info("connected to Redis")

	// ==================== Repositories ====================
	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	expertRepo := repository.NewExpertRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	tokenRepo := repository.NewTokenRepository(rdb)

	// ==================== External services ====================
	mailClient := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	}, log)

	var fileStore storage.Storage
	minioStorage, err := storage.NewMinIO(ctx, storage.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		PublicURL: cfg.MinIO.PublicURL,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	}, log)
	if err != nil {
		log.WithError(err).Warn("MinIO not available, uploads disabled")
	} else {
		fileStore = minioStorage
	}

	pushService := notification.NewNotificationService(cfg.Firebase.CredentialsFile, userRepo, log)

	// ==================== Services ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	authService := service.NewAuthService(userRepo, otpRepo, tokenRepo, jwtManager, mailClient, service.AuthConfig{
		OTPExpiry:      cfg.OTP.Expiry,
		OTPMaxPerHour:  cfg.OTP.MaxPerHour,
		ResetTokenTTL:  cfg.OTP.ResetTokenTTL,
		GoogleClientID: cfg.Google.ClientID,
	}, log)

	// the hub fans events out across instances through Redis Pub/Sub
	hub := ws.NewHub(rdb, log, authService.SetOnline)
	go hub.Run(ctx)

	expertService := service.NewExpertService(expertRepo)
	appointmentService := service.NewAppointmentService(appointmentRepo, expertRepo, hub, pushService, log)

	go cleanupOTPs(ctx, otpRepo, log)

	// ==================== Handlers ====================
	uploadHandler := handler.NewUploadHandler(fileStore, log)
	authHandler := handler.NewAuthHandler(authService, uploadHandler)
	expertHandler := handler.NewExpertHandler(expertService, uploadHandler)
	appointmentHandler := handler.NewAppointmentHandler(appointmentService)
	wsHandler := handler.NewWSHandler(hub, jwtManager, func(c *gin.Context, token string) bool {
		revoked, err := tokenRepo.IsBlacklisted(c.Request.Context(), token)
		return err != nil || revoked
	}, cfg.CORS.Origins, log)

	// ==================== Gin Router ====================
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery(log), middleware.RequestLogger(log), middleware.CORS(cfg.CORS.Origins))

	// swagger.json lives at /docs to avoid clashing with the /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "wellnest-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	limiter := middleware.NewRedisLimiter(rdb)

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter, "api", cfg.RateLimit.Requests, cfg.RateLimit.Window, log))
	{
		authGroup := api.Group("/auth")
		authGroup.Use(middleware.RateLimit(limiter, "auth", cfg.RateLimit.AuthRequests, cfg.RateLimit.Window, log))
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/verify-otp", authHandler.VerifyOTP)
			authGroup.POST("/resend-otp", authHandler.ResendOTP)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/google", authHandler.GoogleLogin)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/verify-reset-otp", authHandler.VerifyResetOTP)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, tokenRepo))
		{
			// Auth
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/profile", authHandler.GetProfile)
			protected.PUT("/auth/profile", authHandler.UpdateProfile)
			protected.POST("/auth/device", authHandler.RegisterDevice)

			// Experts
			protected.GET("/experts", expertHandler.List)
			protected.GET("/experts/:id", expertHandler.Get)
			protected.POST("/experts", middleware.RequireRole(model.RoleExpert), expertHandler.Create)
			protected.PUT("/experts/:id", expertHandler.Update)
			protected.DELETE("/experts/:id", expertHandler.Delete)
			protected.POST("/experts/:id/avatar", expertHandler.UploadAvatar)

			// Appointments
			protected.GET("/appointments", appointmentHandler.List)
			protected.POST("/appointments", middleware.RequireRole(model.RoleUser), appointmentHandler.Create)
			protected.POST("/appointments/:id/confirm", appointmentHandler.Confirm)
			protected.POST("/appointments/:id/cancel", appointmentHandler.Cancel)
			protected.POST("/appointments/:id/complete", appointmentHandler.Complete)

			// Upload
			protected.POST("/upload", uploadHandler.UploadFile)
		}
	}

	// WebSocket endpoint (auth via query parameter)
	router.GET("/ws", wsHandler.HandleWebSocket)

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	log.WithField("port", cfg.App.Port).Info("WellNest API listening")
	log.Infof("API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Infof("WebSocket: ws://0.0.0.0:%s/ws?token=<jwt>", cfg.App.Port)

	<-ctx.Done()
	log.Info("shutting down server")

	// give in-flight requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.WithError(err).Warn("failed to close Redis")
	}
	log.Info("server exited")
}

// cleanupOTPs deletes expired codes until ctx is done
func cleanupOTPs(ctx context.Context, otps *repository.OTPRepository, log logrus.FieldLogger) {
	ticker := time.NewTicker(otpCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := otps.CleanupExpired(otpRetention)
			if err != nil {
				log.WithError(err).Warn("otp cleanup failed")
				continue
			}
			if n > 0 {
				log.WithField("deleted", n).Info("expired otp codes removed")
			}
		}
	}
}
