package main

import (
	"backoffice-service/internal/building"
	"backoffice-service/internal/credential"
	"backoffice-service/internal/dao"
	"backoffice-service/internal/handler"
	"backoffice-service/internal/mail"
	"backoffice-service/internal/middleware"
	"backoffice-service/internal/store/document"
	"backoffice-service/internal/token"
	"backoffice-service/pkg/config"
	"backoffice-service/pkg/database"
	"backoffice-service/pkg/logger"
	"backoffice-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting back-office service...", cfg.LogConfig()...)

	// Initialize database and document store
	db, err := database.Init(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")
	docStore := document.New(db)

	// Token service carries the crypto secret and session signing key
	// explicitly; no ambient state
	tokens := token.NewService(token.Config{
		CryptoSecret:      cfg.Token.CryptoSecret,
		DataTTLDays:       cfg.Token.TTLDays,
		JWTSigningKey:     cfg.JWT.SigningKey,
		SessionExpiryDays: cfg.JWT.SessionExpiryDays,
	})

	// Mail delivery is an external collaborator; log outgoing messages
	// until it is wired
	mailer := mail.NewLogMailer(log)

	hash := func(plain string) (string, error) {
		hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
		return string(hashed), err
	}

	buildings := building.NewStoreService(docStore)
	users := dao.NewUserDAO(docStore, buildings, mailer, hash, log)
	creds := credential.NewOrchestrator(tokens, users, mailer, credential.Config{
		SignupURL: cfg.Mail.SignupURL,
		ForgotURL: cfg.Mail.ForgotURL,
	}, log)

	authHandler := handler.NewAuthHandler(users, tokens, creds)
	userHandler := handler.NewUserHandler(users)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Credential routes - reachable without a session
	auth := e.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/signup", authHandler.RequestSignup)
	auth.GET("/signup/:token", authHandler.ValidateSignup)
	auth.POST("/signup/:token", authHandler.CompleteSignup)
	auth.POST("/forgot", authHandler.RequestForgot)
	auth.GET("/forgot/:token", authHandler.ValidateForgot)
	auth.POST("/forgot/:token", authHandler.ResetPassword)

	// API routes - all require an authenticated principal
	api := e.Group("/api")
	api.Use(middleware.Auth(tokens))

	usersGroup := api.Group("/users")
	usersGroup.GET("", userHandler.List)
	usersGroup.GET("/:id", userHandler.Get)
	usersGroup.POST("", userHandler.Create)
	usersGroup.PATCH("/:id", userHandler.Update)
	usersGroup.DELETE("/:id", userHandler.Delete)
	usersGroup.POST("/query", userHandler.Query)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
