package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dazzlersden/backend/docs"
	"github.com/dazzlersden/backend/internal/audit"
	"github.com/dazzlersden/backend/internal/config"
	"github.com/dazzlersden/backend/internal/database"
	"github.com/dazzlersden/backend/internal/handlers"
	"github.com/dazzlersden/backend/internal/logger"
	mW "github.com/dazzlersden/backend/internal/middleware"
	"github.com/dazzlersden/backend/internal/services"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// @title Dazzlers Den Backend API
// @version 1.0
// @description Customer wallets, recharges and timed play sessions backed by an immutable ledger
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	viper.BindEnv("database.auto_migrate", "DATABASE_AUTO_MIGRATE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("auth.enabled", "AUTH_ENABLED")
	viper.BindEnv("log.level", "LOG_LEVEL")
	viper.BindEnv("log.format", "LOG_FORMAT")

	viper.BindEnv("venue.default_payment_mode", "VENUE_DEFAULT_PAYMENT_MODE")
	viper.BindEnv("venue.payment_modes", "VENUE_PAYMENT_MODES")
	viper.BindEnv("venue.qr_code_ttl", "VENUE_QR_CODE_TTL")
	viper.BindEnv("venue.export_timezone", "VENUE_EXPORT_TIMEZONE")

	viper.SetDefault("server.port", "8080")
	viper.BindEnv("server.port", "PORT")

	configErr := viper.ReadInConfig()

	log := logger.InitLogger()
	defer log.Sync()

	if configErr != nil {
		log.Info("config file not found, using defaults", zap.Error(configErr))
	}

	port := viper.GetString("server.port")
	docs.SwaggerInfo.Host = "localhost:" + port

	venue := config.LoadVenueConfig()
	if _, err := venue.LoadLocation(); err != nil {
		log.Warn("export timezone not found, using UTC",
			zap.String("timezone", venue.ExportTimezone), zap.Error(err))
	}
	authConfig := mW.GetAuthConfig()
	if !authConfig.Enabled {
		log.Warn("authentication disabled, ledger entries will carry no admin")
	}

	db := database.InitDatabase(log)
	defer db.Close()

	redisClient := database.InitRedis(log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditLogger := audit.NewLogger(log)

	catalogService := services.NewCatalogService(db)
	ledgerService := services.NewLedgerService(db, catalogService, auditLogger, venue, log)
	customerService := services.NewCustomerService(db, ledgerService, catalogService, auditLogger, venue, log)
	sessionService := services.NewSessionService(db, ledgerService, catalogService, auditLogger, log)
	qrService := services.NewQRService(customerService, redisClient, venue.QRCodeTTL, venue.QRCodeSize, log)
	dashboardService := services.NewDashboardService(db, sessionService, venue.Location())
	exportService := services.NewExportService(customerService, ledgerService, sessionService, venue.Location())

	router := handlers.NewRouter(handlers.Handlers{
		Customers: handlers.NewCustomerHandler(customerService, ledgerService, venue, log),
		Ledger:    handlers.NewLedgerHandler(ledgerService, venue, log),
		Sessions:  handlers.NewSessionHandler(sessionService, venue, log),
		Catalog:   handlers.NewCatalogHandler(catalogService, log),
		Reports:   handlers.NewReportHandler(dashboardService, exportService, venue, log),
		QR:        handlers.NewQRHandler(qrService, log),
	}, mW.AuthMiddleware(authConfig), "/swagger/doc.json")

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
