package main

import (
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"souk/internal/auth"
	"souk/internal/db"
	"souk/internal/domain/carts"
	"souk/internal/domain/checkout"
	"souk/internal/domain/orders"
	"souk/internal/domain/shipping"
	"souk/internal/domain/storage"
	"souk/internal/events"
	"souk/internal/mailer"
	"souk/internal/notifications"
	"souk/internal/ratelimiter"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	// Default values
	defaultRequests := 200
	defaultEnabled := false

	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// LoadShippingConfig reads the flat rate and free-shipping threshold, both
// in cents.
func LoadShippingConfig() shipping.Config {
	cfg := shipping.Config{
		FreeThresholdCents: 3000,
		FlatRateCents:      250,
	}

	if val, exists := os.LookupEnv("SHIPPING_FREE_THRESHOLD_CENTS"); exists {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil && parsed >= 0 {
			cfg.FreeThresholdCents = parsed
		}
	}
	if val, exists := os.LookupEnv("SHIPPING_FLAT_RATE_CENTS"); exists {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil && parsed >= 0 {
			cfg.FlatRateCents = parsed
		}
	}
	return cfg
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder // This adds color to log levels (INFO, WARN, ERROR)

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	level := zapcore.InfoLevel

	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	logger := zap.New(core)

	return logger.Sugar(), nil
}

var version = "1.0.0"

//	@title			Souk API
//	@description	Storefront API for Souk: catalog, carts, coupons and checkout.

//	@contact.name	API Support
//	@contact.email	support@souk.example

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Fatalf("Error loading .env file: %v", err)
	}

	maxConnsStr := os.Getenv("DB_MAX_CONNS")
	maxConns, err := strconv.Atoi(maxConnsStr)
	if err != nil {
		log.Fatalf("Invalid value for DB_MAX_CONNS: %v", err)
	}

	smtpPort := 587
	if val := os.Getenv("SMTP_PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			smtpPort = parsed
		}
	}

	var kafkaBrokers []string
	if val := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); val != "" {
		kafkaBrokers = strings.Split(val, ",")
	}

	cfg := config{
		addr:        os.Getenv("ADDR"),
		env:         os.Getenv("ENV"),
		frontendURL: os.Getenv("FRONTEND_URL"),
		apiURL:      os.Getenv("EXTERNAL_URL"),
		db: dbConfig{
			addr:        os.Getenv("DB_ADDR"),
			maxConns:    maxConns,
			maxIdleTime: os.Getenv("DB_MAX_IDLE_TIME"),
		},
		mail: mailConfig{
			fromEmail:  os.Getenv("MAIL_FROM_EMAIL"),
			adminEmail: os.Getenv("MAIL_ADMIN_EMAIL"),
			smtp: smtpConfig{
				host:     os.Getenv("SMTP_HOST"),
				port:     smtpPort,
				username: os.Getenv("SMTP_USERNAME"),
				password: os.Getenv("SMTP_PASSWORD"),
			},
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				refreshSecret:   os.Getenv("AUTH_TOKEN_REFRESH_SECRET"),
				secret:          os.Getenv("AUTH_TOKEN_SECRET"),
				accessTokenExp:  time.Hour * 24 * 3, // 3 days
				refreshTokenExp: time.Hour * 24 * 9, // 9 days
				iss:             "Souk",
			},
		},
		rateLimiter: LoadRateLimiterConfig(),
		shipping:    LoadShippingConfig(),
		kafka: kafkaConfig{
			brokers: kafkaBrokers,
			topic:   os.Getenv("KAFKA_ORDER_TOPIC"),
		},
	}

	// Logger
	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// Database
	db, err := db.New(
		cfg.db.addr,
		int32(cfg.db.maxConns),
		cfg.db.maxIdleTime,
	)
	if err != nil {
		logger.Fatal(err)
	}

	defer db.Close()
	logger.Info("database connection pool established")

	// Order numbers
	orderNumbers, err := orders.NewOrderNumberGenerator(os.Getenv("ORDER_NUMBER_SALT"))
	if err != nil {
		logger.Fatal(err)
	}

	// storage
	store := storage.NewContainer(db, orderNumbers)

	// Carts survive a database outage on the in-memory fallback.
	cartStore := carts.NewResilient(store.Carts, carts.NewMemoryStore(), logger)

	// client to send order emails
	smtp, err := mailer.NewSMTPClient(
		cfg.mail.smtp.host,
		cfg.mail.smtp.port,
		cfg.mail.smtp.username,
		cfg.mail.smtp.password,
		cfg.mail.fromEmail,
	)
	if err != nil {
		logger.Fatal(err)
	}

	// Order event stream; nil when no brokers are configured.
	publisher := events.NewPublisher(cfg.kafka.brokers, cfg.kafka.topic, logger)
	if publisher != nil {
		defer publisher.Close()
	}

	notifier := notifications.NewOrderNotifier(smtp, publisher, cfg.mail.adminEmail, logger)

	checkoutService := checkout.NewService(store, cfg.shipping, notifier, logger)

	// Rate limiter
	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	// Authenticator
	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.refreshSecret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
	)

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         store,
		carts:         cartStore,
		checkout:      checkoutService,
		mailer:        smtp,
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,
	}

	app.markAbandonedCartsEveryHour()

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		s := db.Stat()
		return map[string]any{
			"total_conns":    s.TotalConns(),
			"idle_conns":     s.IdleConns(),
			"acquired_conns": s.AcquiredConns(),
		}
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
