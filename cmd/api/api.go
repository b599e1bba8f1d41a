package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"souk/docs" //this is required to generate swagger docs
	"souk/internal/auth"
	"souk/internal/domain/carts"
	"souk/internal/domain/checkout"
	"souk/internal/domain/shipping"
	"souk/internal/domain/storage"
	"souk/internal/mailer"
	"souk/internal/ratelimiter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         *storage.Container
	carts         carts.Store
	checkout      *checkout.Service
	logger        *zap.SugaredLogger
	mailer        mailer.Client
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
}

type config struct {
	addr        string
	db          dbConfig
	env         string
	apiURL      string
	mail        mailConfig
	frontendURL string
	auth        authConfig
	rateLimiter ratelimiter.Config
	shipping    shipping.Config
	kafka       kafkaConfig
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}
type tokenConfig struct {
	refreshSecret   string
	secret          string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	iss             string
}
type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	fromEmail  string
	adminEmail string
	smtp       smtpConfig
}

type smtpConfig struct {
	host     string
	port     int
	username string
	password string
}

type dbConfig struct {
	addr        string
	maxConns    int
	maxIdleTime string
}

type kafkaConfig struct {
	brokers []string
	topic   string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiterMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Guest-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)
		r.With(app.BasicAuthMiddleware()).Get("/debug/metrics", promhttp.Handler().ServeHTTP)

		r.Route("/store", func(r chi.Router) {
			r.Route("/products", func(r chi.Router) {
				r.Get("/", app.listProductsHandler)
				r.Get("/{slug}", app.getProductHandler)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Use(app.CartOwnerMiddleware)
				r.Get("/", app.getCartHandler)
				r.Delete("/", app.clearCartHandler)
				r.Post("/items", app.addCartItemHandler)
				r.Patch("/items/{itemID}", app.updateCartItemQtyHandler)
				r.Delete("/items/{itemID}", app.removeCartItemHandler)
			})

			// requires a logged-in user plus the guest token being adopted
			r.With(app.AuthTokenMiddleware).Post("/cart/merge", app.mergeCartHandler)

			r.With(app.CartOwnerMiddleware).Post("/checkout", app.checkoutHandler)

			r.Post("/coupons/preview", app.previewCouponHandler)

			r.Route("/orders", func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Get("/", app.listMyOrdersHandler)
				r.Get("/{orderID}", app.getMyOrderHandler)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(app.BasicAuthMiddleware())

			r.Route("/coupons", func(r chi.Router) {
				r.Post("/", app.createCouponHandler)
				r.Get("/", app.listCouponsHandler)
				r.Patch("/{couponID}/active", app.setCouponActiveHandler)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", app.adminListOrdersHandler)
				r.Get("/{orderID}", app.adminGetOrderHandler)
				r.Patch("/{orderID}/status", app.adminUpdateOrderStatusHandler)
			})

			r.Get("/carts", app.adminListCartsHandler)
			r.Post("/carts/sweep", app.adminSweepCartsHandler)
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
