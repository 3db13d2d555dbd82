package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gebeya/marketplace/internal/config"
	"github.com/gebeya/marketplace/internal/es"
	"github.com/gebeya/marketplace/internal/handlers"
	"github.com/gebeya/marketplace/internal/logging"
	authmw "github.com/gebeya/marketplace/internal/middleware/auth"
	loggingmw "github.com/gebeya/marketplace/internal/middleware/logging"
	"github.com/gebeya/marketplace/internal/mykafka"
	"github.com/gebeya/marketplace/internal/service/order"
	httpserver "github.com/gebeya/marketplace/internal/transport/http"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LogLevel)

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Error("db init failed", "error", err)
		os.Exit(1)
	}

	jwtSecret := []byte(cfg.JWT_SECRET)

	var producer *mykafka.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer, err = mykafka.NewProducer([]string{cfg.KAFKA_ADDRESS})
		if err != nil {
			logger.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("KAFKA_ADDRESS not set, domain events disabled")
	}

	var searchClient *elasticsearch.Client
	if cfg.ES_URL != "" {
		searchClient, err = es.NewClient(cfg)
		if err != nil {
			logger.Error("elasticsearch init failed", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("ES_URL not set, product search disabled")
	}

	orderSvc := &order.Service{DB: db}

	deps := &httpserver.Deps{
		Auth:           &authmw.Middleware{DB: db, JWTSecret: jwtSecret},
		AuthHandler:    &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, Producer: producer},
		ProductHandler: &handlers.ProductHandler{DB: db, Producer: producer, ES: searchClient, ESIndex: es.ProductIndex},
		OrderHandler:   &handlers.OrderHandler{Svc: orderSvc, Producer: producer},
		UserHandler:    &handlers.UserHandler{DB: db},
		AdminHandler:   &handlers.AdminHandler{DB: db, Svc: orderSvc},
		SearchHandler:  &handlers.SearchHandler{ES: searchClient, Index: es.ProductIndex},
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	} else {
		logger.Error("db handle error", "error", err)
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
