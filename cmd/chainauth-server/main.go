package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	chainAuth "github.com/MrEthical07/chainAuth"
	"github.com/MrEthical07/chainAuth/httpapi"
	"github.com/MrEthical07/chainAuth/internal/serverconfig"
	"github.com/MrEthical07/chainAuth/mail"
	"github.com/MrEthical07/chainAuth/store/gormstore"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := serverconfig.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, closeRedis, err := openRedis(cfg, logger)
	if err != nil {
		logger.Fatalf("setup redis: %v", err)
	}
	defer closeRedis()

	if cfg.Database.Driver == string(gormstore.DriverSQLite) {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.Fatalf("create database directory: %v", err)
			}
		}
	}
	st, err := gormstore.Open(ctx, gormstore.Config{
		Driver: gormstore.Driver(cfg.Database.Driver),
		DSN:    cfg.Database.DSN,
	})
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer st.Close()

	engineCfg := cfg.EngineConfig()
	builder := chainAuth.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithStore(st).
		WithMailer(buildMailer(cfg, engineCfg.OTP.TTL, logger)).
		WithLogger(logger)
	if engineCfg.Audit.Enabled {
		builder = builder.WithAuditSink(chainAuth.NewLogrusSink(logger.WithField("component", "audit")))
	}
	engine, err := builder.Build()
	if err != nil {
		logger.Fatalf("build engine: %v", err)
	}
	defer engine.Close()

	go engine.RunCleanupLoop(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	httpapi.NewHandler(engine,
		httpapi.WithLogger(logger),
		httpapi.WithAllowedOrigins(cfg.Origins()...),
	).RegisterRoutes(router)

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":        addr,
			"environment": cfg.Server.Environment,
			"database":    cfg.Database.Driver,
		}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg serverconfig.Config) {
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// openRedis connects to the configured Redis or starts an embedded one.
func openRedis(cfg serverconfig.Config, logger *logrus.Logger) (redis.UniversalClient, func(), error) {
	addr := cfg.Redis.Addr
	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		addr = mr.Addr()
		logger.Warn("REDIS_ADDR not set; using embedded miniredis, limiter state is lost on restart")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cleanup := func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}
	return client, cleanup, nil
}

func buildMailer(cfg serverconfig.Config, validity time.Duration, logger *logrus.Logger) mail.Sender {
	smtpCfg, ok := cfg.SMTP(validity)
	if !ok {
		logger.Warn("EMAIL_HOST not set; passcodes are written to the log")
		return mail.NewLogSender(logger)
	}
	sender, err := mail.NewSMTPSender(smtpCfg)
	if err != nil {
		logger.Fatalf("setup smtp: %v", err)
	}
	return sender
}
