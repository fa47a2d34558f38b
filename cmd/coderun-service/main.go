package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coderun/internal/coderun/controller"
	"coderun/internal/coderun/repository"
	"coderun/internal/coderun/service"
	"coderun/internal/common/cache"
	"coderun/internal/common/db"
	commonmw "coderun/internal/common/http/middleware"
	"coderun/internal/common/limiter"
	"coderun/internal/common/mq"
	"coderun/internal/sandbox"
	"coderun/internal/sandbox/engine"
	"coderun/internal/sandbox/language"
	"coderun/internal/sandbox/observer"
	"coderun/internal/sandbox/runner"
	"coderun/pkg/utils/logger"
	"coderun/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/coderun_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(appCfg); err != nil {
		logger.Error(context.Background(), "coderun service stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appCfg *AppConfig) error {
	ctx := context.Background()

	var (
		metrics  observer.MetricsRecorder
		registry *prometheus.Registry
	)
	gate := limiter.NewTokenLimiter(appCfg.Admission.Capacity)
	if appCfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder, err := observer.NewPrometheusRecorder(registry)
		if err != nil {
			return fmt.Errorf("init metrics failed: %w", err)
		}
		if err := observer.RegisterGateGauges(registry, gate.Capacity(), gate.InUse); err != nil {
			return fmt.Errorf("init gate metrics failed: %w", err)
		}
		metrics = recorder
	}

	langs, err := language.NewRegistry(appCfg.Languages)
	if err != nil {
		return fmt.Errorf("init languages failed: %w", err)
	}
	eng, err := engine.NewEngine(engine.Config{Env: appCfg.Sandbox.Env})
	if err != nil {
		return fmt.Errorf("init engine failed: %w", err)
	}
	jobRunner, err := runner.NewRunner(eng, gate, metrics, appCfg.runnerConfig())
	if err != nil {
		return fmt.Errorf("init runner failed: %w", err)
	}
	sb, err := sandbox.New(appCfg.sandboxConfig(), langs, eng, jobRunner, metrics)
	if err != nil {
		return fmt.Errorf("init sandbox failed: %w", err)
	}

	svcCfg := service.Config{
		Executor:       sb,
		MaxSourceBytes: appCfg.Limits.MaxSourceBytes,
		MaxInputBytes:  appCfg.Limits.MaxInputBytes,
		PersistTimeout: appCfg.PersistTimeout,
	}

	if appCfg.Cache.Enabled {
		redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			return fmt.Errorf("init redis failed: %w", err)
		}
		defer func() {
			_ = redisCache.Close()
		}()
		results, err := repository.NewResultCache(redisCache, appCfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("init result cache failed: %w", err)
		}
		defer func() {
			_ = results.Close()
		}()
		svcCfg.Results = results
		svcCfg.CacheSuccess = appCfg.Cache.SuccessResults
	}

	if appCfg.Events.Enabled {
		producer, err := mq.NewKafkaProducer(appCfg.Kafka)
		if err != nil {
			return fmt.Errorf("init kafka failed: %w", err)
		}
		defer func() {
			_ = producer.Close()
		}()
		svcCfg.Events = repository.NewMQEventPublisher(producer, appCfg.Events.Topic)
	}

	if appCfg.RunLog.Enabled {
		mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
		if err != nil {
			return fmt.Errorf("init database failed: %w", err)
		}
		defer func() {
			_ = mysqlDB.Close()
		}()
		svcCfg.RunLog = repository.NewSQLRunLog(db.NewManager(mysqlDB))
	}

	runSvc, err := service.NewService(svcCfg)
	if err != nil {
		return fmt.Errorf("init run service failed: %w", err)
	}

	httpServer := buildHTTPServer(appCfg, runSvc, registry)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("init http listener failed: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "coderun http server started",
			zap.String("addr", appCfg.Server.Addr),
			zap.Strings("languages", sb.Languages()),
			zap.Int64("admission_capacity", gate.Capacity()),
		)
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server stopped: %w", err)
		}
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
	return nil
}

func buildHTTPServer(cfg *AppConfig, svc *service.Service, registry *prometheus.Registry) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})
	if registry != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	controller.NewRunController(svc).Register(router.Group("/api/v1"))

	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
