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

	commonmw "codejudge/internal/common/http/middleware"
	"codejudge/internal/common/mq"
	"codejudge/internal/judge/controller"
	"codejudge/internal/judge/sandbox"
	"codejudge/internal/judge/sandbox/engine"
	"codejudge/internal/judge/sandbox/observer"
	"codejudge/internal/judge/sandbox/profile"
	"codejudge/internal/judge/service"
	"codejudge/internal/judge/transport/natsjudge"
	"codejudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judge_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	registry := profile.NewRegistry(appCfg.Language.languages())
	box, closeBox, err := buildSandbox(appCfg.Sandbox, registry)
	if err != nil {
		logger.Error(context.Background(), "init sandbox failed", zap.String("mode", appCfg.Sandbox.Mode), zap.Error(err))
		return
	}
	defer closeBox()

	workspace, err := sandbox.NewWorkspace(appCfg.Judge.WorkRoot)
	if err != nil {
		logger.Error(context.Background(), "init workspace failed", zap.Error(err))
		return
	}

	judgeSvc, err := service.NewService(service.Config{
		Languages:      registry,
		Sandbox:        box,
		Workspace:      workspace,
		Observer:       observer.LogRecorder{},
		WorkerPoolSize: appCfg.Worker.PoolSize,
		QueueWait:      appCfg.Worker.QueueWait,
		MaxCodeBytes:   appCfg.Judge.MaxCodeBytes,
		MaxTestCases:   appCfg.Judge.MaxTestCases,
	})
	if err != nil {
		logger.Error(context.Background(), "init judge service failed", zap.Error(err))
		return
	}

	var queue *mq.NATSQueue
	if appCfg.NATS.URL != "" {
		queue, err = mq.NewNATSQueue(appCfg.NATS.toMQConfig())
		if err != nil {
			logger.Error(context.Background(), "init nats failed", zap.Error(err))
			return
		}
		defer func() {
			_ = queue.Close()
		}()
		handler := natsjudge.NewHandler(judgeSvc)
		if err := handler.Register(context.Background(), queue, appCfg.NATS.toSubscribeOptions()); err != nil {
			logger.Error(context.Background(), "subscribe nats failed", zap.Error(err))
			return
		}
	}

	httpServer := buildHTTPServer(appCfg.Server, judgeSvc)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "judge http server started",
			zap.String("addr", appCfg.Server.Addr),
			zap.String("sandbox", box.Name()),
		)
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	if queue != nil {
		if err := queue.Stop(); err != nil {
			logger.Error(context.Background(), "nats stop failed", zap.Error(err))
		}
	}
}

func buildSandbox(cfg SandboxConfig, registry *profile.Registry) (sandbox.Sandbox, func(), error) {
	switch cfg.Mode {
	case sandboxModeDocker:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		box, err := sandbox.NewDockerSandbox(ctx, cfg.DockerHost, cfg.StdoutStderrMaxBytes)
		if err != nil {
			return nil, nil, err
		}
		return box, func() { _ = box.Close() }, nil
	case sandboxModeDirect:
		logger.Warn(context.Background(), "direct sandbox mode runs submissions without isolation")
		return sandbox.NewProcessSandbox(cfg.StdoutStderrMaxBytes), func() {}, nil
	default:
		eng, err := engine.NewEngine(cfg.toEngineConfig(), registry)
		if err != nil {
			return nil, nil, err
		}
		return sandbox.NewEngineSandbox(eng), func() {}, nil
	}
}

func buildHTTPServer(cfg ServerConfig, judge controller.Judge) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	api := router.Group("/api/v1/judge")
	controller.NewJudgeController(judge).Register(api)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
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
