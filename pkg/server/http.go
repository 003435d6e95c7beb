package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stactask/internal/app"
	"stactask/internal/job"
)

const shutdownTimeout = 10 * time.Second

// HTTPServer 封装 HTTP 服务运行所需的依赖。
type HTTPServer struct {
	Engine  *gin.Engine
	Logger  *zap.Logger
	Config  app.Config
	Service *app.Service
	Janitor *job.Scheduler
}

// NewHTTPServer 构建 HTTPServer。
func NewHTTPServer(engine *gin.Engine, logger *zap.Logger, cfg app.Config, svc *app.Service, janitor *job.Scheduler) *HTTPServer {
	return &HTTPServer{
		Engine:  engine,
		Logger:  logger,
		Config:  cfg,
		Service: svc,
		Janitor: janitor,
	}
}

// Run 启动 HTTP 服务及后台清理任务，ctx 取消时优雅退出。
func (s *HTTPServer) Run(ctx context.Context) error {
	listen := strings.TrimSpace(s.Config.HTTP.Listen)
	if listen == "" {
		listen = ":8080"
	}

	if s.Janitor != nil {
		stop := s.Janitor.Start(ctx)
		defer stop()
	}

	srv := &http.Server{Addr: listen, Handler: s.Engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if s.Logger != nil {
			s.Logger.Info("http server starting", zap.String("listen", listen))
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.Logger != nil {
		s.Logger.Info("http server shutting down")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.Shutdown(shutdownCtx)
	return nil
}

// Shutdown 释放资源。
func (s *HTTPServer) Shutdown(ctx context.Context) {
	if s.Service != nil {
		if err := s.Service.Close(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("close app service failed", zap.Error(err))
		}
	}
	if s.Logger != nil {
		_ = s.Logger.Sync()
	}
}
