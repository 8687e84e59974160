package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/collector-manager/pkg/config"
	"github.com/collector-manager/pkg/logger"
	"github.com/collector-manager/pkg/metrics"
	"github.com/collector-manager/pkg/service"
)

// Server HTTP服务实例，封装核心依赖和配置
type Server struct {
	cfg      *config.Config
	logger   *logger.Logger
	server   *http.Server
	registry metrics.Registers
	svc      *service.CollectorService
	mux      *customMux
}

// statusWriter 包装ResponseWriter，捕获状态码
type statusWriter struct {
	http.ResponseWriter
	status int
}

// customMux 自定义Mux，兼容原生用法并记录路由
type customMux struct {
	http.ServeMux
	routes []string
	mu     sync.Mutex
}

const defaultShutdownTimeout = 5 * time.Second

// Handle 重写Handle，注册路由时记录路径
func (m *customMux) Handle(pattern string, handler http.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.routes = append(m.routes, pattern)
	m.ServeMux.Handle(pattern, handler)
}

// HandleFunc 重写HandleFunc
func (m *customMux) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	m.Handle(pattern, http.HandlerFunc(handler))
}

// NewHTTPServer 创建HTTP服务实例
func NewHTTPServer(cfg *config.Config, log *logger.Logger, registry metrics.Registers, svc *service.CollectorService) *Server {
	srv := &Server{
		cfg:      cfg,
		logger:   log,
		registry: registry,
		svc:      svc,
		mux:      &customMux{},
	}

	srv.registerEndpoints()

	srv.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return srv
}

// Handler 带日志中间件的路由
func (s *Server) Handler() http.Handler {
	return s.logMiddleware(s.mux)
}

// logMiddleware 统一日志记录
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		s.logger.Info(
			"HTTP request",
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.String("remote", r.RemoteAddr),
			zap.String("domain_id", r.Header.Get(domainHeader)),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// registerEndpoints 注册核心路由
func (s *Server) registerEndpoints() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry.Gatherer(), promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(s.logger),
	}))
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /collectors", s.withDomain(s.createCollector))
	s.mux.HandleFunc("GET /collectors", s.withDomain(s.listCollectors))
	s.mux.HandleFunc("GET /collectors/stat", s.withDomain(s.statCollectors))
	s.mux.HandleFunc("GET /collectors/{id}", s.withDomain(s.getCollector))
	s.mux.HandleFunc("PATCH /collectors/{id}", s.withDomain(s.updateCollector))
	s.mux.HandleFunc("DELETE /collectors/{id}", s.withDomain(s.deleteCollector))
	s.mux.HandleFunc("POST /collectors/{id}/enable", s.withDomain(s.enableCollector))
	s.mux.HandleFunc("POST /collectors/{id}/disable", s.withDomain(s.disableCollector))
	s.mux.HandleFunc("POST /collectors/{id}/collect", s.withDomain(s.collect))
	s.mux.HandleFunc("POST /collectors/{id}/completed", s.withDomain(s.completeCollection))

	s.mux.HandleFunc("POST /schedules", s.withDomain(s.createSchedule))
	s.mux.HandleFunc("GET /schedules", s.withDomain(s.listSchedules))
	s.mux.HandleFunc("GET /schedules/stat", s.withDomain(s.statSchedules))
	s.mux.HandleFunc("GET /schedules/{id}", s.withDomain(s.getSchedule))
	s.mux.HandleFunc("PATCH /schedules/{id}", s.withDomain(s.updateSchedule))
	s.mux.HandleFunc("DELETE /schedules/{id}", s.withDomain(s.deleteSchedule))
	s.mux.HandleFunc("POST /schedules/{id}/run", s.withDomain(s.runSchedule))
}

// WriteHeader 捕获状态码
func (w *statusWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Start 启动HTTP服务（非阻塞）
func (s *Server) Start() error {
	s.logger.Info(
		"starting HTTP server",
		zap.String("listen_addr", s.cfg.Server.Addr),
		zap.Strings("handle_funcs", s.mux.routes),
	)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown 优雅关闭HTTP服务
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded")
			return nil
		}
		s.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server shutdown successfully")
	return nil
}
