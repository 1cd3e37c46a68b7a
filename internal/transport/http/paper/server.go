package paperhttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"paperperp/internal/engine"
	"paperperp/internal/logger"
	"paperperp/internal/market"
	"paperperp/internal/store"

	"github.com/gin-gonic/gin"
)

// Server 提供最小化的 /api/paper HTTP 服务（账户查询 + 手动开平仓）。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述模拟盘 HTTP 服务依赖。
type ServerConfig struct {
	Addr    string
	Engine  *engine.Engine
	Book    *market.PriceBook
	Archive store.TradeArchive
}

// NewServer 构建模拟盘 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("paper http server requires an engine")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9992"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	paperRouter := NewRouter(cfg.Engine, cfg.Book, cfg.Archive)
	paperRouter.Register(router.Group("/api/paper"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger 记录接口的人工操作，便于追踪刷新与调用。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Handler 暴露底层 router, 便于测试用 httptest 直接驱动。
func (s *Server) Handler() http.Handler {
	return s.router
}
