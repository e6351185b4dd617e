package daemon

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/quicksapp/quicks/internal/config"
	"go.uber.org/zap"
)

// Server manages the HTTP API lifecycle for the daemon. It binds the
// data-dir unix socket by default; config listen switches to TCP.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	socketPath string
	logger     *zap.Logger
}

// NewServer creates the API server with all middleware and routes mounted.
func NewServer(p Params, logger *zap.Logger, handlers *Handlers) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(RequestID(), RequestLogger(logger), Observe(), gin.Recovery())
	handlers.Register(engine)

	var (
		listener   net.Listener
		socketPath string
		err        error
	)
	if p.Config.Listen != "" {
		listener, err = net.Listen("tcp", p.Config.Listen)
		if err != nil {
			return nil, fmt.Errorf("listen tcp: %w", err)
		}
	} else {
		socketPath = p.SocketPath
		if socketPath == "" {
			socketPath = config.SocketPath(p.DataDir)
		}
		// Clean stale socket if it exists.
		if _, err := os.Stat(socketPath); err == nil {
			_ = os.Remove(socketPath)
		}
		listener, err = net.Listen("unix", socketPath)
		if err != nil {
			return nil, fmt.Errorf("listen unix socket: %w", err)
		}
		if err := os.Chmod(socketPath, 0600); err != nil {
			_ = listener.Close()
			return nil, fmt.Errorf("chmod socket: %w", err)
		}
	}

	return &Server{
		httpServer: &http.Server{Handler: engine},
		listener:   listener,
		socketPath: socketPath,
		logger:     logger,
	}, nil
}

// Start begins serving API requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("api server starting", zap.String("addr", s.listener.Addr().String()))
	err := s.httpServer.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop performs a graceful shutdown and removes the socket file.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("api server stopping")
	_ = s.httpServer.Shutdown(ctx)
	if s.socketPath != "" {
		_ = os.Remove(s.socketPath)
	}
}
