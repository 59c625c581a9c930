package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
)

// Server hosts the HTTP and gRPC endpoints of a Service.
type Server struct {
	svc      *Service
	httpAddr string
	grpcAddr string
	httpSrv  *http.Server
	grpcSrv  *grpc.Server
	log      *slog.Logger
}

// NewServer creates a Server. An empty grpcAddr disables gRPC.
func NewServer(svc *Service, httpAddr, grpcAddr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:      svc,
		httpAddr: httpAddr,
		grpcAddr: grpcAddr,
		log:      logger.With("component", "server"),
	}
	s.httpSrv = &http.Server{
		Addr:              httpAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.grpcSrv = grpc.NewServer()
	RegisterBacktestService(s.grpcSrv, NewGRPCService(svc))
	return s
}

// GRPCServer returns the underlying gRPC server.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcSrv
}

// ListenAndServe starts the HTTP and gRPC listeners and blocks until the
// context is cancelled or a listener fails. It shuts both down on return.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		s.log.Info("http listening", "addr", s.httpAddr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if s.grpcAddr != "" {
		lis, err := net.Listen("tcp", s.grpcAddr)
		if err != nil {
			s.httpSrv.Close()
			return fmt.Errorf("listening on %s: %w", s.grpcAddr, err)
		}
		go func() {
			s.log.Info("grpc listening", "addr", s.grpcAddr)
			if err := s.grpcSrv.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := s.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}
	return err
}

// Shutdown performs a graceful shutdown of the HTTP and gRPC servers.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.grpcSrv.GracefulStop()
		close(done)
	}()

	err := s.httpSrv.Shutdown(ctx)

	select {
	case <-done:
	case <-ctx.Done():
		s.grpcSrv.Stop()
	}
	s.log.Info("server stopped")
	return err
}
