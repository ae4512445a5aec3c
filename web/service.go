// Package web runs the HTTP server as a managed service
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/zeptools/certgw/svc"
)

type Service struct {
	*svc.Lifecycle
	Server          *http.Server
	ShutdownTimeout time.Duration // grace period for in-flight requests
	listener        net.Listener
}

var _ svc.Service = (*Service)(nil)

func NewService(parentCtx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration) *Service {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &Service{
		Lifecycle:       svc.NewLifecycle(parentCtx, "WebService"),
		ShutdownTimeout: shutdownTimeout,
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Addr is the bound address once started
func (s *Service) Addr() string {
	if s.listener == nil {
		return s.Server.Addr
	}
	return s.listener.Addr().String()
}

// Start binds the listen address. Serving errors arrive on Done
func (s *Service) Start() error {
	if err := s.Begin(); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", s.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", s.Server.Addr, err)
	}
	s.listener = ln
	go s.run()
	return nil
}

func (s *Service) run() {
	served := make(chan error, 1)
	go func() {
		log.Printf("[INFO][HTTP] listening on %s", s.listener.Addr())
		err := s.Server.Serve(s.listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		served <- err
	}()

	select {
	case err := <-served:
		s.Finish(err)
		return
	case <-s.Ctx.Done():
	}

	log.Printf("[INFO][HTTP] draining for up to %v", s.ShutdownTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	err := s.Server.Shutdown(ctx)
	if err != nil {
		log.Printf("[ERROR][HTTP] shutdown: %v", err)
		_ = s.Server.Close()
	}
	if serr := <-served; serr != nil {
		err = serr
	}
	s.Finish(err)
}
