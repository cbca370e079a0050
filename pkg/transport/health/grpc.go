package health

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const ServiceName = "storefront"

// Server exposes grpc.health.v1 and flips serving status from a readiness probe.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	probe  func(ctx context.Context) error
}

func NewServer(probe func(ctx context.Context) error) *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		probe:  probe,
	}
	grpc_health_v1.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	return s
}

// Serve blocks until ctx is done, re-probing readiness every interval.
func (s *Server) Serve(ctx context.Context, address string, interval time.Duration) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "listen %s", address)
	}

	go s.watch(ctx, interval)
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpc.GracefulStop()
	}()

	log.WithField("address", address).Info("starting grpc health server")
	if err := s.grpc.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return errors.Wrap(err, "serve grpc")
	}
	return nil
}

func (s *Server) watch(ctx context.Context, interval time.Duration) {
	s.check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Server) check(ctx context.Context) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if s.probe != nil {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.probe(probeCtx); err != nil {
			log.WithError(err).Warn("readiness probe failed")
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
