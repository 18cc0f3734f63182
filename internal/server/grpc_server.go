package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/oggyb/devmatch/internal/auth"
	"github.com/oggyb/devmatch/internal/config"
	svcErr "github.com/oggyb/devmatch/internal/errors"

	// registers the JSON codec the companion API speaks
	_ "github.com/oggyb/devmatch/internal/api"
)

// TokenVerifier resolves a bearer token to a user ID.
type TokenVerifier interface {
	Verify(token string) (uint64, error)
}

// NewGRPCServer builds a gRPC server that authenticates every call and
// registers all provided services.
func NewGRPCServer(verifier TokenVerifier, log *slog.Logger, registrars ...Registrar) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			UnaryLoggingInterceptor(log),
			UnaryAuthInterceptor(verifier),
		),
	)

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}
	return grpcServer
}

// StartGRPCServer serves srv on the configured address until ctx is done,
// then stops gracefully.
func StartGRPCServer(ctx context.Context, cfg *config.Config, srv *grpc.Server) error {
	addr := fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// UnaryAuthInterceptor verifies the "authorization: Bearer <jwt>" metadata
// and binds the caller's user ID to the handler context.
func UnaryAuthInterceptor(verifier TokenVerifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var token string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("authorization"); len(vals) > 0 {
				token = auth.BearerToken(vals[0])
			}
		}
		userID, err := verifier.Verify(token)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		return handler(auth.WithUserID(ctx, userID), req)
	}
}

// UnaryLoggingInterceptor logs one line per call with its status code.
func UnaryLoggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		args := []any{"method", info.FullMethod, "code", code.String(), "duration", time.Since(start)}
		if err != nil {
			log.Warn("grpc call failed", append(args, "err", err)...)
		} else {
			log.Debug("grpc call", args...)
		}
		return resp, err
	}
}
