package server

import "google.golang.org/grpc"

// Registrar attaches one companion API service (chat, connection) to the
// gRPC server built by NewGRPCServer.
type Registrar interface {
	Register(s *grpc.Server)
}

// RegistrarFunc adapts a plain function to Registrar.
type RegistrarFunc func(s *grpc.Server)

func (f RegistrarFunc) Register(s *grpc.Server) { f(s) }
