package chat

import (
	"google.golang.org/grpc"

	"github.com/oggyb/devmatch/internal/api"
	"github.com/oggyb/devmatch/internal/app"
)

// Registrar ties the Chat service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Chat service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Chat service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	api.RegisterChatServiceServer(s, NewChatService(r.appCtx))
}
