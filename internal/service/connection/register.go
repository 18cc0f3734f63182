package connection

import (
	"google.golang.org/grpc"

	"github.com/oggyb/devmatch/internal/api"
	"github.com/oggyb/devmatch/internal/app"
)

// Registrar ties the Connection service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
	opts   []Option
}

// NewRegistrar creates a new Registrar for the Connection service
func NewRegistrar(appCtx *app.AppContext, opts ...Option) *Registrar {
	return &Registrar{appCtx: appCtx, opts: opts}
}

// Register attaches the Connection service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	api.RegisterConnectionServiceServer(s, NewConnectionService(r.appCtx, r.opts...))
}
