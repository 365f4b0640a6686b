package server

import (
	"context"
	"net/http"

	"connectrpc.com/authn"
	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	orgkeeperv1 "github.com/wolfeidau/orgkeeper/api/orgkeeper/v1"
	"github.com/wolfeidau/orgkeeper/internal/billing"
	"github.com/wolfeidau/orgkeeper/internal/credential"
	httpmiddleware "github.com/wolfeidau/orgkeeper/internal/http"
	"github.com/wolfeidau/orgkeeper/internal/invitation"
	"github.com/wolfeidau/orgkeeper/internal/logger"
	"github.com/wolfeidau/orgkeeper/internal/orgctx"
	"github.com/wolfeidau/orgkeeper/internal/organization"
)

// Services are the domain services exposed over RPC.
type Services struct {
	Organizations *organization.Service
	Invitations   *invitation.Service
	Credentials   *credential.Issuer
	Billing       *billing.Service
}

// Server wraps the HTTP handler and the orgkeeper.v1 services
type Server struct {
	organizations *OrganizationServer
	invitations   *InvitationServer
	credentials   *CredentialServer
	billing       *BillingServer
}

// NewServer creates a new server over the given services
func NewServer(services Services) *Server {
	return &Server{
		organizations: NewOrganizationServer(services.Organizations),
		invitations:   NewInvitationServer(services.Invitations),
		credentials:   NewCredentialServer(services.Credentials),
		billing:       NewBillingServer(services.Billing),
	}
}

// Handler returns the HTTP handler for the server. Every procedure except the public ones
// requires a bearer identity token checked by authFunc.
func (s *Server) Handler(log zerolog.Logger, authFunc authn.AuthFunc, clientIP httpmiddleware.ClientIPConfig, interceptors ...connect.Interceptor) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	opts := []connect.HandlerOption{
		connect.WithCodec(orgkeeperv1.Codec{}),
		connect.WithInterceptors(append([]connect.Interceptor{
			logger.NewConnectRequests(log),
			orgctx.NewMemoInterceptor(),
		}, interceptors...)...),
	}

	s.organizations.register(mux, opts)
	s.invitations.register(mux, opts)
	s.credentials.register(mux, opts)
	s.billing.register(mux, opts)

	middleware := authn.NewMiddleware(authFunc)
	return httpmiddleware.ClientIPMiddleware(clientIP)(middleware.Wrap(mux))
}

// handle registers a unary procedure served by fn.
func handle[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *Req) (*Res, error), opts []connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			res, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, toConnectError(ctx, err)
			}
			return connect.NewResponse(res), nil
		},
		opts...,
	))
}
