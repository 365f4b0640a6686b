package server

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	orgkeeperv1 "github.com/wolfeidau/orgkeeper/api/orgkeeper/v1"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/billing"
)

// BillingServer implements orgkeeper.v1.BillingService.
type BillingServer struct {
	svc *billing.Service
}

// NewBillingServer creates a new BillingService server.
func NewBillingServer(svc *billing.Service) *BillingServer {
	return &BillingServer{svc: svc}
}

func (s *BillingServer) register(mux *http.ServeMux, opts []connect.HandlerOption) {
	handle(mux, orgkeeperv1.BillingServiceGetBillingBreakdownProcedure, s.GetBillingBreakdown, opts)
}

func (s *BillingServer) GetBillingBreakdown(ctx context.Context, req *orgkeeperv1.GetBillingBreakdownRequest) (*orgkeeperv1.GetBillingBreakdownResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.svc.Breakdown(ctx, actor.ActorID, req.OrgSlug)
	if err != nil {
		return nil, err
	}
	return &orgkeeperv1.GetBillingBreakdownResponse{Breakdown: breakdown}, nil
}
