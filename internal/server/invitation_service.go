package server

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	orgkeeperv1 "github.com/wolfeidau/orgkeeper/api/orgkeeper/v1"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/invitation"
	"github.com/wolfeidau/orgkeeper/internal/models"
)

// InvitationServer implements orgkeeper.v1.InvitationService.
// PreviewInvitation is public; the token is the credential.
type InvitationServer struct {
	svc *invitation.Service
}

// NewInvitationServer creates a new InvitationService server.
func NewInvitationServer(svc *invitation.Service) *InvitationServer {
	return &InvitationServer{svc: svc}
}

func (s *InvitationServer) register(mux *http.ServeMux, opts []connect.HandlerOption) {
	handle(mux, orgkeeperv1.InvitationServiceCreateInvitationProcedure, s.CreateInvitation, opts)
	handle(mux, orgkeeperv1.InvitationServiceAcceptInvitationProcedure, s.AcceptInvitation, opts)
	handle(mux, orgkeeperv1.InvitationServiceRevokeInvitationProcedure, s.RevokeInvitation, opts)
	handle(mux, orgkeeperv1.InvitationServiceListInvitationsProcedure, s.ListInvitations, opts)
	handle(mux, orgkeeperv1.InvitationServicePreviewInvitationProcedure, s.PreviewInvitation, opts)
}

func (s *InvitationServer) CreateInvitation(ctx context.Context, req *orgkeeperv1.CreateInvitationRequest) (*orgkeeperv1.CreateInvitationResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	inv, token, err := s.svc.Create(ctx, actor.ActorID, req.OrgSlug, invitation.CreateInput{
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		return nil, err
	}

	return &orgkeeperv1.CreateInvitationResponse{
		Invitation: toInvitation(inv, time.Now()),
		Token:      token,
	}, nil
}

func (s *InvitationServer) AcceptInvitation(ctx context.Context, req *orgkeeperv1.AcceptInvitationRequest) (*orgkeeperv1.AcceptInvitationResponse, error) {
	membership, err := s.svc.Accept(ctx, auth.ActorFromContext(ctx), req.Token)
	if err != nil {
		return nil, err
	}

	return &orgkeeperv1.AcceptInvitationResponse{
		Member: toMember(membership),
		OrgID:  membership.OrgID.String(),
	}, nil
}

func (s *InvitationServer) RevokeInvitation(ctx context.Context, req *orgkeeperv1.RevokeInvitationRequest) (*orgkeeperv1.RevokeInvitationResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	invitationID, err := uuid.Parse(req.InvitationID)
	if err != nil {
		return nil, invalidID("server.RevokeInvitation", "invitation_id")
	}

	if err := s.svc.Revoke(ctx, actor.ActorID, req.OrgSlug, invitationID); err != nil {
		return nil, err
	}
	return &orgkeeperv1.RevokeInvitationResponse{}, nil
}

func (s *InvitationServer) ListInvitations(ctx context.Context, req *orgkeeperv1.ListInvitationsRequest) (*orgkeeperv1.ListInvitationsResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	invs, err := s.svc.List(ctx, actor.ActorID, req.OrgSlug)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	resp := &orgkeeperv1.ListInvitationsResponse{Invitations: make([]orgkeeperv1.Invitation, 0, len(invs))}
	for _, inv := range invs {
		resp.Invitations = append(resp.Invitations, toInvitation(inv, now))
	}
	return resp, nil
}

func (s *InvitationServer) PreviewInvitation(ctx context.Context, req *orgkeeperv1.PreviewInvitationRequest) (*orgkeeperv1.PreviewInvitationResponse, error) {
	preview, err := s.svc.Preview(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	return &orgkeeperv1.PreviewInvitationResponse{
		OrgName:   preview.OrgName,
		OrgSlug:   preview.OrgSlug,
		Email:     preview.Email,
		Role:      string(preview.Role),
		ExpiresAt: preview.ExpiresAt,
	}, nil
}

func toInvitation(inv *models.Invitation, now time.Time) orgkeeperv1.Invitation {
	return orgkeeperv1.Invitation{
		InvitationID: inv.InvitationID.String(),
		OrgID:        inv.OrgID.String(),
		Email:        inv.Email,
		Role:         string(inv.Role),
		Status:       string(inv.EffectiveStatus(now)),
		InvitedBy:    inv.InvitedBy.String(),
		CreatedAt:    inv.CreatedAt,
		ExpiresAt:    inv.ExpiresAt,
		AcceptedAt:   inv.AcceptedAt,
	}
}
