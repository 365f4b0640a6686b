package server

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	orgkeeperv1 "github.com/wolfeidau/orgkeeper/api/orgkeeper/v1"
	"github.com/wolfeidau/orgkeeper/internal/auth"
	"github.com/wolfeidau/orgkeeper/internal/entitlement"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/organization"
)

// OrganizationServer implements orgkeeper.v1.OrganizationService.
type OrganizationServer struct {
	svc *organization.Service
}

// NewOrganizationServer creates a new OrganizationService server.
func NewOrganizationServer(svc *organization.Service) *OrganizationServer {
	return &OrganizationServer{svc: svc}
}

func (s *OrganizationServer) register(mux *http.ServeMux, opts []connect.HandlerOption) {
	handle(mux, orgkeeperv1.OrganizationServiceCreateOrganizationProcedure, s.CreateOrganization, opts)
	handle(mux, orgkeeperv1.OrganizationServiceListOrganizationsProcedure, s.ListOrganizations, opts)
	handle(mux, orgkeeperv1.OrganizationServiceGetOrganizationContextProcedure, s.GetOrganizationContext, opts)
	handle(mux, orgkeeperv1.OrganizationServiceUpdateOrganizationProcedure, s.UpdateOrganization, opts)
	handle(mux, orgkeeperv1.OrganizationServiceDeleteOrganizationProcedure, s.DeleteOrganization, opts)
	handle(mux, orgkeeperv1.OrganizationServiceTransferOwnershipProcedure, s.TransferOwnership, opts)
	handle(mux, orgkeeperv1.OrganizationServiceListMembersProcedure, s.ListMembers, opts)
	handle(mux, orgkeeperv1.OrganizationServiceUpdateMemberRoleProcedure, s.UpdateMemberRole, opts)
	handle(mux, orgkeeperv1.OrganizationServiceRemoveMemberProcedure, s.RemoveMember, opts)
	handle(mux, orgkeeperv1.OrganizationServiceGetEntitlementProcedure, s.GetEntitlement, opts)
}

func (s *OrganizationServer) CreateOrganization(ctx context.Context, req *orgkeeperv1.CreateOrganizationRequest) (*orgkeeperv1.CreateOrganizationResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	org, err := s.svc.Create(ctx, actor, organization.CreateInput{
		Slug:              req.Slug,
		Name:              req.Name,
		BillingAccountRef: req.BillingAccountRef,
	})
	if err != nil {
		return nil, err
	}

	return &orgkeeperv1.CreateOrganizationResponse{Organization: toOrganization(org)}, nil
}

func (s *OrganizationServer) ListOrganizations(ctx context.Context, _ *orgkeeperv1.ListOrganizationsRequest) (*orgkeeperv1.ListOrganizationsResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	orgs, err := s.svc.List(ctx, actor.ActorID)
	if err != nil {
		return nil, err
	}

	resp := &orgkeeperv1.ListOrganizationsResponse{Organizations: make([]orgkeeperv1.Organization, 0, len(orgs))}
	for _, org := range orgs {
		resp.Organizations = append(resp.Organizations, toOrganization(org))
	}
	return resp, nil
}

func (s *OrganizationServer) GetOrganizationContext(ctx context.Context, req *orgkeeperv1.GetOrganizationContextRequest) (*orgkeeperv1.GetOrganizationContextResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	oc, err := s.svc.Context(ctx, actor.ActorID, req.OrgSlug)
	if err != nil {
		return nil, err
	}

	actions := auth.RoleActions[oc.Role()]
	permissions := make([]string, 0, len(actions))
	for _, action := range actions {
		permissions = append(permissions, string(action))
	}

	return &orgkeeperv1.GetOrganizationContextResponse{
		Organization: toOrganization(oc.Organization),
		Role:         string(oc.Role()),
		IsOwner:      oc.IsOwner,
		Permissions:  permissions,
	}, nil
}

func (s *OrganizationServer) UpdateOrganization(ctx context.Context, req *orgkeeperv1.UpdateOrganizationRequest) (*orgkeeperv1.UpdateOrganizationResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	org, err := s.svc.Update(ctx, actor.ActorID, req.OrgSlug, organization.UpdateInput{
		Name:              req.Name,
		BillingAccountRef: req.BillingAccountRef,
	})
	if err != nil {
		return nil, err
	}

	return &orgkeeperv1.UpdateOrganizationResponse{Organization: toOrganization(org)}, nil
}

func (s *OrganizationServer) DeleteOrganization(ctx context.Context, req *orgkeeperv1.DeleteOrganizationRequest) (*orgkeeperv1.DeleteOrganizationResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.svc.Delete(ctx, actor.ActorID, req.OrgSlug); err != nil {
		return nil, err
	}
	return &orgkeeperv1.DeleteOrganizationResponse{}, nil
}

func (s *OrganizationServer) TransferOwnership(ctx context.Context, req *orgkeeperv1.TransferOwnershipRequest) (*orgkeeperv1.TransferOwnershipResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	newOwnerID, err := uuid.Parse(req.NewOwnerID)
	if err != nil {
		return nil, invalidID("server.TransferOwnership", "new_owner_id")
	}

	if err := s.svc.TransferOwnership(ctx, actor.ActorID, req.OrgSlug, newOwnerID); err != nil {
		return nil, err
	}
	return &orgkeeperv1.TransferOwnershipResponse{}, nil
}

func (s *OrganizationServer) ListMembers(ctx context.Context, req *orgkeeperv1.ListMembersRequest) (*orgkeeperv1.ListMembersResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	members, err := s.svc.ListMembers(ctx, actor.ActorID, req.OrgSlug)
	if err != nil {
		return nil, err
	}

	resp := &orgkeeperv1.ListMembersResponse{Members: make([]orgkeeperv1.Member, 0, len(members))}
	for _, m := range members {
		resp.Members = append(resp.Members, toMember(m))
	}
	return resp, nil
}

func (s *OrganizationServer) UpdateMemberRole(ctx context.Context, req *orgkeeperv1.UpdateMemberRoleRequest) (*orgkeeperv1.UpdateMemberRoleResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	targetID, err := uuid.Parse(req.ActorID)
	if err != nil {
		return nil, invalidID("server.UpdateMemberRole", "actor_id")
	}

	if err := s.svc.UpdateMemberRole(ctx, actor.ActorID, req.OrgSlug, targetID, models.Role(req.Role)); err != nil {
		return nil, err
	}
	return &orgkeeperv1.UpdateMemberRoleResponse{}, nil
}

func (s *OrganizationServer) RemoveMember(ctx context.Context, req *orgkeeperv1.RemoveMemberRequest) (*orgkeeperv1.RemoveMemberResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	targetID, err := uuid.Parse(req.ActorID)
	if err != nil {
		return nil, invalidID("server.RemoveMember", "actor_id")
	}

	if err := s.svc.RemoveMember(ctx, actor.ActorID, req.OrgSlug, targetID); err != nil {
		return nil, err
	}
	return &orgkeeperv1.RemoveMemberResponse{}, nil
}

func (s *OrganizationServer) GetEntitlement(ctx context.Context, req *orgkeeperv1.GetEntitlementRequest) (*orgkeeperv1.GetEntitlementResponse, error) {
	actor, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	ent, err := s.svc.Entitlement(ctx, actor.ActorID, req.OrgSlug)
	if err != nil {
		return nil, err
	}

	features := entitlement.Features(ent.Tier)
	resp := &orgkeeperv1.GetEntitlementResponse{
		Tier:     string(ent.Tier),
		Degraded: ent.Degraded,
		Features: make([]string, 0, len(features)),
	}
	for _, f := range features {
		resp.Features = append(resp.Features, string(f))
	}
	return resp, nil
}

func toOrganization(org *models.Organization) orgkeeperv1.Organization {
	return orgkeeperv1.Organization{
		OrgID:             org.OrgID.String(),
		Slug:              org.Slug,
		Name:              org.Name,
		BillingAccountRef: org.BillingAccountRef,
		OwnerActorID:      org.OwnerActorID.String(),
		CreatedAt:         org.CreatedAt,
		UpdatedAt:         org.UpdatedAt,
	}
}

func toMember(m *models.Membership) orgkeeperv1.Member {
	return orgkeeperv1.Member{
		ActorID:   m.ActorID.String(),
		Email:     m.Email,
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt,
	}
}
