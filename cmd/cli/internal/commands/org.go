package commands

import (
	"context"
	"fmt"
	"strings"

	orgkeeperv1 "github.com/wolfeidau/orgkeeper/api/orgkeeper/v1"
)

// OrgCmd manages organizations and their members.
type OrgCmd struct {
	Create      OrgCreateCmd      `cmd:"" help:"Create an organization owned by the caller"`
	List        OrgListCmd        `cmd:"" help:"List organizations the caller belongs to"`
	Show        OrgShowCmd        `cmd:"" help:"Show the caller's role and permissions in an organization"`
	Update      OrgUpdateCmd      `cmd:"" help:"Rename an organization or change its billing account"`
	Delete      OrgDeleteCmd      `cmd:"" help:"Delete an organization"`
	Transfer    OrgTransferCmd    `cmd:"" help:"Transfer ownership to another member"`
	Members     OrgMembersCmd     `cmd:"" help:"List members"`
	SetRole     OrgSetRoleCmd     `cmd:"" name:"set-role" help:"Change the role of a member"`
	Remove      OrgRemoveCmd      `cmd:"" help:"Remove a member"`
	Entitlement OrgEntitlementCmd `cmd:"" help:"Show the tier and features of an organization"`
}

type OrgCreateCmd struct {
	ClientFlags `embed:""`
	Slug        string `arg:"" help:"organization slug"`
	Name        string `help:"display name" required:""`
	BillingRef  string `help:"billing account reference" default:""`
}

func (c *OrgCreateCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.CreateOrganization(ctx, &orgkeeperv1.CreateOrganizationRequest{
		Slug:              c.Slug,
		Name:              c.Name,
		BillingAccountRef: c.BillingRef,
	})
	if err != nil {
		return failure("create organization", err)
	}
	fmt.Printf("Created organization %s (%s)\n", resp.Organization.Slug, resp.Organization.OrgID)
	return nil
}

type OrgListCmd struct {
	ClientFlags `embed:""`
}

func (c *OrgListCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.ListOrganizations(ctx, &orgkeeperv1.ListOrganizationsRequest{})
	if err != nil {
		return failure("list organizations", err)
	}
	if len(resp.Organizations) == 0 {
		fmt.Println("No organizations found.")
		return nil
	}

	w := stdoutTable("SLUG", "NAME", "ORG ID", "CREATED")
	for _, org := range resp.Organizations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", org.Slug, org.Name, org.OrgID, formatTime(org.CreatedAt))
	}
	return w.Flush()
}

type OrgShowCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
}

func (c *OrgShowCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.GetOrganizationContext(ctx, &orgkeeperv1.GetOrganizationContextRequest{OrgSlug: c.Org})
	if err != nil {
		return failure("get organization", err)
	}

	fmt.Printf("Organization: %s (%s)\n", resp.Organization.Name, resp.Organization.Slug)
	fmt.Printf("ID:           %s\n", resp.Organization.OrgID)
	fmt.Printf("Owner:        %s\n", resp.Organization.OwnerActorID)
	if resp.Organization.BillingAccountRef != "" {
		fmt.Printf("Billing:      %s\n", resp.Organization.BillingAccountRef)
	}
	fmt.Printf("Role:         %s\n", resp.Role)
	fmt.Printf("Permissions:  %s\n", strings.Join(resp.Permissions, ", "))
	return nil
}

type OrgUpdateCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
	Name        *string `help:"new display name"`
	BillingRef  *string `help:"new billing account reference, empty to detach"`
}

func (c *OrgUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	if c.Name == nil && c.BillingRef == nil {
		return fmt.Errorf("nothing to update, set --name or --billing-ref")
	}
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.UpdateOrganization(ctx, &orgkeeperv1.UpdateOrganizationRequest{
		OrgSlug:           c.Org,
		Name:              c.Name,
		BillingAccountRef: c.BillingRef,
	})
	if err != nil {
		return failure("update organization", err)
	}
	fmt.Printf("Updated organization %s\n", resp.Organization.Slug)
	return nil
}

type OrgDeleteCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
}

func (c *OrgDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	if _, err := cl.DeleteOrganization(ctx, &orgkeeperv1.DeleteOrganizationRequest{OrgSlug: c.Org}); err != nil {
		return failure("delete organization", err)
	}
	fmt.Printf("Deleted organization %s\n", c.Org)
	return nil
}

type OrgTransferCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
	NewOwner    string `arg:"" help:"actor id of the new owner"`
}

func (c *OrgTransferCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	if _, err := cl.TransferOwnership(ctx, &orgkeeperv1.TransferOwnershipRequest{OrgSlug: c.Org, NewOwnerID: c.NewOwner}); err != nil {
		return failure("transfer ownership", err)
	}
	fmt.Printf("Transferred ownership of %s to %s\n", c.Org, c.NewOwner)
	return nil
}

type OrgMembersCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
}

func (c *OrgMembersCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.ListMembers(ctx, &orgkeeperv1.ListMembersRequest{OrgSlug: c.Org})
	if err != nil {
		return failure("list members", err)
	}

	w := stdoutTable("ACTOR ID", "EMAIL", "ROLE", "JOINED")
	for _, m := range resp.Members {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ActorID, m.Email, m.Role, formatTime(m.CreatedAt))
	}
	return w.Flush()
}

type OrgSetRoleCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
	ActorID     string `arg:"" help:"actor id of the member"`
	Role        string `arg:"" help:"new role" enum:"admin,member"`
}

func (c *OrgSetRoleCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	if _, err := cl.UpdateMemberRole(ctx, &orgkeeperv1.UpdateMemberRoleRequest{OrgSlug: c.Org, ActorID: c.ActorID, Role: c.Role}); err != nil {
		return failure("update member role", err)
	}
	fmt.Printf("Set role of %s to %s\n", c.ActorID, c.Role)
	return nil
}

type OrgRemoveCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
	ActorID     string `arg:"" help:"actor id of the member"`
}

func (c *OrgRemoveCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	if _, err := cl.RemoveMember(ctx, &orgkeeperv1.RemoveMemberRequest{OrgSlug: c.Org, ActorID: c.ActorID}); err != nil {
		return failure("remove member", err)
	}
	fmt.Printf("Removed %s from %s\n", c.ActorID, c.Org)
	return nil
}

type OrgEntitlementCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
}

func (c *OrgEntitlementCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.GetEntitlement(ctx, &orgkeeperv1.GetEntitlementRequest{OrgSlug: c.Org})
	if err != nil {
		return failure("get entitlement", err)
	}

	tier := resp.Tier
	if resp.Degraded {
		tier += " (degraded, billing provider unavailable)"
	}
	fmt.Printf("Tier:     %s\n", tier)
	fmt.Printf("Features: %s\n", strings.Join(resp.Features, ", "))
	return nil
}
