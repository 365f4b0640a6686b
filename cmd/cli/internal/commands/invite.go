package commands

import (
	"context"
	"fmt"

	orgkeeperv1 "github.com/wolfeidau/orgkeeper/api/orgkeeper/v1"
	"github.com/wolfeidau/orgkeeper/internal/logger"
)

// InviteCmd manages invitations.
type InviteCmd struct {
	Create  InviteCreateCmd  `cmd:"" help:"Invite an email address to an organization"`
	Bulk    InviteBulkCmd    `cmd:"" help:"Send the invitations listed in a YAML manifest"`
	List    InviteListCmd    `cmd:"" help:"List invitations of an organization"`
	Revoke  InviteRevokeCmd  `cmd:"" help:"Revoke a pending invitation"`
	Preview InvitePreviewCmd `cmd:"" help:"Show what an invitation token grants"`
	Accept  InviteAcceptCmd  `cmd:"" help:"Accept an invitation as the caller"`
}

type InviteCreateCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
	Email       string `arg:"" help:"email address to invite"`
	Role        string `help:"role granted on acceptance" default:"member" enum:"admin,member"`
	ShowToken   bool   `help:"print the invitation token" default:"false"`
}

func (c *InviteCreateCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.CreateInvitation(ctx, &orgkeeperv1.CreateInvitationRequest{OrgSlug: c.Org, Email: c.Email, Role: c.Role})
	if err != nil {
		return failure("create invitation", err)
	}

	fmt.Printf("Invited %s to %s as %s, expires %s\n", resp.Invitation.Email, c.Org, resp.Invitation.Role, formatTime(resp.Invitation.ExpiresAt))
	if c.ShowToken {
		fmt.Printf("Token: %s\n", resp.Token)
	}
	return nil
}

type InviteBulkCmd struct {
	ClientFlags `embed:""`
	Manifest    string `arg:"" help:"path to the invitation manifest" type:"existingfile"`
	DryRun      bool   `help:"validate the manifest without sending" default:"false"`
}

// Run sends every invitation in the manifest. Failures are reported per entry and do not
// stop the run; the command fails if any entry failed.
func (c *InviteBulkCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	manifest, err := LoadInviteManifest(c.Manifest)
	if err != nil {
		return err
	}
	if c.DryRun {
		fmt.Printf("Manifest is valid: %d invitations to %s\n", len(manifest.Invitations), manifest.Org)
		return nil
	}

	cl, err := c.client()
	if err != nil {
		return err
	}

	w := stdoutTable("EMAIL", "ROLE", "RESULT")
	failed := 0
	for _, inv := range manifest.Invitations {
		_, err := cl.CreateInvitation(ctx, &orgkeeperv1.CreateInvitationRequest{OrgSlug: manifest.Org, Email: inv.Email, Role: inv.Role})
		if err != nil {
			failed++
			log.Debug().Err(err).Str("email", inv.Email).Msg("invitation failed")
			fmt.Fprintf(w, "%s\t%s\t%s\n", inv.Email, inv.Role, failure("invite", err))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", inv.Email, inv.Role, "invited")
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d invitations failed", failed, len(manifest.Invitations))
	}
	return nil
}

type InviteListCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
}

func (c *InviteListCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.ListInvitations(ctx, &orgkeeperv1.ListInvitationsRequest{OrgSlug: c.Org})
	if err != nil {
		return failure("list invitations", err)
	}
	if len(resp.Invitations) == 0 {
		fmt.Println("No invitations found.")
		return nil
	}

	w := stdoutTable("ID", "EMAIL", "ROLE", "STATUS", "EXPIRES")
	for _, inv := range resp.Invitations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", inv.InvitationID, inv.Email, inv.Role, inv.Status, formatTime(inv.ExpiresAt))
	}
	return w.Flush()
}

type InviteRevokeCmd struct {
	ClientFlags  `embed:""`
	OrgFlags     `embed:""`
	InvitationID string `arg:"" help:"invitation id"`
}

func (c *InviteRevokeCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	if _, err := cl.RevokeInvitation(ctx, &orgkeeperv1.RevokeInvitationRequest{OrgSlug: c.Org, InvitationID: c.InvitationID}); err != nil {
		return failure("revoke invitation", err)
	}
	fmt.Printf("Revoked invitation %s\n", c.InvitationID)
	return nil
}

type InvitePreviewCmd struct {
	ClientFlags `embed:""`
	InviteToken string `arg:"" name:"invite-token" help:"invitation token"`
}

func (c *InvitePreviewCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.PreviewInvitation(ctx, &orgkeeperv1.PreviewInvitationRequest{Token: c.InviteToken})
	if err != nil {
		return failure("preview invitation", err)
	}
	fmt.Printf("%s is invited to join %s (%s) as %s, expires %s\n", resp.Email, resp.OrgName, resp.OrgSlug, resp.Role, formatTime(resp.ExpiresAt))
	return nil
}

type InviteAcceptCmd struct {
	ClientFlags `embed:""`
	InviteToken string `arg:"" name:"invite-token" help:"invitation token"`
}

func (c *InviteAcceptCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.AcceptInvitation(ctx, &orgkeeperv1.AcceptInvitationRequest{Token: c.InviteToken})
	if err != nil {
		return failure("accept invitation", err)
	}
	fmt.Printf("Joined organization %s as %s\n", resp.OrgID, resp.Member.Role)
	return nil
}
