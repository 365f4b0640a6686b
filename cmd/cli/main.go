package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/orgkeeper/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Org     commands.OrgCmd     `cmd:"" help:"Manage organizations and members"`
		Invite  commands.InviteCmd  `cmd:"" help:"Manage invitations"`
		APIKey  commands.APIKeyCmd  `cmd:"" name:"apikey" help:"Manage organization API keys"`
		Webhook commands.WebhookCmd `cmd:"" help:"Manage organization webhooks"`
		Billing commands.BillingCmd `cmd:"" help:"Show the projected invoice of an organization"`
		Token   commands.TokenCmd   `cmd:"" help:"Generate a JWT token"`
		Debug   bool                `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("orgkeeper-cli"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
