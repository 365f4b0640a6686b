package commands

import (
	"context"
	"fmt"
	"strings"

	orgkeeperv1 "github.com/wolfeidau/orgkeeper/api/orgkeeper/v1"
)

// WebhookCmd manages organization webhooks.
type WebhookCmd struct {
	Create WebhookCreateCmd `cmd:"" help:"Register a webhook endpoint"`
	List   WebhookListCmd   `cmd:"" help:"List webhooks"`
	Delete WebhookDeleteCmd `cmd:"" help:"Delete a webhook"`
}

type WebhookCreateCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
	URL         string   `arg:"" help:"endpoint receiving events"`
	Events      []string `help:"event types to deliver" required:"" short:"e"`
}

func (c *WebhookCreateCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.CreateWebhook(ctx, &orgkeeperv1.CreateWebhookRequest{OrgSlug: c.Org, URL: c.URL, Events: c.Events})
	if err != nil {
		return failure("create webhook", err)
	}

	fmt.Printf("Created webhook %s for %s\n", resp.Webhook.WebhookID, strings.Join(resp.Webhook.Events, ", "))
	fmt.Println()
	fmt.Println("Signing secret, it will not be shown again:")
	fmt.Println(resp.Secret)
	return nil
}

type WebhookListCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
}

func (c *WebhookListCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.ListWebhooks(ctx, &orgkeeperv1.ListWebhooksRequest{OrgSlug: c.Org})
	if err != nil {
		return failure("list webhooks", err)
	}
	if len(resp.Webhooks) == 0 {
		fmt.Println("No webhooks found.")
		return nil
	}

	w := stdoutTable("ID", "URL", "EVENTS", "CREATED")
	for _, wh := range resp.Webhooks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", wh.WebhookID, wh.URL, strings.Join(wh.Events, ","), formatTime(wh.CreatedAt))
	}
	return w.Flush()
}

type WebhookDeleteCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
	WebhookID   string `arg:"" help:"webhook id"`
}

func (c *WebhookDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	if _, err := cl.DeleteWebhook(ctx, &orgkeeperv1.DeleteWebhookRequest{OrgSlug: c.Org, WebhookID: c.WebhookID}); err != nil {
		return failure("delete webhook", err)
	}
	fmt.Printf("Deleted webhook %s\n", c.WebhookID)
	return nil
}
