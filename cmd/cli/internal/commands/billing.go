package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	orgkeeperv1 "github.com/wolfeidau/orgkeeper/api/orgkeeper/v1"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"gopkg.in/yaml.v3"
)

// BillingCmd prints the projected invoice of an organization.
type BillingCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
	Output      string `help:"output format" default:"table" enum:"table,yaml" short:"O"`
}

func (c *BillingCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.GetBillingBreakdown(ctx, &orgkeeperv1.GetBillingBreakdownRequest{OrgSlug: c.Org})
	if err != nil {
		return failure("get billing breakdown", err)
	}

	if c.Output == "yaml" {
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(resp.Breakdown)
	}
	return printBreakdown(os.Stdout, resp.Breakdown)
}

func printBreakdown(out io.Writer, b *models.BillingBreakdown) error {
	if b == nil || len(b.Groups) == 0 {
		fmt.Fprintln(out, "No upcoming charges.")
		return nil
	}

	w := newTable(out, "SUBSCRIPTION", "ITEM", "QTY", "UNIT", "TOTAL", "STATUS")
	for _, g := range b.Groups {
		for _, item := range g.Items {
			name := item.Name
			if item.Proration {
				name += " (proration)"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", g.SubscriptionID, name, item.Quantity,
				item.UnitPrice.StringFixed(2), item.Total.StringFixed(2), item.Status)
		}
	}
	for _, tax := range b.Taxes {
		fmt.Fprintf(w, "%s\t%s\t\t\t%s\t\n", tax.SubscriptionID, tax.Name, tax.Amount.StringFixed(2))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Current:   %s %s\n", b.TotalCurrent.StringFixed(2), b.Currency)
	fmt.Fprintf(out, "Projected: %s %s\n", b.TotalProjected.StringFixed(2), b.Currency)
	return nil
}
