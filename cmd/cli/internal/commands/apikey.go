package commands

import (
	"context"
	"fmt"
	"time"

	orgkeeperv1 "github.com/wolfeidau/orgkeeper/api/orgkeeper/v1"
)

// APIKeyCmd manages organization API keys.
type APIKeyCmd struct {
	Create   APIKeyCreateCmd   `cmd:"" help:"Issue an API key"`
	List     APIKeyListCmd     `cmd:"" help:"List API keys"`
	Revoke   APIKeyRevokeCmd   `cmd:"" help:"Revoke an API key"`
	Validate APIKeyValidateCmd `cmd:"" help:"Check an API key and show the organization it belongs to"`
}

type APIKeyCreateCmd struct {
	ClientFlags  `embed:""`
	OrgFlags     `embed:""`
	Description  string        `arg:"" help:"what the key is used for"`
	ExpiresIn    time.Duration `help:"key lifetime" default:"0" xor:"expiry"`
	NeverExpires bool          `help:"issue a key without expiry" default:"false" xor:"expiry"`
}

func (c *APIKeyCreateCmd) Run(ctx context.Context, globals *Globals) error {
	req := &orgkeeperv1.CreateAPIKeyRequest{
		OrgSlug:      c.Org,
		Description:  c.Description,
		NeverExpires: c.NeverExpires,
	}
	if c.ExpiresIn > 0 {
		expiresAt := time.Now().Add(c.ExpiresIn).UTC()
		req.ExpiresAt = &expiresAt
	}

	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.CreateAPIKey(ctx, req)
	if err != nil {
		return failure("create API key", err)
	}

	fmt.Printf("Created API key %s (%s), expires %s\n", resp.APIKey.KeyID, resp.APIKey.DisplayPrefix, formatTimePtr(resp.APIKey.ExpiresAt))
	fmt.Println()
	fmt.Println("Store this secret now, it will not be shown again:")
	fmt.Println(resp.Secret)
	return nil
}

type APIKeyListCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
}

func (c *APIKeyListCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.ListAPIKeys(ctx, &orgkeeperv1.ListAPIKeysRequest{OrgSlug: c.Org})
	if err != nil {
		return failure("list API keys", err)
	}
	if len(resp.APIKeys) == 0 {
		fmt.Println("No API keys found.")
		return nil
	}

	w := stdoutTable("ID", "PREFIX", "DESCRIPTION", "EXPIRES", "LAST USED", "REVOKED")
	for _, k := range resp.APIKeys {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", k.KeyID, k.DisplayPrefix, k.Description,
			formatTimePtr(k.ExpiresAt), formatTimePtr(k.LastUsedAt), formatTimePtr(k.RevokedAt))
	}
	return w.Flush()
}

type APIKeyRevokeCmd struct {
	ClientFlags `embed:""`
	OrgFlags    `embed:""`
	KeyID       string `arg:"" help:"API key id"`
}

func (c *APIKeyRevokeCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	if _, err := cl.RevokeAPIKey(ctx, &orgkeeperv1.RevokeAPIKeyRequest{OrgSlug: c.Org, KeyID: c.KeyID}); err != nil {
		return failure("revoke API key", err)
	}
	fmt.Printf("Revoked API key %s\n", c.KeyID)
	return nil
}

type APIKeyValidateCmd struct {
	ClientFlags `embed:""`
	Key         string `arg:"" help:"API key secret" env:"ORGKEEPER_API_KEY"`
}

func (c *APIKeyValidateCmd) Run(ctx context.Context, globals *Globals) error {
	cl, err := c.client()
	if err != nil {
		return err
	}
	resp, err := cl.ValidateAPIKey(ctx, &orgkeeperv1.ValidateAPIKeyRequest{Key: c.Key})
	if err != nil {
		return failure("validate API key", err)
	}
	fmt.Printf("Valid API key %s for organization %s\n", resp.KeyID, resp.OrgID)
	return nil
}
