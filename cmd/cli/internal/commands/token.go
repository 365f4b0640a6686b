package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/auth"
)

// TokenCmd issues a development identity token signed with a local ECDSA key.
type TokenCmd struct {
	Subject        string        `help:"actor id (UUID), generated when empty" default:""`
	Email          string        `help:"verified email of the actor" default:""`
	TTL            time.Duration `help:"Token lifetime" default:"1h"`
	SigningKey     string        `help:"PEM encoded ECDSA signing key" env:"JWT_SIGNING_KEY" xor:"key"`
	SigningKeyFile string        `help:"path to the PEM encoded ECDSA signing key" xor:"key"`
}

func (t *TokenCmd) Run(ctx context.Context) error {
	key := t.SigningKey
	if key == "" {
		if t.SigningKeyFile == "" {
			return fmt.Errorf("a signing key is required (--signing-key or --signing-key-file)")
		}
		data, err := os.ReadFile(t.SigningKeyFile)
		if err != nil {
			return fmt.Errorf("failed to read signing key: %w", err)
		}
		key = string(data)
	}

	subject := t.Subject
	if subject == "" {
		subject = uuid.NewString()
	} else if _, err := uuid.Parse(subject); err != nil {
		return fmt.Errorf("subject must be a UUID: %w", err)
	}

	token, err := auth.IssueToken(key, subject, t.Email, t.TTL)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
