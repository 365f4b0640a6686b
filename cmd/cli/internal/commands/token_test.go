package commands

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func signingKey(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
}

func TestTokenCmd(t *testing.T) {
	ctx := context.Background()
	key := signingKey(t)

	require.NoError(t, (&TokenCmd{SigningKey: key, TTL: time.Hour}).Run(ctx))
	require.NoError(t, (&TokenCmd{SigningKey: key, Subject: "0199f0c4-5e4a-7a1c-9d3e-6a2b8c1d4e5f", Email: "a@x.com", TTL: time.Hour}).Run(ctx))

	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, []byte(key), 0o600))
	require.NoError(t, (&TokenCmd{SigningKeyFile: path, TTL: time.Hour}).Run(ctx))

	require.Error(t, (&TokenCmd{SigningKey: key, Subject: "not-a-uuid"}).Run(ctx))
	require.Error(t, (&TokenCmd{}).Run(ctx))
	require.Error(t, (&TokenCmd{SigningKey: "garbage"}).Run(ctx))
}
