package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseInviteManifest(t *testing.T) {
	m, err := parseInviteManifest([]byte(`
org: acme
default_role: admin
invitations:
  - email: ada@example.com
  - email: bob@example.com
    role: member
`))
	require.NoError(t, err)
	require.Equal(t, "acme", m.Org)
	require.Len(t, m.Invitations, 2)
	require.Equal(t, "admin", m.Invitations[0].Role)
	require.Equal(t, "member", m.Invitations[1].Role)
}

func TestParseInviteManifestDefaultsToMember(t *testing.T) {
	m, err := parseInviteManifest([]byte("org: acme\ninvitations:\n  - email: ada@example.com\n"))
	require.NoError(t, err)
	require.Equal(t, "member", m.Invitations[0].Role)
}

func TestParseInviteManifestErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		contains string
	}{
		{name: "missing org", manifest: "invitations:\n  - email: ada@example.com\n", contains: "org"},
		{name: "no invitations", manifest: "org: acme\n", contains: "invitations"},
		{name: "bad email", manifest: "org: acme\ninvitations:\n  - email: nope\n", contains: "invalid email format"},
		{name: "owner role", manifest: "org: acme\ninvitations:\n  - email: ada@example.com\n    role: owner\n", contains: "must be one of"},
		{name: "duplicate", manifest: "org: acme\ninvitations:\n  - email: ada@example.com\n  - email: ADA@example.com\n", contains: "more than once"},
		{name: "not yaml", manifest: "org: [", contains: "failed to parse manifest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseInviteManifest([]byte(tt.manifest))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoadInviteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invites.yaml")
	require.NoError(t, os.WriteFile(path, []byte("org: acme\ninvitations:\n  - email: ada@example.com\n"), 0o600))

	m, err := LoadInviteManifest(path)
	require.NoError(t, err)
	require.Equal(t, "acme", m.Org)

	_, err = LoadInviteManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
