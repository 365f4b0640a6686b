package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/wolfeidau/orgkeeper/internal/validation"
	"gopkg.in/yaml.v3"
)

// InviteManifest is a YAML file of invitations sent in one run.
//
//	org: acme
//	invitations:
//	  - email: ada@example.com
//	    role: admin
//	  - email: bob@example.com
type InviteManifest struct {
	Org         string           `yaml:"org" json:"org" validate:"required"`
	DefaultRole string           `yaml:"default_role" json:"default_role" validate:"omitempty,oneof=admin member"`
	Invitations []ManifestInvite `yaml:"invitations" json:"invitations" validate:"required,min=1,dive"`
}

type ManifestInvite struct {
	Email string `yaml:"email" json:"email" validate:"required,email"`
	Role  string `yaml:"role" json:"role" validate:"omitempty,oneof=admin member"`
}

// LoadInviteManifest reads and validates a manifest. Entries without a role take the
// manifest default, or member. Duplicate emails are rejected.
func LoadInviteManifest(path string) (*InviteManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return parseInviteManifest(data)
}

func parseInviteManifest(data []byte) (*InviteManifest, error) {
	var m InviteManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := validation.New().Struct("manifest", &m); err != nil {
		return nil, err
	}

	if m.DefaultRole == "" {
		m.DefaultRole = "member"
	}

	seen := make(map[string]bool, len(m.Invitations))
	for i := range m.Invitations {
		email := strings.ToLower(strings.TrimSpace(m.Invitations[i].Email))
		if seen[email] {
			return nil, fmt.Errorf("manifest lists %s more than once", email)
		}
		seen[email] = true

		if m.Invitations[i].Role == "" {
			m.Invitations[i].Role = m.DefaultRole
		}
	}
	return &m, nil
}
