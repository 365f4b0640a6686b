package memory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

// db is the shared state behind all in-memory stores. A single mutex guards every
// table so cascades and multi-row transitions happen in one critical section.
type db struct {
	mu sync.RWMutex

	organizations map[uuid.UUID]*models.Organization             // org_id -> Organization
	slugs         map[string]uuid.UUID                           // slug -> org_id
	memberships   map[uuid.UUID]map[uuid.UUID]*models.Membership // org_id -> actor_id -> Membership
	invitations   map[uuid.UUID]*models.Invitation               // invitation_id -> Invitation
	inviteTokens  map[string]uuid.UUID                           // token digest -> invitation_id
	apiKeys       map[uuid.UUID]*models.APIKey                   // key_id -> APIKey
	apiKeyDigests map[string]uuid.UUID                           // secret digest -> key_id
	webhooks      map[uuid.UUID]*models.Webhook                  // webhook_id -> Webhook
}

func newDB() *db {
	return &db{
		organizations: make(map[uuid.UUID]*models.Organization),
		slugs:         make(map[string]uuid.UUID),
		memberships:   make(map[uuid.UUID]map[uuid.UUID]*models.Membership),
		invitations:   make(map[uuid.UUID]*models.Invitation),
		inviteTokens:  make(map[string]uuid.UUID),
		apiKeys:       make(map[uuid.UUID]*models.APIKey),
		apiKeyDigests: make(map[string]uuid.UUID),
		webhooks:      make(map[uuid.UUID]*models.Webhook),
	}
}

// NewStores creates in-memory implementations of every store sharing one backing state.
// This implementation is for development and testing only - data is lost on restart.
func NewStores() store.Stores {
	d := newDB()
	return store.Stores{
		Organizations: &OrganizationStore{db: d},
		Memberships:   &MembershipStore{db: d},
		Invitations:   &InvitationStore{db: d},
		APIKeys:       &APIKeyStore{db: d},
		Webhooks:      &WebhookStore{db: d},
	}
}
