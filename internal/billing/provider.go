package billing

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/wolfeidau/orgkeeper/internal/models"
	"gopkg.in/yaml.v3"
)

// Provider is the read API of the payment provider, keyed by billing account reference.
// Implementations never mutate provider state.
type Provider interface {
	ListSubscriptions(ctx context.Context, accountRef string) ([]models.Subscription, error)
	ListUpcomingLineItems(ctx context.Context, accountRef string) ([]models.LineItem, error)
	ListUpcomingTaxes(ctx context.Context, accountRef string) ([]models.TaxLine, error)
}

// Account is the provider state of one billing account.
type Account struct {
	Subscriptions []models.Subscription `json:"subscriptions" yaml:"subscriptions"`
	LineItems     []models.LineItem     `json:"line_items" yaml:"line_items"`
	Taxes         []models.TaxLine      `json:"taxes" yaml:"taxes"`
}

// StaticProvider serves fixed accounts from memory. Unknown accounts are empty.
type StaticProvider struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewStaticProvider creates a provider over accounts keyed by reference.
func NewStaticProvider(accounts map[string]Account) *StaticProvider {
	if accounts == nil {
		accounts = make(map[string]Account)
	}
	return &StaticProvider{accounts: accounts}
}

// Set replaces the state of one account.
func (p *StaticProvider) Set(accountRef string, account Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[accountRef] = account
}

func (p *StaticProvider) get(accountRef string) Account {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.accounts[accountRef]
}

func (p *StaticProvider) ListSubscriptions(ctx context.Context, accountRef string) ([]models.Subscription, error) {
	return p.get(accountRef).Subscriptions, nil
}

func (p *StaticProvider) ListUpcomingLineItems(ctx context.Context, accountRef string) ([]models.LineItem, error) {
	return p.get(accountRef).LineItems, nil
}

func (p *StaticProvider) ListUpcomingTaxes(ctx context.Context, accountRef string) ([]models.TaxLine, error) {
	return p.get(accountRef).Taxes, nil
}

// LoadStaticAccounts reads a YAML document mapping account references to accounts.
// Used to run the server without a payment provider.
func LoadStaticAccounts(path string) (map[string]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	var accounts map[string]Account
	if err := yaml.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file %s: %w", path, err)
	}
	return accounts, nil
}
