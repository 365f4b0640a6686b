package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
	"github.com/wolfeidau/orgkeeper/internal/client"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const maxPages = 50

// HTTPProviderConfig configures HTTPProvider.
type HTTPProviderConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	CacheDir     string // empty keeps the HTTP cache in memory
	Timeout      time.Duration
}

// HTTPProvider reads billing state from the payment provider's REST API.
// Requests are authenticated with OAuth2 client credentials and responses are cached
// according to the provider's Cache-Control headers.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a provider. Without a client ID requests are sent unauthenticated.
func NewHTTPProvider(ctx context.Context, cfg HTTPProviderConfig) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("billing provider base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid billing provider base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := client.NewCachingHTTPClient(cfg.CacheDir, cfg.Timeout)

	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		// Token requests and API calls share the caching transport.
		authed := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, httpClient))
		authed.Timeout = cfg.Timeout
		httpClient = authed
	}

	return &HTTPProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
	}, nil
}

type page[T any] struct {
	Data       []T    `json:"data"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

func (p *HTTPProvider) ListSubscriptions(ctx context.Context, accountRef string) ([]models.Subscription, error) {
	return list[models.Subscription](ctx, p, "billing.ListSubscriptions", accountRef, "subscriptions")
}

func (p *HTTPProvider) ListUpcomingLineItems(ctx context.Context, accountRef string) ([]models.LineItem, error) {
	return list[models.LineItem](ctx, p, "billing.ListUpcomingLineItems", accountRef, "upcoming/lines")
}

func (p *HTTPProvider) ListUpcomingTaxes(ctx context.Context, accountRef string) ([]models.TaxLine, error) {
	return list[models.TaxLine](ctx, p, "billing.ListUpcomingTaxes", accountRef, "upcoming/taxes")
}

// list follows next_cursor until the provider reports no more pages.
func list[T any](ctx context.Context, p *HTTPProvider, op, accountRef, resource string) ([]T, error) {
	endpoint := fmt.Sprintf("%s/v1/customers/%s/%s", p.baseURL, url.PathEscape(accountRef), resource)

	var (
		out    []T
		cursor string
	)
	for range maxPages {
		u := endpoint
		if cursor != "" {
			u += "?cursor=" + url.QueryEscape(cursor)
		}

		var pg page[T]
		if err := p.get(ctx, op, u, &pg); err != nil {
			return nil, err
		}
		out = append(out, pg.Data...)

		if !pg.HasMore || pg.NextCursor == "" {
			return out, nil
		}
		cursor = pg.NextCursor
	}

	return nil, apperr.Errorf(apperr.KindDataIntegrity, op, "more than %d pages", maxPages)
}

func (p *HTTPProvider) get(ctx context.Context, op, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, op, err)
	}
	defer resp.Body.Close()

	zerolog.Ctx(ctx).Debug().
		Str("url", u).
		Int("status", resp.StatusCode).
		Bool("cached", resp.Header.Get("X-From-Cache") == "1").
		Msg("billing provider response")

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return apperr.E(apperr.KindNotFound, op, "billing account not found")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return apperr.Wrap(apperr.KindUnavailable, op, fmt.Errorf("provider returned HTTP %d", resp.StatusCode))
	default:
		return apperr.Wrap(apperr.KindInternal, op, fmt.Errorf("provider returned HTTP %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindDataIntegrity, op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
