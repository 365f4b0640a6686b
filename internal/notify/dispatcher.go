package notify

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
)

// Dispatcher sends invitations in the background so callers never wait on delivery.
type Dispatcher struct {
	mailer    Mailer
	acceptURL string
	timeout   time.Duration
	metrics   *telemetry.Metrics
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher. acceptURL is the page that accepts invitations;
// the token is appended as the "token" query parameter.
func NewDispatcher(mailer Mailer, acceptURL string, timeout time.Duration, metrics *telemetry.Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		mailer:    mailer,
		acceptURL: acceptURL,
		timeout:   timeout,
		metrics:   metrics,
	}
}

// AcceptLink returns the accept URL carrying token.
func (d *Dispatcher) AcceptLink(token string) string {
	u, err := url.Parse(d.acceptURL)
	if err != nil {
		return d.acceptURL + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// DispatchInvite sends the invite asynchronously. Failures are logged and counted, never returned.
// The send is detached from ctx cancellation but keeps its logger.
func (d *Dispatcher) DispatchInvite(ctx context.Context, invite Invite, token string) {
	invite.AcceptURL = d.AcceptLink(token)
	log := zerolog.Ctx(ctx).With().Str("email", invite.Email).Logger()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(log.WithContext(context.WithoutCancel(ctx)), d.timeout)
		defer cancel()

		if err := d.mailer.SendInvite(sendCtx, invite); err != nil {
			d.metrics.EmailErrorsTotal.Add(sendCtx, 1)
			log.Error().Err(err).Msg("failed to dispatch invitation email")
			return
		}
		d.metrics.EmailsDispatchedTotal.Add(sendCtx, 1)
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
