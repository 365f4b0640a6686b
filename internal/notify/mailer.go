// Package notify delivers invitation emails out-of-band.
package notify

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"
)

// Invite is the content of an invitation email.
type Invite struct {
	Email     string
	OrgName   string
	Role      string
	AcceptURL string
	ExpiresAt time.Time
}

// Mailer sends invitation emails. Delivery confirmation is not required for correctness.
type Mailer interface {
	SendInvite(ctx context.Context, invite Invite) error
}

var inviteBody = template.Must(template.New("invite").Parse(`Hello,

You've been invited to join {{.OrgName}} as {{.Role}}.
Open the link below to accept the invitation:

{{.AcceptURL}}

This invitation expires on {{.ExpiresAt.Format "2006-01-02 15:04 MST"}}. If you did not expect this email, you can ignore it.
`))

// renderInvite builds the RFC 5322 message for an invite.
func renderInvite(from string, invite Invite) ([]byte, error) {
	var body strings.Builder
	if err := inviteBody.Execute(&body, invite); err != nil {
		return nil, fmt.Errorf("failed to render invite: %w", err)
	}

	// The subject carries tenant-controlled text and must stay on one header line.
	subject := mime.QEncoding.Encode("utf-8", "You have been invited to join "+invite.OrgName)

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		from, invite.Email, subject)

	return []byte(headers + body.String()), nil
}

// SMTPConfig configures SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends invite emails using an SMTP server.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer constructs a new SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("email from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg}, nil
}

// SendInvite dispatches an invitation email.
func (m *SMTPMailer) SendInvite(ctx context.Context, invite Invite) error {
	msg, err := renderInvite(m.cfg.From, invite)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if strings.TrimSpace(m.cfg.Username) != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{invite.Email}, msg); err != nil {
		return fmt.Errorf("failed to send invite email: %w", err)
	}

	return nil
}

// LogMailer logs invitations instead of sending them. Used in development.
type LogMailer struct{}

// SendInvite logs the invite including the accept URL.
func (LogMailer) SendInvite(ctx context.Context, invite Invite) error {
	zerolog.Ctx(ctx).Info().
		Str("email", invite.Email).
		Str("org", invite.OrgName).
		Str("role", invite.Role).
		Str("accept_url", invite.AcceptURL).
		Time("expires_at", invite.ExpiresAt).
		Msg("invitation email (not sent)")
	return nil
}
