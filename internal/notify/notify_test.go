package notify

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/telemetry"
)

type recordingMailer struct {
	mu      sync.Mutex
	invites []Invite
	err     error
}

func (m *recordingMailer) SendInvite(ctx context.Context, invite Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites = append(m.invites, invite)
	return m.err
}

func TestRenderInvite(t *testing.T) {
	msg, err := renderInvite("noreply@orgkeeper.dev", Invite{
		Email:     "b@x.com",
		OrgName:   "Acme",
		Role:      "member",
		AcceptURL: "https://app.example.com/invitations/accept?token=abc",
		ExpiresAt: time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	text := string(msg)
	require.True(t, strings.HasPrefix(text, "From: noreply@orgkeeper.dev\r\nTo: b@x.com\r\n"))
	require.Contains(t, text, "Subject: You have been invited to join Acme")
	require.Contains(t, text, "join Acme as member")
	require.Contains(t, text, "https://app.example.com/invitations/accept?token=abc")
	require.Contains(t, text, "2026-01-08 00:00 UTC")
}

func TestRenderInviteKeepsSubjectOnOneLine(t *testing.T) {
	tests := []struct {
		name    string
		orgName string
	}{
		{name: "crlf with bcc header", orgName: "Acme\r\nBcc: attacker@evil.test"},
		{name: "bare lf", orgName: "Acme\nX-Injected: yes"},
		{name: "non ascii", orgName: "Ünïcode Co"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := renderInvite("noreply@orgkeeper.dev", Invite{Email: "b@x.com", OrgName: tt.orgName, Role: "member"})
			require.NoError(t, err)

			head, _, found := strings.Cut(string(msg), "\r\n\r\n")
			require.True(t, found)

			lines := strings.Split(head, "\r\n")
			require.Len(t, lines, 5)
			require.True(t, strings.HasPrefix(lines[2], "Subject: =?utf-8?q?"))
			for _, line := range lines {
				require.NotContains(t, line, "\n")
				require.False(t, strings.HasPrefix(line, "Bcc:"))
				require.False(t, strings.HasPrefix(line, "X-Injected:"))
			}
		})
	}
}

func TestNewSMTPMailer(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{From: "a@x.com"})
	require.Error(t, err)

	_, err = NewSMTPMailer(SMTPConfig{Host: "smtp.example.com"})
	require.Error(t, err)

	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "a@x.com"})
	require.NoError(t, err)
	require.Equal(t, 587, m.cfg.Port)
}

func TestDispatcher(t *testing.T) {
	t.Run("sends in background with accept link", func(t *testing.T) {
		mailer := &recordingMailer{}
		d := NewDispatcher(mailer, "https://app.example.com/invitations/accept", time.Second, telemetry.NewNoopMetrics())

		d.DispatchInvite(context.Background(), Invite{Email: "b@x.com", OrgName: "Acme"}, "oki_token+/=")
		require.NoError(t, d.Wait(context.Background()))

		require.Len(t, mailer.invites, 1)
		u, err := url.Parse(mailer.invites[0].AcceptURL)
		require.NoError(t, err)
		require.Equal(t, "oki_token+/=", u.Query().Get("token"))
	})

	t.Run("failures are swallowed", func(t *testing.T) {
		mailer := &recordingMailer{err: errors.New("smtp down")}
		d := NewDispatcher(mailer, "https://app.example.com/accept", time.Second, telemetry.NewNoopMetrics())

		d.DispatchInvite(context.Background(), Invite{Email: "b@x.com"}, "t")
		require.NoError(t, d.Wait(context.Background()))
		require.Len(t, mailer.invites, 1)
	})

	t.Run("cancelled caller does not cancel the send", func(t *testing.T) {
		mailer := &recordingMailer{}
		d := NewDispatcher(mailer, "https://app.example.com/accept", time.Second, telemetry.NewNoopMetrics())

		ctx, cancel := context.WithCancel(context.Background())
		d.DispatchInvite(ctx, Invite{Email: "b@x.com"}, "t")
		cancel()

		require.NoError(t, d.Wait(context.Background()))
		require.Len(t, mailer.invites, 1)
	})
}

func TestLogMailer(t *testing.T) {
	require.NoError(t, LogMailer{}.SendInvite(context.Background(), Invite{Email: "b@x.com"}))
}
