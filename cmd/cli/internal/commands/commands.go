package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/wolfeidau/orgkeeper/internal/client"
)

type Globals struct {
	Debug   bool
	Version string
}

// ClientFlags are shared by every command that talks to the server.
type ClientFlags struct {
	Server  string        `help:"Server URL" default:"https://localhost:8443" env:"ORGKEEPER_SERVER"`
	Token   string        `help:"bearer token used to authenticate" env:"ORGKEEPER_TOKEN"`
	Timeout time.Duration `help:"request timeout" default:"30s"`
	Tracing bool          `help:"enable tracing of requests" default:"false"`
}

func (f *ClientFlags) client() (*client.Client, error) {
	c, err := client.New(client.Config{
		ServerURL: f.Server,
		Token:     f.Token,
		Timeout:   f.Timeout,
		Tracing:   f.Tracing,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

// OrgFlags selects the organization a command operates on.
type OrgFlags struct {
	Org string `help:"organization slug" required:"" short:"o" env:"ORGKEEPER_ORG"`
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return tw
}

func stdoutTable(headers ...string) *tabwriter.Writer {
	return newTable(os.Stdout, headers...)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

// failure formats a failed call with its stable reason when the server sent one.
func failure(action string, err error) error {
	if reason := client.ErrorReason(err); reason != "" {
		return fmt.Errorf("failed to %s (%s): %w", action, reason, err)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
