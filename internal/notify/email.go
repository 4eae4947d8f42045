// Package notify delivers operator e-mail alerts.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wolfman30/health-assistant/pkg/logging"
)

const defaultFromName = "HealthBot"

// EmailSender sends a single message. SendGrid, SES and the stub implement it.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one outbound alert. Tags label the message at the provider
// (SendGrid categories, SES message tags) so alerts can be filtered there.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
	Tags    map[string]string
}

// sortedTags returns tag keys in a stable order.
func (m EmailMessage) sortedTags() []string {
	keys := make([]string, 0, len(m.Tags))
	for k := range m.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// identity is the sender shown in the From header.
type identity struct {
	email string
	name  string
}

func newIdentity(email, name string) identity {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultFromName
	}
	return identity{email: strings.TrimSpace(email), name: name}
}

func (id identity) address() string {
	return fmt.Sprintf("%s <%s>", id.name, id.email)
}

// StubEmailSender logs instead of sending.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("stub email sender: would send alert", "subject", msg.Subject, "tags", msg.Tags)
	return nil
}
