package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/health-assistant/internal/compliance"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

// SafetyAlerter e-mails operators about blocked messages at or above a severity.
type SafetyAlerter struct {
	sender  EmailSender
	to      string
	minimum string
	logger  *logging.Logger
}

var severityRank = map[string]int{"LOW": 1, "MEDIUM": 2, "HIGH": 3}

// NewSafetyAlerter alerts on HIGH incidents unless minimum says otherwise.
func NewSafetyAlerter(sender EmailSender, to, minimum string, logger *logging.Logger) *SafetyAlerter {
	if sender == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	minimum = strings.ToUpper(strings.TrimSpace(minimum))
	if _, ok := severityRank[minimum]; !ok {
		minimum = "HIGH"
	}
	return &SafetyAlerter{sender: sender, to: strings.TrimSpace(to), minimum: minimum, logger: logger}
}

// Alert sends one e-mail for the incident. Incidents below the minimum severity and
// alerters without a recipient are no-ops.
func (a *SafetyAlerter) Alert(ctx context.Context, in compliance.Incident) error {
	if a == nil || a.to == "" {
		return nil
	}
	severity := strings.ToUpper(in.Severity)
	if severityRank[severity] < severityRank[a.minimum] {
		return nil
	}

	msg := renderIncident(in, severity)
	msg.To = a.to
	if err := a.sender.Send(ctx, msg); err != nil {
		a.logger.Warn("safety alert failed", "error", err, "severity", severity)
		return fmt.Errorf("notify: send safety alert: %w", err)
	}
	return nil
}

// renderIncident builds the operator e-mail for a blocked message. The message
// text itself never leaves the process; only its hash does.
func renderIncident(in compliance.Incident, severity string) EmailMessage {
	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	categories := "uncategorized"
	if len(in.Categories) > 0 {
		categories = strings.Join(in.Categories, ", ")
	}
	rows := [][2]string{
		{"Severity", severity},
		{"Categories", categories},
		{"Session", in.SessionKey},
		{"User", valueOr(in.UserID, "anonymous")},
		{"Blocked at", occurred.Format(time.RFC3339)},
		{"Message hash", compliance.HashMessage(in.Message)},
	}

	var text, page strings.Builder
	text.WriteString("HealthBot blocked a user message before it reached the assistant.\n\n")
	page.WriteString("<h2>HealthBot safety block</h2>\n<p>A user message was blocked before it reached the assistant.</p>\n<table>\n")
	for _, row := range rows {
		fmt.Fprintf(&text, "%s: %s\n", row[0], row[1])
		fmt.Fprintf(&page, "<tr><th align=\"left\">%s</th><td>%s</td></tr>\n", row[0], html.EscapeString(row[1]))
	}
	text.WriteString("\nLook the session up in the query log to review the conversation.\n")
	page.WriteString("</table>\n<p>Look the session up in the query log to review the conversation.</p>\n")

	tags := map[string]string{"alert": "safety_block", "severity": strings.ToLower(severity)}
	if len(in.Categories) > 0 {
		tags["category"] = in.Categories[0]
	}
	return EmailMessage{
		Subject: fmt.Sprintf("[HealthBot] %s safety block: %s", severity, categories),
		Body:    text.String(),
		HTML:    page.String(),
		Tags:    tags,
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
