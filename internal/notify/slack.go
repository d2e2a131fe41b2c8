package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Slack posts notifications to a Slack incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
}

// NewSlack creates a Slack webhook notifier.
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Compile-time interface check.
var _ Notifier = (*Slack)(nil)

// Notify posts one message to the webhook.
func (s *Slack) Notify(ctx context.Context, p Payload) error {
	body, err := json.Marshal(map[string]string{"text": FormatMessage(p)})
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook status %d", resp.StatusCode)
	}
	return nil
}

// FormatMessage renders a payload into Slack mrkdwn.
func FormatMessage(p Payload) string {
	var b strings.Builder

	emoji := typeEmoji(p.Type)
	fmt.Fprintf(&b, "%s *%s* %s\n", emoji, p.Type, emoji)
	fmt.Fprintf(&b, "Mint: `%s`\n", p.MintAddress)
	fmt.Fprintf(&b, "Time: %s\n", time.UnixMilli(p.Timestamp).UTC().Format(time.RFC3339))

	if len(p.Data) > 0 {
		keys := make([]string, 0, len(p.Data))
		for k := range p.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("```\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, p.Data[k])
		}
		b.WriteString("```")
	}
	return b.String()
}

func typeEmoji(t Type) string {
	switch t {
	case TypeEntrySignal:
		return ":chart_with_upwards_trend:"
	case TypeExitSignal:
		return ":rotating_light:"
	case TypeMonitoringStarted:
		return ":satellite_antenna:"
	case TypeMonitoringStopped, TypeMonitoringDegraded:
		return ":octagonal_sign:"
	default:
		return ":grey_question:"
	}
}
