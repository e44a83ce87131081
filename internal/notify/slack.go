package notify

import (
	"context"
	"fmt"
	"net/http"
)

// Slack posts a signup card to a Slack incoming webhook.
type Slack struct {
	webhookURL string
	http       *http.Client
}

// NewSlack creates a Slack notifier.
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		http:       newHTTPClient(),
	}
}

// NotifySignup posts a Block Kit card with approve/decline action links.
func (s *Slack) NotifySignup(ctx context.Context, notice SignupNotice) error {
	payload := map[string]any{
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*New signup pending approval*\n*Email:* %s\n*Username:* %s", notice.Email, notice.Username),
				},
			},
			{
				"type": "actions",
				"elements": []map[string]any{
					{
						"type":  "button",
						"style": "primary",
						"text":  map[string]any{"type": "plain_text", "text": "Approve"},
						"url":   notice.ApproveURL,
					},
					{
						"type":  "button",
						"style": "danger",
						"text":  map[string]any{"type": "plain_text", "text": "Decline"},
						"url":   notice.DeclineURL,
					},
				},
			},
		},
	}

	return postJSON(ctx, s.http, s.webhookURL, payload)
}
