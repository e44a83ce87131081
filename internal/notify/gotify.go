package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Gotify posts a signup message to a Gotify server.
type Gotify struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewGotify creates a Gotify notifier.
func NewGotify(baseURL, token string) *Gotify {
	return &Gotify{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    newHTTPClient(),
	}
}

// NotifySignup posts a plain message with the approve/decline links inline.
func (g *Gotify) NotifySignup(ctx context.Context, notice SignupNotice) error {
	endpoint := fmt.Sprintf("%s/message?token=%s", g.baseURL, url.QueryEscape(g.token))
	payload := map[string]any{
		"title":    "New signup pending approval",
		"message":  fmt.Sprintf("%s (%s)\nApprove: %s\nDecline: %s", notice.Username, notice.Email, notice.ApproveURL, notice.DeclineURL),
		"priority": 5,
	}
	return postJSON(ctx, g.http, endpoint, payload)
}
