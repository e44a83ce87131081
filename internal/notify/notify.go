// Package notify posts fire-and-forget operational notifications. Delivery
// is best-effort: failures are logged, never surfaced to the request that
// triggered them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// SignupNotice describes a new account awaiting approval.
type SignupNotice struct {
	UserID     string
	Email      string
	Username   string
	ApproveURL string
	DeclineURL string
}

// Notifier delivers a signup notice to one destination.
type Notifier interface {
	NotifySignup(ctx context.Context, notice SignupNotice) error
}

// Multi fans a notice out to several destinations, logging each failure.
type Multi struct {
	notifiers []Notifier
	logger    *logrus.Logger
}

// NewMulti builds a fan-out notifier. An empty list is valid and does nothing.
func NewMulti(logger *logrus.Logger, notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers, logger: logger}
}

// NotifySignup delivers to all destinations; it never returns an error.
func (m *Multi) NotifySignup(ctx context.Context, notice SignupNotice) error {
	for _, n := range m.notifiers {
		if err := n.NotifySignup(ctx, notice); err != nil {
			m.logger.WithError(err).Warn("signup notification failed")
		}
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
