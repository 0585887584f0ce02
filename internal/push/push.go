// Package push fans new posts out to area subscribers. Delivery itself
// is an external capability; the core only decides who gets notified and
// hands typed payloads to a Sender.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/citywatch-app/citywatch/internal/model"
	"github.com/citywatch-app/citywatch/internal/repository"
)

// Payload is what a subscriber's device receives.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// Sender delivers one payload to one subscription endpoint.
type Sender interface {
	Send(ctx context.Context, sub model.Subscription, p Payload) error
}

// Fanout matches subscriptions to new posts and dispatches payloads.
// Failures are logged and swallowed: notification is fire-and-forget
// and never affects the post-creation result.
type Fanout struct {
	subs   repository.SubscriptionRepository
	sender Sender
	appURL string
	logger *zap.Logger
}

// NewFanout constructs a fanout dispatcher.
func NewFanout(subs repository.SubscriptionRepository, sender Sender, appURL string, logger *zap.Logger) *Fanout {
	return &Fanout{subs: subs, sender: sender, appURL: appURL, logger: logger}
}

// NotifyPost delivers a new-post alert to every subscription covering
// its location that carries push credentials.
func (f *Fanout) NotifyPost(ctx context.Context, p *model.Post) {
	subs, err := f.subs.ListCovering(ctx, p.Location)
	if err != nil {
		f.logger.Warn("subscription lookup failed", zap.Error(err))
		return
	}

	body := p.Summary
	if len(body) > 100 {
		body = body[:100]
	}
	payload := Payload{
		Title: "New " + strings.ReplaceAll(string(p.IncidentType), "_", " ") + " nearby",
		Body:  body,
		URL:   f.appURL + "/post/" + p.ID.String(),
	}

	for _, sub := range subs {
		if sub.PushEndpoint == "" || sub.PushP256DH == "" || sub.PushAuth == "" {
			continue
		}
		if err := f.sender.Send(ctx, sub, payload); err != nil {
			f.logger.Warn("push delivery failed",
				zap.String("subscription_id", sub.ID.String()), zap.Error(err))
		}
	}
}

// RelaySender posts payloads to an external web-push relay that holds
// the VAPID keys and speaks the browser push protocol.
type RelaySender struct {
	relayURL string
	http     *http.Client
}

// NewRelaySender constructs a sender for the given relay endpoint.
func NewRelaySender(relayURL string) *RelaySender {
	return &RelaySender{relayURL: relayURL, http: &http.Client{Timeout: 10 * time.Second}}
}

// Send hands one delivery to the relay.
func (s *RelaySender) Send(ctx context.Context, sub model.Subscription, p Payload) error {
	body, err := json.Marshal(map[string]any{
		"endpoint": sub.PushEndpoint,
		"keys": map[string]string{
			"p256dh": sub.PushP256DH,
			"auth":   sub.PushAuth,
		},
		"payload": p,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.relayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push relay returned %d", resp.StatusCode)
	}
	return nil
}

// NopSender drops every payload; used when no relay is configured.
type NopSender struct{}

// Send discards the payload.
func (NopSender) Send(context.Context, model.Subscription, Payload) error { return nil }
