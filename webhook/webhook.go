package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event types.
const (
	EventSearchCompleted = "search.completed"
	EventSearchFailed    = "search.failed"
)

// SignatureHeader carries "sha256=<hex>" of the body when a secret is set.
const SignatureHeader = "X-Shelfscan-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// NewEvent stamps an event with the current time.
func NewEvent(typ, jobID string, data any) *Event {
	return &Event{Type: typ, JobID: jobID, Timestamp: time.Now().Unix(), Data: data}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Sender delivers events over HTTP.
type Sender struct {
	client *http.Client
	delays []time.Duration
}

// NewSender creates a sender. Async deliveries are attempted immediately
// and retried after 1s, 5s and 30s.
func NewSender(timeout time.Duration) *Sender {
	return &Sender{
		client: &http.Client{Timeout: timeout},
		delays: []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Deliver posts one event synchronously.
func (s *Sender) Deliver(ctx context.Context, url, secret string, ev *Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Shelfscan-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverAsync posts an event in the background, retrying on failure. done,
// if non-nil, receives the final outcome.
func (s *Sender) DeliverAsync(url, secret string, ev *Event, done func(error)) {
	go func() {
		var err error
		for attempt, delay := range s.delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout+time.Second)
			err = s.Deliver(ctx, url, secret, ev)
			cancel()

			log := slog.With("url", url, "event", ev.Type, "job_id", ev.JobID, "attempt", attempt+1)
			if err == nil {
				log.Info("webhook delivered")
				break
			}
			log.Warn("webhook delivery failed", "error", err)
		}
		if err != nil {
			slog.Error("webhook delivery exhausted all retries", "url", url, "event", ev.Type, "job_id", ev.JobID)
		}
		if done != nil {
			done(err)
		}
	}()
}
