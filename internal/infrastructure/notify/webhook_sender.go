package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/famlio/budget-api/internal/core/ports"
)

const deliverTimeout = 10 * time.Second

// WebhookSender delivers notices to the external email/SMS gateway over a
// single HTTP endpoint. Template rendering and channel selection happen on
// the gateway side.
type WebhookSender struct {
	url    string
	client *http.Client
}

func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: deliverTimeout},
	}
}

type webhookPayload struct {
	Target       string `json:"target"`
	InvitationID string `json:"invitation_id"`
	AccountName  string `json:"account_name"`
	InviterName  string `json:"inviter_name"`
}

func (s *WebhookSender) Deliver(ctx context.Context, notice ports.InvitationNotice) error {
	body, err := json.Marshal(webhookPayload{
		Target:       notice.Target,
		InvitationID: notice.InvitationID,
		AccountName:  notice.AccountName,
		InviterName:  notice.InviterName,
	})
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notice: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("deliver notice: gateway returned %d", resp.StatusCode)
	}
	return nil
}
