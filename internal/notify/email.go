package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EmailSender delivers one registration receipt.
type EmailSender interface {
	SendReceipt(ctx context.Context, event RegistrationSubmitted) error
}

// HTTPEmailSender delivers receipts through the email provider's REST API.
type HTTPEmailSender struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

func NewHTTPEmailSender(baseURL, apiKey, from string) *HTTPEmailSender {
	return &HTTPEmailSender{
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type emailPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

func (s *HTTPEmailSender) SendReceipt(ctx context.Context, event RegistrationSubmitted) error {
	if event.RecipientEmail == "" {
		return fmt.Errorf("receipt has no recipient")
	}

	body, err := json.Marshal(emailPayload{
		From:    s.from,
		To:      []string{event.RecipientEmail},
		Subject: fmt.Sprintf("Registration received: %s", event.EventName),
		Text:    ReceiptBody(event),
	})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email provider returned status %d", resp.StatusCode)
	}
	return nil
}

// ReceiptBody renders the plain-text receipt.
func ReceiptBody(event RegistrationSubmitted) string {
	attendees := "attendees"
	if event.AttendeeCount == 1 {
		attendees = "attendee"
	}
	return fmt.Sprintf(
		"Hi %s,\n\nYour registration for %s has been received.\n\nConfirmation code: %s\nAttendees: %d %s\nSubmitted: %s\n\nYou can update your registration until the registration window closes.\n",
		event.ClubName,
		event.EventName,
		event.RegistrationCode,
		event.AttendeeCount, attendees,
		event.SubmittedAt.Format("January 2, 2006 at 3:04 PM"),
	)
}
