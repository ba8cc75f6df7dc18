package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoPayload struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// BrevoMailer posts messages to the Brevo transactional email API.
type BrevoMailer struct {
	apiURL string
	apiKey string
	sender brevoAddress
	client *http.Client
}

func NewBrevoMailer(apiURL, apiKey, senderEmail, senderName string, timeout time.Duration) *BrevoMailer {
	return &BrevoMailer{
		apiURL: apiURL,
		apiKey: apiKey,
		sender: brevoAddress{Email: senderEmail, Name: senderName},
		client: &http.Client{Timeout: timeout},
	}
}

func (m *BrevoMailer) Send(ctx context.Context, msg Message) error {
	html, err := Render(msg)
	if err != nil {
		return err
	}

	body, err := json.Marshal(brevoPayload{
		Sender:      m.sender,
		To:          []brevoAddress{{Email: msg.To}},
		Subject:     msg.Subject,
		HTMLContent: html,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", m.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("brevo send failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
