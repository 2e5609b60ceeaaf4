package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LeadNotice is what an agent is told about a new inquiry.
type LeadNotice struct {
	AgentEmail   string
	AgentName    string
	ListingTitle string
	ListingSlug  string
	BuyerName    string
	BuyerEmail   string
	BuyerPhone   string
	Message      string
}

// Sender sends transactional emails. Callers treat failures as advisory.
type Sender interface {
	SendNewLead(ctx context.Context, n LeadNotice) error
}

// BrevoClient sends emails via the Brevo (Sendinblue) API. Without an API key
// every send is a no-op.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	SiteURL  string
	// Endpoint overrides the Brevo API URL.
	Endpoint string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@homefind.app"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

func (c *BrevoClient) send(ctx context.Context, to BrevoTo, replyTo *BrevoReplyTo, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "HomeFind"},
		To:          []BrevoTo{to},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     replyTo,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendNewLead tells the listing agent about a buyer inquiry. Replies go to the buyer.
func (c *BrevoClient) SendNewLead(ctx context.Context, n LeadNotice) error {
	if c.APIKey == "" || n.AgentEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("New inquiry: %s", n.ListingTitle)
	var replyTo *BrevoReplyTo
	if n.BuyerEmail != "" {
		replyTo = &BrevoReplyTo{Email: n.BuyerEmail, Name: n.BuyerName}
	}
	return c.send(ctx, BrevoTo{Email: n.AgentEmail, Name: n.AgentName}, replyTo, subject,
		EmailLayout(c.SiteURL, newLeadContent(c.SiteURL, n)))
}

func newLeadContent(siteURL string, n LeadNotice) string {
	name := n.AgentName
	if name == "" {
		name = "there"
	}
	buyer := EscapeHTML(n.BuyerName)
	if n.BuyerPhone != "" {
		buyer += " · " + EscapeHTML(n.BuyerPhone)
	}
	msg := strings.TrimSpace(n.Message)
	if msg == "" {
		msg = "(no message)"
	}
	return fmt.Sprintf(`
    <h1>You have a new inquiry</h1>
    <p>Hi %s,</p>
    <p><strong>%s</strong> (%s) is interested in <strong>%s</strong>.</p>
    <p class="hf-quote">%s</p>
    <center>
      <a href="%s/dashboard/leads" class="hf-button">Open your leads</a>
    </center>
    <p style="margin-top:20px;font-size:14px;color:#666;">View the listing at <a href="%s/properties/%s">%s/properties/%s</a>.</p>
`, EscapeHTML(name), buyer, EscapeHTML(n.BuyerEmail), EscapeHTML(n.ListingTitle), EscapeHTML(msg),
		siteURL, siteURL, n.ListingSlug, siteURL, n.ListingSlug)
}
