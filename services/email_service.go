package services

import (
	"fmt"
	"log"
	"os"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailService sends transactional email through SendGrid. When no API key is
// configured the service stays in a no-op mode and only logs.
type EmailService struct {
	apiKey string
	host   string // empty means the SendGrid production API
	from   *sgmail.Email
}

// NewEmailService creates a new email service instance
func NewEmailService() *EmailService {
	fromAddr := os.Getenv("EMAIL_FROM")
	if fromAddr == "" {
		fromAddr = "noreply@learnhub.app"
	}

	return &EmailService{
		apiKey: os.Getenv("SENDGRID_API_KEY"),
		host:   os.Getenv("SENDGRID_HOST"),
		from:   sgmail.NewEmail("LearnHub", fromAddr),
	}
}

// IsConfigured checks if SendGrid is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.apiKey != ""
}

// Send delivers a plain-text email to one recipient
func (e *EmailService) Send(toEmail, toName, subject, body string) error {
	if !e.IsConfigured() {
		log.Printf("SendGrid not configured; dropping email to %s (%s)", toEmail, subject)
		return nil
	}

	to := sgmail.NewEmail(toName, toEmail)
	message := sgmail.NewSingleEmail(e.from, subject, to, body, "")

	request := sendgrid.GetRequest(e.apiKey, "/v3/mail/send", e.host)
	request.Method = "POST"
	request.Body = sgmail.GetRequestBody(message)

	resp, err := sendgrid.API(request)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed with status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
