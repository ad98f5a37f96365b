// Package mailer sends event update emails through a MailerSend template.
package mailer

import (
	"context"
	"fmt"

	"ms-eventpass/internal/logger"

	"github.com/mailersend/mailersend-go"
)

// UpdateEmail is the personalization handed to the provider template.
type UpdateEmail struct {
	To        string
	Name      string
	EventID   string
	EventName string
	Message   string
	EventURL  string
}

type MailerService struct {
	Client     *mailersend.Mailersend
	FromEmail  string
	FromName   string
	TemplateID string
	Logger     *logger.Logger
}

func NewMailerService(apiKey, fromName, fromEmail, templateID string, log *logger.Logger) *MailerService {
	return &MailerService{
		Client:     mailersend.NewMailersend(apiKey),
		FromEmail:  fromEmail,
		FromName:   fromName,
		TemplateID: templateID,
		Logger:     log,
	}
}

// BuildMessage prepares the template message for one recipient.
func (m *MailerService) BuildMessage(email UpdateEmail) *mailersend.Message {
	message := m.Client.Email.NewMessage()
	message.SetFrom(mailersend.From{
		Name:  m.FromName,
		Email: m.FromEmail,
	})
	message.SetRecipients([]mailersend.Recipient{
		{
			Name:  email.Name,
			Email: email.To,
		},
	})
	message.SetSubject(fmt.Sprintf("Update: %s", email.EventName))
	message.SetTemplateID(m.TemplateID)
	message.SetPersonalization([]mailersend.Personalization{
		{
			Email: email.To,
			Data: map[string]interface{}{
				"event_id":   email.EventID,
				"event_name": email.EventName,
				"message":    email.Message,
				"event_url":  email.EventURL,
				"name":       email.Name,
			},
		},
	})
	return message
}

func (m *MailerService) SendUpdateEmail(ctx context.Context, email UpdateEmail) error {
	if email.To == "" {
		return fmt.Errorf("recipient has no email address")
	}

	res, err := m.Client.Email.Send(ctx, m.BuildMessage(email))
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.Logger.Debug("EMAIL", fmt.Sprintf("Update email for %s sent, message id %s", email.EventID, res.Header.Get("X-Message-Id")))
	return nil
}
