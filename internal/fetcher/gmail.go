package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"deposit-mail-reconciler/internal/config"
	"deposit-mail-reconciler/internal/model"
)

// GmailFetcher reads deposit alerts through the Gmail API.
type GmailFetcher struct {
	service   *gmail.Service
	userEmail string
	lastCheck time.Time
}

// NewGmailFetcher builds a Gmail API client from an OAuth2 refresh token.
func NewGmailFetcher(ctx context.Context, cfg config.MailConfig) (*GmailFetcher, error) {
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}
	tokenSource := oauth2Config.TokenSource(ctx, &oauth2.Token{
		RefreshToken: cfg.GmailRefreshToken,
	})

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailFetcher{
		service:   service,
		userEmail: cfg.GmailUserEmail,
		lastCheck: time.Now().Add(-24 * time.Hour),
	}, nil
}

// Fetch returns messages that arrived since the last check.
func (f *GmailFetcher) Fetch(ctx context.Context) ([]model.InboundEmail, error) {
	query := fmt.Sprintf("after:%d", f.lastCheck.Unix())

	response, err := f.service.Users.Messages.List(f.userEmail).Q(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var emails []model.InboundEmail
	for _, stub := range response.Messages {
		msg, err := f.service.Users.Messages.Get(f.userEmail, stub.Id).Format("full").Context(ctx).Do()
		if err != nil {
			logrus.Warnf("Failed to get message %s: %v", stub.Id, err)
			continue
		}
		emails = append(emails, f.parseMessage(msg))
	}

	f.lastCheck = time.Now()
	return emails, nil
}

func (f *GmailFetcher) parseMessage(msg *gmail.Message) model.InboundEmail {
	email := model.InboundEmail{
		MessageID: msg.Id,
		Date:      time.UnixMilli(msg.InternalDate),
		Source:    model.SourceGmailAPI,
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "Message-ID", "Message-Id":
			// the RFC 5322 id dedupes across transports; the Gmail id only
			// within this mailbox
			email.MessageID = header.Value
		case "Subject":
			email.Subject = header.Value
		case "From":
			if addr, err := mail.ParseAddress(header.Value); err == nil {
				email.From = addr.Address
			} else {
				email.From = header.Value
			}
		case "Date":
			if t, err := mail.ParseDate(header.Value); err == nil {
				email.Date = t
			}
		}
	}

	f.parseBody(msg.Payload, &email)
	return email
}

func (f *GmailFetcher) parseBody(part *gmail.MessagePart, email *model.InboundEmail) {
	if part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			logrus.Warnf("Failed to decode body part: %v", err)
		} else {
			assignBody(part.MimeType, string(data), email)
		}
	}
	for _, sub := range part.Parts {
		f.parseBody(sub, email)
	}
}

// Close is a no-op; the Gmail API client holds no connection state.
func (f *GmailFetcher) Close() error {
	return nil
}
