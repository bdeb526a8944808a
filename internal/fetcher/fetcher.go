package fetcher

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"

	"deposit-mail-reconciler/internal/config"
	"deposit-mail-reconciler/internal/model"
)

// Fetcher pulls new inbound emails from a mailbox transport. Implementations
// only deliver raw payloads; deduplication happens downstream on MessageID.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.InboundEmail, error)
	Close() error
}

// IMAPFetcher reads deposit alerts from an IMAP inbox.
type IMAPFetcher struct {
	client    *client.Client
	lastCheck time.Time
}

// NewIMAPFetcher connects and authenticates against the configured IMAP
// server. The first fetch covers the previous 24 hours.
func NewIMAPFetcher(cfg config.MailConfig) (*IMAPFetcher, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(cfg.IMAPUser, cfg.IMAPPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	return &IMAPFetcher{
		client:    c,
		lastCheck: time.Now().Add(-24 * time.Hour),
	}, nil
}

// Fetch returns messages that arrived since the last check.
func (f *IMAPFetcher) Fetch(ctx context.Context) ([]model.InboundEmail, error) {
	if _, err := f.client.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = f.lastCheck

	uids, err := f.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	if len(uids) == 0 {
		f.lastCheck = time.Now()
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- f.client.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchBody, imap.FetchUid}, messages)
	}()

	var emails []model.InboundEmail
	for msg := range messages {
		email, err := f.parseMessage(msg)
		if err != nil {
			logrus.Warnf("Failed to parse IMAP message %d: %v", msg.Uid, err)
			continue
		}
		emails = append(emails, email)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	f.lastCheck = time.Now()
	return emails, nil
}

func (f *IMAPFetcher) parseMessage(msg *imap.Message) (model.InboundEmail, error) {
	email := model.InboundEmail{
		Source: model.SourceIMAP,
		Date:   time.Now(),
	}

	if msg.Envelope != nil {
		email.MessageID = msg.Envelope.MessageId
		email.Subject = msg.Envelope.Subject
		if !msg.Envelope.Date.IsZero() {
			email.Date = msg.Envelope.Date
		}
		if len(msg.Envelope.From) > 0 {
			email.From = msg.Envelope.From[0].Address()
		}
	}
	if email.MessageID == "" {
		// some alert senders omit the Message-ID header; the UID is stable
		// within the mailbox and keeps dedupe working
		email.MessageID = fmt.Sprintf("imap-uid-%d", msg.Uid)
	}

	if err := f.parseBody(msg, &email); err != nil {
		return email, err
	}
	return email, nil
}

func (f *IMAPFetcher) parseBody(msg *imap.Message, email *model.InboundEmail) error {
	if msg.Body == nil {
		return nil
	}

	section := &imap.BodySectionName{}
	r := msg.GetBody(section)
	if r == nil {
		return fmt.Errorf("failed to get message body")
	}

	entity, err := message.Read(r)
	if err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to read part: %w", err)
			}

			content, err := io.ReadAll(p.Body)
			if err != nil {
				return fmt.Errorf("failed to read part body: %w", err)
			}
			assignBody(p.Header.Get("Content-Type"), string(content), email)
		}
		return nil
	}

	content, err := io.ReadAll(entity.Body)
	if err != nil {
		return fmt.Errorf("failed to read message body: %w", err)
	}
	assignBody(entity.Header.Get("Content-Type"), string(content), email)
	return nil
}

func assignBody(contentType, content string, email *model.InboundEmail) {
	switch {
	case strings.Contains(contentType, "text/html"):
		email.HTMLBody = content
	case strings.Contains(contentType, "text/plain"), contentType == "":
		email.TextBody = content
	}
}

// Close logs out of the IMAP session.
func (f *IMAPFetcher) Close() error {
	return f.client.Logout()
}
