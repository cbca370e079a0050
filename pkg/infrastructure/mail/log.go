package mail

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LogMailer records outgoing mail in the application log instead of delivering it.
type LogMailer struct {
	from string
}

func NewLogMailer(from string) *LogMailer {
	return &LogMailer{from: from}
}

func (m *LogMailer) Send(_ context.Context, recipient, subject, body string) error {
	if _, err := mail.ParseAddress(recipient); err != nil {
		return errors.Wrapf(err, "invalid recipient %q", recipient)
	}
	log.WithFields(log.Fields{
		"from":    m.from,
		"to":      recipient,
		"subject": subject,
		"size":    len(body),
	}).Info("mail sent")
	return nil
}
