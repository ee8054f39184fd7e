// Package notify delivers reminder emails and operator reports.
package notify

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Message is one plain-text email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Sender delivers a message or reports why it could not.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them. It is used
// when no SMTP host is configured.
type LogSender struct {
	log *log.Logger
}

func NewLogSender(l *log.Logger) *LogSender {
	return &LogSender{log: l}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.WithFields(log.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail (log transport)\n" + msg.Body)
	return nil
}
