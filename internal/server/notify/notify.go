// Package notify delivers password-reset links out of band. The user service
// only sees Dispatcher, which sends in the background and never reports
// failure back to the request.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/quicklyway/internal/logging"
)

// Message is a reset e-mail request.
type Message struct {
	To       string
	Name     string
	ResetURL string
}

// Values flattens the message into stream fields.
func (m Message) Values() map[string]any {
	return map[string]any{
		"to":        m.To,
		"name":      m.Name,
		"reset_url": m.ResetURL,
	}
}

// MessageFromValues is the inverse of Values.
func MessageFromValues(values map[string]any) (Message, error) {
	var m Message

	to, _ := values["to"].(string)
	url, _ := values["reset_url"].(string)
	if to == "" || url == "" {
		return m, errors.New("message is missing recipient or reset url")
	}

	m.To = to
	m.ResetURL = url
	m.Name, _ = values["name"].(string)
	return m, nil
}

// Notifier sends a single reset message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier only logs the request. The link itself is a live credential and
// is written at debug level.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.logger.Info(ctx, "password reset requested", "to", msg.To)
	n.logger.Debug(ctx, "password reset link", "to", msg.To, "reset_url", msg.ResetURL)
	return nil
}

// New returns the notifier named by kind: "log", "smtp" or "redis".
// The redis kind needs a stream adder (usually a *redis.Client).
func New(kind string, smtpCfg SMTPConfig, stream StreamAdder, streamName string, logger logging.Logger) (Notifier, error) {
	switch kind {
	case "", "log":
		return NewLogNotifier(logger), nil
	case "smtp":
		return NewSMTPNotifier(smtpCfg), nil
	case "redis":
		if stream == nil {
			return nil, errors.New("redis notifier requires a redis client")
		}
		return NewStreamNotifier(stream, streamName), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", kind)
	}
}
