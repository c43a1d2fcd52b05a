package mailer

import (
	"context"

	"github.com/dmitrijs2005/quicklyway/internal/logging"
	"github.com/dmitrijs2005/quicklyway/internal/server/notify"
	"github.com/redis/go-redis/v9"
)

// ResetHandler decodes reset messages and sends them with a Notifier,
// normally the SMTP one.
type ResetHandler struct {
	notifier notify.Notifier
	logger   logging.Logger
}

func NewResetHandler(n notify.Notifier, logger logging.Logger) *ResetHandler {
	return &ResetHandler{notifier: n, logger: logger}
}

// Handle reports malformed messages as handled so they are acked and dropped.
func (h *ResetHandler) Handle(ctx context.Context, msg redis.XMessage) error {
	m, err := notify.MessageFromValues(msg.Values)
	if err != nil {
		h.logger.Warn(ctx, "discarding malformed message", "message_id", msg.ID, "error", err)
		return nil
	}

	if err := h.notifier.Send(ctx, m); err != nil {
		return err
	}

	h.logger.Info(ctx, "reset email sent", "message_id", msg.ID, "to", m.To)
	return nil
}
