package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brandpick/apiserver/internal/mq"
	"github.com/brandpick/apiserver/types"
	"go.uber.org/zap"
)

const confirmSubject = "Confirm your email"

// Subscriber consumes a channel. *mq.MQ satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// ConfirmationWorker turns user.registered events into confirmation mail.
type ConfirmationWorker struct {
	mailer Mailer
	logger *zap.Logger
	now    func() time.Time
}

func NewConfirmationWorker(mailer Mailer, logger *zap.Logger) *ConfirmationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfirmationWorker{mailer: mailer, logger: logger, now: time.Now}
}

// Run blocks consuming user.registered until ctx is cancelled.
func (w *ConfirmationWorker) Run(ctx context.Context, sub Subscriber) error {
	w.logger.Info("worker subscribed", zap.String("channel", types.ChannelUserRegistered))
	return sub.Subscribe(ctx, types.ChannelUserRegistered, w.Handle)
}

// Handle processes one delivery. Payloads that can never be mailed are
// discarded; mailer failures are returned so the broker redelivers.
func (w *ConfirmationWorker) Handle(ctx context.Context, msg mq.Message) error {
	var event types.UserRegisteredEvent
	if err := msg.Decode(&event); err != nil {
		w.logger.Warn("drop malformed message", zap.String("message_id", msg.ID), zap.Error(err))
		return err
	}
	if strings.TrimSpace(event.Email) == "" || event.ConfirmToken == "" {
		w.logger.Warn("drop incomplete registration event", zap.String("message_id", msg.ID))
		return fmt.Errorf("message %s: missing email or token: %w", msg.ID, mq.ErrDiscard)
	}
	if !event.Expires.IsZero() && !w.now().Before(event.Expires) {
		w.logger.Info("skip expired confirmation", zap.String("user_id", event.UserID))
		return nil
	}

	if err := w.mailer.Send(ctx, confirmationMail(event)); err != nil {
		return fmt.Errorf("send confirmation to %s: %w", event.Email, err)
	}
	w.logger.Info("confirmation sent",
		zap.String("message_id", msg.ID),
		zap.String("user_id", event.UserID),
	)
	return nil
}

func confirmationMail(event types.UserRegisteredEvent) Mail {
	name := event.Name
	if name == "" {
		name = event.Email
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	b.WriteString("Use this token to confirm your email address:\n\n")
	b.WriteString(event.ConfirmToken)
	fmt.Fprintf(&b, "\n\nThe token is valid until %s.\n", event.Expires.UTC().Format(time.RFC1123))
	return Mail{To: event.Email, Subject: confirmSubject, Body: b.String()}
}
