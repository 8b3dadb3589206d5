package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/brandpick/apiserver/internal/mq"
	"github.com/brandpick/apiserver/types"
)

type recordingMailer struct {
	sent []Mail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, mail Mail) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

type fakeSubscriber struct {
	channel string
	msgs    []mq.Message
	errs    []error
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, channel string, handler mq.Handler) error {
	s.channel = channel
	for _, msg := range s.msgs {
		s.errs = append(s.errs, handler(ctx, msg))
	}
	return nil
}

var workerNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestWorker(mailer Mailer) *ConfirmationWorker {
	w := NewConfirmationWorker(mailer, nil)
	w.now = func() time.Time { return workerNow }
	return w
}

func eventMessage(t *testing.T, event types.UserRegisteredEvent) mq.Message {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return mq.Message{ID: "msg-1", Data: data}
}

func TestHandleSendsConfirmation(t *testing.T) {
	mailer := &recordingMailer{}
	w := newTestWorker(mailer)

	msg := eventMessage(t, types.UserRegisteredEvent{
		UserID:       "u1",
		Email:        "brand@example.com",
		Name:         "Acme",
		ConfirmToken: "abc123",
		Expires:      workerNow.Add(time.Hour),
	})
	if err := w.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(mailer.sent))
	}
	mail := mailer.sent[0]
	if mail.To != "brand@example.com" || mail.Subject != confirmSubject {
		t.Fatalf("unexpected mail %+v", mail)
	}
	if !strings.Contains(mail.Body, "abc123") || !strings.Contains(mail.Body, "Hi Acme") {
		t.Fatalf("unexpected body %q", mail.Body)
	}
}

func TestHandleDiscardsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		msg  mq.Message
	}{
		{name: "malformed json", msg: mq.Message{ID: "bad", Data: []byte("{")}},
		{name: "missing email", msg: eventMessage(t, types.UserRegisteredEvent{ConfirmToken: "abc"})},
		{name: "missing token", msg: eventMessage(t, types.UserRegisteredEvent{Email: "a@example.com"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &recordingMailer{}
			err := newTestWorker(mailer).Handle(context.Background(), tt.msg)
			if !errors.Is(err, mq.ErrDiscard) {
				t.Fatalf("expected ErrDiscard, got %v", err)
			}
			if len(mailer.sent) != 0 {
				t.Fatal("expected no mail")
			}
		})
	}
}

func TestHandleSkipsExpiredToken(t *testing.T) {
	mailer := &recordingMailer{}
	msg := eventMessage(t, types.UserRegisteredEvent{
		Email:        "a@example.com",
		ConfirmToken: "abc",
		Expires:      workerNow.Add(-time.Minute),
	})
	if err := newTestWorker(mailer).Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("expected expired token to be skipped")
	}
}

func TestHandleRetriesMailerFailure(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	msg := eventMessage(t, types.UserRegisteredEvent{
		Email:        "a@example.com",
		ConfirmToken: "abc",
		Expires:      workerNow.Add(time.Hour),
	})
	err := newTestWorker(mailer).Handle(context.Background(), msg)
	if err == nil || errors.Is(err, mq.ErrDiscard) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestRunSubscribesToRegistrations(t *testing.T) {
	mailer := &recordingMailer{}
	sub := &fakeSubscriber{msgs: []mq.Message{eventMessage(t, types.UserRegisteredEvent{
		Email:        "a@example.com",
		ConfirmToken: "abc",
		Expires:      workerNow.Add(time.Hour),
	})}}

	if err := newTestWorker(mailer).Run(context.Background(), sub); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sub.channel != types.ChannelUserRegistered {
		t.Fatalf("unexpected channel %q", sub.channel)
	}
	if len(sub.errs) != 1 || sub.errs[0] != nil || len(mailer.sent) != 1 {
		t.Fatalf("unexpected delivery result %v, mails %d", sub.errs, len(mailer.sent))
	}
}
