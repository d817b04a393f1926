package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers one text message to a recipient on the chat channel.
// Delivery is fire-and-forget from the monitor's point of view: implementations
// may fail, but the caller logs and moves on.
type Notifier interface {
	Send(ctx context.Context, recipient, text string) error
}

// ButtonNotifier is implemented by notifiers that can attach a cancel button
// referencing a request id. The rich "corrida aceita" notice uses it when
// available and falls back to plain Send otherwise.
type ButtonNotifier interface {
	SendWithCancelButton(ctx context.Context, recipient, requestID, text string) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, recipient, text string) error

func (f Func) Send(ctx context.Context, recipient, text string) error {
	return f(ctx, recipient, text)
}

// Multi fans a message out to several notifiers. Every notifier is attempted;
// the first error is returned after all sends finish.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, recipient, text string) error {
	var firstErr error
	for _, n := range m {
		if err := n.Send(ctx, recipient, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m Multi) SendWithCancelButton(ctx context.Context, recipient, requestID, text string) error {
	var firstErr error
	for _, n := range m {
		var err error
		if bn, ok := n.(ButtonNotifier); ok {
			err = bn.SendWithCancelButton(ctx, recipient, requestID, text)
		} else {
			err = n.Send(ctx, recipient, text)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Logging wraps a notifier so every delivery attempt is logged. Failures are
// reported at warn level; they are still returned for the caller to swallow.
type Logging struct {
	Next   Notifier
	Logger *slog.Logger
}

func (l Logging) Send(ctx context.Context, recipient, text string) error {
	err := l.Next.Send(ctx, recipient, text)
	if err != nil {
		l.logger().Warn("notification delivery failed", "recipient", recipient, "error", err)
		return err
	}
	l.logger().Debug("notification delivered", "recipient", recipient, "bytes", len(text))
	return nil
}

func (l Logging) SendWithCancelButton(ctx context.Context, recipient, requestID, text string) error {
	var err error
	if bn, ok := l.Next.(ButtonNotifier); ok {
		err = bn.SendWithCancelButton(ctx, recipient, requestID, text)
	} else {
		err = l.Next.Send(ctx, recipient, text)
	}
	if err != nil {
		l.logger().Warn("notification delivery failed", "recipient", recipient, "request", requestID, "error", err)
	}
	return err
}

func (l Logging) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
