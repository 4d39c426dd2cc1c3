// Package notify sends a bounded operator alert when a helper invocation
// fails. It is not a general push-notification fan-out service — that
// remains an external collaborator per the system's scope — this is a
// single fixed recipient (the operator) for a single event (helper error).
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Notifier is told about a helper invocation that ended in error.
type Notifier interface {
	NotifyHelperFailure(ctx context.Context, helperID, executionID string, cause error) error
}

// LogNotifier logs the failure instead of sending it — used in ENV=local.
type LogNotifier struct {
	logger *slog.Logger
}

func (n *LogNotifier) NotifyHelperFailure(ctx context.Context, helperID, executionID string, cause error) error {
	n.logger.ErrorContext(ctx, "helper failure alert (local dev)", "helper_id", helperID, "execution_id", executionID, "cause", cause)
	return nil
}

// ResendNotifier emails the operator via the Resend API — used in
// staging/production.
type ResendNotifier struct {
	client        *resend.Client
	from          string
	operatorEmail string
}

func (n *ResendNotifier) NotifyHelperFailure(ctx context.Context, helperID, executionID string, cause error) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.operatorEmail},
		Subject: fmt.Sprintf("Helper %s failed", helperID),
		Html:    fmt.Sprintf("<p>Execution <code>%s</code> of helper <code>%s</code> ended in error:</p><pre>%s</pre>", executionID, helperID, cause.Error()),
	}
	if _, err := n.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send failure alert: %w", err)
	}
	return nil
}

// New returns a LogNotifier for ENV=local, a ResendNotifier otherwise.
func New(env, apiKey, from, operatorEmail string, logger *slog.Logger) Notifier {
	if env == "local" {
		return &LogNotifier{logger: logger}
	}
	return &ResendNotifier{
		client:        resend.NewClient(apiKey),
		from:          from,
		operatorEmail: operatorEmail,
	}
}
