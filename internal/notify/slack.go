package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// Notifier posts operational events to a Slack channel. With no token it is
// a no-op, so callers never need to nil-check configuration themselves.
type Notifier struct {
	client  *slack.Client
	channel string
}

func New(botToken, channel string) *Notifier {
	if botToken == "" || channel == "" {
		return &Notifier{}
	}
	return &Notifier{client: slack.New(botToken), channel: channel}
}

// Enabled reports whether events will actually be delivered.
func (n *Notifier) Enabled() bool {
	return n.client != nil
}

// CleanupCompleted reports the outcome of a retention cleanup run.
func (n *Notifier) CleanupCompleted(ctx context.Context, deleted, maxAgeDays int) {
	n.post(ctx, fmt.Sprintf(":wastebasket: Retention cleanup removed %d document(s) older than %d days.", deleted, maxAgeDays))
}

// RetriesExhausted reports a generation flow that failed after all attempts.
func (n *Notifier) RetriesExhausted(ctx context.Context, operation string, attempts int, lastErr string) {
	n.post(ctx, fmt.Sprintf(":rotating_light: %s failed after %d attempt(s): %s", operation, attempts, lastErr))
}

func (n *Notifier) post(ctx context.Context, text string) {
	if n.client == nil {
		return
	}
	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		slog.Warn("failed to post ops notification", slog.String("error", err.Error()))
	}
}
