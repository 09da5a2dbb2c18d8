package notify

import (
	"context"
	"log/slog"
)

// LogNotifier delivers a notification by writing a structured log line.
// It needs no external endpoint configuration, so it's the channel a
// deployment falls back to before wiring a real webhook/chat/email
// collaborator.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier builds a LogNotifier writing through log.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) ChannelName() string { return "log" }

func (n *LogNotifier) Send(ctx context.Context, note Notification) error {
	n.log.Info("rule match notification", "subject", note.Subject, "body", note.Body, "metadata", note.Metadata)
	return nil
}

func (n *LogNotifier) Test(ctx context.Context) error {
	n.log.Info("rule notification channel test", "channel", n.ChannelName())
	return nil
}
