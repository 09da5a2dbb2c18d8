package notify

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLogNotifierSendWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	n := NewLogNotifier(log)

	if err := n.Send(context.Background(), Notification{Subject: "rule fired", Body: "alice"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "rule fired") {
		t.Errorf("expected log output to contain the subject, got %q", buf.String())
	}
}

func TestLogNotifierChannelName(t *testing.T) {
	n := NewLogNotifier(slog.Default())
	if n.ChannelName() != "log" {
		t.Errorf("expected channel name 'log', got %q", n.ChannelName())
	}
}

func TestLogNotifierTestNeverErrors(t *testing.T) {
	n := NewLogNotifier(slog.Default())
	if err := n.Test(context.Background()); err != nil {
		t.Errorf("expected Test to never error, got %v", err)
	}
}
