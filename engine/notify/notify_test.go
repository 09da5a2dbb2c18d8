package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type mockNotifier struct {
	name      string
	sendCount *atomic.Int64
	shouldErr bool
}

func (m *mockNotifier) ChannelName() string { return m.name }

func (m *mockNotifier) Send(ctx context.Context, n Notification) error {
	m.sendCount.Add(1)
	if m.shouldErr {
		return errors.New("mock failure")
	}
	return nil
}

func (m *mockNotifier) Test(ctx context.Context) error { return nil }

func TestDispatchToAllChannels(t *testing.T) {
	var countA, countB atomic.Int64
	d := Empty()
	d.SetRuleChannels("rule-1", []Notifier{
		&mockNotifier{name: "a", sendCount: &countA},
		&mockNotifier{name: "b", sendCount: &countB},
	})

	results := d.Dispatch(context.Background(), "rule-1", Notification{Subject: "test", Body: "test body"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Errorf("channel %q expected success, got error %q", r.Channel, r.Error)
		}
	}
	if countA.Load() != 1 || countB.Load() != 1 {
		t.Errorf("expected each channel sent once, got a=%d b=%d", countA.Load(), countB.Load())
	}
}

func TestPartialFailureDoesntBlock(t *testing.T) {
	var failCount, okCount atomic.Int64
	d := Empty()
	d.SetRuleChannels("rule-1", []Notifier{
		&mockNotifier{name: "fail", sendCount: &failCount, shouldErr: true},
		&mockNotifier{name: "ok", sendCount: &okCount},
	})

	results := d.Dispatch(context.Background(), "rule-1", Notification{Subject: "test", Body: "test body"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	var sawFail, sawOK bool
	for _, r := range results {
		switch r.Channel {
		case "fail":
			sawFail = true
			if r.Success {
				t.Error("fail channel should not report success")
			}
		case "ok":
			sawOK = true
			if !r.Success {
				t.Error("ok channel should report success")
			}
		}
	}
	if !sawFail || !sawOK {
		t.Fatal("expected results from both channels")
	}
	if okCount.Load() != 1 {
		t.Errorf("second channel should still have been sent, got count %d", okCount.Load())
	}
}

func TestUnknownRuleReturnsEmpty(t *testing.T) {
	d := Empty()
	results := d.Dispatch(context.Background(), "nonexistent", Notification{Subject: "test", Body: "test"})
	if len(results) != 0 {
		t.Errorf("expected no results for an unconfigured rule, got %d", len(results))
	}
}

func TestDefaultChannelsUsedWhenNoRuleSpecific(t *testing.T) {
	var count atomic.Int64
	d := WithDefaults([]Notifier{&mockNotifier{name: "default", sendCount: &count}})

	results := d.Dispatch(context.Background(), "any-rule", Notification{Subject: "x", Body: "y"})
	if len(results) != 1 {
		t.Fatalf("expected 1 result via default channel, got %d", len(results))
	}
	if count.Load() != 1 {
		t.Errorf("expected default channel invoked once, got %d", count.Load())
	}
}

func TestRemoveRuleFallsBackToDefaults(t *testing.T) {
	var ruleCount, defaultCount atomic.Int64
	d := WithDefaults([]Notifier{&mockNotifier{name: "default", sendCount: &defaultCount}})
	d.SetRuleChannels("rule-1", []Notifier{&mockNotifier{name: "specific", sendCount: &ruleCount}})

	d.RemoveRule("rule-1")
	results := d.Dispatch(context.Background(), "rule-1", Notification{Subject: "x", Body: "y"})
	if len(results) != 1 || results[0].Channel != "default" {
		t.Fatalf("expected fallback to default channel after RemoveRule, got %#v", results)
	}
}

func TestTestNotifyUnknownRuleErrors(t *testing.T) {
	d := Empty()
	if err := d.TestNotify(context.Background(), "nonexistent", 0); err == nil {
		t.Error("expected an error for an unknown rule")
	}
}

func TestTestNotifyIndexOutOfRangeErrors(t *testing.T) {
	var count atomic.Int64
	d := Empty()
	d.SetRuleChannels("rule-1", []Notifier{&mockNotifier{name: "a", sendCount: &count}})
	if err := d.TestNotify(context.Background(), "rule-1", 5); err == nil {
		t.Error("expected an error for an out-of-range channel index")
	}
}
