package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

type chanPublisher struct {
	ch chan []byte
}

func (p *chanPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	p.ch <- payload
	return nil
}

func TestMultiFansOut(t *testing.T) {
	var a, b Recorder
	Multi{&a, nil, &b}.Notify("boom", SeverityError)

	for _, r := range []*Recorder{&a, &b} {
		got := r.Entries()
		if len(got) != 1 || got[0].Message != "boom" || got[0].Severity != SeverityError {
			t.Errorf("entries = %+v", got)
		}
	}
}

func TestRedisSinkPublishes(t *testing.T) {
	pub := &chanPublisher{ch: make(chan []byte, 1)}
	NewRedisSink(pub, "walletview:notifications").Notify("switch wallet", SeverityWarning)

	select {
	case payload := <-pub.ch:
		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.ID == "" || msg.Message != "switch wallet" || msg.Severity != SeverityWarning {
			t.Errorf("message = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("notification was not published")
	}
}
