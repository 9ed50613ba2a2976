// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/lookout/internal/tracking"
)

var errBrokerDown = errors.New("broker down")

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(string, ...*message.Message) error {
	p.calls++
	return errBrokerDown
}

func (p *failingPublisher) Close() error { return nil }

func TestStatusSink_PublishesToStatusSubject(t *testing.T) {
	cfg := testConfig()
	bus := NewInProcessBus(nil)
	defer bus.Close()

	sub, _ := bus.NewSubscriber()
	ch, err := sub.Subscribe(context.Background(), cfg.StatusSubject("lost"))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	pub, err := NewPublisher(bus.Publisher(), NewCircuitBreaker(cfg.CircuitBreaker))
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	sink, err := NewStatusSink(cfg, pub)
	if err != nil {
		t.Fatalf("NewStatusSink: %v", err)
	}

	n := tracking.Notification{TrackingKey: "ais.1", Status: tracking.StatusLost, At: epoch}
	if err := sink.Deliver(context.Background(), n); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	select {
	case msg := <-ch:
		msg.Ack()
		var got tracking.Notification
		if err := json.Unmarshal(msg.Payload, &got); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if got.TrackingKey != "ais.1" || got.Status != tracking.StatusLost || !got.At.Equal(epoch) {
			t.Errorf("notification = %+v", got)
		}
		if msg.Metadata.Get("status") != "lost" || msg.Metadata.Get("tracking_key") != "ais.1" {
			t.Errorf("metadata = %v", msg.Metadata)
		}
		if msg.UUID == "" {
			t.Error("message id missing")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notification not published")
	}
}

func TestPublisher_CircuitBreakerOpens(t *testing.T) {
	cbCfg := DefaultCircuitBreakerConfig("test-open")
	cbCfg.FailureThreshold = 2
	cbCfg.Timeout = time.Minute

	fp := &failingPublisher{}
	pub, err := NewPublisher(fp, NewCircuitBreaker(cbCfg))
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}

	for i := 0; i < 2; i++ {
		err := pub.Publish(context.Background(), "x", message.NewMessage("id", nil))
		if !errors.Is(err, errBrokerDown) {
			t.Fatalf("publish %d: err = %v", i, err)
		}
	}

	err = pub.Publish(context.Background(), "x", message.NewMessage("id", nil))
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want ErrOpenState", err)
	}
	if fp.calls != 2 {
		t.Errorf("underlying publisher called %d times, want 2", fp.calls)
	}
	if pub.BreakerState() != "open" {
		t.Errorf("BreakerState() = %q, want open", pub.BreakerState())
	}
}

func TestPublisher_Closed(t *testing.T) {
	if _, err := NewPublisher(nil, nil); !errors.Is(err, ErrNilPublisher) {
		t.Errorf("NewPublisher(nil) err = %v", err)
	}

	pub, _ := NewPublisher(&failingPublisher{}, nil)
	if pub.BreakerState() != "none" {
		t.Errorf("BreakerState() = %q, want none", pub.BreakerState())
	}
	_ = pub.Close()
	err := pub.Publish(context.Background(), "x", message.NewMessage("id", nil))
	if !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("err = %v, want ErrPublisherClosed", err)
	}
}

func TestMultiSink(t *testing.T) {
	var delivered []string
	ok := tracking.SinkFunc(func(_ context.Context, n tracking.Notification) error {
		delivered = append(delivered, n.TrackingKey)
		return nil
	})
	bad := tracking.SinkFunc(func(context.Context, tracking.Notification) error {
		return errBrokerDown
	})

	sink := MultiSink{LogSink{}, bad, ok}
	err := sink.Deliver(context.Background(), tracking.Notification{TrackingKey: "k", Status: tracking.StatusRemove, At: epoch})
	if !errors.Is(err, errBrokerDown) {
		t.Errorf("err = %v, want errBrokerDown", err)
	}
	if len(delivered) != 1 {
		t.Errorf("later sinks must still run, delivered = %v", delivered)
	}
}
