package session

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/frostlabs/pulse/internal/adapters/memorybus"
	"github.com/frostlabs/pulse/internal/broker"
	"github.com/frostlabs/pulse/internal/domain/events"
	"github.com/frostlabs/pulse/internal/protocol"
	"github.com/frostlabs/pulse/internal/streamid"
	"github.com/frostlabs/pulse/internal/testutil"
)

func newTestBroker(t *testing.T, followings map[string][]string) (*broker.Broker, *memorybus.Bus) {
	t.Helper()
	domainBus := memorybus.New()
	b := broker.New(domainBus, testutil.NewStaticFollowings(followings))
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("broker.Start() error = %v", err)
	}
	t.Cleanup(b.Stop)
	return b, domainBus
}

func newTestSession(t *testing.T, b *broker.Broker, userID string) (*Session, *testutil.MockTransport) {
	t.Helper()
	transport := testutil.NewMockTransport()
	s := New("sess-"+userID, userID, transport, b)
	t.Cleanup(s.Close)
	return s, transport
}

func subscribeHome(raw string) []byte {
	return []byte(`{"type":"eventStream.subscribe","id":` + raw + `,"sourceName":"homeTimeline"}`)
}

func unsubscribeHome(raw string) []byte {
	return []byte(`{"type":"eventStream.unsubscribe","id":` + raw + `,"sourceName":"homeTimeline"}`)
}

func publishPosting(t *testing.T, domainBus *memorybus.Bus, authorID string) {
	t.Helper()
	payload, _ := json.Marshal(events.PostingEvent{
		Posting: events.Posting{ID: "p1", User: events.User{ID: authorID}},
	})
	if err := domainBus.Publish(context.Background(), streamid.DomainPostingChat.String(), payload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func lastAck(t *testing.T, transport *testutil.MockTransport) protocol.Ack {
	t.Helper()
	last := transport.Last()
	ack, ok := last.Payload.(protocol.Ack)
	if !ok {
		t.Fatalf("last sent payload = %#v, want protocol.Ack", last.Payload)
	}
	return ack
}

func lastError(t *testing.T, transport *testutil.MockTransport) protocol.ErrorResponse {
	t.Helper()
	last := transport.Last()
	if last.Event != protocol.EventError {
		t.Fatalf("last sent event = %q, want %q", last.Event, protocol.EventError)
	}
	resp, ok := last.Payload.(protocol.ErrorResponse)
	if !ok {
		t.Fatalf("last sent payload = %#v, want protocol.ErrorResponse", last.Payload)
	}
	return resp
}

func TestSession_SubscribeHome(t *testing.T) {
	b, domainBus := newTestBroker(t, map[string][]string{"u1": {"u2"}})
	s, transport := newTestSession(t, b, "u1")
	ctx := context.Background()

	s.HandleMessage(ctx, subscribeHome("1"))

	ack := lastAck(t, transport)
	if !ack.Success || ack.Message != "subscribed home timeline" {
		t.Errorf("ack = %+v", ack)
	}
	if transport.Last().Event != protocol.ActionSubscribe {
		t.Errorf("ack event = %q, want %q", transport.Last().Event, protocol.ActionSubscribe)
	}

	home, _ := streamid.HomeTimelineStream("u1")
	if !b.Registry().Contains(home) {
		t.Fatal("home stream not created")
	}

	publishPosting(t, domainBus, "u2")

	last := transport.Last()
	if last.Event != protocol.EventStream {
		t.Fatalf("push event = %q, want %q", last.Event, protocol.EventStream)
	}
	push, ok := last.Payload.(events.Push)
	if !ok {
		t.Fatalf("push payload = %#v", last.Payload)
	}
	if push.EventType != "timeline.chat.home" {
		t.Errorf("push eventType = %q, want timeline.chat.home", push.EventType)
	}
}

func TestSession_DuplicateSubscribe(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	s, transport := newTestSession(t, b, "u1")
	ctx := context.Background()

	s.HandleMessage(ctx, subscribeHome("1"))
	s.HandleMessage(ctx, subscribeHome("2"))

	resp := lastError(t, transport)
	if resp.Error != "home timeline is already subscribed" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestSession_UnsubscribeNotSubscribed(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	s, transport := newTestSession(t, b, "u1")

	before := b.Registry().Len()
	s.HandleMessage(context.Background(), unsubscribeHome("1"))

	resp := lastError(t, transport)
	if resp.Error != "home timeline is not subscribed yet" {
		t.Errorf("error = %q", resp.Error)
	}
	if b.Registry().Len() != before {
		t.Errorf("registry size changed: %d -> %d", before, b.Registry().Len())
	}
}

func TestSession_SubscribeUnsubscribeDisposes(t *testing.T) {
	b, _ := newTestBroker(t, nil)
	s, _ := newTestSession(t, b, "u1")
	ctx := context.Background()

	s.HandleMessage(ctx, subscribeHome("1"))
	s.HandleMessage(ctx, unsubscribeHome("2"))

	home, _ := streamid.HomeTimelineStream("u1")
	if b.Registry().Contains(home) {
		t.Error("home stream not disposed after unsubscribe")
	}
}

// Two connections for the same user share one underlying stream; both
// receive events, and the stream is disposed after both unsubscribe.
func TestSession_TwoTabsShareOneStream(t *testing.T) {
	b, domainBus := newTestBroker(t, map[string][]string{"u1": {"u2"}})
	ctx := context.Background()

	s1, t1 := newTestSession(t, b, "u1")
	s2, t2 := newTestSession(t, b, "u1")

	s1.HandleMessage(ctx, subscribeHome("1"))
	s2.HandleMessage(ctx, subscribeHome("1"))

	home, _ := streamid.HomeTimelineStream("u1")
	stream := b.Registry().Get(home)
	if stream == nil {
		t.Fatal("home stream not created")
	}
	if stream.ListenerCount() != 2 {
		t.Fatalf("ListenerCount() = %d, want 2", stream.ListenerCount())
	}

	publishPosting(t, domainBus, "u2")

	for i, tr := range []*testutil.MockTransport{t1, t2} {
		if tr.Last().Event != protocol.EventStream {
			t.Errorf("connection %d did not receive the push", i+1)
		}
	}

	s1.HandleMessage(ctx, unsubscribeHome("2"))
	if !b.Registry().Contains(home) {
		t.Fatal("stream disposed while one connection remains")
	}
	s2.HandleMessage(ctx, unsubscribeHome("2"))
	if b.Registry().Contains(home) {
		t.Error("stream not disposed after both connections unsubscribed")
	}
}

func TestSession_CandyRoutesToGeneralStream(t *testing.T) {
	b, domainBus := newTestBroker(t, nil)
	s, transport := newTestSession(t, b, "u1")
	ctx := context.Background()

	candyReq := []byte(`{"type":"eventStream.subscribe","id":1,"sourceName":"homeTimeline","candy":true}`)
	s.HandleMessage(ctx, candyReq)

	ack := lastAck(t, transport)
	if ack.Message != "subscribed candy timeline" {
		t.Errorf("ack message = %q", ack.Message)
	}

	home, _ := streamid.HomeTimelineStream("u1")
	if b.Registry().Contains(home) {
		t.Error("candy subscribe created a per-user home stream")
	}

	// A posting from anyone reaches the general stream.
	publishPosting(t, domainBus, "u9")
	push, ok := transport.Last().Payload.(events.Push)
	if !ok || push.EventType != "timeline.chat.general" {
		t.Errorf("push = %#v, want timeline.chat.general push", transport.Last().Payload)
	}

	// Unsubscribing with the same flag resolves to the same identifier.
	candyUnsub := []byte(`{"type":"eventStream.unsubscribe","id":2,"sourceName":"homeTimeline","candy":true}`)
	s.HandleMessage(ctx, candyUnsub)

	ack = lastAck(t, transport)
	if !ack.Success || ack.Message != "unsubscribed candy timeline" {
		t.Errorf("ack = %+v", ack)
	}

	// The general stream itself survives.
	if !b.Registry().Contains(streamid.GeneralTimelineStream) {
		t.Error("general stream disposed after candy unsubscribe")
	}
}

func TestSession_CloseUnwindsAllStreams(t *testing.T) {
	b, domainBus := newTestBroker(t, nil)
	transport := testutil.NewMockTransport()
	s := New("sess-u1", "u1", transport, b)
	ctx := context.Background()

	s.HandleMessage(ctx, subscribeHome("1"))
	s.HandleMessage(ctx, []byte(`{"type":"eventStream.subscribe","id":2,"sourceName":"homeTimeline","candy":true}`))

	// Transport drops before close, as on an abrupt disconnect.
	transport.Disconnect()
	sentBefore := transport.SentCount()

	s.Close()
	s.Close() // idempotent

	home, _ := streamid.HomeTimelineStream("u1")
	if b.Registry().Contains(home) {
		t.Error("home stream survived session close")
	}
	if !b.Registry().Contains(streamid.GeneralTimelineStream) {
		t.Error("general stream disposed by session close")
	}

	publishPosting(t, domainBus, "u1")
	if transport.SentCount() != sentBefore {
		t.Error("listener invoked after session close")
	}
}

func TestSession_ProtocolErrors(t *testing.T) {
	b, _ := newTestBroker(t, nil)

	tests := []struct {
		name    string
		raw     string
		wantErr string
		details string
	}{
		{"malformed json", `{nope`, "invalid data", ""},
		{"unknown type", `{"type":"eventStream.push","id":1,"sourceName":"homeTimeline"}`, "invalid property", "type"},
		{"missing id", `{"type":"eventStream.subscribe","sourceName":"homeTimeline"}`, "invalid property", "id"},
		{"object id", `{"type":"eventStream.subscribe","id":{"a":1},"sourceName":"homeTimeline"}`, "invalid property", "id"},
		{"unknown source", `{"type":"eventStream.subscribe","id":1,"sourceName":"fireHose"}`, "invalid property", "sourceName"},
		{"notification stub", `{"type":"eventStream.subscribe","id":1,"sourceName":"notification"}`, "coming soon", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, transport := newTestSession(t, b, "u1")
			s.HandleMessage(context.Background(), []byte(tt.raw))

			resp := lastError(t, transport)
			if resp.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantErr)
			}
			if tt.details != "" {
				if resp.Details["propertyName"] != tt.details {
					t.Errorf("details = %v, want propertyName=%s", resp.Details, tt.details)
				}
			}
		})
	}
}

func TestSession_GraphFailureYieldsServerError(t *testing.T) {
	domainBus := memorybus.New()
	resolver := testutil.NewStaticFollowings(nil)
	resolver.SetError(fmt.Errorf("mongo is down"))

	b := broker.New(domainBus, resolver)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("broker.Start() error = %v", err)
	}
	t.Cleanup(b.Stop)

	s, transport := newTestSession(t, b, "u1")
	s.HandleMessage(context.Background(), subscribeHome("1"))

	resp := lastError(t, transport)
	if resp.Error != "server error" {
		t.Errorf("error = %q, want server error", resp.Error)
	}

	home, _ := streamid.HomeTimelineStream("u1")
	if b.Registry().Contains(home) {
		t.Error("partial stream registered after graph failure")
	}
}
