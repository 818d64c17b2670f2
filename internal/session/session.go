// Package session implements the per-connection subscription protocol: which
// streams a client has joined, the listeners registered on each, and the
// unwind on disconnect.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/frostlabs/pulse/internal/broker"
	"github.com/frostlabs/pulse/internal/bus"
	"github.com/frostlabs/pulse/internal/domain/events"
	"github.com/frostlabs/pulse/internal/domain/ports"
	"github.com/frostlabs/pulse/internal/protocol"
	"github.com/frostlabs/pulse/internal/registry"
	"github.com/frostlabs/pulse/internal/streamid"
)

// Session tracks one connected client. Protocol messages for a connection
// arrive from a single reader goroutine; Close may race with it and with
// in-flight deliveries, so the joined set is locked.
type Session struct {
	id        string
	userID    string
	transport ports.Transport
	broker    *broker.Broker

	mu     sync.Mutex
	joined map[streamid.ID]*bus.Listener
	closed bool
}

// New creates a session for an authenticated user on the given transport.
func New(id, userID string, transport ports.Transport, b *broker.Broker) *Session {
	return &Session{
		id:        id,
		userID:    userID,
		transport: transport,
		broker:    b,
		joined:    make(map[streamid.ID]*bus.Listener),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// UserID returns the authenticated user id.
func (s *Session) UserID() string {
	return s.userID
}

// HandleMessage processes one raw protocol frame from the client. Errors are
// reported back on this connection only; a malformed request never crashes
// the broker.
func (s *Session) HandleMessage(ctx context.Context, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("session_id", s.id).Any("panic", r).Msg("recovered in protocol handler")
			s.sendError("server error", nil)
		}
	}()

	req, err := protocol.ParseRequest(data)
	if err != nil {
		s.sendError("invalid data", nil)
		return
	}

	switch req.Type {
	case protocol.ActionSubscribe, protocol.ActionUnsubscribe:
		s.handleEventStream(ctx, req)
	default:
		s.sendError("invalid property", map[string]any{"propertyName": "type"})
	}
}

func (s *Session) handleEventStream(ctx context.Context, req *protocol.Request) {
	if !req.ID.Valid() {
		s.sendError("invalid property", map[string]any{"propertyName": "id"})
		return
	}

	switch req.SourceName {
	case "homeTimeline":
		if req.Type == protocol.ActionSubscribe {
			s.subscribeTimeline(ctx, req)
		} else {
			s.unsubscribeTimeline(req)
		}

	case "notification":
		s.sendError("coming soon", nil)

	default:
		s.sendError("invalid property", map[string]any{"propertyName": "sourceName"})
	}
}

// resolveTimeline maps a home request onto its stream id. The candy flag
// redirects the connection to the shared general stream under the home
// channel name; subscribe and unsubscribe resolve identically so the pair
// always addresses the same stream.
func (s *Session) resolveTimeline(req *protocol.Request) (streamid.ID, string, error) {
	if req.HasCandy() {
		return streamid.GeneralTimelineStream, "candy", nil
	}
	id, err := streamid.HomeTimelineStream(s.userID)
	return id, "home", err
}

func (s *Session) subscribeTimeline(ctx context.Context, req *protocol.Request) {
	id, label, err := s.resolveTimeline(req)
	if err != nil {
		log.Error().Err(err).Str("session_id", s.id).Str("user_id", s.userID).Msg("failed to resolve stream id")
		s.sendError("server error", nil)
		return
	}

	eventType, ok := eventTypeFor(id)
	if !ok {
		s.sendError("server error", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if _, joined := s.joined[id]; joined {
		s.sendError(label+" timeline is already subscribed", nil)
		return
	}

	var factory registry.Factory
	if label == "candy" {
		// The general stream is pre-created and persistent; this factory
		// only runs if the process somehow lost it.
		factory = func(ctx context.Context, gb *bus.Bus) error {
			gb.Subscribe(streamid.GeneralTimelineTopic)
			return nil
		}
	} else {
		factory = s.broker.HomeStreamFactory(s.userID)
	}

	transport := s.transport
	listener, err := s.broker.Registry().Subscribe(ctx, id, factory,
		func(topic streamid.ID, payload any) {
			if !transport.IsConnected() {
				return
			}
			transport.Send(protocol.EventStream, events.Push{
				EventType: eventType,
				Resource:  payload,
			})
		})
	if err != nil {
		log.Error().Err(err).Str("session_id", s.id).Str("stream_id", id.String()).Msg("stream creation failed")
		s.sendError("server error", nil)
		return
	}

	s.joined[id] = listener

	log.Debug().Str("session_id", s.id).Str("stream_id", id.String()).Msg("subscribed")
	s.sendAck(req, "subscribed "+label+" timeline")
}

func (s *Session) unsubscribeTimeline(req *protocol.Request) {
	id, label, err := s.resolveTimeline(req)
	if err != nil {
		s.sendError("server error", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	listener, joined := s.joined[id]
	if !joined {
		s.sendError(label+" timeline is not subscribed yet", nil)
		return
	}

	s.broker.Registry().Unsubscribe(id, listener)
	delete(s.joined, id)

	log.Debug().Str("session_id", s.id).Str("stream_id", id.String()).Msg("unsubscribed")
	s.sendAck(req, "unsubscribed "+label+" timeline")
}

// Close unwinds every joined stream exactly once. It never touches the
// transport, so it is safe to call after the connection is gone; once Close
// returns no listener of this session is invoked again. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	joined := s.joined
	s.joined = make(map[streamid.ID]*bus.Listener)
	s.mu.Unlock()

	for id, listener := range joined {
		s.broker.Registry().Unsubscribe(id, listener)
	}

	log.Debug().Str("session_id", s.id).Int("streams", len(joined)).Msg("session closed")
}

// sendAck acknowledges a request under its own action name, echoing the
// request id.
func (s *Session) sendAck(req *protocol.Request, msg string) {
	s.transport.Send(req.Type, protocol.Ack{
		ID:      req.ID,
		Success: true,
		Message: msg,
	})
}

func (s *Session) sendError(msg string, details map[string]any) {
	s.transport.Send(protocol.EventError, protocol.ErrorResponse{
		Error:   msg,
		Details: details,
	})
}

// eventTypeFor derives the push event type from a stream id:
// stream.timeline.chat.<scope>[...] -> timeline.chat.<scope>.
func eventTypeFor(id streamid.ID) (string, bool) {
	if !streamid.IsTimelineStream(id) {
		return "", false
	}
	segs := id.Segments()
	if len(segs) < 4 {
		return "", false
	}
	ev, err := streamid.Build("timeline", "chat", segs[3])
	if err != nil {
		return "", false
	}
	return ev.String(), true
}
