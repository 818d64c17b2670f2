package ports

// Transport abstracts one client connection as seen by the broker. The
// websocket server provides the concrete implementation; sessions never touch
// frames directly.
type Transport interface {
	// Send queues an event for delivery to the client. It must be safe to
	// call from any goroutine and must not block on a slow client.
	Send(event string, payload any)

	// IsConnected reports whether the underlying connection is still open.
	IsConnected() bool
}
