package ports

import "context"

// Principal is an authenticated (application, user) pair.
type Principal struct {
	ApplicationID string
	UserID        string
}

// Authenticator validates connection credentials before a session is
// attached. Key issuance itself lives outside the broker.
type Authenticator interface {
	VerifyAccess(ctx context.Context, applicationKey, accessKey string) (Principal, error)
}
