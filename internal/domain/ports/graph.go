package ports

import "context"

// FollowingResolver resolves the social graph for timeline composition.
// Read-only; resolution happens once per stream creation.
type FollowingResolver interface {
	// FindTargets returns the ids of users that userID follows, most recent
	// first.
	FindTargets(ctx context.Context, userID string) ([]string, error)
}
