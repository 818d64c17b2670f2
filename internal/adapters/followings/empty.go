package followings

import "context"

// EmptyResolver is used when no document store is configured: home timelines
// carry only the user's own postings.
type EmptyResolver struct{}

// FindTargets returns no followings.
func (EmptyResolver) FindTargets(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}
