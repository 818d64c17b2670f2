package streamid

// Reserved identifiers for the chat timeline.
var (
	// GeneralTimelineStream is the process-wide persistent stream for the
	// general (global) timeline. It is never disposed.
	GeneralTimelineStream = MustBuild("stream", "timeline", "chat", "general")

	// GeneralTimelineTopic is the local topic backing the general stream.
	GeneralTimelineTopic = MustBuild("event", "timeline", "chat", "general")
)

// Domain-event channels carried over the cross-process medium.
var (
	DomainPostingChat      = MustBuild("redis", "posting", "chat")
	DomainPostingArticle   = MustBuild("redis", "posting", "article")
	DomainPostingReference = MustBuild("redis", "posting", "reference")
	DomainFollowing        = MustBuild("redis", "following")
)

// HomeTimelineStream returns the composite home timeline stream id for a user.
func HomeTimelineStream(userID string) (ID, error) {
	return Build("stream", "timeline", "chat", "home", userID)
}

// UserTimelineTopic returns the per-user posting topic for a user.
func UserTimelineTopic(userID string) (ID, error) {
	return Build("event", "timeline", "chat", "user", userID)
}

// IsPersistent reports whether the stream id is exempt from ref-count
// disposal (the general timeline is kept warm for the process lifetime).
func IsPersistent(id ID) bool {
	return Contains(id, "stream", "timeline", "chat", "general")
}

// IsTimelineStream reports whether the id addresses a chat timeline stream.
func IsTimelineStream(id ID) bool {
	return Contains(id, "stream", "timeline", "chat")
}
