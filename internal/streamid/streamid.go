// Package streamid implements the dotted identifier scheme used to address
// topics, streams and domain events (e.g. "stream.timeline.chat.home.<userId>").
package streamid

import (
	"fmt"
	"strings"
)

// Separator joins identifier segments.
const Separator = "."

// ID is a hierarchical dotted identifier. Segments are opaque strings;
// containment is a prefix match on the segment sequence.
type ID string

// ErrInvalidSegment is returned by Build for empty segments or segments
// containing the separator.
var ErrInvalidSegment = fmt.Errorf("streamid: invalid segment")

// Build joins segments into an ID.
func Build(segments ...string) (ID, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: no segments", ErrInvalidSegment)
	}
	for _, seg := range segments {
		if seg == "" || strings.Contains(seg, Separator) {
			return "", fmt.Errorf("%w: %q", ErrInvalidSegment, seg)
		}
	}
	return ID(strings.Join(segments, Separator)), nil
}

// MustBuild is Build for identifiers known to be valid at compile time.
func MustBuild(segments ...string) ID {
	id, err := Build(segments...)
	if err != nil {
		panic(err)
	}
	return id
}

// Segments splits the ID back into its ordered segments.
func (id ID) Segments() []string {
	return strings.Split(string(id), Separator)
}

// String returns the raw identifier.
func (id ID) String() string {
	return string(id)
}

// Contains reports whether id starts with the given segments, element-wise.
func Contains(id ID, prefix ...string) bool {
	segs := id.Segments()
	if len(prefix) > len(segs) {
		return false
	}
	for i, p := range prefix {
		if segs[i] != p {
			return false
		}
	}
	return true
}
