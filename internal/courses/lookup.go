package courses

import "github.com/p-n-ai/pai-study/internal/course"

// Source identifies which tier answered a lookup.
type Source int

const (
	SourceNone Source = iota
	SourceMemory
	SourceDurable
)

func (s Source) String() string {
	switch s {
	case SourceMemory:
		return "memory"
	case SourceDurable:
		return "durable"
	default:
		return "none"
	}
}

// Lookup is the result of Cache.GetByID. DurableErr is set when the store was
// consulted and failed, in which case memory answered instead.
type Lookup struct {
	Course     course.Course
	Source     Source
	DurableErr error
}

// Found reports whether either tier had the course.
func (l Lookup) Found() bool {
	return l.Source != SourceNone
}
