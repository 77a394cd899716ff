package segment

import "fmt"

// MalformedInputError reports a caption line that cannot be segmented, such as
// an unparsable or inconsistent timestamp. It is fatal for the episode's
// segmentation run: the ingestion pipeline decides whether to skip the episode
// or abort. Timestamps are never silently defaulted, since a fabricated zero
// would corrupt entry ordering.
type MalformedInputError struct {
	Ordinal int
	Value   string
	Reason  string
}

func (e *MalformedInputError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("malformed caption line %d: %s (%q)", e.Ordinal, e.Reason, e.Value)
	}
	return fmt.Sprintf("malformed caption line %d: %s", e.Ordinal, e.Reason)
}
