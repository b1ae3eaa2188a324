package loader

import (
	"fmt"

	"github.com/okabe3/trackbox/internal/domain/item"
)

// Kind classifies a load failure. The set is closed; the orchestrator's
// retry decision switches on it directly.
type Kind uint8

const (
	// KindRemote is a transient network or session failure.
	KindRemote Kind = iota
	// KindKeyDenied is the service's rate-limit penalty signal on the key
	// endpoint. The only retryable kind.
	KindKeyDenied
	// KindUnavailable means the item and all its alternatives are unplayable.
	KindUnavailable
	// KindUnsupportedFormat means no acceptable encoding was offered.
	KindUnsupportedFormat
	// KindIO is a local read, decrypt or filesystem failure.
	KindIO
)

// String returns a short name for the failure kind.
func (k Kind) String() string {
	switch k {
	case KindRemote:
		return "remote"
	case KindKeyDenied:
		return "key_denied"
	case KindUnavailable:
		return "unavailable"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is a classified load failure for one item.
type Error struct {
	Kind Kind
	Item item.ID
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Item.URI(), e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func remoteError(id item.ID, err error) *Error {
	return &Error{Kind: KindRemote, Item: id, Err: err}
}
