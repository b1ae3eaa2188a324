// Package item provides catalog identifier entities and parsing.
package item

import (
	"fmt"
	"regexp"
)

// Kind represents the type of a catalog item.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindTrack
	KindAlbum
	KindPlaylist
	KindShow
	KindEpisode
)

// String returns the lowercase kind token.
func (k Kind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindAlbum:
		return "album"
	case KindPlaylist:
		return "playlist"
	case KindShow:
		return "show"
	case KindEpisode:
		return "episode"
	default:
		return "unknown"
	}
}

// KindFromToken maps a kind token to a Kind. The mapping is case-sensitive.
func KindFromToken(token string) Kind {
	switch token {
	case "track":
		return KindTrack
	case "album":
		return KindAlbum
	case "playlist":
		return KindPlaylist
	case "show":
		return KindShow
	case "episode":
		return KindEpisode
	default:
		return KindUnknown
	}
}

// ID identifies a single catalog item.
// Equality is on the decoded (kind, value) pair, not the original input text,
// so the same track reached via different sources compares equal.
type ID struct {
	Kind  Kind
	Value string
}

// URI returns the canonical URI form, e.g. "spotify:track:abc123".
func (id ID) URI() string {
	return fmt.Sprintf("spotify:%s:%s", id.Kind, id.Value)
}

// Collection is a named set of member identifiers resolved from a
// playlist, album or show.
type Collection struct {
	Name    string
	Members []ID
}

// linePattern recognizes a kind token followed by a separator and a base62 id.
// It matches both URI ("spotify:track:X") and URL ("open.spotify.com/track/X")
// shapes anywhere in the line.
var linePattern = regexp.MustCompile(`(playlist|track|album|episode|show)[/:]([a-zA-Z0-9]+)`)

// Parse extracts an ID from a free-text line.
// Lines without a recognized identifier return ok=false and are not an error.
func Parse(line string) (ID, bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return ID{}, false
	}
	return ID{Kind: KindFromToken(m[1]), Value: m[2]}, true
}
