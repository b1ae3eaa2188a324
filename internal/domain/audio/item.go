package audio

import "github.com/okabe3/trackbox/internal/domain/item"

// Item is the remote-resolved descriptor of a playable track or episode.
type Item struct {
	ID           item.ID
	Name         string
	Restriction  string // non-empty when the item cannot be played, holds the reason
	Files        map[Encoding]string
	Alternatives []item.ID
	CoverURLs    []string

	// Track-only fields.
	Artists []string
	Album   string

	// Episode-only field.
	ShowName string
}

// Available reports whether the item can be played at all.
func (it *Item) Available() bool {
	return it.Restriction == ""
}

// Contributors returns the artist names for tracks; episodes have none.
func (it *Item) Contributors() []string {
	return it.Artists
}

// GroupName returns the album name for tracks or the show name for episodes.
func (it *Item) GroupName() string {
	if it.ShowName != "" {
		return it.ShowName
	}
	return it.Album
}

// Cover returns the first cover-art URL, or "" when none exist.
func (it *Item) Cover() string {
	if len(it.CoverURLs) == 0 {
		return ""
	}
	return it.CoverURLs[0]
}
