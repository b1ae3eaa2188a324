package pipeline

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/okabe3/trackbox/internal/domain/item"
)

// Catalog looks up collection metadata for playlists, albums and shows.
type Catalog interface {
	Playlist(ctx context.Context, id string) (*item.Collection, error)
	Album(ctx context.Context, id string) (*item.Collection, error)
	Show(ctx context.Context, id string) (*item.Collection, error)
}

// Resolver expands a typed identifier into a destination group key and its
// member identifiers.
type Resolver struct {
	catalog Catalog
}

// NewResolver creates a Resolver.
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve returns the group key and member set for id.
// Tracks and episodes resolve locally; collections need a catalog lookup.
// An unsupported kind is logged and resolves to no members.
func (r *Resolver) Resolve(ctx context.Context, id item.ID) (string, []item.ID, error) {
	switch id.Kind {
	case item.KindTrack:
		return "tracks", []item.ID{id}, nil

	case item.KindEpisode:
		return "episodes", []item.ID{id}, nil

	case item.KindPlaylist:
		col, err := r.catalog.Playlist(ctx, id.Value)
		if err != nil {
			return "", nil, errors.Wrapf(err, "failed to resolve playlist %s", id.Value)
		}
		return "playlists/" + Sanitize(col.Name), col.Members, nil

	case item.KindAlbum:
		col, err := r.catalog.Album(ctx, id.Value)
		if err != nil {
			return "", nil, errors.Wrapf(err, "failed to resolve album %s", id.Value)
		}
		return "albums/" + Sanitize(col.Name), col.Members, nil

	case item.KindShow:
		col, err := r.catalog.Show(ctx, id.Value)
		if err != nil {
			return "", nil, errors.Wrapf(err, "failed to resolve show %s", id.Value)
		}
		return "shows/" + Sanitize(col.Name), col.Members, nil

	default:
		zlog.Warn().Msgf("Unknown/unsupported item kind: %s", id.Kind)
		return "", nil, nil
	}
}

// Sanitize makes a name safe for use as a file or directory name.
// Distinct names that sanitize identically collide; that is accepted.
func Sanitize(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case strings.ContainsRune(`/\?%*:|"<>`, r):
			return -1
		default:
			return r
		}
	}, name)
	return strings.TrimSpace(cleaned)
}
