// Package spotify provides the Web API catalog client used to expand
// playlists, albums and shows into member identifiers.
package spotify

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/okabe3/trackbox/internal/domain/item"
)

// pageLimit is the Web API maximum page size.
const pageLimit = 50

// Client is a Spotify Web API catalog client.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// New creates a new catalog client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(spotifyauth.ScopePlaylistReadPrivate),
	)

	// Token with auto-refresh via the refresh token.
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	httpClient := auth.Client(ctx, token)

	return &Client{
		client:     spotify.New(httpClient),
		market:     cfg.Market,
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// marketOpts carries the configured market to every catalog lookup so that
// region-restricted entries resolve against the right catalog.
func (c *Client) marketOpts() []spotify.RequestOption {
	if c.market == "" {
		return nil
	}
	return []spotify.RequestOption{spotify.Market(c.market)}
}

// pageOpts combines paging parameters with the market option.
func (c *Client) pageOpts(offset int) []spotify.RequestOption {
	opts := []spotify.RequestOption{
		spotify.Limit(pageLimit),
		spotify.Offset(offset),
	}
	return append(opts, c.marketOpts()...)
}

// Playlist resolves a playlist into its name and track identifiers.
func (c *Client) Playlist(ctx context.Context, id string) (*item.Collection, error) {
	var pl *spotify.FullPlaylist
	err := c.retry(func() error {
		p, err := c.client.GetPlaylist(ctx, spotify.ID(id), c.marketOpts()...)
		if err != nil {
			return err
		}
		pl = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playlist")
	}

	var members []item.ID
	offset := 0
	for {
		var page *spotify.PlaylistItemPage
		err := c.retry(func() error {
			p, err := c.client.GetPlaylistItems(ctx, spotify.ID(id), c.pageOpts(offset)...)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get playlist items")
		}

		for _, it := range page.Items {
			if it.Track.Track != nil && it.Track.Track.ID != "" {
				members = append(members, item.ID{Kind: item.KindTrack, Value: string(it.Track.Track.ID)})
			}
			if it.Track.Episode != nil && it.Track.Episode.ID != "" {
				members = append(members, item.ID{Kind: item.KindEpisode, Value: string(it.Track.Episode.ID)})
			}
		}

		if len(page.Items) < pageLimit {
			break
		}
		offset += pageLimit
	}

	return &item.Collection{Name: pl.Name, Members: members}, nil
}

// Album resolves an album into its name and track identifiers.
func (c *Client) Album(ctx context.Context, id string) (*item.Collection, error) {
	var al *spotify.FullAlbum
	err := c.retry(func() error {
		a, err := c.client.GetAlbum(ctx, spotify.ID(id), c.marketOpts()...)
		if err != nil {
			return err
		}
		al = a
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get album")
	}

	var members []item.ID
	offset := 0
	for {
		var page *spotify.SimpleTrackPage
		err := c.retry(func() error {
			p, err := c.client.GetAlbumTracks(ctx, spotify.ID(id), c.pageOpts(offset)...)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get album tracks")
		}

		for _, t := range page.Tracks {
			if t.ID != "" {
				members = append(members, item.ID{Kind: item.KindTrack, Value: string(t.ID)})
			}
		}

		if len(page.Tracks) < pageLimit {
			break
		}
		offset += pageLimit
	}

	return &item.Collection{Name: al.Name, Members: members}, nil
}

// Show resolves a show into its name and episode identifiers.
func (c *Client) Show(ctx context.Context, id string) (*item.Collection, error) {
	var sh *spotify.FullShow
	err := c.retry(func() error {
		s, err := c.client.GetShow(ctx, spotify.ID(id), c.marketOpts()...)
		if err != nil {
			return err
		}
		sh = s
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get show")
	}

	var members []item.ID
	offset := 0
	for {
		var page *spotify.SimpleEpisodePage
		err := c.retry(func() error {
			p, err := c.client.GetShowEpisodes(ctx, id, c.pageOpts(offset)...)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get show episodes")
		}

		for _, e := range page.Episodes {
			if e.ID != "" {
				members = append(members, item.ID{Kind: item.KindEpisode, Value: string(e.ID)})
			}
		}

		if len(page.Episodes) < pageLimit {
			break
		}
		offset += pageLimit
	}

	return &item.Collection{Name: sh.Name, Members: members}, nil
}

// retry retries an operation with linear backoff.
func (c *Client) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay * time.Duration(i+1))
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable.
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}
