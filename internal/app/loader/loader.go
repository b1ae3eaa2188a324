// Package loader resolves a single track or episode into decrypted audio
// bytes plus its descriptor.
package loader

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/okabe3/trackbox/internal/domain/audio"
	"github.com/okabe3/trackbox/internal/domain/item"
)

// Source is the remote session boundary the loader downloads through.
type Source interface {
	AudioItem(ctx context.Context, id item.ID) (*audio.Item, error)
	OpenFile(ctx context.Context, fileID string, bytesPerSecond int) (io.ReadCloser, error)
	DecryptionKey(ctx context.Context, id item.ID, fileID string) ([]byte, error)
}

// LoadedTrack is the transient result of one successful load.
type LoadedTrack struct {
	Item     *audio.Item
	Audio    []byte
	Encoding audio.Encoding
}

// Loader loads tracks through a Source.
type Loader struct {
	src Source
}

// New creates a Loader.
func New(src Source) *Loader {
	return &Loader{src: src}
}

// Load fetches, decrypts and returns the audio for id.
// All failures are reported as *Error with a classified Kind.
func (l *Loader) Load(ctx context.Context, id item.ID) (*LoadedTrack, error) {
	it, err := l.src.AudioItem(ctx, id)
	if err != nil {
		return nil, remoteError(id, errors.Wrap(err, "failed to load audio item"))
	}

	it = l.resolveAvailable(ctx, it)
	if it == nil {
		return nil, &Error{Kind: KindUnavailable, Item: id, Err: errors.Newf("<%s> is not available", id.URI())}
	}

	enc, fileID, ok := pickEncoding(it)
	if !ok {
		return nil, &Error{Kind: KindUnsupportedFormat, Item: id, Err: errors.Newf("<%s> is not available in any supported format", it.Name)}
	}

	rate, ok := enc.BytesPerSecond()
	if !ok {
		return nil, &Error{Kind: KindUnsupportedFormat, Item: id, Err: errors.Newf("no stream data rate defined for %s", enc)}
	}

	stream, err := l.src.OpenFile(ctx, fileID, rate)
	if err != nil {
		return nil, remoteError(id, errors.Wrap(err, "failed to open encrypted file"))
	}
	defer stream.Close()

	key, err := l.src.DecryptionKey(ctx, it.ID, fileID)
	if err != nil {
		if errors.Is(err, audio.ErrKeyDenied) {
			return nil, &Error{Kind: KindKeyDenied, Item: id, Err: err}
		}
		return nil, remoteError(id, errors.Wrap(err, "failed to fetch decryption key"))
	}

	ciphertext, err := io.ReadAll(stream)
	if err != nil {
		return nil, remoteError(id, errors.Wrap(err, "failed to read file stream"))
	}

	buf, err := audio.Decrypt(key, ciphertext)
	if err != nil {
		return nil, &Error{Kind: KindIO, Item: id, Err: err}
	}

	// The service injects a malformed metadata packet at the start of every
	// Ogg Vorbis stream. Strip it so players accept the file.
	if enc.IsOggVorbis() {
		buf = audio.TrimOggHeader(buf)
	}

	zlog.Info().Msgf("Loaded <%s> as %s (%d bytes)", it.Name, enc, len(buf))

	return &LoadedTrack{Item: it, Audio: buf, Encoding: enc}, nil
}

// resolveAvailable returns a playable descriptor for the item, probing
// alternatives when the original has none of its own files.
// Returns nil when nothing playable exists.
func (l *Loader) resolveAvailable(ctx context.Context, it *audio.Item) *audio.Item {
	switch {
	case !it.Available():
		zlog.Error().Msgf("Item is unavailable: %s", it.Restriction)
		return nil
	case len(it.Files) > 0:
		return it
	case len(it.Alternatives) > 0:
		return l.firstAvailableAlternative(ctx, it.Alternatives)
	default:
		zlog.Error().Msg("Item should be available, but no alternatives found")
		return nil
	}
}

// firstAvailableAlternative probes all alternatives concurrently and returns
// the first that resolves as available. Losers of the race are abandoned;
// their fetches have no side effects worth suppressing.
func (l *Loader) firstAvailableAlternative(ctx context.Context, alts []item.ID) *audio.Item {
	results := make(chan *audio.Item, len(alts))
	for _, alt := range alts {
		go func(alt item.ID) {
			it, err := l.src.AudioItem(ctx, alt)
			if err != nil || !it.Available() {
				results <- nil
				return
			}
			results <- it
		}(alt)
	}

	for range alts {
		if it := <-results; it != nil {
			return it
		}
	}
	return nil
}

// pickEncoding selects the first encoding of the fixed priority list that
// the item offers a file for.
func pickEncoding(it *audio.Item) (audio.Encoding, string, bool) {
	for _, enc := range audio.DownloadPriority {
		if fileID, ok := it.Files[enc]; ok {
			return enc, fileID, true
		}
	}
	return audio.EncodingUnknown, "", false
}
