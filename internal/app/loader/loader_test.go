package loader

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okabe3/trackbox/internal/domain/audio"
	"github.com/okabe3/trackbox/internal/domain/item"
)

var testKey = []byte("0123456789abcdef")

// encrypt produces the ciphertext Decrypt will invert. CTR mode is its own
// inverse, so encrypting is just decrypting the plaintext.
func encrypt(t *testing.T, plaintext []byte) []byte {
	t.Helper()
	ciphertext, err := audio.Decrypt(testKey, plaintext)
	require.NoError(t, err)
	return ciphertext
}

type fakeSource struct {
	mu       sync.Mutex
	items    map[string]*audio.Item
	itemErrs map[string]error
	streams  map[string][]byte
	keyErr   error
	fetched  []string
}

func (f *fakeSource) AudioItem(ctx context.Context, id item.ID) (*audio.Item, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, id.Value)
	f.mu.Unlock()
	if err, ok := f.itemErrs[id.Value]; ok {
		return nil, err
	}
	it, ok := f.items[id.Value]
	if !ok {
		return nil, errors.Newf("no such item %s", id.Value)
	}
	return it, nil
}

func (f *fakeSource) OpenFile(ctx context.Context, fileID string, bytesPerSecond int) (io.ReadCloser, error) {
	data, ok := f.streams[fileID]
	if !ok {
		return nil, errors.Newf("no such file %s", fileID)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeSource) DecryptionKey(ctx context.Context, id item.ID, fileID string) ([]byte, error) {
	if f.keyErr != nil {
		return nil, f.keyErr
	}
	return testKey, nil
}

func trackID(v string) item.ID {
	return item.ID{Kind: item.KindTrack, Value: v}
}

func TestLoadSelectsHighestPriorityEncoding(t *testing.T) {
	plaintext := []byte("mp3-audio-bytes")
	src := &fakeSource{
		items: map[string]*audio.Item{
			"T1": {
				ID:   trackID("T1"),
				Name: "Song",
				Files: map[audio.Encoding]string{
					audio.MP396:  "low",
					audio.MP3320: "high",
				},
			},
		},
		streams: map[string][]byte{"high": encrypt(t, plaintext)},
	}

	lt, err := New(src).Load(context.Background(), trackID("T1"))
	require.NoError(t, err)

	assert.Equal(t, audio.MP3320, lt.Encoding)
	assert.Equal(t, plaintext, lt.Audio)
}

func TestLoadStripsOggHeader(t *testing.T) {
	header := bytes.Repeat([]byte{0xee}, 0xa7)
	payload := []byte("OggS-payload")
	src := &fakeSource{
		items: map[string]*audio.Item{
			"T1": {
				ID:    trackID("T1"),
				Name:  "Song",
				Files: map[audio.Encoding]string{audio.OggVorbis320: "F1"},
			},
		},
		streams: map[string][]byte{"F1": encrypt(t, append(header, payload...))},
	}

	lt, err := New(src).Load(context.Background(), trackID("T1"))
	require.NoError(t, err)

	assert.Equal(t, audio.OggVorbis320, lt.Encoding)
	assert.Equal(t, payload, lt.Audio, "injected ogg header must be stripped")
}

func TestLoadUnsupportedFormat(t *testing.T) {
	src := &fakeSource{
		items: map[string]*audio.Item{
			"T1": {
				ID:    trackID("T1"),
				Name:  "Song",
				Files: map[audio.Encoding]string{audio.AAC160: "F1"},
			},
		},
	}

	_, err := New(src).Load(context.Background(), trackID("T1"))
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, KindUnsupportedFormat, lerr.Kind)
}

func TestLoadUnavailableItem(t *testing.T) {
	src := &fakeSource{
		items: map[string]*audio.Item{
			"T1": {ID: trackID("T1"), Name: "Song", Restriction: "region"},
		},
	}

	_, err := New(src).Load(context.Background(), trackID("T1"))
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, KindUnavailable, lerr.Kind)
}

func TestLoadNoFilesNoAlternatives(t *testing.T) {
	src := &fakeSource{
		items: map[string]*audio.Item{
			"T1": {ID: trackID("T1"), Name: "Song"},
		},
	}

	_, err := New(src).Load(context.Background(), trackID("T1"))
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, KindUnavailable, lerr.Kind)
}

func TestLoadUsesAvailableAlternative(t *testing.T) {
	plaintext := []byte("alt-audio")
	src := &fakeSource{
		items: map[string]*audio.Item{
			"T1": {
				ID:           trackID("T1"),
				Name:         "Song",
				Alternatives: []item.ID{trackID("A1"), trackID("A2"), trackID("A3")},
			},
			"A2": {
				ID:    trackID("A2"),
				Name:  "Song (alt)",
				Files: map[audio.Encoding]string{audio.OggVorbis160: "F2"},
			},
			"A3": {ID: trackID("A3"), Name: "Song (alt3)", Restriction: "region"},
		},
		itemErrs: map[string]error{"A1": errors.New("gone")},
		streams:  map[string][]byte{"F2": encrypt(t, append(bytes.Repeat([]byte{0}, 0xa7), plaintext...))},
	}

	lt, err := New(src).Load(context.Background(), trackID("T1"))
	require.NoError(t, err)

	assert.Equal(t, "Song (alt)", lt.Item.Name)
	assert.Equal(t, plaintext, lt.Audio)
}

func TestLoadAllAlternativesUnplayable(t *testing.T) {
	src := &fakeSource{
		items: map[string]*audio.Item{
			"T1": {
				ID:           trackID("T1"),
				Name:         "Song",
				Alternatives: []item.ID{trackID("A1"), trackID("A2")},
			},
			"A2": {ID: trackID("A2"), Name: "alt", Restriction: "region"},
		},
		itemErrs: map[string]error{"A1": errors.New("gone")},
	}

	_, err := New(src).Load(context.Background(), trackID("T1"))
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, KindUnavailable, lerr.Kind)
}

func TestLoadKeyDenied(t *testing.T) {
	src := &fakeSource{
		items: map[string]*audio.Item{
			"T1": {
				ID:    trackID("T1"),
				Name:  "Song",
				Files: map[audio.Encoding]string{audio.OggVorbis320: "F1"},
			},
		},
		streams: map[string][]byte{"F1": []byte("cipher")},
		keyErr:  errors.Wrap(audio.ErrKeyDenied, "HTTP 403"),
	}

	_, err := New(src).Load(context.Background(), trackID("T1"))
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, KindKeyDenied, lerr.Kind)
}

func TestLoadRemoteItemFailure(t *testing.T) {
	src := &fakeSource{
		itemErrs: map[string]error{"T1": errors.New("connection reset")},
	}

	_, err := New(src).Load(context.Background(), trackID("T1"))
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, KindRemote, lerr.Kind)
}
