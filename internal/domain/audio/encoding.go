// Package audio provides audio item entities, encoding selection tables and
// the stream decryption primitive.
package audio

// Encoding identifies an audio encoding offered by the streaming service.
type Encoding uint8

const (
	EncodingUnknown Encoding = iota
	OggVorbis96
	OggVorbis160
	OggVorbis320
	MP396
	MP3160
	MP3160Enc
	MP3256
	MP3320
	AAC24
	AAC48
	AAC160
	AAC320
	MP4128
	Other5
	FLAC
)

var encodingNames = map[Encoding]string{
	OggVorbis96:  "ogg_vorbis_96",
	OggVorbis160: "ogg_vorbis_160",
	OggVorbis320: "ogg_vorbis_320",
	MP396:        "mp3_96",
	MP3160:       "mp3_160",
	MP3160Enc:    "mp3_160_enc",
	MP3256:       "mp3_256",
	MP3320:       "mp3_320",
	AAC24:        "aac_24",
	AAC48:        "aac_48",
	AAC160:       "aac_160",
	AAC320:       "aac_320",
	MP4128:       "mp4_128",
	Other5:       "other5",
	FLAC:         "flac",
}

// String returns the wire name of the encoding.
func (e Encoding) String() string {
	if s, ok := encodingNames[e]; ok {
		return s
	}
	return "unknown"
}

// ParseEncoding maps a wire name back to an Encoding.
func ParseEncoding(s string) Encoding {
	for e, name := range encodingNames {
		if name == s {
			return e
		}
	}
	return EncodingUnknown
}

// IsOggVorbis reports whether the encoding belongs to the Ogg Vorbis family.
func (e Encoding) IsOggVorbis() bool {
	switch e {
	case OggVorbis96, OggVorbis160, OggVorbis320:
		return true
	}
	return false
}

// IsMP3 reports whether the encoding belongs to the MP3 family.
func (e Encoding) IsMP3() bool {
	switch e {
	case MP396, MP3160, MP3160Enc, MP3256, MP3320:
		return true
	}
	return false
}

// Extension returns the container file extension for the encoding family,
// or "" when the family has no known container.
func (e Encoding) Extension() string {
	switch {
	case e.IsOggVorbis():
		return "ogg"
	case e.IsMP3():
		return "mp3"
	case e == FLAC:
		return "flac"
	default:
		return ""
	}
}

// DownloadPriority is the fixed encoding preference order, best first.
var DownloadPriority = []Encoding{
	OggVorbis320,
	MP3320,
	MP3256,
	OggVorbis160,
	MP3160,
	OggVorbis96,
	MP396,
}

// encodingKbps maps each encoding to its expected transfer rate hint.
// The values are deliberately below the nominal bitrate; they size the
// transport's read-ahead buffering, they are not a cap.
var encodingKbps = map[Encoding]int{
	OggVorbis96:  12,
	OggVorbis160: 20,
	OggVorbis320: 40,
	MP3256:       32,
	MP3320:       40,
	MP3160:       20,
	MP396:        12,
	MP3160Enc:    20,
	AAC24:        3,
	AAC48:        6,
	AAC160:       20,
	AAC320:       40,
	MP4128:       16,
	Other5:       40,
	FLAC:         112, // assume 900 kbit/s on average
}

// BytesPerSecond returns the expected stream data rate for the encoding.
// ok is false for EncodingUnknown, which has no defined rate.
func (e Encoding) BytesPerSecond() (int, bool) {
	kbps, ok := encodingKbps[e]
	if !ok {
		return 0, false
	}
	return kbps * 1024, true
}
