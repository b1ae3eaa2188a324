package audio

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/cockroachdb/errors"
)

// ErrKeyDenied is reported by session implementations when the service
// refuses to hand out a decryption key. The orchestrator treats it as the
// service's rate-limit penalty signal.
var ErrKeyDenied = errors.New("audio key denied")

// audioIV is the fixed initialization vector all audio files are encrypted
// with. Only the key varies per (track, file) pair.
var audioIV = []byte{
	0x72, 0xe0, 0x67, 0xfb, 0xdd, 0xcb, 0xcf, 0x77,
	0xeb, 0xe8, 0xbc, 0x64, 0x3f, 0x63, 0x0d, 0x93,
}

// Decrypt decrypts a full audio ciphertext with AES-128-CTR.
func Decrypt(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "invalid audio key")
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCTR(block, audioIV).XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

// oggHeaderSize is the length of the non-standard packet the service
// injects at the start of every Ogg Vorbis stream. Players balk at it.
const oggHeaderSize = 0xa7

// TrimOggHeader removes the injected header from a decrypted Ogg Vorbis
// buffer. Buffers shorter than the header are returned unchanged.
func TrimOggHeader(buf []byte) []byte {
	if len(buf) < oggHeaderSize {
		return buf
	}
	return buf[oggHeaderSize:]
}
