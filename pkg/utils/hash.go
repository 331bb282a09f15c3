package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// DefaultBufferSize is the read buffer used when streaming a file into a hash.
const DefaultBufferSize = 64 * KB

// SHA256Digester streams bytes through SHA-256 using a fixed-size buffer, so
// memory use does not grow with the size of the input.
type SHA256Digester struct {
	bufferSize int
}

// NewSHA256Digester creates a digester with the given buffer size in bytes.
// Non-positive sizes fall back to DefaultBufferSize.
func NewSHA256Digester(bufferSize int) *SHA256Digester {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &SHA256Digester{bufferSize: bufferSize}
}

// Digest returns the hex-encoded SHA-256 of everything read from r
func (d *SHA256Digester) Digest(r io.Reader) (string, error) {
	return HashReader(sha256.New(), r, d.bufferSize)
}

// HashReader copies r into h through a buffer of bufferSize bytes and returns
// the hex-encoded sum.
func HashReader(h hash.Hash, r io.Reader, bufferSize int) (string, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	buf := make([]byte, bufferSize)

	// Hide any WriterTo/ReaderFrom so CopyBuffer really uses buf.
	if _, err := io.CopyBuffer(struct{ io.Writer }{h}, struct{ io.Reader }{r}, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
