// Package digest computes the SHA-256 digests that anchor all
// integrity checking. Every digest is a lowercase hex string, and
// every digest is computed while bytes stream past, never by
// re-reading a buffer after the fact.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Hasher accumulates a SHA-256 digest as an io.Writer, so it can
// sit on one leg of a TeeReader or MultiWriter while bytes flow to
// storage or to a client.
type Hasher struct {
	sha256Hash hash.Hash
}

func NewHasher() *Hasher {
	return &Hasher{
		sha256Hash: sha256.New(),
	}
}

func (hasher *Hasher) Write(p []byte) (int, error) {
	return hasher.sha256Hash.Write(p)
}

// Sum returns the hex digest of everything written so far.
func (hasher *Hasher) Sum() string {
	return hex.EncodeToString(hasher.sha256Hash.Sum(nil))
}

// HashReader reads r to EOF and returns the hex digest and the
// number of bytes read. This is the re-read path used by manual
// and scheduled verification.
func HashReader(r io.Reader) (string, int64, error) {
	hasher := NewHasher()
	buf := make([]byte, 64*1024)
	byteCount, err := io.CopyBuffer(hasher, r, buf)
	if err != nil {
		return "", byteCount, err
	}
	return hasher.Sum(), byteCount, nil
}
