package project

import (
	"crypto/sha256"
	"io"
	"os"
)

// Digest is a fixed 256-bit content hash used as the disk cache key.
type Digest [32]byte

// Zero reports whether the digest is the all-zero value.
func (d Digest) Zero() bool {
	var z Digest
	return d == z
}

// HashBytes hashes a byte slice into a Digest.
func HashBytes(b []byte) Digest {
	return sha256.Sum256(b)
}

// HashFile hashes the contents of a file into a Digest.
func HashFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Digest{}, err
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Combine builds an aggregate hash: H( d1 || d2 || ... ).
// Callers must pass parts in a deterministic order.
func Combine(parts ...Digest) Digest {
	h := sha256.New()
	for _, d := range parts {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
