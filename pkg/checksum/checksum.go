package checksum

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Algorithms lists the supported digest algorithms.
var Algorithms = []string{"md5", "sha1", "sha256", "sha512"}

// IsValid reports whether algo is supported. The check is case-insensitive.
func IsValid(algo string) bool {
	_, err := newHash(algo)
	return err == nil
}

func newHash(algo string) (hash.Hash, error) {
	switch strings.ToLower(algo) {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	}
	return nil, fmt.Errorf("unsupported checksum algorithm: %s (must be one of: %s)", algo, strings.Join(Algorithms, ", "))
}

// Reader digests everything read from r and returns it hex-encoded.
func Reader(r io.Reader, algo string) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Bytes is Reader over an in-memory buffer.
func Bytes(data []byte, algo string) (string, error) {
	return Reader(bytes.NewReader(data), algo)
}

// File digests the file at path.
func File(path, algo string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Reader(f, algo)
}
