package distinfo

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"hash"
	"io"
	"strconv"

	"github.com/zeebo/blake3"
)

// Hasher computes RECORD digests. sha256 is the ecosystem default;
// blake3 is the fast alternative selectable via tool.soar.record-hash.
type Hasher struct {
	alg string
}

// NewHasher creates a Hasher for the named algorithm.
func NewHasher(alg string) (*Hasher, error) {
	switch alg {
	case "sha256", "blake3":
		return &Hasher{alg: alg}, nil
	default:
		return nil, fmt.Errorf("record: unsupported hash algorithm %q", alg)
	}
}

// Algorithm returns the algorithm name used in RECORD entries.
func (h *Hasher) Algorithm() string { return h.alg }

// Sum reads r to the end and returns the "alg=urlsafe-b64" digest string
// and the byte count.
func (h *Hasher) Sum(r io.Reader) (string, int64, error) {
	var hw hash.Hash
	switch h.alg {
	case "blake3":
		hw = blake3.New()
	default:
		hw = sha256.New()
	}

	size, err := io.Copy(hw, r)
	if err != nil {
		return "", 0, err
	}

	digest := base64.RawURLEncoding.EncodeToString(hw.Sum(nil))
	return h.alg + "=" + digest, size, nil
}

// RecordEntry is one member line in the RECORD file.
type RecordEntry struct {
	Path   string
	Digest string // "alg=urlsafe-b64", empty only for RECORD itself
	Size   int64
}

// RenderRecord writes the RECORD CSV. The file's own entry goes last with
// empty hash and size fields.
func RenderRecord(entries []RecordEntry, ownPath string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	for _, entry := range entries {
		record := []string{entry.Path, entry.Digest, strconv.FormatInt(entry.Size, 10)}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("record: %w", err)
		}
	}
	if err := w.Write([]string{ownPath, "", ""}); err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	return buf.Bytes(), nil
}
