// Package archive assembles distribution archives: wheels (zip) and
// sdists (tar.gz). Output is deterministic: members are sorted, all
// timestamps are pinned to fixed source epochs, and only the executable
// mode bit survives. Archives become visible at the final path through an
// atomic rename; a failed write leaves nothing behind.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ShadowJonathan/enscons-soar/internal/distinfo"
	"github.com/ShadowJonathan/enscons-soar/internal/graph"
)

// Archive member timestamps are pinned after 1980 to stay friendly to zip.
var (
	sourceEpochTgz = time.Unix(499162800, 0).UTC()
	sourceEpochZip = time.Unix(499162860, 0).UTC()
)

const hashWorkers = 4

// IOError reports an archive read or write failure. Any partially
// written temporary file is removed before the error propagates.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("archive: %s: %v", e.Op, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

// Member is one archive entry, backed by a file on disk or by bytes.
type Member struct {
	Path   string // archive-relative, slash-separated
	Source string // on-disk path; empty when Data backs the member
	Data   []byte
	Mode   fs.FileMode
}

// MembersFromManifest converts a build manifest into archive members,
// reading each source's mode for the executable bit.
func MembersFromManifest(manifest *graph.Manifest) ([]Member, error) {
	members := make([]Member, 0, len(manifest.Entries))
	for _, entry := range manifest.Entries {
		info, err := os.Stat(entry.Source)
		if err != nil {
			return nil, &IOError{Op: "reading " + entry.Source, Err: err}
		}
		members = append(members, Member{
			Path:   entry.Dest,
			Source: entry.Source,
			Mode:   info.Mode(),
		})
	}
	return members, nil
}

// memberMode collapses the mode to 0644, or 0755 when any execute bit is
// set, so archives do not leak host umask details.
func memberMode(mode fs.FileMode) fs.FileMode {
	if mode&0111 != 0 {
		return 0755
	}
	return 0644
}

func (m *Member) open() (io.ReadCloser, error) {
	if m.Source != "" {
		return os.Open(m.Source)
	}
	return io.NopCloser(bytes.NewReader(m.Data)), nil
}

// hashed pairs a member with its digest and size.
type hashed struct {
	index  int
	digest string
	size   int64
	err    error
}

// hashMembers digests every member through a small worker pool. Results
// come back indexed so the caller's sorted order is preserved.
func hashMembers(members []Member, hasher *distinfo.Hasher) ([]distinfo.RecordEntry, error) {
	jobs := make(chan int, len(members))
	results := make(chan hashed, len(members))

	var wg sync.WaitGroup
	workers := hashWorkers
	if len(members) < workers {
		workers = len(members)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				digest, size, err := hashOne(&members[idx], hasher)
				results <- hashed{index: idx, digest: digest, size: size, err: err}
			}
		}()
	}

	for i := range members {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	entries := make([]distinfo.RecordEntry, len(members))
	for result := range results {
		if result.err != nil {
			return nil, &IOError{Op: "hashing " + members[result.index].Path, Err: result.err}
		}
		entries[result.index] = distinfo.RecordEntry{
			Path:   members[result.index].Path,
			Digest: result.digest,
			Size:   result.size,
		}
	}
	return entries, nil
}

func hashOne(m *Member, hasher *distinfo.Hasher) (string, int64, error) {
	r, err := m.open()
	if err != nil {
		return "", 0, err
	}
	defer r.Close()
	return hasher.Sum(r)
}

// writeAtomic writes the archive through a temporary file in the output
// directory and renames it into place only on success. Any partial
// temporary file is removed before the error propagates.
func writeAtomic(outputDir, finalName string, write func(w *os.File) error) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", &IOError{Op: "creating " + outputDir, Err: err}
	}

	tmp, err := os.CreateTemp(outputDir, ".soar-tmp-*")
	if err != nil {
		return "", &IOError{Op: "creating temporary file", Err: err}
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", &IOError{Op: "writing " + finalName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", &IOError{Op: "writing " + finalName, Err: err}
	}

	finalPath := filepath.Join(outputDir, finalName)
	if err := os.Rename(tmpName, finalPath); err != nil {
		os.Remove(tmpName)
		return "", &IOError{Op: "publishing " + finalName, Err: err}
	}
	return finalName, nil
}
