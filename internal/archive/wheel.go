package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/flate"

	"github.com/ShadowJonathan/enscons-soar/internal/ctxlog"
	"github.com/ShadowJonathan/enscons-soar/internal/distinfo"
	"github.com/ShadowJonathan/enscons-soar/internal/pyproject"
	"github.com/ShadowJonathan/enscons-soar/internal/tag"
)

// WheelName returns the artifact filename for the given metadata and tag.
func WheelName(meta *pyproject.Metadata, t tag.Tag) string {
	return meta.NameVer() + "-" + t.String() + ".whl"
}

// WriteWheel assembles a wheel from the payload members and the generated
// dist-info bundle, appends the RECORD manifest, and publishes the archive
// into outputDir. Returns the filename of the written wheel.
//
// Payload members are sorted by path, then dist-info members follow in
// bundle order, RECORD last. Rebuilding from identical inputs produces a
// byte-identical archive.
func WriteWheel(ctx context.Context, meta *pyproject.Metadata, t tag.Tag, payload []Member, bundle *distinfo.Bundle, outputDir string) (string, error) {
	if len(payload) == 0 {
		return "", fmt.Errorf("wheel: no payload members for %s", meta.NameVer())
	}

	members := make([]Member, len(payload))
	copy(members, payload)
	sort.Slice(members, func(i, j int) bool { return members[i].Path < members[j].Path })

	distInfoDir := meta.DistInfoDir()
	for _, f := range bundle.Files {
		members = append(members, Member{Path: distInfoDir + "/" + f.Name, Data: f.Data})
	}

	hasher, err := distinfo.NewHasher(recordAlg(meta))
	if err != nil {
		return "", err
	}
	entries, err := hashMembers(members, hasher)
	if err != nil {
		return "", err
	}

	recordPath := distInfoDir + "/RECORD"
	record, err := distinfo.RenderRecord(entries, recordPath)
	if err != nil {
		return "", err
	}
	members = append(members, Member{Path: recordPath, Data: record})

	name := WheelName(meta, t)
	written, err := writeAtomic(outputDir, name, func(w *os.File) error {
		return writeZip(w, members)
	})
	if err != nil {
		return "", err
	}

	ctxlog.FromContext(ctx).Debug("wheel assembled",
		"filename", written, "members", len(members), "tag", t.String())
	return written, nil
}

func recordAlg(meta *pyproject.Metadata) string {
	if meta.Tool.RecordHash != "" {
		return meta.Tool.RecordHash
	}
	return "sha256"
}

func writeZip(w io.Writer, members []Member) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	for i := range members {
		member := &members[i]
		header := &zip.FileHeader{
			Name:     member.Path,
			Method:   zip.Deflate,
			Modified: sourceEpochZip,
		}
		header.SetMode(memberMode(member.Mode))

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("wheel: %s: %w", member.Path, err)
		}

		r, err := member.open()
		if err != nil {
			return fmt.Errorf("wheel: %s: %w", member.Path, err)
		}
		_, err = io.Copy(entry, r)
		r.Close()
		if err != nil {
			return fmt.Errorf("wheel: %s: %w", member.Path, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("wheel: %w", err)
	}
	return nil
}
