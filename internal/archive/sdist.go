package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"

	"github.com/ShadowJonathan/enscons-soar/internal/ctxlog"
	"github.com/ShadowJonathan/enscons-soar/internal/pyproject"
)

// SdistName returns the artifact filename for a source distribution.
func SdistName(meta *pyproject.Metadata) string {
	return meta.NameVer() + ".tar.gz"
}

// WriteSdist assembles a source distribution from the payload members,
// adding the project manifest and the PKG-INFO sidecar, and publishes the
// archive into outputDir. Every member sits under a single
// "<name>-<version>/" top-level directory. Returns the written filename.
func WriteSdist(ctx context.Context, meta *pyproject.Metadata, projectDir string, payload []Member, pkgInfo []byte, outputDir string) (string, error) {
	seen := make(map[string]bool, len(payload)+2)
	members := make([]Member, 0, len(payload)+2)
	for _, member := range payload {
		if seen[member.Path] {
			continue
		}
		seen[member.Path] = true
		members = append(members, member)
	}
	if !seen[pyproject.ManifestName] {
		members = append(members, Member{
			Path:   pyproject.ManifestName,
			Source: filepath.Join(projectDir, pyproject.ManifestName),
		})
	}
	if !seen["PKG-INFO"] {
		members = append(members, Member{Path: "PKG-INFO", Data: pkgInfo})
	}

	sort.Slice(members, func(i, j int) bool { return members[i].Path < members[j].Path })

	name := SdistName(meta)
	prefix := meta.NameVer()
	written, err := writeAtomic(outputDir, name, func(w *os.File) error {
		return writeTarGz(w, prefix, members)
	})
	if err != nil {
		return "", err
	}

	ctxlog.FromContext(ctx).Debug("sdist assembled",
		"filename", written, "members", len(members))
	return written, nil
}

func writeTarGz(w io.Writer, prefix string, members []Member) error {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("sdist: %w", err)
	}
	tw := tar.NewWriter(gz)

	for i := range members {
		member := &members[i]

		size := int64(len(member.Data))
		if member.Source != "" {
			info, err := os.Stat(member.Source)
			if err != nil {
				return fmt.Errorf("sdist: %s: %w", member.Path, err)
			}
			size = info.Size()
		}

		header := &tar.Header{
			Name:     prefix + "/" + member.Path,
			Typeflag: tar.TypeReg,
			Mode:     int64(memberMode(member.Mode)),
			Size:     size,
			ModTime:  sourceEpochTgz,
			Uid:      0,
			Gid:      0,
			Format:   tar.FormatUSTAR,
		}
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("sdist: %s: %w", member.Path, err)
		}

		r, err := member.open()
		if err != nil {
			return fmt.Errorf("sdist: %s: %w", member.Path, err)
		}
		_, err = io.Copy(tw, r)
		r.Close()
		if err != nil {
			return fmt.Errorf("sdist: %s: %w", member.Path, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("sdist: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("sdist: %w", err)
	}
	return nil
}
