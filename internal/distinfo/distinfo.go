// Package distinfo generates the metadata files placed inside a built
// distribution's dist-info directory, plus the PKG-INFO sidecar for
// source distributions. Everything is built in memory, fresh per call.
package distinfo

import (
	"fmt"
	"path/filepath"

	"github.com/ShadowJonathan/enscons-soar/internal/pyproject"
	"github.com/ShadowJonathan/enscons-soar/internal/tag"
)

// Generator identifies this backend in the WHEEL descriptor.
const Generator = "enscons-soar (0.1.0)"

// File is one generated member, named relative to the dist-info directory.
type File struct {
	Name string
	Data []byte
}

// Bundle is the full set of generated dist-info members, in the order
// they should be written. RECORD is not part of the bundle; the archive
// assembler appends it last.
type Bundle struct {
	Files []File
}

// New builds the bundle from the metadata model and resolved tag.
// projectDir is read for referenced readme and license files.
func New(meta *pyproject.Metadata, t tag.Tag, projectDir string) (*Bundle, error) {
	bundle := &Bundle{}

	if meta.License.File != "" {
		data, err := readProjectFile(projectDir, meta.License.File)
		if err != nil {
			return nil, err
		}
		name := filepath.Base(meta.License.File)
		bundle.Files = append(bundle.Files, File{Name: "licenses/" + name, Data: data})
	}

	metadata, err := renderMetadata(meta, projectDir)
	if err != nil {
		return nil, err
	}
	bundle.Files = append(bundle.Files, File{Name: "METADATA", Data: metadata})

	bundle.Files = append(bundle.Files, File{Name: "WHEEL", Data: renderWheelFile(meta, t)})

	if entryPoints := renderEntryPoints(meta); entryPoints != nil {
		bundle.Files = append(bundle.Files, File{Name: "entry_points.txt", Data: entryPoints})
	}

	return bundle, nil
}

// PKGInfo renders the sdist metadata sidecar, which carries the same text
// as the wheel's METADATA file.
func PKGInfo(meta *pyproject.Metadata, projectDir string) ([]byte, error) {
	return renderMetadata(meta, projectDir)
}

func readProjectFile(projectDir, name string) ([]byte, error) {
	data, err := readFile(filepath.Join(projectDir, name))
	if err != nil {
		return nil, fmt.Errorf("distinfo: %s: %w", name, err)
	}
	return data, nil
}
