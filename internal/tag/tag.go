// Package tag computes the interpreter/ABI/platform compatibility tag
// embedded in built-distribution filenames and metadata.
package tag

import (
	"fmt"

	"github.com/ShadowJonathan/enscons-soar/internal/pyproject"
)

// Tag is the (interpreter, abi, platform) compatibility triple.
type Tag struct {
	Interpreter string
	ABI         string
	Platform    string
}

// Universal is the tag of a pure project, independent of the build machine.
var Universal = Tag{Interpreter: "py3", ABI: "none", Platform: "any"}

func (t Tag) String() string {
	return t.Interpreter + "-" + t.ABI + "-" + t.Platform
}

// BuildContext carries the building interpreter's identity. Discovery is
// the caller's job; values are passed through without modification.
type BuildContext struct {
	Interpreter string // e.g. "cp312"
	ABI         string // e.g. "cp312"
	Platform    string // e.g. "linux_x86_64"
}

// Resolve computes the tag for a project. A pure project always gets the
// universal tag regardless of the build context. A non-pure project takes
// the context triple, with the metadata platform-tag override winning
// over the detected platform.
func Resolve(meta *pyproject.Metadata, bc BuildContext) (Tag, error) {
	if meta.Pure() {
		return Universal, nil
	}

	t := Tag{Interpreter: bc.Interpreter, ABI: bc.ABI, Platform: bc.Platform}
	if meta.Tool.PlatformTag != "" {
		t.Platform = meta.Tool.PlatformTag
	}

	if t.Interpreter == "" || t.ABI == "" || t.Platform == "" {
		return Tag{}, fmt.Errorf("tag: non-pure project needs interpreter, abi and platform from the build context (got %q)", t.String())
	}
	return t, nil
}
