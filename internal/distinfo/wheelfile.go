package distinfo

import (
	"fmt"
	"strings"

	"github.com/ShadowJonathan/enscons-soar/internal/pyproject"
	"github.com/ShadowJonathan/enscons-soar/internal/tag"
)

// renderWheelFile writes the WHEEL descriptor: generator identity,
// root-is-purelib flag and the compatibility tag.
func renderWheelFile(meta *pyproject.Metadata, t tag.Tag) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Wheel-Version: 1.0\n")
	fmt.Fprintf(&b, "Generator: %s\n", Generator)
	fmt.Fprintf(&b, "Root-Is-Purelib: %t\n", meta.Pure())
	fmt.Fprintf(&b, "Tag: %s\n", t.String())
	return []byte(b.String())
}
