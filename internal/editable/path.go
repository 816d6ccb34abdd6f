package editable

import (
	"strings"

	"github.com/ShadowJonathan/enscons-soar/internal/archive"
)

// pathMechanism writes the source roots straight into a .pth file. The
// import path is a snapshot taken at call time; packages added to a new
// root afterwards require a reinstall.
type pathMechanism struct{}

func (pathMechanism) Mode() string { return "path" }

func (pathMechanism) Members(plan *Plan) ([]archive.Member, error) {
	var b strings.Builder
	for _, root := range plan.Roots {
		b.WriteString(root)
		b.WriteByte('\n')
	}

	return []archive.Member{
		{Path: "__editable__." + plan.Meta.CanonicalName + ".pth", Data: []byte(b.String())},
	}, nil
}
