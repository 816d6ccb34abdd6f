// Package pep440 parses, canonicalizes and compares version strings
// following the packaging ecosystem's version grammar.
package pep440

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Version is a parsed version. The zero value is not valid; use Parse.
type Version struct {
	Epoch   int
	Release []int
	Pre     *PreRelease
	Post    *int
	Dev     *int
	Local   string
}

// PreRelease is an alpha/beta/release-candidate segment.
type PreRelease struct {
	Phase  string // "a", "b" or "rc"
	Number int
}

// versionRe accepts the full grammar including the spellings that
// normalization folds away (alpha, beta, c, pre, post, rev, r, v prefix,
// '-'/'_' separators).
var versionRe = regexp.MustCompile(`(?i)^\s*v?` +
	`(?:(\d+)!)?` + // epoch
	`(\d+(?:\.\d+)*)` + // release
	`(?:[-_.]?(a|b|c|rc|alpha|beta|pre|preview)[-_.]?(\d+)?)?` + // pre
	`(?:(?:-(\d+))|(?:[-_.]?(post|rev|r)[-_.]?(\d+)?))?` + // post
	`(?:[-_.]?(dev)[-_.]?(\d+)?)?` + // dev
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?` + // local
	`\s*$`)

// Parse parses a version string. It accepts the alternate spellings the
// grammar allows and stores the normalized form.
func Parse(s string) (*Version, error) {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("invalid version %q", s)
	}

	v := &Version{}

	if m[1] != "" {
		epoch, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: epoch: %w", s, err)
		}
		v.Epoch = epoch
	}

	for _, part := range strings.Split(m[2], ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: release: %w", s, err)
		}
		v.Release = append(v.Release, n)
	}

	if m[3] != "" {
		phase := normalizePhase(strings.ToLower(m[3]))
		number := 0
		if m[4] != "" {
			number, _ = strconv.Atoi(m[4])
		}
		v.Pre = &PreRelease{Phase: phase, Number: number}
	}

	if m[5] != "" {
		// Implicit post release: "1.0-1".
		n, _ := strconv.Atoi(m[5])
		v.Post = &n
	} else if m[6] != "" {
		n := 0
		if m[7] != "" {
			n, _ = strconv.Atoi(m[7])
		}
		v.Post = &n
	}

	if m[8] != "" {
		n := 0
		if m[9] != "" {
			n, _ = strconv.Atoi(m[9])
		}
		v.Dev = &n
	}

	if m[10] != "" {
		// Local separators normalize to '.'.
		local := strings.ToLower(m[10])
		local = strings.ReplaceAll(local, "-", ".")
		local = strings.ReplaceAll(local, "_", ".")
		v.Local = local
	}

	return v, nil
}

func normalizePhase(phase string) string {
	switch phase {
	case "alpha":
		return "a"
	case "beta":
		return "b"
	case "c", "pre", "preview":
		return "rc"
	default:
		return phase
	}
}

// String renders the canonical form.
func (v *Version) String() string {
	var b strings.Builder

	if v.Epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.Epoch)
	}

	parts := make([]string, len(v.Release))
	for i, n := range v.Release {
		parts[i] = strconv.Itoa(n)
	}
	b.WriteString(strings.Join(parts, "."))

	if v.Pre != nil {
		fmt.Fprintf(&b, "%s%d", v.Pre.Phase, v.Pre.Number)
	}
	if v.Post != nil {
		fmt.Fprintf(&b, ".post%d", *v.Post)
	}
	if v.Dev != nil {
		fmt.Fprintf(&b, ".dev%d", *v.Dev)
	}
	if v.Local != "" {
		fmt.Fprintf(&b, "+%s", v.Local)
	}

	return b.String()
}

// IsPreRelease reports whether the version is a pre-release or dev release.
func (v *Version) IsPreRelease() bool {
	return v.Pre != nil || v.Dev != nil
}

// Compare returns -1, 0 or 1 ordering v against other. Ordering follows
// the grammar's rules: dev < pre < final < post within the same release,
// trailing release zeros are insignificant, local segments break ties.
func (v *Version) Compare(other *Version) int {
	if v.Epoch != other.Epoch {
		return cmpInt(v.Epoch, other.Epoch)
	}

	if c := cmpRelease(v.Release, other.Release); c != 0 {
		return c
	}

	if c := cmpInt(v.preKey(), other.preKey()); c != 0 {
		return c
	}
	if v.Pre != nil && other.Pre != nil {
		if c := cmpInt(v.Pre.Number, other.Pre.Number); c != 0 {
			return c
		}
	}

	if c := cmpInt(postKey(v.Post), postKey(other.Post)); c != 0 {
		return c
	}
	if c := cmpInt(devKey(v.Dev), devKey(other.Dev)); c != 0 {
		return c
	}

	return strings.Compare(v.Local, other.Local)
}

// preKey collapses the pre/dev interaction into one rank: a dev release
// without a pre segment sorts before any pre-release of the same version,
// and a version without either sorts after all of them.
func (v *Version) preKey() int {
	if v.Pre == nil {
		if v.Post == nil && v.Dev != nil {
			return 0 // x.y.devN
		}
		return 4 // final
	}
	switch v.Pre.Phase {
	case "a":
		return 1
	case "b":
		return 2
	default: // "rc"
		return 3
	}
}

func postKey(post *int) int {
	if post == nil {
		return -1
	}
	return *post
}

func devKey(dev *int) int {
	if dev == nil {
		return math.MaxInt
	}
	return *dev
}

func cmpRelease(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			return cmpInt(av, bv)
		}
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
