// Package pep508 parses dependency requirement specifiers of the form
// "name[extra,...]op version,...; marker" used throughout distribution
// metadata.
package pep508

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ShadowJonathan/enscons-soar/internal/pep440"
)

// Requirement is one parsed requirement specifier.
type Requirement struct {
	Name       string
	Extras     []string
	Specifiers []Specifier
	URL        string
	Marker     string
}

// Specifier is a single version clause, e.g. ">=1.0".
type Specifier struct {
	Op      string
	Version string
}

var (
	nameRe  = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)`)
	extraRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	specRe  = regexp.MustCompile(`^(===|==|!=|~=|<=|>=|<|>)\s*(\S+)$`)
)

// Parse parses a requirement specifier. The marker, when present, is kept
// verbatim after validation of its quoting.
func Parse(s string) (*Requirement, error) {
	input := strings.TrimSpace(s)
	if input == "" {
		return nil, fmt.Errorf("empty requirement")
	}

	req := &Requirement{}

	// Marker comes after an unquoted ';'.
	if idx := indexUnquoted(input, ';'); idx != -1 {
		marker := strings.TrimSpace(input[idx+1:])
		if marker == "" {
			return nil, fmt.Errorf("invalid requirement %q: empty marker", s)
		}
		if !balancedQuotes(marker) {
			return nil, fmt.Errorf("invalid requirement %q: unbalanced quotes in marker", s)
		}
		req.Marker = marker
		input = strings.TrimSpace(input[:idx])
	}

	m := nameRe.FindString(input)
	if m == "" {
		return nil, fmt.Errorf("invalid requirement %q: no name", s)
	}
	req.Name = m
	rest := strings.TrimSpace(input[len(m):])

	// Extras.
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end == -1 {
			return nil, fmt.Errorf("invalid requirement %q: unterminated extras", s)
		}
		for _, extra := range strings.Split(rest[1:end], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				continue
			}
			if !extraRe.MatchString(extra) {
				return nil, fmt.Errorf("invalid requirement %q: bad extra %q", s, extra)
			}
			req.Extras = append(req.Extras, extra)
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	// URL requirement: "name @ url".
	if strings.HasPrefix(rest, "@") {
		url := strings.TrimSpace(rest[1:])
		if url == "" {
			return nil, fmt.Errorf("invalid requirement %q: empty URL", s)
		}
		req.URL = url
		return req, nil
	}

	// Version specifiers, optionally parenthesized.
	if strings.HasPrefix(rest, "(") {
		if !strings.HasSuffix(rest, ")") {
			return nil, fmt.Errorf("invalid requirement %q: unterminated specifier list", s)
		}
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	if rest != "" {
		for _, clause := range strings.Split(rest, ",") {
			spec, err := parseSpecifier(strings.TrimSpace(clause))
			if err != nil {
				return nil, fmt.Errorf("invalid requirement %q: %w", s, err)
			}
			req.Specifiers = append(req.Specifiers, spec)
		}
	}

	return req, nil
}

func parseSpecifier(clause string) (Specifier, error) {
	m := specRe.FindStringSubmatch(clause)
	if m == nil {
		return Specifier{}, fmt.Errorf("bad version clause %q", clause)
	}
	op, version := m[1], m[2]

	switch op {
	case "===":
		// Arbitrary equality: version is an opaque string.
	case "==", "!=":
		if strings.HasSuffix(version, ".*") {
			if _, err := pep440.Parse(strings.TrimSuffix(version, ".*")); err != nil {
				return Specifier{}, fmt.Errorf("bad version clause %q: %w", clause, err)
			}
			break
		}
		fallthrough
	default:
		if _, err := pep440.Parse(version); err != nil {
			return Specifier{}, fmt.Errorf("bad version clause %q: %w", clause, err)
		}
	}

	return Specifier{Op: op, Version: version}, nil
}

// String renders the requirement in its canonical single-line form.
func (r *Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)

	if len(r.Extras) > 0 {
		b.WriteString("[")
		b.WriteString(strings.Join(r.Extras, ","))
		b.WriteString("]")
	}

	if r.URL != "" {
		b.WriteString(" @ ")
		b.WriteString(r.URL)
	} else if len(r.Specifiers) > 0 {
		clauses := make([]string, len(r.Specifiers))
		for i, spec := range r.Specifiers {
			clauses[i] = spec.Op + spec.Version
		}
		b.WriteString(strings.Join(clauses, ","))
	}

	if r.Marker != "" {
		b.WriteString("; ")
		b.WriteString(r.Marker)
	}

	return b.String()
}

// WithExtraMarker returns the canonical rendering with an additional
// `extra == 'name'` marker clause, combining with any existing marker.
func (r *Requirement) WithExtraMarker(extra string) string {
	clause := fmt.Sprintf("extra == '%s'", extra)

	combined := *r
	if r.Marker != "" {
		combined.Marker = fmt.Sprintf("(%s) and %s", r.Marker, clause)
	} else {
		combined.Marker = clause
	}
	return combined.String()
}

// indexUnquoted returns the index of the first occurrence of c outside
// single or double quotes, or -1.
func indexUnquoted(s string, c byte) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		switch {
		case quote != 0:
			if s[i] == quote {
				quote = 0
			}
		case s[i] == '\'' || s[i] == '"':
			quote = s[i]
		case s[i] == c:
			return i
		}
	}
	return -1
}

func balancedQuotes(s string) bool {
	var quote byte
	for i := 0; i < len(s); i++ {
		switch {
		case quote != 0:
			if s[i] == quote {
				quote = 0
			}
		case s[i] == '\'' || s[i] == '"':
			quote = s[i]
		}
	}
	return quote == 0
}
