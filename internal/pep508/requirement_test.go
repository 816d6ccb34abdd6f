package pep508

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Requirement
	}{
		{
			name: "bare name",
			in:   "requests",
			want: Requirement{Name: "requests"},
		},
		{
			name: "single specifier",
			in:   "requests>=2.8.1",
			want: Requirement{Name: "requests", Specifiers: []Specifier{{Op: ">=", Version: "2.8.1"}}},
		},
		{
			name: "spaced specifiers",
			in:   "requests >= 2.8.1, != 2.9.0",
			want: Requirement{Name: "requests", Specifiers: []Specifier{
				{Op: ">=", Version: "2.8.1"},
				{Op: "!=", Version: "2.9.0"},
			}},
		},
		{
			name: "parenthesized",
			in:   "requests (>=2.8.1)",
			want: Requirement{Name: "requests", Specifiers: []Specifier{{Op: ">=", Version: "2.8.1"}}},
		},
		{
			name: "extras",
			in:   "requests[security,socks]>=2.8.1",
			want: Requirement{
				Name:       "requests",
				Extras:     []string{"security", "socks"},
				Specifiers: []Specifier{{Op: ">=", Version: "2.8.1"}},
			},
		},
		{
			name: "marker",
			in:   `tomli>=1.1.0; python_version < "3.11"`,
			want: Requirement{
				Name:       "tomli",
				Specifiers: []Specifier{{Op: ">=", Version: "1.1.0"}},
				Marker:     `python_version < "3.11"`,
			},
		},
		{
			name: "marker with quoted semicolon",
			in:   `thing; extra == 'a;b'`,
			want: Requirement{Name: "thing", Marker: `extra == 'a;b'`},
		},
		{
			name: "url requirement",
			in:   "pkg @ https://example.com/pkg-1.0.tar.gz",
			want: Requirement{Name: "pkg", URL: "https://example.com/pkg-1.0.tar.gz"},
		},
		{
			name: "wildcard equality",
			in:   "pkg==1.4.*",
			want: Requirement{Name: "pkg", Specifiers: []Specifier{{Op: "==", Version: "1.4.*"}}},
		},
		{
			name: "arbitrary equality",
			in:   "pkg===weird-version",
			want: Requirement{Name: "pkg", Specifiers: []Specifier{{Op: "===", Version: "weird-version"}}},
		},
		{
			name: "compatible release",
			in:   "pkg~=1.4.2",
			want: Requirement{Name: "pkg", Specifiers: []Specifier{{Op: "~=", Version: "1.4.2"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.in, err)
			}
			if !reflect.DeepEqual(*got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, *got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"-bad-name",
		"pkg >= not.a.version",
		"pkg ~= 1.0.*",
		"pkg[unterminated",
		"pkg;",
		"pkg @ ",
		"pkg; extra == 'unbalanced",
	} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", in)
		}
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"requests", "requests"},
		{"requests >= 2.8.1 , != 2.9.0", "requests>=2.8.1,!=2.9.0"},
		{"requests[security] (>=2.8.1)", "requests[security]>=2.8.1"},
		{`tomli >= 1.1.0 ; python_version < "3.11"`, `tomli>=1.1.0; python_version < "3.11"`},
		{"pkg @ https://example.com/p.tar.gz", "pkg @ https://example.com/p.tar.gz"},
	}

	for _, tt := range tests {
		req, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", tt.in, err)
		}
		if got := req.String(); got != tt.want {
			t.Errorf("Parse(%q).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWithExtraMarker(t *testing.T) {
	plain, _ := Parse("requests>=2.8.1")
	if got, want := plain.WithExtraMarker("secure"), "requests>=2.8.1; extra == 'secure'"; got != want {
		t.Errorf("WithExtraMarker = %q, want %q", got, want)
	}

	marked, _ := Parse(`tomli; python_version < "3.11"`)
	want := `tomli; (python_version < "3.11") and extra == 'secure'`
	if got := marked.WithExtraMarker("secure"); got != want {
		t.Errorf("WithExtraMarker = %q, want %q", got, want)
	}
}
