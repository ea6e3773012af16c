package relocator

import (
	"fmt"
	"strings"
)

// DefaultTemplate is used when TEMPLATE_PATH is unset.
const DefaultTemplate = "builds/${repo}/branches/${branch}.svg"

// Template is a destination path with $repo and $branch placeholders.
// Both the braced and bare forms are accepted; $$ is a literal dollar.
type Template struct {
	raw   string
	parts []part
}

type part struct {
	literal string
	field   string
}

// ParseTemplate validates raw. Unknown placeholders are an error.
func ParseTemplate(raw string) (Template, error) {
	t := Template{raw: raw}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.parts = append(t.parts, part{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '$' {
			lit.WriteByte(c)
			continue
		}
		if i+1 >= len(raw) {
			return Template{}, fmt.Errorf("template %q: dangling $", raw)
		}
		var name string
		switch next := raw[i+1]; {
		case next == '$':
			lit.WriteByte('$')
			i++
			continue
		case next == '{':
			end := strings.IndexByte(raw[i+2:], '}')
			if end < 0 {
				return Template{}, fmt.Errorf("template %q: unterminated ${", raw)
			}
			name = raw[i+2 : i+2+end]
			i += 2 + end
		default:
			j := i + 1
			for j < len(raw) && isIdent(raw[j]) {
				j++
			}
			name = raw[i+1 : j]
			i = j - 1
		}
		if name != "repo" && name != "branch" {
			return Template{}, fmt.Errorf("template %q: unknown placeholder %q", raw, name)
		}
		flush()
		t.parts = append(t.parts, part{field: name})
	}
	flush()
	return t, nil
}

// Execute substitutes repo and branch.
func (t Template) Execute(repo, branch string) string {
	var b strings.Builder
	for _, p := range t.parts {
		switch p.field {
		case "repo":
			b.WriteString(repo)
		case "branch":
			b.WriteString(branch)
		default:
			b.WriteString(p.literal)
		}
	}
	return b.String()
}

func (t Template) String() string { return t.raw }

func isIdent(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
