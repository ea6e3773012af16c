package relocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateExecute(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{DefaultTemplate, "builds/arcs/branches/master.svg"},
		{"$repo/$branch.svg", "arcs/master.svg"},
		{"cost$$/${repo}", "cost$/arcs"},
		{"static.svg", "static.svg"},
		{"${branch}-${branch}", "master-master"},
	}
	for _, tc := range cases {
		tmpl, err := ParseTemplate(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, tmpl.Execute("arcs", "master"), tc.raw)
	}
}

func TestParseTemplateErrors(t *testing.T) {
	for _, raw := range []string{
		"builds/${owner}.svg",
		"builds/$user.svg",
		"builds/${repo",
		"builds/$",
		"builds/$/x",
	} {
		_, err := ParseTemplate(raw)
		assert.Error(t, err, raw)
	}
}
