package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UnitVectorY-Labs/buildbadges/internal/logging"
)

type entry struct {
	name string
	body string
}

func writeJar(t *testing.T, entries ...entry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.jar")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestRunExtractsMainEntry(t *testing.T) {
	jar := writeJar(t,
		entry{"META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n"},
		entry{"app/main.wasm", "\x00asm\x01"},
	)
	out := filepath.Join(t.TempDir(), "nested", "dir", "main.wasm")

	err := Run(Request{Jar: jar, Main: Target{Out: out, Pattern: `main\.wasm`}}, logging.Discard())
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "\x00asm\x01", string(got))
}

func TestRunMissingMainWritesNothing(t *testing.T) {
	jar := writeJar(t, entry{"app/other.txt", "x"})
	dir := t.TempDir()
	out := filepath.Join(dir, "main.wasm")
	aux := filepath.Join(dir, "aux.txt")

	err := Run(Request{
		Jar:  jar,
		Main: Target{Out: out, Pattern: `main\.wasm`},
		Aux:  []Target{{Out: aux, Pattern: `other\.txt`}},
	}, logging.Discard())
	require.ErrorIs(t, err, ErrNoMatch)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(aux)
	assert.True(t, os.IsNotExist(statErr), "aux must not be written when main fails")
}

func TestRunTouchesMissingAux(t *testing.T) {
	jar := writeJar(t,
		entry{"main.wasm", "wasm"},
		entry{"srcmap/main.wasm.map", "map"},
	)
	dir := t.TempDir()
	mapOut := filepath.Join(dir, "main.wasm.map")
	logOut := filepath.Join(dir, "sub", "build.log")

	err := Run(Request{
		Jar:  jar,
		Main: Target{Out: filepath.Join(dir, "main.wasm"), Pattern: `main\.wasm$`},
		Aux: []Target{
			{Out: mapOut, Pattern: `main\.wasm\.map`},
			{Out: logOut, Pattern: `build\.log`},
		},
	}, logging.Discard())
	require.NoError(t, err)

	got, err := os.ReadFile(mapOut)
	require.NoError(t, err)
	assert.Equal(t, "map", string(got))

	info, err := os.Stat(logOut)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestFindRequiresComponentStart(t *testing.T) {
	jar := writeJar(t,
		entry{"lib/not-main.js", "wrong"},
		entry{"lib/main.js", "right"},
		entry{"other/main.js", "second"},
	)
	a, err := Open(jar)
	require.NoError(t, err)
	defer a.Close()

	f, err := a.Find(`main\.js`)
	require.NoError(t, err)
	assert.Equal(t, "lib/main.js", f.Name)
}

func TestFindFirstMatchWins(t *testing.T) {
	jar := writeJar(t,
		entry{"b/out.txt", "first"},
		entry{"a/out.txt", "second"},
	)
	a, err := Open(jar)
	require.NoError(t, err)
	defer a.Close()

	out := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, a.ExtractTo(`out\.txt`, out))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
}

func TestOpenFailures(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.jar"))
	assert.Error(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.jar")
	require.NoError(t, os.WriteFile(bogus, []byte("not a zip"), 0644))
	_, err = Open(bogus)
	assert.Error(t, err)
}

func TestRunValidatesRequest(t *testing.T) {
	err := Run(Request{Jar: "x.jar", Main: Target{Out: "out"}}, logging.Discard())
	assert.Error(t, err)

	jar := writeJar(t, entry{"main.js", "x"})
	err = Run(Request{Jar: jar, Main: Target{Out: "out", Pattern: `main(`}}, logging.Discard())
	assert.ErrorContains(t, err, "invalid pattern")
}

func TestTargets(t *testing.T) {
	targets, err := Targets([]string{"a", "b"}, []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, []Target{{Out: "a", Pattern: "x"}, {Out: "b", Pattern: "y"}}, targets)

	_, err = Targets([]string{"a"}, nil)
	assert.Error(t, err)
}
