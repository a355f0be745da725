package singleton

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

var wantComment = regexp.MustCompile(`// want "([^"]+)"`)

// wantedErrors maps line numbers of path to the error text expected there.
func wantedErrors(t *testing.T, path string) map[int]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	wants := make(map[int]string)
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		if m := wantComment.FindStringSubmatch(sc.Text()); m != nil {
			wants[line] = m[1]
		}
	}
	require.NoError(t, sc.Err())
	return wants
}

// errorLine splits a "file:line:col" position.
func errorLine(pos string) (string, int, bool) {
	parts := strings.Split(pos, ":")
	if len(parts) < 3 {
		return "", 0, false
	}
	line, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return "", 0, false
	}
	return strings.Join(parts[:len(parts)-2], ":"), line, true
}

func TestDuplicationDoesNotCompile(t *testing.T) {
	if testing.Short() {
		t.Skip("type-checks a package through the go command")
	}

	dir, err := filepath.Abs(filepath.Join("testdata", "duplicate"))
	require.NoError(t, err)
	wants := wantedErrors(t, filepath.Join(dir, "duplicate.go"))
	require.NotEmpty(t, wants)

	pkgs, err := packages.Load(&packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax | packages.NeedTypes,
		Dir:  ".",
	}, "./testdata/duplicate")
	require.NoError(t, err)
	require.Len(t, pkgs, 1)

	got := make(map[int][]string)
	for _, e := range pkgs[0].Errors {
		file, line, ok := errorLine(e.Pos)
		require.True(t, ok, "error without position: %v", e)
		assert.Equal(t, "duplicate.go", filepath.Base(file))
		got[line] = append(got[line], e.Msg)
	}

	for line, want := range wants {
		msgs, ok := got[line]
		if !assert.True(t, ok, "line %d compiled, want %q", line, want) {
			continue
		}
		assert.Contains(t, strings.Join(msgs, "\n"), want, "line %d", line)
	}
	for line, msgs := range got {
		_, ok := wants[line]
		assert.True(t, ok, "unexpected error on line %d: %v", line, msgs)
	}
}
