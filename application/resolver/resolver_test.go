package resolver

import (
	"errors"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/reglet-dev/runjs/domain/errors"
)

func TestResolver_Resolve(t *testing.T) {
	r := New()

	tests := []struct {
		name      string
		specifier string
		referrer  string
		want      string
	}{
		{"sibling", "./b.ts", "file:///src/app/main.ts", "file:///src/app/b.ts"},
		{"parent", "../lib/util.js", "file:///src/app/main.ts", "file:///src/lib/util.js"},
		{"dot segments collapse", "./x/../y/./z.ts", "file:///src/main.ts", "file:///src/y/z.ts"},
		{"above root clamps", "../../../../a.js", "file:///src/main.ts", "file:///a.js"},
		{"absolute path", "/opt/mod.ts", "file:///src/main.ts", "file:///opt/mod.ts"},
		{"full locator ignores referrer", "https://example.com/a/../b.js", "file:///src/main.ts", "https://example.com/b.js"},
		{"file locator", "file:///lib/./x.json", "file:///src/main.ts", "file:///lib/x.json"},
		{"directory referrer", "./main.ts", "file:///work/", "file:///work/main.ts"},
		{"remote referrer", "./dep.js", "https://example.com/pkg/mod.js", "https://example.com/pkg/dep.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.specifier, tt.referrer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.True(t, got.IsAbs())
		})
	}
}

func TestResolver_Resolve_ParentMatchesJoinedReferrerDir(t *testing.T) {
	r := New()
	referrer := "file:///home/user/project/src/main.ts"

	for _, specifier := range []string{"./a.ts", "../b/c.ts", "./d/../e/f.js", "../../g.json"} {
		got, err := r.Resolve(specifier, referrer)
		require.NoError(t, err)

		wantDir := path.Dir(path.Join(path.Dir("/home/user/project/src/main.ts"), specifier))
		assert.Equal(t, wantDir, path.Dir(got.Path), specifier)
		for _, seg := range strings.Split(got.Path, "/") {
			assert.NotEqual(t, ".", seg)
			assert.NotEqual(t, "..", seg)
		}
	}
}

func TestResolver_Resolve_Errors(t *testing.T) {
	r := New()

	tests := []struct {
		name      string
		specifier string
		referrer  string
		wantErr   error
		contains  string
	}{
		{"bare specifier", "lodash", "file:///src/main.ts", ErrBareSpecifier, ""},
		{"bare relative without prefix", "b.ts", "file:///src/main.ts", ErrBareSpecifier, ""},
		{"invalid escape", "./a%zz.ts", "file:///src/main.ts", nil, "invalid URL escape"},
		{"relative referrer", "./a.ts", "src/main.ts", ErrRelativeReferrer, ""},
		{"malformed referrer", "./a.ts", "file:///src/%g1.ts", nil, "invalid URL escape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.specifier, tt.referrer)
			require.Error(t, err)
			assert.Nil(t, got)

			var resErr *domainerrors.ResolutionError
			require.True(t, errors.As(err, &resErr))
			assert.Equal(t, tt.specifier, resErr.Specifier)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestResolver_ResolvePath(t *testing.T) {
	r := New()
	cwd := filepath.FromSlash("/work/project")

	t.Run("relative joins cwd", func(t *testing.T) {
		got, err := r.ResolvePath("scripts/../main.ts", cwd)
		require.NoError(t, err)
		assert.Equal(t, "file:///work/project/main.ts", got.String())
	})

	t.Run("absolute ignores cwd", func(t *testing.T) {
		got, err := r.ResolvePath(filepath.FromSlash("/etc/x.js"), cwd)
		require.NoError(t, err)
		assert.Equal(t, "file:///etc/x.js", got.String())
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := r.ResolvePath("", cwd)
		var resErr *domainerrors.ResolutionError
		assert.True(t, errors.As(err, &resErr))
	})

	t.Run("relative cwd", func(t *testing.T) {
		_, err := r.ResolvePath("main.ts", "work")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not absolute")
	})
}

func TestToFilePath(t *testing.T) {
	got, err := ToFilePath(&url.URL{Scheme: "file", Path: "/src/a b.ts"})
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/src/a b.ts"), got)

	u, err := url.Parse("file://localhost/src/x.js")
	require.NoError(t, err)
	got, err = ToFilePath(u)
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/src/x.js"), got)

	_, err = ToFilePath(&url.URL{Scheme: "https", Host: "example.com", Path: "/x.js"})
	assert.ErrorIs(t, err, ErrNotFileURL)

	_, err = ToFilePath(&url.URL{Scheme: "file", Host: "server", Path: "/x.js"})
	assert.ErrorIs(t, err, ErrNotFileURL)

	_, err = ToFilePath(nil)
	assert.ErrorIs(t, err, ErrNotFileURL)
}
