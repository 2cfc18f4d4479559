package access

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/bert42/fileserver/pkg/fserrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts Options) (*Engine, string, string) {
	t.Helper()

	base := t.TempDir()
	docs := filepath.Join(base, "docs")
	uploads := filepath.Join(base, "uploads")
	require.NoError(t, os.MkdirAll(docs, 0755))
	require.NoError(t, os.MkdirAll(uploads, 0755))

	allow, err := ParseAllowlist([]string{"127.0.0.1", "10.0.0.0/8", "::1"})
	require.NoError(t, err)

	e, err := New([]DirectoryRoot{
		{Name: "docs", Path: docs, Permission: ReadOnly},
		{Name: "uploads", Path: uploads, Permission: ReadWrite},
	}, allow, opts)
	require.NoError(t, err)

	return e, docs, uploads
}

func TestParseVirtualPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		dir, rel string
	}{
		{"DirectoryOnly", "docs", "docs", ""},
		{"TrailingSlash", "docs/", "docs", ""},
		{"Nested", "docs/a/b/c.txt", "docs", "a/b/c.txt"},
		{"SplitsOnFirstSlashOnly", "docs//x", "docs", "/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, rel, err := ParseVirtualPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.dir, dir)
			assert.Equal(t, tt.rel, rel)
		})
	}

	t.Run("Empty", func(t *testing.T) {
		_, _, err := ParseVirtualPath("")
		assert.Equal(t, fserrors.InvalidArgument, fserrors.CodeOf(err))
	})
}

func TestValidateRelativePath(t *testing.T) {
	rejected := []string{
		"..",
		"../etc/passwd",
		"a/../../b",
		"a/..",
		`a\..\b`,
		"/etc/passwd",
		`\windows`,
	}
	for _, p := range rejected {
		t.Run("Rejects "+p, func(t *testing.T) {
			err := ValidateRelativePath(p)
			assert.Equal(t, fserrors.InvalidPath, fserrors.CodeOf(err))
		})
	}

	accepted := []string{"", "a.txt", "a/b/c", "..hidden", "dots..in..name", "./a"}
	for _, p := range accepted {
		t.Run("Accepts "+p, func(t *testing.T) {
			assert.NoError(t, ValidateRelativePath(p))
		})
	}
}

func TestAuthorizeDirectoryOperation(t *testing.T) {
	e, docs, uploads := newTestEngine(t, Options{})

	root, err := e.AuthorizeDirectoryOperation("docs", Read)
	require.NoError(t, err)
	assert.Equal(t, docs, root.Path)

	_, err = e.AuthorizeDirectoryOperation("docs", Write)
	assert.Equal(t, fserrors.PermissionDenied, fserrors.CodeOf(err))
	assert.Contains(t, err.Error(), "read-only directory 'docs'")

	root, err = e.AuthorizeDirectoryOperation("uploads", Write)
	require.NoError(t, err)
	assert.Equal(t, uploads, root.Path)

	_, err = e.AuthorizeDirectoryOperation("uploads", Read)
	assert.NoError(t, err)

	_, err = e.AuthorizeDirectoryOperation("missing", Read)
	assert.Equal(t, fserrors.PermissionDenied, fserrors.CodeOf(err))
	assert.Contains(t, err.Error(), "Directory 'missing' not found")
}

func TestResolve(t *testing.T) {
	e, docs, uploads := newTestEngine(t, Options{})

	t.Run("JoinsUnderRoot", func(t *testing.T) {
		rp, err := e.Resolve("docs", "a/b.txt", Read)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(docs, "a", "b.txt"), rp.Path)
		assert.Equal(t, "docs", rp.Root.Name)
	})

	t.Run("EmptyRelativeIsRoot", func(t *testing.T) {
		rp, err := e.Resolve("uploads", "", Write)
		require.NoError(t, err)
		assert.Equal(t, uploads, rp.Path)
	})

	t.Run("TraversalIsInvalidPathBeforeAuthorization", func(t *testing.T) {
		_, err := e.Resolve("missing", "../x", Read)
		assert.Equal(t, fserrors.InvalidPath, fserrors.CodeOf(err))
	})

	t.Run("WriteOnReadOnly", func(t *testing.T) {
		_, err := e.ResolveVirtual("docs/new.txt", Write)
		assert.Equal(t, fserrors.PermissionDenied, fserrors.CodeOf(err))
	})

	t.Run("ReadOnReadOnly", func(t *testing.T) {
		_, err := e.ResolveVirtual("docs/new.txt", Read)
		assert.NoError(t, err)
	})
}

func TestWithin(t *testing.T) {
	sep := string(os.PathSeparator)
	root := sep + filepath.Join("srv", "docs")

	assert.True(t, within(root, root))
	assert.True(t, within(filepath.Join(root, "a"), root))
	assert.False(t, within(root+"-evil"+sep+"a", root))
	assert.False(t, within(sep+"srv", root))
	assert.True(t, within(sep+"srv", sep))
}

func TestConfineSymlinks(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("x"), 0644))

	t.Run("LexicalCheckDoesNotFollowLinks", func(t *testing.T) {
		e, docs, _ := newTestEngine(t, Options{})
		require.NoError(t, os.Symlink(outside, filepath.Join(docs, "escape")))

		_, err := e.Resolve("docs", "escape/secret", Read)
		assert.NoError(t, err)
	})

	t.Run("RejectsLinkOutsideRoot", func(t *testing.T) {
		e, docs, _ := newTestEngine(t, Options{ConfineSymlinks: true})
		require.NoError(t, os.Symlink(outside, filepath.Join(docs, "escape")))

		_, err := e.Resolve("docs", "escape/secret", Read)
		assert.Equal(t, fserrors.PermissionDenied, fserrors.CodeOf(err))
	})

	t.Run("AllowsMissingTail", func(t *testing.T) {
		e, _, uploads := newTestEngine(t, Options{ConfineSymlinks: true})

		rp, err := e.Resolve("uploads", "new/dir/file.txt", Write)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(uploads, "new", "dir", "file.txt"), rp.Path)
	})
}

func TestNewRejectsMalformedTable(t *testing.T) {
	dir := t.TempDir()

	_, err := New([]DirectoryRoot{{Name: "", Path: dir}}, nil, Options{})
	assert.Equal(t, fserrors.Config, fserrors.CodeOf(err))

	_, err = New([]DirectoryRoot{{Name: "a/b", Path: dir}}, nil, Options{})
	assert.Equal(t, fserrors.Config, fserrors.CodeOf(err))

	_, err = New([]DirectoryRoot{{Name: "a", Path: dir}, {Name: "a", Path: dir}}, nil, Options{})
	assert.Equal(t, fserrors.Config, fserrors.CodeOf(err))
}

func TestDirectoriesKeepsConfigurationOrder(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})
	assert.Equal(t, []string{"docs", "uploads"}, e.Directories())
}

func TestAuthorizeOrigin(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})

	tests := []struct {
		name    string
		addr    net.Addr
		allowed bool
	}{
		{"ExactIPv4", &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 5000}, true},
		{"InsideCIDR", &net.TCPAddr{IP: net.ParseIP("10.20.30.40"), Port: 5000}, true},
		{"MappedIPv4", &net.TCPAddr{IP: net.ParseIP("::ffff:10.1.1.1"), Port: 5000}, true},
		{"ExactIPv6", &net.TCPAddr{IP: net.ParseIP("::1"), Port: 5000}, true},
		{"OutsideCIDR", &net.TCPAddr{IP: net.ParseIP("192.168.1.1"), Port: 5000}, false},
		{"Nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.AuthorizeOrigin(tt.addr)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, fserrors.PermissionDenied, fserrors.CodeOf(err))
			}
		})
	}
}
