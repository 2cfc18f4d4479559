package access

import (
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/bert42/fileserver/pkg/fserrors"
)

// Options tunes optional resolution behavior.
type Options struct {
	// ConfineSymlinks additionally canonicalizes resolved paths with
	// filepath.EvalSymlinks and rejects any path whose real location lies
	// outside the root's real location. Off by default: the lexical
	// containment check alone does not see through symlinks.
	ConfineSymlinks bool
}

// Engine authorizes origins and resolves virtual paths against the
// directory-root table.
type Engine struct {
	roots     map[string]DirectoryRoot
	order     []string
	realRoots map[string]string
	allow     *Allowlist
	opts      Options
}

// New builds an Engine from the configured roots and allowlist.
//
// Root paths are made absolute and cleaned. Root names must be non-empty,
// unique, and free of '/'. A nil allowlist rejects every origin.
//
// Returns a Config error if the table is malformed.
func New(roots []DirectoryRoot, allow *Allowlist, opts Options) (*Engine, error) {
	e := &Engine{
		roots:     make(map[string]DirectoryRoot, len(roots)),
		order:     make([]string, 0, len(roots)),
		realRoots: make(map[string]string, len(roots)),
		allow:     allow,
		opts:      opts,
	}

	for i, r := range roots {
		if r.Name == "" {
			return nil, fserrors.New(fserrors.Config, "directories[%d]: name is required", i)
		}
		if strings.ContainsAny(r.Name, `/\`) {
			return nil, fserrors.New(fserrors.Config, "directories[%d]: name %q must not contain a path separator", i, r.Name)
		}
		if _, dup := e.roots[r.Name]; dup {
			return nil, fserrors.New(fserrors.Config, "directories[%d]: duplicate directory name %q", i, r.Name)
		}

		abs, err := filepath.Abs(r.Path)
		if err != nil {
			return nil, fserrors.Wrap(fserrors.Config, err, "directories[%d]: invalid path %q", i, r.Path)
		}
		r.Path = filepath.Clean(abs)

		if opts.ConfineSymlinks {
			resolved, err := filepath.EvalSymlinks(r.Path)
			if err != nil {
				return nil, fserrors.Wrap(fserrors.Config, err, "directories[%d]: cannot canonicalize %q", i, r.Path)
			}
			e.realRoots[r.Name] = resolved
		}

		e.roots[r.Name] = r
		e.order = append(e.order, r.Name)
	}

	return e, nil
}

// Directories returns the configured root names in configuration order.
func (e *Engine) Directories() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Root looks up a directory root by name.
func (e *Engine) Root(name string) (DirectoryRoot, bool) {
	r, ok := e.roots[name]
	return r, ok
}

// Allowlist returns the origin allowlist.
func (e *Engine) Allowlist() *Allowlist {
	return e.allow
}

// AuthorizeOrigin checks the remote address of a new connection against the
// allowlist. Called once per connection, before any request is serviced.
func (e *Engine) AuthorizeOrigin(remote net.Addr) error {
	ip := addrIP(remote)
	if ip == nil {
		return fserrors.New(fserrors.PermissionDenied, "cannot determine client address %v", remote)
	}
	if !e.allow.Contains(ip) {
		return fserrors.New(fserrors.PermissionDenied, "connection from %s not allowed", ip)
	}
	return nil
}

func addrIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case nil:
		return nil
	case *net.TCPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	}

	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	return net.ParseIP(host)
}

// ParseVirtualPath splits "<directory>/<relative>" on the first '/'.
//
// Without a '/', the whole string is the directory name and the relative
// path is empty. The relative part is returned unsplit.
func ParseVirtualPath(path string) (directory, relative string, err error) {
	if path == "" {
		return "", "", fserrors.New(fserrors.InvalidArgument, "Path cannot be empty")
	}

	directory, relative, _ = strings.Cut(path, "/")
	return directory, relative, nil
}

// ValidateRelativePath rejects parent-directory segments and root markers.
//
// The check is purely syntactic: ".." is matched as a whole segment under
// both '/' and '\' separators, and a leading '/', '\', platform separator or
// volume name is treated as an attempt to escape the root.
func ValidateRelativePath(relative string) error {
	if relative == "" {
		return nil
	}

	if relative[0] == '/' || relative[0] == '\\' || relative[0] == os.PathSeparator ||
		filepath.VolumeName(relative) != "" {
		return fserrors.New(fserrors.InvalidPath, "Path traversal attempt detected").WithPath(relative)
	}

	for _, seg := range strings.FieldsFunc(relative, isSeparator) {
		if seg == ".." {
			return fserrors.New(fserrors.InvalidPath, "Path traversal attempt detected").WithPath(relative)
		}
	}

	return nil
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\' || r == os.PathSeparator
}

// AuthorizeDirectoryOperation checks that the named root exists and allows op.
//
// Returns the root on success. Unknown roots and writes on read-only roots
// fail with PermissionDenied.
func (e *Engine) AuthorizeDirectoryOperation(directory string, op Operation) (DirectoryRoot, error) {
	root, ok := e.roots[directory]
	if !ok {
		return DirectoryRoot{}, fserrors.New(fserrors.PermissionDenied, "Directory '%s' not found", directory)
	}

	if !root.allows(op) {
		return DirectoryRoot{}, fserrors.New(fserrors.PermissionDenied,
			"Write operation not allowed on read-only directory '%s'", directory)
	}

	return root, nil
}

// Resolve validates relative, authorizes op on directory, and joins the two.
//
// The joined path must still lie lexically under the root's absolute path;
// otherwise resolution fails with PermissionDenied. When ConfineSymlinks is
// enabled the same check is repeated on the canonical location.
func (e *Engine) Resolve(directory, relative string, op Operation) (ResolvedPath, error) {
	if err := ValidateRelativePath(relative); err != nil {
		return ResolvedPath{}, err
	}

	root, err := e.AuthorizeDirectoryOperation(directory, op)
	if err != nil {
		return ResolvedPath{}, err
	}

	joined := filepath.Join(root.Path, filepath.FromSlash(relative))
	if !within(joined, root.Path) {
		return ResolvedPath{}, fserrors.New(fserrors.PermissionDenied, "Path traversal attempt detected").
			WithPath(directory + "/" + relative)
	}

	if e.opts.ConfineSymlinks {
		resolved, err := canonical(joined)
		if err != nil {
			return ResolvedPath{}, fserrors.Wrap(fserrors.Internal, err, "cannot canonicalize path").
				WithPath(directory + "/" + relative)
		}
		if !within(resolved, e.realRoots[directory]) {
			return ResolvedPath{}, fserrors.New(fserrors.PermissionDenied, "Path traversal attempt detected").
				WithPath(directory + "/" + relative)
		}
	}

	return ResolvedPath{Path: joined, Root: root, Relative: relative}, nil
}

// ResolveVirtual parses a virtual path and resolves it for op.
func (e *Engine) ResolveVirtual(virtualPath string, op Operation) (ResolvedPath, error) {
	directory, relative, err := ParseVirtualPath(virtualPath)
	if err != nil {
		return ResolvedPath{}, err
	}
	return e.Resolve(directory, relative, op)
}

// within reports whether path equals root or lies under it.
func within(path, root string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(path, prefix)
}

// canonical resolves symlinks in the longest existing prefix of path and
// re-appends the missing tail, so paths about to be created can be checked.
func canonical(path string) (string, error) {
	tail := ""
	for {
		resolved, err := filepath.EvalSymlinks(path)
		if err == nil {
			return filepath.Join(resolved, tail), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", err
		}
		tail = filepath.Join(filepath.Base(path), tail)
		path = parent
	}
}
