package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/archivekit/safeunzip/internal/xerrors"
)

// Jail resolves archive entry paths against a fixed destination root,
// rejecting anything that would land outside it. Unlike a lexical-only
// check against filepath.Clean, Jail resolves the real filesystem
// component by component, so a symlink planted earlier in the same
// extraction (dir -> /etc, then dir/passwd) cannot be used to escape the
// root either.
type Jail struct {
	// root is the destination directory, fully resolved (symlinks
	// followed) once at construction time.
	root string
}

// NewJail resolves dest to its real, symlink-free form and returns a Jail
// rooted there. dest must already exist.
func NewJail(dest string) (*Jail, error) {
	info, err := os.Stat(dest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, xerrors.DestinationNotFound(dest)
		}
		return nil, xerrors.Jail(err)
	}
	if !info.IsDir() {
		return nil, xerrors.Jail(fmt.Errorf("destination %q is not a directory", dest))
	}

	resolved, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return nil, xerrors.Jail(err)
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		return nil, xerrors.Jail(err)
	}

	return &Jail{root: abs}, nil
}

// Root returns the jail's fully resolved destination directory.
func (j *Jail) Root() string {
	return j.root
}

// Resolve maps an archive entry name to an absolute filesystem path
// guaranteed to live under the jail's root, or returns a PathEscape
// error. It walks the entry's directory components one at a time,
// resolving any symlink found along an intermediate component and
// re-checking containment after each step - a directory entry written
// earlier in the same extraction that turns out to be a symlink to
// somewhere outside the root is caught here, not just a literal ".." in
// the name.
//
// The final component is never realpath-resolved, even if it already
// exists as a symlink: it is the thing about to be written, and the
// driver's overwrite policy (replacing a pre-existing symlink outright
// rather than writing through it) depends on getting back its own
// lexical path, not the path of whatever it currently points to.
//
// Resolve does not require the final component to exist yet; every
// component strictly above it must already resolve inside the root,
// though, and if any existing intermediate component turns out not to be
// a directory (a file where a directory was expected), Resolve reports
// that as a path escape too, since the caller's next filesystem operation
// would otherwise fail confusingly or overwrite unrelated data.
func (j *Jail) Resolve(name string) (string, error) {
	slashed := filepath.ToSlash(name)
	if strings.HasPrefix(slashed, "/") {
		return "", xerrors.PathEscape(name, "absolute paths are rejected")
	}

	// Clean relative to nothing, not relative to "/": cleaning against a
	// synthetic root would absorb a leading ".." into the root itself and
	// hide exactly the traversal this function exists to catch. Walking
	// the (still dirty) components against the real root below is what
	// makes a ".." that climbs above root surface as an escape.
	clean := filepath.Clean(slashed)
	if clean == "." || clean == "" {
		return "", xerrors.PathEscape(name, "resolves to the destination root itself")
	}

	components := strings.Split(filepath.ToSlash(clean), "/")
	current := j.root

	for i, component := range components {
		next := filepath.Join(current, component)

		if !isWithin(j.root, next) {
			return "", xerrors.PathEscape(name, fmt.Sprintf("component %q escapes destination root", component))
		}

		if i == len(components)-1 {
			// The final component is returned lexically, never
			// realpath-resolved: if it already exists as a symlink, the
			// caller must see the link's own path so it can replace the
			// link itself, not follow it and operate on its target.
			current = next
			continue
		}

		resolved, err := filepath.EvalSymlinks(next)
		switch {
		case err == nil:
			if !isWithin(j.root, resolved) {
				return "", xerrors.PathEscape(name, fmt.Sprintf("component %q is a symlink that escapes destination root", component))
			}
			info, statErr := os.Stat(resolved)
			if statErr != nil || !info.IsDir() {
				return "", xerrors.PathEscape(name, fmt.Sprintf("component %q is not a directory", component))
			}
			current = resolved
		case errors.Is(err, os.ErrNotExist):
			// Intermediate directory not yet created by this extraction;
			// fine as long as the lexical path stays inside the root.
			current = next
		default:
			return "", xerrors.Jail(err)
		}
	}

	if !isWithin(j.root, current) {
		return "", xerrors.PathEscape(name, "resolves outside destination root")
	}

	return current, nil
}

// isWithin reports whether candidate is root itself or a descendant of
// it, comparing cleaned absolute paths.
func isWithin(root, candidate string) bool {
	root = filepath.Clean(root)
	candidate = filepath.Clean(candidate)

	if candidate == root {
		return true
	}

	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
