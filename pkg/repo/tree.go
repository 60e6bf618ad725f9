package repo

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/grit-vcs/grit/pkg/object"
)

// ManifestEntry describes one file in a flat snapshot.
type ManifestEntry struct {
	BlobHash object.Hash
	Mode     string // git-style mode string; empty means regular file
}

// Manifest is a flat mapping from slash-separated path to blob, the input
// to the tree builder. A working-directory synchronizer (external to this
// package) produces Manifests from disk state.
type Manifest struct {
	Entries map[string]ManifestEntry
}

// NewManifest returns an empty Manifest.
func NewManifest() *Manifest {
	return &Manifest{Entries: make(map[string]ManifestEntry)}
}

// Add records a path→blob binding. Paths are cleaned to slash form, and
// every segment must be a storable tree entry name (spaces are fine;
// newline and NUL are not representable and are rejected here rather than
// at read time).
func (m *Manifest) Add(p string, blob object.Hash, mode string) error {
	p = path.Clean(strings.TrimSpace(p))
	if p == "." || p == "" || strings.HasPrefix(p, "/") || p == ".." || strings.HasPrefix(p, "../") {
		return fmt.Errorf("manifest: invalid path %q", p)
	}
	for _, segment := range strings.Split(p, "/") {
		if err := object.ValidTreeEntryName(segment); err != nil {
			return fmt.Errorf("manifest: invalid path %q: %w", p, err)
		}
	}
	m.Entries[p] = ManifestEntry{BlobHash: blob, Mode: normalizeFileMode(mode)}
	return nil
}

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path     string
	BlobHash object.Hash
	Mode     string
}

// BuildTree converts a flat manifest into a hierarchical tree structure,
// writing TreeObj objects to the store and returning the root hash.
//
// The same manifest yields the same root hash in any map iteration order:
// entries within each tree are sorted by name before hashing, which is the
// canonicalization the whole content-addressing scheme rests on.
func (r *Repo) BuildTree(m *Manifest) (object.Hash, error) {
	return r.buildTreeDir(m, "")
}

// buildTreeDir builds a TreeObj for the given directory prefix and writes it
// to the store. It returns the tree's hash.
func (r *Repo) buildTreeDir(m *Manifest, prefix string) (object.Hash, error) {
	// Collect direct children: files and subdirectory names.
	files := make(map[string]ManifestEntry)
	subdirs := make(map[string]struct{})

	for p, entry := range m.Entries {
		var rel string
		if prefix == "" {
			rel = p
		} else {
			if !strings.HasPrefix(p, prefix+"/") {
				continue
			}
			rel = p[len(prefix)+1:]
		}

		slash := strings.IndexByte(rel, '/')
		if slash < 0 {
			files[rel] = entry
		} else {
			subdirs[rel[:slash]] = struct{}{}
		}
	}

	names := make([]string, 0, len(files)+len(subdirs))
	for name := range files {
		names = append(names, name)
	}
	for name := range subdirs {
		// A name cannot be both a file and a directory.
		if _, isFile := files[name]; isFile {
			return "", fmt.Errorf("build tree: %q is both a file and a directory under %q", name, prefix)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var entries []object.TreeEntry
	for _, name := range names {
		if entry, isFile := files[name]; isFile {
			entries = append(entries, object.TreeEntry{
				Name:     name,
				IsDir:    false,
				Mode:     entry.Mode,
				BlobHash: entry.BlobHash,
			})
		} else {
			childPrefix := name
			if prefix != "" {
				childPrefix = prefix + "/" + name
			}
			subHash, err := r.buildTreeDir(m, childPrefix)
			if err != nil {
				return "", fmt.Errorf("build tree %q: %w", childPrefix, err)
			}
			entries = append(entries, object.TreeEntry{
				Name:        name,
				IsDir:       true,
				Mode:        object.TreeModeDir,
				SubtreeHash: subHash,
			})
		}
	}

	treeObj := &object.TreeObj{Entries: entries}
	h, err := r.Store.WriteTree(treeObj)
	if err != nil {
		return "", fmt.Errorf("write tree (prefix=%q): %w", prefix, err)
	}
	return h, nil
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full paths (using forward slashes).
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeRec(h, "")
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	treeObj, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range treeObj.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = path.Join(prefix, entry.Name)
		}

		if entry.IsDir {
			sub, err := r.flattenTreeRec(entry.SubtreeHash, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		} else {
			result = append(result, TreeFileEntry{
				Path:     fullPath,
				BlobHash: entry.BlobHash,
				Mode:     normalizeFileMode(entry.Mode),
			})
		}
	}
	return result, nil
}

// treeManifest flattens a tree into Manifest form. An empty hash yields an
// empty manifest (root commits have no parent tree).
func (r *Repo) treeManifest(h object.Hash) (*Manifest, error) {
	m := NewManifest()
	if h == "" {
		return m, nil
	}
	files, err := r.FlattenTree(h)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		m.Entries[f.Path] = ManifestEntry{BlobHash: f.BlobHash, Mode: f.Mode}
	}
	return m, nil
}

func normalizeFileMode(mode string) string {
	switch strings.TrimSpace(mode) {
	case object.TreeModeExecutable:
		return object.TreeModeExecutable
	default:
		return object.TreeModeFile
	}
}
