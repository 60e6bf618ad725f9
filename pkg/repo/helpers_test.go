package repo

import (
	"testing"

	"github.com/grit-vcs/grit/pkg/object"
)

const testAuthor = "tester <tester@example.com>"

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return r
}

// testManifest writes each file's content as a blob and returns a manifest
// mapping the given paths to those blobs.
func testManifest(t *testing.T, r *Repo, files map[string]string) *Manifest {
	t.Helper()
	m := NewManifest()
	for path, content := range files {
		h, err := r.Store.WriteBlob(&object.Blob{Data: []byte(content)})
		if err != nil {
			t.Fatalf("WriteBlob(%s): %v", path, err)
		}
		if err := m.Add(path, h, object.TreeModeFile); err != nil {
			t.Fatalf("Add(%s): %v", path, err)
		}
	}
	return m
}

// testCommit builds a tree from files and commits it with the given parents,
// without touching any ref.
func testCommit(t *testing.T, r *Repo, files map[string]string, msg string, parents ...object.Hash) object.Hash {
	t.Helper()
	return testCommitAt(t, r, files, msg, 0, parents...)
}

// testCommitAt is testCommit with an explicit timestamp.
func testCommitAt(t *testing.T, r *Repo, files map[string]string, msg string, ts int64, parents ...object.Hash) object.Hash {
	t.Helper()
	tree, err := r.BuildTree(testManifest(t, r, files))
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	h, err := r.CommitTree(tree, parents, CommitMeta{Author: testAuthor, Timestamp: ts, Message: msg})
	if err != nil {
		t.Fatalf("CommitTree(%s): %v", msg, err)
	}
	return h
}

// testCommitOnMain commits files on refs/heads/main, creating the branch on
// the first call, and returns the new tip.
func testCommitOnMain(t *testing.T, r *Repo, files map[string]string, msg string) object.Hash {
	t.Helper()
	h, err := r.Commit(testManifest(t, r, files), CommitMeta{Author: testAuthor, Message: msg})
	if err != nil {
		t.Fatalf("Commit(%s): %v", msg, err)
	}
	return h
}

func setBranch(t *testing.T, r *Repo, name string, h object.Hash) {
	t.Helper()
	if err := r.UpdateRef("refs/heads/"+name, h); err != nil {
		t.Fatalf("UpdateRef(%s): %v", name, err)
	}
}

func branchTip(t *testing.T, r *Repo, name string) object.Hash {
	t.Helper()
	h, err := r.ResolveRef("refs/heads/" + name)
	if err != nil {
		t.Fatalf("ResolveRef(%s): %v", name, err)
	}
	return h
}

// testFile is a manifest entry spec for fixtures that care about modes.
type testFile struct {
	content string
	mode    string
}

// testCommitFiles is testCommitAt with explicit per-path modes.
func testCommitFiles(t *testing.T, r *Repo, files map[string]testFile, msg string, ts int64, parents ...object.Hash) object.Hash {
	t.Helper()
	m := NewManifest()
	for path, f := range files {
		h, err := r.Store.WriteBlob(&object.Blob{Data: []byte(f.content)})
		if err != nil {
			t.Fatalf("WriteBlob(%s): %v", path, err)
		}
		if err := m.Add(path, h, f.mode); err != nil {
			t.Fatalf("Add(%s): %v", path, err)
		}
	}
	tree, err := r.BuildTree(m)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	h, err := r.CommitTree(tree, parents, CommitMeta{Author: testAuthor, Timestamp: ts, Message: msg})
	if err != nil {
		t.Fatalf("CommitTree(%s): %v", msg, err)
	}
	return h
}

// fileMode returns the tree-entry mode of one path in a commit.
func fileMode(t *testing.T, r *Repo, commit object.Hash, path string) (string, bool) {
	t.Helper()
	c, err := r.Store.ReadCommit(commit)
	if err != nil {
		t.Fatalf("ReadCommit(%s): %v", commit, err)
	}
	entries, err := r.FlattenTree(c.TreeHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	for _, e := range entries {
		if e.Path == path {
			return e.Mode, true
		}
	}
	return "", false
}

// fileContent reads one path out of a commit's flattened tree.
func fileContent(t *testing.T, r *Repo, commit object.Hash, path string) (string, bool) {
	t.Helper()
	c, err := r.Store.ReadCommit(commit)
	if err != nil {
		t.Fatalf("ReadCommit(%s): %v", commit, err)
	}
	entries, err := r.FlattenTree(c.TreeHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	for _, e := range entries {
		if e.Path == path {
			b, err := r.Store.ReadBlob(e.BlobHash)
			if err != nil {
				t.Fatalf("ReadBlob(%s): %v", path, err)
			}
			return string(b.Data), true
		}
	}
	return "", false
}
