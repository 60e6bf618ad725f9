package repo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/grit-vcs/grit/pkg/object"
)

// ErrInvalidParent reports a commit creation whose parent list names a hash
// that does not resolve to a commit in the store.
var ErrInvalidParent = errors.New("invalid parent commit")

// CommitMeta carries commit metadata. A zero Timestamp means "now".
type CommitMeta struct {
	Author    string
	Timestamp int64
	Message   string
	Signature string
}

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string to be persisted in CommitObj.Signature.
type CommitSigner func(payload []byte) (string, error)

// CommitTree creates a commit object pointing at tree with the given
// parents and metadata, writes it to the store, and returns its hash.
// No ref is moved; callers sequence ref updates themselves.
//
// The tree hash must resolve to a tree, and every parent must resolve to an
// existing commit (ErrInvalidParent otherwise). Duplicate parents are
// rejected.
func (r *Repo) CommitTree(tree object.Hash, parents []object.Hash, meta CommitMeta) (object.Hash, error) {
	return r.CommitTreeWithSigner(tree, parents, meta, nil)
}

// CommitTreeWithSigner creates a commit as CommitTree does, signing it when
// signer is provided.
func (r *Repo) CommitTreeWithSigner(tree object.Hash, parents []object.Hash, meta CommitMeta, signer CommitSigner) (object.Hash, error) {
	if _, err := r.Store.ReadTree(tree); err != nil {
		return "", fmt.Errorf("commit tree: tree %s: %w", tree, err)
	}

	seen := make(map[object.Hash]struct{}, len(parents))
	for _, p := range parents {
		if _, dup := seen[p]; dup {
			return "", fmt.Errorf("commit tree: duplicate parent %s", p)
		}
		seen[p] = struct{}{}
		if _, err := r.Store.ReadCommit(p); err != nil {
			return "", fmt.Errorf("commit tree: parent %s: %w: %v", p, ErrInvalidParent, err)
		}
	}

	if strings.TrimSpace(meta.Author) == "" {
		meta.Author = r.defaultAuthor()
	}
	if meta.Timestamp == 0 {
		meta.Timestamp = time.Now().Unix()
	}

	commitObj := &object.CommitObj{
		TreeHash:  tree,
		Parents:   parents,
		Author:    meta.Author,
		Timestamp: meta.Timestamp,
		Signature: meta.Signature,
		Message:   meta.Message,
	}
	if signer != nil {
		signature, err := signer(object.CommitSigningPayload(commitObj))
		if err != nil {
			return "", fmt.Errorf("commit tree: sign: %w", err)
		}
		commitObj.Signature = signature
	}

	commitHash, err := r.Store.WriteCommit(commitObj)
	if err != nil {
		return "", fmt.Errorf("commit tree: write: %w", err)
	}
	return commitHash, nil
}

// Commit builds a tree from the manifest, creates a commit on top of the
// current HEAD, and advances the current branch (or detached HEAD) with a
// compare-and-swap against the previous tip.
func (r *Repo) Commit(m *Manifest, meta CommitMeta) (object.Hash, error) {
	return r.CommitWithSigner(m, meta, nil)
}

// CommitWithSigner is Commit with an optional commit signer.
func (r *Repo) CommitWithSigner(m *Manifest, meta CommitMeta, signer CommitSigner) (object.Hash, error) {
	treeHash, err := r.BuildTree(m)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	var parents []object.Hash
	parentHash, err := r.ResolveRef("HEAD")
	if err == nil && parentHash != "" {
		parents = append(parents, parentHash)
	}
	// Unresolvable HEAD means the first commit on an unborn branch.

	commitHash, err := r.CommitTreeWithSigner(treeHash, parents, meta, signer)
	if err != nil {
		return "", err
	}

	refName, err := r.refForUpdate("HEAD")
	if err != nil {
		return "", fmt.Errorf("commit: read HEAD: %w", err)
	}
	if err := r.UpdateRefCAS(refName, commitHash, parentHash); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return commitHash, nil
}

// Log walks the commit history starting from the given hash, following
// first-parent links, returning up to limit commits newest first.
func (r *Repo) Log(start object.Hash, limit int) ([]*object.CommitObj, error) {
	var commits []*object.CommitObj
	current := start

	for limit <= 0 || len(commits) < limit {
		c, err := r.Store.ReadCommit(current)
		if err != nil {
			if errors.Is(err, object.ErrNotFound) {
				break
			}
			return nil, fmt.Errorf("log: read commit %s: %w", current, err)
		}
		commits = append(commits, c)

		if len(c.Parents) == 0 {
			break
		}
		current = c.Parents[0]
	}

	return commits, nil
}

// IsAncestor reports whether ancestor is reachable from descendant by
// following parent links. A commit is its own ancestor.
func (r *Repo) IsAncestor(ancestor, descendant object.Hash) (bool, error) {
	if ancestor == "" || descendant == "" {
		return false, nil
	}
	state := r.getGraphState()
	genA, err := state.generation(r, ancestor)
	if err != nil {
		return false, err
	}
	genD, err := state.generation(r, descendant)
	if err != nil {
		return false, err
	}
	return r.isAncestorWithGeneration(state, ancestor, descendant, genA, genD)
}

func (r *Repo) defaultAuthor() string {
	cfg, err := r.ReadConfig()
	if err == nil {
		if who := cfg.AuthorString(); who != "" {
			return who
		}
	}
	return "unknown"
}
