package repo

import (
	"fmt"
	"sort"

	"github.com/grit-vcs/grit/pkg/object"
)

// MergeOutcome classifies the result of a merge.
type MergeOutcome int

const (
	// MergeAlreadyUpToDate: ours already contains theirs. Nothing written.
	MergeAlreadyUpToDate MergeOutcome = iota
	// MergeFastForward: the ref was advanced to theirs; no commit created.
	MergeFastForward
	// MergeCommitted: a two-parent merge commit was created and the ref moved.
	MergeCommitted
	// MergeConflicted: divergent paths remain; no commit, no ref movement.
	MergeConflicted
)

func (o MergeOutcome) String() string {
	switch o {
	case MergeAlreadyUpToDate:
		return "already-up-to-date"
	case MergeFastForward:
		return "fast-forward"
	case MergeCommitted:
		return "merged"
	case MergeConflicted:
		return "conflict"
	default:
		return fmt.Sprintf("MergeOutcome(%d)", int(o))
	}
}

// Conflict reports one path both sides changed in incompatible ways. The
// three content versions are carried in full so the caller can resolve
// without further store reads; a nil slice means the path is absent on that
// side (add/add and delete/modify cases).
type Conflict struct {
	Path   string
	Mode   string // mode a resolution inherits (ours' side when present)
	Base   []byte
	Ours   []byte
	Theirs []byte

	BaseHash   object.Hash
	OursHash   object.Hash
	TheirsHash object.Hash
}

// MergeResult is the outcome of Merge. On MergeConflicted it doubles as the
// suspended state that CompleteMerge finishes once resolutions are supplied;
// until then no object is referenced by any ref and nothing has moved.
type MergeResult struct {
	Outcome   MergeOutcome
	Commit    object.Hash // merge commit, or theirs on fast-forward, or ours when up to date
	Conflicts []Conflict

	refName    string
	oursHash   object.Hash
	theirsHash object.Hash
	merged     *Manifest
	meta       CommitMeta
}

// Merge merges theirsRev into the branch named by oursRef ("HEAD", a branch
// name, or a full ref).
//
// State machine:
//  1. base = MergeBase(ours, theirs).
//  2. base == theirs: already up to date, nothing to do.
//  3. base == ours: fast-forward the ref to theirs (no commit).
//  4. Otherwise three-way merge of the base/ours/theirs trees by path.
//     Clean: merged tree + commit with parents [ours, theirs] + CAS ref
//     update. Conflicts: returned with all three content versions and
//     nothing written to any ref.
//
// A lost CAS race surfaces as ErrRefCASMismatch; re-run the merge against
// the new tip (optimistic concurrency, no locks held between operations).
func (r *Repo) Merge(oursRef, theirsRev string) (*MergeResult, error) {
	refName, err := r.refForUpdate(oursRef)
	if err != nil {
		return nil, fmt.Errorf("merge: resolve %q: %w", oursRef, err)
	}
	oursHash, err := r.ResolveRef(oursRef)
	if err != nil {
		return nil, fmt.Errorf("merge: resolve %q: %w", oursRef, err)
	}
	theirsHash, err := r.ResolveRevision(theirsRev)
	if err != nil {
		return nil, fmt.Errorf("merge: resolve %q: %w", theirsRev, err)
	}

	baseHash, err := r.MergeBase(oursHash, theirsHash)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	if theirsHash == oursHash || baseHash == theirsHash {
		return &MergeResult{Outcome: MergeAlreadyUpToDate, Commit: oursHash}, nil
	}
	if baseHash == oursHash {
		if err := r.UpdateRefCAS(refName, theirsHash, oursHash); err != nil {
			return nil, fmt.Errorf("merge: fast-forward: %w", err)
		}
		return &MergeResult{Outcome: MergeFastForward, Commit: theirsHash}, nil
	}

	merged, conflicts, err := r.mergeTrees(baseHash, oursHash, theirsHash)
	if err != nil {
		return nil, err
	}

	result := &MergeResult{
		refName:    refName,
		oursHash:   oursHash,
		theirsHash: theirsHash,
		merged:     merged,
		meta: CommitMeta{
			Message: fmt.Sprintf("Merge %s into %s", theirsRev, oursRef),
		},
	}

	if len(conflicts) > 0 {
		result.Outcome = MergeConflicted
		result.Conflicts = conflicts
		return result, nil
	}

	commit, err := r.finishMerge(result)
	if err != nil {
		return nil, err
	}
	result.Outcome = MergeCommitted
	result.Commit = commit
	return result, nil
}

// CompleteMerge finishes a conflicted merge. resolutions maps each
// conflicted path to its resolved content; a nil value resolves the path as
// deleted. Every conflicted path must be resolved; unknown paths are
// rejected. On success the merge commit is created and the ref moved, with
// the same CAS guarantee as a clean merge.
func (r *Repo) CompleteMerge(result *MergeResult, resolutions map[string][]byte) (object.Hash, error) {
	if result == nil || result.Outcome != MergeConflicted {
		return "", fmt.Errorf("complete merge: no conflicted merge to complete")
	}

	conflicted := make(map[string]struct{}, len(result.Conflicts))
	for _, c := range result.Conflicts {
		conflicted[c.Path] = struct{}{}
	}
	for p := range resolutions {
		if _, ok := conflicted[p]; !ok {
			return "", fmt.Errorf("complete merge: path %q is not conflicted", p)
		}
	}

	merged := NewManifest()
	for p, e := range result.merged.Entries {
		merged.Entries[p] = e
	}
	for _, c := range result.Conflicts {
		content, ok := resolutions[c.Path]
		if !ok {
			return "", fmt.Errorf("complete merge: path %q is unresolved", c.Path)
		}
		if content == nil {
			continue // resolved as deleted
		}
		blobHash, err := r.Store.WriteBlob(&object.Blob{Data: content})
		if err != nil {
			return "", fmt.Errorf("complete merge: write blob %q: %w", c.Path, err)
		}
		merged.Entries[c.Path] = ManifestEntry{BlobHash: blobHash, Mode: normalizeFileMode(c.Mode)}
	}

	finished := *result
	finished.merged = merged
	commit, err := r.finishMerge(&finished)
	if err != nil {
		return "", err
	}
	result.Outcome = MergeCommitted
	result.Commit = commit
	result.Conflicts = nil
	return commit, nil
}

// finishMerge builds the merged tree, writes the two-parent commit, and
// compare-and-swaps the ref from the pre-merge tip.
func (r *Repo) finishMerge(result *MergeResult) (object.Hash, error) {
	treeHash, err := r.BuildTree(result.merged)
	if err != nil {
		return "", fmt.Errorf("merge: build tree: %w", err)
	}

	commit, err := r.CommitTree(treeHash, []object.Hash{result.oursHash, result.theirsHash}, result.meta)
	if err != nil {
		return "", fmt.Errorf("merge: commit: %w", err)
	}

	if err := r.UpdateRefCAS(result.refName, commit, result.oursHash); err != nil {
		return "", fmt.Errorf("merge: update ref %q: %w", result.refName, err)
	}
	return commit, nil
}

// mergeTrees performs the per-path three-way classification across the
// base, ours, and theirs trees of the named commits. It returns the merged
// manifest for clean paths and the conflict set for the rest.
func (r *Repo) mergeTrees(baseHash, oursHash, theirsHash object.Hash) (*Manifest, []Conflict, error) {
	baseMap, err := r.commitManifest(baseHash)
	if err != nil {
		return nil, nil, fmt.Errorf("merge: flatten base tree: %w", err)
	}
	oursMap, err := r.commitManifest(oursHash)
	if err != nil {
		return nil, nil, fmt.Errorf("merge: flatten ours tree: %w", err)
	}
	theirsMap, err := r.commitManifest(theirsHash)
	if err != nil {
		return nil, nil, fmt.Errorf("merge: flatten theirs tree: %w", err)
	}

	merged := NewManifest()
	var conflicts []Conflict

	for _, path := range collectAllPaths(baseMap, oursMap, theirsMap) {
		b, inBase := baseMap.Entries[path]
		o, inOurs := oursMap.Entries[path]
		t, inTheirs := theirsMap.Entries[path]

		switch {
		case inOurs && inTheirs:
			if o == t {
				// Identical content and mode on both sides.
				merged.Entries[path] = o
				continue
			}
			if inBase && o == b {
				// Only theirs changed.
				merged.Entries[path] = t
				continue
			}
			if inBase && t == b {
				// Only ours changed.
				merged.Entries[path] = o
				continue
			}
			var baseBlob object.Hash
			if inBase {
				baseBlob = b.BlobHash
			}
			// Mode and content merge independently, so a chmod on one
			// side composes with an edit on the other.
			mode, modeClean := mergeModes(b, inBase, o, t)
			if !modeClean {
				c, err := r.newConflict(path, baseBlob, o.BlobHash, t.BlobHash, o.Mode)
				if err != nil {
					return nil, nil, err
				}
				conflicts = append(conflicts, *c)
				continue
			}
			switch {
			case o.BlobHash == t.BlobHash:
				merged.Entries[path] = ManifestEntry{BlobHash: o.BlobHash, Mode: mode}
			case inBase && o.BlobHash == b.BlobHash:
				merged.Entries[path] = ManifestEntry{BlobHash: t.BlobHash, Mode: mode}
			case inBase && t.BlobHash == b.BlobHash:
				merged.Entries[path] = ManifestEntry{BlobHash: o.BlobHash, Mode: mode}
			default:
				// Divergent edits (or divergent adds when not in base).
				entry, conflict, err := r.mergeDivergent(path, baseBlob, o, t, mode)
				if err != nil {
					return nil, nil, err
				}
				if conflict != nil {
					conflicts = append(conflicts, *conflict)
					continue
				}
				merged.Entries[path] = *entry
			}

		case inBase && inOurs && !inTheirs:
			if o == b {
				continue // deleted by theirs, untouched by ours: drop
			}
			// Delete-vs-modify must conflict (avoid silent data loss).
			c, err := r.newConflict(path, b.BlobHash, o.BlobHash, "", o.Mode)
			if err != nil {
				return nil, nil, err
			}
			conflicts = append(conflicts, *c)

		case inBase && !inOurs && inTheirs:
			if t == b {
				continue // deleted by ours, untouched by theirs: drop
			}
			c, err := r.newConflict(path, b.BlobHash, "", t.BlobHash, t.Mode)
			if err != nil {
				return nil, nil, err
			}
			conflicts = append(conflicts, *c)

		case !inBase && inOurs:
			merged.Entries[path] = o // added by ours only

		case !inBase && inTheirs:
			merged.Entries[path] = t // added by theirs only

			// inBase && !inOurs && !inTheirs: deleted on both sides, drop.
		}
	}

	return merged, conflicts, nil
}

// mergeModes three-way-merges the mode of a path present on both sides:
// agreement wins, a single-side change wins, divergent changes (possible
// only when both sides added the path fresh) do not.
func mergeModes(b ManifestEntry, inBase bool, o, t ManifestEntry) (string, bool) {
	switch {
	case o.Mode == t.Mode:
		return o.Mode, true
	case inBase && o.Mode == b.Mode:
		return t.Mode, true
	case inBase && t.Mode == b.Mode:
		return o.Mode, true
	}
	return "", false
}

// mergeDivergent handles a path whose content changed differently on both
// sides: the configured content merger gets a chance to resolve it,
// otherwise it is a conflict. mode is the already-merged entry mode.
func (r *Repo) mergeDivergent(path string, baseHash object.Hash, o, t ManifestEntry, mode string) (*ManifestEntry, *Conflict, error) {
	if r.ContentMerge != nil {
		var baseData []byte
		if baseHash != "" {
			var err error
			baseData, err = r.readBlobData(baseHash)
			if err != nil {
				return nil, nil, err
			}
		}
		oursData, err := r.readBlobData(o.BlobHash)
		if err != nil {
			return nil, nil, err
		}
		theirsData, err := r.readBlobData(t.BlobHash)
		if err != nil {
			return nil, nil, err
		}

		if mergedData, clean := r.ContentMerge(baseData, oursData, theirsData); clean {
			blobHash, err := r.Store.WriteBlob(&object.Blob{Data: mergedData})
			if err != nil {
				return nil, nil, fmt.Errorf("merge: write merged blob %q: %w", path, err)
			}
			return &ManifestEntry{BlobHash: blobHash, Mode: mode}, nil, nil
		}
	}

	c, err := r.newConflict(path, baseHash, o.BlobHash, t.BlobHash, mode)
	if err != nil {
		return nil, nil, err
	}
	return nil, c, nil
}

// newConflict loads all three content versions for a conflicted path. An
// empty hash on a side means the path is absent there. mode is the entry
// mode a later resolution should inherit.
func (r *Repo) newConflict(path string, base, ours, theirs object.Hash, mode string) (*Conflict, error) {
	c := &Conflict{Path: path, Mode: normalizeFileMode(mode), BaseHash: base, OursHash: ours, TheirsHash: theirs}
	var err error
	if base != "" {
		if c.Base, err = r.readBlobData(base); err != nil {
			return nil, err
		}
	}
	if ours != "" {
		if c.Ours, err = r.readBlobData(ours); err != nil {
			return nil, err
		}
	}
	if theirs != "" {
		if c.Theirs, err = r.readBlobData(theirs); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// commitManifest flattens the tree of a commit into manifest form. An empty
// commit hash (no merge base) yields an empty manifest.
func (r *Repo) commitManifest(h object.Hash) (*Manifest, error) {
	if h == "" {
		return NewManifest(), nil
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		return nil, err
	}
	return r.treeManifest(c.TreeHash)
}

// readBlobData reads a blob from the store and returns its raw data.
func (r *Repo) readBlobData(h object.Hash) ([]byte, error) {
	blob, err := r.Store.ReadBlob(h)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", h, err)
	}
	return blob.Data, nil
}

// collectAllPaths returns a sorted, deduplicated list of all file paths
// across three manifests.
func collectAllPaths(base, ours, theirs *Manifest) []string {
	seen := make(map[string]bool)
	for p := range base.Entries {
		seen[p] = true
	}
	for p := range ours.Entries {
		seen[p] = true
	}
	for p := range theirs.Entries {
		seen[p] = true
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
