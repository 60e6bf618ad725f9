package repo

import (
	"fmt"

	"github.com/grit-vcs/grit/pkg/object"
)

// RebaseOutcome classifies the result of a rebase.
type RebaseOutcome int

const (
	// RebaseUpToDate: the branch is already based on onto. Nothing written.
	RebaseUpToDate RebaseOutcome = iota
	// RebaseFastForward: the branch tip was an ancestor of onto; the ref
	// advanced to onto without rewriting anything.
	RebaseFastForward
	// RebaseCompleted: the whole sequence replayed; the ref was swapped to
	// the new tip in a single compare-and-swap.
	RebaseCompleted
	// RebaseHalted: a replay step conflicted. The branch ref is untouched;
	// resume with ContinueRebase or drop the state to abandon.
	RebaseHalted
)

func (o RebaseOutcome) String() string {
	switch o {
	case RebaseUpToDate:
		return "up-to-date"
	case RebaseFastForward:
		return "fast-forward"
	case RebaseCompleted:
		return "completed"
	case RebaseHalted:
		return "halted"
	default:
		return fmt.Sprintf("RebaseOutcome(%d)", int(o))
	}
}

// RebaseState is the suspended state of a halted rebase. The rewritten
// prefix lives only in the object store; no ref points at it, so abandoning
// a rebase is simply dropping this value.
type RebaseState struct {
	Branch      string      // full ref name being rebased
	OriginalTip object.Hash // tip before the rebase; the ref still points here
	Onto        object.Hash
	Head        object.Hash // last successfully replayed commit
	Remaining   []object.Hash // oldest first; Remaining[0] is the conflicted commit
	Conflicts   []Conflict

	merged *Manifest  // clean paths of the conflicted step
	meta   CommitMeta // metadata of the conflicted commit
}

// RebaseResult is the outcome of Rebase or ContinueRebase.
type RebaseResult struct {
	Outcome RebaseOutcome
	NewTip  object.Hash
	State   *RebaseState // set when Outcome == RebaseHalted
}

// Rebase replays the commits unique to branch since MergeBase(branch, onto)
// onto ontoRev, oldest first. Each replayed commit keeps its author,
// timestamp, and message but gains a new parent and therefore a new hash.
//
// The branch ref is not touched until the entire sequence has replayed;
// completion swaps it from the original tip to the new tip in exactly one
// compare-and-swap. A conflict halts the replay and returns RebaseHalted
// with the suspended state; the original branch remains fully intact.
func (r *Repo) Rebase(branch, ontoRev string) (*RebaseResult, error) {
	refName, err := r.refForUpdate(branch)
	if err != nil {
		return nil, fmt.Errorf("rebase: resolve %q: %w", branch, err)
	}
	tip, err := r.ResolveRef(branch)
	if err != nil {
		return nil, fmt.Errorf("rebase: resolve %q: %w", branch, err)
	}
	onto, err := r.ResolveRevision(ontoRev)
	if err != nil {
		return nil, fmt.Errorf("rebase: resolve %q: %w", ontoRev, err)
	}

	base, err := r.MergeBase(tip, onto)
	if err != nil {
		return nil, fmt.Errorf("rebase: %w", err)
	}
	if base == onto || tip == onto {
		return &RebaseResult{Outcome: RebaseUpToDate, NewTip: tip}, nil
	}
	if base == tip {
		// Branch is strictly behind onto: advance it.
		if err := r.UpdateRefCAS(refName, onto, tip); err != nil {
			return nil, fmt.Errorf("rebase: fast-forward: %w", err)
		}
		return &RebaseResult{Outcome: RebaseFastForward, NewTip: onto}, nil
	}

	sequence, err := r.firstParentSequence(tip, base)
	if err != nil {
		return nil, fmt.Errorf("rebase: %w", err)
	}

	state := &RebaseState{
		Branch:      refName,
		OriginalTip: tip,
		Onto:        onto,
		Head:        onto,
		Remaining:   sequence,
	}
	return r.replay(state)
}

// ContinueRebase resumes a halted rebase with caller-supplied resolutions
// for the conflicted step (nil content resolves a path as deleted), then
// replays the rest of the sequence.
func (r *Repo) ContinueRebase(state *RebaseState, resolutions map[string][]byte) (*RebaseResult, error) {
	if state == nil || len(state.Remaining) == 0 {
		return nil, fmt.Errorf("continue rebase: no halted rebase to continue")
	}

	conflicted := make(map[string]struct{}, len(state.Conflicts))
	for _, c := range state.Conflicts {
		conflicted[c.Path] = struct{}{}
	}
	for p := range resolutions {
		if _, ok := conflicted[p]; !ok {
			return nil, fmt.Errorf("continue rebase: path %q is not conflicted", p)
		}
	}

	merged := NewManifest()
	for p, e := range state.merged.Entries {
		merged.Entries[p] = e
	}
	for _, c := range state.Conflicts {
		content, ok := resolutions[c.Path]
		if !ok {
			return nil, fmt.Errorf("continue rebase: path %q is unresolved", c.Path)
		}
		if content == nil {
			continue
		}
		blobHash, err := r.Store.WriteBlob(&object.Blob{Data: content})
		if err != nil {
			return nil, fmt.Errorf("continue rebase: write blob %q: %w", c.Path, err)
		}
		merged.Entries[c.Path] = ManifestEntry{BlobHash: blobHash, Mode: normalizeFileMode(c.Mode)}
	}

	newHead, err := r.commitReplayStep(merged, state.Head, state.meta)
	if err != nil {
		return nil, err
	}

	next := &RebaseState{
		Branch:      state.Branch,
		OriginalTip: state.OriginalTip,
		Onto:        state.Onto,
		Head:        newHead,
		Remaining:   state.Remaining[1:],
	}
	return r.replay(next)
}

// AbortRebase abandons a halted rebase. The branch ref was never moved, so
// aborting only discards the suspended state; the replayed prefix stays in
// the object store until the next GC sweeps it.
func (r *Repo) AbortRebase(state *RebaseState) error {
	if state == nil || len(state.Remaining) == 0 {
		return fmt.Errorf("abort rebase: no halted rebase to abort")
	}
	state.Remaining = nil
	state.Conflicts = nil
	state.merged = nil
	return nil
}

// replay re-parents each remaining commit in order. The three-way merge per
// step uses the commit's parent tree as base, the commit's own tree as
// ours, and the current replay head's tree as theirs.
func (r *Repo) replay(state *RebaseState) (*RebaseResult, error) {
	for len(state.Remaining) > 0 {
		commitHash := state.Remaining[0]
		commit, err := r.Store.ReadCommit(commitHash)
		if err != nil {
			return nil, fmt.Errorf("rebase: read commit %s: %w", commitHash, err)
		}

		var parentHash object.Hash
		if len(commit.Parents) > 0 {
			parentHash = commit.Parents[0]
		}

		merged, conflicts, err := r.mergeTrees(parentHash, commitHash, state.Head)
		if err != nil {
			return nil, fmt.Errorf("rebase: replay %s: %w", commitHash, err)
		}

		meta := CommitMeta{
			Author:    commit.Author,
			Timestamp: commit.Timestamp,
			Message:   commit.Message,
		}

		if len(conflicts) > 0 {
			state.Conflicts = conflicts
			state.merged = merged
			state.meta = meta
			return &RebaseResult{Outcome: RebaseHalted, State: state}, nil
		}

		newHead, err := r.commitReplayStep(merged, state.Head, meta)
		if err != nil {
			return nil, err
		}
		state.Head = newHead
		state.Remaining = state.Remaining[1:]
	}

	// Single atomic swap from the original tip to the replayed head.
	if err := r.UpdateRefCAS(state.Branch, state.Head, state.OriginalTip); err != nil {
		return nil, fmt.Errorf("rebase: update ref %q: %w", state.Branch, err)
	}
	return &RebaseResult{Outcome: RebaseCompleted, NewTip: state.Head}, nil
}

func (r *Repo) commitReplayStep(merged *Manifest, parent object.Hash, meta CommitMeta) (object.Hash, error) {
	treeHash, err := r.BuildTree(merged)
	if err != nil {
		return "", fmt.Errorf("rebase: build tree: %w", err)
	}
	newHead, err := r.CommitTree(treeHash, []object.Hash{parent}, meta)
	if err != nil {
		return "", fmt.Errorf("rebase: commit: %w", err)
	}
	return newHead, nil
}

// firstParentSequence walks first-parent links from tip back to stop
// (exclusive) and returns the commits oldest first.
func (r *Repo) firstParentSequence(tip, stop object.Hash) ([]object.Hash, error) {
	var reversed []object.Hash
	current := tip
	for current != "" && current != stop {
		c, err := r.Store.ReadCommit(current)
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", current, err)
		}
		reversed = append(reversed, current)
		if len(c.Parents) == 0 {
			break
		}
		current = c.Parents[0]
	}

	out := make([]object.Hash, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		out = append(out, reversed[i])
	}
	return out, nil
}
