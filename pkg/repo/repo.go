package repo

import (
	"sync"

	"github.com/grit-vcs/grit/pkg/object"
)

// ContentMerger resolves divergent edits to a single path. It returns the
// merged content and whether the merge was clean. A nil merger means any
// divergence is a conflict; pkg/diff3 provides a line-based implementation.
type ContentMerger func(base, ours, theirs []byte) (merged []byte, clean bool)

// Repo represents an opened grit repository.
type Repo struct {
	RootDir string        // directory containing .grit/
	GritDir string        // .grit/ directory
	Store   *object.Store // content-addressed object store

	// ContentMerge, when set, is consulted by merge and rebase for paths
	// modified divergently on both sides.
	ContentMerge ContentMerger

	graphStateOnce sync.Once
	graphState     *graphTraversalState
}

func (r *Repo) getGraphState() *graphTraversalState {
	r.graphStateOnce.Do(func() {
		r.graphState = newGraphTraversalState()
	})
	return r.graphState
}
