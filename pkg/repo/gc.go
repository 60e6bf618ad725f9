package repo

import (
	"fmt"
	"sort"

	"github.com/grit-vcs/grit/pkg/object"
)

// GCSummary reports the outcome of a garbage collection sweep.
type GCSummary struct {
	Removed int
	Kept    int
}

// GC removes loose objects unreachable from every ref and every reflog
// entry. Hashes recorded in any reflog stay recoverable, so an aborted or
// mistaken operation can still be undone afterward. Roots that no longer
// resolve to stored objects are skipped.
func (r *Repo) GC() (*GCSummary, error) {
	roots, err := r.gcRoots()
	if err != nil {
		return nil, err
	}

	reachable, err := r.Store.ReachableSet(roots)
	if err != nil {
		return nil, fmt.Errorf("gc: %w", err)
	}

	loose, err := r.Store.ListLoose()
	if err != nil {
		return nil, fmt.Errorf("gc: %w", err)
	}

	summary := &GCSummary{}
	for _, h := range loose {
		if _, ok := reachable[h]; ok {
			summary.Kept++
			continue
		}
		if err := r.Store.Remove(h); err != nil {
			return nil, fmt.Errorf("gc: %w", err)
		}
		summary.Removed++
	}
	return summary, nil
}

// gcRoots collects every hash a ref points at plus every hash any reflog
// has ever recorded, deduplicated and sorted for determinism.
func (r *Repo) gcRoots() ([]object.Hash, error) {
	refs, err := r.ListRefs("")
	if err != nil {
		return nil, err
	}

	rootSet := make(map[object.Hash]struct{}, len(refs))
	for _, h := range refs {
		if h != "" {
			rootSet[h] = struct{}{}
		}
	}

	if head, err := r.ResolveRef("HEAD"); err == nil && head != "" {
		rootSet[head] = struct{}{}
	}

	logged, err := r.reflogRoots()
	if err != nil {
		return nil, err
	}
	for _, h := range logged {
		rootSet[h] = struct{}{}
	}

	roots := make([]object.Hash, 0, len(rootSet))
	for h := range rootSet {
		roots = append(roots, h)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	return roots, nil
}
