package repo

import (
	"container/heap"
	"fmt"

	"github.com/grit-vcs/grit/pkg/object"
)

const (
	maxMergeBaseBFSSteps = 1_000_000
	maxMergeBaseBFSDepth = 1_000_000
)

// These vars allow tests to tighten safety limits without affecting
// production defaults.
var (
	mergeBaseBFSStepsLimit = maxMergeBaseBFSSteps
	mergeBaseBFSDepthLimit = maxMergeBaseBFSDepth
)

type mergeBaseTraversalQueueItem struct {
	hash  object.Hash
	depth int
}

func mergeBaseTraversalLimits() (maxSteps int, maxDepth int) {
	maxSteps = normalizeMergeBaseTraversalLimit(mergeBaseBFSStepsLimit, maxMergeBaseBFSSteps)
	maxDepth = normalizeMergeBaseTraversalLimit(mergeBaseBFSDepthLimit, maxMergeBaseBFSDepth)
	return maxSteps, maxDepth
}

func normalizeMergeBaseTraversalLimit(limit, hardMax int) int {
	// Safety defaults are hard bounds; test hooks may only tighten.
	if limit <= 0 || limit > hardMax {
		return hardMax
	}
	return limit
}

func mergeBaseStepsLimitError(limit int) error {
	return fmt.Errorf("merge base: traversal exceeded maximum steps (%d)", limit)
}

func mergeBaseDepthLimitError(limit int) error {
	return fmt.Errorf("merge base: traversal exceeded maximum depth (%d)", limit)
}

// MergeBase finds the best common ancestor of two commits over the parent
// DAG. It uses cached generation numbers for pruning, fast ancestor checks
// for linear histories, and a memoized pair cache for repeated queries.
//
// When a history has several equally-deep common ancestors, the one with
// the most recent commit timestamp wins, then the smaller hash. Returns ""
// when the commits share no history.
func (r *Repo) MergeBase(a, b object.Hash) (object.Hash, error) {
	if a == "" || b == "" {
		return "", nil
	}
	if a == b {
		return a, nil
	}

	state := r.getGraphState()
	if cached, ok := state.loadMergeBase(a, b); ok {
		if cached.found {
			return cached.base, nil
		}
		return "", nil
	}

	genA, err := state.generation(r, a)
	if err != nil {
		return "", err
	}
	genB, err := state.generation(r, b)
	if err != nil {
		return "", err
	}

	// Fast path: one side already contains the other.
	first, second := a, b
	firstGen, secondGen := genA, genB
	if genA > genB {
		first, second = b, a
		firstGen, secondGen = genB, genA
	}
	isAncestor, err := r.isAncestorWithGeneration(state, first, second, firstGen, secondGen)
	if err != nil {
		return "", err
	}
	if isAncestor {
		state.storeMergeBase(a, b, first, true)
		return first, nil
	}
	isAncestor, err = r.isAncestorWithGeneration(state, second, first, secondGen, firstGen)
	if err != nil {
		return "", err
	}
	if isAncestor {
		state.storeMergeBase(a, b, second, true)
		return second, nil
	}

	base, found, err := r.findMergeBaseWithPruning(state, a, b, genA, genB)
	if err != nil {
		return "", err
	}
	state.storeMergeBase(a, b, base, found)
	if !found {
		return "", nil
	}
	return base, nil
}

func (r *Repo) isAncestorWithGeneration(state *graphTraversalState, ancestor, descendant object.Hash, ancestorGeneration, descendantGeneration uint64) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	if ancestorGeneration > descendantGeneration {
		return false, nil
	}

	maxSteps, maxDepth := mergeBaseTraversalLimits()
	visited := map[object.Hash]struct{}{descendant: {}}
	queue := []mergeBaseTraversalQueueItem{{hash: descendant, depth: 0}}
	steps := 0

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		steps++
		if steps > maxSteps {
			return false, mergeBaseStepsLimitError(maxSteps)
		}
		if item.depth > maxDepth {
			return false, mergeBaseDepthLimitError(maxDepth)
		}

		cur := item.hash
		if cur == ancestor {
			return true, nil
		}

		curGeneration, err := state.generation(r, cur)
		if err != nil {
			return false, err
		}
		if curGeneration <= ancestorGeneration {
			continue
		}

		commit, err := state.readCommit(r, cur)
		if err != nil {
			return false, err
		}
		for _, p := range commit.Parents {
			if p == "" {
				continue
			}
			if _, seen := visited[p]; seen {
				continue
			}
			parentGeneration, err := state.generation(r, p)
			if err != nil {
				return false, err
			}
			if parentGeneration < ancestorGeneration {
				continue
			}
			childDepth := item.depth + 1
			if childDepth > maxDepth {
				return false, mergeBaseDepthLimitError(maxDepth)
			}
			visited[p] = struct{}{}
			queue = append(queue, mergeBaseTraversalQueueItem{hash: p, depth: childDepth})
		}
	}

	return false, nil
}

// findMergeBaseWithPruning runs a dual best-first traversal from a and b,
// deepest generation first, and keeps the best commit seen by both sides.
// Branches that cannot beat the current best are pruned.
func (r *Repo) findMergeBaseWithPruning(state *graphTraversalState, a, b object.Hash, genA, genB uint64) (object.Hash, bool, error) {
	maxSteps, maxDepth := mergeBaseTraversalLimits()

	itemFor := func(h object.Hash, gen uint64) (mergeBaseQueueItem, error) {
		c, err := state.readCommit(r, h)
		if err != nil {
			return mergeBaseQueueItem{}, err
		}
		return mergeBaseQueueItem{hash: h, generation: gen, timestamp: c.Timestamp}, nil
	}

	itemA, err := itemFor(a, genA)
	if err != nil {
		return "", false, err
	}
	itemB, err := itemFor(b, genB)
	if err != nil {
		return "", false, err
	}

	visitedA := map[object.Hash]struct{}{a: {}}
	visitedB := map[object.Hash]struct{}{b: {}}
	depthA := map[object.Hash]int{a: 0}
	depthB := map[object.Hash]int{b: 0}

	queueA := mergeBaseMaxHeap{itemA}
	queueB := mergeBaseMaxHeap{itemB}
	heap.Init(&queueA)
	heap.Init(&queueB)

	var best mergeBaseQueueItem
	haveBest := false
	steps := 0

	for queueA.Len() > 0 || queueB.Len() > 0 {
		if haveBest {
			topA, okA := queueA.Peek()
			topB, okB := queueB.Peek()
			if (!okA || topA.generation < best.generation) && (!okB || topB.generation < best.generation) {
				break
			}
		}

		traverseA := false
		switch {
		case queueA.Len() == 0:
			traverseA = false
		case queueB.Len() == 0:
			traverseA = true
		default:
			topA := queueA[0]
			topB := queueB[0]
			if topA.generation > topB.generation {
				traverseA = true
			} else if topA.generation < topB.generation {
				traverseA = false
			} else {
				traverseA = topA.hash <= topB.hash
			}
		}

		var item mergeBaseQueueItem
		if traverseA {
			item = heap.Pop(&queueA).(mergeBaseQueueItem)
		} else {
			item = heap.Pop(&queueB).(mergeBaseQueueItem)
		}

		steps++
		if steps > maxSteps {
			return "", false, mergeBaseStepsLimitError(maxSteps)
		}
		if haveBest && item.generation < best.generation {
			continue
		}

		itemDepth := 0
		if traverseA {
			itemDepth = depthA[item.hash]
		} else {
			itemDepth = depthB[item.hash]
		}
		if itemDepth > maxDepth {
			return "", false, mergeBaseDepthLimitError(maxDepth)
		}

		otherVisited := visitedB
		if !traverseA {
			otherVisited = visitedA
		}
		if _, seen := otherVisited[item.hash]; seen {
			best, haveBest = chooseBetterMergeBase(best, haveBest, item)
		}

		commit, err := state.readCommit(r, item.hash)
		if err != nil {
			return "", false, err
		}

		for _, p := range commit.Parents {
			if p == "" {
				continue
			}

			parentGeneration, err := state.generation(r, p)
			if err != nil {
				return "", false, err
			}
			if haveBest && parentGeneration < best.generation {
				continue
			}

			childDepth := itemDepth + 1
			if childDepth > maxDepth {
				return "", false, mergeBaseDepthLimitError(maxDepth)
			}

			parentItem, err := itemFor(p, parentGeneration)
			if err != nil {
				return "", false, err
			}

			if traverseA {
				if _, seen := visitedA[p]; seen {
					continue
				}
				visitedA[p] = struct{}{}
				depthA[p] = childDepth
				heap.Push(&queueA, parentItem)
				if _, seen := visitedB[p]; seen {
					best, haveBest = chooseBetterMergeBase(best, haveBest, parentItem)
				}
			} else {
				if _, seen := visitedB[p]; seen {
					continue
				}
				visitedB[p] = struct{}{}
				depthB[p] = childDepth
				heap.Push(&queueB, parentItem)
				if _, seen := visitedA[p]; seen {
					best, haveBest = chooseBetterMergeBase(best, haveBest, parentItem)
				}
			}
		}
	}

	if !haveBest {
		return "", false, nil
	}
	return best.hash, true, nil
}

// chooseBetterMergeBase keeps the deeper candidate; among equal generations
// the more recent timestamp wins, then the smaller hash.
func chooseBetterMergeBase(best mergeBaseQueueItem, haveBest bool, candidate mergeBaseQueueItem) (mergeBaseQueueItem, bool) {
	if !haveBest {
		return candidate, true
	}
	if candidate.generation != best.generation {
		if candidate.generation > best.generation {
			return candidate, true
		}
		return best, true
	}
	if candidate.timestamp != best.timestamp {
		if candidate.timestamp > best.timestamp {
			return candidate, true
		}
		return best, true
	}
	if candidate.hash < best.hash {
		return candidate, true
	}
	return best, true
}
