package repo

import "testing"

func TestMergeBaseLinearHistory(t *testing.T) {
	r := newTestRepo(t)

	a := testCommitAt(t, r, map[string]string{"f": "a"}, "a", 100)
	b := testCommitAt(t, r, map[string]string{"f": "b"}, "b", 200, a)
	c := testCommitAt(t, r, map[string]string{"f": "c"}, "c", 300, b)

	base, err := r.MergeBase(a, c)
	if err != nil {
		t.Fatalf("MergeBase(a, c): %v", err)
	}
	if base != a {
		t.Fatalf("MergeBase(a, c) = %s, want ancestor %s", base, a)
	}

	// Symmetric.
	base, err = r.MergeBase(c, a)
	if err != nil {
		t.Fatalf("MergeBase(c, a): %v", err)
	}
	if base != a {
		t.Fatalf("MergeBase(c, a) = %s, want %s", base, a)
	}
}

func TestMergeBaseSelf(t *testing.T) {
	r := newTestRepo(t)

	a := testCommitAt(t, r, map[string]string{"f": "a"}, "a", 100)
	base, err := r.MergeBase(a, a)
	if err != nil {
		t.Fatalf("MergeBase(a, a): %v", err)
	}
	if base != a {
		t.Fatalf("MergeBase(a, a) = %s, want %s", base, a)
	}
}

func TestMergeBaseDivergedBranches(t *testing.T) {
	r := newTestRepo(t)

	root := testCommitAt(t, r, map[string]string{"f": "root"}, "root", 100)
	fork := testCommitAt(t, r, map[string]string{"f": "fork"}, "fork", 200, root)
	left := testCommitAt(t, r, map[string]string{"f": "l1"}, "l1", 300, fork)
	left = testCommitAt(t, r, map[string]string{"f": "l2"}, "l2", 400, left)
	right := testCommitAt(t, r, map[string]string{"f": "r1"}, "r1", 350, fork)

	base, err := r.MergeBase(left, right)
	if err != nil {
		t.Fatalf("MergeBase: %v", err)
	}
	if base != fork {
		t.Fatalf("MergeBase = %s, want fork point %s", base, fork)
	}
}

func TestMergeBaseUnrelatedHistories(t *testing.T) {
	r := newTestRepo(t)

	a := testCommitAt(t, r, map[string]string{"f": "a"}, "a", 100)
	b := testCommitAt(t, r, map[string]string{"g": "b"}, "b", 100)

	base, err := r.MergeBase(a, b)
	if err != nil {
		t.Fatalf("MergeBase(unrelated): %v", err)
	}
	if base != "" {
		t.Fatalf("MergeBase(unrelated) = %s, want empty", base)
	}
}

func TestMergeBaseThroughMergeCommit(t *testing.T) {
	r := newTestRepo(t)

	root := testCommitAt(t, r, map[string]string{"f": "root"}, "root", 100)
	side := testCommitAt(t, r, map[string]string{"f": "side"}, "side", 200, root)
	mainline := testCommitAt(t, r, map[string]string{"f": "m1"}, "m1", 250, root)
	merged := testCommitAt(t, r, map[string]string{"f": "merged"}, "merge side", 300, mainline, side)
	after := testCommitAt(t, r, map[string]string{"f": "after"}, "after", 400, merged)

	// side is reachable from after through the merge's second parent.
	base, err := r.MergeBase(side, after)
	if err != nil {
		t.Fatalf("MergeBase: %v", err)
	}
	if base != side {
		t.Fatalf("MergeBase(side, after) = %s, want %s", base, side)
	}
}

func TestMergeBaseCrissCrossPrefersNewerTimestamp(t *testing.T) {
	r := newTestRepo(t)

	root := testCommitAt(t, r, map[string]string{"f": "root"}, "root", 100)
	older := testCommitAt(t, r, map[string]string{"f": "older"}, "older", 200, root)
	newer := testCommitAt(t, r, map[string]string{"f": "newer"}, "newer", 300, root)

	// Criss-cross: both tips have both candidates as ancestors, at the
	// same generation depth.
	tipA := testCommitAt(t, r, map[string]string{"f": "tipA"}, "tipA", 400, older, newer)
	tipB := testCommitAt(t, r, map[string]string{"f": "tipB"}, "tipB", 400, newer, older)

	base, err := r.MergeBase(tipA, tipB)
	if err != nil {
		t.Fatalf("MergeBase: %v", err)
	}
	if base != newer {
		t.Fatalf("criss-cross base = %s, want newer candidate %s", base, newer)
	}
}

func TestMergeBaseMemoizedAcrossCalls(t *testing.T) {
	r := newTestRepo(t)

	root := testCommitAt(t, r, map[string]string{"f": "root"}, "root", 100)
	a := testCommitAt(t, r, map[string]string{"f": "a"}, "a", 200, root)
	b := testCommitAt(t, r, map[string]string{"f": "b"}, "b", 300, root)

	first, err := r.MergeBase(a, b)
	if err != nil {
		t.Fatalf("MergeBase(1): %v", err)
	}
	second, err := r.MergeBase(b, a)
	if err != nil {
		t.Fatalf("MergeBase(2): %v", err)
	}
	if first != second || first != root {
		t.Fatalf("MergeBase not stable: %s then %s, want %s", first, second, root)
	}
}

func TestMergeBaseDepthLimit(t *testing.T) {
	r := newTestRepo(t)

	origSteps, origDepth := mergeBaseBFSStepsLimit, mergeBaseBFSDepthLimit
	mergeBaseBFSStepsLimit, mergeBaseBFSDepthLimit = 4, 4
	defer func() {
		mergeBaseBFSStepsLimit, mergeBaseBFSDepthLimit = origSteps, origDepth
	}()

	tip := testCommitAt(t, r, map[string]string{"f": "0"}, "c0", 100)
	for i := 1; i < 12; i++ {
		tip = testCommitAt(t, r, map[string]string{"f": string(rune('a' + i))}, "c", int64(100+i), tip)
	}
	unrelated := testCommitAt(t, r, map[string]string{"g": "x"}, "x", 100)

	if _, err := r.MergeBase(tip, unrelated); err == nil {
		t.Fatalf("expected traversal limit error for deep unrelated histories")
	}
}
