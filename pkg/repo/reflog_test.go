package repo

import (
	"testing"

	"github.com/grit-vcs/grit/pkg/object"
)

func TestReflogRecordsEveryUpdate(t *testing.T) {
	r := newTestRepo(t)

	var tips []object.Hash
	tips = append(tips, testCommitOnMain(t, r, map[string]string{"f": "1"}, "one"))
	tips = append(tips, testCommitOnMain(t, r, map[string]string{"f": "2"}, "two"))
	tips = append(tips, testCommitOnMain(t, r, map[string]string{"f": "3"}, "three"))

	entries, err := r.ReadReflog("main", 0)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) != len(tips) {
		t.Fatalf("reflog entries = %d, want %d", len(entries), len(tips))
	}

	// Newest first, and each entry's old hash chains to the previous tip.
	for i, e := range entries {
		wantNew := tips[len(tips)-1-i]
		if e.NewHash != wantNew {
			t.Fatalf("entry %d NewHash = %s, want %s", i, e.NewHash, wantNew)
		}
	}
	if entries[len(entries)-1].OldHash != zeroHash {
		t.Fatalf("first entry OldHash = %s, want zero hash", entries[len(entries)-1].OldHash)
	}
	for i := 0; i < len(entries)-1; i++ {
		if entries[i].OldHash != entries[i+1].NewHash {
			t.Fatalf("reflog chain broken at entry %d: old %s != next new %s",
				i, entries[i].OldHash, entries[i+1].NewHash)
		}
	}
}

func TestReadReflogLimit(t *testing.T) {
	r := newTestRepo(t)

	testCommitOnMain(t, r, map[string]string{"f": "1"}, "one")
	testCommitOnMain(t, r, map[string]string{"f": "2"}, "two")
	latest := testCommitOnMain(t, r, map[string]string{"f": "3"}, "three")

	entries, err := r.ReadReflog("main", 1)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].NewHash != latest {
		t.Fatalf("limited read returned %s, want newest %s", entries[0].NewHash, latest)
	}
}

func TestReadReflogMissingRefIsEmpty(t *testing.T) {
	r := newTestRepo(t)

	entries, err := r.ReadReflog("refs/heads/never-updated", 0)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(entries))
	}
}

func TestRecoverableHashesSurviveBranchRewind(t *testing.T) {
	r := newTestRepo(t)

	first := testCommitOnMain(t, r, map[string]string{"f": "1"}, "one")
	second := testCommitOnMain(t, r, map[string]string{"f": "2"}, "two")

	// Rewind the branch, abandoning the second commit.
	if err := r.UpdateRefCAS("refs/heads/main", first, second); err != nil {
		t.Fatalf("UpdateRefCAS(rewind): %v", err)
	}

	hashes, err := r.RecoverableHashes("main")
	if err != nil {
		t.Fatalf("RecoverableHashes: %v", err)
	}

	found := false
	for _, h := range hashes {
		if h == second {
			found = true
		}
	}
	if !found {
		t.Fatalf("abandoned commit %s missing from recoverable hashes %v", second, hashes)
	}

	// The abandoned commit can be re-attached to a branch.
	if err := r.CreateBranch("rescued", second); err != nil {
		t.Fatalf("CreateBranch(rescued): %v", err)
	}
	if tip := branchTip(t, r, "rescued"); tip != second {
		t.Fatalf("rescued tip = %s, want %s", tip, second)
	}
}

func TestReflogReasons(t *testing.T) {
	r := newTestRepo(t)

	first := testCommitOnMain(t, r, map[string]string{"f": "1"}, "one")
	if err := r.DetachHead(first); err != nil {
		t.Fatalf("DetachHead: %v", err)
	}

	entries, err := r.ReadReflog("HEAD", 0)
	if err != nil {
		t.Fatalf("ReadReflog(HEAD): %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("no HEAD reflog entries after detach")
	}
	if entries[0].Reason != "detach" {
		t.Fatalf("detach reason = %q, want %q", entries[0].Reason, "detach")
	}
}

func TestDeleteBranchRecordsReflog(t *testing.T) {
	r := newTestRepo(t)

	tip := testCommitOnMain(t, r, map[string]string{"f": "1"}, "one")
	if err := r.CreateBranch("side", tip); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.DeleteBranch("side"); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}

	entries, err := r.ReadReflog("side", 0)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("deleted branch has no reflog entries")
	}
	last := entries[0]
	if last.OldHash != tip || last.NewHash != zeroHash || last.Reason != "delete" {
		t.Fatalf("delete entry = %+v, want old %s, new zero, reason delete", last, tip)
	}

	// The deleted tip stays recoverable through the delete entry.
	hashes, err := r.RecoverableHashes("side")
	if err != nil {
		t.Fatalf("RecoverableHashes: %v", err)
	}
	found := false
	for _, h := range hashes {
		if h == tip {
			found = true
		}
	}
	if !found {
		t.Fatalf("RecoverableHashes(side) = %v, want to include %s", hashes, tip)
	}
}

func TestDeleteTagRecordsReflog(t *testing.T) {
	r := newTestRepo(t)

	tip := testCommitOnMain(t, r, map[string]string{"f": "1"}, "one")
	if err := r.CreateTag("v1", tip, false); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := r.DeleteTag("v1"); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}

	entries, err := r.ReadReflog("refs/tags/v1", 0)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("deleted tag has no reflog entries")
	}
	last := entries[0]
	if last.OldHash != tip || last.NewHash != zeroHash || last.Reason != "delete" {
		t.Fatalf("delete entry = %+v, want old %s, new zero, reason delete", last, tip)
	}
}
