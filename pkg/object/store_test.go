package object

import (
	"errors"
	"os"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func TestStoreWriteRead(t *testing.T) {
	s := newTestStore(t)

	content := []byte("hello, content-addressed world\n")
	h, err := s.Write(TypeBlob, content)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if h != HashObject(TypeBlob, content) {
		t.Fatalf("Write returned %s, want envelope hash %s", h, HashObject(TypeBlob, content))
	}

	objType, data, err := s.Read(h)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if objType != TypeBlob {
		t.Fatalf("Read type = %s, want %s", objType, TypeBlob)
	}
	if string(data) != string(content) {
		t.Fatalf("Read data = %q, want %q", data, content)
	}
}

func TestStoreWriteIdempotent(t *testing.T) {
	s := newTestStore(t)

	content := []byte("same bytes")
	h1, err := s.Write(TypeBlob, content)
	if err != nil {
		t.Fatalf("Write(1): %v", err)
	}
	h2, err := s.Write(TypeBlob, content)
	if err != nil {
		t.Fatalf("Write(2): %v", err)
	}
	if h1 != h2 {
		t.Fatalf("second write returned %s, want %s", h2, h1)
	}

	loose, err := s.ListLoose()
	if err != nil {
		t.Fatalf("ListLoose: %v", err)
	}
	if len(loose) != 1 {
		t.Fatalf("loose objects = %d, want 1", len(loose))
	}
}

func TestStoreTypeAffectsHash(t *testing.T) {
	s := newTestStore(t)

	content := []byte("ambiguous payload")
	asBlob, err := s.Write(TypeBlob, content)
	if err != nil {
		t.Fatalf("Write(blob): %v", err)
	}
	asCommit, err := s.Write(TypeCommit, content)
	if err != nil {
		t.Fatalf("Write(commit): %v", err)
	}
	if asBlob == asCommit {
		t.Fatalf("blob and commit envelopes hashed identically: %s", asBlob)
	}
}

func TestStoreReadMissing(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.Read(Hash("0000000000000000000000000000000000000000000000000000000000000000"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read(missing) = %v, want ErrNotFound", err)
	}
}

func TestStoreReadDetectsCorruption(t *testing.T) {
	s := newTestStore(t)
	s.SetCompression(false)

	h, err := s.Write(TypeBlob, []byte("original content"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Flip the stored bytes underneath the store.
	path := s.objectPath(h)
	if err := os.WriteFile(path, []byte("blob 7\x00tamper!"), 0o644); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	_, _, err = s.Read(h)
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("Read(tampered) = %v, want ErrIntegrity", err)
	}
}

func TestStoreCompressionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	// Compressible content so the zstd path is actually exercised.
	content := make([]byte, 8192)
	for i := range content {
		content[i] = byte('a' + i%4)
	}

	h, err := s.Write(TypeBlob, content)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := s.objectPath(h)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if len(raw) >= len(content) {
		t.Fatalf("stored size %d not compressed below %d", len(raw), len(content))
	}

	_, data, err := s.Read(h)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("decompressed content differs from original")
	}
}

func TestStoreReadsUncompressedWhenCompressionOff(t *testing.T) {
	s := newTestStore(t)
	s.SetCompression(false)

	h, err := s.Write(TypeBlob, []byte("plain"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	_, data, err := s.Read(h)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "plain" {
		t.Fatalf("Read = %q, want %q", data, "plain")
	}
}

func TestStoreRemove(t *testing.T) {
	s := newTestStore(t)

	h, err := s.Write(TypeBlob, []byte("doomed"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Remove(h); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Has(h) {
		t.Fatalf("object still present after Remove")
	}
	_, _, err = s.Read(h)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read(removed) = %v, want ErrNotFound", err)
	}
}

func TestStoreConcurrentWritesSameContent(t *testing.T) {
	s := newTestStore(t)
	content := []byte("raced content")
	want := HashObject(TypeBlob, content)

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			h, err := s.Write(TypeBlob, content)
			if err != nil {
				errCh <- err
				return
			}
			if h != want {
				errCh <- errors.New("hash mismatch under concurrency")
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent write: %v", err)
	}

	_, data, err := s.Read(want)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("content corrupted by concurrent writes")
	}
}

func TestReachableSetFollowsCommitTreeBlob(t *testing.T) {
	s := newTestStore(t)

	blobHash, err := s.WriteBlob(&Blob{Data: []byte("file body")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	treeHash, err := s.WriteTree(&TreeObj{Entries: []TreeEntry{
		{Name: "file.txt", Mode: TreeModeFile, BlobHash: blobHash},
	}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	commitHash, err := s.WriteCommit(&CommitObj{
		TreeHash:  treeHash,
		Author:    "tester <t@example.com>",
		Timestamp: 1700000000,
		Message:   "initial",
	})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}

	orphan, err := s.WriteBlob(&Blob{Data: []byte("unreferenced")})
	if err != nil {
		t.Fatalf("WriteBlob(orphan): %v", err)
	}

	reachable, err := s.ReachableSet([]Hash{commitHash})
	if err != nil {
		t.Fatalf("ReachableSet: %v", err)
	}
	for _, h := range []Hash{commitHash, treeHash, blobHash} {
		if _, ok := reachable[h]; !ok {
			t.Fatalf("hash %s missing from reachable set", h)
		}
	}
	if _, ok := reachable[orphan]; ok {
		t.Fatalf("orphan blob unexpectedly reachable")
	}
}

func TestWriteTreeRejectsUnrepresentableNames(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"", ".", "..", "a/b", "line\nbreak", "nul\x00byte"} {
		_, err := s.WriteTree(&TreeObj{Entries: []TreeEntry{
			{Name: name, Mode: TreeModeFile, BlobHash: HashBytes([]byte("x"))},
		}})
		if err == nil {
			t.Errorf("WriteTree with name %q succeeded, want error", name)
		}
	}
}
