package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic is the frame header every zstd-compressed object file starts
// with. Envelopes begin with an ASCII type name, so the two never collide.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123...
//
// Loose object files hold the envelope "type len\0content", zstd-compressed
// on write. Reads accept both compressed and plain envelopes.
type Store struct {
	root     string
	compress bool
}

// NewStore creates a Store rooted at the given directory. The objects/
// subdirectory is created lazily on first write.
func NewStore(root string) *Store {
	return &Store{root: root, compress: true}
}

// SetCompression toggles zstd compression of newly written objects.
// Existing objects are readable either way.
func (s *Store) SetCompression(on bool) {
	s.compress = on
}

// objectPath returns the filesystem path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	if len(h) < 3 {
		return false
	}
	_, err := os.Stat(s.objectPath(h))
	return err == nil
}

// Write stores an object and returns its content hash. Writes are
// idempotent (identical content maps to the same path) and atomic: data is
// written to a temp file and then renamed into place.
func (s *Store) Write(objType ObjectType, data []byte) (Hash, error) {
	envelope := makeEnvelope(objType, data)
	h := HashObject(objType, data)

	// Fast path: already exists.
	if s.Has(h) {
		return h, nil
	}

	raw := envelope
	if s.compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return "", fmt.Errorf("object write encoder: %w", err)
		}
		raw = enc.EncodeAll(envelope, nil)
		enc.Close()
	}

	dir := filepath.Join(s.root, "objects", string(h[:2]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("object write mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("object write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write close: %w", err)
	}

	if err := os.Rename(tmpName, s.objectPath(h)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write rename: %w", err)
	}

	return h, nil
}

// Read retrieves an object by hash, returning its type and raw content.
// The content hash is recomputed and compared against h; a mismatch fails
// with ErrIntegrity.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	if len(h) != 64 {
		return "", nil, fmt.Errorf("object read %q: malformed hash", h)
	}
	raw, err := os.ReadFile(s.objectPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("object read %s: %w", h, ErrNotFound)
		}
		return "", nil, fmt.Errorf("object read %s: %w", h, err)
	}

	if bytes.HasPrefix(raw, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return "", nil, fmt.Errorf("object read %s: decoder: %w", h, err)
		}
		raw, err = dec.DecodeAll(raw, nil)
		dec.Close()
		if err != nil {
			return "", nil, fmt.Errorf("object read %s: decompress: %w", h, ErrIntegrity)
		}
	}

	objType, content, err := parseEnvelope(raw)
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w: %v", h, ErrIntegrity, err)
	}

	if actual := HashObject(objType, content); actual != h {
		return "", nil, fmt.Errorf("object read %s: stored content hashes to %s: %w", h, actual, ErrIntegrity)
	}

	return objType, content, nil
}

// Remove deletes a loose object. Used by the garbage collector only;
// callers must have established the object is unreachable.
func (s *Store) Remove(h Hash) error {
	if err := os.Remove(s.objectPath(h)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("object remove %s: %w", h, err)
	}
	return nil
}

// ListLoose enumerates every loose object hash in the store, sorted.
func (s *Store) ListLoose() ([]Hash, error) {
	objectsDir := filepath.Join(s.root, "objects")
	fanoutDirs, err := os.ReadDir(objectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read objects dir: %w", err)
	}

	var hashes []Hash
	for _, fanoutDir := range fanoutDirs {
		if !fanoutDir.IsDir() || !isHexComponent(fanoutDir.Name(), 2) {
			continue
		}
		prefix := fanoutDir.Name()
		entries, err := os.ReadDir(filepath.Join(objectsDir, prefix))
		if err != nil {
			return nil, fmt.Errorf("read objects fanout %s: %w", prefix, err)
		}
		for _, e := range entries {
			if e.IsDir() || !isHexComponent(e.Name(), 62) {
				continue
			}
			hashes = append(hashes, Hash(prefix+e.Name()))
		}
	}

	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	return hashes, nil
}

func isHexComponent(s string, expectedLen int) bool {
	if len(s) != expectedLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func makeEnvelope(objType ObjectType, data []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", objType, len(data))
	out := make([]byte, 0, len(header)+len(data))
	out = append(out, header...)
	out = append(out, data...)
	return out
}

func parseEnvelope(raw []byte) (ObjectType, []byte, error) {
	nulIdx := bytes.IndexByte(raw, 0)
	if nulIdx < 0 {
		return "", nil, fmt.Errorf("invalid envelope (no NUL): %w", ErrIntegrity)
	}
	header := string(raw[:nulIdx])
	content := raw[nulIdx+1:]

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("invalid envelope header %q: %w", header, ErrIntegrity)
	}
	length, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("invalid envelope length %q: %w", parts[1], ErrIntegrity)
	}
	if len(content) != length {
		return "", nil, fmt.Errorf("envelope length mismatch (header=%d, actual=%d): %w", length, len(content), ErrIntegrity)
	}
	return ObjectType(parts[0]), content, nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteBlob serializes and stores a Blob.
func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	return s.Write(TypeBlob, MarshalBlob(b))
}

// ReadBlob reads and deserializes a Blob.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	data, err := s.readTyped(h, TypeBlob)
	if err != nil {
		return nil, err
	}
	return UnmarshalBlob(data)
}

// WriteTree serializes and stores a TreeObj. Entry names are validated
// first: a name the serialized form cannot represent must fail the write,
// not the eventual read.
func (s *Store) WriteTree(tr *TreeObj) (Hash, error) {
	for _, e := range tr.Entries {
		if err := ValidTreeEntryName(e.Name); err != nil {
			return "", fmt.Errorf("write tree: %w", err)
		}
	}
	return s.Write(TypeTree, MarshalTree(tr))
}

// ReadTree reads and deserializes a TreeObj.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	data, err := s.readTyped(h, TypeTree)
	if err != nil {
		return nil, err
	}
	return UnmarshalTree(data)
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	return s.Write(TypeCommit, MarshalCommit(c))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	data, err := s.readTyped(h, TypeCommit)
	if err != nil {
		return nil, err
	}
	return UnmarshalCommit(data)
}

// WriteTag serializes and stores a TagObj.
func (s *Store) WriteTag(t *TagObj) (Hash, error) {
	return s.Write(TypeTag, MarshalTag(t))
}

// ReadTag reads and deserializes a TagObj.
func (s *Store) ReadTag(h Hash) (*TagObj, error) {
	data, err := s.readTyped(h, TypeTag)
	if err != nil {
		return nil, err
	}
	return UnmarshalTag(data)
}

func (s *Store) readTyped(h Hash, want ObjectType) ([]byte, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != want {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", h, objType, want)
	}
	return data, nil
}
