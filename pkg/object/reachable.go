package object

import (
	"fmt"
	"strings"
)

// ReachableSet computes the closure of object references starting from
// roots: commits pull in their trees and parents, trees their entries, tags
// their targets. Roots that are not present in the store are skipped, so
// callers may pass hashes recovered from stale refs or reflogs.
func (s *Store) ReachableSet(roots []Hash) (map[Hash]struct{}, error) {
	out := make(map[Hash]struct{})
	pending := uniqueNormalizedHashes(roots)

	for len(pending) > 0 {
		h := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if _, done := out[h]; done || h == "" || !s.Has(h) {
			continue
		}
		out[h] = struct{}{}

		objType, data, err := s.Read(h)
		if err != nil {
			return nil, fmt.Errorf("reachable set read %s: %w", h, err)
		}
		refs, err := ReferencedHashes(objType, data)
		if err != nil {
			return nil, fmt.Errorf("reachable set parse %s (%s): %w", h, objType, err)
		}
		pending = append(pending, refs...)
	}

	return out, nil
}

// ReferencedHashes lists the direct object references held by one object.
func ReferencedHashes(objType ObjectType, data []byte) ([]Hash, error) {
	switch objType {
	case TypeBlob:
		return nil, nil

	case TypeTag:
		tag, err := UnmarshalTag(data)
		if err != nil {
			return nil, err
		}
		return []Hash{tag.TargetHash}, nil

	case TypeCommit:
		commit, err := UnmarshalCommit(data)
		if err != nil {
			return nil, err
		}
		return append([]Hash{commit.TreeHash}, commit.Parents...), nil

	case TypeTree:
		tree, err := UnmarshalTree(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, len(tree.Entries))
		for _, e := range tree.Entries {
			if e.IsDir {
				refs = append(refs, e.SubtreeHash)
			} else {
				refs = append(refs, e.BlobHash)
			}
		}
		return refs, nil
	}
	return nil, fmt.Errorf("unsupported object type %q", objType)
}

// uniqueNormalizedHashes trims and deduplicates a root list, dropping
// empties, so the walk sees each starting point once.
func uniqueNormalizedHashes(in []Hash) []Hash {
	seen := make(map[Hash]struct{}, len(in))
	out := make([]Hash, 0, len(in))
	for _, raw := range in {
		h := Hash(strings.TrimSpace(string(raw)))
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
